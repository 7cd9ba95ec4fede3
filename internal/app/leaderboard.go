package app

import (
	"sort"
	"sync"
	"time"

	"ebcoins-quiz-service/internal/domain"
)

// DefaultTopN is how many users the leaderboard shows when unconfigured.
const DefaultTopN = 5

// BuildLeaderboard ranks users by balance, highest first. Ties keep
// collection order. When email matches a user, its standing is included.
func BuildLeaderboard(users []domain.User, email string, topN int, now time.Time) domain.Leaderboard {
	if topN <= 0 {
		topN = DefaultTopN
	}
	ranked := make([]domain.User, len(users))
	copy(ranked, users)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Ebcoins > ranked[j].Ebcoins
	})

	top := make([]domain.LeaderboardEntry, 0, topN)
	for i := 0; i < len(ranked) && i < topN; i++ {
		top = append(top, domain.LeaderboardEntry{
			Name:    ranked[i].Name,
			Email:   ranked[i].Email,
			Ebcoins: ranked[i].Ebcoins,
		})
	}

	lb := domain.Leaderboard{Top: top, UpdatedAt: now}
	if email == "" {
		return lb
	}
	for i, u := range ranked {
		if u.Email == email {
			lb.Me = &domain.Standing{
				Name:     u.Name,
				Email:    u.Email,
				Ebcoins:  u.Ebcoins,
				Position: i + 1,
			}
			break
		}
	}
	return lb
}

// LeaderboardFeed fans out leaderboard snapshots to subscribers.
type LeaderboardFeed struct {
	mu          sync.Mutex
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardFeed() *LeaderboardFeed {
	return &LeaderboardFeed{subscribers: make(map[chan domain.Leaderboard]struct{})}
}

// Subscribe returns a channel that first receives initial and then every
// published snapshot. The caller must invoke cancel to release it.
func (f *LeaderboardFeed) Subscribe(initial domain.Leaderboard) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	ch <- initial

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers lb to every subscriber. A full subscriber buffer drops
// its oldest snapshot so slow readers never block scoring.
func (f *LeaderboardFeed) Publish(lb domain.Leaderboard) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- lb:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (f *LeaderboardFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}
