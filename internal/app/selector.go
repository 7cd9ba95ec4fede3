package app

import (
	"slices"

	"ebcoins-quiz-service/internal/domain"
)

const (
	// DailyLimit is how many questions a user may answer per day.
	DailyLimit = 3
	// RepeatWindowDays excludes questions answered within this many days.
	RepeatWindowDays = 30
	// HistoryRetentionDays bounds how far back answered history is kept.
	HistoryRetentionDays = 60
)

// Random is the source used to pick questions. *rand.Rand satisfies it.
type Random interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// SelectDaily picks today's questions for user and returns the updated user
// (with new reservations) along with the selection. The input user is not
// modified.
func SelectDaily(user domain.User, questions []domain.Question, today domain.Date, rnd Random) (domain.User, []domain.Question, error) {
	answeredToday := user.AnsweredOn(today)
	if answeredToday >= DailyLimit {
		return user, nil, domain.ErrQuotaExceeded
	}

	cutoff := today.AddDays(-RepeatWindowDays)
	recent := make(map[int]struct{})
	for _, h := range user.AnsweredHistory {
		if h.Date >= cutoff {
			recent[h.QuestionID] = struct{}{}
		}
	}

	candidates := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if _, ok := recent[q.ID]; !ok {
			candidates = append(candidates, q)
		}
	}
	if len(candidates) == 0 {
		return user, nil, domain.ErrNoQuestionsAvailable
	}

	picked := pickByTier(candidates, rnd)
	if len(picked) < DailyLimit {
		picked = fillRandom(picked, candidates, rnd)
	}
	if remaining := DailyLimit - answeredToday; len(picked) > remaining {
		picked = picked[:remaining]
	}

	updated := user
	updated.ReservedToday = slices.Clone(user.ReservedToday)
	for _, q := range picked {
		updated.ReservedToday = append(updated.ReservedToday, domain.HistoryEntry{QuestionID: q.ID, Date: today})
	}
	return updated, picked, nil
}

// pickByTier draws one candidate per tier, in tier order, skipping empty tiers.
func pickByTier(candidates []domain.Question, rnd Random) []domain.Question {
	picked := make([]domain.Question, 0, DailyLimit)
	for _, tier := range domain.Tiers {
		var pool []domain.Question
		for _, q := range candidates {
			if q.Difficulty == tier {
				pool = append(pool, q)
			}
		}
		if len(pool) == 0 {
			continue
		}
		picked = append(picked, pool[rnd.Intn(len(pool))])
		if len(picked) == DailyLimit {
			break
		}
	}
	return picked
}

// fillRandom tops picked up to DailyLimit with shuffled leftovers.
func fillRandom(picked, candidates []domain.Question, rnd Random) []domain.Question {
	rest := make([]domain.Question, 0, len(candidates))
	for _, q := range candidates {
		if !containsQuestion(picked, q.ID) {
			rest = append(rest, q)
		}
	}
	rnd.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	for len(picked) < DailyLimit && len(rest) > 0 {
		picked = append(picked, rest[0])
		rest = rest[1:]
	}
	return picked
}

func containsQuestion(qs []domain.Question, id int) bool {
	for _, q := range qs {
		if q.ID == id {
			return true
		}
	}
	return false
}
