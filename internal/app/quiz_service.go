package app

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"ebcoins-quiz-service/internal/domain"
)

// UserRepository reads and writes the whole users collection.
type UserRepository interface {
	LoadUsers(ctx context.Context) ([]domain.User, error)
	SaveUsers(ctx context.Context, users []domain.User) error
}

// QuestionRepository reads and writes the whole question bank.
type QuestionRepository interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
	SaveQuestions(ctx context.Context, questions []domain.Question) error
}

// Locker serializes read-modify-write cycles on a named collection
// (in-process mutexes, Redis locks, etc).
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

const (
	usersLockKey     = "users"
	questionsLockKey = "questions"
)

// Options tunes a service. Zero values fall back to defaults.
type Options struct {
	Clock    func() time.Time
	Location *time.Location
	Random   Random
	TopN     int
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Random == nil {
		o.Random = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	return o
}

// QuizService serves daily questions, scores answers and ranks users.
type QuizService struct {
	users     UserRepository
	questions QuestionRepository
	locker    Locker
	feed      *LeaderboardFeed
	opts      Options
}

func NewQuizService(users UserRepository, questions QuestionRepository, locker Locker, feed *LeaderboardFeed, opts Options) *QuizService {
	if feed == nil {
		feed = NewLeaderboardFeed()
	}
	return &QuizService{
		users:     users,
		questions: questions,
		locker:    locker,
		feed:      feed,
		opts:      opts.withDefaults(),
	}
}

// Today is the current calendar day in the configured location.
func (s *QuizService) Today() domain.Date {
	return domain.DateOf(s.opts.Clock().In(s.opts.Location))
}

// DailyQuestions returns today's questions for email, without correct answers,
// and records them as reserved.
func (s *QuizService) DailyQuestions(ctx context.Context, email string) ([]domain.PublicQuestion, error) {
	unlock, err := s.locker.Lock(ctx, usersLockKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	users, err := s.users.LoadUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	idx := findUser(users, email)
	if idx < 0 {
		return nil, domain.ErrUnknownUser
	}
	questions, err := s.questions.LoadQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	// rnd is only touched under the users lock.
	updated, picked, err := SelectDaily(users[idx], questions, s.Today(), s.opts.Random)
	if err != nil {
		return nil, err
	}
	if len(picked) > 0 {
		users[idx] = updated
		if err := s.users.SaveUsers(ctx, users); err != nil {
			return nil, fmt.Errorf("save users: %w", err)
		}
	}

	out := make([]domain.PublicQuestion, 0, len(picked))
	for _, q := range picked {
		out = append(out, q.Public())
	}
	return out, nil
}

// SubmitAnswers scores answers for email and persists the new balance and history.
func (s *QuizService) SubmitAnswers(ctx context.Context, email string, answers []domain.AnswerSubmission) (domain.ScoreResult, error) {
	if email == "" || answers == nil {
		return domain.ScoreResult{}, domain.ErrInvalidRequest
	}

	unlock, err := s.locker.Lock(ctx, usersLockKey)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	defer unlock()

	users, err := s.users.LoadUsers(ctx)
	if err != nil {
		return domain.ScoreResult{}, fmt.Errorf("load users: %w", err)
	}
	idx := findUser(users, email)
	if idx < 0 {
		return domain.ScoreResult{}, domain.ErrUnknownUser
	}
	questions, err := s.questions.LoadQuestions(ctx)
	if err != nil {
		return domain.ScoreResult{}, fmt.Errorf("load questions: %w", err)
	}

	updated, earned, err := ScoreAnswers(users[idx], questions, answers, s.Today())
	if err != nil {
		return domain.ScoreResult{}, err
	}
	users[idx] = updated
	if err := s.users.SaveUsers(ctx, users); err != nil {
		return domain.ScoreResult{}, fmt.Errorf("save users: %w", err)
	}

	s.feed.Publish(BuildLeaderboard(users, "", s.opts.TopN, s.opts.Clock()))
	return domain.ScoreResult{PointsEarned: earned, NewBalance: updated.Ebcoins}, nil
}

// Leaderboard ranks users by balance; email is optional.
func (s *QuizService) Leaderboard(ctx context.Context, email string) (domain.Leaderboard, error) {
	users, err := s.users.LoadUsers(ctx)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("load users: %w", err)
	}
	return BuildLeaderboard(users, email, s.opts.TopN, s.opts.Clock()), nil
}

// Subscribe streams leaderboard snapshots, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(ctx context.Context) (<-chan domain.Leaderboard, func(), error) {
	initial, err := s.Leaderboard(ctx, "")
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.Subscribe(initial)
	return ch, cancel, nil
}

func findUser(users []domain.User, email string) int {
	if email == "" {
		return -1
	}
	for i := range users {
		if users[i].Email == email {
			return i
		}
	}
	return -1
}
