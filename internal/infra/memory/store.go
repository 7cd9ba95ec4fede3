package memory

import (
	"context"
	"slices"
	"sync"

	"ebcoins-quiz-service/internal/domain"
)

// Store is an in-memory implementation of app.UserRepository and
// app.QuestionRepository. Collections are copied on the way in and out.
type Store struct {
	mu        sync.RWMutex
	users     []domain.User
	questions []domain.Question
}

func NewStore(users []domain.User, questions []domain.Question) *Store {
	return &Store{
		users:     cloneUsers(users),
		questions: cloneQuestions(questions),
	}
}

func (s *Store) LoadUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUsers(s.users), nil
}

func (s *Store) SaveUsers(_ context.Context, users []domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = cloneUsers(users)
	return nil
}

func (s *Store) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneQuestions(s.questions), nil
}

func (s *Store) SaveQuestions(_ context.Context, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = cloneQuestions(questions)
	return nil
}

func cloneUsers(users []domain.User) []domain.User {
	out := make([]domain.User, len(users))
	for i, u := range users {
		u.AnsweredHistory = slices.Clone(u.AnsweredHistory)
		u.ReservedToday = slices.Clone(u.ReservedToday)
		out[i] = u
	}
	return out
}

func cloneQuestions(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	for i, q := range questions {
		q.Options = slices.Clone(q.Options)
		out[i] = q
	}
	return out
}
