package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"ebcoins-quiz-service/internal/domain"
)

const (
	usersFile     = "users.json"
	questionsFile = "questions.json"
)

// Store keeps users and questions as JSON arrays in a data directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates dir and empty collection files when missing.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Store{dir: dir}
	for _, name := range []string{usersFile, questionsFile} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if err := writeJSON(path, []struct{}{}); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *Store) LoadUsers(_ context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := s.read(usersFile, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) SaveUsers(_ context.Context, users []domain.User) error {
	return s.write(usersFile, users)
}

func (s *Store) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	var questions []domain.Question
	if err := s.read(questionsFile, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *Store) SaveQuestions(_ context.Context, questions []domain.Question) error {
	return s.write(questionsFile, questions)
}

func (s *Store) read(name string, dst any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) write(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(filepath.Join(s.dir, name), v)
}

// writeJSON replaces path atomically via a temp file in the same directory.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp.Name(), path)
}
