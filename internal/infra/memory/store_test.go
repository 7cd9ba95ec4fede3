package memory

import (
	"context"
	"testing"

	"ebcoins-quiz-service/internal/domain"
)

func TestStoreCopiesCollections(t *testing.T) {
	ctx := context.Background()
	store := NewStore([]domain.User{{Email: "ana@school.test", Name: "Ana"}}, nil)

	users, err := store.LoadUsers(ctx)
	if err != nil {
		t.Fatalf("load users: %v", err)
	}
	users[0].Ebcoins = 99
	users[0].AnsweredHistory = append(users[0].AnsweredHistory, domain.HistoryEntry{QuestionID: 1, Date: "2025-10-19"})

	again, _ := store.LoadUsers(ctx)
	if again[0].Ebcoins != 0 || len(again[0].AnsweredHistory) != 0 {
		t.Fatalf("expected stored user untouched, got %+v", again[0])
	}

	if err := store.SaveUsers(ctx, users); err != nil {
		t.Fatalf("save users: %v", err)
	}
	again, _ = store.LoadUsers(ctx)
	if again[0].Ebcoins != 99 || len(again[0].AnsweredHistory) != 1 {
		t.Fatalf("expected saved user, got %+v", again[0])
	}
}

func TestStoreQuestions(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, nil)

	qs, err := store.LoadQuestions(ctx)
	if err != nil || len(qs) != 0 {
		t.Fatalf("expected empty bank, got %v %v", qs, err)
	}
	if err := store.SaveQuestions(ctx, []domain.Question{sampleQuestion(1)}); err != nil {
		t.Fatalf("save questions: %v", err)
	}
	qs, _ = store.LoadQuestions(ctx)
	if len(qs) != 1 || qs[0].Correct != "Paris" {
		t.Fatalf("unexpected bank %+v", qs)
	}
}

func sampleQuestion(id int) domain.Question {
	return domain.Question{
		ID:         id,
		Text:       "What is the capital of France?",
		Options:    []string{"Berlin", "Paris", "Madrid"},
		Correct:    "Paris",
		Difficulty: domain.Easy,
	}
}
