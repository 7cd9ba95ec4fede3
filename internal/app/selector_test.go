package app

import (
	"math/rand"
	"testing"

	"ebcoins-quiz-service/internal/domain"
)

const today domain.Date = "2025-10-19"

// firstPick always draws index 0 and never shuffles.
type firstPick struct{}

func (firstPick) Intn(int) int                { return 0 }
func (firstPick) Shuffle(int, func(i, j int)) {}

func q(id int, d domain.Difficulty) domain.Question {
	return domain.Question{ID: id, Text: "question", Options: []string{"a", "b"}, Correct: "a", Difficulty: d}
}

func TestSelectDailyOnePerTier(t *testing.T) {
	bank := []domain.Question{q(1, domain.Hard), q(2, domain.Easy), q(3, domain.Medium), q(4, domain.Easy)}
	user := domain.User{Email: "ana@school.test"}

	updated, picked, err := SelectDaily(user, bank, today, firstPick{})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(picked) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(picked))
	}
	want := []domain.Difficulty{domain.Easy, domain.Medium, domain.Hard}
	for i, d := range want {
		if picked[i].Difficulty != d {
			t.Fatalf("slot %d: expected %s, got %s", i, d, picked[i].Difficulty)
		}
	}
	if len(updated.ReservedToday) != 3 || updated.ReservedToday[0] != (domain.HistoryEntry{QuestionID: 2, Date: today}) {
		t.Fatalf("unexpected reservations %+v", updated.ReservedToday)
	}
	if len(user.ReservedToday) != 0 {
		t.Fatalf("input user must not be modified")
	}
}

func TestSelectDailyBackfillsMissingTier(t *testing.T) {
	bank := []domain.Question{q(1, domain.Easy), q(2, domain.Easy), q(3, domain.Medium)}

	for seed := int64(0); seed < 20; seed++ {
		_, picked, err := SelectDaily(domain.User{}, bank, today, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if len(picked) != 3 {
			t.Fatalf("expected 3 questions, got %d", len(picked))
		}
		counts := map[domain.Difficulty]int{}
		seen := map[int]bool{}
		for _, p := range picked {
			counts[p.Difficulty]++
			if seen[p.ID] {
				t.Fatalf("question %d picked twice", p.ID)
			}
			seen[p.ID] = true
		}
		if counts[domain.Easy] != 2 || counts[domain.Medium] != 1 {
			t.Fatalf("expected two easy and one medium, got %v", counts)
		}
	}
}

func TestSelectDailyQuotaExceeded(t *testing.T) {
	user := domain.User{AnsweredHistory: []domain.HistoryEntry{
		{QuestionID: 1, Date: today}, {QuestionID: 2, Date: today}, {QuestionID: 3, Date: today},
	}}
	updated, picked, err := SelectDaily(user, []domain.Question{q(4, domain.Easy)}, today, firstPick{})
	if err != domain.ErrQuotaExceeded {
		t.Fatalf("expected quota error, got %v", err)
	}
	if picked != nil || len(updated.ReservedToday) != 0 {
		t.Fatalf("expected no selection and no reservation")
	}
}

func TestSelectDailyTruncatesToRemainingQuota(t *testing.T) {
	user := domain.User{AnsweredHistory: []domain.HistoryEntry{{QuestionID: 1, Date: today}, {QuestionID: 2, Date: today}}}
	bank := []domain.Question{q(1, domain.Easy), q(2, domain.Medium), q(3, domain.Easy), q(4, domain.Medium), q(5, domain.Hard)}

	_, picked, err := SelectDaily(user, bank, today, firstPick{})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(picked) != 1 || picked[0].ID != 3 {
		t.Fatalf("expected only question 3, got %+v", picked)
	}
}

func TestSelectDailyExcludesLast30Days(t *testing.T) {
	user := domain.User{AnsweredHistory: []domain.HistoryEntry{
		{QuestionID: 1, Date: today.AddDays(-30)},
		{QuestionID: 2, Date: today.AddDays(-31)},
		{QuestionID: 3, Date: today.AddDays(-5)},
	}}
	bank := []domain.Question{q(1, domain.Easy), q(2, domain.Easy), q(3, domain.Medium)}

	_, picked, err := SelectDaily(user, bank, today, firstPick{})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(picked) != 1 || picked[0].ID != 2 {
		t.Fatalf("expected only question 2, got %+v", picked)
	}
}

func TestSelectDailyNoQuestionsAvailable(t *testing.T) {
	user := domain.User{AnsweredHistory: []domain.HistoryEntry{{QuestionID: 1, Date: today.AddDays(-1)}}}
	_, _, err := SelectDaily(user, []domain.Question{q(1, domain.Easy)}, today, firstPick{})
	if err != domain.ErrNoQuestionsAvailable {
		t.Fatalf("expected no questions error, got %v", err)
	}
	_, _, err = SelectDaily(domain.User{}, nil, today, firstPick{})
	if err != domain.ErrNoQuestionsAvailable {
		t.Fatalf("expected no questions error on empty bank, got %v", err)
	}
}

func TestSelectDailyAppendsReservations(t *testing.T) {
	user := domain.User{ReservedToday: []domain.HistoryEntry{{QuestionID: 1, Date: today}}}
	updated, _, err := SelectDaily(user, []domain.Question{q(1, domain.Easy)}, today, firstPick{})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(updated.ReservedToday) != 2 {
		t.Fatalf("expected duplicate reservation kept, got %+v", updated.ReservedToday)
	}
}
