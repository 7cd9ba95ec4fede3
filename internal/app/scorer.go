package app

import (
	"slices"
	"strings"

	"ebcoins-quiz-service/internal/domain"
)

// ScoreAnswers grades submitted answers for today and returns the updated
// user and the points earned. Unknown question ids and questions already
// answered today are skipped. The input user is not modified.
func ScoreAnswers(user domain.User, questions []domain.Question, answers []domain.AnswerSubmission, today domain.Date) (domain.User, int, error) {
	if answers == nil {
		return user, 0, domain.ErrInvalidRequest
	}

	byID := make(map[int]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	updated := user
	updated.AnsweredHistory = slices.Clone(user.AnsweredHistory)

	earned := 0
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			continue
		}
		if updated.HasAnswered(q.ID, today) {
			continue
		}
		if isCorrect(a.Answer, q.Correct) {
			earned += q.Difficulty.Points()
		}
		updated.AnsweredHistory = append(updated.AnsweredHistory, domain.HistoryEntry{QuestionID: q.ID, Date: today})
	}
	updated.Ebcoins += earned

	answeredToday := make(map[int]struct{})
	for _, h := range updated.AnsweredHistory {
		if h.Date == today {
			answeredToday[h.QuestionID] = struct{}{}
		}
	}
	reserved := make([]domain.HistoryEntry, 0, len(user.ReservedToday))
	for _, r := range user.ReservedToday {
		if _, ok := answeredToday[r.QuestionID]; !ok {
			reserved = append(reserved, r)
		}
	}
	updated.ReservedToday = reserved

	updated.AnsweredHistory = PruneHistory(updated.AnsweredHistory, today)
	return updated, earned, nil
}

// PruneHistory keeps entries dated within the retention window.
func PruneHistory(history []domain.HistoryEntry, today domain.Date) []domain.HistoryEntry {
	cutoff := today.AddDays(-HistoryRetentionDays)
	kept := make([]domain.HistoryEntry, 0, len(history))
	for _, h := range history {
		if h.Date >= cutoff {
			kept = append(kept, h)
		}
	}
	return kept
}

func isCorrect(submitted, correct string) bool {
	got := normalizeAnswer(submitted)
	return got != "" && got == normalizeAnswer(correct)
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
