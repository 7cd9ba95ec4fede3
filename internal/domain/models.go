package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role distinguishes students from administrators.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Difficulty is the tier of a question; it drives the reward.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Tiers lists difficulties in selection order.
var Tiers = []Difficulty{Easy, Medium, Hard}

// ParseDifficulty normalizes a tier token. The legacy tokens
// "facil", "media" and "dificil" map to easy, medium and hard.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "easy", "facil":
		return Easy, nil
	case "medium", "media":
		return Medium, nil
	case "hard", "dificil":
		return Hard, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, raw)
}

// UnmarshalText lets stored and submitted JSON use either token set.
func (d *Difficulty) UnmarshalText(text []byte) error {
	parsed, err := ParseDifficulty(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Points is the reward for a correct answer at this tier.
func (d Difficulty) Points() int {
	switch d {
	case Easy:
		return 1
	case Medium:
		return 3
	case Hard:
		return 5
	}
	return 0
}

// Date is a calendar day in YYYY-MM-DD form. Lexicographic order matches
// chronological order.
type Date string

const dateLayout = "2006-01-02"

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

// ParseDate validates a YYYY-MM-DD string.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return "", err
	}
	return DateOf(t), nil
}

// UnmarshalText rejects stored dates that are not YYYY-MM-DD, so history
// comparisons stay lexical.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", text, err)
	}
	*d = parsed
	return nil
}

// AddDays shifts the date by n days (negative goes back). An unparsable
// date is returned unchanged.
func (d Date) AddDays(n int) Date {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return d
	}
	return DateOf(t.AddDate(0, 0, n))
}

// HistoryEntry records that a question was answered (or reserved) on a day.
type HistoryEntry struct {
	QuestionID int  `json:"id"`
	Date       Date `json:"date"`
}

// User is a student or administrator account.
type User struct {
	Email           string         `json:"email"`
	Name            string         `json:"name"`
	Role            Role           `json:"role"`
	PasswordHash    string         `json:"passwordHash,omitempty"`
	Ebcoins         int            `json:"ebcoins"`
	AnsweredHistory []HistoryEntry `json:"answeredHistory"`
	ReservedToday   []HistoryEntry `json:"reservedToday"`
}

// IsAdmin reports whether the user has the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// AnsweredOn counts history entries dated day.
func (u User) AnsweredOn(day Date) int {
	n := 0
	for _, h := range u.AnsweredHistory {
		if h.Date == day {
			n++
		}
	}
	return n
}

// HasAnswered reports whether questionID was answered on day.
func (u User) HasAnswered(questionID int, day Date) bool {
	for _, h := range u.AnsweredHistory {
		if h.QuestionID == questionID && h.Date == day {
			return true
		}
	}
	return false
}

// Profile is the user view safe to hand to clients.
type Profile struct {
	Email           string         `json:"email"`
	Name            string         `json:"name"`
	Role            Role           `json:"role"`
	Ebcoins         int            `json:"ebcoins"`
	AnsweredHistory []HistoryEntry `json:"answeredHistory"`
}

// Profile strips credentials and transient bookkeeping.
func (u User) Profile() Profile {
	return Profile{
		Email:           u.Email,
		Name:            u.Name,
		Role:            u.Role,
		Ebcoins:         u.Ebcoins,
		AnsweredHistory: u.AnsweredHistory,
	}
}

// Question is a multiple-choice question. Correct holds the option text.
type Question struct {
	ID         int        `json:"id"`
	Text       string     `json:"text"`
	Options    []string   `json:"options"`
	Correct    string     `json:"correct"`
	Difficulty Difficulty `json:"difficulty"`
}

// PublicQuestion is a question without its correct answer.
type PublicQuestion struct {
	ID         int        `json:"id"`
	Text       string     `json:"text"`
	Options    []string   `json:"options"`
	Difficulty Difficulty `json:"difficulty"`
}

// Public drops the correct answer.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:         q.ID,
		Text:       q.Text,
		Options:    q.Options,
		Difficulty: q.Difficulty,
	}
}

// AnswerSubmission is one submitted answer.
type AnswerSubmission struct {
	QuestionID int    `json:"id"`
	Answer     string `json:"answer"`
}

// ScoreResult summarizes one scoring call.
type ScoreResult struct {
	PointsEarned int `json:"pointsEarned"`
	NewBalance   int `json:"newBalance"`
}

// LeaderboardEntry is a public view of a ranked user.
type LeaderboardEntry struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Ebcoins int    `json:"ebcoins"`
}

// Standing is a user's own position on the leaderboard (1-indexed).
type Standing struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Ebcoins  int    `json:"ebcoins"`
	Position int    `json:"position"`
}

// Leaderboard is the top of the ranking plus the caller's standing.
type Leaderboard struct {
	Top       []LeaderboardEntry `json:"top"`
	Me        *Standing          `json:"me,omitempty"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
