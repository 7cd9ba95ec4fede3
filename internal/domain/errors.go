package domain

import "errors"

var (
	// ErrUnknownUser is returned when no user matches the given email.
	ErrUnknownUser = errors.New("user not found")
	// ErrQuotaExceeded is returned when the user already answered the daily limit.
	ErrQuotaExceeded = errors.New("you already answered your questions for today")
	// ErrNoQuestionsAvailable indicates every question was answered within the exclusion window.
	ErrNoQuestionsAvailable = errors.New("no questions available (all answered in the last 30 days)")
	// ErrInvalidRequest indicates malformed input, e.g. a missing answer list.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrForbidden is returned when a non-admin calls an admin operation.
	ErrForbidden = errors.New("access denied")
	// ErrInvalidCredentials is returned when a login fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when creating a user with an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrQuestionNotFound indicates an unknown question id on update.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidDifficulty indicates a difficulty outside easy/medium/hard.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
)
