package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Transport maps each kind to a status code; concrete errors wrap one of them.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("already exists")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

var (
	ErrUserNotFound        = NotFound("User not found")
	ErrCategoryNotFound    = NotFound("Category not found")
	ErrTagNotFound         = NotFound("Tag not found")
	ErrQuizNotFound        = NotFound("Quiz not found")
	ErrQuestionNotFound    = NotFound("Question not found")
	ErrAttemptNotFound     = NotFound("Quiz attempt not found")
	ErrAchievementNotFound = NotFound("Achievement not found")
	ErrLeaderboardNotFound = NotFound("Leaderboard not found")
	ErrEntryNotFound       = NotFound("User not found on this leaderboard")

	ErrAttemptNotInProgress = Invalid("Cannot submit answers to a completed quiz")
	ErrAttemptExpired       = Invalid("Time limit exceeded for this attempt")
	ErrAttemptActive        = Conflict("An attempt for this quiz is already in progress")
	ErrInvalidAnswerID      = Invalid("Invalid answer ID")
	ErrNotQuizAuthor        = Forbidden("Only the quiz author can modify this quiz")
	ErrNotAttemptOwner      = Forbidden("You do not have access to this attempt")
)

// RuleError is a business-rule violation carrying a client-facing message.
type RuleError struct {
	Kind    error
	Message string
}

func (e *RuleError) Error() string { return e.Message }

func (e *RuleError) Unwrap() error { return e.Kind }

func NotFound(msg string) error { return &RuleError{Kind: ErrNotFound, Message: msg} }

func Conflict(msg string) error { return &RuleError{Kind: ErrConflict, Message: msg} }

func Forbidden(msg string) error { return &RuleError{Kind: ErrForbidden, Message: msg} }

func Unauthorized(msg string) error { return &RuleError{Kind: ErrUnauthorized, Message: msg} }

func Invalid(msg string) error { return &RuleError{Kind: ErrInvalidInput, Message: msg} }

func Invalidf(format string, args ...any) error {
	return &RuleError{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}
