package domain

import "errors"

var (
	// ErrUnknownWord is returned when a word id is not present in the catalog.
	ErrUnknownWord = errors.New("unknown word")
	// ErrUnknownTier is returned when a tier id is not present in the catalog.
	ErrUnknownTier = errors.New("unknown tier")
	// ErrInvalidTier indicates an acknowledgment for a tier that does not require one.
	ErrInvalidTier = errors.New("tier does not require cultural acknowledgment")
	// ErrTierLocked is returned when a tier is selected before its requirements are met.
	ErrTierLocked = errors.New("tier locked")
	// ErrInvalidCatalog indicates the reference data failed validation at load time.
	ErrInvalidCatalog = errors.New("invalid catalog")

	// ErrInsufficientPool is returned when a quiz cannot be built from the given words.
	ErrInsufficientPool = errors.New("insufficient word pool for quiz")
	// ErrAlreadyAnswered is returned when the current question already has an answer.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrNotYetAnswered is returned when advancing past an unanswered question.
	ErrNotYetAnswered = errors.New("question not yet answered")
	// ErrAlreadyCompleted is returned when acting on a finished quiz.
	ErrAlreadyCompleted = errors.New("quiz already completed")
	// ErrQuizNotCompleted is returned when a report is requested before the last question.
	ErrQuizNotCompleted = errors.New("quiz not yet completed")
	// ErrSessionNotFound is returned when a quiz session does not exist or was abandoned.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionOwner is returned when a user acts on another user's quiz session.
	ErrSessionOwner = errors.New("quiz session belongs to another user")
)
