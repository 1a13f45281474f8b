package reflection

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNoGenerator       = errors.New("reflection: generator is required")
	ErrNoCritic          = errors.New("reflection: critic is required")
	ErrNegativeRounds    = errors.New("reflection: max rounds must not be negative")
	ErrTerminated        = errors.New("reflection: conversation already terminated")
	ErrEmptyCompletion   = errors.New("reflection: model returned no content")
	ErrEmptyConversation = errors.New("reflection: no turns to reflect on")
	ErrUnknownNode       = errors.New("reflection: unknown node")
)

// GenerationFailure means the generate call did not return usable content.
type GenerationFailure struct {
	SessionID uuid.UUID
	Round     int
	Err       error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("generation failed in session %s round %d: %v", e.SessionID, e.Round, e.Err)
}

func (e *GenerationFailure) Unwrap() error {
	return e.Err
}

// CritiqueFailure means the critique call did not return usable content.
type CritiqueFailure struct {
	SessionID uuid.UUID
	Round     int
	Err       error
}

func (e *CritiqueFailure) Error() string {
	return fmt.Sprintf("critique failed in session %s round %d: %v", e.SessionID, e.Round, e.Err)
}

func (e *CritiqueFailure) Unwrap() error {
	return e.Err
}
