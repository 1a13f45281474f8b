package provider

import (
	"context"

	"github.com/casualjim/ruminate/messages"
	"github.com/google/uuid"
)

// Provider defines the interface for model backends (e.g. OpenAI).
type Provider interface {
	ChatCompletion(context.Context, CompletionParams) (<-chan StreamEvent, error)
}

// CompletionParams holds everything needed for one chat completion.
type CompletionParams struct {
	// RunID identifies the request in the events it produces.
	RunID uuid.UUID

	// Instructions are sent as the system prompt when not empty.
	Instructions string

	// Turns is the conversation, oldest first.
	Turns []messages.Turn

	// Stream requests incremental Chunk events before the Response.
	Stream bool

	// Model names the model to use and the provider serving it.
	Model interface {
		Name() string
		Provider() Provider
	}

	// Prevents unkeyed literals
	_ struct{}
}
