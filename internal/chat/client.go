package chat

import (
	"context"
	"errors"
)

// Roles in a model context window.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one role/content pair sent to the model endpoint.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

var (
	// ErrUpstream is returned when the model endpoint cannot be reached or
	// responds with an error.
	ErrUpstream = errors.New("upstream model error")
	// ErrEmptyReply is returned when the endpoint answers but carries no content.
	ErrEmptyReply = errors.New("upstream returned no content")
)

// ModelClient is the injected model endpoint capability: context in, reply
// out. Implementations must honor ctx cancellation. maxTokens <= 0 means
// no response-length cap.
type ModelClient interface {
	Complete(ctx context.Context, messages []ChatMessage, temperature float32, maxTokens int) (string, error)
}
