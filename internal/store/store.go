// Package store defines the persistence contract for chat messages and
// provides the SQLite-backed implementation.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iPrq/RealChatApp/internal/chat"
)

var (
	// ErrUnavailable indicates the backing durable medium cannot be reached.
	ErrUnavailable = errors.New("message store unavailable")
	// ErrInvalidMessage indicates a message is missing a required field.
	ErrInvalidMessage = errors.New("invalid message")
)

// MessageStore persists chat messages. Messages are append-only: once
// inserted they are never updated or deleted.
type MessageStore interface {
	// Insert persists a message, assigning an identifier if the input
	// carries none, and returns the stored form.
	Insert(ctx context.Context, msg chat.Message) (chat.Message, error)
	// ListAll returns every persisted message in insertion order,
	// earliest first. An empty store yields an empty slice, not an error.
	ListAll(ctx context.Context) ([]chat.Message, error)
	// Ping reports whether the backing medium is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// ValidateMessage checks the fields required for persistence.
func ValidateMessage(msg chat.Message) error {
	if strings.TrimSpace(msg.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidMessage)
	}
	if strings.TrimSpace(msg.Sender) == "" {
		return fmt.Errorf("%w: sender is required", ErrInvalidMessage)
	}
	return nil
}
