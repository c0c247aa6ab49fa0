package relay

import (
	"context"

	"github.com/iPrq/RealChatApp/internal/chat"
	"github.com/iPrq/RealChatApp/internal/store"
)

// History serves the full ordered message log. It is a read-only facade
// over the store; late joiners call it to backfill since the broadcast
// topic performs no catch-up.
type History struct {
	store store.MessageStore
}

// NewHistory wires a history service to its store.
func NewHistory(st store.MessageStore) *History {
	return &History{store: st}
}

// GetHistory returns every stored message in insertion order. Store
// failures propagate unchanged.
func (h *History) GetHistory(ctx context.Context) ([]chat.Message, error) {
	return h.store.ListAll(ctx)
}
