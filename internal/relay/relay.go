// Package relay orchestrates the publish path (validate, persist, broadcast)
// and the read path (full message history) of the chat service.
package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iPrq/RealChatApp/internal/broker"
	"github.com/iPrq/RealChatApp/internal/chat"
	"github.com/iPrq/RealChatApp/internal/store"
)

// BroadcastTopic is the single well-known topic every connected client
// subscribes to.
const BroadcastTopic = "messages"

// Relay accepts inbound chat messages, persists them, and publishes the
// stored form to the broadcast topic. It holds no per-call state; ordering
// and membership live in the store and the topic.
type Relay struct {
	store store.MessageStore
	topic *broker.Topic
	log   zerolog.Logger
}

// NewRelay wires a relay to its store and broadcast topic.
func NewRelay(st store.MessageStore, topic *broker.Topic, log zerolog.Logger) *Relay {
	return &Relay{
		store: st,
		topic: topic,
		log:   log.With().Str("component", "relay").Logger(),
	}
}

// Execute runs the publish path for one message: validate, persist, then
// fan out the stored (identifier-bearing) message. A validation or storage
// failure aborts before any broadcast; the sender only ever hears an
// accepted message back through the same fan-out as everyone else.
func (r *Relay) Execute(ctx context.Context, msg chat.Message) (chat.Message, error) {
	if err := store.ValidateMessage(msg); err != nil {
		return chat.Message{}, err
	}

	stored, err := r.store.Insert(ctx, msg)
	if err != nil {
		return chat.Message{}, fmt.Errorf("persist message: %w", err)
	}

	payload, err := json.Marshal(stored)
	if err != nil {
		// The message is durable at this point; only the fan-out is lost.
		return stored, fmt.Errorf("encode message %s: %w", stored.ID, err)
	}

	delivered := r.topic.Publish(BroadcastTopic, payload)
	r.log.Debug().
		Str("id", stored.ID).
		Str("sender", stored.Sender).
		Int("roomid", stored.RoomID).
		Int("delivered", delivered).
		Msg("message relayed")

	return stored, nil
}
