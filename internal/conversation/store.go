package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Zachkp/folio/internal/storage"
)

// MessagesKey is the storage key holding the JSON message array.
const MessagesKey = "chatbot-messages"

// DefaultGreeting seeds a conversation that has no stored history.
const DefaultGreeting = "Hi! I'm Alex's assistant. Ask me about skills, projects, experience, or how to get in touch."

// ErrHistoryUnavailable is returned by Append while stored history cannot be read.
var ErrHistoryUnavailable = errors.New("chat history unavailable")

// Store is the ordered message history of one conversation. Every append
// rewrites the whole history to storage before returning.
type Store struct {
	kv       storage.Store
	log      zerolog.Logger
	greeting Message
	messages []Message
	// stale is set when the stored history could not be read; appends are
	// refused until a reload succeeds so the saved history is never overwritten.
	stale bool
}

// LoadStore rehydrates a conversation from kv. Missing, empty or malformed
// history falls back to a single greeting from the bot; loading never fails.
// If kv cannot be read, the greeting is shown but nothing is written until the
// history can be loaded.
func LoadStore(ctx context.Context, kv storage.Store, greeting string, now time.Time, log zerolog.Logger) *Store {
	s := &Store{kv: kv, log: log, greeting: NewMessage(RoleBot, greeting, now)}
	if err := s.load(ctx); err != nil {
		log.Warn().Err(err).Str("key", MessagesKey).Msg("chat history unreadable, holding writes")
		s.messages = []Message{s.greeting}
		s.stale = true
	}
	return s
}

func (s *Store) load(ctx context.Context) error {
	var stored []Message
	found, err := storage.GetJSON(ctx, s.kv, MessagesKey, &stored)
	switch {
	case errors.Is(err, storage.ErrDecode):
		s.log.Warn().Err(err).Str("key", MessagesKey).Msg("discarding malformed chat history")
	case err != nil:
		return err
	case found && len(stored) > 0:
		s.messages = stored
		return nil
	}
	s.messages = []Message{s.greeting}
	return nil
}

// Append adds m to the end of the history and persists the full sequence.
// On a storage error the history is left unchanged.
func (s *Store) Append(ctx context.Context, m Message) error {
	if s.stale {
		if err := s.load(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrHistoryUnavailable, err)
		}
		s.stale = false
	}

	next := make([]Message, len(s.messages), len(s.messages)+1)
	copy(next, s.messages)
	next = append(next, m)

	if err := storage.SetJSON(ctx, s.kv, MessagesKey, next); err != nil {
		return fmt.Errorf("persisting chat history: %w", err)
	}
	s.messages = next
	return nil
}

// All returns a copy of the history in chronological order.
func (s *Store) All() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len reports the number of messages.
func (s *Store) Len() int {
	return len(s.messages)
}
