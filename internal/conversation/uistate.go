package conversation

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/Zachkp/folio/internal/storage"
)

// OpenKey is the storage key for the widget flag, stored as "true" or "false".
const OpenKey = "chatbot-open"

// UIState is the persisted open/closed flag of the chat widget.
type UIState struct {
	kv   storage.Store
	open bool
}

// LoadUIState reads the widget flag from kv. Anything but "true" is closed.
func LoadUIState(ctx context.Context, kv storage.Store, log zerolog.Logger) *UIState {
	u := &UIState{kv: kv}
	raw, ok, err := kv.Get(ctx, OpenKey)
	if err != nil {
		log.Warn().Err(err).Str("key", OpenKey).Msg("reading widget state, defaulting to closed")
		return u
	}
	u.open = ok && raw == "true"
	return u
}

// IsOpen reports whether the widget is open.
func (u *UIState) IsOpen() bool {
	return u.open
}

// Open opens the widget.
func (u *UIState) Open(ctx context.Context) error {
	return u.set(ctx, true)
}

// Close closes the widget.
func (u *UIState) Close(ctx context.Context) error {
	return u.set(ctx, false)
}

// Toggle flips the flag and returns the new value.
func (u *UIState) Toggle(ctx context.Context) (bool, error) {
	next := !u.open
	if err := u.set(ctx, next); err != nil {
		return u.open, err
	}
	return next, nil
}

func (u *UIState) set(ctx context.Context, open bool) error {
	if err := u.kv.Set(ctx, OpenKey, strconv.FormatBool(open)); err != nil {
		return fmt.Errorf("persisting widget state: %w", err)
	}
	u.open = open
	return nil
}
