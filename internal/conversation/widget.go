package conversation

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Zachkp/folio/internal/chatbot"
	"github.com/Zachkp/folio/internal/metrics"
	"github.com/Zachkp/folio/internal/storage"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrUnmounted    = errors.New("widget is unmounted")
)

// Resolver picks the topic answering a question.
type Resolver interface {
	Match(input string) (chatbot.Topic, bool)
}

// Options tune a widget. Zero values fall back to the site defaults.
type Options struct {
	Greeting string
	// Delay returns how long the bot "types" before its reply appears.
	Delay func() time.Duration
	Now   func() time.Time
	// OnResolve is called once per user message with the matched topic.
	OnResolve func(ctx context.Context, topicID string, matched bool)
}

// RandomDelay returns base plus a uniformly random jitter in [0, jitter).
func RandomDelay(base, jitter time.Duration) func() time.Duration {
	return func() time.Duration {
		if jitter <= 0 {
			return base
		}
		return base + rand.N(jitter)
	}
}

// State is a snapshot of a widget for rendering.
type State struct {
	Open     bool      `json:"open"`
	Typing   bool      `json:"typing"`
	Messages []Message `json:"messages"`
}

type pendingReply struct {
	timer *time.Timer
	reply string
}

// Widget is one visitor's chat: history, open flag and at most one pending
// bot reply. All methods are safe for concurrent use.
type Widget struct {
	mu        sync.Mutex
	resolver  Resolver
	store     *Store
	ui        *UIState
	opts      Options
	log       zerolog.Logger
	pending   *pendingReply
	unmounted bool
}

// NewWidget loads a widget's persisted state from kv.
func NewWidget(ctx context.Context, kv storage.Store, resolver Resolver, opts Options, log zerolog.Logger) *Widget {
	if opts.Greeting == "" {
		opts.Greeting = DefaultGreeting
	}
	if opts.Delay == nil {
		opts.Delay = RandomDelay(600*time.Millisecond, 900*time.Millisecond)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Widget{
		resolver: resolver,
		store:    LoadStore(ctx, kv, opts.Greeting, opts.Now(), log),
		ui:       LoadUIState(ctx, kv, log),
		opts:     opts,
		log:      log,
	}
}

// Send records a user message and schedules the bot's reply. The reply is
// resolved immediately but only appended once the typing delay elapses.
// A reply still pending from an earlier message is appended first.
func (w *Widget) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.unmounted {
		return ErrUnmounted
	}
	if err := w.flushLocked(ctx); err != nil {
		return err
	}

	if err := w.store.Append(ctx, NewMessage(RoleUser, text, w.opts.Now())); err != nil {
		return err
	}

	reply := chatbot.Fallback
	topic, matched := w.resolver.Match(text)
	if matched {
		reply = topic.Response
	}
	w.recordResolution(ctx, topic.ID, matched)

	p := &pendingReply{reply: reply}
	p.timer = time.AfterFunc(w.opts.Delay(), func() { w.deliver(p) })
	w.pending = p
	return nil
}

func (w *Widget) recordResolution(ctx context.Context, topicID string, matched bool) {
	outcome := "resolved"
	if !matched {
		topicID, outcome = chatbot.FallbackTopicID, "fallback"
	}
	metrics.RecordResolution(topicID, outcome)
	if w.opts.OnResolve != nil {
		w.opts.OnResolve(ctx, topicID, matched)
	}
}

func (w *Widget) deliver(p *pendingReply) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Cancelled, flushed or superseded.
	if w.pending != p {
		return
	}
	w.pending = nil
	if err := w.store.Append(context.Background(), NewMessage(RoleBot, p.reply, w.opts.Now())); err != nil {
		w.log.Error().Err(err).Msg("appending bot reply")
	}
}

// Flush appends a pending reply immediately.
func (w *Widget) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked(ctx)
}

func (w *Widget) flushLocked(ctx context.Context) error {
	p := w.pending
	if p == nil {
		return nil
	}
	p.timer.Stop()
	w.pending = nil
	return w.store.Append(ctx, NewMessage(RoleBot, p.reply, w.opts.Now()))
}

func (w *Widget) cancelLocked() {
	if w.pending == nil {
		return
	}
	w.pending.timer.Stop()
	w.pending = nil
	metrics.ChatbotRepliesDiscarded.Inc()
}

// Open opens the widget.
func (w *Widget) Open(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ui.Open(ctx)
}

// Close closes the widget and drops any reply that has not appeared yet.
func (w *Widget) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelLocked()
	return w.ui.Close(ctx)
}

// Toggle flips the widget and returns whether it is now open. Closing drops
// a pending reply like Close does.
func (w *Widget) Toggle(ctx context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ui.IsOpen() {
		w.cancelLocked()
	}
	return w.ui.Toggle(ctx)
}

// Unmount stops pending timers. The widget rejects further messages.
func (w *Widget) Unmount() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancelLocked()
	w.unmounted = true
}

// Evict retires a widget the server no longer keeps in memory. Unlike
// Unmount, a pending reply is appended first: the visitor is still waiting
// for it and will see it when the widget is rehydrated.
func (w *Widget) Evict() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.flushLocked(context.Background()); err != nil {
		w.log.Error().Err(err).Msg("saving pending reply on eviction")
	}
	w.unmounted = true
}

// Typing reports whether a bot reply is pending.
func (w *Widget) Typing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending != nil
}

// Messages returns the conversation history.
func (w *Widget) Messages() []Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.All()
}

// Snapshot returns the widget state for rendering.
func (w *Widget) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		Open:     w.ui.IsOpen(),
		Typing:   w.pending != nil,
		Messages: w.store.All(),
	}
}
