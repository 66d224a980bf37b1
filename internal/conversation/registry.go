package conversation

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"

	"github.com/Zachkp/folio/internal/metrics"
	"github.com/Zachkp/folio/internal/storage"
)

// Registry keeps the widgets of recently active sessions in memory. A widget
// evicted from the registry saves any pending reply and is retired; its
// persisted state is rehydrated on the session's next request.
type Registry struct {
	mu       sync.Mutex
	cache    *lru.Cache
	kv       storage.Store
	resolver Resolver
	opts     Options
	log      zerolog.Logger
}

// NewRegistry holds at most size widgets.
func NewRegistry(size int, kv storage.Store, resolver Resolver, opts Options, log zerolog.Logger) (*Registry, error) {
	r := &Registry{
		kv:       kv,
		resolver: resolver,
		opts:     opts,
		log:      log.With().Str("component", "chat-registry").Logger(),
	}
	cache, err := lru.NewWithEvict(size, r.onEvict)
	if err != nil {
		return nil, fmt.Errorf("creating widget cache: %w", err)
	}
	r.cache = cache
	return r, nil
}

func (r *Registry) onEvict(key, value interface{}) {
	if w, ok := value.(*Widget); ok {
		w.Evict()
	}
	metrics.ActiveWidgets.Dec()
	r.log.Debug().Interface("session", key).Msg("widget evicted")
}

// Get returns the widget for sessionID, loading it from storage on first use.
func (r *Registry) Get(ctx context.Context, sessionID string) *Widget {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.cache.Get(sessionID); ok {
		return v.(*Widget)
	}

	kv := storage.WithPrefix(r.kv, storage.SessionPrefix(sessionID))
	w := NewWidget(ctx, kv, r.resolver, r.opts, r.log.With().Str("session", sessionID).Logger())
	r.cache.Add(sessionID, w)
	metrics.ActiveWidgets.Inc()
	return w
}

// Len reports how many widgets are held.
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Close evicts every widget, saving pending replies.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Purge()
}
