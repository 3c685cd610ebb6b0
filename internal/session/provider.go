package session

import (
	"context"
	"net/http"
	"sync"

	"github.com/smartkrishi/smartkrishi-go/internal/storage"
)

type contextKey string

const storeKey contextKey = "session"

// Provider wires one Store into the HTTP handlers of the application and
// keeps it subscribed to changes made by other clients sharing the storage.
type Provider struct {
	store    *Store
	notifier storage.Notifier

	mu   sync.Mutex
	stop func()
}

// NewProvider returns a provider for store fed by n.
func NewProvider(store *Store, n storage.Notifier) *Provider {
	if n == nil {
		n = storage.NopNotifier{}
	}
	return &Provider{store: store, notifier: n}
}

// Start subscribes the store and then loads it, so that no change made
// between the two steps is lost. Calling Start again has no effect until
// Close.
func (p *Provider) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop == nil {
		p.stop = p.store.Watch(p.notifier)
	}
	p.store.Initialize()
}

// Close stops following storage changes.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop != nil {
		p.stop()
		p.stop = nil
	}
}

// Store returns the provided store.
func (p *Provider) Store() *Store {
	return p.store
}

// Middleware makes the store available to every handler via FromContext.
func (p *Provider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), p.store)))
	})
}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, storeKey, s)
}

// FromContext returns the store carried by ctx.
func FromContext(ctx context.Context) (*Store, bool) {
	s, ok := ctx.Value(storeKey).(*Store)
	return s, ok && s != nil
}
