// Package confirm tracks pending wager confirmations. Each staged wager
// registers a token; the presentation layer settles it with a confirm or
// cancel signal, delivered in-process or relayed over the signal bus.
package confirm

import (
	"sync"

	"github.com/lunabets/fairydust/internal/domain"
)

// Registry holds the channels for in-flight confirmations, keyed by token.
// One channel per pending request; nothing blocks across requests.
type Registry struct {
	mu      sync.Mutex
	pending map[string]chan domain.SignalAction
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{pending: make(map[string]chan domain.SignalAction)}
}

// Register creates the wait channel for a token. The caller must Remove the
// token when the wait concludes, whatever the outcome.
func (r *Registry) Register(token string) <-chan domain.SignalAction {
	ch := make(chan domain.SignalAction, 1)
	r.mu.Lock()
	r.pending[token] = ch
	r.mu.Unlock()
	return ch
}

// Resolve delivers a signal to the pending wait for token. It reports false
// when the token is unknown or already settled; duplicate signals for the
// same token are dropped.
func (r *Registry) Resolve(token string, action domain.SignalAction) bool {
	r.mu.Lock()
	ch, ok := r.pending[token]
	if ok {
		delete(r.pending, token)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	ch <- action
	return true
}

// Remove discards a pending token without delivering a signal. Safe to call
// for tokens that were already resolved.
func (r *Registry) Remove(token string) {
	r.mu.Lock()
	delete(r.pending, token)
	r.mu.Unlock()
}

// Len returns the number of in-flight confirmations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
