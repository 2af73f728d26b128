package memory

import (
	"context"
	"sync"
	"time"

	"github.com/lunabets/fairydust/internal/domain"
)

// LockManager implements domain.LockManager with in-process state. It serves
// the "memory" driver and tests; multi-instance deployments use the Redis
// lock manager instead.
type LockManager struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLockManager creates an empty LockManager.
func NewLockManager() *LockManager {
	return &LockManager{held: make(map[string]struct{})}
}

// Acquire obtains the lock for key, or returns domain.ErrLockHeld. The TTL
// is a safety net against leaked locks; the unlock function is the normal
// release path and is safe to call more than once.
func (lm *LockManager) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if _, ok := lm.held[key]; ok {
		return nil, domain.ErrLockHeld
	}
	lm.held[key] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			lm.mu.Lock()
			delete(lm.held, key)
			lm.mu.Unlock()
		})
	}

	if ttl > 0 {
		timer := time.AfterFunc(ttl, release)
		return func() {
			timer.Stop()
			release()
		}, nil
	}
	return release, nil
}

// Compile-time interface check.
var _ domain.LockManager = (*LockManager)(nil)
