package memory

import (
	"context"
	"sync"
	"time"
)

// LockManager hands out named locks that expire on their own. The report
// service takes one per user around its rate-limit check and write, so two
// concurrent submissions from the same user cannot both pass the check.
//
// This version only covers a single instance. Several instances sharing a
// store would need the equivalent of Redis `SET key value NX PX ttl`.
//
// Go Learning Note — Channels for Signaling:
// `stop` is a `chan struct{}` used purely for signaling: close(stop) wakes
// the cleanup goroutine, which closes `done` on its way out so Stop can wait
// for it.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]time.Time // key → expiry

	now      func() time.Time
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewLockManager creates a LockManager. A positive cleanupInterval starts a
// goroutine that forgets expired locks; call Stop to end it. Expired locks
// are treated as free either way.
func NewLockManager(cleanupInterval time.Duration) *LockManager {
	lm := &LockManager{
		locks: make(map[string]time.Time),
		now:   time.Now,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go lm.cleanupLoop(cleanupInterval)
	} else {
		close(lm.done)
	}
	return lm
}

// AcquireLock takes key for ttl. It returns false, without waiting, while
// another holder's lock on key has not expired.
func (lm *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	now := lm.now()
	if expiresAt, held := lm.locks[key]; held && now.Before(expiresAt) {
		return false, nil
	}
	lm.locks[key] = now.Add(ttl)
	return true, nil
}

// ReleaseLock frees key before its TTL runs out. Releasing a free key is a
// no-op.
func (lm *LockManager) ReleaseLock(ctx context.Context, key string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	delete(lm.locks, key)
	return nil
}

// IsLocked reports whether key is held and not expired.
func (lm *LockManager) IsLocked(ctx context.Context, key string) (bool, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	expiresAt, held := lm.locks[key]
	return held && lm.now().Before(expiresAt), nil
}

// Go Learning Note — Safe Map Deletion During Iteration:
// Deleting map keys inside a for-range over the same map is allowed; the
// language guarantees removed entries are simply not visited.
func (lm *LockManager) cleanupLoop(interval time.Duration) {
	defer close(lm.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lm.mu.Lock()
			now := lm.now()
			for key, expiresAt := range lm.locks {
				if !now.Before(expiresAt) {
					delete(lm.locks, key)
				}
			}
			lm.mu.Unlock()
		case <-lm.stop:
			return
		}
	}
}

// Stop ends the cleanup goroutine and waits for it. Safe to call twice.
func (lm *LockManager) Stop() {
	lm.stopOnce.Do(func() { close(lm.stop) })
	<-lm.done
}
