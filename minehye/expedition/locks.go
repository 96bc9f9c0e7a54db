package expedition

import (
	"context"
	"sync"
	"time"

	"github.com/ellavondegurechaff/minehye/minehye/config"
)

// LockManager serializes dispatches per account so two concurrent commands
// cannot both pass the busy check and double-dispatch the same party. Locks
// carry an expiry so a crashed holder never wedges the account.
type LockManager struct {
	locks        sync.Map // userID -> expiry time.Time
	lockDuration time.Duration
}

func NewLockManager() *LockManager {
	return &LockManager{
		lockDuration: config.DispatchLockDuration,
	}
}

// Acquire takes the dispatch lock for the account. Returns false when another
// dispatch currently holds it.
func (m *LockManager) Acquire(userID string) bool {
	now := time.Now()
	expiry := now.Add(m.lockDuration)

	if prev, loaded := m.locks.LoadOrStore(userID, expiry); loaded {
		if now.Before(prev.(time.Time)) {
			return false
		}
		// Holder expired; take over.
		m.locks.Store(userID, expiry)
	}
	return true
}

// Release drops the account's dispatch lock.
func (m *LockManager) Release(userID string) {
	m.locks.Delete(userID)
}

// Held reports whether the account currently holds an unexpired lock.
func (m *LockManager) Held(userID string) bool {
	v, ok := m.locks.Load(userID)
	return ok && time.Now().Before(v.(time.Time))
}

func (m *LockManager) cleanupExpiredLocks() {
	now := time.Now()
	m.locks.Range(func(key, value interface{}) bool {
		if now.After(value.(time.Time)) {
			m.locks.Delete(key)
		}
		return true
	})
}

// StartCleanupRoutine reaps expired locks until the context is cancelled.
func (m *LockManager) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.cleanupExpiredLocks()
			}
		}
	}()
}
