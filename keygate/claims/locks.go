package claims

import (
	"context"
	"sync"
	"time"
)

// LockTable serializes claim attempts per user. Distinct users proceed
// concurrently; a second acquire for the same user fails until the
// first releases. Entries are expired by a cleanup routine in case a
// handler never released (panic, lost goroutine).
type LockTable struct {
	active       sync.Map // userID -> acquired time.Time
	lockDuration time.Duration
}

func NewLockTable(lockDuration time.Duration) *LockTable {
	return &LockTable{lockDuration: lockDuration}
}

func (t *LockTable) Acquire(userID int64) bool {
	_, loaded := t.active.LoadOrStore(userID, time.Now())
	return !loaded
}

func (t *LockTable) Release(userID int64) {
	t.active.Delete(userID)
}

func (t *LockTable) cleanupExpired() {
	now := time.Now()
	t.active.Range(func(key, value interface{}) bool {
		if now.Sub(value.(time.Time)) > t.lockDuration {
			t.active.Delete(key)
		}
		return true
	})
}

func (t *LockTable) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.cleanupExpired()
			}
		}
	}()
}
