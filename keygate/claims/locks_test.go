package claims

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLockTable_SameUserSerialized(t *testing.T) {
	locks := NewLockTable(time.Minute)

	if !locks.Acquire(1) {
		t.Fatal("first acquire should succeed")
	}
	if locks.Acquire(1) {
		t.Error("second acquire for the same user should fail")
	}
	locks.Release(1)
	if !locks.Acquire(1) {
		t.Error("acquire after release should succeed")
	}
}

func TestLockTable_DistinctUsersIndependent(t *testing.T) {
	locks := NewLockTable(time.Minute)

	if !locks.Acquire(1) || !locks.Acquire(2) {
		t.Fatal("distinct users must not block each other")
	}
}

func TestLockTable_ConcurrentAcquireSingleWinner(t *testing.T) {
	locks := NewLockTable(time.Minute)

	var wg sync.WaitGroup
	var wins int64
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if locks.Acquire(1) {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("winners = %d, want exactly 1", wins)
	}
}

func TestLockTable_CleanupKeepsInFlightLocks(t *testing.T) {
	locks := NewLockTable(time.Minute)

	if !locks.Acquire(1) {
		t.Fatal("first acquire should succeed")
	}
	locks.cleanupExpired()

	if locks.Acquire(1) {
		t.Error("cleanup reaped a lock younger than its duration; a double-tap could claim twice")
	}
}

func TestLockTable_CleanupExpiresStaleLocks(t *testing.T) {
	locks := NewLockTable(time.Millisecond)

	if !locks.Acquire(1) {
		t.Fatal("first acquire should succeed")
	}
	time.Sleep(5 * time.Millisecond)
	locks.cleanupExpired()

	if !locks.Acquire(1) {
		t.Error("acquire after expiry cleanup should succeed")
	}
}
