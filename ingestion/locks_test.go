package ingestion

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLocks_SameKeySerializes(t *testing.T) {
	locks := newKeyedLocks()

	locks.lock("ns\x00doc-1")

	acquired := make(chan struct{})
	go func() {
		locks.lock("ns\x00doc-1")
		close(acquired)
		locks.unlock("ns\x00doc-1")
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first still held")
	case <-time.After(50 * time.Millisecond):
	}

	locks.unlock("ns\x00doc-1")

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired after release")
	}
}

func TestKeyedLocks_DifferentKeysProceed(t *testing.T) {
	locks := newKeyedLocks()

	locks.lock("ns\x00doc-1")
	defer locks.unlock("ns\x00doc-1")

	acquired := make(chan struct{})
	go func() {
		locks.lock("ns\x00doc-2")
		close(acquired)
		locks.unlock("ns\x00doc-2")
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("unrelated key blocked")
	}
}

func TestKeyedLocks_LockAll(t *testing.T) {
	locks := newKeyedLocks()

	t.Run("duplicates are collapsed", func(t *testing.T) {
		release := locks.lockAll("ns", []string{"a", "b", "a"})
		release()
	})

	t.Run("entries are cleaned up after release", func(t *testing.T) {
		release := locks.lockAll("ns", []string{"a", "b"})
		release()

		locks.mu.Lock()
		defer locks.mu.Unlock()
		assert.Empty(t, locks.entries)
	})

	t.Run("overlapping sets do not deadlock", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				ids := []string{"x", "y", "z"}
				if n%2 == 0 {
					ids = []string{"z", "x"}
				}
				release := locks.lockAll("ns", ids)
				time.Sleep(time.Millisecond)
				release()
			}(i)
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("lockAll deadlocked")
		}
	})
}
