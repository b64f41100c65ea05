package ctxsync_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vinicius-lino-figueiredo/polodb/pkg/ctxsync"
)

// Only one of many goroutines should be able to acquire the same lock.
func TestTryLockContended(t *testing.T) {
	workers := 200
	var acquired atomic.Int64
	mu := ctxsync.NewMutex()

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			if mu.TryLock() {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), acquired.Load())
}

func TestTryLock(t *testing.T) {
	mu := ctxsync.NewMutex()
	assert.True(t, mu.TryLock())
	assert.False(t, mu.TryLock())
	mu.Unlock()
	assert.True(t, mu.TryLock())
	mu.Unlock()
}

func TestUnlockUnlocked(t *testing.T) {
	mu := ctxsync.NewMutex()
	assert.Panics(t, mu.Unlock)
}
