package keylock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyLock_SerialisesSameKey(t *testing.T) {
	kl := New()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := kl.Lock(context.Background(), "saga-1")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, kl.Len())
}

func TestKeyLock_DifferentKeysDoNotBlock(t *testing.T) {
	kl := New()
	unlockA, err := kl.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := kl.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestKeyLock_ContextCancelled(t *testing.T) {
	kl := New()
	unlock, err := kl.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = kl.Lock(ctx, "a")
	assert.Equal(t, context.DeadlineExceeded, err)

	unlock()
	unlock()
	assert.Equal(t, 0, kl.Len())
}
