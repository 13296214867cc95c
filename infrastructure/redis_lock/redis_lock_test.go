package redis_lock

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"saga-orchestrator/utils/helpers"
)

// testLocker connects to SAGA_TEST_REDIS_ADDR; the test is skipped without it.
func testLocker(t *testing.T, ttl time.Duration) *Locker {
	addr := os.Getenv("SAGA_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SAGA_TEST_REDIS_ADDR not set")
	}
	client, err := NewClient(context.Background(), addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client, ttl, zaptest.NewLogger(t))
}

func TestLocker_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()
	l := NewLocker(client, 0, zaptest.NewLogger(t))
	assert.Equal(t, 30*time.Second, l.ttl)

	_, err := l.Lock(context.Background(), "saga:DEP-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis lock lock:saga:DEP-1")
}

func TestLocker_MutualExclusion(t *testing.T) {
	l := testLocker(t, 5*time.Second)
	key := "saga:" + helpers.GetUUId()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), key)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestLocker_WaitHonoursContext(t *testing.T) {
	l := testLocker(t, 5*time.Second)
	key := "saga:" + helpers.GetUUId()
	unlock, err := l.Lock(context.Background(), key)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, key)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}
