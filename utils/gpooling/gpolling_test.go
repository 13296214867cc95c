package gpooling

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPool_Submit(t *testing.T) {
	pool, err := NewPooling(4, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer pool.Release()

	var wg sync.WaitGroup
	var done int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(func() {
			defer wg.Done()
			atomic.AddInt32(&done, 1)
		}))
	}
	wg.Wait()
	assert.Equal(t, int32(20), atomic.LoadInt32(&done))
}

func TestPool_PanicIsRecovered(t *testing.T) {
	pool, err := NewPooling(2, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer pool.Release()

	var wg sync.WaitGroup
	wg.Add(2)
	require.NoError(t, pool.Submit(func() {
		defer wg.Done()
		panic("boom")
	}))
	var ran bool
	require.NoError(t, pool.Submit(func() {
		defer wg.Done()
		ran = true
	}))
	wg.Wait()
	assert.True(t, ran)
}

func TestPool_SubmitAfterRelease(t *testing.T) {
	pool, err := NewPooling(1, zaptest.NewLogger(t))
	require.NoError(t, err)
	pool.Release()
	assert.Error(t, pool.Submit(func() {}))
}
