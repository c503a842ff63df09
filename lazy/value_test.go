package lazy

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadBeforePublish(t *testing.T) {
	var v Value[int]
	got, ok := v.Load()
	require.False(t, ok)
	require.Equal(t, 0, got)
}

func TestPublishOnce(t *testing.T) {
	var v Value[string]
	require.Equal(t, "first", v.Publish("first"))
	require.Equal(t, "first", v.Publish("second"))
	got, ok := v.Load()
	require.True(t, ok)
	require.Equal(t, "first", got)
}

func TestZeroValueDistinctFromUnset(t *testing.T) {
	var v Value[int64]
	_, ok := v.Load()
	require.False(t, ok)
	require.Equal(t, int64(0), v.Publish(0))
	got, ok := v.Load()
	require.True(t, ok)
	require.Equal(t, int64(0), got)
}

func TestConcurrentPublishConverges(t *testing.T) {
	var v Value[int]
	const n = 32
	results := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = v.Publish(i + 1)
		}(i)
	}
	wg.Wait()
	winner, ok := v.Load()
	require.True(t, ok)
	for i := 0; i < n; i++ {
		require.Equal(t, winner, results[i])
	}
}
