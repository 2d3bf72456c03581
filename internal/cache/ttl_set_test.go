package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTLSet_AddContains_NoExpiry(t *testing.T) {
	s := NewTTLSet[string](Options{})
	s.Add("a", time.Time{})
	require.True(t, s.Contains("a"))
	require.False(t, s.Contains("b"))
	require.Equal(t, 1, s.Len())
}

func TestTTLSet_Expiry(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	s := NewTTLSet[string](Options{Now: func() time.Time { return clock }})

	s.Add("jti-1", base.Add(time.Minute))
	require.True(t, s.Contains("jti-1"))

	clock = base.Add(2 * time.Minute)
	require.False(t, s.Contains("jti-1"))
	require.Equal(t, 0, s.Len())

	s.PurgeExpired()
	require.Empty(t, s.items)
}

func TestTTLSet_AddAlreadyExpiredIsIgnored(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewTTLSet[string](Options{Now: func() time.Time { return base }})
	s.Add("old", base.Add(-time.Second))
	require.False(t, s.Contains("old"))
	require.Empty(t, s.items)
}

func TestTTLSet_Remove(t *testing.T) {
	s := NewTTLSet[int](Options{})
	s.Add(1, time.Time{})
	s.Add(2, time.Time{})
	s.Remove(1)
	require.False(t, s.Contains(1))
	require.Equal(t, 1, s.Len())
}

func TestTTLSet_Concurrent(t *testing.T) {
	s := NewTTLSet[int](Options{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for r := 0; r < 100; r++ {
				s.Add(i, time.Time{})
				_ = s.Contains(i)
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, 50, s.Len())
}
