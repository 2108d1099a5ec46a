package slot

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAdmitAndRelease(t *testing.T) {
	s := New(2)

	ok, reason := s.TryAdmit("uav-1")
	assert.True(t, ok)
	assert.Equal(t, AdmitOK, reason)
	assert.Equal(t, 1, s.Occupancy())

	// Admitting the same id again is a no-op failure.
	ok, reason = s.TryAdmit("uav-1")
	assert.False(t, ok)
	assert.Equal(t, AdmitAlreadyMember, reason)
	assert.Equal(t, 1, s.Occupancy())

	ok, _ = s.TryAdmit("uav-2")
	assert.True(t, ok)
	assert.True(t, s.IsFull())

	ok, reason = s.TryAdmit("uav-3")
	assert.False(t, ok)
	assert.Equal(t, AdmitFull, reason)

	assert.True(t, s.Release("uav-1"))
	assert.False(t, s.IsFull())
	assert.Equal(t, 1, s.Occupancy())

	// Releasing a non-member is a no-op, not an error.
	assert.False(t, s.Release("uav-1"))
	assert.False(t, s.Release("never-admitted"))
	assert.Equal(t, 1, s.Occupancy())
}

func TestConcurrentAdmitsNeverExceedCapacity(t *testing.T) {
	const capacity = 5
	const contenders = 50

	s := New(capacity)

	var admitted int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			<-start
			if ok, _ := s.TryAdmit(fmt.Sprintf("uav-%d", n)); ok {
				atomic.AddInt64(&admitted, 1)
			}
		}(i)
	}

	close(start)
	wg.Wait()

	assert.Equal(t, int64(capacity), admitted, "exactly capacity admits must succeed")
	assert.Equal(t, capacity, s.Occupancy())
	assert.Len(t, s.Members(), capacity)
}

func TestConcurrentAdmitReleaseChurn(t *testing.T) {
	const capacity = 3
	s := New(capacity)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("uav-%d", n)
			for j := 0; j < 100; j++ {
				if ok, _ := s.TryAdmit(id); ok {
					// Occupancy derives from the member set, so it can
					// never exceed capacity at any observable point.
					occ := s.Occupancy()
					if occ > capacity {
						t.Errorf("occupancy %d exceeds capacity %d", occ, capacity)
					}
					s.Release(id)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, len(s.Members()), s.Occupancy(), "occupancy equals membership size")
}

func TestJoinedAt(t *testing.T) {
	s := New(1)

	_, ok := s.JoinedAt("uav-1")
	assert.False(t, ok)

	before := time.Now().UTC()
	admitted, _ := s.TryAdmit("uav-1")
	require.True(t, admitted)

	joined, ok := s.JoinedAt("uav-1")
	require.True(t, ok)
	assert.False(t, joined.Before(before.Add(-time.Second)))
	assert.WithinDuration(t, time.Now().UTC(), joined, 5*time.Second)
}

func TestNewPanicsOnInvalidCapacity(t *testing.T) {
	assert.Panics(t, func() { New(0) })
	assert.Panics(t, func() { New(-1) })
}
