package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSortsAndDedupes(t *testing.T) {
	keys := Normalize([]string{Teacher("t1"), Room("r1"), "", Room("r1"), Group("")})
	assert.Equal(t, []string{"room:r1", "teacher:t1"}, keys)
}

func TestLocalLockerSerialisesOverlappingKeys(t *testing.T) {
	locker := NewLocalLocker(time.Second)
	var inside int32
	var maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			keys := []string{Room("r1"), Teacher("t1")}
			if i%2 == 0 {
				keys = []string{Teacher("t1"), Room("r1")}
			}
			release, err := locker.Acquire(context.Background(), keys...)
			require.NoError(t, err)
			defer release()

			current := atomic.AddInt32(&inside, 1)
			for {
				prev := atomic.LoadInt32(&maxInside)
				if current <= prev || atomic.CompareAndSwapInt32(&maxInside, prev, current) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, locker.entries)
}

func TestLocalLockerTimesOut(t *testing.T) {
	locker := NewLocalLocker(30 * time.Millisecond)
	release, err := locker.Acquire(context.Background(), Room("r1"))
	require.NoError(t, err)
	defer release()

	_, err = locker.Acquire(context.Background(), Group("g1"), Room("r1"))
	assert.ErrorIs(t, err, ErrTimeout)

	// g1 must have been released by the failed attempt.
	other, err := locker.Acquire(context.Background(), Group("g1"))
	require.NoError(t, err)
	other()
}

func TestLocalLockerReleaseIsIdempotent(t *testing.T) {
	locker := NewLocalLocker(time.Second)
	release, err := locker.Acquire(context.Background(), Room("r1"))
	require.NoError(t, err)
	release()
	release()

	again, err := locker.Acquire(context.Background(), Room("r1"))
	require.NoError(t, err)
	again()
}
