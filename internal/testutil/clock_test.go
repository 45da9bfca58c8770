package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualClock_StartsAtReferenceDate(t *testing.T) {
	clock := NewManualClock(time.Time{})
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), clock.Now())
}

func TestManualClock_AfterFiresOnAdvance(t *testing.T) {
	clock := NewManualClock(time.Time{})
	ch := clock.After(3 * time.Second)

	clock.Advance(2 * time.Second)
	select {
	case <-ch:
		t.Fatal("timer fired early")
	default:
	}
	assert.Equal(t, 1, clock.Timers())

	clock.Advance(time.Second)
	select {
	case fired := <-ch:
		assert.Equal(t, clock.Now(), fired)
	default:
		t.Fatal("timer did not fire")
	}
	assert.Equal(t, 0, clock.Timers())
}

func TestManualClock_NonPositiveDurationFiresImmediately(t *testing.T) {
	clock := NewManualClock(time.Time{})

	select {
	case <-clock.After(0):
	default:
		t.Fatal("zero duration should fire immediately")
	}
}

func TestManualClock_ConcurrentUse(t *testing.T) {
	clock := NewManualClock(time.Time{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-clock.After(time.Minute)
		}()
	}

	require.Eventually(t, func() bool { return clock.Timers() == 20 }, time.Second, time.Millisecond)
	clock.Advance(time.Minute)
	wg.Wait()
}
