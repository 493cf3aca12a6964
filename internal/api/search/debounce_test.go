package search

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_BurstFiresOnce(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	defer d.Stop()

	var mu sync.Mutex
	var fired []int

	for i := 0; i < 5; i++ {
		i := i
		d.Trigger(func() {
			mu.Lock()
			fired = append(fired, i)
			mu.Unlock()
		})
	}

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{4}, fired, "only the last trigger in the burst fires")
}

func TestDebouncer_SeparatedTriggersBothFire(t *testing.T) {
	d := NewDebouncer(5 * time.Millisecond)
	defer d.Stop()

	var mu sync.Mutex
	count := 0
	bump := func() {
		mu.Lock()
		count++
		mu.Unlock()
	}

	d.Trigger(bump)
	time.Sleep(50 * time.Millisecond)
	d.Trigger(bump)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, count)
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)

	var mu sync.Mutex
	count := 0
	d.Trigger(func() {
		mu.Lock()
		count++
		mu.Unlock()
	})
	d.Stop()

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, count)
}
