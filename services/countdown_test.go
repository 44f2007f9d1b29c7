package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountdown_FiresOnce(t *testing.T) {
	fired := make(chan struct{}, 4)
	c := NewCountdown(30*time.Millisecond, 10*time.Millisecond, func() {
		fired <- struct{}{}
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown never completed")
	}

	assert.True(t, c.Expired())
	assert.Zero(t, c.Remaining())

	// No second firing.
	select {
	case <-fired:
		t.Fatal("completion callback fired more than once")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCountdown_StopPreventsCallback(t *testing.T) {
	fired := make(chan struct{}, 1)
	c := NewCountdown(100*time.Millisecond, 10*time.Millisecond, func() {
		fired <- struct{}{}
	})

	c.Stop()
	c.Stop() // idempotent

	select {
	case <-fired:
		t.Fatal("callback fired after Stop")
	case <-time.After(200 * time.Millisecond):
	}
	assert.True(t, c.Expired())
}

func TestCountdown_RemainingCountsDown(t *testing.T) {
	c := NewCountdown(10*time.Second, time.Second, nil)
	defer c.Stop()

	assert.Equal(t, int64(10), c.Remaining())
	assert.False(t, c.Expired())
}

func TestCountdown_NilCallback(t *testing.T) {
	c := NewCountdown(20*time.Millisecond, 10*time.Millisecond, nil)

	assert.Eventually(t, c.Expired, 2*time.Second, 10*time.Millisecond)
}
