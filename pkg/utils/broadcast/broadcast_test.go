package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for value")
	}
	var zero T
	return zero
}

func TestFanOut(t *testing.T) {
	src := make(chan int)
	b := NewBroadcastServer("test", src, WithBufferSize[int](4))
	defer b.Close()

	s1 := b.Subscribe()
	s2 := b.Subscribe()
	src <- 1
	src <- 2
	assert.Equal(t, 1, receive(t, s1))
	assert.Equal(t, 2, receive(t, s1))
	assert.Equal(t, 1, receive(t, s2))
	assert.Equal(t, 2, receive(t, s2))
}

func TestCancelSubscription(t *testing.T) {
	src := make(chan string)
	b := NewBroadcastServer("test", src)
	defer b.Close()

	s := b.Subscribe()
	b.CancelSubscription(s)
	_, ok := <-s
	assert.False(t, ok)
}

func TestSlowListenerIsSkipped(t *testing.T) {
	src := make(chan int)
	b := NewBroadcastServer("test", src, WithSendTimeout[int](time.Millisecond))
	defer b.Close()

	slow := b.Subscribe()
	fast := b.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			assert.Equal(t, i, receive(t, fast))
		}
	}()
	for i := 0; i < 3; i++ {
		src <- i
	}
	<-done
	// the first value may or may not have reached the slow listener
	select {
	case <-slow:
	default:
	}
}

func TestCloseSourceClosesListeners(t *testing.T) {
	src := make(chan int)
	b := NewBroadcastServer("test", src)
	s := b.Subscribe()
	close(src)
	select {
	case _, ok := <-s:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("listener not closed")
	}
}
