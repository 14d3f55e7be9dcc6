package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_SetReleasesWaiters(t *testing.T) {
	e := NewEvent()
	assert.False(t, e.IsSet())

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { done <- e.Wait(context.Background()) }()
	}

	time.Sleep(10 * time.Millisecond)
	e.Set()

	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("waiter was not released")
		}
	}
	assert.True(t, e.IsSet())
}

func TestEvent_WaitReturnsImmediatelyWhenSet(t *testing.T) {
	e := NewEvent()
	e.Set()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, e.Wait(ctx))
}

func TestEvent_WaitHonorsContext(t *testing.T) {
	e := NewEvent()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, e.Wait(ctx), context.Canceled)
}

func TestEvent_ClearIfKeepsRacingSet(t *testing.T) {
	e := NewEvent()
	e.Set()

	gen := e.Generation()
	// A Set lands between the watcher's position check and its clear.
	e.Set()

	assert.False(t, e.ClearIf(gen))
	assert.True(t, e.IsSet())

	gen = e.Generation()
	assert.True(t, e.ClearIf(gen))
	assert.False(t, e.IsSet())
}

func TestEvent_ClearThenSetAgain(t *testing.T) {
	e := NewEvent()
	e.Set()
	e.Clear()
	assert.False(t, e.IsSet())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, e.Wait(ctx), context.DeadlineExceeded)

	e.Set()
	assert.NoError(t, e.Wait(context.Background()))
}
