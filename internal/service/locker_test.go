package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountLocker_Exclusive(t *testing.T) {
	l := newAccountLocker()
	ctx := context.Background()

	held, release, err := l.Lock(ctx, "a")
	require.NoError(t, err)
	assert.True(t, l.Held(held, "a"))
	assert.False(t, l.Held(ctx, "a"))

	_, _, ok := l.TryLock(ctx, "a")
	assert.False(t, ok)

	_, releaseB, ok := l.TryLock(ctx, "b")
	require.True(t, ok, "locks are per account")
	releaseB()

	release()
	release()

	_, releaseA, ok := l.TryLock(ctx, "a")
	require.True(t, ok)
	releaseA()
}

func TestAccountLocker_Reentrant(t *testing.T) {
	l := newAccountLocker()

	held, release, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer release()

	inner, innerRelease, err := l.Lock(held, "a")
	require.NoError(t, err)
	innerRelease()
	assert.True(t, l.Held(inner, "a"))

	_, _, ok := l.TryLock(context.Background(), "a")
	assert.False(t, ok, "inner release must not free the outer hold")
}

func TestAccountLocker_LockHonoursContext(t *testing.T) {
	l := newAccountLocker()

	_, release, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = l.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAccountLocker_WaitsForRelease(t *testing.T) {
	l := newAccountLocker()

	_, release, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		_, r, err := l.Lock(context.Background(), "a")
		if err == nil {
			r()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second locker must wait")
	case <-time.After(20 * time.Millisecond):
	}
	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second locker never acquired")
	}
}
