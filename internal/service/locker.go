package service

import (
	"context"
	"sync"
)

type heldLockKey struct{ id string }

// accountLocker hands out one exclusive lock per account. A context returned
// by Lock carries the hold, so nested operations on the same account under
// that context do not deadlock. Slots are never dropped: a waiter may still
// hold the channel of a removed account, and a recreated account with the
// same id must contend on that same channel.
type accountLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newAccountLocker() *accountLocker {
	return &accountLocker{slots: make(map[string]chan struct{})}
}

func (l *accountLocker) slot(id string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[id]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[id] = ch
	}
	return ch
}

// Held reports whether ctx already holds the lock for id.
func (l *accountLocker) Held(ctx context.Context, id string) bool {
	held, _ := ctx.Value(heldLockKey{id}).(bool)
	return held
}

// Lock waits for the account lock or for ctx to end.
func (l *accountLocker) Lock(ctx context.Context, id string) (context.Context, func(), error) {
	if l.Held(ctx, id) {
		return ctx, func() {}, nil
	}
	ch := l.slot(id)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	return context.WithValue(ctx, heldLockKey{id}, true), releaseOnce(ch), nil
}

// TryLock takes the lock only if it is free.
func (l *accountLocker) TryLock(ctx context.Context, id string) (context.Context, func(), bool) {
	if l.Held(ctx, id) {
		return ctx, func() {}, true
	}
	ch := l.slot(id)
	select {
	case ch <- struct{}{}:
		return context.WithValue(ctx, heldLockKey{id}, true), releaseOnce(ch), true
	default:
		return nil, nil, false
	}
}

func releaseOnce(ch chan struct{}) func() {
	var once sync.Once
	return func() {
		once.Do(func() { <-ch })
	}
}
