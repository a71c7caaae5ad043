package services

import (
	"context"
	"sync"
)

type inflightTask struct {
	cancel context.CancelFunc
}

// InFlight tracks the cancellable operations of one page session by request token.
type InFlight struct {
	mu     sync.Mutex
	tasks  map[string]*inflightTask
	closed bool
}

// NewInFlight creates an empty registry.
func NewInFlight() *InFlight {
	return &InFlight{tasks: make(map[string]*inflightTask)}
}

// Begin registers an operation under token and returns its context. An operation
// already registered under the same token is cancelled. done must be called when
// the operation settles.
func (f *InFlight) Begin(parent context.Context, token string) (context.Context, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, nil, ErrSessionClosed
	}

	if prev, ok := f.tasks[token]; ok {
		prev.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	task := &inflightTask{cancel: cancel}
	f.tasks[token] = task

	done := func() {
		cancel()
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.tasks[token] == task {
			delete(f.tasks, token)
		}
	}
	return ctx, done, nil
}

// Len returns the number of operations in flight.
func (f *InFlight) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

// CancelAll cancels every operation and rejects new ones.
func (f *InFlight) CancelAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for token, task := range f.tasks {
		task.cancel()
		delete(f.tasks, token)
	}
}
