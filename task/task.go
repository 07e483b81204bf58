// Package task provides the worker pool that runs background work for the
// harness. Components never spawn goroutines of their own; they receive a
// *Manager explicitly so the caller controls concurrency and shutdown.
package task

import (
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/nor2/wasi-harness/errors"
)

// Manager is a fixed-size pool of workers draining an unbounded queue.
// Go never blocks the caller; Close drains outstanding work before the
// workers exit. The zero value is not usable, construct with New.
type Manager struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool

	workers sync.WaitGroup
	pending sync.WaitGroup
}

// New creates a Manager backed by the given number of worker goroutines.
// A non-positive count selects runtime.NumCPU.
func New(workers int) *Manager {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	m := &Manager{wake: make(chan struct{}, 1)}
	m.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go m.worker()
	}
	return m
}

// Go schedules fn onto the pool and returns immediately. Scheduling after
// Close fails with a state error.
func (m *Manager) Go(fn func()) error {
	if fn == nil {
		return errors.InvalidInput(errors.PhaseExecution, "task function cannot be nil")
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.State(errors.PhaseExecution, "task manager is closed")
	}
	m.pending.Add(1)
	m.queue = append(m.queue, fn)
	m.signalLocked()
	m.mu.Unlock()
	return nil
}

// Wait blocks until every scheduled function has finished.
func (m *Manager) Wait() {
	m.pending.Wait()
}

// Close rejects further submissions, drains the queue and waits for the
// workers to exit. It is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.wake)
	}
	m.mu.Unlock()
	m.workers.Wait()
	return nil
}

// signalLocked wakes one sleeping worker. The caller holds m.mu, so the
// send cannot race with Close closing the channel.
func (m *Manager) signalLocked() {
	if m.closed {
		return
	}
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) worker() {
	defer m.workers.Done()
	for {
		m.mu.Lock()
		for len(m.queue) == 0 {
			closed := m.closed
			m.mu.Unlock()
			if closed {
				return
			}
			<-m.wake
			m.mu.Lock()
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		if len(m.queue) > 0 {
			m.signalLocked()
		}
		m.mu.Unlock()
		m.run(fn)
	}
}

func (m *Manager) run(fn func()) {
	defer m.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("task panicked", zap.Any("panic", r))
		}
	}()
	fn()
}
