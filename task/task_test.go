package task

import (
	"errors"
	"sync"
	"testing"
	"time"

	herrors "github.com/nor2/wasi-harness/errors"
)

func TestManager_RunsScheduledWork(t *testing.T) {
	m := New(4)
	defer m.Close()

	var mu sync.Mutex
	count := 0
	for i := 0; i < 100; i++ {
		if err := m.Go(func() {
			mu.Lock()
			count++
			mu.Unlock()
		}); err != nil {
			t.Fatalf("Go failed: %v", err)
		}
	}
	m.Wait()

	mu.Lock()
	defer mu.Unlock()
	if count != 100 {
		t.Errorf("expected 100 tasks to run, got %d", count)
	}
}

func TestManager_DefaultWorkerCount(t *testing.T) {
	m := New(0)
	defer m.Close()

	done := make(chan struct{})
	if err := m.Go(func() { close(done) }); err != nil {
		t.Fatalf("Go failed: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestManager_GoAfterClose(t *testing.T) {
	m := New(1)
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	err := m.Go(func() {})
	if err == nil {
		t.Fatal("expected error scheduling on closed manager")
	}
	var herr *herrors.Error
	if !errors.As(err, &herr) {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	if herr.Kind != herrors.KindState {
		t.Errorf("expected kind %q, got %q", herrors.KindState, herr.Kind)
	}
}

func TestManager_NilFunction(t *testing.T) {
	m := New(1)
	defer m.Close()

	err := m.Go(nil)
	if err == nil {
		t.Fatal("expected error for nil function")
	}
	var herr *herrors.Error
	if !errors.As(err, &herr) {
		t.Fatalf("expected *errors.Error, got %T", err)
	}
	if herr.Kind != herrors.KindInvalidInput {
		t.Errorf("expected kind %q, got %q", herrors.KindInvalidInput, herr.Kind)
	}
}

func TestManager_CloseDrainsQueue(t *testing.T) {
	m := New(1)

	var mu sync.Mutex
	count := 0
	for i := 0; i < 5; i++ {
		if err := m.Go(func() {
			time.Sleep(time.Millisecond)
			mu.Lock()
			count++
			mu.Unlock()
		}); err != nil {
			t.Fatalf("Go failed: %v", err)
		}
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if count != 5 {
		t.Errorf("Close returned before queue drained: %d of 5 tasks ran", count)
	}
}

func TestManager_CloseIdempotent(t *testing.T) {
	m := New(2)
	if err := m.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestManager_WaitBlocksUntilDone(t *testing.T) {
	m := New(1)
	defer m.Close()

	release := make(chan struct{})
	if err := m.Go(func() { <-release }); err != nil {
		t.Fatalf("Go failed: %v", err)
	}

	waited := make(chan struct{})
	go func() {
		m.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while a task was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait never returned after tasks finished")
	}
}

func TestManager_PanicDoesNotKillWorker(t *testing.T) {
	m := New(1)
	defer m.Close()

	if err := m.Go(func() { panic("boom") }); err != nil {
		t.Fatalf("Go failed: %v", err)
	}

	done := make(chan struct{})
	if err := m.Go(func() { close(done) }); err != nil {
		t.Fatalf("Go failed: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
	m.Wait()
}

func TestManager_ConcurrentGo(t *testing.T) {
	m := New(8)
	defer m.Close()

	var mu sync.Mutex
	count := 0

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if err := m.Go(func() {
					mu.Lock()
					count++
					mu.Unlock()
				}); err != nil {
					t.Errorf("Go failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	m.Wait()

	mu.Lock()
	defer mu.Unlock()
	if count != 16*50 {
		t.Errorf("expected %d tasks to run, got %d", 16*50, count)
	}
}
