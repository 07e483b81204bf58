package runtime

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/tetratelabs/wazero/api"

	"github.com/nor2/wasi-harness/errors"
	"github.com/nor2/wasi-harness/wasi"
)

// Status tracks an instance through its execution lifecycle.
type Status int32

const (
	StatusCreated Status = iota
	StatusLinked
	StatusRunning
	StatusCompleted
	StatusTrapped
	StatusCleanedUp
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusLinked:
		return "linked"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusTrapped:
		return "trapped"
	case StatusCleanedUp:
		return "cleaned_up"
	default:
		return "unknown"
	}
}

// guestModule is the slice of api.Module the harness touches. The link
// layer supplies the instantiated wazero module; driver tests substitute
// fakes.
type guestModule interface {
	ExportedFunction(name string) api.Function
	Close(ctx context.Context) error
	CloseWithExitCode(ctx context.Context, exitCode uint32) error
}

// Instance is a live, runnable binding of one module, its merged import
// table and its guest environment. Memory is exclusively owned: run one
// entry point per instance and instantiate again for another execution.
type Instance struct {
	name   string
	guest  guestModule
	env    *wasi.Environment
	status atomic.Int32
}

func newInstance(name string, guest guestModule, env *wasi.Environment) *Instance {
	inst := &Instance{name: name, guest: guest, env: env}
	inst.status.Store(int32(StatusLinked))
	return inst
}

// Name returns the instance's module name.
func (i *Instance) Name() string {
	return i.name
}

// Status returns the current lifecycle status.
func (i *Instance) Status() Status {
	return Status(i.status.Load())
}

// Environment returns the guest environment the instance was linked with.
func (i *Instance) Environment() *wasi.Environment {
	return i.env
}

func (i *Instance) transition(from, to Status) bool {
	return i.status.CompareAndSwap(int32(from), int32(to))
}

// SetRunning transitions the instance from linked to running. Callers
// perform this step explicitly before invoking the entry point; guest
// thread-status logic may observe an inconsistent state otherwise.
func (i *Instance) SetRunning() error {
	if !i.transition(StatusLinked, StatusRunning) {
		return errors.State(errors.PhaseExecution,
			fmt.Sprintf("cannot transition to running from status %s", i.Status()))
	}
	return nil
}

// entry resolves the exported entry function.
func (i *Instance) entry(name string) (api.Function, error) {
	fn := i.guest.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseExecution, "entry function", name)
	}
	return fn, nil
}

// Cleanup tears the instance down: the guest module is closed, with
// exitOverride as its exit code when non-nil, and the environment's
// guest-side stream ends are shut so host drains terminate. The first call
// wins; later calls are no-ops.
func (i *Instance) Cleanup(ctx context.Context, exitOverride *uint32) error {
	for {
		current := i.Status()
		if current == StatusCleanedUp {
			return nil
		}
		if i.transition(current, StatusCleanedUp) {
			break
		}
	}

	var err error
	if exitOverride != nil {
		err = i.guest.CloseWithExitCode(ctx, *exitOverride)
	} else {
		err = i.guest.Close(ctx)
	}
	if cerr := i.env.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrap(errors.PhaseCleanup, errors.KindState, err, "close instance")
	}
	return nil
}
