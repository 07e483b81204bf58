package runtime

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/nor2/wasi-harness/engine"
	"github.com/nor2/wasi-harness/errors"
	"github.com/nor2/wasi-harness/task"
)

// Driver runs a linked instance's entry point exactly once and owns the
// teardown sequence that follows it.
type Driver struct {
	tasks *task.Manager
	entry string
	exit  *uint32
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithEntryPoint overrides the entry export the driver invokes. The
// default is the WASI command entry point, _start.
func WithEntryPoint(name string) DriverOption {
	return func(d *Driver) { d.entry = name }
}

// WithExitOverride forces the guest's exit code at cleanup.
func WithExitOverride(code uint32) DriverOption {
	return func(d *Driver) {
		c := code
		d.exit = &c
	}
}

// NewDriver creates a driver. The task manager runs the post-cleanup
// stream drains; a nil manager drains on the calling goroutine.
func NewDriver(tasks *task.Manager, opts ...DriverOption) *Driver {
	d := &Driver{tasks: tasks, entry: engine.StartFunction}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run invokes the instance's entry point with no arguments and returns a
// structured result. The returned error is reserved for setup faults: an
// instance that is not in running status, or a missing entry export. Guest
// traps are recovered and reported in the result, never as an error.
//
// Cleanup runs in a deferred position exactly once per call, whether the
// entry point returns, traps or panics the host call stack; both captured
// streams are drained into the result after cleanup.
func (d *Driver) Run(ctx context.Context, inst *Instance) (res *Result, err error) {
	if inst == nil {
		return nil, errors.InvalidInput(errors.PhaseExecution, "instance cannot be nil")
	}
	if status := inst.Status(); status != StatusRunning {
		return nil, errors.State(errors.PhaseExecution,
			fmt.Sprintf("entry point requires running status, instance is %s", status))
	}

	entry, err := inst.entry(d.entry)
	if err != nil {
		return nil, err
	}

	res = &Result{}
	defer func() {
		if r := recover(); r != nil {
			inst.transition(StatusRunning, StatusTrapped)
			res.Outcome = OutcomeTrapped
			res.Trap = &Trap{
				Message: fmt.Sprintf("host panic: %v", r),
				Trace:   string(debug.Stack()),
			}
		}
		if cerr := inst.Cleanup(ctx, d.exit); cerr != nil {
			Logger().Warn("instance cleanup failed", zap.Error(cerr))
		}
		d.drain(inst, res)
	}()

	Logger().Debug("invoking entry point",
		zap.String("module", inst.Name()),
		zap.String("entry", d.entry))

	values, callErr := entry.Call(ctx)
	if callErr == nil {
		inst.transition(StatusRunning, StatusCompleted)
		res.Outcome = OutcomeCompleted
		res.Values = values
		return res, nil
	}

	var exitErr *sys.ExitError
	if errors.As(callErr, &exitErr) {
		res.Exited = true
		res.ExitCode = exitErr.ExitCode()
		if exitErr.ExitCode() == 0 {
			inst.transition(StatusRunning, StatusCompleted)
			res.Outcome = OutcomeCompleted
			return res, nil
		}
		inst.transition(StatusRunning, StatusTrapped)
		res.Outcome = OutcomeTrapped
		res.Trap = &Trap{
			Message: fmt.Sprintf("guest exited with code %d", exitErr.ExitCode()),
			Trace:   callErr.Error(),
		}
		return res, nil
	}

	inst.transition(StatusRunning, StatusTrapped)
	res.Outcome = OutcomeTrapped
	res.Trap = &Trap{
		Message: trapMessage(callErr),
		Trace:   callErr.Error(),
	}
	return res, nil
}

// drain reads both captured streams to the end, preserving per-stream
// order. The reads run on the worker pool when one is available so the two
// streams drain concurrently.
func (d *Driver) drain(inst *Instance, res *Result) {
	env := inst.Environment()

	read := func(r io.Reader, dst *[]byte) {
		data, err := io.ReadAll(r)
		if err != nil {
			Logger().Warn("stream drain failed", zap.Error(err))
		}
		*dst = data
	}

	var wg sync.WaitGroup
	jobs := []func(){
		func() { read(env.HostStdout(), &res.Stdout) },
		func() { read(env.HostStderr(), &res.Stderr) },
	}
	for _, job := range jobs {
		job := job
		if d.tasks != nil {
			wg.Add(1)
			if err := d.tasks.Go(func() { defer wg.Done(); job() }); err == nil {
				continue
			}
			wg.Done()
		}
		job()
	}
	wg.Wait()
}

// trapMessage extracts the first line of a trap error, leaving the guest
// stack to the trace.
func trapMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, "\n"); i >= 0 {
		return msg[:i]
	}
	return msg
}
