package wasi

import (
	"io"
	"sync/atomic"

	"github.com/nor2/wasi-harness/engine"
	"github.com/nor2/wasi-harness/errors"
	"github.com/nor2/wasi-harness/task"
)

// EnvironmentName is the fixed process-wide guest name. Every environment
// this harness builds runs its guest under this identity; it is not
// user-configurable.
const EnvironmentName = "nor2"

// EnvironmentConfig maps environment variable names to the values the guest
// observes at start. Insertion order is irrelevant.
type EnvironmentConfig map[string]string

// Builder assembles everything one guest execution needs besides the module
// bytes. Obtain one from Configure, attach a task manager with WithTasks,
// then call Finalize against a loaded module.
type Builder struct {
	name string
	caps Capabilities
	env  map[string]string

	stdin  *PipeReader
	stdout *PipeWriter
	stderr *PipeWriter

	hostStdout *PipeReader
	hostStderr *PipeReader

	tasks     *task.Manager
	finalized bool
}

// Configure allocates the three captured stream pairs and returns a builder
// pre-wired with the guest ends, plus the host ends: the stdin writer and
// the stdout and stderr readers. The capability set and environment map are
// copied, so later mutation by the caller has no effect.
func Configure(caps Capabilities, env EnvironmentConfig) (*Builder, *PipeWriter, *PipeReader, *PipeReader) {
	stdinR, stdinW := NewPipe()
	stdoutR, stdoutW := NewPipe()
	stderrR, stderrW := NewPipe()

	vars := make(map[string]string, len(env))
	for k, v := range env {
		vars[k] = v
	}
	caps.HTTPClient.AllowedHosts = append([]string(nil), caps.HTTPClient.AllowedHosts...)

	b := &Builder{
		name:       EnvironmentName,
		caps:       caps,
		env:        vars,
		stdin:      stdinR,
		stdout:     stdoutW,
		stderr:     stderrW,
		hostStdout: stdoutR,
		hostStderr: stderrR,
	}
	return b, stdinW, stdoutR, stderrR
}

// WithTasks attaches the worker pool that backs guest-requested background
// work. Finalize fails without one.
func (b *Builder) WithTasks(m *task.Manager) *Builder {
	b.tasks = m
	return b
}

// Finalize binds the builder to a loaded module and produces the handle the
// link layer consumes. A builder finalizes at most once.
func (b *Builder) Finalize(mod *engine.Module) (*Environment, error) {
	if b.finalized {
		return nil, errors.InvalidInput(errors.PhaseEnvironment, "builder already finalized")
	}
	if mod == nil {
		return nil, errors.InvalidInput(errors.PhaseEnvironment, "module cannot be nil")
	}
	if b.name == "" {
		return nil, errors.FieldMissing(errors.PhaseEnvironment, "name")
	}
	if b.tasks == nil {
		return nil, errors.FieldMissing(errors.PhaseEnvironment, "task manager")
	}
	if err := b.caps.Validate(); err != nil {
		return nil, err
	}
	b.finalized = true
	return &Environment{
		name:       b.name,
		caps:       b.caps,
		env:        b.env,
		module:     mod,
		stdin:      b.stdin,
		stdout:     b.stdout,
		stderr:     b.stderr,
		hostStdout: b.hostStdout,
		hostStderr: b.hostStderr,
		tasks:      b.tasks,
	}, nil
}

// Environment is a finalized guest execution environment: one module bound
// to its captured streams, environment variables and capability set.
type Environment struct {
	name   string
	caps   Capabilities
	env    map[string]string
	module *engine.Module

	stdin  *PipeReader
	stdout *PipeWriter
	stderr *PipeWriter

	hostStdout *PipeReader
	hostStderr *PipeReader

	tasks    *task.Manager
	consumed atomic.Bool
}

// Name returns the guest's fixed process name.
func (e *Environment) Name() string { return e.name }

// Module returns the loaded module this environment was finalized against.
func (e *Environment) Module() *engine.Module { return e.module }

// Capabilities returns the capability set the environment was configured
// with.
func (e *Environment) Capabilities() Capabilities { return e.caps }

// Tasks returns the worker pool attached at build time.
func (e *Environment) Tasks() *task.Manager { return e.tasks }

// Env returns a copy of the guest's environment variables.
func (e *Environment) Env() map[string]string {
	vars := make(map[string]string, len(e.env))
	for k, v := range e.env {
		vars[k] = v
	}
	return vars
}

// Stdin is the guest-side read end of the captured stdin stream.
func (e *Environment) Stdin() io.Reader { return e.stdin }

// Stdout is the guest-side write end of the captured stdout stream.
func (e *Environment) Stdout() io.Writer { return e.stdout }

// Stderr is the guest-side write end of the captured stderr stream.
func (e *Environment) Stderr() io.Writer { return e.stderr }

// HostStdout is the host-side read end of the captured stdout stream. The
// driver drains it after cleanup; it is the same end Configure returned.
func (e *Environment) HostStdout() io.Reader { return e.hostStdout }

// HostStderr is the host-side read end of the captured stderr stream.
func (e *Environment) HostStderr() io.Reader { return e.hostStderr }

// Consume marks the environment as bound to an instance. The link layer
// calls this once instantiation has succeeded; a second call fails with a
// state error so one environment never backs two instances.
func (e *Environment) Consume() error {
	if !e.consumed.CompareAndSwap(false, true) {
		return errors.State(errors.PhaseEnvironment, "environment already bound to an instance")
	}
	return nil
}

// Close shuts the guest-side stream ends so host-side drains terminate.
// It is safe to call more than once.
func (e *Environment) Close() error {
	e.stdin.Close()
	e.stdout.Close()
	e.stderr.Close()
	return nil
}
