package runtime

import (
	"context"
	"sync"

	"github.com/nor2/wasi-harness/engine"
	"github.com/nor2/wasi-harness/errors"
	"github.com/nor2/wasi-harness/task"
)

// Runtime ties an engine to the worker pool that executions share. It is
// the top-level entry point: load a module, finalize an environment
// against it, link the two into an instance, then hand the instance to a
// Driver.
type Runtime struct {
	engine *engine.Engine
	tasks  *task.Manager

	// hostMu serializes host module instantiation. Host module names are
	// fixed by the guest's import strings, so sequential executions on
	// the same runtime replace each other's host modules under this lock.
	hostMu sync.Mutex
}

// Config holds configuration for runtime creation.
type Config struct {
	// Engine configures the underlying engine. Nil selects the engine
	// defaults with every feature enabled.
	Engine *engine.Config

	// Workers sizes the worker pool. Zero or negative selects one worker
	// per CPU.
	Workers int
}

// New creates a runtime with default configuration.
func New(ctx context.Context) (*Runtime, error) {
	return NewWithConfig(ctx, nil)
}

// NewWithConfig creates a runtime with custom configuration.
func NewWithConfig(ctx context.Context, cfg *Config) (*Runtime, error) {
	var engCfg *engine.Config
	workers := 0
	if cfg != nil {
		engCfg = cfg.Engine
		workers = cfg.Workers
	}

	eng, err := engine.NewWithConfig(ctx, engCfg)
	if err != nil {
		return nil, errors.Load("create engine", err)
	}

	return &Runtime{
		engine: eng,
		tasks:  task.New(workers),
	}, nil
}

// Engine returns the underlying engine.
func (r *Runtime) Engine() *engine.Engine {
	return r.engine
}

// Tasks returns the worker pool executions share. Pass it to NewDriver
// and to environment builders that schedule background work.
func (r *Runtime) Tasks() *task.Manager {
	return r.tasks
}

// Load compiles and validates guest bytecode into a module.
func (r *Runtime) Load(ctx context.Context, wasm []byte) (*engine.Module, error) {
	return r.engine.Load(ctx, wasm)
}

// Close releases the worker pool and the engine.
// All instances must be closed before calling this.
func (r *Runtime) Close(ctx context.Context) error {
	err := r.tasks.Close()
	if cerr := r.engine.Close(ctx); err == nil {
		err = cerr
	}
	return err
}
