package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"

	"github.com/nor2/wasi-harness/errors"
)

// Engine owns one wazero runtime configured with a fixed feature set.
// Modules loaded by the same engine share its compilation cache and memory
// limits.
type Engine struct {
	runtime  wazero.Runtime
	cache    wazero.CompilationCache
	features Features
}

// Config holds configuration for engine creation.
type Config struct {
	// Features selects the optional WebAssembly proposals the validator
	// accepts. The set is fixed for the engine's lifetime; use AllFeatures
	// for the permissive default.
	Features Features

	// MemoryLimitPages caps guest memory in 64KiB pages.
	// 0 means the wazero default (65536 pages = 4GiB).
	MemoryLimitPages uint32

	// CacheDir enables a file-system compilation cache shared between
	// engines pointed at the same directory. Empty disables caching.
	CacheDir string

	// DebugInfo keeps DWARF debug information at compile time so trap
	// stack traces carry source-level function names.
	DebugInfo bool

	// CloseOnContextDone aborts in-flight guest calls when their context
	// is cancelled instead of letting them run to completion.
	CloseOnContextDone bool
}

// New creates an engine with the permissive feature set.
func New(ctx context.Context) (*Engine, error) {
	return NewWithConfig(ctx, nil)
}

// NewWithConfig creates an engine with custom configuration. A nil config
// selects AllFeatures and wazero defaults.
func NewWithConfig(ctx context.Context, cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = &Config{Features: AllFeatures(), DebugInfo: true}
	}

	runtimeCfg := wazero.NewRuntimeConfig().
		WithCoreFeatures(cfg.Features.core()).
		WithDebugInfoEnabled(cfg.DebugInfo)
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	if cfg.CloseOnContextDone {
		runtimeCfg = runtimeCfg.WithCloseOnContextDone(true)
	}

	var cache wazero.CompilationCache
	if cfg.CacheDir != "" {
		var err error
		cache, err = wazero.NewCompilationCacheWithDir(cfg.CacheDir)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err,
				"create compilation cache")
		}
		runtimeCfg = runtimeCfg.WithCompilationCache(cache)
	}

	e := &Engine{
		runtime:  wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		cache:    cache,
		features: cfg.Features,
	}
	Logger().Debug("engine created", zap.Stringer("features", cfg.Features))
	return e, nil
}

// Features returns the engine's fixed feature set.
func (e *Engine) Features() Features {
	return e.features
}

// Runtime returns the underlying wazero runtime. The link layer uses it to
// instantiate host modules and guests.
func (e *Engine) Runtime() wazero.Runtime {
	return e.runtime
}

// Load compiles and validates guest bytecode into a Module. It fails with
// a load error if the bytes are malformed, reference a disabled feature or
// fail validation.
func (e *Engine) Load(ctx context.Context, wasmBytes []byte) (*Module, error) {
	if len(wasmBytes) == 0 {
		return nil, errors.Load("module bytes are empty", nil)
	}

	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Load("compile failed", err)
	}

	Logger().Debug("module loaded",
		zap.String("name", compiled.Name()),
		zap.Int("size", len(wasmBytes)))
	return &Module{compiled: compiled, size: len(wasmBytes)}, nil
}

// Close releases the runtime, every module it compiled and the compilation
// cache if one was configured.
func (e *Engine) Close(ctx context.Context) error {
	err := e.runtime.Close(ctx)
	if e.cache != nil {
		if cerr := e.cache.Close(ctx); err == nil {
			err = cerr
		}
	}
	return err
}
