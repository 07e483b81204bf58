package runtime

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/nor2/wasi-harness/engine"
	"github.com/nor2/wasi-harness/errors"
	"github.com/nor2/wasi-harness/imports"
	"github.com/nor2/wasi-harness/wasi"
)

// Link merges the WASI-standard import set with the custom import table and
// binds the module to the environment, producing one runnable Instance.
//
// The WASI set is instantiated under both the current and the legacy module
// names so modules from old toolchains resolve too. A custom namespace that
// collides with a WASI module name extends it: the standard functions are
// installed first and the custom bindings exported after, so a custom
// binding wins for its own name while unrelated WASI names are never
// dropped.
//
// Import resolution happens before the guest is instantiated. A missing
// import fails with a linking error naming every absent function, an
// incompatible signature fails with a type mismatch, and either way no
// partially-initialized instance escapes.
func (r *Runtime) Link(ctx context.Context, env *wasi.Environment, mod *engine.Module, table *imports.Table) (*Instance, error) {
	if env == nil {
		return nil, errors.InvalidInput(errors.PhaseLinking, "environment cannot be nil")
	}
	if mod == nil {
		return nil, errors.InvalidInput(errors.PhaseLinking, "module cannot be nil")
	}
	if table == nil {
		table = imports.EmptyTable()
	}
	if env.Module() != mod {
		return nil, errors.InvalidInput(errors.PhaseLinking,
			"environment was finalized against a different module")
	}

	r.hostMu.Lock()
	defer r.hostMu.Unlock()

	rt := r.engine.Runtime()

	// Host modules this guest needs: both WASI names plus every custom
	// namespace, in table order.
	names := []string{engine.WASIPreview1, engine.WASIUnstable}
	seen := map[string]bool{engine.WASIPreview1: true, engine.WASIUnstable: true}
	for _, ns := range table.Namespaces() {
		if !seen[ns] {
			names = append(names, ns)
			seen[ns] = true
		}
	}

	hostMods := make([]api.Module, 0, len(names))
	provided := make(map[string]api.Module, len(names))
	teardown := func() {
		for _, hm := range hostMods {
			_ = hm.Close(ctx)
		}
	}

	for _, name := range names {
		// A previous execution leaves its host modules registered under
		// the same names; replace them so this guest links against fresh
		// bindings.
		if existing := rt.Module(name); existing != nil {
			if err := existing.Close(ctx); err != nil {
				teardown()
				return nil, errors.Instantiation(fmt.Errorf("replace host module %s: %w", name, err))
			}
		}

		builder := rt.NewHostModuleBuilder(name)
		if name == engine.WASIPreview1 || name == engine.WASIUnstable {
			wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)
		}
		for _, b := range table.Bindings(name) {
			builder = builder.NewFunctionBuilder().
				WithGoModuleFunction(b.Wrap(), b.Signature.Params, b.Signature.Results).
				Export(b.Signature.Name)
		}

		hm, err := builder.Instantiate(ctx)
		if err != nil {
			teardown()
			return nil, errors.Instantiation(fmt.Errorf("instantiate host module %s: %w", name, err))
		}
		hostMods = append(hostMods, hm)
		provided[name] = hm
	}

	// Resolve every import site against the merged set before touching
	// the guest. Only modules instantiated for this link count; a stale
	// namespace left by an earlier execution does not satisfy anything.
	var missing []string
	for _, def := range mod.ImportedFunctions() {
		ns, fn, ok := def.Import()
		if !ok {
			continue
		}
		host, ok := provided[ns]
		if !ok {
			missing = append(missing, ns+"#"+fn)
			continue
		}
		hostDef, ok := host.ExportedFunctionDefinitions()[fn]
		if !ok {
			missing = append(missing, ns+"#"+fn)
			continue
		}
		if !typesEqual(def.ParamTypes(), hostDef.ParamTypes()) ||
			!typesEqual(def.ResultTypes(), hostDef.ResultTypes()) {
			teardown()
			return nil, errors.TypeMismatch(ns, fn,
				sigString(def.ParamTypes(), def.ResultTypes()),
				sigString(hostDef.ParamTypes(), hostDef.ResultTypes()))
		}
	}
	if len(missing) > 0 {
		teardown()
		return nil, errors.MissingImports(missing)
	}

	if err := env.Consume(); err != nil {
		teardown()
		return nil, err
	}

	cfg := wazero.NewModuleConfig().
		WithName(env.Name()).
		WithArgs(env.Name()).
		WithStdin(env.Stdin()).
		WithStdout(env.Stdout()).
		WithStderr(env.Stderr()).
		WithRandSource(rand.Reader).
		WithSysWalltime().
		WithSysNanotime().
		WithSysNanosleep().
		WithStartFunctions()

	vars := env.Env()
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cfg = cfg.WithEnv(k, vars[k])
	}

	guest, err := rt.InstantiateModule(ctx, mod.Compiled(), cfg)
	if err != nil {
		teardown()
		return nil, errors.Instantiation(err)
	}

	Logger().Debug("module linked",
		zap.String("module", env.Name()),
		zap.Int("custom_imports", table.Len()),
		zap.Int("host_modules", len(hostMods)))

	return newInstance(env.Name(), guest, env), nil
}

func sigString(params, results []api.ValueType) string {
	return imports.FormatTypes(params) + "->" + imports.FormatTypes(results)
}

func typesEqual(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
