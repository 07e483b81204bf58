package main

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/nor2/wasi-harness/imports"
	"github.com/nor2/wasi-harness/task"
	"github.com/nor2/wasi-harness/wasi"
)

// hostImports assembles the custom import surface the test guests are
// compiled against. The Integers and strings namespaces carry the full
// WIT declaration text as their import names, exactly as bindgen wrote
// them into the guest; their core signatures are derived from that text.
func hostImports(caps wasi.Capabilities, tasks *task.Manager) (*imports.Table, error) {
	reg := imports.NewRegistry()

	witNamed := []struct {
		namespace string
		name      string
	}{
		{"Integers", "a6: func(x: s32) -> ()"},
		{"strings", "a: func(x: string) -> ()"},
		{"strings", "b: func() -> string"},
		{"strings", "c: func(a: string, b: string) -> string"},
	}
	for _, imp := range witNamed {
		params, results, err := imports.ParseSignature(imp.name)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(imp.namespace, imp.name, params, results,
			logImport(imp.namespace, imp.name)); err != nil {
			return nil, err
		}
	}

	err := reg.Register("rust", "wasmImportFloat32Param",
		[]api.ValueType{api.ValueTypeF32}, nil,
		logImport("rust", "wasmImportFloat32Param"))
	if err != nil {
		return nil, err
	}

	// Thread spawning is a stub: the request is acknowledged off the
	// guest's calling thread and declined with id 0.
	err = reg.Register("wasi", "thread-spawn",
		[]api.ValueType{api.ValueTypeI32},
		[]api.ValueType{api.ValueTypeI32},
		func(ctx context.Context, m api.Module, args []uint64) []uint64 {
			ack := func() {
				logger.Info("guest requested thread spawn",
					zap.Uint64("start_arg", args[0]),
					zap.Int("max_threads", caps.Threading.MaxThreads),
					zap.Bool("asynchronous", caps.Threading.Asynchronous))
			}
			if err := tasks.Go(ack); err != nil {
				ack()
			}
			return []uint64{0}
		})
	if err != nil {
		return nil, err
	}

	return reg.Finalize(), nil
}

func logImport(namespace, name string) imports.Func {
	return func(ctx context.Context, m api.Module, args []uint64) []uint64 {
		logger.Info("guest called host import",
			zap.String("namespace", namespace),
			zap.String("name", name),
			zap.Uint64s("args", args))
		return nil
	}
}
