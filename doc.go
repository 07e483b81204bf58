// Package wasiharness provides a sandboxed harness for running WASI modules.
//
// The harness compiles a WebAssembly binary once, binds it to a disposable
// execution environment with captured stdio, resolves its imports against
// stock WASI implementations plus caller-registered host functions, and
// drives it to a structured result. Nothing the guest does reaches the host
// process directly: streams are captured, capabilities are explicit, and
// traps are data rather than errors.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	wasi-harness/
//	├── runtime/         High-level API for linking and running modules
//	├── engine/          Low-level wazero integration and feature gating
//	├── imports/         Typed registry for custom host imports
//	├── wasi/            Execution environments, capabilities, captured stdio
//	├── task/            Shared worker pool for background host work
//	├── errors/          Structured error types for debugging
//	└── cmd/run/         Command-line harness
//
// # Quick Start
//
// Load and run a module:
//
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	mod, err := rt.Load(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	builder, _, _, _ := wasi.Configure(wasi.AllowAll(), nil)
//	env, err := builder.WithTasks(rt.Tasks()).Finalize(mod)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := rt.Link(ctx, env, mod, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := inst.SetRunning(); err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := runtime.NewDriver(rt.Tasks()).Run(ctx, inst)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%s: %s", res.Outcome, res.Stdout)
//
// # Execution Model
//
// A loaded module is immutable and reusable; an environment and the instance
// linked from it are single-use. Each execution walks the instance through
// created, linked, running, then completed or trapped, and finally cleaned
// up. Guest failures, traps and proc_exit codes land in the Result; an error
// return means the harness itself could not run the module.
//
// # Host Functions
//
// Custom imports are registered ahead of linking and shadow the stock WASI
// implementations on name collision:
//
//	reg := imports.NewRegistry()
//	reg.Register("env", "add",
//	    []api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
//	    []api.ValueType{api.ValueTypeI32},
//	    func(ctx context.Context, m api.Module, args []uint64) []uint64 {
//	        return []uint64{args[0] + args[1]}
//	    })
//	table := reg.Finalize()
//
// # Thread Safety
//
// Runtime and Module are safe for concurrent use. Environment, Instance and
// Driver belong to a single execution and must not be shared.
package wasiharness
