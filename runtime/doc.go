// Package runtime links compiled modules into executable instances and
// drives them to completion.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	// Compile and validate the guest
//	mod, err := rt.Load(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mod.Close(ctx)
//
//	// Capture the guest's streams
//	builder, stdin, stdout, stderr := wasi.Configure(wasi.AllowAll(), nil)
//	env, err := builder.WithTasks(rt.Tasks()).Finalize(mod)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Link custom imports alongside the WASI set
//	inst, err := rt.Link(ctx, env, mod, table)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Run _start once; cleanup and stream drain are the driver's job
//	if err := inst.SetRunning(); err != nil {
//	    log.Fatal(err)
//	}
//	res, err := runtime.NewDriver(rt.Tasks()).Run(ctx, inst)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Outcome, string(res.Stdout))
//
// # Linking
//
// Link instantiates one host module per import namespace. The WASI
// namespaces carry the full preview1 function set; entries from the
// import table are exported after it, so a custom binding under a WASI
// name shadows the stock implementation. Every function the guest
// imports must resolve against these host modules with a matching
// signature or Link fails before any guest code runs.
//
// # Execution
//
// An instance moves through a fixed lifecycle:
//
//	created -> linked -> running -> completed -> cleaned up
//	                             -> trapped   -> cleaned up
//
// Link returns instances in linked status. SetRunning marks the
// transition to running and is the caller's explicit step before
// handing the instance to a driver. Driver.Run invokes the entry point
// exactly once; guest traps and exits surface in the Result rather than
// as errors, and cleanup plus stream drain happen on every path out.
//
// # Thread Safety
//
// Runtime is safe for concurrent use, but executions that share it are
// serialized around host module instantiation. An Instance belongs to a
// single execution and must not be shared.
package runtime
