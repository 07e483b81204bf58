// Package wasi assembles guest execution environments.
//
// An environment carries everything one guest run needs besides the module
// bytes: the three captured standard streams, environment variables, a
// capability set and the worker pool backing guest-requested background
// work. Configure allocates the stream pairs and returns the host-facing
// ends alongside the builder:
//
//	builder, stdin, stdout, stderr := wasi.Configure(wasi.AllowAll(), env)
//	environment, err := builder.WithTasks(pool).Finalize(mod)
//
// The link layer consumes the finalized environment exactly once. After the
// run the host drains the stdout and stderr readers for everything the
// guest wrote; Environment.Close shuts the guest-side ends so those drains
// terminate.
package wasi
