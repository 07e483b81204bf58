// Package errors provides structured error types for the wasi-harness library.
//
// Errors are categorized by Phase (where in the execution lifecycle the error
// occurred) and Kind (error category). The Error type carries the import
// identity involved and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseLinking, errors.KindTypeMismatch).
//		Import("wasi", "thread-spawn").
//		Detail("module imports (i32)->(i32), host provides (i64)->(i32)").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.DuplicateImport("strings", "a")
//	err := errors.Load("compile module", cause)
//
// All errors implement the standard error interface and support errors.Is/As.
// Is matches on Phase and Kind, so sentinel comparisons work without sharing
// error instances:
//
//	if errors.Is(err, &errors.Error{Phase: errors.PhaseLinking, Kind: errors.KindMissingImport}) {
//		// unresolved imports; the cause is a *MissingImportsError listing them
//	}
package errors
