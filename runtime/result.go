package runtime

// Outcome is the terminal disposition of one execution.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeTrapped   Outcome = "trapped"
)

// Trap describes a guest-level fault recovered at the driver boundary.
// Trace carries the full diagnostic text, including the guest stack when
// the backend provides one.
type Trap struct {
	Message string
	Trace   string
}

// Result is the structured outcome of one execution. A trap is data here,
// not an error: the driver recovers it and the caller decides presentation.
type Result struct {
	Outcome Outcome

	// Values holds the entry point's return values on completion.
	Values []uint64

	// Exited and ExitCode record a guest that terminated through
	// proc_exit. A zero exit code counts as completion.
	Exited   bool
	ExitCode uint32

	Trap *Trap

	// Stdout and Stderr hold everything the guest wrote to the captured
	// streams, drained after cleanup in per-stream write order.
	Stdout []byte
	Stderr []byte
}

// Success reports whether the execution completed without trapping.
func (r *Result) Success() bool {
	return r.Outcome == OutcomeCompleted
}
