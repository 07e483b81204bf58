package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in the execution lifecycle the error occurred
type Phase string

const (
	PhaseLoad        Phase = "load"        // bytecode compilation and validation
	PhaseEnvironment Phase = "environment" // guest environment assembly
	PhaseLinking     Phase = "linking"     // import resolution and instantiation
	PhaseExecution   Phase = "execution"   // entry point invocation
	PhaseHost        Phase = "host"        // host import registration and dispatch
	PhaseCleanup     Phase = "cleanup"     // instance teardown
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidData     Kind = "invalid_data"
	KindUnsupported     Kind = "unsupported"
	KindDuplicateImport Kind = "duplicate_import"
	KindMissingImport   Kind = "missing_import"
	KindTypeMismatch    Kind = "type_mismatch"
	KindFieldMissing    Kind = "field_missing"
	KindInvalidInput    Kind = "invalid_input"
	KindInstantiation   Kind = "instantiation"
	KindState           Kind = "state"
	KindContract        Kind = "contract"
	KindTrap            Kind = "trap"
)

// Error is the structured error type used throughout the harness
type Error struct {
	Cause     error
	Phase     Phase
	Kind      Kind
	Namespace string
	Name      string
	Detail    string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Namespace != "" || e.Name != "" {
		b.WriteString(" for ")
		b.WriteString(e.Namespace)
		if e.Name != "" {
			b.WriteByte('#')
			b.WriteString(e.Name)
		}
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Import sets the namespace and function name the error refers to
func (b *Builder) Import(namespace, name string) *Builder {
	b.err.Namespace = namespace
	b.err.Name = name
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// DuplicateImport creates a duplicate registration error.
// The registered binding for the pair is left untouched.
func DuplicateImport(namespace, name string) *Error {
	return &Error{
		Phase:     PhaseHost,
		Kind:      KindDuplicateImport,
		Namespace: namespace,
		Name:      name,
		Detail:    "import already registered",
	}
}

// TypeMismatch creates an import signature mismatch error
func TypeMismatch(namespace, name, want, got string) *Error {
	return &Error{
		Phase:     PhaseLinking,
		Kind:      KindTypeMismatch,
		Namespace: namespace,
		Name:      name,
		Detail:    fmt.Sprintf("module imports %s, host provides %s", want, got),
	}
}

// MissingImports creates a linking error from "namespace#function" keys
func MissingImports(imports []string) *Error {
	return &Error{
		Phase:  PhaseLinking,
		Kind:   KindMissingImport,
		Detail: fmt.Sprintf("%d unresolved import(s)", len(imports)),
		Cause:  NewMissingImportsError(imports),
	}
}

// FieldMissing creates a missing field error
func FieldMissing(phase Phase, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldMissing,
		Detail: fmt.Sprintf("required field %q not set", fieldName),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLinking,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// State creates a lifecycle state violation error
func State(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindState,
		Detail: detail,
	}
}

// Contract creates a host implementation contract violation.
// Contract violations are programming errors, not guest faults; the
// import dispatch layer panics with this value.
func Contract(namespace, name, detail string) *Error {
	return &Error{
		Phase:     PhaseHost,
		Kind:      KindContract,
		Namespace: namespace,
		Name:      name,
		Detail:    detail,
	}
}

// Trap creates an execution trap error
func Trap(cause error) *Error {
	return &Error{
		Phase:  PhaseExecution,
		Kind:   KindTrap,
		Detail: "guest trapped",
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Is reports whether any error in err's chain matches target. It is a
// passthrough to the standard library so callers need only one errors
// import.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain matching target. It is a
// passthrough to the standard library.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// MissingImport represents a single unresolved import
type MissingImport struct {
	Namespace string // e.g., "wasi_snapshot_preview1"
	Function  string // e.g., "fd_write"
}

// MissingImportsError is returned when linking fails because the merged
// import table does not cover every import the module declares
type MissingImportsError struct {
	Imports []MissingImport
}

// NewMissingImportsError creates an error from a list of "namespace#function" strings
func NewMissingImportsError(imports []string) *MissingImportsError {
	result := &MissingImportsError{
		Imports: make([]MissingImport, 0, len(imports)),
	}
	for _, imp := range imports {
		ns, fn := parseImportKey(imp)
		result.Imports = append(result.Imports, MissingImport{
			Namespace: ns,
			Function:  fn,
		})
	}
	return result
}

func parseImportKey(key string) (namespace, function string) {
	ns, fn, found := strings.Cut(key, "#")
	if found {
		return ns, fn
	}
	return key, ""
}

func (e *MissingImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "[linking] missing_import: no imports specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("missing %d host function(s):\n", len(e.Imports)))

	// Group by namespace for cleaner output
	byNS := make(map[string][]string)
	var nsOrder []string
	for _, imp := range e.Imports {
		if _, exists := byNS[imp.Namespace]; !exists {
			nsOrder = append(nsOrder, imp.Namespace)
		}
		byNS[imp.Namespace] = append(byNS[imp.Namespace], imp.Function)
	}

	for _, ns := range nsOrder {
		b.WriteString("\n  ")
		b.WriteString(ns)
		b.WriteString(":\n")
		for _, fn := range byNS[ns] {
			b.WriteString("    - ")
			b.WriteString(fn)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingImportsError) Is(target error) bool {
	_, ok := target.(*MissingImportsError)
	return ok
}
