package imports

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero/api"

	"github.com/nor2/wasi-harness/errors"
)

// Func is a host implementation invoked when the guest calls the import.
// args holds the raw core values in declared parameter order. The returned
// slice must match the declared result kinds in length; the dispatch
// wrapper enforces this and panics with a contract violation otherwise.
//
// Implementations run synchronously on the guest's calling thread and must
// assume concurrent calls are possible when the guest spawns threads.
type Func func(ctx context.Context, mod api.Module, args []uint64) []uint64

// Signature identifies a host function by (namespace, name) and fixes its
// core value types.
type Signature struct {
	Namespace string
	Name      string
	Params    []api.ValueType
	Results   []api.ValueType
}

// Key returns the canonical "namespace#name" form.
func (s Signature) Key() string {
	return s.Namespace + "#" + s.Name
}

// TypeString renders the core shape, e.g. "(i32, i32)->(i32)".
func (s Signature) TypeString() string {
	return FormatTypes(s.Params) + "->" + FormatTypes(s.Results)
}

// FormatTypes renders a core value type list as "(i32, f32)".
func FormatTypes(types []api.ValueType) string {
	if len(types) == 0 {
		return "()"
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = api.ValueTypeName(t)
	}
	return "(" + strings.Join(names, ", ") + ")"
}

// Binding pairs a Signature with its host implementation.
type Binding struct {
	Signature Signature
	fn        Func
}

// Wrap adapts the implementation to the engine's raw calling convention.
// Parameters are copied out of the shared stack before the implementation
// runs, and the declared result arity is enforced on the way back.
func (b *Binding) Wrap() api.GoModuleFunc {
	sig := b.Signature
	fn := b.fn
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		args := make([]uint64, len(sig.Params))
		copy(args, stack)
		results := fn(ctx, mod, args)
		if len(results) != len(sig.Results) {
			panic(errors.Contract(sig.Namespace, sig.Name,
				fmt.Sprintf("implementation returned %d result(s), signature declares %d",
					len(results), len(sig.Results))))
		}
		copy(stack, results)
	}
}

var validTypes = map[api.ValueType]bool{
	api.ValueTypeI32:       true,
	api.ValueTypeI64:       true,
	api.ValueTypeF32:       true,
	api.ValueTypeF64:       true,
	api.ValueTypeExternref: true,
	api.ValueTypeFuncref:   true,
}

// Registry collects host import bindings before linking.
// Safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	order     []*Binding
	index     map[string]*Binding
	finalized bool
}

func NewRegistry() *Registry {
	return &Registry{
		index: make(map[string]*Binding),
	}
}

// Register adds a binding for (namespace, name). It fails with a
// duplicate_import error if the pair is already registered, leaving the
// existing binding unchanged, and with a state error after Finalize.
// Signatures are validated eagerly: empty names, nil implementations and
// unknown value types are rejected here, not at call time.
func (r *Registry) Register(namespace, name string, params, results []api.ValueType, fn Func) error {
	if namespace == "" {
		return errors.InvalidInput(errors.PhaseHost, "namespace cannot be empty")
	}
	if name == "" {
		return errors.InvalidInput(errors.PhaseHost, "function name cannot be empty")
	}
	if fn == nil {
		return errors.New(errors.PhaseHost, errors.KindInvalidInput).
			Import(namespace, name).
			Detail("implementation cannot be nil").
			Build()
	}
	for _, t := range params {
		if !validTypes[t] {
			return errors.New(errors.PhaseHost, errors.KindTypeMismatch).
				Import(namespace, name).
				Detail("unknown parameter value type 0x%x", t).
				Build()
		}
	}
	for _, t := range results {
		if !validTypes[t] {
			return errors.New(errors.PhaseHost, errors.KindTypeMismatch).
				Import(namespace, name).
				Detail("unknown result value type 0x%x", t).
				Build()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized {
		return errors.State(errors.PhaseHost, "registry is finalized, no further registrations")
	}

	sig := Signature{
		Namespace: namespace,
		Name:      name,
		Params:    append([]api.ValueType(nil), params...),
		Results:   append([]api.ValueType(nil), results...),
	}
	if _, exists := r.index[sig.Key()]; exists {
		return errors.DuplicateImport(namespace, name)
	}

	b := &Binding{Signature: sig, fn: fn}
	r.index[sig.Key()] = b
	r.order = append(r.order, b)
	return nil
}

// Len returns the number of registered bindings.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Finalize freezes the registry and returns the immutable table the link
// layer consumes. Iteration preserves registration order.
func (r *Registry) Finalize() *Table {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finalized = true

	index := make(map[string]*Binding, len(r.index))
	for k, v := range r.index {
		index[k] = v
	}
	return &Table{
		order: append([]*Binding(nil), r.order...),
		index: index,
	}
}

// Table is an immutable, ordered collection of import bindings keyed by
// (namespace, name). Safe to share across instantiations.
type Table struct {
	order []*Binding
	index map[string]*Binding
}

// EmptyTable returns a table with no bindings.
func EmptyTable() *Table {
	return &Table{index: make(map[string]*Binding)}
}

func (t *Table) Len() int {
	return len(t.order)
}

// Lookup returns the binding for (namespace, name) if present.
func (t *Table) Lookup(namespace, name string) (*Binding, bool) {
	b, ok := t.index[namespace+"#"+name]
	return b, ok
}

// Namespaces returns the distinct namespaces in first-registration order.
func (t *Table) Namespaces() []string {
	var order []string
	seen := make(map[string]bool)
	for _, b := range t.order {
		if !seen[b.Signature.Namespace] {
			seen[b.Signature.Namespace] = true
			order = append(order, b.Signature.Namespace)
		}
	}
	return order
}

// Bindings returns the bindings of one namespace in registration order.
func (t *Table) Bindings(namespace string) []*Binding {
	var out []*Binding
	for _, b := range t.order {
		if b.Signature.Namespace == namespace {
			out = append(out, b)
		}
	}
	return out
}

// All returns every binding in registration order.
func (t *Table) All() []*Binding {
	return append([]*Binding(nil), t.order...)
}
