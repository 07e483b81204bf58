package imports

import (
	"context"
	"errors"
	"testing"

	"github.com/tetratelabs/wazero/api"

	herrors "github.com/nor2/wasi-harness/errors"
)

func nopFunc(ctx context.Context, mod api.Module, args []uint64) []uint64 {
	return nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	err := r.Register("Integers", "a6", []api.ValueType{api.ValueTypeI32}, nil, nopFunc)
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRegistry_RegisterValidation(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		fnName    string
		params    []api.ValueType
		results   []api.ValueType
		fn        Func
		wantKind  herrors.Kind
	}{
		{
			name:     "empty namespace",
			fnName:   "f",
			fn:       nopFunc,
			wantKind: herrors.KindInvalidInput,
		},
		{
			name:      "empty function name",
			namespace: "env",
			fn:        nopFunc,
			wantKind:  herrors.KindInvalidInput,
		},
		{
			name:      "nil implementation",
			namespace: "env",
			fnName:    "f",
			wantKind:  herrors.KindInvalidInput,
		},
		{
			name:      "unknown param type",
			namespace: "env",
			fnName:    "f",
			params:    []api.ValueType{0x42},
			fn:        nopFunc,
			wantKind:  herrors.KindTypeMismatch,
		},
		{
			name:      "unknown result type",
			namespace: "env",
			fnName:    "f",
			results:   []api.ValueType{0x42},
			fn:        nopFunc,
			wantKind:  herrors.KindTypeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			err := r.Register(tt.namespace, tt.fnName, tt.params, tt.results, tt.fn)
			if err == nil {
				t.Fatal("expected error")
			}
			var he *herrors.Error
			if !errors.As(err, &he) {
				t.Fatalf("expected *errors.Error, got %T", err)
			}
			if he.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", he.Kind, tt.wantKind)
			}
		})
	}
}

func TestRegistry_DuplicateLeavesOriginal(t *testing.T) {
	r := NewRegistry()

	var firstCalled bool
	first := func(ctx context.Context, mod api.Module, args []uint64) []uint64 {
		firstCalled = true
		return nil
	}
	second := func(ctx context.Context, mod api.Module, args []uint64) []uint64 {
		t.Error("replacement binding must not be installed")
		return nil
	}

	if err := r.Register("strings", "a", []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, nil, first); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	err := r.Register("strings", "a", []api.ValueType{api.ValueTypeI32}, nil, second)
	if err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if !errors.Is(err, &herrors.Error{Phase: herrors.PhaseHost, Kind: herrors.KindDuplicateImport}) {
		t.Errorf("expected duplicate_import error, got %v", err)
	}

	// Existing binding unchanged: signature and implementation.
	table := r.Finalize()
	b, ok := table.Lookup("strings", "a")
	if !ok {
		t.Fatal("binding disappeared after failed duplicate registration")
	}
	if len(b.Signature.Params) != 2 {
		t.Errorf("params = %d, want 2 from first registration", len(b.Signature.Params))
	}
	b.Wrap()(context.Background(), nil, make([]uint64, 2))
	if !firstCalled {
		t.Error("first registered implementation was not preserved")
	}
}

func TestRegistry_RegisterAfterFinalize(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("env", "f", nil, nil, nopFunc); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	_ = r.Finalize()

	err := r.Register("env", "g", nil, nil, nopFunc)
	if err == nil {
		t.Fatal("expected registration after Finalize to fail")
	}
	if !errors.Is(err, &herrors.Error{Phase: herrors.PhaseHost, Kind: herrors.KindState}) {
		t.Errorf("expected state error, got %v", err)
	}
}

func TestTable_Order(t *testing.T) {
	r := NewRegistry()

	regs := []struct{ ns, name string }{
		{"Integers", "a6"},
		{"strings", "a"},
		{"strings", "b"},
		{"rust", "wasmImportFloat32Param"},
		{"strings", "c"},
	}
	for _, reg := range regs {
		if err := r.Register(reg.ns, reg.name, nil, nil, nopFunc); err != nil {
			t.Fatalf("Register(%s#%s): %v", reg.ns, reg.name, err)
		}
	}

	table := r.Finalize()
	if table.Len() != len(regs) {
		t.Fatalf("Len = %d, want %d", table.Len(), len(regs))
	}

	wantNS := []string{"Integers", "strings", "rust"}
	gotNS := table.Namespaces()
	if len(gotNS) != len(wantNS) {
		t.Fatalf("Namespaces = %v, want %v", gotNS, wantNS)
	}
	for i := range wantNS {
		if gotNS[i] != wantNS[i] {
			t.Errorf("Namespaces[%d] = %q, want %q", i, gotNS[i], wantNS[i])
		}
	}

	wantStrings := []string{"a", "b", "c"}
	got := table.Bindings("strings")
	if len(got) != len(wantStrings) {
		t.Fatalf("Bindings(strings) = %d entries, want %d", len(got), len(wantStrings))
	}
	for i, b := range got {
		if b.Signature.Name != wantStrings[i] {
			t.Errorf("Bindings(strings)[%d] = %q, want %q", i, b.Signature.Name, wantStrings[i])
		}
	}

	all := table.All()
	for i, b := range all {
		if b.Signature.Namespace != regs[i].ns || b.Signature.Name != regs[i].name {
			t.Errorf("All[%d] = %s#%s, want %s#%s",
				i, b.Signature.Namespace, b.Signature.Name, regs[i].ns, regs[i].name)
		}
	}
}

func TestTable_Lookup(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("wasi", "thread-spawn",
		[]api.ValueType{api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}, nopFunc); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	table := r.Finalize()

	if _, ok := table.Lookup("wasi", "thread-spawn"); !ok {
		t.Error("Lookup should find registered binding")
	}
	if _, ok := table.Lookup("wasi", "nonexistent"); ok {
		t.Error("Lookup should miss unknown name")
	}
	if _, ok := table.Lookup("nope", "thread-spawn"); ok {
		t.Error("Lookup should miss unknown namespace")
	}
}

func TestBinding_WrapPassesArgsAndResults(t *testing.T) {
	r := NewRegistry()
	err := r.Register("math", "add",
		[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
		[]api.ValueType{api.ValueTypeI32},
		func(ctx context.Context, mod api.Module, args []uint64) []uint64 {
			return []uint64{args[0] + args[1]}
		})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	b, _ := r.Finalize().Lookup("math", "add")
	stack := []uint64{2, 40}
	b.Wrap()(context.Background(), nil, stack)
	if stack[0] != 42 {
		t.Errorf("result = %d, want 42", stack[0])
	}
}

func TestBinding_WrapResultArityViolation(t *testing.T) {
	r := NewRegistry()
	// Declared one i32 result, implementation returns none.
	err := r.Register("env", "broken", nil, []api.ValueType{api.ValueTypeI32},
		func(ctx context.Context, mod api.Module, args []uint64) []uint64 {
			return nil
		})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	b, _ := r.Finalize().Lookup("env", "broken")

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected contract violation panic, results were silently truncated")
		}
		he, ok := rec.(*herrors.Error)
		if !ok {
			t.Fatalf("panic value = %T, want *errors.Error", rec)
		}
		if he.Kind != herrors.KindContract {
			t.Errorf("Kind = %v, want %v", he.Kind, herrors.KindContract)
		}
		if he.Namespace != "env" || he.Name != "broken" {
			t.Errorf("violation names %s#%s, want env#broken", he.Namespace, he.Name)
		}
	}()

	b.Wrap()(context.Background(), nil, make([]uint64, 1))
}

func TestSignature_TypeString(t *testing.T) {
	sig := Signature{
		Namespace: "math",
		Name:      "add",
		Params:    []api.ValueType{api.ValueTypeI32, api.ValueTypeF32},
		Results:   []api.ValueType{api.ValueTypeI64},
	}
	got := sig.TypeString()
	if got != "(i32, f32)->(i64)" {
		t.Errorf("TypeString = %q", got)
	}

	empty := Signature{Namespace: "env", Name: "nop"}
	if empty.TypeString() != "()->()" {
		t.Errorf("TypeString = %q, want ()->()", empty.TypeString())
	}
}

func TestRegistry_ConcurrentRegister(t *testing.T) {
	r := NewRegistry()
	done := make(chan error, 16)
	for i := 0; i < 16; i++ {
		i := i
		go func() {
			done <- r.Register("env", string(rune('a'+i)), nil, nil, nopFunc)
		}()
	}
	for i := 0; i < 16; i++ {
		if err := <-done; err != nil {
			t.Errorf("concurrent Register error: %v", err)
		}
	}
	if r.Len() != 16 {
		t.Errorf("Len = %d, want 16", r.Len())
	}
}
