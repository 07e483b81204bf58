package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Module is a validated, compiled guest module. It is immutable and safe to
// share across instantiations; each instantiation gets its own memory and
// tables.
type Module struct {
	compiled wazero.CompiledModule
	size     int
}

// Name returns the module's declared name, if the binary carries one.
func (m *Module) Name() string {
	return m.compiled.Name()
}

// Size returns the size of the source bytecode in bytes.
func (m *Module) Size() int {
	return m.size
}

// ImportedFunctions lists every function import the module declares. The
// link layer resolves these against the merged import table before
// instantiation.
func (m *Module) ImportedFunctions() []api.FunctionDefinition {
	return m.compiled.ImportedFunctions()
}

// Compiled exposes the underlying wazero handle for instantiation.
func (m *Module) Compiled() wazero.CompiledModule {
	return m.compiled
}

// Close releases the compiled code. Closing the engine releases all of its
// modules as well.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}
