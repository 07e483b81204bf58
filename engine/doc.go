// Package engine wraps wazero to load and validate guest modules.
//
// An Engine owns one wazero runtime configured with a fixed Features set,
// an optional guest memory limit and an optional on-disk compilation
// cache. Load compiles bytecode into an immutable Module that the link
// layer resolves and instantiates.
//
// # Load Flow
//
//  1. NewWithConfig creates the runtime with the declared feature set
//  2. Engine.Load compiles and validates the bytecode
//  3. Module.ImportedFunctions feeds pre-instantiation import resolution
//  4. Module.Compiled is handed to the link layer for instantiation
//
// Bytecode requiring a proposal outside the configured Features fails at
// Load; nothing is instantiated for a module that did not validate.
package engine
