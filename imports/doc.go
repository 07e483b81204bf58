// Package imports implements the typed host import registry.
//
// The registry lets the host declare functions the guest may call, each
// under a (namespace, name) pair with an explicit core value type
// signature. The guest's own type declarations are never trusted: the link
// layer checks the module's imports against these signatures before any
// instantiation happens.
//
// Registration is eager-validated and duplicate pairs are rejected:
//
//	reg := imports.NewRegistry()
//	err := reg.Register("Integers", "a6: func(x: s32) -> ()",
//		[]api.ValueType{api.ValueTypeI32}, nil,
//		func(ctx context.Context, mod api.Module, args []uint64) []uint64 {
//			fmt.Println("a6:", int32(args[0]))
//			return nil
//		})
//
// Finalize freezes the set into an immutable, registration-ordered Table:
//
//	table := reg.Finalize()
//	inst, err := rt.Link(ctx, env, mod, table)
//
// Implementations receive raw core values and must return exactly the
// declared number of results; a mismatch is a programming error surfaced as
// a contract-violation panic, never a silent truncation.
package imports
