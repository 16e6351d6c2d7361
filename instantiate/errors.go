package instantiate

import "errors"

var (
	// ErrUnknownConstExprKind guards a wasm.ConstExpr carrying a Kind value
	// wasm/binary's readConstExpr never actually produces.
	ErrUnknownConstExprKind = errors.New("instantiate: unknown constant expression kind")
	// ErrForwardGlobalReference guards against a global.get initializer
	// pointing at a global later in the index space; wasm/binary's decoder
	// already rejects this while reading the global section, so reaching
	// here would mean that invariant broke.
	ErrForwardGlobalReference = errors.New("instantiate: global initializer references a later global")
)
