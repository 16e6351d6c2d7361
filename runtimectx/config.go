package runtimectx

// Config carries the tunable limits the original runtime fixed at compile
// time (spec.md §6, "Configuration").
type Config struct {
	// DefaultStackSize is the execution engine's native call-stack
	// allocation; the CORE itself never allocates it, but a validated
	// module's MaxStackCellNum is checked against an engine configured with
	// this value by convention (DEFAULT_WASM_STACK_SIZE = 16KiB upstream).
	DefaultStackSize uint32

	// BlockAddrCacheSize bounds an execution engine's block-address lookup
	// cache; the CORE does not implement that cache but the branch table it
	// emits is sized to make such a cache effective (BLOCK_ADDR_CACHE_SIZE
	// upstream).
	BlockAddrCacheSize uint32

	// DisableStackBoundsCheck mirrors DISABLE_STACK_HW_BOUND_CHECK. It is
	// carried for an execution engine; the decoder, validator and
	// instantiator do not read it. Guard pages themselves are a host-OS
	// concern, out of the CORE's scope.
	DisableStackBoundsCheck bool
}

// DefaultConfig matches the original runtime's compile-time defaults.
func DefaultConfig() Config {
	return Config{
		DefaultStackSize:        16 * 1024,
		BlockAddrCacheSize:      64,
		DisableStackBoundsCheck: false,
	}
}
