// Package runtimectx carries the per-run state that the original C runtime
// kept as compile-time macros and thread-local globals: feature toggles,
// tunable limits, and the first-error-wins failure register. Every CORE
// entry point (wasm/binary.Decode, validator.Validate, instantiate.Instantiate)
// takes one of these explicitly instead of reaching for global state.
package runtimectx

import "fmt"

// Features is a bitset of optional Wasm proposals. Only the validator
// consults it: with a bit unset, it rejects the sign-extension opcodes, the
// saturating truncations, the bulk-memory and table.init/copy/elem.drop
// opcodes, the tail calls, ref.null and table.get/set. The decoder does not
// check it, and select t, ref.is_null, ref.func and table.grow/size/fill
// validate whatever bits are set.
type Features uint32

const (
	FeatureBulkMemory Features = 1 << iota
	FeatureReferenceTypes
	FeatureTailCall
	FeatureSignExtension
	FeatureSaturatingTruncation
)

var featureNames = map[Features]string{
	FeatureBulkMemory:           "bulk-memory",
	FeatureReferenceTypes:       "reference-types",
	FeatureTailCall:             "tail-call",
	FeatureSignExtension:        "sign-extension",
	FeatureSaturatingTruncation: "saturating-truncation",
}

// Has reports whether every bit in want is set in f.
func (f Features) Has(want Features) bool {
	return f&want == want
}

// Require returns an error naming the first missing feature in want, or nil
// if f has them all.
func (f Features) Require(want Features) error {
	missing := want &^ f
	if missing == 0 {
		return nil
	}
	for bit := FeatureBulkMemory; bit <= FeatureSaturatingTruncation; bit <<= 1 {
		if missing&bit != 0 {
			return fmt.Errorf("runtimectx: feature %q not enabled", featureNames[bit])
		}
	}
	return fmt.Errorf("runtimectx: unknown feature bits 0x%x not enabled", uint32(missing))
}

// AllFeatures enables every optional proposal this runtime understands.
const AllFeatures Features = FeatureBulkMemory | FeatureReferenceTypes | FeatureTailCall |
	FeatureSignExtension | FeatureSaturatingTruncation
