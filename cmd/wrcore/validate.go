package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vertexdlt/wrcore/runtimectx"
	"github.com/vertexdlt/wrcore/validator"
	"github.com/vertexdlt/wrcore/wasm/binary"
)

var validateFeatures []string

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Decode and validate a Wasm binary, reporting pass/fail per function",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringSliceVar(&validateFeatures, "enable", nil,
		"proposal features to enable: bulk-memory, reference-types, tail-call, sign-extension, saturating-truncation (default: all)")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}

	features, err := parseFeatures(validateFeatures)
	if err != nil {
		return err
	}
	ctx := runtimectx.NewContext(features, runtimectx.DefaultConfig())

	logger.WithField("file", args[0]).Debug("decoding module")
	m, err := binary.Decode(raw, ctx)
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), bad("decode failed: %v", err))
		return err
	}

	failed := 0
	for i, fn := range m.FunctionIndexSpace[m.ImportedFuncCount:] {
		idx := int(m.ImportedFuncCount) + i
		if verr := validator.Validate(fn, m, ctx); verr != nil {
			failed++
			fmt.Fprintln(cmd.OutOrStdout(), bad("function %d: FAIL: %v", idx, verr))
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), ok("function %d: PASS (%d cells, %d blocks, %d branch entries)",
			idx, fn.MaxStackCellNum, fn.MaxBlockNum, len(fn.BranchTable)))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d functions failed validation (first: %v)", failed, len(m.FunctionIndexSpace)-int(m.ImportedFuncCount), ctx.FirstError())
	}
	fmt.Fprintln(cmd.OutOrStdout(), info("all functions valid"))
	return nil
}

func parseFeatures(names []string) (runtimectx.Features, error) {
	if len(names) == 0 {
		return runtimectx.AllFeatures, nil
	}
	table := map[string]runtimectx.Features{
		"bulk-memory":           runtimectx.FeatureBulkMemory,
		"reference-types":       runtimectx.FeatureReferenceTypes,
		"tail-call":             runtimectx.FeatureTailCall,
		"sign-extension":        runtimectx.FeatureSignExtension,
		"saturating-truncation": runtimectx.FeatureSaturatingTruncation,
	}
	var features runtimectx.Features
	for _, name := range names {
		bit, known := table[name]
		if !known {
			return 0, fmt.Errorf("unknown feature %q", name)
		}
		features |= bit
	}
	return features, nil
}
