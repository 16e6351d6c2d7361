package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vertexdlt/wrcore/instantiate"
	"github.com/vertexdlt/wrcore/runtimectx"
	"github.com/vertexdlt/wrcore/validator"
	"github.com/vertexdlt/wrcore/wasm/binary"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Decode, validate, and instantiate a module, printing its layout",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringSliceVar(&validateFeatures, "enable", nil,
		"proposal features to enable (default: all)")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}

	features, err := parseFeatures(validateFeatures)
	if err != nil {
		return err
	}
	ctx := runtimectx.NewContext(features, runtimectx.DefaultConfig())

	m, err := binary.Decode(raw, ctx)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	logger.WithFields(map[string]interface{}{
		"types":   len(m.Types),
		"funcs":   len(m.FunctionIndexSpace),
		"imports": len(m.Imports),
		"exports": len(m.Exports),
	}).Debug("module decoded")

	for i, fn := range m.FunctionIndexSpace[m.ImportedFuncCount:] {
		idx := int(m.ImportedFuncCount) + i
		if err := validator.Validate(fn, m, ctx); err != nil {
			return fmt.Errorf("function %d failed validation: %w", idx, err)
		}
	}

	inst, err := instantiate.Instantiate(m, ctx)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, info("module: %d type(s), %d function(s), %d export(s)", len(m.Types), len(m.FunctionIndexSpace), len(m.Exports)))
	for name, exp := range m.Exports {
		fmt.Fprintf(out, "  export %q: kind=%d index=%d\n", name, exp.Kind, exp.Index)
	}
	fmt.Fprintf(out, "  globals: %d byte(s) of storage across %d global(s)\n", len(inst.GlobalData), len(m.GlobalIndexSpace))
	for i, mem := range inst.Memories {
		fmt.Fprintf(out, "  memory %d: %d byte(s) (%d page(s) at %d byte(s)/page)\n",
			i, len(mem.Data), mem.Descriptor.Limits.Min, mem.Descriptor.BytesPerPage)
	}
	for i, tbl := range inst.Tables {
		fmt.Fprintf(out, "  table %d: %d slot(s)\n", i, len(tbl.Elements))
	}
	fmt.Fprintln(out, ok("instantiated successfully"))
	return nil
}
