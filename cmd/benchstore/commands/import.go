package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"dualstore-benchmark/internal/rowsource"
	"dualstore-benchmark/internal/store"
	"dualstore-benchmark/internal/util"

	"go.uber.org/zap"
)

// importCmd loads a spreadsheet into the selected store(s)
var importCmd = &cobra.Command{
	Use:   "import <workbook.xlsx>",
	Short: "Import spreadsheet order data",
	Long: `Import reads order rows from the first sheet of an .xlsx workbook,
normalizes them into categories, customers, products, orders and line
items, and loads the selected store(s).

The dual target runs the strict relational import, which refuses the
whole batch when any order id was imported before. The single-store
targets use the idempotent bulk path that skips conflicting keys
(relational) or replaces the documents (document).

Examples:
  benchstore import orders.xlsx
  benchstore import orders.xlsx --store relational --relational-backend mysql`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, path string) error {
	target, err := parseTarget()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	rt, err := newRuntime(ctx, target)
	if err != nil {
		return err
	}
	defer rt.close(ctx)

	reports, err := rt.eng.Import(ctx, rowsource.NewXLSXSource(path), target)
	if err != nil {
		var dup *store.DuplicateOrderError
		if errors.As(err, &dup) {
			util.GetLogger().Warn("import refused", zap.String("orderId", dup.OrderID))
		}
		return err
	}
	if err := printJSON(reports); err != nil {
		return err
	}
	return rt.finish()
}
