package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Filter flags
	filterCategory string
	filterStatus   string
)

// filteredOrdersCmd runs the category/status query against the store(s)
var filteredOrdersCmd = &cobra.Command{
	Use:   "filtered-orders",
	Short: "Query orders by product category and status",
	Long: `Filtered-orders returns every order in the given status containing at
least one product from the given category, with customer and item detail
attached. Both stores produce the same canonical shape, so running with
--store dual puts the two results side by side.

Examples:
  benchstore filtered-orders --category Fruits --status Shipped
  benchstore filtered-orders --store document --category Electronics --status Pending`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFilteredOrders(cmd)
	},
}

func init() {
	rootCmd.AddCommand(filteredOrdersCmd)

	filteredOrdersCmd.Flags().StringVar(&filterCategory, "category", "Fruits", "Category name to filter on")
	filteredOrdersCmd.Flags().StringVar(&filterStatus, "status", "Shipped", "Order status to filter on")
}

func runFilteredOrders(cmd *cobra.Command) error {
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

	results, err := rt.eng.FilteredOrders(ctx, target, filterCategory, filterStatus)
	if err != nil {
		return err
	}
	if err := printJSON(results); err != nil {
		return err
	}
	return rt.finish()
}
