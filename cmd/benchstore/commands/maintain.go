package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var agedCutoff string

// updateStaleCmd applies the configured stale-order policy
var updateStaleCmd = &cobra.Command{
	Use:   "update-stale",
	Short: "Mark stale pending orders Updated and rewrite their customers' addresses",
	Long: `Update-stale selects Pending orders inside the configured date window
whose total value exceeds the configured threshold, sets their status to
Updated, and overwrites the address of every customer owning at least one
such order. The two statements run sequentially, not atomically.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUpdateStale(cmd)
	},
}

// deleteAgedCmd removes orders older than a cutoff date
var deleteAgedCmd = &cobra.Command{
	Use:   "delete-aged",
	Short: "Delete orders placed before a cutoff date, with their line items",
	Long: `Delete-aged removes every order whose order date precedes the cutoff,
deleting the orders' line items first. Customers, products and categories
are left in place.

Example:
  benchstore delete-aged --before 2023-01-01`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDeleteAged(cmd)
	},
}

// deleteAllCmd empties every table and collection
var deleteAllCmd = &cobra.Command{
	Use:   "delete-all",
	Short: "Delete every row and document, children before parents",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDeleteAll(cmd)
	},
}

func init() {
	rootCmd.AddCommand(updateStaleCmd)
	rootCmd.AddCommand(deleteAgedCmd)
	rootCmd.AddCommand(deleteAllCmd)

	deleteAgedCmd.Flags().StringVar(&agedCutoff, "before", "", "Cutoff date, YYYY-MM-DD (required)")
	_ = deleteAgedCmd.MarkFlagRequired("before")
}

func runUpdateStale(cmd *cobra.Command) error {
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

	results, err := rt.eng.UpdateStaleOrders(ctx, target)
	if err != nil {
		return err
	}
	if err := printJSON(results); err != nil {
		return err
	}
	return rt.finish()
}

func runDeleteAged(cmd *cobra.Command) error {
	cutoff, err := time.Parse("2006-01-02", agedCutoff)
	if err != nil {
		return fmt.Errorf("--before: %w", err)
	}
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

	results, err := rt.eng.DeleteAgedOrders(ctx, target, cutoff)
	if err != nil {
		return err
	}
	if err := printJSON(results); err != nil {
		return err
	}
	return rt.finish()
}

func runDeleteAll(cmd *cobra.Command) error {
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

	if err := rt.eng.DeleteAll(ctx, target); err != nil {
		return err
	}
	fmt.Println(`{"deleted": "all"}`)
	return rt.finish()
}
