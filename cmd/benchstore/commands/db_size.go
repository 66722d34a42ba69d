package commands

import (
	"github.com/spf13/cobra"
)

// dbSizeCmd reports on-disk size per table/collection
var dbSizeCmd = &cobra.Command{
	Use:   "db-size",
	Short: "Report stored size per table and collection",
	Long: `Db-size reports bytes used per relational table (data plus indexes)
and per document collection, and the totals. The numbers come from each
engine's own accounting, so they compare storage footprints, not raw
row bytes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDBSize(cmd)
	},
}

func init() {
	rootCmd.AddCommand(dbSizeCmd)
}

func runDBSize(cmd *cobra.Command) error {
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

	reports, err := rt.eng.DatabaseSize(ctx, target)
	if err != nil {
		return err
	}
	if err := printJSON(reports); err != nil {
		return err
	}
	return rt.finish()
}
