package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [brand]",
	Short: "Show the latest recorded stock status of a brand's products",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().String("format", "table", "Output format: json, table")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	st, err := a.Store(ctx)
	if err != nil {
		return err
	}
	brand, err := st.BrandByName(ctx, args[0])
	if err != nil {
		return err
	}
	statuses, err := st.LatestStatuses(ctx, brand.ID)
	if err != nil {
		return err
	}

	if format == "json" {
		return writeJSON(os.Stdout, statuses)
	}
	printStatusTable(os.Stdout, statuses)
	return nil
}
