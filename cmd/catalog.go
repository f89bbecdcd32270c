package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog [name]",
	Short: "Scrape a collection, upsert its products and record their stock",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCatalog,
}

func init() {
	catalogCmd.Flags().Int("pages", 0, "Number of collection pages to scrape (default from config)")
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	name := "matchajp"
	if len(args) == 1 {
		name = args[0]
	}
	if pages, _ := cmd.Flags().GetInt("pages"); pages > 0 {
		cfg.MatchaJPPages = pages
	}

	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	sum, err := a.SyncCatalog(ctx, name)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, sum)
}
