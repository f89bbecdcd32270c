package cmd

import (
	"os"
	"strings"

	"github.com/lukman83/matcha-stock/internal/platform"
	"github.com/spf13/cobra"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape [brand...]",
	Short: "Check every product of the given brands and record the results",
	Long: `Checks each stored product of the named brands one at a time and appends a
stock check per product. Without arguments every brand with a registered
checker is processed. A registered catalog name (e.g. "matchajp") runs that
collection scraper instead, like the catalog command.`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	var brands []string
	for _, name := range args {
		if _, err := platform.GetCataloger(name); err == nil {
			sum, err := a.SyncCatalog(ctx, strings.ToLower(name))
			if err != nil {
				return err
			}
			if err := writeJSON(os.Stdout, sum); err != nil {
				return err
			}
			continue
		}
		brands = append(brands, name)
	}
	if len(args) > 0 && len(brands) == 0 {
		return nil
	}

	sum, err := a.Scrape(ctx, brands)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, sum)
}
