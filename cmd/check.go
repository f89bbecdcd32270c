package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/lukman83/matcha-stock/internal/platform"
	"github.com/lukman83/matcha-stock/internal/ui"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [url]",
	Short: "Classify the stock status of a single product URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("format", "table", "Output format: json, table")
	checkCmd.Flags().Bool("render", false, "Render the page in a headless browser and look for the sold-out selector")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	render, _ := cmd.Flags().GetBool("render")

	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	spin := ui.NewSpinner(os.Stderr, !color.NoColor)
	spin.Start(fmt.Sprintf("Checking %s...", cleanURL(args[0])))
	ctx = platform.WithProgress(ctx, spin.Update)
	res, err := a.Check(ctx, args[0], render)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	switch format {
	case "json":
		return writeJSON(os.Stdout, res)
	default:
		printResultTable(os.Stdout, args[0], res)
	}
	return nil
}
