package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var brandsCmd = &cobra.Command{
	Use:   "brands",
	Short: "List and maintain brands",
}

var brandsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List brands with their product and subscription counts",
	Args:  cobra.NoArgs,
	RunE:  runBrandsList,
}

var brandsAddCmd = &cobra.Command{
	Use:   "add [name] [website]",
	Short: "Add a brand",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runBrandsAdd,
}

var brandsRenameCmd = &cobra.Command{
	Use:   "rename [old-name] [new-name]",
	Short: "Rename a brand",
	Args:  cobra.ExactArgs(2),
	RunE:  runBrandsRename,
}

func init() {
	brandsListCmd.Flags().String("format", "table", "Output format: json, table")
	brandsCmd.AddCommand(brandsListCmd, brandsAddCmd, brandsRenameCmd)
	rootCmd.AddCommand(brandsCmd)
}

func runBrandsList(cmd *cobra.Command, args []string) error {
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
	brands, err := st.BrandSummaries(ctx)
	if err != nil {
		return err
	}
	if format == "json" {
		return writeJSON(os.Stdout, brands)
	}
	printBrandsTable(os.Stdout, brands)
	return nil
}

func runBrandsAdd(cmd *cobra.Command, args []string) error {
	website := ""
	if len(args) == 2 {
		website = args[1]
	}

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
	b, err := st.CreateBrand(ctx, args[0], website)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", b.Name, b.ID)
	return nil
}

func runBrandsRename(cmd *cobra.Command, args []string) error {
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
	if err := st.RenameBrand(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "renamed %q to %q\n", args[0], args[1])
	return nil
}
