package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded database migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().Bool("rollback", false, "Roll back the last batch of migrations instead")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	rollback, _ := cmd.Flags().GetBool("rollback")

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

	var versions []string
	verb := "applied"
	if rollback {
		verb = "rolled back"
		versions, err = st.Rollback(ctx)
	} else {
		versions, err = st.Migrate(ctx)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(versions) == 0 {
		fmt.Fprintln(out, "nothing to do")
		return nil
	}
	for _, v := range versions {
		fmt.Fprintf(out, "%s %s\n", verb, v)
	}
	return nil
}
