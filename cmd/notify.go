package cmd

import (
	"os"

	"github.com/lukman83/matcha-stock/internal/app"
	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify [email|sms|brand-email]",
	Short: "Send restock notifications for the last lookback window",
	Long: `Finds products whose latest check is in stock while the one before it was
out of stock, then notifies their subscribers. "brand-email" sends one digest
per brand subscriber instead of one email per product.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{app.ChannelEmail, app.ChannelSMS, app.ChannelBrandEmail},
	RunE:      runNotify,
}

func init() {
	notifyCmd.Flags().Duration("lookback", 0, "Detection window (default from config, 1h)")
	rootCmd.AddCommand(notifyCmd)
}

func runNotify(cmd *cobra.Command, args []string) error {
	if d, _ := cmd.Flags().GetDuration("lookback"); d > 0 {
		cfg.Lookback = d
	}

	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	rep, err := a.Notify(ctx, args[0])
	if err != nil {
		a.Logger().Errorw("notify aborted", "channel", args[0], "error", err)
		return err
	}
	rep.Outcomes = nil
	return writeJSON(os.Stdout, rep)
}
