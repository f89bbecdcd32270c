package cmd

import (
	"errors"
	"fmt"

	"github.com/lukman83/matcha-stock/config"
	"github.com/lukman83/matcha-stock/internal/store"
	"github.com/spf13/cobra"
)

var subscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Subscribe an email or phone number to a brand or product",
	Args:  cobra.NoArgs,
	RunE:  runSubscribe,
}

var unsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe",
	Short: "Verify an unsubscribe token and deactivate the subscriptions it covers",
	Long: `Verifies the token from an unsubscribe link and deactivates the matching
subscriptions. --brand or --product limits it to one target; with neither,
every product subscription of the email is deactivated.`,
	Args: cobra.NoArgs,
	RunE: runUnsubscribe,
}

func init() {
	for _, c := range []*cobra.Command{subscribeCmd, unsubscribeCmd} {
		c.Flags().String("email", "", "Subscriber email")
		c.Flags().String("brand", "", "Brand ID")
		c.Flags().String("product", "", "Product ID")
		c.MarkFlagsMutuallyExclusive("brand", "product")
	}
	subscribeCmd.Flags().String("phone", "", "Subscriber phone number (E.164) for SMS")
	subscribeCmd.MarkFlagsOneRequired("email", "phone")
	subscribeCmd.MarkFlagsOneRequired("brand", "product")

	unsubscribeCmd.Flags().String("token", "", "Token from the unsubscribe link")
	_ = unsubscribeCmd.MarkFlagRequired("email")
	_ = unsubscribeCmd.MarkFlagRequired("token")

	rootCmd.AddCommand(subscribeCmd, unsubscribeCmd)
}

// target reads --brand/--product into a subscription kind and id.
func target(cmd *cobra.Command) (store.SubscriptionKind, string) {
	if id, _ := cmd.Flags().GetString("brand"); id != "" {
		return store.KindBrand, id
	}
	id, _ := cmd.Flags().GetString("product")
	return store.KindProduct, id
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	phone, _ := cmd.Flags().GetString("phone")
	kind, id := target(cmd)
	if err := config.ValidateContact(email, phone); err != nil {
		return err
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
	if err := st.Subscribe(ctx, email, phone, kind, id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "subscribed to %s %s\n", kind, id)
	return nil
}

func runUnsubscribe(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	token, _ := cmd.Flags().GetString("token")
	kind, id := target(cmd)

	a, cleanup, err := newApp()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	n, err := a.Unsubscribe(ctx, email, token, kind, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("no active subscription matched")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "unsubscribed %s from %d %s subscription(s)\n", email, n, kind)
	return nil
}
