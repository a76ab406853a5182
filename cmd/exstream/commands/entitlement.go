package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewEntitlementCommand creates the entitlement command.
func NewEntitlementCommand() *cobra.Command {
	var (
		userID       string
		subscription string
		refresh      bool
	)

	cmd := &cobra.Command{
		Use:   "entitlement",
		Short: "Print an entitlement token",
		Long:  "Fetch the entitlement token of a user and subscription from the entitlement service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := newClient(ctx, needEntitlement)
			if err != nil {
				return err
			}

			if userID == "" {
				userID = viper.GetString(KeyUsername)
			}

			if subscription == "" {
				subscription = viper.GetString(KeySubscription)
			}

			token, err := client.Entitlements().GetTokenFor(ctx, userID, subscription, refresh)
			if err != nil {
				return fmt.Errorf("failed to get entitlement token: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)

			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (defaults to the configured username)")
	cmd.Flags().StringVar(&subscription, "subscription-name", "", "subscription (defaults to the configured subscription)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cached token")

	return cmd
}
