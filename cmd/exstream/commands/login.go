package commands

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/exstream-client/pkg/exclient"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check sign-in against the identity service",
		Long: `Acquire a token for every configured grant and report the result.

Tokens are kept in memory only; each command signs in again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			config, err := buildClientConfig()
			if err != nil {
				return err
			}

			client, err := exclient.New(ctx, config)
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			var report []grantStatus

			switch {
			case config.AccessToken != "":
				token, tokenErr := client.Tokens().AccessToken(ctx, false)
				report = append(report, describeGrant("static token", token, tokenErr))
			default:
				if config.HasUserCredentials() {
					token, tokenErr := client.Tokens().AccessToken(ctx, true)
					report = append(report, describeGrant("password", token, tokenErr))
				}

				if config.HasServiceCredentials() {
					token, tokenErr := client.Tokens().ServiceAccessToken(ctx, true)
					report = append(report, describeGrant("client_credentials", token, tokenErr))
				}
			}

			err = renderOutput(cmd.OutOrStdout(), report, func(w io.Writer) error {
				table := tablewriter.NewWriter(w)
				table.Header("Grant", "Status", "Expires", "Error")

				for _, row := range report {
					_ = table.Append(row.Grant, row.Status, valueOrNA(row.Expires), row.Error)
				}

				return renderTable(table)
			})
			if err != nil {
				return err
			}

			for _, row := range report {
				if row.Status != "ok" {
					return fmt.Errorf("%w: %s", ErrLoginFailed, row.Grant)
				}
			}

			return nil
		},
	}
}
