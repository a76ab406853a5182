package commands

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
)

// NewDomainsCommand creates the domains command group.
func NewDomainsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "domains",
		Aliases: []string{"domain"},
		Short:   "Manage design domains",
		Long:    "List the design domains of the tenant",
	}

	cmd.AddCommand(newDomainsListCommand())

	return cmd
}

func newDomainsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := newClient(ctx, needDesign)
			if err != nil {
				return err
			}

			domains, err := client.Resources().ListDomains(ctx)
			if err != nil {
				return fmt.Errorf("failed to list domains: %w", err)
			}

			return renderOutput(cmd.OutOrStdout(), domains, func(w io.Writer) error {
				if len(domains) == 0 {
					_, _ = fmt.Fprintln(w, "No domains found")

					return nil
				}

				table := tablewriter.NewWriter(w)
				table.Header("ID", "Workflow", "Production", "Parent")

				for _, domain := range domains {
					production := ""
					if domain.Production {
						production = constants.CheckMarkSymbol
					}

					_ = table.Append(domain.ID, domain.Workflow, production, valueOrNA(domain.Parent))
				}

				return renderTable(table)
			})
		},
	}
}
