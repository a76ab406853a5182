package commands

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewManifestCommand creates the manifest command group.
func NewManifestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Read communication set manifests",
	}

	cmd.AddCommand(newManifestGetCommand())

	return cmd
}

func newManifestGetCommand() *cobra.Command {
	var communicationID string

	cmd := &cobra.Command{
		Use:   "get DOMAIN [COMMUNICATION_SET_ID]",
		Short: "Show the data sources and output queues of a communication set",
		Long:  "Show a manifest. With --communication the owning communication set is looked up first.",
		Args:  cobra.RangeArgs(1, 2), //nolint:mnd // domain and optional set
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			if len(args) == 1 && communicationID == "" {
				return ErrCommunicationSetRequired
			}

			client, err := newClient(ctx, needDesign)
			if err != nil {
				return err
			}

			var setID string
			if len(args) == 2 { //nolint:mnd // set id given
				setID = args[1]
			} else {
				setID, err = client.Links().FindCommunicationSetID(ctx, args[0], communicationID)
				if err != nil {
					return fmt.Errorf("failed to find communication set: %w", err)
				}
			}

			manifest, err := client.Resources().GetManifest(ctx, args[0], setID)
			if err != nil {
				return fmt.Errorf("failed to get manifest: %w", err)
			}

			return renderOutput(cmd.OutOrStdout(), manifest, func(w io.Writer) error {
				sources := tablewriter.NewWriter(w)
				sources.Header("Data Source", "Production DSN", "Type", "Resource")

				for _, source := range manifest.DataSources {
					_ = sources.Append(source.Name, source.ProdDSN, source.Type, source.ResourceID)
				}

				err := renderTable(sources)
				if err != nil {
					return err
				}

				queues := tablewriter.NewWriter(w)
				queues.Header("Queue", "Driver", "Use", "Production File")

				for _, queue := range manifest.Queues {
					_ = queues.Append(queue.Name, queue.Driver, queue.Use, queue.ProdFile)
				}

				err = renderTable(queues)
				if err != nil {
					return err
				}

				_, _ = fmt.Fprintf(w, "Empower output: %t, PDF output: %t\n", manifest.HasEmpowerOutput(), manifest.HasPDFOutput())

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&communicationID, "communication", "", "resolve the set owning this communication")

	return cmd
}
