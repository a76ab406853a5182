package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
)

// NewLinksCommand creates the links command group.
func NewLinksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "links",
		Aliases: []string{"link"},
		Short:   "Query resource links",
		Long:    "Query the links between resources and walk them to owning resources",
	}

	cmd.AddCommand(newLinksListCommand())
	cmd.AddCommand(newLinksRecursiveCommand())
	cmd.AddCommand(newLinksOwnerCommand())

	return cmd
}

func newLinksListCommand() *cobra.Command {
	var (
		version int
		depth   int
		types   []string
	)

	cmd := &cobra.Command{
		Use:   "list DOMAIN SUBJECT_ID",
		Short: "List links of a subject resource",
		Args:  cobra.ExactArgs(2), //nolint:mnd // domain and subject
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			filter, err := buildResourceFilter(types, nil)
			if err != nil {
				return err
			}

			var subjectVersion *int
			if cmd.Flags().Changed("version") {
				subjectVersion = &version
			}

			client, err := newClient(ctx, needDesign)
			if err != nil {
				return err
			}

			links, err := client.Links().List(ctx, args[0], args[1], subjectVersion, depth, filter)
			if err != nil {
				return fmt.Errorf("failed to list links: %w", err)
			}

			return renderOutput(cmd.OutOrStdout(), links, func(w io.Writer) error {
				if len(links) == 0 {
					_, _ = fmt.Fprintln(w, "No links found")

					return nil
				}

				table := tablewriter.NewWriter(w)
				table.Header("Subject", "Subject Version", "Object", "Type")

				for _, link := range links {
					_ = table.Append(link.SubjectID, strconv.Itoa(link.SubjectVersion), link.ObjectID, link.TypeID)
				}

				return renderTable(table)
			})
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "subject version")
	cmd.Flags().IntVar(&depth, "depth", 1, "link depth")
	cmd.Flags().StringSliceVar(&types, "type", nil, "filter by linked resource type (repeatable)")

	return cmd
}

func newLinksRecursiveCommand() *cobra.Command {
	var (
		depth  int
		types  []string
		latest bool
	)

	cmd := &cobra.Command{
		Use:   "recursive DOMAIN OBJECT_ID",
		Short: "List the resources that link to an object",
		Long:  "Walk links from an object up to the resources that aggregate it",
		Args:  cobra.ExactArgs(2), //nolint:mnd // domain and object
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			filter, err := buildResourceFilter(types, nil)
			if err != nil {
				return err
			}

			if latest {
				filter.WithLatestVersion(true)
			}

			client, err := newClient(ctx, needDesign)
			if err != nil {
				return err
			}

			resources, err := client.Links().ListRecursive(ctx, args[0], args[1], depth, filter)
			if err != nil {
				return fmt.Errorf("failed to walk links: %w", err)
			}

			return renderOutput(cmd.OutOrStdout(), resources, func(w io.Writer) error {
				if len(resources) == 0 {
					_, _ = fmt.Fprintln(w, "No linked resources found")

					return nil
				}

				return renderResourceTable(w, resources)
			})
		},
	}

	cmd.Flags().IntVar(&depth, "depth", constants.DeepLinkDepth, "link depth")
	cmd.Flags().StringSliceVar(&types, "type", nil, "filter by resource type (repeatable)")
	cmd.Flags().BoolVar(&latest, "latest", false, "only latest versions")

	return cmd
}

// ownerInfo is the owning communication set of a communication.
type ownerInfo struct {
	CommunicationID    string `json:"communication_id"              yaml:"communication_id"`
	CommunicationSetID string `json:"communication_set_id"          yaml:"communication_set_id"`
	DataSource         string `json:"primary_data_source,omitempty" yaml:"primary_data_source,omitempty"`
}

func newLinksOwnerCommand() *cobra.Command {
	var dataSource bool

	cmd := &cobra.Command{
		Use:   "owner DOMAIN COMMUNICATION_ID",
		Short: "Find the communication set owning a communication",
		Args:  cobra.ExactArgs(2), //nolint:mnd // domain and communication
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := newClient(ctx, needDesign)
			if err != nil {
				return err
			}

			info := ownerInfo{CommunicationID: args[1]}

			info.CommunicationSetID, err = client.Links().FindCommunicationSetID(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to find communication set: %w", err)
			}

			if dataSource {
				info.DataSource, err = client.Links().FindPrimaryDataSource(ctx, args[0], args[1])
				if err != nil {
					return fmt.Errorf("failed to find primary data source: %w", err)
				}
			}

			return renderOutput(cmd.OutOrStdout(), info, func(w io.Writer) error {
				table := tablewriter.NewWriter(w)
				table.Header("Property", "Value")
				_ = table.Append("Communication", info.CommunicationID)
				_ = table.Append("Communication Set", info.CommunicationSetID)

				if dataSource {
					_ = table.Append("Primary Data Source", info.DataSource)
				}

				return renderTable(table)
			})
		},
	}

	cmd.Flags().BoolVar(&dataSource, "data-source", false, "also resolve the primary data source")

	return cmd
}
