package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	var (
		policy string
		commit bool
	)

	cmd := &cobra.Command{
		Use:   "import DOMAIN PACKAGE",
		Short: "Import a design package",
		Long: `Import a design package into a domain.

Without --commit the import is a dry run: the outcome is computed but
nothing is stored. The conflict policy is ERROR, REPLACE, SKIP or AUTO_RENAME.`,
		Args: cobra.ExactArgs(2), //nolint:mnd // domain and package
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			generalPolicy, err := exstream.ParseImportPolicy(policy)
			if err != nil {
				return fmt.Errorf("%w: %w", constants.ErrInvalidPolicy, err)
			}

			archive, err := openInputFile(fileSystem, args[1])
			if err != nil {
				return err
			}

			defer func() { _ = archive.Close() }()

			client, err := newClient(ctx, needDesign)
			if err != nil {
				return err
			}

			outcome, err := client.Resources().Import(ctx, args[0], &exstream.ImportRequest{
				Archive:       archive,
				FileName:      filepath.Base(args[1]),
				GeneralPolicy: generalPolicy,
				Commit:        commit,
			})
			if err != nil {
				return fmt.Errorf("failed to import package: %w", err)
			}

			return renderOutput(cmd.OutOrStdout(), outcome, func(w io.Writer) error {
				return renderImportOutcome(w, outcome, commit)
			})
		},
	}

	cmd.Flags().StringVar(&policy, "policy", string(exstream.ImportPolicyError), "conflict policy")
	cmd.Flags().BoolVar(&commit, "commit", false, "store the import instead of a dry run")

	return cmd
}

func renderImportOutcome(w io.Writer, outcome *exstream.ImportOutcome, commit bool) error {
	mode := "dry run"
	if commit {
		mode = "committed"
	}

	_, _ = fmt.Fprintf(w, "Import %s with policy %s\n", mode, outcome.Policies.GeneralPolicy)

	table := tablewriter.NewWriter(w)
	table.Header("Outcome", "ID", "Name", "Type", "Version", "Action")

	sections := []struct {
		label     string
		resources []exstream.ImportFoundResource
	}{
		{"imported", outcome.ImportedResources},
		{"ignored", outcome.IgnoredResources},
		{"existing", outcome.ExistingResources},
	}

	for _, section := range sections {
		for _, resource := range section.resources {
			_ = table.Append(section.label, resource.ID, resource.Name, string(resource.Type), strconv.Itoa(resource.Version), "")
		}
	}

	for _, resource := range outcome.ConflictedResources {
		action := string(resource.PerformedAction)
		if resource.NewName != "" {
			action += " as " + resource.NewName
		}

		_ = table.Append("conflicted", resource.ID, resource.Name, string(resource.Type), strconv.Itoa(resource.Version), action)
	}

	return renderTable(table)
}
