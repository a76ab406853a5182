package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// serviceVersion is one row of the version report.
type serviceVersion struct {
	Service string                       `json:"service"           yaml:"service"`
	Version *exstream.ServiceVersionInfo `json:"version,omitempty" yaml:"version,omitempty"`
	Error   string                       `json:"error,omitempty"   yaml:"error,omitempty"`
}

// NewServiceVersionCommand creates the service-version command.
func NewServiceVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "service-version",
		Short: "Show backend service versions",
		Long:  "Query the version endpoints of the configured design, orchestration and Empower services",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := newClient(ctx)
			if err != nil {
				return err
			}

			versions, err := collectServiceVersions(ctx, client)

			renderErr := renderOutput(cmd.OutOrStdout(), versions, func(w io.Writer) error {
				table := tablewriter.NewWriter(w)
				table.Header("Service", "Version", "API", "Error")

				for _, row := range versions {
					version, api := constants.NotAvailable, constants.NotAvailable
					if row.Version != nil {
						version = row.Version.VersionString
						api = valueOrNA(row.Version.APIIdentifier)
					}

					_ = table.Append(row.Service, version, api, row.Error)
				}

				return renderTable(table)
			})
			if renderErr != nil {
				return renderErr
			}

			return err
		},
	}
}

// collectServiceVersions queries every configured service concurrently.
// Failures are reported per row and aggregated in the error.
func collectServiceVersions(ctx context.Context, client exstream.Client) ([]serviceVersion, error) {
	checks := []struct {
		service string
		key     string
		get     func(context.Context) (*exstream.ServiceVersionInfo, error)
	}{
		{needDesign, KeyDesignURL, client.Resources().GetVersion},
		{needOrchestration, KeyOrchestrationURL, client.Outputs().GetVersion},
		{needEmpower, KeyEmpowerURL, client.Editor().GetVersion},
	}

	versions := make([]serviceVersion, len(checks))
	errs := make([]error, len(checks))

	var group errgroup.Group

	for index, check := range checks {
		versions[index].Service = check.service

		if viper.GetString(check.key) == "" {
			versions[index].Error = "not configured"

			continue
		}

		group.Go(func() error {
			info, err := check.get(ctx)
			if err != nil {
				versions[index].Error = err.Error()
				errs[index] = fmt.Errorf("%s: %w", check.service, err)

				return nil
			}

			versions[index].Version = info

			return nil
		})
	}

	_ = group.Wait()

	var result *multierror.Error
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	return versions, result.ErrorOrNil()
}
