package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
	"github.com/fivetwenty-io/exstream-client/pkg/exclient"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// driverContentTypes maps driver file extensions to the media type sent
// with the driver data.
var driverContentTypes = map[string]string{
	".json": constants.MediaTypeJSON,
	".xml":  "text/xml",
	".csv":  "text/csv",
	".txt":  "text/plain",
}

// outputFlags are shared by the generation commands.
type outputFlags struct {
	communicationID string
	dataSource      string
	drivers         []string
	contentType     string
	outputType      string
	outDir          string
	outFile         string
	concurrency     int
}

func (f *outputFlags) register(cmd *cobra.Command, withDrivers bool) {
	cmd.Flags().StringVar(&f.communicationID, "communication", "", "communication id (required)")
	cmd.Flags().StringVar(&f.dataSource, "data-source", "", "driver data source; resolved from the manifest when empty")
	cmd.Flags().StringVar(&f.outputType, "type", "", "return raw content of this type (pdf, html, empower, json)")
	cmd.Flags().StringVar(&f.outDir, "out-dir", ".", "directory for generated outputs")
	cmd.Flags().StringVar(&f.outFile, "out-file", "", "file for raw content; stdout when empty")
	_ = cmd.MarkFlagRequired("communication")

	if withDrivers {
		cmd.Flags().StringSliceVar(&f.drivers, "driver", nil, "driver data file (repeatable)")
		cmd.Flags().StringVar(&f.contentType, "content-type", "", "driver media type; guessed from the extension when empty")
		cmd.Flags().IntVar(&f.concurrency, "concurrency", exstream.DefaultBatchConcurrency, "requests in flight for several drivers")
	}
}

// savedOutput is one row of the generation report.
type savedOutput struct {
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"`
	Queue  string `json:"queue"            yaml:"queue"`
	File   string `json:"file"             yaml:"file"`
	Path   string `json:"path"             yaml:"path"`
}

// NewOutputCommand creates the output command group.
func NewOutputCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "output",
		Aliases: []string{"outputs"},
		Short:   "Generate and fulfill output",
		Long:    "Submit on-demand generation and Empower fulfillment requests to the orchestration service",
	}

	cmd.AddCommand(newOutputGenerateCommand())
	cmd.AddCommand(newOutputEmpowerCommand())
	cmd.AddCommand(newOutputFulfillCommand())

	return cmd
}

func newOutputGenerateCommand() *cobra.Command {
	flags := &outputFlags{}

	cmd := &cobra.Command{
		Use:   "generate DOMAIN",
		Short: "Generate output for driver data",
		Long: `Generate on-demand output for one or more driver files.

Each output is saved to --out-dir as fileName.fileExtension. With --type the
raw content of a single driver is written to --out-file or stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			domain := args[0]

			if len(flags.drivers) == 0 {
				return ErrDriverRequired
			}

			outputType, err := parseOutputTypeFlag(flags.outputType)
			if err != nil {
				return err
			}

			if outputType != "" && len(flags.drivers) > 1 {
				return ErrSingleDriverOnly
			}

			client, dataSource, err := newOutputClient(ctx, domain, flags)
			if err != nil {
				return err
			}

			requests := make([]*exstream.GenerateRequest, 0, len(flags.drivers))

			for _, driver := range flags.drivers {
				request, err := buildGenerateRequest(driver, flags, dataSource)
				if err != nil {
					return err
				}

				requests = append(requests, request)
			}

			if outputType != "" {
				content, err := exclient.WithServiceRefreshRetry(ctx, client, func(ctx context.Context) ([]byte, error) {
					return client.Outputs().GenerateContent(ctx, domain, requests[0], outputType)
				})
				if err != nil {
					return fmt.Errorf("failed to generate output: %w", err)
				}

				return writeContent(cmd.OutOrStdout(), flags.outFile, content)
			}

			saved, err := generateBatch(ctx, client, domain, flags, requests)
			if len(saved) > 0 {
				renderErr := renderSavedOutputs(cmd.OutOrStdout(), saved)
				if renderErr != nil {
					return renderErr
				}
			}

			return err
		},
	}

	flags.register(cmd, true)

	return cmd
}

// generateBatch submits one request per driver and saves the outputs. With
// several drivers each driver gets its own subdirectory.
func generateBatch(ctx context.Context, client exstream.Client, domain string, flags *outputFlags, requests []*exstream.GenerateRequest) ([]savedOutput, error) {
	builder := exstream.NewBatchBuilder()
	for index, request := range requests {
		builder.AddGenerate(flags.drivers[index], domain, request)
	}

	results, batchErr := exstream.NewBatchExecutor(client.Outputs(), flags.concurrency).Execute(ctx, builder.Build())

	var saved []savedOutput

	for _, result := range results {
		if !result.Success {
			continue
		}

		dir := flags.outDir
		if len(results) > 1 {
			dir = filepath.Join(flags.outDir, strings.TrimSuffix(filepath.Base(result.ID), filepath.Ext(result.ID)))
		}

		paths, err := saveOutputs(fileSystem, dir, result.Outputs)
		if err != nil {
			return saved, err
		}

		for index, path := range paths {
			saved = append(saved, savedOutput{
				Driver: result.ID,
				Queue:  result.Outputs[index].QueueName,
				File:   result.Outputs[index].OutputFileName(),
				Path:   path,
			})
		}
	}

	if batchErr != nil {
		return saved, fmt.Errorf("failed to generate output: %w", batchErr)
	}

	return saved, nil
}

func newOutputEmpowerCommand() *cobra.Command {
	var (
		flags       = &outputFlags{}
		empowerUser string
		open        bool
	)

	cmd := &cobra.Command{
		Use:   "empower DOMAIN",
		Short: "Create an Empower document from driver data",
		Long:  "Generate an Empower document for an editing user and print its document id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			if empowerUser == "" {
				return constants.ErrEmpowerUserRequired
			}

			if len(flags.drivers) != 1 {
				return ErrDriverRequired
			}

			client, dataSource, err := newOutputClient(ctx, args[0], flags)
			if err != nil {
				return err
			}

			request, err := buildGenerateRequest(flags.drivers[0], flags, dataSource)
			if err != nil {
				return err
			}

			request.EmpowerUser = empowerUser

			documentID, err := exclient.WithServiceRefreshRetry(ctx, client, func(ctx context.Context) (string, error) {
				return client.Outputs().GenerateEmpowerDocument(ctx, args[0], request)
			})
			if err != nil {
				return fmt.Errorf("failed to create Empower document: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), documentID)

			if open {
				return openInBrowser(cmd.ErrOrStderr(), client.Editor().OpenDocumentURL(documentID))
			}

			return nil
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVar(&empowerUser, "empower-user", "", "Empower user who edits the document (required)")
	cmd.Flags().BoolVar(&open, "open", false, "open the document in the editor")

	return cmd
}

func newOutputFulfillCommand() *cobra.Command {
	var (
		flags    = &outputFlags{}
		preserve bool
	)

	cmd := &cobra.Command{
		Use:   "fulfill DOMAIN DOCUMENT_ID",
		Short: "Fulfill an Empower document",
		Long:  "Produce final output for an edited Empower document",
		Args:  cobra.ExactArgs(2), //nolint:mnd // domain and document
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			domain := args[0]

			outputType, err := parseOutputTypeFlag(flags.outputType)
			if err != nil {
				return err
			}

			client, dataSource, err := newOutputClient(ctx, domain, flags)
			if err != nil {
				return err
			}

			request := &exstream.FulfillRequest{
				DocumentID:        args[1],
				CommunicationID:   flags.communicationID,
				DriverDataSource:  dataSource,
				PreserveDocuments: preserve,
			}

			if outputType != "" {
				content, err := exclient.WithServiceRefreshRetry(ctx, client, func(ctx context.Context) ([]byte, error) {
					return client.Outputs().FulfillContent(ctx, domain, request, outputType)
				})
				if err != nil {
					return fmt.Errorf("failed to fulfill document: %w", err)
				}

				return writeContent(cmd.OutOrStdout(), flags.outFile, content)
			}

			outputs, err := exclient.WithServiceRefreshRetry(ctx, client, func(ctx context.Context) ([]exstream.GeneratedOutput, error) {
				return client.Outputs().Fulfill(ctx, domain, request)
			})
			if err != nil {
				return fmt.Errorf("failed to fulfill document: %w", err)
			}

			paths, err := saveOutputs(fileSystem, flags.outDir, outputs)
			if err != nil {
				return err
			}

			saved := make([]savedOutput, 0, len(paths))
			for index, path := range paths {
				saved = append(saved, savedOutput{
					Queue: outputs[index].QueueName,
					File:  outputs[index].OutputFileName(),
					Path:  path,
				})
			}

			return renderSavedOutputs(cmd.OutOrStdout(), saved)
		},
	}

	flags.register(cmd, false)
	cmd.Flags().BoolVar(&preserve, "preserve", false, "keep the Empower document after fulfillment")

	return cmd
}

// newOutputClient builds a client and resolves the driver data source from
// the manifest when none was given.
func newOutputClient(ctx context.Context, domain string, flags *outputFlags) (exstream.Client, string, error) {
	needs := []string{needOrchestration}
	if flags.dataSource == "" {
		needs = append(needs, needDesign)
	}

	client, err := newClient(ctx, needs...)
	if err != nil {
		return nil, "", err
	}

	if flags.dataSource != "" {
		return client, flags.dataSource, nil
	}

	dataSource, err := client.Links().FindPrimaryDataSource(ctx, domain, flags.communicationID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve data source: %w", err)
	}

	return client, dataSource, nil
}

func buildGenerateRequest(driver string, flags *outputFlags, dataSource string) (*exstream.GenerateRequest, error) {
	data, err := readInputFile(fileSystem, driver)
	if err != nil {
		return nil, err
	}

	contentType := flags.contentType
	if contentType == "" {
		contentType = driverContentTypes[strings.ToLower(filepath.Ext(driver))]
	}

	return &exstream.GenerateRequest{
		CommunicationID:  flags.communicationID,
		DriverDataSource: dataSource,
		DriverData:       data,
		ContentType:      contentType,
	}, nil
}

func parseOutputTypeFlag(value string) (exstream.OutputType, error) {
	if value == "" {
		return "", nil
	}

	outputType, err := exstream.ParseOutputType(value)
	if err != nil {
		return "", fmt.Errorf("%w: %w", constants.ErrInvalidOutputType, err)
	}

	return outputType, nil
}

func writeContent(stdout io.Writer, path string, content []byte) error {
	if path == "" {
		_, err := stdout.Write(content)
		if err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}

		return nil
	}

	return saveContent(fileSystem, path, content)
}

func renderSavedOutputs(w io.Writer, saved []savedOutput) error {
	return renderOutput(w, saved, func(w io.Writer) error {
		table := tablewriter.NewWriter(w)
		table.Header("Driver", "Queue", "File", "Path")

		for _, row := range saved {
			_ = table.Append(valueOrNA(row.Driver), row.Queue, row.File, row.Path)
		}

		return renderTable(table)
	})
}
