package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// NewResourcesCommand creates the resources command group.
func NewResourcesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "resources",
		Aliases: []string{"resource", "res"},
		Short:   "Manage design resources",
		Long:    "List, create and update resources of a design domain and change their workflow state",
	}

	cmd.AddCommand(newResourcesListCommand())
	cmd.AddCommand(newResourcesCreateCommand())
	cmd.AddCommand(newResourcesUpdateContentCommand())
	cmd.AddCommand(newResourcesStateCommand())

	return cmd
}

func newResourcesListCommand() *cobra.Command {
	var (
		types  []string
		states []string
		latest bool
		count  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list DOMAIN",
		Short: "List resources",
		Long:  "List the resource versions of a domain, optionally filtered by type and state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			filter, err := buildResourceFilter(types, states)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("latest") {
				filter.WithLatestVersion(latest)
			}

			client, err := newClient(ctx, needDesign)
			if err != nil {
				return err
			}

			resources, err := client.Resources().List(ctx, args[0], filter, &exstream.PageInfo{Count: count, Offset: offset})
			if err != nil {
				return fmt.Errorf("failed to list resources: %w", err)
			}

			return renderOutput(cmd.OutOrStdout(), resources, func(w io.Writer) error {
				if len(resources) == 0 {
					_, _ = fmt.Fprintln(w, "No resources found")

					return nil
				}

				return renderResourceTable(w, resources)
			})
		},
	}

	cmd.Flags().StringSliceVar(&types, "type", nil, "filter by resource type (repeatable)")
	cmd.Flags().StringSliceVar(&states, "state", nil, "filter by workflow state (repeatable)")
	cmd.Flags().BoolVar(&latest, "latest", false, "only the latest version of each resource")
	cmd.Flags().IntVar(&count, "count", constants.DefaultPageCount, "page size")
	cmd.Flags().IntVar(&offset, "offset", constants.DefaultPageOffset, "page offset")

	return cmd
}

func newResourcesCreateCommand() *cobra.Command {
	var (
		resourceType string
		subtype      string
		file         string
	)

	cmd := &cobra.Command{
		Use:   "create DOMAIN NAME",
		Short: "Create a resource",
		Long:  "Create a new resource, optionally with initial content from a file",
		Args:  cobra.ExactArgs(2), //nolint:mnd // domain and name
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			request := &exstream.CreateResourceRequest{
				Name:    args[1],
				Type:    exstream.ResourceType(strings.ToLower(resourceType)),
				Subtype: subtype,
			}

			if file != "" {
				content, err := openInputFile(fileSystem, file)
				if err != nil {
					return err
				}

				defer func() { _ = content.Close() }()

				request.Content = content
				request.FileName = filepath.Base(file)
			}

			client, err := newClient(ctx, needDesign)
			if err != nil {
				return err
			}

			resource, err := client.Resources().Create(ctx, args[0], request)
			if err != nil {
				return fmt.Errorf("failed to create resource: %w", err)
			}

			return renderResource(cmd.OutOrStdout(), resource)
		},
	}

	cmd.Flags().StringVar(&resourceType, "type", "", "resource type (required)")
	cmd.Flags().StringVar(&subtype, "subtype", "", "resource subtype")
	cmd.Flags().StringVarP(&file, "file", "f", "", "initial content")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func newResourcesUpdateContentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update-content DOMAIN RESOURCE_ID FILE",
		Short: "Replace the content of a resource",
		Args:  cobra.ExactArgs(3), //nolint:mnd // domain, resource and file
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			content, err := openInputFile(fileSystem, args[2])
			if err != nil {
				return err
			}

			defer func() { _ = content.Close() }()

			client, err := newClient(ctx, needDesign)
			if err != nil {
				return err
			}

			resource, err := client.Resources().UpdateContent(ctx, args[0], args[1], &exstream.ContentUpload{
				Content:  content,
				FileName: filepath.Base(args[2]),
			})
			if err != nil {
				return fmt.Errorf("failed to update content: %w", err)
			}

			return renderResource(cmd.OutOrStdout(), resource)
		},
	}
}

func newResourcesStateCommand() *cobra.Command {
	var (
		comment string
		lock    bool
	)

	cmd := &cobra.Command{
		Use:   "state DOMAIN RESOURCE_ID STATE",
		Short: "Change the workflow state of a resource",
		Long: `Change the workflow state of a resource. STATE is DRAFT, REVIEW, APPROVED or REJECTED.

Moving an approved resource to DRAFT creates a new version.`,
		Args: cobra.ExactArgs(3), //nolint:mnd // domain, resource and state
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			state, err := exstream.ParseWorkflowState(args[2])
			if err != nil {
				return fmt.Errorf("%w: %w", constants.ErrInvalidState, err)
			}

			client, err := newClient(ctx, needDesign)
			if err != nil {
				return err
			}

			resource, err := client.Resources().ChangeWorkflowState(ctx, args[0], args[1], &exstream.WorkflowStateRequest{
				State:   state,
				Comment: comment,
				Lock:    lock,
			})
			if err != nil {
				return fmt.Errorf("failed to change workflow state: %w", err)
			}

			return renderResource(cmd.OutOrStdout(), resource)
		},
	}

	cmd.Flags().StringVar(&comment, "comment", "", "state change comment")
	cmd.Flags().BoolVar(&lock, "lock", false, "lock the resource")

	return cmd
}

// buildResourceFilter parses repeated --type and --state flags.
func buildResourceFilter(types, states []string) (*exstream.ResourceFilter, error) {
	filter := exstream.NewResourceFilter()

	if len(types) > 0 {
		resourceTypes := make([]exstream.ResourceType, 0, len(types))
		for _, value := range types {
			resourceTypes = append(resourceTypes, exstream.ResourceType(strings.ToLower(strings.TrimSpace(value))))
		}

		filter.WithTypes(resourceTypes...)
	}

	if len(states) > 0 {
		workflowStates := make([]exstream.WorkflowState, 0, len(states))

		for _, value := range states {
			state, err := exstream.ParseWorkflowState(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", constants.ErrInvalidState, err)
			}

			workflowStates = append(workflowStates, state)
		}

		filter.WithStates(workflowStates...)
	}

	return filter, nil
}
