package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

const defaultJSONIndent = 2

func validateOutputFormat(format string) error {
	switch format {
	case constants.FormatTable, constants.FormatJSON, constants.FormatYAML:
		return nil
	default:
		return fmt.Errorf("%w: %s", constants.ErrInvalidOutputFormat, format)
	}
}

// renderOutput writes data in the configured output format. table renders
// the table form.
func renderOutput(w io.Writer, data interface{}, table func(w io.Writer) error) error {
	format := viper.GetString(KeyOutput)
	if format == "" {
		format = constants.FormatTable
	}

	err := validateOutputFormat(format)
	if err != nil {
		return err
	}

	switch format {
	case constants.FormatJSON:
		return renderJSON(w, data)
	case constants.FormatYAML:
		return renderYAML(w, data)
	default:
		return table(w)
	}
}

func renderJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", strings.Repeat(" ", defaultJSONIndent))

	err := encoder.Encode(data)
	if err != nil {
		return fmt.Errorf("encoding data to JSON: %w", err)
	}

	return nil
}

func renderYAML(w io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(defaultJSONIndent)

	err := encoder.Encode(data)
	if err != nil {
		return fmt.Errorf("encoding data to YAML: %w", err)
	}

	return encoder.Close()
}

func renderTable(table *tablewriter.Table) error {
	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func renderResourceTable(w io.Writer, resources []exstream.ResourceVersion) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Version", "Name", "Type", "State", "Locked", "Modified")

	for _, resource := range resources {
		locked := ""
		if resource.Locked {
			locked = constants.CheckMarkSymbol
		}

		_ = table.Append(
			resource.ID.String(),
			strconv.Itoa(resource.Version),
			resource.Name,
			string(resource.Type),
			string(resource.State),
			locked,
			formatTimestamp(resource.LastModifiedDate),
		)
	}

	return renderTable(table)
}

func renderResource(w io.Writer, resource *exstream.ResourceVersion) error {
	return renderOutput(w, resource, func(w io.Writer) error {
		return renderResourceTable(w, []exstream.ResourceVersion{*resource})
	})
}

func formatTimestamp(ts exstream.Timestamp) string {
	if ts.IsZero() {
		return constants.NotAvailable
	}

	return ts.Format("2006-01-02 15:04:05")
}

func valueOrNA(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}
