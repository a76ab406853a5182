package commands

import (
	"io"
	"slices"

	"github.com/hashicorp/go-hclog"

	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// hclogAdapter backs exstream.Logger with an hclog.Logger.
type hclogAdapter struct {
	logger hclog.Logger
}

// NewLogger creates the CLI logger. Verbose enables debug output.
func NewLogger(verbose bool, output io.Writer) exstream.Logger {
	level := hclog.Info
	if verbose {
		level = hclog.Debug
	}

	return &hclogAdapter{
		logger: hclog.New(&hclog.LoggerOptions{
			Name:   "exstream",
			Level:  level,
			Output: output,
		}),
	}
}

func (a *hclogAdapter) Debug(msg string, fields map[string]interface{}) {
	a.logger.Debug(msg, flattenFields(fields)...)
}

func (a *hclogAdapter) Info(msg string, fields map[string]interface{}) {
	a.logger.Info(msg, flattenFields(fields)...)
}

func (a *hclogAdapter) Warn(msg string, fields map[string]interface{}) {
	a.logger.Warn(msg, flattenFields(fields)...)
}

func (a *hclogAdapter) Error(msg string, fields map[string]interface{}) {
	a.logger.Error(msg, flattenFields(fields)...)
}

// flattenFields turns fields into hclog key/value pairs in key order.
func flattenFields(fields map[string]interface{}) []interface{} {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	args := make([]interface{}, 0, 2*len(keys)) //nolint:mnd // key and value
	for _, key := range keys {
		args = append(args, key, fields[key])
	}

	return args
}
