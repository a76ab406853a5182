package commands

import (
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// DescribeError formats a command error for the terminal, adding the hint of
// well-known backend errors.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}

	message := "Error: " + err.Error()

	if backendErr, ok := exstream.AsBackendError(err); ok {
		if hint := backendErr.Hint(); hint != "" {
			message += "\nHint: " + hint
		}
	}

	if exstream.IsAuthenticationError(err) {
		message += "\nHint: check the OTDS credentials, tenant and subscription"
	}

	return message
}
