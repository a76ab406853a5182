package client

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/exstream-client/internal/endpoints"
	internalhttp "github.com/fivetwenty-io/exstream-client/internal/http"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// EditorClient implements exstream.EditorClient.
type EditorClient struct {
	httpClient *internalhttp.Client
	resolver   *endpoints.Resolver
}

// NewEditorClient creates a new editor client.
func NewEditorClient(httpClient *internalhttp.Client, resolver *endpoints.Resolver) *EditorClient {
	return &EditorClient{
		httpClient: httpClient,
		resolver:   resolver,
	}
}

// OpenDocumentURL returns the browser URL that opens documentID in the editor.
func (c *EditorClient) OpenDocumentURL(documentID string) string {
	return c.resolver.EditorOpen(documentID).String()
}

// GetVersion returns the Empower service version. Empower wraps it in a
// header/body envelope.
func (c *EditorClient) GetVersion(ctx context.Context) (*exstream.ServiceVersionInfo, error) {
	resp, err := c.httpClient.Get(ctx, c.resolver.EmpowerVersion().String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get Empower version: %w", err)
	}

	var result exstream.EditorResponse[exstream.ServiceVersionInfo]

	err = internalhttp.DecodeJSON(resp, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Empower version response: %w", err)
	}

	return &result.Body, nil
}
