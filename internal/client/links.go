package client

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/exstream-client/internal/endpoints"
	internalhttp "github.com/fivetwenty-io/exstream-client/internal/http"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// LinksClient implements exstream.LinksClient.
type LinksClient struct {
	httpClient *internalhttp.Client
	resolver   *endpoints.Resolver
	resources  exstream.ResourcesClient
}

// NewLinksClient creates a new links client. Resources is used by the
// composed lookups to read manifests.
func NewLinksClient(httpClient *internalhttp.Client, resolver *endpoints.Resolver, resources exstream.ResourcesClient) *LinksClient {
	return &LinksClient{
		httpClient: httpClient,
		resolver:   resolver,
		resources:  resources,
	}
}

// List lists the links of a subject. A nil subjectVersion lets the server
// pick the latest version.
func (c *LinksClient) List(ctx context.Context, domain, subjectID string, subjectVersion *int, depth int, filter *exstream.ResourceFilter) ([]exstream.Link, error) {
	uri := c.resolver.Links(domain, subjectID, subjectVersion, depth, filter)

	resp, err := c.httpClient.Get(ctx, uri.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	var result exstream.PageResponse[exstream.Link]

	err = internalhttp.DecodeJSON(resp, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse links response: %w", err)
	}

	return result.Data, nil
}

// ListRecursive lists the resources that link to objectID within depth
// hops. A depth of zero or less returns no resources without a request.
func (c *LinksClient) ListRecursive(ctx context.Context, domain, objectID string, depth int, filter *exstream.ResourceFilter) ([]exstream.ResourceVersion, error) {
	if depth <= 0 {
		return []exstream.ResourceVersion{}, nil
	}

	uri := c.resolver.RecursiveLinks(domain, objectID, depth, filter)

	resp, err := c.httpClient.Get(ctx, uri.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list recursive links: %w", err)
	}

	var result exstream.PageResponse[exstream.ResourceVersion]

	err = internalhttp.DecodeJSON(resp, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recursive links response: %w", err)
	}

	return result.Data, nil
}
