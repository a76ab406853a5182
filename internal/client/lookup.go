package client

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// FindCommunicationSetID returns the id of the communication set that
// communicationID links to. The communication is the link subject and the
// object of the first matching link wins.
func (c *LinksClient) FindCommunicationSetID(ctx context.Context, domain, communicationID string) (string, error) {
	filter := exstream.NewResourceFilter().WithTypes(exstream.ResourceTypeCommunicationSet)

	links, err := c.List(ctx, domain, communicationID, nil, constants.CommunicationSetLinkDepth, filter)
	if err != nil {
		return "", err
	}

	if len(links) == 0 || links[0].ObjectID == "" {
		return "", fmt.Errorf("%w: communication %s in domain %s", exstream.ErrCommunicationSetNotFound, communicationID, domain)
	}

	return links[0].ObjectID, nil
}

// FindPrimaryDataSource returns the production DSN of the first data source
// declared by the communication set that owns communicationID.
func (c *LinksClient) FindPrimaryDataSource(ctx context.Context, domain, communicationID string) (string, error) {
	setID, err := c.FindCommunicationSetID(ctx, domain, communicationID)
	if err != nil {
		return "", err
	}

	manifest, err := c.resources.GetManifest(ctx, domain, setID)
	if err != nil {
		return "", err
	}

	source, ok := manifest.PrimaryDataSource()
	if !ok {
		return "", fmt.Errorf("%w: communication set %s", exstream.ErrNoDataSource, setID)
	}

	return source.ProdDSN, nil
}
