//go:build integration

package integration

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/exstream-client/pkg/exclient"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

func TestClient_SignInAndListDomains(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	client := config.NewClient(t)
	ctx := context.Background()

	token, err := client.Tokens().AccessToken(ctx, false)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	domains, err := exclient.WithRefreshRetry(ctx, client, func(ctx context.Context) ([]exstream.Domain, error) {
		return client.Resources().ListDomains(ctx)
	})
	require.NoError(t, err)
	assert.NotEmpty(t, domains)

	info, err := client.Resources().GetVersion(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, info.VersionString)
}

func TestClient_ApprovedDocuments(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	if config.Domain == "" {
		t.Skip("EXSTREAM_IT_DOMAIN not set, skipping integration test")
	}

	client := config.NewClient(t)

	filter := exstream.NewResourceFilter().
		WithTypes(exstream.ResourceTypeDocument).
		WithStates(exstream.WorkflowStateApproved).
		WithLatestVersion(true)

	resources, err := client.Resources().List(context.Background(), config.Domain, filter, nil)
	require.NoError(t, err)

	for _, resource := range resources {
		assert.Equal(t, exstream.WorkflowStateApproved, resource.State)
	}
}

func TestClient_Generate(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	if config.Domain == "" || config.CommunicationID == "" || config.DriverFile == "" {
		t.Skip("EXSTREAM_IT_DOMAIN, EXSTREAM_IT_COMMUNICATION or EXSTREAM_IT_DRIVER not set, skipping integration test")
	}

	driver, err := os.ReadFile(config.DriverFile)
	require.NoError(t, err)

	client := config.NewClient(t)
	ctx := context.Background()

	dataSource, err := client.Links().FindPrimaryDataSource(ctx, config.Domain, config.CommunicationID)
	require.NoError(t, err)

	outputs, err := exclient.WithServiceRefreshRetry(ctx, client, func(ctx context.Context) ([]exstream.GeneratedOutput, error) {
		return client.Outputs().Generate(ctx, config.Domain, &exstream.GenerateRequest{
			CommunicationID:  config.CommunicationID,
			DriverDataSource: dataSource,
			DriverData:       driver,
		})
	})
	require.NoError(t, err)
	require.NotEmpty(t, outputs)
	assert.NotEmpty(t, outputs[0].OutputFileName())
}
