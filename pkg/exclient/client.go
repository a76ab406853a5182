package exclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/fivetwenty-io/exstream-client/internal/client"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// Static errors for err113 compliance.
var (
	ErrConfigRequired = exstream.ErrConfigRequired
	ErrClientRequired = errors.New("client is required")
)

// New creates a new Exstream client from config.
// The config is normalized and validated in place before any client is built.
func New(ctx context.Context, config *exstream.Config) (exstream.Client, error) {
	if config == nil {
		return nil, ErrConfigRequired
	}

	config.Normalize()

	err := config.Validate()
	if err != nil {
		return nil, err
	}

	exClient, err := client.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return exClient, nil
}

// NewWithToken creates a client that uses a static bearer token against
// every service rooted at serviceURL.
func NewWithToken(ctx context.Context, serviceURL, token string) (exstream.Client, error) {
	return New(ctx, &exstream.Config{
		Mode:             exstream.DeploymentLocal,
		DesignURL:        serviceURL,
		OrchestrationURL: serviceURL,
		EmpowerURL:       serviceURL,
		AccessToken:      token,
	})
}

// NewWithPassword creates a hosted client that signs in with the password
// grant. All services are rooted at serviceURL.
func NewWithPassword(ctx context.Context, identityURL, serviceURL, tenant, subscription, clientID, username, password string) (exstream.Client, error) {
	return New(ctx, &exstream.Config{
		Mode:             exstream.DeploymentHosted,
		IdentityURL:      identityURL,
		DesignURL:        serviceURL,
		OrchestrationURL: serviceURL,
		EmpowerURL:       serviceURL,
		Tenant:           tenant,
		SubscriptionName: subscription,
		ClientID:         clientID,
		Username:         username,
		Password:         password,
	})
}

// NewWithClientCredentials creates a hosted client that only holds service
// credentials, enough for output generation and fulfillment.
func NewWithClientCredentials(ctx context.Context, identityURL, serviceURL, tenant, subscription, clientID, clientSecret string) (exstream.Client, error) {
	return New(ctx, &exstream.Config{
		Mode:                exstream.DeploymentHosted,
		IdentityURL:         identityURL,
		DesignURL:           serviceURL,
		OrchestrationURL:    serviceURL,
		EmpowerURL:          serviceURL,
		Tenant:              tenant,
		SubscriptionName:    subscription,
		ServiceClientID:     clientID,
		ServiceClientSecret: clientSecret,
	})
}

// WithRefreshRetry runs call and, if it fails with 401, forces a new
// delegated token and runs it once more.
func WithRefreshRetry[T any](ctx context.Context, exClient exstream.Client, call func(context.Context) (T, error)) (T, error) {
	return withRefreshRetry(ctx, exClient, false, call)
}

// WithServiceRefreshRetry is WithRefreshRetry for calls made with the
// service token, such as output generation.
func WithServiceRefreshRetry[T any](ctx context.Context, exClient exstream.Client, call func(context.Context) (T, error)) (T, error) {
	return withRefreshRetry(ctx, exClient, true, call)
}

func withRefreshRetry[T any](ctx context.Context, exClient exstream.Client, service bool, call func(context.Context) (T, error)) (T, error) {
	var zero T

	if exClient == nil {
		return zero, ErrClientRequired
	}

	result, err := call(ctx)
	if err == nil || !exstream.IsUnauthorized(err) {
		return result, err
	}

	if service {
		_, err = exClient.Tokens().ServiceAccessToken(ctx, true)
	} else {
		_, err = exClient.Tokens().AccessToken(ctx, true)
	}

	if err != nil {
		return zero, fmt.Errorf("failed to refresh token: %w", err)
	}

	return call(ctx)
}
