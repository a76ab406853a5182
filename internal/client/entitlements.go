package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
	"github.com/fivetwenty-io/exstream-client/internal/endpoints"
	internalhttp "github.com/fivetwenty-io/exstream-client/internal/http"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// HeaderEntitlementToken carries the entitlement token in the search response.
const HeaderEntitlementToken = "ETSToken"

// EntitlementDefaults are the identity values used by GetToken.
type EntitlementDefaults struct {
	ClientID         string
	UserID           string
	SubscriptionName string
}

// EntitlementsClient implements exstream.EntitlementsClient. Tokens are
// cached per user and subscription and reused until a refresh is forced.
type EntitlementsClient struct {
	httpClient *internalhttp.Client
	resolver   *endpoints.Resolver
	defaults   EntitlementDefaults

	mu     sync.RWMutex
	tokens map[string]string
	group  singleflight.Group
}

// NewEntitlementsClient creates a new entitlements client.
func NewEntitlementsClient(httpClient *internalhttp.Client, resolver *endpoints.Resolver, defaults *EntitlementDefaults) *EntitlementsClient {
	client := &EntitlementsClient{
		httpClient: httpClient,
		resolver:   resolver,
		tokens:     make(map[string]string),
	}

	if defaults != nil {
		client.defaults = *defaults
	}

	return client
}

// GetToken returns the entitlement token of the configured user and
// subscription.
func (c *EntitlementsClient) GetToken(ctx context.Context, forceRefresh bool) (string, error) {
	return c.GetTokenFor(ctx, c.defaults.UserID, c.defaults.SubscriptionName, forceRefresh)
}

// GetTokenFor returns the entitlement token of userID in subscriptionName.
func (c *EntitlementsClient) GetTokenFor(ctx context.Context, userID, subscriptionName string, forceRefresh bool) (string, error) {
	key := userID + "|" + subscriptionName

	if forceRefresh {
		return c.fetch(ctx, key, userID, subscriptionName)
	}

	if token, ok := c.cached(key); ok {
		return token, nil
	}

	results := c.group.DoChan(key, func() (interface{}, error) {
		if token, ok := c.cached(key); ok {
			return token, nil
		}

		// Waiters keep the shared fetch alive after the first caller leaves.
		return c.fetch(context.WithoutCancel(ctx), key, userID, subscriptionName)
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("failed to fetch entitlement token: %w", ctx.Err())
	case result := <-results:
		if result.Err != nil {
			return "", result.Err
		}

		token, _ := result.Val.(string)

		return token, nil
	}
}

func (c *EntitlementsClient) cached(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	token, ok := c.tokens[key]

	return token, ok
}

func (c *EntitlementsClient) fetch(ctx context.Context, key, userID, subscriptionName string) (string, error) {
	uri := c.resolver.Entitlement(c.defaults.ClientID, userID, subscriptionName)
	if uri == nil {
		return "", constants.ErrNoEntitlementURL
	}

	resp, err := c.httpClient.Do(ctx, &internalhttp.Request{
		Method: http.MethodGet,
		Path:   uri.String(),
		Accept: constants.MediaTypeHALJSON,
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch entitlement token: %w", err)
	}

	token := resp.Headers.Get(HeaderEntitlementToken)
	if token == "" {
		return "", exstream.ErrEntitlementTokenMissing
	}

	c.mu.Lock()
	c.tokens[key] = token
	c.mu.Unlock()

	return token, nil
}
