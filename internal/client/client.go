package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fivetwenty-io/exstream-client/internal/auth"
	"github.com/fivetwenty-io/exstream-client/internal/constants"
	"github.com/fivetwenty-io/exstream-client/internal/endpoints"
	"github.com/fivetwenty-io/exstream-client/internal/http"
	"github.com/fivetwenty-io/exstream-client/internal/metrics"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// Static errors for err113 compliance.
var (
	ErrConfigRequired           = errors.New("config is required")
	ErrNoTokenManagerConfigured = errors.New("no token manager configured")
)

// Service labels used for metrics and spans.
const (
	serviceDesign        = "design"
	serviceOrchestration = "orchestration"
	serviceEmpower       = "empower"
	serviceEntitlement   = "entitlement"
	serviceIdentity      = "identity"
)

// Client implements the exstream.Client interface.
type Client struct {
	resolver *endpoints.Resolver
	logger   exstream.Logger
	metrics  *metrics.Metrics
	cache    *exstream.CacheManager

	designHTTP        *http.Client
	orchestrationHTTP *http.Client
	// orchestrationDelegatedHTTP carries the password-grant token for the
	// version call.
	orchestrationDelegatedHTTP *http.Client
	empowerHTTP                *http.Client
	entitlementHTTP            *http.Client

	tokens       *TokensClient
	resources    *ResourcesClient
	links        *LinksClient
	outputs      *OutputsClient
	editor       *EditorClient
	entitlements *EntitlementsClient
}

// New creates a client from a normalized and validated configuration.
func New(ctx context.Context, config *exstream.Config) (*Client, error) {
	if config == nil {
		return nil, ErrConfigRequired
	}

	resolver := endpoints.NewResolver(config)
	m := metrics.New(config.MetricsRegisterer)

	identityHTTP := http.NewClient(config.IdentityURL, nil,
		append(createHTTPClientOptions(config, serviceIdentity, constants.DefaultHTTPTimeout),
			http.WithMetrics(m))...)

	source := createTokenSource(config, resolver, identityHTTP, m)

	return newClient(config, resolver, source, m)
}

// NewWithTokenSource creates a client that takes its tokens from source.
func NewWithTokenSource(config *exstream.Config, source TokenSource) (*Client, error) {
	if config == nil {
		return nil, ErrConfigRequired
	}

	if source == nil {
		return nil, ErrNoTokenManagerConfigured
	}

	return newClient(config, endpoints.NewResolver(config), source, metrics.New(config.MetricsRegisterer))
}

func newClient(config *exstream.Config, resolver *endpoints.Resolver, source TokenSource, m *metrics.Metrics) (*Client, error) {
	client := &Client{
		resolver: resolver,
		logger:   config.Logger,
		metrics:  m,
		tokens:   &TokensClient{source: source},
	}

	delegated := auth.NewGrantTokenManager(source, false)
	service := auth.NewGrantTokenManager(source, true)

	designOpts := createHTTPClientOptions(config, serviceDesign, constants.DefaultHTTPTimeout)
	designOpts = append(designOpts, http.WithMetrics(m))

	if config.Cache != nil {
		cacheConfig := *config.Cache
		if cacheConfig.Scope == "" {
			cacheConfig.Scope = exstream.CacheScope(config.Tenant, config.SubscriptionName)
		}

		chain, manager, err := exstream.NewCachingChain(&cacheConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create response cache: %w", err)
		}

		client.cache = manager
		designOpts = append(designOpts, http.WithInterceptors(exstream.ChainInterceptors(interceptorChain(config), chain)))
	}

	client.designHTTP = http.NewClient(resolver.DesignBase(), delegated, designOpts...)
	orchestrationOpts := append(createHTTPClientOptions(config, serviceOrchestration, constants.ExtendedHTTPTimeout), http.WithMetrics(m))
	client.orchestrationHTTP = http.NewClient(resolver.OrchestrationBase(), service, orchestrationOpts...)
	client.orchestrationDelegatedHTTP = http.NewClient(resolver.OrchestrationBase(), delegated, orchestrationOpts...)
	client.empowerHTTP = http.NewClient(resolver.EmpowerBase(), delegated,
		append(createHTTPClientOptions(config, serviceEmpower, constants.DefaultHTTPTimeout), http.WithMetrics(m))...)
	client.entitlementHTTP = http.NewClient(config.EntitlementURL, delegated,
		append(createHTTPClientOptions(config, serviceEntitlement, constants.ShortHTTPTimeout), http.WithMetrics(m))...)

	client.initializeServiceClients(config)

	return client, nil
}

func (c *Client) initializeServiceClients(config *exstream.Config) {
	c.resources = NewResourcesClient(c.designHTTP, c.resolver)
	c.links = NewLinksClient(c.designHTTP, c.resolver, c.resources)
	c.outputs = NewOutputsClient(c.orchestrationHTTP, c.orchestrationDelegatedHTTP, c.resolver)
	c.editor = NewEditorClient(c.empowerHTTP, c.resolver)
	c.entitlements = NewEntitlementsClient(c.entitlementHTTP, c.resolver, &EntitlementDefaults{
		ClientID:         config.ClientID,
		UserID:           config.Username,
		SubscriptionName: config.SubscriptionName,
	})
}

// createTokenSource picks a static token when one is configured and the
// identity service otherwise.
func createTokenSource(config *exstream.Config, resolver *endpoints.Resolver, identityHTTP *http.Client, m *metrics.Metrics) TokenSource {
	if config.AccessToken != "" {
		return NewStaticTokenSource(config.AccessToken)
	}

	return auth.NewOTDSTokenProvider(&auth.OTDSConfig{
		TokenURL:            resolver.TokenURL(),
		Scopes:              auth.ScopesFor(config.Mode, config.SubscriptionName),
		ClientID:            config.ClientID,
		Username:            config.Username,
		Password:            config.Password,
		ServiceClientID:     config.ServiceClientID,
		ServiceClientSecret: config.ServiceClientSecret,
		HTTPClient:          identityHTTP.StandardClient(),
		Metrics:             m,
		Logger:              config.Logger,
	})
}

// interceptorChain logs every request when a logger is configured and then
// runs the caller's own interceptors.
func interceptorChain(config *exstream.Config) *exstream.InterceptorChain {
	logging := exstream.NewInterceptorChain()

	if config.Logger != nil {
		logging.AddRequestInterceptor(exstream.LoggingInterceptor(config.Logger))
		logging.AddResponseInterceptor(exstream.LoggingResponseInterceptor(config.Logger))
	}

	return exstream.ChainInterceptors(logging, config.Interceptors)
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *exstream.Config, service string, defaultTimeout time.Duration) []http.Option {
	httpOpts := []http.Option{
		http.WithService(service),
		http.WithTimeout(defaultTimeout),
		http.WithTracerProvider(config.TracerProvider),
	}

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if chain := interceptorChain(config); !chain.Empty() {
		httpOpts = append(httpOpts, http.WithInterceptors(chain))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.ExtendedRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	return httpOpts
}

// Resolver returns the endpoint resolver.
func (c *Client) Resolver() *endpoints.Resolver {
	return c.resolver
}

// Metrics returns the client metrics.
func (c *Client) Metrics() *metrics.Metrics {
	return c.metrics
}

// Cache returns the response cache manager, or nil when caching is off.
func (c *Client) Cache() *exstream.CacheManager {
	return c.cache
}

// Resources implements exstream.Client.Resources.
func (c *Client) Resources() exstream.ResourcesClient {
	return c.resources
}

// Links implements exstream.Client.Links.
func (c *Client) Links() exstream.LinksClient {
	return c.links
}

// Outputs implements exstream.Client.Outputs.
func (c *Client) Outputs() exstream.OutputsClient {
	return c.outputs
}

// Editor implements exstream.Client.Editor.
func (c *Client) Editor() exstream.EditorClient {
	return c.editor
}

// Tokens implements exstream.Client.Tokens.
func (c *Client) Tokens() exstream.TokensClient {
	return c.tokens
}

// Entitlements implements exstream.Client.Entitlements.
func (c *Client) Entitlements() exstream.EntitlementsClient {
	return c.entitlements
}
