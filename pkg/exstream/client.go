package exstream

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// ResourcesClient talks to the resource store (the design service).
type ResourcesClient interface {
	List(ctx context.Context, domain string, filter *ResourceFilter, page *PageInfo) ([]ResourceVersion, error)
	ListDomains(ctx context.Context) ([]Domain, error)
	Import(ctx context.Context, domain string, request *ImportRequest) (*ImportOutcome, error)
	ChangeWorkflowState(ctx context.Context, domain, resourceID string, request *WorkflowStateRequest) (*ResourceVersion, error)
	UpdateContent(ctx context.Context, domain, resourceID string, upload *ContentUpload) (*ResourceVersion, error)
	Create(ctx context.Context, domain string, request *CreateResourceRequest) (*ResourceVersion, error)
	GetManifest(ctx context.Context, domain, communicationSetID string) (*Manifest, error)
	GetVersion(ctx context.Context) (*ServiceVersionInfo, error)
	FrontEndURL() string
}

// LinksClient queries and traverses resource links.
type LinksClient interface {
	List(ctx context.Context, domain, subjectID string, subjectVersion *int, depth int, filter *ResourceFilter) ([]Link, error)
	ListRecursive(ctx context.Context, domain, objectID string, depth int, filter *ResourceFilter) ([]ResourceVersion, error)
	FindCommunicationSetID(ctx context.Context, domain, communicationID string) (string, error)
	FindPrimaryDataSource(ctx context.Context, domain, communicationID string) (string, error)
}

// OutputsClient submits on-demand generation and fulfillment requests to the
// orchestration service.
type OutputsClient interface {
	Generate(ctx context.Context, domain string, request *GenerateRequest) ([]GeneratedOutput, error)
	GenerateContent(ctx context.Context, domain string, request *GenerateRequest, accept OutputType) ([]byte, error)
	GenerateEmpowerDocument(ctx context.Context, domain string, request *GenerateRequest) (string, error)
	Fulfill(ctx context.Context, domain string, request *FulfillRequest) ([]GeneratedOutput, error)
	FulfillContent(ctx context.Context, domain string, request *FulfillRequest, accept OutputType) ([]byte, error)
	GetVersion(ctx context.Context) (*ServiceVersionInfo, error)
}

// EditorClient talks to the Empower document editor.
type EditorClient interface {
	OpenDocumentURL(documentID string) string
	GetVersion(ctx context.Context) (*ServiceVersionInfo, error)
}

// TokensClient exposes the cached identity tokens.
type TokensClient interface {
	AccessToken(ctx context.Context, forceRefresh bool) (string, error)
	ServiceAccessToken(ctx context.Context, forceRefresh bool) (string, error)
}

// EntitlementsClient fetches entitlement tokens for a user and subscription.
type EntitlementsClient interface {
	GetToken(ctx context.Context, forceRefresh bool) (string, error)
	GetTokenFor(ctx context.Context, userID, subscriptionName string, forceRefresh bool) (string, error)
}

// Client is the root of the SDK.
type Client interface {
	Resources() ResourcesClient
	Links() LinksClient
	Outputs() OutputsClient
	Editor() EditorClient
	Tokens() TokensClient
	Entitlements() EntitlementsClient
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building an exstream.Client.
// It is built once at startup and passed to exclient.New; nothing is read
// from the environment after construction.
//
// # Authentication
//
// Two grants are used against the identity service, and both share a single
// cached token:
//  1. Username/Password/ClientID: the password grant, used for the resource
//     store, link queries and the editor.
//  2. ServiceClientID/ServiceClientSecret: the client_credentials grant, used
//     for output generation and fulfillment.
//
// If AccessToken is set it is used directly as a static Bearer token and no
// identity calls are made. A cached token is reused until a caller forces a
// refresh; there is no expiry-driven refresh.
//
// # Deployment modes
//
// Mode selects the hosted multi-tenant deployment ("ot2", the default) or a
// local installation ("local"). It affects the identity token path and the
// tenant or subscription parameter of human-facing URLs, plus the token scope.
//
// # Timeouts and retries
//
// Per-request timeouts should be controlled via the context passed to client
// methods. No retries are made unless RetryMax is set.
type Config struct {
	// Mode is the deployment mode. Empty means DeploymentHosted.
	Mode DeploymentMode

	// IdentityURL is the base URL of the identity service
	// (e.g., "https://otds.example.com/otds").
	IdentityURL string
	// DesignURL is the base URL the design service path is appended to.
	DesignURL string
	// OrchestrationURL is the base URL the orchestration path is appended to.
	OrchestrationURL string
	// EmpowerURL is the base URL the Empower path is appended to.
	EmpowerURL string
	// EntitlementURL is the root URL of the entitlement service. Optional.
	EntitlementURL string
	// EntitlementPath is the API path of the entitlement service. Empty means "/ets/v1".
	EntitlementPath string

	// Tenant is the identity tenant id.
	Tenant string
	// SubscriptionName is the hosted subscription. Required in hosted mode.
	SubscriptionName string

	// Username and Password are the delegated user credentials.
	Username string
	Password string
	// ClientID is the public client used with the password grant.
	ClientID string

	// ServiceClientID and ServiceClientSecret are the service credentials.
	ServiceClientID     string
	ServiceClientSecret string

	// AccessToken: if set, used directly as a static Bearer token.
	AccessToken string

	// HTTPTimeout: optional transport timeout. Most calls should rely on
	// context deadlines instead.
	HTTPTimeout time.Duration
	// RetryMax: retries for transient failures (>=500, 429, connection
	// errors). Zero disables retries.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMax time.Duration
	// Debug: enables verbose HTTP request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger used by the HTTP layer and helpers.
	Logger Logger
	// UserAgent: overrides the default User-Agent header sent by the client.
	UserAgent string

	// Interceptors: optional chain run around every backend request, after
	// the logging interceptors installed for Logger.
	Interceptors *InterceptorChain

	// Cache: optional GET response cache. Nil disables caching.
	Cache *CacheConfig
	// MetricsRegisterer: optional Prometheus registerer for client metrics.
	MetricsRegisterer prometheus.Registerer
	// TracerProvider: optional OpenTelemetry provider. Nil uses the global one.
	TracerProvider trace.TracerProvider
}
