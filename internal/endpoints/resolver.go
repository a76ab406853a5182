// Package endpoints builds the request URIs of the identity, design,
// orchestration, Empower and entitlement services. Every function is pure.
package endpoints

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// Service path segments appended to the configured base URLs.
const (
	DesignServicePath        = "design"
	OrchestrationServicePath = "orchestration"
	EmpowerServicePath       = "empower"
	localIdentityPath        = "otdsws"
)

// Query parameter names.
const (
	paramName               = "name"
	paramType               = "type"
	paramSubtype            = "subtype"
	paramLinkSubjectID      = "linkSubjectId"
	paramLinkSubjectVersion = "linkSubjectVersion"
	paramLinkObjectID       = "linkObjectId"
	paramLinkDepth          = "linkDepth"
	paramCommit             = "commit"
	paramSubscription       = "subscription"
	paramSubscriptionName   = "subscription-name"
	paramTenant             = "tenant"
	paramHosted             = "hosted"
	paramQuery              = "query"
	paramClientID           = "clientId"
	paramUserID             = "userId"
	paramSubscriptionNameQ  = "subscriptionName"
	entitlementQuery        = "entitlement"
)

// Resolver holds the configuration every URI is derived from.
type Resolver struct {
	Mode             exstream.DeploymentMode
	IdentityURL      string
	DesignURL        string
	OrchestrationURL string
	EmpowerURL       string
	EntitlementURL   string
	EntitlementPath  string
	Tenant           string
	SubscriptionName string
}

// NewResolver creates a resolver from a normalized configuration.
func NewResolver(config *exstream.Config) *Resolver {
	return &Resolver{
		Mode:             config.Mode,
		IdentityURL:      config.IdentityURL,
		DesignURL:        config.DesignURL,
		OrchestrationURL: config.OrchestrationURL,
		EmpowerURL:       config.EmpowerURL,
		EntitlementURL:   config.EntitlementURL,
		EntitlementPath:  config.EntitlementPath,
		Tenant:           config.Tenant,
		SubscriptionName: config.SubscriptionName,
	}
}

// TokenURL returns the identity token endpoint. Local installations serve it
// below an extra "otdsws" segment.
func (r *Resolver) TokenURL() string {
	segments := []string{}
	if r.Mode.IsLocal() {
		segments = append(segments, localIdentityPath)
	}

	segments = append(segments, "otdstenant", r.Tenant, "oauth2", "token")

	return join(r.IdentityURL, segments...).String()
}

// DesignBase returns the design service base URL.
func (r *Resolver) DesignBase() string {
	return join(r.DesignURL, DesignServicePath).String()
}

// OrchestrationBase returns the orchestration service base URL.
func (r *Resolver) OrchestrationBase() string {
	return join(r.OrchestrationURL, OrchestrationServicePath).String()
}

// EmpowerBase returns the Empower service base URL.
func (r *Resolver) EmpowerBase() string {
	return join(r.EmpowerURL, EmpowerServicePath).String()
}

// Resources lists resources of a domain. Count and offset are added only
// when page is non-nil.
func (r *Resolver) Resources(domain string, filter *exstream.ResourceFilter, page *exstream.PageInfo) *url.URL {
	uri := r.design("api", "v1", "resources", domain)
	query := exstream.MergeValues(filter.ToValues(), page.ToValues())
	uri.RawQuery = query.Encode()

	return uri
}

// ResourceState is the workflow state endpoint of a resource.
func (r *Resolver) ResourceState(domain, resourceID string) *url.URL {
	return r.design("api", "v1", "resources", domain, resourceID, "state")
}

// ResourceContent is the content endpoint of an existing resource.
func (r *Resolver) ResourceContent(domain, resourceID string) *url.URL {
	return r.design("api", "v1", "resources", domain, resourceID, "content")
}

// NewResourceContent is the creation endpoint. Subtype is sent only when set.
func (r *Resolver) NewResourceContent(domain, name string, resourceType exstream.ResourceType, subtype string) *url.URL {
	uri := r.design("api", "v1", "resources", domain, "content")

	query := url.Values{}
	query.Set(paramName, name)
	query.Set(paramType, string(resourceType))

	if subtype != "" {
		query.Set(paramSubtype, subtype)
	}

	uri.RawQuery = query.Encode()

	return uri
}

// Links lists the links of a subject. The subject version is sent only when
// non-nil; the server resolves the latest version otherwise.
func (r *Resolver) Links(domain, subjectID string, subjectVersion *int, depth int, filter *exstream.ResourceFilter) *url.URL {
	uri := r.design("api", "v1", "links", domain)

	query := filter.ToValues()
	query.Set(paramLinkSubjectID, subjectID)
	query.Set(paramLinkDepth, strconv.Itoa(depth))

	if subjectVersion != nil {
		query.Set(paramLinkSubjectVersion, strconv.Itoa(*subjectVersion))
	}

	uri.RawQuery = query.Encode()

	return uri
}

// RecursiveLinks lists the resources that link to an object, up to depth.
func (r *Resolver) RecursiveLinks(domain, objectID string, depth int, filter *exstream.ResourceFilter) *url.URL {
	uri := r.design("api", "v1", "links", domain, "resources")

	query := filter.ToValues()
	query.Set(paramLinkObjectID, objectID)
	query.Set(paramLinkDepth, strconv.Itoa(depth))
	uri.RawQuery = query.Encode()

	return uri
}

// Import is the package import endpoint. Without commit the import is a
// dry run.
func (r *Resolver) Import(domain string, packageType exstream.PackageType, commit bool) *url.URL {
	uri := r.design("api", "v1", "import", strings.ToLower(string(packageType)), domain)

	if commit {
		query := url.Values{}
		query.Set(paramCommit, "true")
		uri.RawQuery = query.Encode()
	}

	return uri
}

// Manifest is the manifest endpoint of a communication set.
func (r *Resolver) Manifest(domain, communicationSetID string) *url.URL {
	return r.design("api", "v1", "manifests", domain, "communication-set", communicationSetID)
}

// Domains lists the domains of the tenant.
func (r *Resolver) Domains() *url.URL {
	return r.design("api", "v1", "domains")
}

// DesignVersion is the design service version endpoint.
func (r *Resolver) DesignVersion() *url.URL {
	return r.design("api", "v1", "version")
}

// DesignFrontEnd is the browser URL of the design front end.
func (r *Resolver) DesignFrontEnd() *url.URL {
	uri := join(r.DesignURL, DesignServicePath)
	uri.Path += "/"
	uri.RawPath += "/"

	query := url.Values{}
	if r.Mode.IsLocal() {
		query.Set(paramTenant, r.Tenant)
	} else {
		query.Set(paramSubscriptionName, r.SubscriptionName)
	}

	uri.RawQuery = query.Encode()

	return uri
}

// Generate is the on-demand generation endpoint.
func (r *Resolver) Generate(domain string) *url.URL {
	return join(r.OrchestrationURL, OrchestrationServicePath, "api", "v1", "inputs", "ondemand", domain, "generate")
}

// Fulfill is the on-demand fulfillment endpoint.
func (r *Resolver) Fulfill(domain string) *url.URL {
	return join(r.OrchestrationURL, OrchestrationServicePath, "api", "v1", "inputs", "fulfillment", "ondemand", domain, "fulfill")
}

// OrchestrationVersion is the orchestration service version endpoint.
func (r *Resolver) OrchestrationVersion() *url.URL {
	return join(r.OrchestrationURL, OrchestrationServicePath, "api", "v1", "version")
}

// EditorOpen is the browser URL that opens a document in the Empower editor.
func (r *Resolver) EditorOpen(documentID string) *url.URL {
	uri := join(r.EmpowerURL, EmpowerServicePath, "api", "v1", "docedit", documentID, "open")

	query := url.Values{}
	if r.Mode.IsLocal() {
		query.Set(paramTenant, r.Tenant)
	} else {
		query.Set(paramSubscription, r.SubscriptionName)
	}

	query.Set(paramHosted, "true")
	uri.RawQuery = query.Encode()

	return uri
}

// EmpowerVersion is the Empower service version endpoint.
func (r *Resolver) EmpowerVersion() *url.URL {
	return join(r.EmpowerURL, EmpowerServicePath, "api", "v1", "version")
}

// Entitlement is the entitlement search endpoint. It returns nil when no
// entitlement service is configured. Empty user and subscription are omitted.
func (r *Resolver) Entitlement(clientID, userID, subscriptionName string) *url.URL {
	if r.EntitlementURL == "" {
		return nil
	}

	uri := join(r.EntitlementURL, append(splitPath(r.EntitlementPath), "search")...)

	query := url.Values{}
	query.Set(paramQuery, entitlementQuery)
	query.Set(paramClientID, clientID)

	if userID != "" {
		query.Set(paramUserID, userID)
	}

	if subscriptionName != "" {
		query.Set(paramSubscriptionNameQ, subscriptionName)
	}

	uri.RawQuery = query.Encode()

	return uri
}

func (r *Resolver) design(segments ...string) *url.URL {
	return join(r.DesignURL, append([]string{DesignServicePath}, segments...)...)
}

// join appends path segments to base. Each segment is one path element:
// slashes and dot segments inside it are escaped, never interpreted.
// Empty segments are skipped.
func join(base string, segments ...string) *url.URL {
	uri, err := url.Parse(strings.TrimSuffix(base, "/"))
	if err != nil || uri.Scheme == "" {
		uri = &url.URL{Path: strings.TrimSuffix(base, "/")}
	}

	decoded, escaped := uri.Path, uri.EscapedPath()

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		decoded += "/" + segment
		escaped += "/" + escapeSegment(segment)
	}

	uri.Path, uri.RawPath = decoded, escaped

	return uri
}

func escapeSegment(segment string) string {
	switch segment {
	case ".":
		return "%2E"
	case "..":
		return "%2E%2E"
	}

	return url.PathEscape(segment)
}

// splitPath splits a configured multi-element path such as "/ets/v1".
func splitPath(configured string) []string {
	return strings.Split(strings.Trim(configured, "/"), "/")
}
