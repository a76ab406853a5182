package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
	"github.com/fivetwenty-io/exstream-client/internal/endpoints"
	internalhttp "github.com/fivetwenty-io/exstream-client/internal/http"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// Multipart field names expected by the design service.
const (
	fieldExportPackage    = "exportPackage"
	fieldConflictSettings = "conflictSettings"
	fieldFile             = "file"
	conflictSettingsName  = "conflictSettings.json"
)

// ResourcesClient implements exstream.ResourcesClient.
type ResourcesClient struct {
	httpClient *internalhttp.Client
	resolver   *endpoints.Resolver
}

// NewResourcesClient creates a new resources client.
func NewResourcesClient(httpClient *internalhttp.Client, resolver *endpoints.Resolver) *ResourcesClient {
	return &ResourcesClient{
		httpClient: httpClient,
		resolver:   resolver,
	}
}

// List lists resource versions of a domain. A nil page requests the first
// 100 results.
func (c *ResourcesClient) List(ctx context.Context, domain string, filter *exstream.ResourceFilter, page *exstream.PageInfo) ([]exstream.ResourceVersion, error) {
	if page == nil {
		page = exstream.DefaultPageInfo()
	}

	resp, err := c.httpClient.Get(ctx, c.resolver.Resources(domain, filter, page).String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}

	var result exstream.PageResponse[exstream.ResourceVersion]

	err = internalhttp.DecodeJSON(resp, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse resources response: %w", err)
	}

	return result.Data, nil
}

// ListDomains lists the domains of the tenant.
func (c *ResourcesClient) ListDomains(ctx context.Context) ([]exstream.Domain, error) {
	resp, err := c.httpClient.Get(ctx, c.resolver.Domains().String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}

	var result exstream.PageResponse[exstream.Domain]

	err = internalhttp.DecodeJSON(resp, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse domains response: %w", err)
	}

	return result.Data, nil
}

// Import uploads a package. Without Commit the design service reports what
// would happen and persists nothing.
func (c *ResourcesClient) Import(ctx context.Context, domain string, request *exstream.ImportRequest) (*exstream.ImportOutcome, error) {
	if request == nil {
		return nil, fmt.Errorf("%w: import request is required", exstream.ErrInvalidRequest)
	}

	req := request.WithDefaults()

	err := req.Validate()
	if err != nil {
		return nil, err
	}

	settings, err := json.Marshal(exstream.ImportSettings{
		Policies: exstream.ImportPolicies{GeneralPolicy: req.GeneralPolicy},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode conflict settings: %w", err)
	}

	body, contentType, err := encodeMultipart(
		formPart{field: fieldExportPackage, fileName: req.FileName, content: req.Archive},
		formPart{
			field:       fieldConflictSettings,
			fileName:    conflictSettingsName,
			contentType: constants.MediaTypeJSON,
			content:     bytes.NewReader(settings),
		},
	)
	if err != nil {
		return nil, err
	}

	uri := c.resolver.Import(domain, req.PackageType, req.Commit)

	resp, err := c.httpClient.PostRaw(ctx, uri.String(), body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to import package: %w", err)
	}

	var result exstream.DataResponse[exstream.ImportOutcome]

	err = internalhttp.DecodeJSON(resp, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse import response: %w", err)
	}

	return &result.Data, nil
}

// ChangeWorkflowState requests a workflow state change. Transition rules are
// left to the design service.
func (c *ResourcesClient) ChangeWorkflowState(ctx context.Context, domain, resourceID string, request *exstream.WorkflowStateRequest) (*exstream.ResourceVersion, error) {
	if request == nil {
		return nil, fmt.Errorf("%w: workflow state request is required", exstream.ErrInvalidRequest)
	}

	err := request.Validate()
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Put(ctx, c.resolver.ResourceState(domain, resourceID).String(), exstream.WorkflowStateBody{
		State:          request.State,
		AuditedComment: request.Comment,
		Locked:         request.Lock,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to change workflow state: %w", err)
	}

	return decodeResourceVersion(resp)
}

// UpdateContent replaces the content of an existing resource, creating a
// new version.
func (c *ResourcesClient) UpdateContent(ctx context.Context, domain, resourceID string, upload *exstream.ContentUpload) (*exstream.ResourceVersion, error) {
	if upload == nil {
		return nil, fmt.Errorf("%w: content upload is required", exstream.ErrInvalidRequest)
	}

	err := upload.Validate()
	if err != nil {
		return nil, err
	}

	body, contentType, err := encodeMultipart(formPart{
		field:    fieldFile,
		fileName: fileNameOrDefault(upload.FileName, resourceID),
		content:  upload.Content,
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.PutRaw(ctx, c.resolver.ResourceContent(domain, resourceID).String(), body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to update resource content: %w", err)
	}

	return decodeResourceVersion(resp)
}

// Create creates a new resource from uploaded content.
func (c *ResourcesClient) Create(ctx context.Context, domain string, request *exstream.CreateResourceRequest) (*exstream.ResourceVersion, error) {
	if request == nil {
		return nil, fmt.Errorf("%w: create request is required", exstream.ErrInvalidRequest)
	}

	err := request.Validate()
	if err != nil {
		return nil, err
	}

	body, contentType, err := encodeMultipart(formPart{
		field:    fieldFile,
		fileName: fileNameOrDefault(request.FileName, request.Name),
		content:  request.Content,
	})
	if err != nil {
		return nil, err
	}

	uri := c.resolver.NewResourceContent(domain, request.Name, request.Type, request.Subtype)

	resp, err := c.httpClient.PostRaw(ctx, uri.String(), body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	return decodeResourceVersion(resp)
}

// GetManifest returns the manifest of a communication set.
func (c *ResourcesClient) GetManifest(ctx context.Context, domain, communicationSetID string) (*exstream.Manifest, error) {
	resp, err := c.httpClient.Get(ctx, c.resolver.Manifest(domain, communicationSetID).String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get manifest: %w", err)
	}

	var manifest exstream.Manifest

	err = internalhttp.DecodeJSON(resp, &manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest response: %w", err)
	}

	return &manifest, nil
}

// GetVersion returns the design service version.
func (c *ResourcesClient) GetVersion(ctx context.Context) (*exstream.ServiceVersionInfo, error) {
	resp, err := c.httpClient.Get(ctx, c.resolver.DesignVersion().String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get design service version: %w", err)
	}

	var info exstream.ServiceVersionInfo

	err = internalhttp.DecodeJSON(resp, &info)
	if err != nil {
		return nil, fmt.Errorf("failed to parse version response: %w", err)
	}

	return &info, nil
}

// FrontEndURL returns the browser URL of the design front end.
func (c *ResourcesClient) FrontEndURL() string {
	return c.resolver.DesignFrontEnd().String()
}

func decodeResourceVersion(resp *internalhttp.Response) (*exstream.ResourceVersion, error) {
	var result exstream.DataResponse[exstream.ResourceVersion]

	err := internalhttp.DecodeJSON(resp, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse resource response: %w", err)
	}

	return &result.Data, nil
}

func fileNameOrDefault(fileName, fallback string) string {
	if fileName != "" {
		return fileName
	}

	return fallback
}
