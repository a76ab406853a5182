package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
	"github.com/fivetwenty-io/exstream-client/internal/endpoints"
	internalhttp "github.com/fivetwenty-io/exstream-client/internal/http"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// Orchestration request headers.
const (
	HeaderCommunicationID   = "communicationId"
	HeaderDriverDataSource  = "driverDataSource"
	HeaderEmpowerUser       = "empowerUser"
	HeaderPreserveDocuments = "preserveDocuments"
)

// acceptEnvelope asks for the full output list rather than one output's content.
const acceptEnvelope = "application/json, application/*+json"

// OutputsClient implements exstream.OutputsClient. Generation and
// fulfillment carry the service-grant token and the version call carries the
// delegated one.
type OutputsClient struct {
	httpClient    *internalhttp.Client
	delegatedHTTP *internalhttp.Client
	resolver      *endpoints.Resolver
}

// NewOutputsClient creates a new outputs client. A nil delegatedHTTP sends
// the version call through httpClient.
func NewOutputsClient(httpClient, delegatedHTTP *internalhttp.Client, resolver *endpoints.Resolver) *OutputsClient {
	if delegatedHTTP == nil {
		delegatedHTTP = httpClient
	}

	return &OutputsClient{
		httpClient:    httpClient,
		delegatedHTTP: delegatedHTTP,
		resolver:      resolver,
	}
}

// Generate runs on-demand generation and returns every produced output.
func (c *OutputsClient) Generate(ctx context.Context, domain string, request *exstream.GenerateRequest) ([]exstream.GeneratedOutput, error) {
	resp, err := c.generate(ctx, domain, request, acceptEnvelope)
	if err != nil {
		return nil, err
	}

	return decodeOutputs(resp)
}

// GenerateContent runs on-demand generation and returns the raw content of
// the output matching accept.
func (c *OutputsClient) GenerateContent(ctx context.Context, domain string, request *exstream.GenerateRequest, accept exstream.OutputType) ([]byte, error) {
	mime := accept.MimeType()
	if mime == "" {
		return nil, fmt.Errorf("%w: %q", exstream.ErrInvalidOutputType, accept)
	}

	resp, err := c.generate(ctx, domain, request, mime)
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

// GenerateEmpowerDocument imports generated output into Empower as the
// request's Empower user and returns the new document id.
func (c *OutputsClient) GenerateEmpowerDocument(ctx context.Context, domain string, request *exstream.GenerateRequest) (string, error) {
	if request != nil && request.EmpowerUser == "" {
		return "", exstream.ErrEmpowerUserRequired
	}

	resp, err := c.generate(ctx, domain, request, constants.MediaTypeJSON)
	if err != nil {
		return "", err
	}

	var document exstream.EmpowerDocument

	err = internalhttp.DecodeJSON(resp, &document)
	if err != nil {
		return "", fmt.Errorf("failed to parse Empower document response: %w", err)
	}

	return document.DocumentID, nil
}

// Fulfill fulfills an Empower document and returns every produced output.
func (c *OutputsClient) Fulfill(ctx context.Context, domain string, request *exstream.FulfillRequest) ([]exstream.GeneratedOutput, error) {
	resp, err := c.fulfill(ctx, domain, request, acceptEnvelope)
	if err != nil {
		return nil, err
	}

	return decodeOutputs(resp)
}

// FulfillContent fulfills an Empower document and returns the raw content of
// the output matching accept.
func (c *OutputsClient) FulfillContent(ctx context.Context, domain string, request *exstream.FulfillRequest, accept exstream.OutputType) ([]byte, error) {
	mime := accept.MimeType()
	if mime == "" {
		return nil, fmt.Errorf("%w: %q", exstream.ErrInvalidOutputType, accept)
	}

	resp, err := c.fulfill(ctx, domain, request, mime)
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

// GetVersion returns the orchestration service version.
func (c *OutputsClient) GetVersion(ctx context.Context) (*exstream.ServiceVersionInfo, error) {
	resp, err := c.delegatedHTTP.Get(ctx, c.resolver.OrchestrationVersion().String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get orchestration service version: %w", err)
	}

	var info exstream.ServiceVersionInfo

	err = internalhttp.DecodeJSON(resp, &info)
	if err != nil {
		return nil, fmt.Errorf("failed to parse version response: %w", err)
	}

	return &info, nil
}

func (c *OutputsClient) generate(ctx context.Context, domain string, request *exstream.GenerateRequest, accept string) (*internalhttp.Response, error) {
	if request == nil {
		return nil, fmt.Errorf("%w: generate request is required", exstream.ErrInvalidRequest)
	}

	err := request.Validate()
	if err != nil {
		return nil, err
	}

	headers := map[string]string{
		HeaderCommunicationID:  request.CommunicationID,
		HeaderDriverDataSource: request.DriverDataSource,
	}

	if request.EmpowerUser != "" {
		headers[HeaderEmpowerUser] = request.EmpowerUser
	}

	contentType := request.ContentType
	if contentType == "" {
		contentType = constants.MediaTypeJSON
	}

	resp, err := c.httpClient.Do(ctx, &internalhttp.Request{
		Method:      http.MethodPost,
		Path:        c.resolver.Generate(domain).String(),
		RawBody:     request.DriverData,
		ContentType: contentType,
		Accept:      accept,
		Headers:     headers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate output: %w", err)
	}

	return resp, nil
}

func (c *OutputsClient) fulfill(ctx context.Context, domain string, request *exstream.FulfillRequest, accept string) (*internalhttp.Response, error) {
	if request == nil {
		return nil, fmt.Errorf("%w: fulfill request is required", exstream.ErrInvalidRequest)
	}

	err := request.Validate()
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(ctx, &internalhttp.Request{
		Method: http.MethodPost,
		Path:   c.resolver.Fulfill(domain).String(),
		Body:   exstream.FulfillmentBody{DocumentIDs: []string{request.DocumentID}},
		Accept: accept,
		Headers: map[string]string{
			HeaderCommunicationID:   request.CommunicationID,
			HeaderDriverDataSource:  request.DriverDataSource,
			HeaderPreserveDocuments: strconv.FormatBool(request.PreserveDocuments),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fulfill document: %w", err)
	}

	return resp, nil
}

// decodeOutputs parses the output envelope. A 2xx envelope with status
// "error" is reported as a partial failure.
func decodeOutputs(resp *internalhttp.Response) ([]exstream.GeneratedOutput, error) {
	backendErr := exstream.ClassifyOutputResponse(resp.StatusCode, resp.Body)
	if backendErr != nil {
		return nil, fmt.Errorf("%w: %w", exstream.ErrOutputStatusError, backendErr)
	}

	var result exstream.OutputResponse

	err := internalhttp.DecodeJSON(resp, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse output response: %w", err)
	}

	return result.Data, nil
}
