package exstream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
)

// Common static errors that can be wrapped with context.
var (
	ErrConfigRequired            = errors.New("config is required")
	ErrInvalidConfig             = errors.New("invalid configuration")
	ErrInvalidWorkflowState      = errors.New("invalid workflow state")
	ErrInvalidImportPolicy       = errors.New("invalid import policy")
	ErrInvalidOutputType         = errors.New("invalid output type")
	ErrInvalidRequest            = errors.New("invalid request")
	ErrCommunicationSetNotFound  = errors.New("communication set not found")
	ErrNoDataSource              = errors.New("communication set declares no data source")
	ErrEmptyAccessToken          = errors.New("identity service returned an empty access token")
	ErrEntitlementTokenMissing   = errors.New("entitlement response carried no ETSToken header")
	ErrStaticTokenCannotRefresh  = errors.New("static token cannot be refreshed")
	ErrEmptyResponseBody         = errors.New("empty response body")
	ErrOutputStatusError         = errors.New("output response reported status error")
	ErrEmpowerUserRequired       = errors.New("empower user is required for Empower output")
	ErrServiceCredentialsMissing = errors.New("service client credentials are not configured")
	ErrUserCredentialsMissing    = errors.New("user credentials are not configured")
)

// AuthenticationError is returned when the identity service rejects the
// credentials or returns a token response that cannot be used.
type AuthenticationError struct {
	Grant      string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	msg := "authentication failed"
	if e.Grant != "" {
		msg += " (" + e.Grant + " grant)"
	}

	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}

	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying cause.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// TransportError is returned for failures below the HTTP layer such as
// connection refusals and timeouts.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error on %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrorKind tells which response shape a BackendError was parsed from.
type ErrorKind int

const (
	// KindPrimary is a well-formed service error with status, code and message.
	KindPrimary ErrorKind = iota

	// KindPartialFailure is a list response whose items carry their own status.
	KindPartialFailure

	// KindUnparseable is a response in neither known shape.
	KindUnparseable
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindPrimary:
		return "primary"
	case KindPartialFailure:
		return "partial-failure"
	case KindUnparseable:
		return "unparseable"
	default:
		return "unknown"
	}
}

// ErrorResponse is the primary error schema of the backend services.
type ErrorResponse struct {
	Timestamp int64  `json:"timestamp"           yaml:"timestamp"`
	Status    int    `json:"status"              yaml:"status"`
	Message   string `json:"message"             yaml:"message"`
	Error     string `json:"error"               yaml:"error"`
	Details   string `json:"details,omitempty"   yaml:"details,omitempty"`
	ErrorCode *int   `json:"errorCode,omitempty" yaml:"error_code,omitempty"`
	Path      string `json:"path,omitempty"      yaml:"path,omitempty"`
}

// EngineOutputContext identifies the output an item error belongs to.
type EngineOutputContext struct {
	QueueName      string `json:"queueName"      yaml:"queue_name"`
	FileName       string `json:"fileName"       yaml:"file_name"`
	CustomerNumber string `json:"customerNumber" yaml:"customer_number"`
}

// ItemStatus is one per-item error of a partially failed request.
type ItemStatus struct {
	ErrorMessage        string               `json:"errorMessage"                  yaml:"error_message"`
	StatusCode          string               `json:"statusCode"                    yaml:"status_code"`
	EngineOutputContext *EngineOutputContext `json:"engineOutputContext,omitempty" yaml:"engine_output_context,omitempty"`
}

// Code returns the numeric item status, or 0 when it is not a number.
func (s ItemStatus) Code() int {
	code, err := strconv.Atoi(strings.TrimSpace(s.StatusCode))
	if err != nil {
		return 0
	}

	return code
}

// Error implements the error interface.
func (s ItemStatus) Error() string {
	msg := fmt.Sprintf("item status %s: %s", s.StatusCode, s.ErrorMessage)
	if s.EngineOutputContext != nil && s.EngineOutputContext.QueueName != "" {
		msg += " (queue " + s.EngineOutputContext.QueueName + ")"
	}

	return msg
}

// partialFailureResponse is the secondary error schema.
type partialFailureResponse struct {
	Status string       `json:"status"`
	Data   []ItemStatus `json:"data"`
}

// BackendError is a classified non-2xx response from a backend service.
type BackendError struct {
	Kind       ErrorKind
	HTTPStatus int
	Code       int
	Message    string
	Response   *ErrorResponse
	Items      []ItemStatus
	RawBody    []byte
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	switch e.Kind {
	case KindPrimary:
		msg := fmt.Sprintf("backend error (status %d", e.HTTPStatus)
		if e.Code != 0 {
			msg += fmt.Sprintf(", code %d", e.Code)
		}

		msg += ")"
		if e.Message != "" {
			msg += ": " + e.Message
		}

		return msg
	case KindPartialFailure:
		return fmt.Sprintf("backend partial failure (status %d): %d item(s) failed", e.HTTPStatus, len(e.Items))
	default:
		return fmt.Sprintf("backend error (status %d): unparseable response: %s", e.HTTPStatus, truncate(e.RawBody))
	}
}

// Unwrap returns the per-item failures of a partial failure as one error.
func (e *BackendError) Unwrap() error {
	if e.Kind != KindPartialFailure || len(e.Items) == 0 {
		return nil
	}

	var result *multierror.Error
	for _, item := range e.Items {
		result = multierror.Append(result, item)
	}

	return result.ErrorOrNil()
}

// Hint returns a human-readable explanation for well-known failures.
func (e *BackendError) Hint() string {
	switch {
	case e.Kind == KindPrimary && e.HTTPStatus == http.StatusConflict && e.Code == constants.ImportConflictErrorCode:
		return "the import package conflicts with existing resources and the ERROR policy aborted it; choose another policy"
	case e.Kind == KindPartialFailure && e.hasItemStatus(http.StatusUnauthorized):
		return "the Empower user is not recognized; check the empowerUser value"
	case e.Kind == KindUnparseable && e.HTTPStatus == http.StatusBadRequest:
		return "the request parameters were rejected; check the request headers and query"
	default:
		return ""
	}
}

func (e *BackendError) hasItemStatus(code int) bool {
	for _, item := range e.Items {
		if item.Code() == code {
			return true
		}
	}

	return false
}

// ClassifyResponse turns a failed response into a typed error. It tries the
// primary error schema, then the per-item list schema, and otherwise keeps
// the raw body.
func ClassifyResponse(statusCode int, body []byte) *BackendError {
	if primary, ok := parsePrimary(body); ok {
		backendErr := &BackendError{
			Kind:       KindPrimary,
			HTTPStatus: statusCode,
			Message:    primary.Message,
			Response:   primary,
			RawBody:    body,
		}

		if primary.ErrorCode != nil {
			backendErr.Code = *primary.ErrorCode
		}

		if backendErr.Message == "" {
			backendErr.Message = primary.Error
		}

		return backendErr
	}

	if items, ok := parsePartialFailure(body); ok {
		return &BackendError{
			Kind:       KindPartialFailure,
			HTTPStatus: statusCode,
			Items:      items,
			RawBody:    body,
		}
	}

	return &BackendError{
		Kind:       KindUnparseable,
		HTTPStatus: statusCode,
		RawBody:    body,
	}
}

// ClassifyOutputResponse inspects a 2xx output envelope and returns a
// partial-failure error when it reports status "error".
func ClassifyOutputResponse(statusCode int, body []byte) *BackendError {
	items, ok := parsePartialFailure(body)
	if !ok {
		return nil
	}

	return &BackendError{
		Kind:       KindPartialFailure,
		HTTPStatus: statusCode,
		Items:      items,
		RawBody:    body,
	}
}

func parsePrimary(body []byte) (*ErrorResponse, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}

	var resp ErrorResponse

	// A string status field is the list schema and fails here.
	err := json.Unmarshal(trimmed, &resp)
	if err != nil {
		return nil, false
	}

	if resp.Status == 0 && resp.Error == "" && resp.Message == "" && resp.ErrorCode == nil {
		return nil, false
	}

	return &resp, true
}

func parsePartialFailure(body []byte) ([]ItemStatus, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}

	var resp partialFailureResponse

	err := json.Unmarshal(trimmed, &resp)
	if err != nil {
		return nil, false
	}

	if !strings.EqualFold(resp.Status, "error") {
		return nil, false
	}

	return resp.Data, true
}

func truncate(body []byte) string {
	const limit = 256

	s := string(body)
	if len(s) > limit {
		return s[:limit] + "..."
	}

	return s
}

// IsAuthenticationError reports whether err is an AuthenticationError.
func IsAuthenticationError(err error) bool {
	var authErr *AuthenticationError

	return errors.As(err, &authErr)
}

// IsTransportError reports whether err is a TransportError.
func IsTransportError(err error) bool {
	var transportErr *TransportError

	return errors.As(err, &transportErr)
}

// AsBackendError extracts a BackendError from err.
func AsBackendError(err error) (*BackendError, bool) {
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr, true
	}

	return nil, false
}

// IsUnauthorized reports whether err is a 401 from a backend service or a
// failed authentication. Callers retry once with a forced token refresh.
func IsUnauthorized(err error) bool {
	if IsAuthenticationError(err) {
		return true
	}

	backendErr, ok := AsBackendError(err)

	return ok && backendErr.HTTPStatus == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from a backend service.
func IsNotFound(err error) bool {
	backendErr, ok := AsBackendError(err)

	return ok && backendErr.HTTPStatus == http.StatusNotFound
}

// IsImportConflict reports whether err is an import aborted by a conflict.
func IsImportConflict(err error) bool {
	backendErr, ok := AsBackendError(err)

	return ok && backendErr.HTTPStatus == http.StatusConflict && backendErr.Code == constants.ImportConflictErrorCode
}
