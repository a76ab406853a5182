package constants

import "errors"

// Configuration errors.
var (
	ErrNoDesignURL        = errors.New("no design service URL configured, set das.url or --das-url")
	ErrNoOrchestrationURL = errors.New("no orchestration service URL configured, set orchestration.url or --orchestration-url")
	ErrNoEmpowerURL       = errors.New("no Empower URL configured, set empower.url or --empower-url")
	ErrNoEntitlementURL   = errors.New("no entitlement service URL configured, set ets.url")
)

// Token errors.
var (
	ErrInvalidJWTFormat  = errors.New("invalid JWT format")
	ErrNoExpirationClaim = errors.New("no expiration claim found")
	ErrNoTokenAvailable  = errors.New("no token available, use 'exstream login' or pass --token")
)

// Validation errors.
var (
	ErrInvalidOutputFormat = errors.New("invalid output format, use table, json, or yaml")
	ErrInvalidOutputType   = errors.New("invalid output type, use pdf, html, empower, or json")
	ErrInvalidState        = errors.New("invalid workflow state, use DRAFT, REVIEW, APPROVED, or REJECTED")
	ErrInvalidPolicy       = errors.New("invalid import policy, use ERROR, REPLACE, SKIP, or AUTO_RENAME")
	ErrEmpowerUserRequired = errors.New("--empower-user flag is required")
)

// File system errors.
var (
	ErrNotRegularFile             = errors.New("path is not a regular file")
	ErrDirectoryTraversalDetected = errors.New("directory traversal detected in file path")
)
