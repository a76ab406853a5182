package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600

	// OutputFilePerm is the permission for generated output files.
	OutputFilePerm = 0640
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ExtendedHTTPTimeout is used for package imports and output generation.
	ExtendedHTTPTimeout = 120 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits. Retries are disabled unless a caller opts in.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 0

	// LowRetryMax is used when a caller enables retries without a count.
	LowRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second

	// ExtendedRetryWaitMax is used for operations that need longer waits.
	ExtendedRetryWaitMax = 30 * time.Second
)

// Paging.
const (
	// DefaultPageCount is the page size used when a list call has no page.
	DefaultPageCount = 100

	// DefaultPageOffset is the offset used when a list call has no page.
	DefaultPageOffset = 0
)

// Link traversal depths used by composed lookups.
const (
	// CommunicationSetLinkDepth reaches the set that owns a communication.
	CommunicationSetLinkDepth = 2

	// DeepLinkDepth walks many hops up an aggregation chain.
	DeepLinkDepth = 10
)

// Backend error codes with a known meaning.
const (
	// ImportConflictErrorCode is returned with 409 when an import hits a
	// conflict under the ERROR policy.
	ImportConflictErrorCode = 309016
)

// Cache.
const (
	// DefaultCacheSize is the default number of entries in the memory cache.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is the default lifetime of a cached GET response.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultNATSBucket is the default JetStream KV bucket name.
	DefaultNATSBucket = "exstream-cache"
)

// Token display.
const (
	// TokenExpirationBuffer is subtracted from the expiry hint when
	// reporting whether a token is nominally valid.
	TokenExpirationBuffer = 30 * time.Second

	// TokenPreviewLength is the number of characters shown for a token.
	TokenPreviewLength = 12
)

// UI and display constants.
const (
	// CheckMarkSymbol is used for boolean columns.
	CheckMarkSymbol = "✓"

	// NotAvailable is shown for missing values.
	NotAvailable = "N/A"

	// MaskedSecret replaces secrets in output.
	MaskedSecret = "***"
)

// Boolean string constants.
const (
	// BooleanTrue represents true as a string.
	BooleanTrue = "true"

	// BooleanFalse represents false as a string.
	BooleanFalse = "false"
)

// Format constants.
const (
	// FormatTable is the table output format.
	FormatTable = "table"

	// FormatJSON is the JSON output format.
	FormatJSON = "json"

	// FormatYAML is the YAML output format.
	FormatYAML = "yaml"
)

// Media types.
const (
	// MediaTypeJSON is the JSON media type.
	MediaTypeJSON = "application/json"

	// MediaTypeHALJSON is the HAL JSON media type used by the entitlement service.
	MediaTypeHALJSON = "application/hal+json"

	// MediaTypeOctetStream is the generic binary media type.
	MediaTypeOctetStream = "application/octet-stream"
)
