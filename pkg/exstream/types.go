package exstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeploymentMode selects between the hosted multi-tenant deployment and a
// local single-tenant installation.
type DeploymentMode string

const (
	// DeploymentHosted is the hosted multi-tenant deployment.
	DeploymentHosted DeploymentMode = "ot2"

	// DeploymentLocal is a local single-tenant installation.
	DeploymentLocal DeploymentMode = "local"
)

// IsHosted reports whether the mode is the hosted deployment.
func (m DeploymentMode) IsHosted() bool {
	return m == DeploymentHosted
}

// IsLocal reports whether the mode is a local installation.
func (m DeploymentMode) IsLocal() bool {
	return m == DeploymentLocal
}

// ResourceType is the type tag of a resource in the resource store.
type ResourceType string

// Resource types known to the resource store.
const (
	ResourceTypeResourcePack          ResourceType = "resourcepack"
	ResourceTypeApplication           ResourceType = "exstrapplication"
	ResourceTypeDocument              ResourceType = "exstrdocument"
	ResourceTypePage                  ResourceType = "exstrpage"
	ResourceTypeComponentObject       ResourceType = "exstrcomponentobj"
	ResourceTypeEmail                 ResourceType = "exstremail"
	ResourceTypeEngine                ResourceType = "exstrengine"
	ResourceTypeVariableBase          ResourceType = "exstrvariablebase"
	ResourceTypePackage               ResourceType = "exstrpackage"
	ResourceTypeGraphicalMessage      ResourceType = "exstrgraphicalmessage"
	ResourceTypeTextMessage           ResourceType = "exstrtextmessage"
	ResourceTypeParagraph             ResourceType = "exstrparagraph"
	ResourceTypeParagraphSection      ResourceType = "exstrparagraphsection"
	ResourceTypeImage                 ResourceType = "image"
	ResourceTypeSampleFile            ResourceType = "samplefile"
	ResourceTypeDataSource            ResourceType = "exstrdatasource"
	ResourceTypeOrchestrationSettings ResourceType = "orcsettings"
	ResourceTypeFlowModel             ResourceType = "flowmodel"
	ResourceTypeHTML5                 ResourceType = "exstrhtml5"
	ResourceTypeVersionedTemplate     ResourceType = "versionedtemplate"
	ResourceTypeDocumentDefinition    ResourceType = "documentdefinition"
	ResourceTypeEngineRunDefinition   ResourceType = "enginerundef"
	ResourceTypeFont                  ResourceType = "font"
	ResourceTypeFontDefinition        ResourceType = "fontdefinition"
	ResourceTypeBarcode               ResourceType = "exstrbarcode"
	ResourceTypePaperType             ResourceType = "exstrpapertype"
	ResourceTypeMessageType           ResourceType = "exstrmessagetype"
	ResourceTypeMetadata              ResourceType = "exstrmetadata"
	ResourceTypeCommunicationSet      ResourceType = "exstrcommunicationset"
	ResourceTypeOutputQueue           ResourceType = "exstroutputqueue"
	ResourceTypeOutput                ResourceType = "exstroutput"
	ResourceTypeLanguage              ResourceType = "exstrlanguage"
	ResourceTypeLocale                ResourceType = "exstrlocale"
	ResourceTypeMigrationSet          ResourceType = "exstrmigrationset"
	ResourceTypeMessaging             ResourceType = "exstrmessaging"
	ResourceTypeMessagingAuthor       ResourceType = "exstrmessagingauthor"
	ResourceTypeFlowScript            ResourceType = "flowscript"
	ResourceTypeNamedColor            ResourceType = "exstrnamedcolor"
	ResourceTypeColorFamily           ResourceType = "exstrcolorfamily"
	ResourceTypeStyle                 ResourceType = "exstrstyle"
	ResourceTypeStyleSheet            ResourceType = "exstrstylesheet"
	ResourceTypeEvent                 ResourceType = "exstrevent"
	ResourceTypeRule                  ResourceType = "exstrrule"
)

// WorkflowState is the approval state of a resource version.
type WorkflowState string

// Workflow states. Valid backend transitions are DRAFT to REVIEW, REVIEW to
// APPROVED or REJECTED, and APPROVED to DRAFT (which creates a new version).
const (
	WorkflowStateDraft    WorkflowState = "DRAFT"
	WorkflowStateReview   WorkflowState = "REVIEW"
	WorkflowStateApproved WorkflowState = "APPROVED"
	WorkflowStateRejected WorkflowState = "REJECTED"
)

// ParseWorkflowState parses a state name, case-insensitively.
func ParseWorkflowState(s string) (WorkflowState, error) {
	state := WorkflowState(strings.ToUpper(strings.TrimSpace(s)))
	switch state {
	case WorkflowStateDraft, WorkflowStateReview, WorkflowStateApproved, WorkflowStateRejected:
		return state, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidWorkflowState, s)
	}
}

// ImportPolicy is the conflict-resolution policy applied during an import.
type ImportPolicy string

const (
	// ImportPolicyError aborts the import and rolls back on any conflict.
	ImportPolicyError ImportPolicy = "ERROR"

	// ImportPolicyReplace makes the imported resource the latest version.
	ImportPolicyReplace ImportPolicy = "REPLACE"

	// ImportPolicySkip leaves existing resources in place.
	ImportPolicySkip ImportPolicy = "SKIP"

	// ImportPolicyAutoRename imports a renamed copy with a new id.
	ImportPolicyAutoRename ImportPolicy = "AUTO_RENAME"
)

// ParseImportPolicy parses a policy name, case-insensitively.
func ParseImportPolicy(s string) (ImportPolicy, error) {
	policy := ImportPolicy(strings.ToUpper(strings.TrimSpace(s)))
	switch policy {
	case ImportPolicyError, ImportPolicyReplace, ImportPolicySkip, ImportPolicyAutoRename:
		return policy, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidImportPolicy, s)
	}
}

// PackageType is the format of an import package.
type PackageType string

// PackageTypeDAS is the resource store's own export format.
const PackageTypeDAS PackageType = "DAS"

// OutputType selects the content type of generated output.
type OutputType string

// Output types.
const (
	OutputTypePDF     OutputType = "PDF"
	OutputTypeHTML    OutputType = "HTML"
	OutputTypeEmpower OutputType = "EMPOWER"
	OutputTypeJSON    OutputType = "JSON"
)

var outputMimeTypes = map[OutputType]string{
	OutputTypePDF:     "application/pdf",
	OutputTypeHTML:    "text/html",
	OutputTypeEmpower: "application/vnd.exstream-empower",
	OutputTypeJSON:    "application/json",
}

// MimeType returns the media type for the output type.
func (o OutputType) MimeType() string {
	return outputMimeTypes[o]
}

// Matches reports whether value names the same media type, ignoring case.
func (o OutputType) Matches(value string) bool {
	mime := o.MimeType()

	return mime != "" && strings.EqualFold(mime, strings.TrimSpace(value))
}

// ParseOutputType parses an output type name or media type.
func ParseOutputType(s string) (OutputType, error) {
	candidate := OutputType(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := outputMimeTypes[candidate]; ok {
		return candidate, nil
	}

	for outputType := range outputMimeTypes {
		if outputType.Matches(s) {
			return outputType, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidOutputType, s)
}

// Timestamp decodes either epoch milliseconds or an RFC 3339 string.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string

		err := json.Unmarshal(data, &s)
		if err != nil {
			return fmt.Errorf("failed to decode timestamp: %w", err)
		}

		if s == "" {
			return nil
		}

		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("failed to parse timestamp %q: %w", s, err)
		}

		t.Time = parsed

		return nil
	}

	millis, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("failed to parse timestamp %s: %w", data, err)
	}

	t.Time = time.UnixMilli(millis).UTC()

	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}

	return json.Marshal(t.Format(time.RFC3339Nano))
}

// MarshalYAML implements yaml.Marshaler.
func (t Timestamp) MarshalYAML() (interface{}, error) {
	if t.IsZero() {
		return nil, nil
	}

	return t.Format(time.RFC3339), nil
}

// Domain is a tenant-scoped partition of the resource store.
type Domain struct {
	ID               string `json:"id"               yaml:"id"`
	Production       bool   `json:"production"       yaml:"production"`
	JobTracing       bool   `json:"jobTracing"       yaml:"job_tracing"`
	Workflow         string `json:"workflow"         yaml:"workflow"`
	RestrictApproval bool   `json:"restrictApproval" yaml:"restrict_approval"`
	Parent           string `json:"parent,omitempty" yaml:"parent,omitempty"`
}

// ResourceMetadata carries optional type refinements.
type ResourceMetadata struct {
	Subtype string `json:"subtype,omitempty" yaml:"subtype,omitempty"`
}

// ResourceVersion is one version of a resource. A resource is identified by
// the pair (ID, Version); "latest" is a query-time concept.
type ResourceVersion struct {
	ID               uuid.UUID         `json:"id"                     yaml:"id"`
	Version          int               `json:"version"                yaml:"version"`
	Name             string            `json:"name"                   yaml:"name"`
	Type             ResourceType      `json:"type"                   yaml:"type"`
	State            WorkflowState     `json:"state"                  yaml:"state"`
	StateComment     string            `json:"stateComment,omitempty" yaml:"state_comment,omitempty"`
	Description      string            `json:"description,omitempty"  yaml:"description,omitempty"`
	CreatedBy        string            `json:"createdBy,omitempty"    yaml:"created_by,omitempty"`
	CreatedDate      Timestamp         `json:"createdDate"            yaml:"created_date"`
	LastModifiedBy   string            `json:"lastModifiedBy,omitempty" yaml:"last_modified_by,omitempty"`
	LastModifiedDate Timestamp         `json:"lastModifiedDate"       yaml:"last_modified_date"`
	Metadata         *ResourceMetadata `json:"metadata,omitempty"     yaml:"metadata,omitempty"`
	Locked           bool              `json:"locked"                 yaml:"locked"`
}

// Link is a directed edge from a specific version of a subject to an
// unversioned object.
type Link struct {
	SubjectID      string `json:"linkSubjectId"  yaml:"subject_id"`
	SubjectVersion int    `json:"subjectVersion" yaml:"subject_version"`
	ObjectID       string `json:"linkObjectId"   yaml:"object_id"`
	TypeID         string `json:"typeId"         yaml:"type_id"`
}

// ManifestDataSource is a data source declared by a communication set.
type ManifestDataSource struct {
	Name       string `json:"name"       yaml:"name"`
	ProdDSN    string `json:"prodDsn"    yaml:"prod_dsn"`
	ResourceID string `json:"resourceId" yaml:"resource_id"`
	Type       string `json:"type"       yaml:"type"`
}

// ManifestQueue is an output queue declared by a communication set.
type ManifestQueue struct {
	Driver   string `json:"driver"   yaml:"driver"`
	Name     string `json:"name"     yaml:"name"`
	ProdFile string `json:"prodFile" yaml:"prod_file"`
	Use      string `json:"use"      yaml:"use"`
}

// Queue drivers checked by the manifest helpers.
const (
	QueueDriverEmpower = "Empower"
	QueueDriverPDF     = "PDF"
)

// Manifest lists the data sources and output queues of a communication set.
type Manifest struct {
	DataSources []ManifestDataSource `json:"dsnlist"   yaml:"data_sources"`
	Queues      []ManifestQueue      `json:"queueList" yaml:"queues"`
}

// HasEmpowerOutput reports whether the manifest declares an Empower queue.
func (m *Manifest) HasEmpowerOutput() bool {
	return m.hasDriver(QueueDriverEmpower)
}

// HasPDFOutput reports whether the manifest declares a PDF queue.
func (m *Manifest) HasPDFOutput() bool {
	return m.hasDriver(QueueDriverPDF)
}

// PrimaryDataSource returns the first declared data source.
func (m *Manifest) PrimaryDataSource() (*ManifestDataSource, bool) {
	if m == nil || len(m.DataSources) == 0 {
		return nil, false
	}

	return &m.DataSources[0], true
}

func (m *Manifest) hasDriver(driver string) bool {
	if m == nil {
		return false
	}

	for _, queue := range m.Queues {
		if queue.Driver == driver {
			return true
		}
	}

	return false
}

// ImportPolicies holds the policies applied to an import.
type ImportPolicies struct {
	GeneralPolicy ImportPolicy `json:"generalPolicy" yaml:"general_policy"`
}

// ImportFoundResource is a resource discovered in an import package.
type ImportFoundResource struct {
	ID      string        `json:"id"                yaml:"id"`
	Name    string        `json:"name"              yaml:"name"`
	NewName string        `json:"newName,omitempty" yaml:"new_name,omitempty"`
	Type    ResourceType  `json:"type"              yaml:"type"`
	Version int           `json:"version"           yaml:"version"`
	State   WorkflowState `json:"state,omitempty"   yaml:"state,omitempty"`
}

// ImportConflictResource is a discovered resource that matched an existing
// one. PerformedAction may differ from UserSelectedAction under backend rules.
type ImportConflictResource struct {
	ImportFoundResource `yaml:",inline"`

	UserSelectedAction ImportPolicy `json:"userSelectedAction" yaml:"user_selected_action"`
	PerformedAction    ImportPolicy `json:"performedAction"    yaml:"performed_action"`
}

// ImportOutcome partitions the resources of an import package into four
// disjoint sets.
type ImportOutcome struct {
	ExportPackageUUID   string                   `json:"exportPackageUUID,omitempty" yaml:"export_package_uuid,omitempty"`
	Policies            ImportPolicies           `json:"policies"                    yaml:"policies"`
	ImportedResources   []ImportFoundResource    `json:"importedResources"           yaml:"imported_resources"`
	IgnoredResources    []ImportFoundResource    `json:"ignoredResources"            yaml:"ignored_resources"`
	ConflictedResources []ImportConflictResource `json:"conflictedResources"         yaml:"conflicted_resources"`
	ExistingResources   []ImportFoundResource    `json:"existingResources"           yaml:"existing_resources"`
}

// ImportSettings is the side-file sent with an import package.
type ImportSettings struct {
	Policies ImportPolicies `json:"policies"`
}

// ServiceVersionInfo is the version report of a backend service.
type ServiceVersionInfo struct {
	APIIdentifier string `json:"apiIdentifier" yaml:"api_identifier"`
	Major         string `json:"major"         yaml:"major"`
	Minor         string `json:"minor"         yaml:"minor"`
	Patch         string `json:"patch"         yaml:"patch"`
	VersionString string `json:"versionString" yaml:"version_string"`
}

// GeneratedOutput is one unit of produced document output.
type GeneratedOutput struct {
	QueueName      string `json:"queueName"      yaml:"queue_name"`
	FileName       string `json:"fileName"       yaml:"file_name"`
	FileExtension  string `json:"fileExtension"  yaml:"file_extension"`
	CustomerNumber string `json:"customerNumber" yaml:"customer_number"`
	Content        []byte `json:"content"        yaml:"-"`
}

// OutputFileName returns the file name with its extension.
func (g *GeneratedOutput) OutputFileName() string {
	ext := strings.TrimPrefix(g.FileExtension, ".")
	if ext == "" {
		return g.FileName
	}

	return g.FileName + "." + ext
}

// PageResult is the page descriptor of a paged list response.
type PageResult struct {
	Count  int `json:"count"  yaml:"count"`
	Offset int `json:"offset" yaml:"offset"`
	Total  int `json:"total"  yaml:"total"`
}

// DataResponse is the single-value envelope used by the resource store.
type DataResponse[T any] struct {
	Data T `json:"data" yaml:"data"`
}

// PageResponse is the paged list envelope used by the resource store.
type PageResponse[T any] struct {
	Data []T        `json:"data" yaml:"data"`
	Page PageResult `json:"page" yaml:"page"`
}

// OutputResponse is the envelope returned by output generation.
type OutputResponse struct {
	Status string            `json:"status" yaml:"status"`
	Data   []GeneratedOutput `json:"data"   yaml:"data"`
}

// EditorResponseHeader is the header of an Empower envelope.
type EditorResponseHeader struct {
	Status  string `json:"status,omitempty"  yaml:"status,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// EditorResponse is the envelope returned by the Empower editor service.
type EditorResponse[T any] struct {
	Header EditorResponseHeader `json:"header" yaml:"header"`
	Body   T                    `json:"body"   yaml:"body"`
}

// EmpowerDocument identifies a document created in the Empower editor.
type EmpowerDocument struct {
	DocumentID string `json:"documentId" yaml:"document_id"`
}

// FulfillmentBody is the request body of a fulfillment call.
type FulfillmentBody struct {
	DocumentIDs []string `json:"documentIds"`
}

// WorkflowStateBody is the request body of a workflow state change.
type WorkflowStateBody struct {
	State          WorkflowState `json:"state"`
	AuditedComment string        `json:"auditedComment,omitempty"`
	Locked         bool          `json:"locked"`
}
