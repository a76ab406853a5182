package exstream

import (
	"fmt"
	"io"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ImportRequest describes a package import. A false Commit performs a dry
// run: the server computes the outcome without persisting it.
type ImportRequest struct {
	Archive       io.Reader
	FileName      string
	PackageType   PackageType
	GeneralPolicy ImportPolicy
	Commit        bool
}

// WithDefaults returns a copy with the DAS package type and the ERROR policy
// filled in where unset.
func (r ImportRequest) WithDefaults() ImportRequest {
	if r.PackageType == "" {
		r.PackageType = PackageTypeDAS
	}

	if r.GeneralPolicy == "" {
		r.GeneralPolicy = ImportPolicyError
	}

	if r.FileName == "" {
		r.FileName = "package.zip"
	}

	return r
}

// Validate checks the request.
func (r *ImportRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(r,
		validation.Field(&r.Archive, validation.Required),
		validation.Field(&r.GeneralPolicy, validation.In(ImportPolicyError, ImportPolicyReplace, ImportPolicySkip, ImportPolicyAutoRename)),
	))
}

// WorkflowStateRequest asks for a workflow state change. The backend enforces
// which transitions are allowed.
type WorkflowStateRequest struct {
	State   WorkflowState
	Comment string
	Lock    bool
}

// Validate checks the request.
func (r *WorkflowStateRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(r,
		validation.Field(&r.State, validation.Required,
			validation.In(WorkflowStateDraft, WorkflowStateReview, WorkflowStateApproved, WorkflowStateRejected)),
	))
}

// ContentUpload replaces the payload of an existing resource.
type ContentUpload struct {
	Content  io.Reader
	FileName string
}

// Validate checks the upload.
func (r *ContentUpload) Validate() error {
	return wrapValidation(validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.Required),
	))
}

// CreateResourceRequest creates a new resource. Name and Type are required.
type CreateResourceRequest struct {
	Name     string
	Type     ResourceType
	Subtype  string
	Content  io.Reader
	FileName string
}

// Validate checks the request.
func (r *CreateResourceRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Type, validation.Required),
	))
}

// GenerateRequest asks the orchestration service for on-demand output.
type GenerateRequest struct {
	CommunicationID  string
	DriverDataSource string
	// EmpowerUser is sent only when set; it is required for Empower output.
	EmpowerUser string
	DriverData  []byte
	// ContentType of DriverData. Empty means "application/json".
	ContentType string
}

// Validate checks the request.
func (r *GenerateRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(r,
		validation.Field(&r.CommunicationID, validation.Required),
		validation.Field(&r.DriverDataSource, validation.Required),
	))
}

// FulfillRequest asks the orchestration service to fulfill an Empower document.
type FulfillRequest struct {
	DocumentID        string
	CommunicationID   string
	DriverDataSource  string
	PreserveDocuments bool
}

// Validate checks the request.
func (r *FulfillRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(r,
		validation.Field(&r.DocumentID, validation.Required),
		validation.Field(&r.CommunicationID, validation.Required),
		validation.Field(&r.DriverDataSource, validation.Required),
	))
}

func wrapValidation(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
}
