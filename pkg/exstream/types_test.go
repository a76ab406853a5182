package exstream_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

func TestParseWorkflowState(t *testing.T) {
	t.Parallel()

	state, err := exstream.ParseWorkflowState(" review ")
	require.NoError(t, err)
	assert.Equal(t, exstream.WorkflowStateReview, state)

	_, err = exstream.ParseWorkflowState("PUBLISHED")
	require.ErrorIs(t, err, exstream.ErrInvalidWorkflowState)
}

func TestParseImportPolicy(t *testing.T) {
	t.Parallel()

	policy, err := exstream.ParseImportPolicy("auto_rename")
	require.NoError(t, err)
	assert.Equal(t, exstream.ImportPolicyAutoRename, policy)

	_, err = exstream.ParseImportPolicy("merge")
	require.ErrorIs(t, err, exstream.ErrInvalidImportPolicy)
}

func TestParseOutputType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected exstream.OutputType
	}{
		{"pdf", exstream.OutputTypePDF},
		{"HTML", exstream.OutputTypeHTML},
		{"application/pdf", exstream.OutputTypePDF},
		{"Application/JSON", exstream.OutputTypeJSON},
		{"empower", exstream.OutputTypeEmpower},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			outputType, err := exstream.ParseOutputType(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, outputType)
		})
	}

	_, err := exstream.ParseOutputType("docx")
	require.ErrorIs(t, err, exstream.ErrInvalidOutputType)
}

func TestOutputType_Matches(t *testing.T) {
	t.Parallel()

	assert.True(t, exstream.OutputTypePDF.Matches("APPLICATION/PDF"))
	assert.False(t, exstream.OutputTypePDF.Matches("text/html"))
	assert.False(t, exstream.OutputType("NONE").Matches(""))
}

func TestTimestamp_Unmarshal(t *testing.T) {
	t.Parallel()

	var millis exstream.Timestamp
	require.NoError(t, json.Unmarshal([]byte("1700000000000"), &millis))
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), millis.Time)

	var text exstream.Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2024-01-02T03:04:05Z"`), &text))
	assert.Equal(t, 2024, text.Year())

	var empty exstream.Timestamp
	require.NoError(t, json.Unmarshal([]byte("null"), &empty))
	assert.True(t, empty.IsZero())

	var bad exstream.Timestamp
	require.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))
}

func TestResourceVersion_Decode(t *testing.T) {
	t.Parallel()

	body := `{"data":[{"id":"0d6c4c1e-5c49-4e5d-9d43-3f3b9a1c2b7e","version":3,"name":"Welcome",` +
		`"type":"exstrcommunicationset","state":"APPROVED","createdDate":1700000000000,` +
		`"metadata":{"subtype":"letter"},"locked":true}],"page":{"count":1,"offset":0,"total":1}}`

	var page exstream.PageResponse[exstream.ResourceVersion]
	require.NoError(t, json.Unmarshal([]byte(body), &page))

	require.Len(t, page.Data, 1)
	resource := page.Data[0]
	assert.Equal(t, "0d6c4c1e-5c49-4e5d-9d43-3f3b9a1c2b7e", resource.ID.String())
	assert.Equal(t, 3, resource.Version)
	assert.Equal(t, exstream.ResourceTypeCommunicationSet, resource.Type)
	assert.Equal(t, exstream.WorkflowStateApproved, resource.State)
	assert.Equal(t, "letter", resource.Metadata.Subtype)
	assert.True(t, resource.Locked)
	assert.Equal(t, 1, page.Page.Total)
}

func TestManifest_Helpers(t *testing.T) {
	t.Parallel()

	manifest := &exstream.Manifest{
		DataSources: []exstream.ManifestDataSource{{Name: "Customers", ProdDSN: "customers-prod"}},
		Queues: []exstream.ManifestQueue{
			{Driver: exstream.QueueDriverPDF, Name: "Print"},
			{Driver: exstream.QueueDriverEmpower, Name: "Edit"},
		},
	}

	assert.True(t, manifest.HasPDFOutput())
	assert.True(t, manifest.HasEmpowerOutput())

	primary, ok := manifest.PrimaryDataSource()
	require.True(t, ok)
	assert.Equal(t, "customers-prod", primary.ProdDSN)

	empty := &exstream.Manifest{}
	_, ok = empty.PrimaryDataSource()
	assert.False(t, ok)
	assert.False(t, empty.HasPDFOutput())
}

func TestGeneratedOutput_OutputFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "letter.pdf", (&exstream.GeneratedOutput{FileName: "letter", FileExtension: "pdf"}).OutputFileName())
	assert.Equal(t, "letter.pdf", (&exstream.GeneratedOutput{FileName: "letter", FileExtension: ".pdf"}).OutputFileName())
	assert.Equal(t, "letter", (&exstream.GeneratedOutput{FileName: "letter"}).OutputFileName())
}

func TestImportRequest_WithDefaults(t *testing.T) {
	t.Parallel()

	request := exstream.ImportRequest{}.WithDefaults()

	assert.Equal(t, exstream.PackageTypeDAS, request.PackageType)
	assert.Equal(t, exstream.ImportPolicyError, request.GeneralPolicy)
	assert.Equal(t, "package.zip", request.FileName)
	assert.False(t, request.Commit)
}

func TestRequestValidation(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, (&exstream.ImportRequest{}).Validate(), exstream.ErrInvalidRequest)
	require.ErrorIs(t, (&exstream.WorkflowStateRequest{State: "PUBLISHED"}).Validate(), exstream.ErrInvalidRequest)
	require.NoError(t, (&exstream.WorkflowStateRequest{State: exstream.WorkflowStateReview}).Validate())
	require.ErrorIs(t, (&exstream.CreateResourceRequest{Name: "x"}).Validate(), exstream.ErrInvalidRequest)
	require.ErrorIs(t, (&exstream.GenerateRequest{CommunicationID: "c"}).Validate(), exstream.ErrInvalidRequest)
	require.NoError(t, (&exstream.GenerateRequest{CommunicationID: "c", DriverDataSource: "d"}).Validate())
	require.ErrorIs(t, (&exstream.FulfillRequest{CommunicationID: "c", DriverDataSource: "d"}).Validate(), exstream.ErrInvalidRequest)
}
