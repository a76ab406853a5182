package exstream

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
)

// Query parameter names used by resource and link queries.
const (
	ParamLatestVersion   = "filter.latestVersion"
	ParamTypes           = "filter.types"
	ParamStates          = "filter.states"
	ParamRecursiveTypes  = "rfilter.types"
	ParamRecursiveStates = "rfilter.states"
	ParamCount           = "count"
	ParamOffset          = "offset"
)

// ResourceFilter constrains resource and link queries. A nil field means no
// constraint, never an empty set. The recursive fields constrain the
// resources on the other side of a link traversal.
type ResourceFilter struct {
	Types           []ResourceType
	States          []WorkflowState
	LatestVersion   *bool
	RecursiveTypes  []ResourceType
	RecursiveStates []WorkflowState
}

// NewResourceFilter creates an empty filter.
func NewResourceFilter() *ResourceFilter {
	return &ResourceFilter{}
}

// WithTypes constrains the resource types.
func (f *ResourceFilter) WithTypes(types ...ResourceType) *ResourceFilter {
	f.Types = types

	return f
}

// WithStates constrains the workflow states.
func (f *ResourceFilter) WithStates(states ...WorkflowState) *ResourceFilter {
	f.States = states

	return f
}

// WithLatestVersion restricts results to (or away from) latest versions.
func (f *ResourceFilter) WithLatestVersion(latest bool) *ResourceFilter {
	f.LatestVersion = &latest

	return f
}

// WithRecursiveTypes constrains the resource types across a link.
func (f *ResourceFilter) WithRecursiveTypes(types ...ResourceType) *ResourceFilter {
	f.RecursiveTypes = types

	return f
}

// WithRecursiveStates constrains the workflow states across a link.
func (f *ResourceFilter) WithRecursiveStates(states ...WorkflowState) *ResourceFilter {
	f.RecursiveStates = states

	return f
}

// ToValues encodes the filter as query parameters. Each present list field
// becomes one comma-joined value in list order; absent fields are omitted.
func (f *ResourceFilter) ToValues() url.Values {
	values := url.Values{}
	if f == nil {
		return values
	}

	if f.LatestVersion != nil {
		values.Set(ParamLatestVersion, strconv.FormatBool(*f.LatestVersion))
	}

	if f.Types != nil {
		values.Set(ParamTypes, joinTags(f.Types))
	}

	if f.States != nil {
		values.Set(ParamStates, joinTags(f.States))
	}

	if f.RecursiveTypes != nil {
		values.Set(ParamRecursiveTypes, joinTags(f.RecursiveTypes))
	}

	if f.RecursiveStates != nil {
		values.Set(ParamRecursiveStates, joinTags(f.RecursiveStates))
	}

	return values
}

// Encode returns the stable query string form of the filter.
func (f *ResourceFilter) Encode() string {
	return f.ToValues().Encode()
}

func joinTags[T ~string](tags []T) string {
	parts := make([]string, len(tags))
	for i, tag := range tags {
		parts[i] = string(tag)
	}

	return strings.Join(parts, ",")
}

// PageInfo selects a page of a list result.
type PageInfo struct {
	Count  int
	Offset int
}

// DefaultPageInfo returns the page used when a list call has none.
func DefaultPageInfo() *PageInfo {
	return &PageInfo{
		Count:  constants.DefaultPageCount,
		Offset: constants.DefaultPageOffset,
	}
}

// ToValues encodes the page as count and offset parameters.
func (p *PageInfo) ToValues() url.Values {
	values := url.Values{}
	if p == nil {
		return values
	}

	values.Set(ParamCount, strconv.Itoa(p.Count))
	values.Set(ParamOffset, strconv.Itoa(p.Offset))

	return values
}

// MergeValues copies every key of src into dst, preserving value order.
func MergeValues(dst url.Values, src url.Values) url.Values {
	if dst == nil {
		dst = url.Values{}
	}

	for key, vals := range src {
		for _, v := range vals {
			dst.Add(key, v)
		}
	}

	return dst
}
