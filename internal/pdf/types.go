package pdf

import (
	"github.com/a3tai/mcp-pdf-forms/internal/diagnostics"
	"github.com/a3tai/mcp-pdf-forms/internal/domain"
	"github.com/a3tai/mcp-pdf-forms/internal/mapping"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/acroform"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/export"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/preview"
)

// Mapping origins reported in results
const (
	MappingFromTemplate = "template"
	MappingFromRegistry = "registry"
	MappingFromDefault  = "default"
)

// FormFieldsRequest asks for the form fields of a document
type FormFieldsRequest struct {
	Location string `json:"location"`
}

// FormFieldsResult lists a document's form fields
type FormFieldsResult struct {
	Location string                     `json:"location"`
	Fields   []acroform.FieldDescriptor `json:"fields"`
	Count    int                        `json:"count"`
}

// FormTemplateRequest asks for a guessed mapping for a document
type FormTemplateRequest struct {
	Location string `json:"location"`
}

// FormTemplateResult is a guessed mapping plus its persisted form
type FormTemplateResult struct {
	Location  string                     `json:"location"`
	Mapping   *mapping.FormMappingConfig `json:"mapping"`
	Persisted string                     `json:"persisted"`
	Skipped   []string                   `json:"skipped,omitempty"` // non-text fields
}

// MappingRequest selects a mapping by stored template or by manufacturer
// and product type
type MappingRequest struct {
	Template domain.PdfTemplate `json:"template"`
}

// MappingResult is the mapping that applies to a template
type MappingResult struct {
	Manufacturer string                     `json:"manufacturer,omitempty"`
	ProductType  string                     `json:"productType,omitempty"`
	Origin       string                     `json:"origin"`
	Mapping      *mapping.FormMappingConfig `json:"mapping"`
	Available    map[string][]string        `json:"available"`
	Warnings     []diagnostics.Event        `json:"warnings,omitempty"`
}

// ResolveRequest resolves order data through a template's mapping
type ResolveRequest struct {
	Template domain.PdfTemplate `json:"template"`
	Order    domain.OrderData   `json:"order"`
}

// ResolveResult holds one string per mapped PDF field
type ResolveResult struct {
	Origin   string              `json:"origin"`
	Fields   []string            `json:"fields"` // mapping order
	Values   map[string]string   `json:"values"`
	Warnings []diagnostics.Event `json:"warnings,omitempty"`
}

// FillRequest resolves order data and fills the template document.
// Location defaults to the template's file URL. Values, when given, are used
// instead of resolving Order.
type FillRequest struct {
	Location string             `json:"location,omitempty"`
	Template domain.PdfTemplate `json:"template"`
	Order    domain.OrderData   `json:"order"`
	Values   map[string]string  `json:"values,omitempty"`
	Flatten  *bool              `json:"flatten,omitempty"`
	Save     bool               `json:"save,omitempty"`
}

// FillResult describes the produced artifact
type FillResult struct {
	Artifact      *export.Artifact    `json:"artifact"`
	SavedPath     string              `json:"savedPath,omitempty"`
	NotInDocument []string            `json:"notInDocument,omitempty"` // mapped names the form lacks
	Warnings      []diagnostics.Event `json:"warnings,omitempty"`
}

// Preview actions
const (
	PreviewLoad     = "load"
	PreviewNext     = "next"
	PreviewPrevious = "previous"
	PreviewZoomIn   = "zoom_in"
	PreviewZoomOut  = "zoom_out"
	PreviewGoTo     = "goto"
)

// PreviewRequest drives the preview viewer
type PreviewRequest struct {
	Location string  `json:"location,omitempty"`
	Action   string  `json:"action,omitempty"`
	Page     int     `json:"page,omitempty"`
	Scale    float64 `json:"scale,omitempty"`
	// Session selects the viewer; requests without one share a viewer.
	Session  string  `json:"-"`
}

// PreviewResult is the rendered page and the viewer state
type PreviewResult struct {
	State  preview.Snapshot `json:"state"`
	PNG    []byte           `json:"-"`
	Width  int              `json:"width"`
	Height int              `json:"height"`
	Cached bool             `json:"cached"`
}

// ServerInfoResult describes the server and its tools
type ServerInfoResult struct {
	ServerName       string              `json:"serverName"`
	Version          string              `json:"version"`
	DocumentRoot     string              `json:"documentRoot"`
	OutputDirectory  string              `json:"outputDirectory"`
	MaxFileSize      int64               `json:"maxFileSize"`
	FlattenByDefault bool                `json:"flattenByDefault"`
	DateLayout       string              `json:"dateLayout"`
	Manufacturers    map[string][]string `json:"manufacturers"`
	Transforms       []string            `json:"transforms"`
	CustomFields     []string            `json:"customFields"`
	PreviewCache     preview.CacheStats  `json:"previewCache"`
	AvailableTools   []ToolInfo          `json:"availableTools"`
	UsageGuidance    string              `json:"usageGuidance"`
}

// ToolInfo describes one tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}

// FormListRequest lists the PDF forms under the document root
type FormListRequest struct {
	Query       string `json:"query,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	CountFields bool   `json:"countFields,omitempty"`
}

// FormFile is one PDF found under the document root
type FormFile struct {
	Path         string `json:"path"` // relative to the document root
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modifiedTime"`
	FieldCount   *int   `json:"fieldCount,omitempty"`
	Error        string `json:"error,omitempty"`
}

// FormListResult lists the forms found
type FormListResult struct {
	Directory  string     `json:"directory"`
	Query      string     `json:"query,omitempty"`
	Files      []FormFile `json:"files"`
	TotalCount int        `json:"totalCount"`
	Truncated  bool       `json:"truncated,omitempty"`
}
