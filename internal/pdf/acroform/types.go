// Package acroform reads, fills and flattens PDF interactive forms (AcroForm)
// on top of the pdfcpu object model.
package acroform

import "github.com/a3tai/mcp-pdf-forms/internal/diagnostics"

// FieldType is the closed set of form field kinds
type FieldType string

const (
	FieldTypeText      FieldType = "text"
	FieldTypeCheckbox  FieldType = "checkbox"
	FieldTypeRadio     FieldType = "radio"
	FieldTypeDropdown  FieldType = "dropdown"
	FieldTypeButton    FieldType = "button"
	FieldTypeSignature FieldType = "signature"
	FieldTypeUnknown   FieldType = "unknown"
)

// Field flag bits (PDF 32000-1, 12.7.3.1 and 12.7.4)
const (
	flagReadOnly   = 1 << 0
	flagRequired   = 1 << 1
	flagRadio      = 1 << 15
	flagPushbutton = 1 << 16
)

// Rect is a widget bounding box in default user space
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FieldDescriptor describes one terminal form field
type FieldDescriptor struct {
	Name      string    `json:"name"`
	Type      FieldType `json:"type"`
	Value     string    `json:"value,omitempty"`
	Options   []string  `json:"options,omitempty"`
	Required  bool      `json:"required,omitempty"`
	ReadOnly  bool      `json:"readOnly,omitempty"`
	Rect      *Rect     `json:"rect,omitempty"`
	Page      int       `json:"page,omitempty"`
	MaxLength int       `json:"maxLength,omitempty"`
}

// FillOptions controls Fill
type FillOptions struct {
	// Flatten draws the filled values into the page content and removes the form
	Flatten bool
}

// FillResult is the outcome of a fill.
// Filled, Missing and Unsupported hold PDF field names in sorted order.
type FillResult struct {
	Bytes       []byte
	Filled      []string
	Missing     []string
	Unsupported []string
	Flattened   bool
}

// Engine extracts and fills forms, reporting per-field problems to its sink
type Engine struct {
	sink diagnostics.Sink
}

// NewEngine creates an engine reporting to sink (nil discards)
func NewEngine(sink diagnostics.Sink) *Engine {
	return &Engine{sink: diagnostics.OrDiscard(sink)}
}

// ExtractFormFields lists the form fields of pdfBytes without reporting diagnostics
func ExtractFormFields(pdfBytes []byte) ([]FieldDescriptor, error) {
	return NewEngine(nil).Extract(pdfBytes)
}
