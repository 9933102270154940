package acroform

import (
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/mcp-pdf-forms/internal/mapping"
)

// Extract lists every terminal form field of pdfBytes in document order.
// A document without a form yields an empty list; unparseable bytes are a
// PDFParse error and no partial result is returned.
func (e *Engine) Extract(pdfBytes []byte) ([]FieldDescriptor, error) {
	ctx, err := readContext(pdfBytes, false)
	if err != nil {
		return nil, err
	}
	f, err := loadForm(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]FieldDescriptor, 0, len(f.fields))
	for _, fld := range f.fields {
		out = append(out, f.describe(fld))
	}
	return out, nil
}

func (f *form) describe(fld *formField) FieldDescriptor {
	desc := FieldDescriptor{
		Name:     fld.name,
		Type:     fld.typ,
		Value:    f.value(fld),
		Required: fld.flags&flagRequired != 0,
		ReadOnly: fld.flags&flagReadOnly != 0,
	}

	if fld.typ == FieldTypeDropdown || fld.typ == FieldTypeRadio {
		desc.Options = f.options(fld.dict)
	}

	for _, w := range fld.widgets {
		if w.rect != nil {
			desc.Rect = w.rect
			desc.Page = w.page
			break
		}
	}
	if desc.Page == 0 && len(fld.widgets) > 0 {
		desc.Page = fld.widgets[0].page
	}

	if obj, found := fld.dict.Find("MaxLen"); found {
		if n, err := f.ctx.DereferenceInteger(obj); err == nil && n != nil {
			desc.MaxLength = int(*n)
		}
	}
	return desc
}

// value returns the current value of a field as text
func (f *form) value(fld *formField) string {
	obj, found := fld.dict.Find("V")
	if !found {
		return ""
	}

	switch fld.typ {
	case FieldTypeCheckbox, FieldTypeRadio:
		if name, err := f.ctx.DereferenceName(obj, model.V10, nil); err == nil {
			return string(name)
		}
		return ""
	}

	if s, err := f.ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil); err == nil {
		return s
	}
	// Multi-select choice fields hold an array of strings.
	if arr, err := f.ctx.DereferenceArray(obj); err == nil {
		var parts []string
		for _, o := range arr {
			if s, err := f.ctx.DereferenceStringOrHexLiteral(o, model.V10, nil); err == nil {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// options reads /Opt; entries are either text or [export display] pairs
func (f *form) options(d types.Dict) []string {
	obj, found := d.Find("Opt")
	if !found {
		return nil
	}
	arr, err := f.ctx.DereferenceArray(obj)
	if err != nil {
		return nil
	}

	var opts []string
	for _, o := range arr {
		if s, err := f.ctx.DereferenceStringOrHexLiteral(o, model.V10, nil); err == nil {
			opts = append(opts, s)
			continue
		}
		pair, err := f.ctx.DereferenceArray(o)
		if err != nil || len(pair) == 0 {
			continue
		}
		if s, err := f.ctx.DereferenceStringOrHexLiteral(pair[len(pair)-1], model.V10, nil); err == nil {
			opts = append(opts, s)
		}
	}
	return opts
}

// FieldNames returns the field names, sorted
func FieldNames(fields []FieldDescriptor) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

// ValidateMapping lists the PDF field names cfg maps that the form does not
// have, in mapping order.
func ValidateMapping(cfg *mapping.FormMappingConfig, fields []FieldDescriptor) []string {
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Name] = true
	}
	var missing []string
	for _, name := range cfg.Fields() {
		if !known[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// UnmappedFields lists the text fields of the form that cfg does not map
func UnmappedFields(cfg *mapping.FormMappingConfig, fields []FieldDescriptor) []string {
	var out []string
	for _, f := range fields {
		if f.Type != FieldTypeText {
			continue
		}
		if _, ok := cfg.Get(f.Name); !ok {
			out = append(out, f.Name)
		}
	}
	return out
}
