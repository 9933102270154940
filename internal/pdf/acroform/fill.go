package acroform

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/mcp-pdf-forms/internal/diagnostics"
)

// Fill writes values into the text fields of pdfBytes.
//
// Unknown field names are reported as FieldNotFound and skipped; fields of
// other kinds are reported as UnsupportedField and left untouched. With no
// values and no flattening the input is returned unchanged after it has been
// parsed. Parse failures are PDFParse errors, write failures ExportIO errors.
func (e *Engine) Fill(pdfBytes []byte, values map[string]string, opts FillOptions) (result *FillResult, err error) {
	if len(values) == 0 && !opts.Flatten {
		if _, err := readContext(pdfBytes, false); err != nil {
			return nil, err
		}
		return &FillResult{Bytes: pdfBytes}, nil
	}

	ctx, err := readContext(pdfBytes, true)
	if err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			result, err = nil, diagnostics.WrapError(diagnostics.KindExportIO, "failed to generate filled PDF",
				fmt.Errorf("panic: %v", p))
		}
	}()

	f, err := loadForm(ctx)
	if err != nil {
		return nil, err
	}

	result = &FillResult{}
	filled := make(map[*formField]string)

	for _, name := range sortedKeys(values) {
		fld, ok := f.byName[name]
		if !ok {
			result.Missing = append(result.Missing, name)
			e.sink.Report(diagnostics.NewEvent(diagnostics.KindFieldNotFound, name,
				"form has no field with this name, skipping"))
			continue
		}
		if fld.typ != FieldTypeText {
			result.Unsupported = append(result.Unsupported, name)
			e.sink.Report(diagnostics.NewEvent(diagnostics.KindUnsupportedField, name,
				fmt.Sprintf("only text fields are filled, field is %s", fld.typ)))
			continue
		}

		fld.setValue(values[name])
		filled[fld] = values[name]
		result.Filled = append(result.Filled, name)
	}

	if f.acroForm != nil && len(result.Filled) > 0 {
		f.acroForm.Update("NeedAppearances", types.Boolean(true))
	}

	if opts.Flatten {
		if err := f.flatten(filled); err != nil {
			return nil, diagnostics.WrapError(diagnostics.KindExportIO, "failed to flatten form", err)
		}
		result.Flattened = true
	}

	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, diagnostics.WrapError(diagnostics.KindExportIO, "failed to write filled PDF", err)
	}
	result.Bytes = buf.Bytes()
	return result, nil
}

// setValue stores v and drops the stale appearance so viewers regenerate it
func (fld *formField) setValue(v string) {
	fld.dict.Update("V", encodeTextString(v))
	fld.dict.Delete("AP")
	for _, w := range fld.widgets {
		w.dict.Delete("AP")
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
