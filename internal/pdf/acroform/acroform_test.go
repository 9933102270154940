package acroform

import (
	"bytes"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-forms/internal/diagnostics"
	"github.com/a3tai/mcp-pdf-forms/internal/mapping"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/pdftest"
)

func fieldByName(t *testing.T, fields []FieldDescriptor, name string) FieldDescriptor {
	t.Helper()
	for _, f := range fields {
		if f.Name == name {
			return f
		}
	}
	require.Failf(t, "field not found", "no field %q in %v", name, FieldNames(fields))
	return FieldDescriptor{}
}

func TestExtractFormFields_OrderForm(t *testing.T) {
	fields, err := ExtractFormFields(pdftest.OrderForm().Bytes())
	require.NoError(t, err)

	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"Projekt", "Bestellnummer", "Datum", "Pos1_Artikel", "Pos1_Menge",
		"Express", "Lieferart", "Ingenieur.Name", "Ingenieur.Ort",
	}, names)

	projekt := fieldByName(t, fields, "Projekt")
	assert.Equal(t, FieldTypeText, projekt.Type)
	assert.Equal(t, 1, projekt.Page)
	require.NotNil(t, projekt.Rect)
	assert.Equal(t, Rect{X: 72, Y: 700, Width: 228, Height: 20}, *projekt.Rect)

	assert.True(t, fieldByName(t, fields, "Bestellnummer").Required)
	assert.True(t, fieldByName(t, fields, "Pos1_Menge").ReadOnly)
	assert.Equal(t, "01.01.2024", fieldByName(t, fields, "Datum").Value)
	assert.Equal(t, FieldTypeCheckbox, fieldByName(t, fields, "Express").Type)

	lieferart := fieldByName(t, fields, "Lieferart")
	assert.Equal(t, FieldTypeDropdown, lieferart.Type)
	assert.Equal(t, []string{"Abholung", "Lieferung"}, lieferart.Options)

	assert.Equal(t, FieldTypeText, fieldByName(t, fields, "Ingenieur.Ort").Type)
}

func TestExtractFormFields_Variants(t *testing.T) {
	tests := []struct {
		name  string
		form  pdftest.Form
		check func(t *testing.T, fields []FieldDescriptor)
	}{
		{
			name: "button kinds and signature",
			form: pdftest.Form{Fields: []pdftest.Field{
				{Name: "Zahlung", Type: pdftest.Button, Flags: pdftest.FlagRadio},
				{Name: "Senden", Type: pdftest.Button, Flags: pdftest.FlagPushbutton},
				{Name: "Unterschrift", Type: pdftest.Signature},
				{Name: "Seltsam", Type: "Xx"},
			}},
			check: func(t *testing.T, fields []FieldDescriptor) {
				assert.Equal(t, FieldTypeRadio, fieldByName(t, fields, "Zahlung").Type)
				assert.Equal(t, FieldTypeButton, fieldByName(t, fields, "Senden").Type)
				assert.Equal(t, FieldTypeSignature, fieldByName(t, fields, "Unterschrift").Type)
				assert.Equal(t, FieldTypeUnknown, fieldByName(t, fields, "Seltsam").Type)
			},
		},
		{
			name: "fields on later pages",
			form: pdftest.Form{Pages: 3, Fields: []pdftest.Field{
				{Name: "Seite1", Type: pdftest.Text, Page: 1},
				{Name: "Seite3", Type: pdftest.Text, Page: 3},
			}},
			check: func(t *testing.T, fields []FieldDescriptor) {
				assert.Equal(t, 1, fieldByName(t, fields, "Seite1").Page)
				assert.Equal(t, 3, fieldByName(t, fields, "Seite3").Page)
			},
		},
		{
			name: "orphan widget",
			form: pdftest.Form{Fields: []pdftest.Field{
				{Name: "Projekt", Type: pdftest.Text},
				{Name: "Notiz", Type: pdftest.Text, Orphan: true},
			}},
			check: func(t *testing.T, fields []FieldDescriptor) {
				assert.Equal(t, []string{"Notiz", "Projekt"}, FieldNames(fields))
			},
		},
		{
			name: "no form",
			form: pdftest.Form{NoAcroForm: true},
			check: func(t *testing.T, fields []FieldDescriptor) {
				assert.Empty(t, fields)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := ExtractFormFields(tt.form.Bytes())
			require.NoError(t, err)
			tt.check(t, fields)
		})
	}
}

func TestExtractFormFields_InvalidPDF(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":     nil,
		"not a pdf": []byte("this is not a PDF document"),
		"truncated": pdftest.OrderForm().Bytes()[:200],
	} {
		t.Run(name, func(t *testing.T) {
			fields, err := ExtractFormFields(data)
			require.Error(t, err)
			assert.Nil(t, fields)
			assert.True(t, diagnostics.IsKind(err, diagnostics.KindPDFParse), "got %v", err)
		})
	}
}

func TestFill_TextFields(t *testing.T) {
	sink := diagnostics.NewCollector()
	engine := NewEngine(sink)

	res, err := engine.Fill(pdftest.OrderForm().Bytes(), map[string]string{
		"Projekt":        "Wohnüberbauung (Etappe 2)",
		"Bestellnummer":  "P-17-03.12",
		"Ingenieur.Name": "Ingenieure AG",
		"Express":        "Yes",
		"Unbekannt":      "x",
	}, FillOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Bestellnummer", "Ingenieur.Name", "Projekt"}, res.Filled)
	assert.Equal(t, []string{"Unbekannt"}, res.Missing)
	assert.Equal(t, []string{"Express"}, res.Unsupported)
	assert.False(t, res.Flattened)
	assert.True(t, bytes.HasPrefix(res.Bytes, []byte("%PDF-")))

	assert.Len(t, sink.OfKind(diagnostics.KindFieldNotFound), 1)
	assert.Len(t, sink.OfKind(diagnostics.KindUnsupportedField), 1)

	fields, err := ExtractFormFields(res.Bytes)
	require.NoError(t, err)
	assert.Equal(t, "Wohnüberbauung (Etappe 2)", fieldByName(t, fields, "Projekt").Value)
	assert.Equal(t, "P-17-03.12", fieldByName(t, fields, "Bestellnummer").Value)
	assert.Equal(t, "Ingenieure AG", fieldByName(t, fields, "Ingenieur.Name").Value)
	assert.Equal(t, "01.01.2024", fieldByName(t, fields, "Datum").Value, "untargeted fields keep their value")
	assert.Empty(t, fieldByName(t, fields, "Express").Value)
}

func TestFill_OnlyMissingFieldsStillProducesDocument(t *testing.T) {
	res, err := NewEngine(nil).Fill(pdftest.OrderForm().Bytes(), map[string]string{"Gibtsnicht": "x"}, FillOptions{})
	require.NoError(t, err)

	assert.Empty(t, res.Filled)
	assert.Equal(t, []string{"Gibtsnicht"}, res.Missing)

	fields, err := ExtractFormFields(res.Bytes)
	require.NoError(t, err)
	assert.Len(t, fields, len(pdftest.OrderForm().Fields))
}

func TestFill_EmptyTableReturnsInput(t *testing.T) {
	input := pdftest.OrderForm().Bytes()

	res, err := NewEngine(nil).Fill(input, nil, FillOptions{})
	require.NoError(t, err)
	assert.Equal(t, input, res.Bytes)
	assert.Empty(t, res.Filled)

	_, err = NewEngine(nil).Fill([]byte("garbage"), nil, FillOptions{})
	assert.True(t, diagnostics.IsKind(err, diagnostics.KindPDFParse))
}

func TestFill_Flatten(t *testing.T) {
	res, err := NewEngine(nil).Fill(pdftest.OrderForm().Bytes(), map[string]string{
		"Projekt": "Seefeld",
	}, FillOptions{Flatten: true})
	require.NoError(t, err)

	assert.True(t, res.Flattened)
	assert.Equal(t, []string{"Projekt"}, res.Filled)

	fields, err := ExtractFormFields(res.Bytes)
	require.NoError(t, err)
	assert.Empty(t, fields, "flattened documents have no form fields")
}

func TestValidateMapping(t *testing.T) {
	fields, err := ExtractFormFields(pdftest.OrderForm().Bytes())
	require.NoError(t, err)

	cfg := mapping.NewConfig(
		mapping.FieldMapping{PDFField: "Projekt", Source: mapping.SourceProject, Field: "name"},
		mapping.FieldMapping{PDFField: "Baumeister", Source: mapping.SourceProject, Field: "masonryCompany.name"},
		mapping.FieldMapping{PDFField: "Datum", Source: mapping.SourceCustom, Field: mapping.CustomCurrentDate},
		mapping.FieldMapping{PDFField: "Bauherr", Source: mapping.SourceProject, Field: "owner.name"},
	)

	assert.Equal(t, []string{"Baumeister", "Bauherr"}, ValidateMapping(cfg, fields))
	assert.Equal(t, []string{"Bestellnummer", "Pos1_Artikel", "Pos1_Menge", "Ingenieur.Name", "Ingenieur.Ort"},
		UnmappedFields(cfg, fields))
}

func TestEncodeTextString(t *testing.T) {
	assert.Equal(t, types.StringLiteral(`a\(b\)\\c`), encodeTextString(`a(b)\c`))

	hex, ok := encodeTextString("Zürich").(types.HexLiteral)
	require.True(t, ok)
	assert.Equal(t, types.HexLiteral("feff005a00fc0072006900630068"), hex)
}

func TestWinAnsiLiteral(t *testing.T) {
	assert.Equal(t, "(Z\xfcrich)", winAnsiLiteral("Zürich"))
	assert.Equal(t, `(\(1\))`, winAnsiLiteral("(1)"))
	assert.NotContains(t, winAnsiLiteral("Ω"), "Ω")
}

func TestParseDAFontSize(t *testing.T) {
	tests := []struct {
		da   string
		want float64
		ok   bool
	}{
		{"/Helv 10 Tf 0 g", 10, true},
		{"0 g /Helv 0 Tf", 0, true},
		{"/Helv 8.5 Tf", 8.5, true},
		{"0 g", 0, false},
		{"/Helv x Tf", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.da, func(t *testing.T) {
			got, ok := parseDAFontSize(tt.da)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, FieldTypeText, classify("Tx", 0))
	assert.Equal(t, FieldTypeCheckbox, classify("Btn", 0))
	assert.Equal(t, FieldTypeRadio, classify("Btn", flagRadio))
	assert.Equal(t, FieldTypeButton, classify("Btn", flagPushbutton))
	assert.Equal(t, FieldTypeDropdown, classify("Ch", 1<<17))
	assert.Equal(t, FieldTypeSignature, classify("Sig", 0))
	assert.Equal(t, FieldTypeUnknown, classify("", 0))
}
