package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-forms/internal/diagnostics"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/acroform"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/pdftest"
)

type stubFetcher map[string][]byte

func (s stubFetcher) Fetch(_ context.Context, location string) ([]byte, error) {
	data, ok := s[location]
	if !ok {
		return nil, diagnostics.WrapError(diagnostics.KindPDFFetch, "failed to fetch PDF",
			errors.New("unexpected status 404 Not Found")).WithLocation(location)
	}
	return data, nil
}

func TestFilename(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{"https://files.example.com/vorlagen/Hilti%20HIT.pdf", "filled-Hilti HIT.pdf"},
		{"https://files.example.com/vorlagen/bestellung.pdf?token=abc#page=2", "filled-bestellung.pdf"},
		{"https://files.example.com/vorlagen/Sch%C3%B6ck%20Isokorb.PDF", "filled-Schöck Isokorb.PDF"},
		{"https://files.example.com/api/files/42", "filled-42.pdf"},
		{"https://files.example.com/a%2Fb.pdf", "filled-a_b.pdf"},
		{"/srv/vorlagen/halfen.pdf", "filled-halfen.pdf"},
		{`C:\vorlagen\halfen.pdf`, "filled-halfen.pdf"},
		{"vorlage", "filled-vorlage.pdf"},
		{"bad%zzname.pdf", "filled-bad%zzname.pdf"},
		{"https://files.example.com/", "filled-files.example.com.pdf"},
		{"", "filled-document.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.location))
		})
	}
}

func TestFillAndExport(t *testing.T) {
	const location = "https://files.example.com/vorlagen/Bestell%20formular.pdf"
	fetcher := stubFetcher{location: pdftest.OrderForm().Bytes()}
	exp := New(fetcher, acroform.NewEngine(nil), nil)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	exp.now = func() time.Time { return fixed }

	a, err := exp.FillAndExport(context.Background(), location, map[string]string{
		"Projekt":   "Seefeld",
		"Gibtsnich": "x",
	}, acroform.FillOptions{})
	require.NoError(t, err)

	assert.Equal(t, "filled-Bestell formular.pdf", a.Filename)
	assert.Equal(t, ContentType, a.ContentType)
	assert.Len(t, a.ID, 36)
	assert.Equal(t, len(a.Bytes), a.Size)
	assert.Equal(t, []string{"Projekt"}, a.Filled)
	assert.Equal(t, []string{"Gibtsnich"}, a.Missing)
	assert.Equal(t, fixed, a.CreatedAt)

	fields, err := acroform.ExtractFormFields(a.Bytes)
	require.NoError(t, err)
	for _, f := range fields {
		if f.Name == "Projekt" {
			assert.Equal(t, "Seefeld", f.Value)
		}
	}
}

func TestFillAndExport_Failures(t *testing.T) {
	fetcher := stubFetcher{
		"kaputt.pdf": []byte("%PDF-1.7\nthis is not really a PDF"),
	}
	exp := New(fetcher, acroform.NewEngine(nil), nil)

	a, err := exp.FillAndExport(context.Background(), "fehlt.pdf", map[string]string{"Projekt": "x"},
		acroform.FillOptions{})
	assert.Nil(t, a)
	assert.True(t, diagnostics.IsKind(err, diagnostics.KindPDFFetch))

	a, err = exp.FillAndExport(context.Background(), "kaputt.pdf", map[string]string{"Projekt": "x"},
		acroform.FillOptions{})
	assert.Nil(t, a)
	require.True(t, diagnostics.IsKind(err, diagnostics.KindPDFParse), "got %v", err)

	var de *diagnostics.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "kaputt.pdf", de.Location)
}

func TestArtifact_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exporte")
	a := &Artifact{Filename: "filled-bestellung.pdf", Bytes: []byte("%PDF-1.7\n%%EOF\n")}

	path, err := a.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "filled-bestellung.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, a.Bytes, data)

	a.Bytes = []byte("%PDF-1.7\nsecond\n%%EOF\n")
	_, err = a.Save(dir)
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, a.Bytes, data)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestArtifact_SaveFailure(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "datei")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	a := &Artifact{Filename: "filled-a.pdf", Bytes: []byte("%PDF-")}
	_, err := a.Save(filepath.Join(blocker, "unter"))
	require.Error(t, err)
	assert.True(t, diagnostics.IsKind(err, diagnostics.KindExportIO))
}
