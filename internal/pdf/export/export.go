// Package export fills an original PDF with resolved values and packages the
// result as a downloadable artifact.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/a3tai/mcp-pdf-forms/internal/diagnostics"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/acroform"
)

// ContentType of every artifact
const ContentType = "application/pdf"

const (
	filenamePrefix  = "filled-"
	defaultBasename = "document"
	artifactPerm    = 0o640
	dirPerm         = 0o750
)

// Fetcher retrieves original documents
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// Filler writes values into a document's form
type Filler interface {
	Fill(pdfBytes []byte, values map[string]string, opts acroform.FillOptions) (*acroform.FillResult, error)
}

// Artifact is a filled document ready to be offered for download
type Artifact struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Bytes       []byte    `json:"-"`
	Size        int       `json:"size"`
	Filled      []string  `json:"filled"`
	Missing     []string  `json:"missing,omitempty"`
	Unsupported []string  `json:"unsupported,omitempty"`
	Flattened   bool      `json:"flattened"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Exporter runs fetch, fill and packaging as one operation
type Exporter struct {
	fetcher Fetcher
	filler  Filler
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an Exporter. A nil logger uses slog.Default.
func New(fetcher Fetcher, filler Filler, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		fetcher: fetcher,
		filler:  filler,
		logger:  logger,
		now:     time.Now,
	}
}

// FillAndExport fetches the document at location, fills it with resolved and
// returns the artifact. Fetch, parse and write failures are returned as
// PDFFetch, PDFParse and ExportIO errors; no artifact is produced then.
func (e *Exporter) FillAndExport(ctx context.Context, location string, resolved map[string]string,
	opts acroform.FillOptions,
) (*Artifact, error) {
	original, err := e.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	return e.Export(original, location, resolved, opts)
}

// Export fills original, naming the artifact after location
func (e *Exporter) Export(original []byte, location string, resolved map[string]string,
	opts acroform.FillOptions,
) (*Artifact, error) {
	e.logger.Info("filling PDF",
		"location", location,
		"pdf_size", len(original),
		"values_count", len(resolved),
		"flatten", opts.Flatten)

	res, err := e.filler.Fill(original, resolved, opts)
	if err != nil {
		var de *diagnostics.Error
		if errors.As(err, &de) && de.Location == "" {
			de.WithLocation(location)
		}
		e.logger.Error("failed to fill PDF", "location", location, "error", err)
		return nil, err
	}
	if len(res.Bytes) == 0 {
		return nil, diagnostics.NewError(diagnostics.KindExportIO, "filled document is empty").WithLocation(location)
	}

	a := &Artifact{
		ID:          uuid.NewString(),
		Filename:    Filename(location),
		ContentType: ContentType,
		Bytes:       res.Bytes,
		Size:        len(res.Bytes),
		Filled:      res.Filled,
		Missing:     res.Missing,
		Unsupported: res.Unsupported,
		Flattened:   res.Flattened,
		CreatedAt:   e.now(),
	}

	e.logger.Info("filled PDF",
		"location", location,
		"filename", a.Filename,
		"output_size", a.Size,
		"filled", len(a.Filled),
		"missing", len(a.Missing),
		"unsupported", len(a.Unsupported))
	return a, nil
}

// Filename derives the artifact name from a URL or path: the URL-decoded
// basename without query or fragment, prefixed with "filled-" and ending in
// ".pdf".
func Filename(location string) string {
	s := strings.TrimSpace(location)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, `/\`)
	if i := strings.LastIndexAny(s, `/\`); i >= 0 {
		s = s[i+1:]
	}
	if decoded, err := url.PathUnescape(s); err == nil {
		s = decoded
	}
	// A decoded %2F must not turn the name into a path.
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, s)
	s = strings.TrimSpace(s)

	if s == "" || s == "." || s == ".." {
		s = defaultBasename
	}
	if !strings.EqualFold(path.Ext(s), ".pdf") {
		s += ".pdf"
	}
	return filenamePrefix + s
}

// Save writes the artifact into dir under its filename, replacing any file of
// the same name atomically. It returns the written path.
func (a *Artifact) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", diagnostics.WrapError(diagnostics.KindExportIO, "failed to create output directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".filled-*.tmp")
	if err != nil {
		return "", diagnostics.WrapError(diagnostics.KindExportIO, "failed to create temporary file", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(a.Bytes); err != nil {
		_ = tmp.Close()
		return "", diagnostics.WrapError(diagnostics.KindExportIO, "failed to write artifact", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", diagnostics.WrapError(diagnostics.KindExportIO, "failed to sync artifact", err)
	}
	if err := tmp.Close(); err != nil {
		return "", diagnostics.WrapError(diagnostics.KindExportIO, "failed to close artifact", err)
	}
	if err := os.Chmod(tmpName, artifactPerm); err != nil {
		return "", diagnostics.WrapError(diagnostics.KindExportIO, "failed to set artifact permissions", err)
	}

	target := filepath.Join(dir, a.Filename)
	if err := os.Rename(tmpName, target); err != nil {
		return "", diagnostics.WrapError(diagnostics.KindExportIO,
			fmt.Sprintf("failed to move artifact to %s", target), err)
	}
	committed = true
	return target, nil
}
