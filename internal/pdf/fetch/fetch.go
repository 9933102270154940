// Package fetch loads original PDF documents from http(s) URLs or from the
// local document root.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/singleflight"

	"github.com/a3tai/mcp-pdf-forms/internal/diagnostics"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/security"
)

// DefaultMaxSize bounds documents when no limit is configured
const DefaultMaxSize = 100 * 1024 * 1024

// headerWindow is how far into the file the %PDF- marker may appear
const headerWindow = 1024

const pdfMIME = "application/pdf"

// Fetcher retrieves PDF bytes by location. Concurrent fetches of the same
// location share one transfer; callers must not modify the returned slice.
// A caller that gives up does not cancel the transfer for the others.
type Fetcher struct {
	client  *http.Client
	paths   *security.PathValidator
	maxSize int64
	timeout time.Duration
	logger  *slog.Logger
	group   singleflight.Group
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithMaxSize sets the maximum accepted document size in bytes
func WithMaxSize(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxSize = n
		}
	}
}

// WithTimeout bounds each fetch. Zero means the caller's context alone
// decides.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// WithLogger sets the logger for fetch activity
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a Fetcher. Local paths are resolved against paths; with a nil
// validator only remote locations are accepted.
func New(paths *security.PathValidator, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  http.DefaultClient,
		paths:   paths,
		maxSize: DefaultMaxSize,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// MaxSize returns the configured size limit
func (f *Fetcher) MaxSize() int64 {
	return f.maxSize
}

// Fetch returns the bytes of the PDF at location.
//
// Transport failures, bad statuses, oversized documents and rejected paths
// are PDFFetch errors; content that is not a PDF is a PDFParse error.
func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, diagnostics.NewError(diagnostics.KindPDFFetch, "location cannot be empty")
	}

	// The shared transfer outlives any single caller; each caller stops
	// waiting on its own context, bounded only by the configured timeout.
	shared := context.WithoutCancel(ctx)
	ch := f.group.DoChan(location, func() (any, error) {
		return f.fetch(shared, location)
	})

	select {
	case <-ctx.Done():
		return nil, diagnostics.WrapError(diagnostics.KindPDFFetch, "fetch cancelled", ctx.Err()).
			WithLocation(location)
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (f *Fetcher) fetch(ctx context.Context, location string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	var (
		data []byte
		err  error
	)

	u, parseErr := url.Parse(location)
	switch {
	case parseErr == nil && (u.Scheme == "http" || u.Scheme == "https"):
		data, err = f.fetchRemote(ctx, location)
	case parseErr == nil && u.Scheme == "file":
		data, err = f.fetchLocal(u.Path)
	case parseErr == nil && len(u.Scheme) > 1:
		err = fmt.Errorf("unsupported scheme %q", u.Scheme)
	default:
		// Plain paths, including Windows drive letters that parse as a scheme.
		data, err = f.fetchLocal(location)
	}
	if err != nil {
		return nil, diagnostics.WrapError(diagnostics.KindPDFFetch, "failed to fetch PDF", err).WithLocation(location)
	}

	if err := checkPDF(data); err != nil {
		return nil, diagnostics.WrapError(diagnostics.KindPDFParse, "fetched document is not a PDF", err).
			WithLocation(location)
	}

	f.logger.Debug("fetched PDF",
		"location", location,
		"size", humanize.IBytes(uint64(len(data))),
		"elapsed", time.Since(start))
	return data, nil
}

func (f *Fetcher) fetchRemote(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", pdfMIME+", */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	if resp.ContentLength > f.maxSize {
		return nil, f.tooLarge(resp.ContentLength)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, f.tooLarge(int64(len(data)))
	}
	return data, nil
}

func (f *Fetcher) fetchLocal(path string) ([]byte, error) {
	if f.paths == nil {
		return nil, fmt.Errorf("local paths are not enabled")
	}
	abs, err := f.paths.Resolve(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to access file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory: %s", path)
	}
	if info.Size() > f.maxSize {
		return nil, f.tooLarge(info.Size())
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (f *Fetcher) tooLarge(size int64) error {
	return fmt.Errorf("document too large: %s exceeds limit of %s",
		humanize.IBytes(uint64(size)), humanize.IBytes(uint64(f.maxSize)))
}

// checkPDF requires a %PDF- header near the start of data
func checkPDF(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("document is empty")
	}
	window := data
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	if bytes.Contains(window, []byte("%PDF-")) {
		return nil
	}
	return fmt.Errorf("missing %%PDF- header, detected %s", mimetype.Detect(data).String())
}

// IsRemote reports whether location is an http(s) URL
func IsRemote(location string) bool {
	u, err := url.Parse(strings.TrimSpace(location))
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}
