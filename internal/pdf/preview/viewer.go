// Package preview renders original PDF pages for on-screen display.
package preview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"

	"github.com/a3tai/mcp-pdf-forms/internal/diagnostics"
)

// Zoom limits
const (
	MinScale     = 0.5
	MaxScale     = 3.0
	ScaleStep    = 0.2
	DefaultScale = 1.0
)

// State of a Viewer
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

var (
	// ErrStale is returned when a newer request superseded the one in flight.
	// The viewer state reflects the newer request.
	ErrStale = errors.New("preview request superseded")
	// ErrNoDocument is returned by navigation before a document is loaded
	ErrNoDocument = errors.New("no document loaded")
)

// Fetcher retrieves document bytes
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// Page is one rendered page
type Page struct {
	Location string
	Number   int
	Total    int
	Scale    float64
	Image    image.Image
	Cached   bool
}

// Snapshot is a copy of the viewer state
type Snapshot struct {
	State      State          `json:"-"`
	StateName  string         `json:"state"`
	Location   string         `json:"location,omitempty"`
	Page       int            `json:"page"`
	TotalPages int            `json:"totalPages"`
	Scale      float64        `json:"scale"`
	Error      string         `json:"error,omitempty"`
	PageErrors map[int]string `json:"pageErrors,omitempty"`
}

// Viewer is the preview state machine: idle, loading, then ready or error.
// Every navigation re-renders only the current page. Results of requests
// that were superseded while in flight are dropped without touching state.
type Viewer struct {
	fetcher Fetcher
	open    Opener
	cache   *PageCache
	logger  *slog.Logger

	mu         sync.Mutex
	generation uint64
	state      State
	location   string
	doc        Document
	page       int
	scale      float64
	err        error
	pageErrs   map[int]error
}

// ViewerOption configures a Viewer
type ViewerOption func(*Viewer)

// WithOpener replaces the wireframe renderer
func WithOpener(open Opener) ViewerOption {
	return func(v *Viewer) {
		if open != nil {
			v.open = open
		}
	}
}

// WithCache shares a page cache between viewers
func WithCache(c *PageCache) ViewerOption {
	return func(v *Viewer) {
		if c != nil {
			v.cache = c
		}
	}
}

// WithLogger sets the viewer's logger
func WithLogger(l *slog.Logger) ViewerOption {
	return func(v *Viewer) {
		if l != nil {
			v.logger = l
		}
	}
}

// NewViewer creates an idle viewer
func NewViewer(fetcher Fetcher, opts ...ViewerOption) *Viewer {
	v := &Viewer{
		fetcher:  fetcher,
		open:     OpenWireframe,
		logger:   slog.Default(),
		scale:    DefaultScale,
		pageErrs: make(map[int]error),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.cache == nil {
		v.cache = NewPageCache(DefaultCacheCapacity)
	}
	return v
}

// Load fetches and opens the document at location and renders its first
// page. Fetch and parse failures put the viewer into the error state.
func (v *Viewer) Load(ctx context.Context, location string) (*Page, error) {
	v.mu.Lock()
	v.generation++
	gen := v.generation
	v.state = StateLoading
	v.location = location
	v.doc = nil
	v.page = 1
	v.err = nil
	v.pageErrs = make(map[int]error)
	v.mu.Unlock()

	doc, err := v.openDocument(ctx, location)

	v.mu.Lock()
	if gen != v.generation {
		v.mu.Unlock()
		return nil, ErrStale
	}
	if err != nil {
		v.state = StateError
		v.err = err
		v.mu.Unlock()
		v.logger.Warn("preview load failed", "location", location, "error", err)
		return nil, err
	}
	v.doc = doc
	v.cache.Forget(location)
	v.mu.Unlock()

	return v.Render(ctx)
}

func (v *Viewer) openDocument(ctx context.Context, location string) (Document, error) {
	data, err := v.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	doc, err := v.open(data)
	if err != nil {
		if diagnostics.KindOf(err) == diagnostics.KindUnknown {
			err = diagnostics.WrapError(diagnostics.KindPDFParse, "failed to open PDF for preview", err)
		}
		return nil, err
	}
	if doc.NumPages() < 1 {
		return nil, diagnostics.NewError(diagnostics.KindPDFParse, "document has no pages").WithLocation(location)
	}
	return doc, nil
}

// Render draws the current page at the current scale. A failure is recorded
// for that page only; the document and other pages stay usable.
func (v *Viewer) Render(ctx context.Context) (*Page, error) {
	v.mu.Lock()
	if v.doc == nil {
		v.mu.Unlock()
		return nil, ErrNoDocument
	}
	v.generation++
	gen := v.generation
	v.state = StateLoading
	doc, location, pageNr, scale := v.doc, v.location, v.page, v.scale
	v.mu.Unlock()

	if img, ok := v.cache.Get(location, pageNr, scale); ok {
		return v.finish(gen, &Page{Location: location, Number: pageNr, Total: doc.NumPages(), Scale: scale,
			Image: img, Cached: true}, nil)
	}

	img, err := doc.RenderPage(ctx, pageNr, scale)
	if err == nil {
		v.cache.Put(location, pageNr, scale, img)
	}
	return v.finish(gen, &Page{Location: location, Number: pageNr, Total: doc.NumPages(), Scale: scale, Image: img}, err)
}

func (v *Viewer) finish(gen uint64, p *Page, err error) (*Page, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.generation {
		return nil, ErrStale
	}
	v.state = StateReady
	if err != nil {
		v.pageErrs[p.Number] = err
		v.logger.Warn("preview page render failed", "location", p.Location, "page", p.Number, "error", err)
		return nil, fmt.Errorf("page %d: %w", p.Number, err)
	}
	delete(v.pageErrs, p.Number)
	return p, nil
}

// NextPage moves forward one page, stopping at the last page
func (v *Viewer) NextPage(ctx context.Context) (*Page, error) {
	return v.navigate(ctx, func(page, total int, scale float64) (int, float64) {
		return clampPage(page+1, total), scale
	})
}

// PreviousPage moves back one page, stopping at the first page
func (v *Viewer) PreviousPage(ctx context.Context) (*Page, error) {
	return v.navigate(ctx, func(page, total int, scale float64) (int, float64) {
		return clampPage(page-1, total), scale
	})
}

// GoTo shows page n, clamped to the document
func (v *Viewer) GoTo(ctx context.Context, n int) (*Page, error) {
	return v.navigate(ctx, func(_, total int, scale float64) (int, float64) {
		return clampPage(n, total), scale
	})
}

// ZoomIn increases the scale by one step up to MaxScale
func (v *Viewer) ZoomIn(ctx context.Context) (*Page, error) {
	return v.navigate(ctx, func(page, _ int, scale float64) (int, float64) {
		return page, ClampScale(scale + ScaleStep)
	})
}

// ZoomOut decreases the scale by one step down to MinScale
func (v *Viewer) ZoomOut(ctx context.Context) (*Page, error) {
	return v.navigate(ctx, func(page, _ int, scale float64) (int, float64) {
		return page, ClampScale(scale - ScaleStep)
	})
}

// SetScale sets the scale, clamped to [MinScale, MaxScale]
func (v *Viewer) SetScale(ctx context.Context, scale float64) (*Page, error) {
	return v.navigate(ctx, func(page, _ int, _ float64) (int, float64) {
		return page, ClampScale(scale)
	})
}

func (v *Viewer) navigate(ctx context.Context, step func(page, total int, scale float64) (int, float64)) (*Page, error) {
	v.mu.Lock()
	if v.doc == nil {
		v.mu.Unlock()
		return nil, ErrNoDocument
	}
	v.page, v.scale = step(v.page, v.doc.NumPages(), v.scale)
	v.mu.Unlock()
	return v.Render(ctx)
}

// Snapshot returns the current state
func (v *Viewer) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := Snapshot{
		State:     v.state,
		StateName: v.state.String(),
		Location:  v.location,
		Page:      v.page,
		Scale:     v.scale,
	}
	if v.doc != nil {
		s.TotalPages = v.doc.NumPages()
	}
	if v.err != nil {
		s.Error = v.err.Error()
	}
	if len(v.pageErrs) > 0 {
		s.PageErrors = make(map[int]string, len(v.pageErrs))
		for n, err := range v.pageErrs {
			s.PageErrors[n] = err.Error()
		}
	}
	return s
}

// Location returns the loaded or loading document location
func (v *Viewer) Location() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.location
}

// Cache returns the page cache
func (v *Viewer) Cache() *PageCache {
	return v.cache
}

func clampPage(n, total int) int {
	if n < 1 {
		return 1
	}
	if n > total {
		return total
	}
	return n
}

// ClampScale limits scale to [MinScale, MaxScale], rounded to one decimal
// so repeated steps do not drift
func ClampScale(scale float64) float64 {
	scale = math.Round(scale*10) / 10
	return math.Max(MinScale, math.Min(MaxScale, scale))
}
