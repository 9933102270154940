package pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/a3tai/mcp-pdf-forms/internal/diagnostics"
	"github.com/a3tai/mcp-pdf-forms/internal/domain"
	"github.com/a3tai/mcp-pdf-forms/internal/mapping"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/acroform"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/export"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/fetch"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/preview"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/security"
	"github.com/a3tai/mcp-pdf-forms/internal/resolver"
)

// DefaultOutputSubdir is where filled documents are saved when no output
// directory is configured, relative to the document root
const DefaultOutputSubdir = "filled"

// Options configures a Service
type Options struct {
	Directory       string        // document root for local paths
	OutputDirectory string        // where saved artifacts go
	MaxFileSize     int64         // per document, remote and local
	FetchTimeout    time.Duration // 0 means no timeout
	MappingFile     string        // optional YAML registry overlay
	DateLayout      string        // Go time layout for dates
	Flatten         bool          // default export mode
	PreviewCache    int           // rendered pages kept
	HTTPClient      *http.Client
	Logger          *slog.Logger
}

// Service handles order form operations by orchestrating the form components
type Service struct {
	opts      Options
	outputDir string
	paths     *security.PathValidator
	fetcher   *fetch.Fetcher
	registry  *mapping.Registry
	resolver  *resolver.Resolver
	cache     *preview.PageCache
	logger    *slog.Logger

	viewerMu sync.Mutex
	viewers  map[string]*preview.Viewer
}

// NewService creates a service with all components
func NewService(opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	paths, err := security.NewPathValidator(opts.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	outputDir := opts.OutputDirectory
	if outputDir == "" {
		outputDir = filepath.Join(paths.Root(), DefaultOutputSubdir)
	}
	outputDir, err = filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	registry := mapping.DefaultRegistry(mapping.WithSink(diagnostics.NewSlogSink(logger)))
	if opts.MappingFile != "" {
		registry, err = mapping.LoadRegistryFile(registry, opts.MappingFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load mappings: %w", err)
		}
		logger.Info("loaded mapping overlay", "file", opts.MappingFile, "manufacturers", len(registry.Manufacturers()))
	}

	if opts.DateLayout == "" {
		opts.DateLayout = mapping.DateLayout
	}

	fetcherOpts := []fetch.Option{
		fetch.WithMaxSize(opts.MaxFileSize),
		fetch.WithTimeout(opts.FetchTimeout),
		fetch.WithLogger(logger),
	}
	if opts.HTTPClient != nil {
		fetcherOpts = append(fetcherOpts, fetch.WithHTTPClient(opts.HTTPClient))
	}
	fetcher := fetch.New(paths, fetcherOpts...)

	return &Service{
		opts:      opts,
		outputDir: outputDir,
		paths:     paths,
		fetcher:   fetcher,
		registry:  registry,
		resolver: resolver.New(
			resolver.WithTransforms(registry.Transforms()),
			resolver.WithDateLayout(opts.DateLayout),
		),
		cache:   preview.NewPageCache(opts.PreviewCache),
		viewers: make(map[string]*preview.Viewer),
		logger:  logger,
	}, nil
}

// requestSink collects the diagnostics of one request for the response and
// logs them as they happen
func (s *Service) requestSink() (*diagnostics.Collector, diagnostics.Sink) {
	c := diagnostics.NewCollector()
	return c, diagnostics.Multi{c, diagnostics.NewSlogSink(s.logger)}
}

// FormFields lists the form fields of a document
func (s *Service) FormFields(ctx context.Context, req FormFieldsRequest) (*FormFieldsResult, error) {
	if strings.TrimSpace(req.Location) == "" {
		return nil, fmt.Errorf("location is required")
	}
	fields, err := s.extract(ctx, req.Location)
	if err != nil {
		return nil, err
	}
	return &FormFieldsResult{Location: req.Location, Fields: fields, Count: len(fields)}, nil
}

// FormTemplate guesses a mapping for the text fields of a document
func (s *Service) FormTemplate(ctx context.Context, req FormTemplateRequest) (*FormTemplateResult, error) {
	if strings.TrimSpace(req.Location) == "" {
		return nil, fmt.Errorf("location is required")
	}
	fields, err := s.extract(ctx, req.Location)
	if err != nil {
		return nil, err
	}

	var text, skipped []string
	for _, f := range fields {
		if f.Type == acroform.FieldTypeText {
			text = append(text, f.Name)
		} else {
			skipped = append(skipped, f.Name)
		}
	}

	cfg := mapping.BuildMappingTemplate(text)
	persisted, err := mapping.EncodePersistedMapping(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mapping: %w", err)
	}
	return &FormTemplateResult{Location: req.Location, Mapping: cfg, Persisted: persisted, Skipped: skipped}, nil
}

// Mapping returns the mapping that applies to a template
func (s *Service) Mapping(req MappingRequest) *MappingResult {
	collector, sink := s.requestSink()
	cfg, origin := s.mappingFor(req.Template, sink)

	available := make(map[string][]string)
	for _, m := range s.registry.Manufacturers() {
		available[m] = s.registry.ProductTypes(m)
	}
	return &MappingResult{
		Manufacturer: req.Template.Manufacturer,
		ProductType:  req.Template.ProductType,
		Origin:       origin,
		Mapping:      cfg,
		Available:    available,
		Warnings:     collector.Events(),
	}
}

// Resolve computes the field values of an order
func (s *Service) Resolve(req ResolveRequest) *ResolveResult {
	collector, sink := s.requestSink()
	cfg, origin := s.mappingFor(req.Template, sink)
	values := s.resolver.WithSink(sink).ResolveOrder(cfg, req.Order)
	return &ResolveResult{
		Origin:   origin,
		Fields:   cfg.Fields(),
		Values:   values,
		Warnings: collector.Events(),
	}
}

// Fill resolves an order and fills the template document. Field problems are
// warnings; fetch, parse and write failures are errors and produce no artifact.
func (s *Service) Fill(ctx context.Context, req FillRequest) (*FillResult, error) {
	location := req.Location
	if location == "" {
		location = req.Template.FileURL
	}
	if strings.TrimSpace(location) == "" {
		return nil, diagnostics.NewError(diagnostics.KindPDFFetch, "no document location: set location or template fileUrl")
	}

	collector, sink := s.requestSink()
	exporter := export.New(s.fetcher, acroform.NewEngine(sink), s.logger)
	opts := acroform.FillOptions{Flatten: s.opts.Flatten}
	if req.Flatten != nil {
		opts.Flatten = *req.Flatten
	}

	var (
		artifact *export.Artifact
		result   = &FillResult{}
		err      error
	)
	if req.Values != nil {
		artifact, err = exporter.FillAndExport(ctx, location, req.Values, opts)
	} else {
		cfg, _ := s.mappingFor(req.Template, sink)
		values := s.resolver.WithSink(sink).ResolveOrder(cfg, req.Order)

		var original []byte
		original, err = s.fetcher.Fetch(ctx, location)
		if err != nil {
			return nil, err
		}
		if fields, extractErr := acroform.ExtractFormFields(original); extractErr == nil {
			result.NotInDocument = acroform.ValidateMapping(cfg, fields)
		}
		artifact, err = exporter.Export(original, location, values, opts)
	}
	if err != nil {
		return nil, err
	}
	result.Artifact = artifact

	if req.Save {
		path, err := artifact.Save(s.outputDir)
		if err != nil {
			return nil, err
		}
		result.SavedPath = path
		s.logger.Info("saved filled PDF", "path", path, "size", artifact.Size)
	}

	result.Warnings = collector.Events()
	return result, nil
}

// viewerFor returns the session's viewer, creating it on first use. All
// viewers share the page cache.
func (s *Service) viewerFor(session string) *preview.Viewer {
	s.viewerMu.Lock()
	defer s.viewerMu.Unlock()

	v, ok := s.viewers[session]
	if !ok {
		v = preview.NewViewer(s.fetcher,
			preview.WithCache(s.cache),
			preview.WithLogger(s.logger.With("session", session)),
		)
		s.viewers[session] = v
	}
	return v
}

// ClosePreview drops the session's viewer
func (s *Service) ClosePreview(session string) {
	s.viewerMu.Lock()
	defer s.viewerMu.Unlock()
	delete(s.viewers, session)
}

// Preview drives the viewer of req.Session. Load with an empty location
// reloads the current document; page and scale, when set, apply after the
// action.
func (s *Service) Preview(ctx context.Context, req PreviewRequest) (*PreviewResult, error) {
	var (
		page *preview.Page
		err  error
	)
	viewer := s.viewerFor(req.Session)

	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "", PreviewLoad:
		location := req.Location
		if location == "" {
			location = viewer.Location()
		}
		if location == "" {
			return nil, fmt.Errorf("location is required to load a preview")
		}
		page, err = viewer.Load(ctx, location)
	case PreviewNext:
		page, err = viewer.NextPage(ctx)
	case PreviewPrevious:
		page, err = viewer.PreviousPage(ctx)
	case PreviewZoomIn:
		page, err = viewer.ZoomIn(ctx)
	case PreviewZoomOut:
		page, err = viewer.ZoomOut(ctx)
	case PreviewGoTo:
		if req.Page < 1 {
			return nil, fmt.Errorf("page is required for %s", PreviewGoTo)
		}
		page, err = viewer.GoTo(ctx, req.Page)
	default:
		return nil, fmt.Errorf("unknown preview action %q", req.Action)
	}
	if err != nil {
		return nil, err
	}

	if req.Page > 0 && req.Page != page.Number {
		if page, err = viewer.GoTo(ctx, req.Page); err != nil {
			return nil, err
		}
	}
	if req.Scale > 0 && preview.ClampScale(req.Scale) != page.Scale {
		if page, err = viewer.SetScale(ctx, req.Scale); err != nil {
			return nil, err
		}
	}

	data, err := preview.EncodePNG(page.Image)
	if err != nil {
		return nil, err
	}
	bounds := page.Image.Bounds()
	return &PreviewResult{
		State:  viewer.Snapshot(),
		PNG:    data,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Cached: page.Cached,
	}, nil
}

// mappingFor picks the template's persisted mapping, else the registry entry
// for its manufacturer and product type, else the default mapping
func (s *Service) mappingFor(tpl domain.PdfTemplate, sink diagnostics.Sink) (*mapping.FormMappingConfig, string) {
	cfg := mapping.ForTemplate(s.registry, tpl, sink)

	origin := MappingFromDefault
	switch {
	case mapping.ParsePersistedMapping(tpl.FieldMapping, nil).Len() > 0:
		origin = MappingFromTemplate
	case s.registry.Has(tpl.Manufacturer, tpl.ProductType):
		origin = MappingFromRegistry
	}
	return cfg, origin
}

func (s *Service) extract(ctx context.Context, location string) ([]acroform.FieldDescriptor, error) {
	data, err := s.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	fields, err := acroform.ExtractFormFields(data)
	if err != nil {
		var de *diagnostics.Error
		if errors.As(err, &de) && de.Location == "" {
			de.WithLocation(location)
		}
		return nil, err
	}
	return fields, nil
}

// Registry returns the mapping registry in use
func (s *Service) Registry() *mapping.Registry {
	return s.registry
}

// OutputDirectory returns where saved artifacts go
func (s *Service) OutputDirectory() string {
	return s.outputDir
}

// GetMaxFileSize returns the configured maximum document size
func (s *Service) GetMaxFileSize() int64 {
	return s.fetcher.MaxSize()
}

// ValidateConfiguration checks the document root and output directory
func (s *Service) ValidateConfiguration() error {
	if err := s.paths.ValidateDirectory(s.paths.Root()); err != nil {
		return fmt.Errorf("invalid document root: %w", err)
	}
	if info, err := os.Stat(s.outputDir); err == nil && !info.IsDir() {
		return fmt.Errorf("invalid output directory: %s is not a directory", s.outputDir)
	}
	return nil
}
