package mapping

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/a3tai/mcp-pdf-forms/internal/diagnostics"
)

// Entry is one manufacturer/product-type specific mapping
type Entry struct {
	Manufacturer string
	ProductType  string
	Config       *FormMappingConfig
}

// Registry resolves (manufacturer, productType) pairs to mapping configs.
// A Registry is immutable after construction and safe for concurrent use.
type Registry struct {
	defaultMapping *FormMappingConfig
	entries        map[string]map[string]*FormMappingConfig
	transforms     *TransformRegistry
	sink           diagnostics.Sink
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithSink routes registry diagnostics to sink
func WithSink(sink diagnostics.Sink) RegistryOption {
	return func(r *Registry) {
		r.sink = diagnostics.OrDiscard(sink)
	}
}

// WithTransforms sets the transforms mapping entries are validated against
func WithTransforms(t *TransformRegistry) RegistryOption {
	return func(r *Registry) {
		if t != nil {
			r.transforms = t
		}
	}
}

// NewRegistry creates a registry from a default config and specific entries.
// Every config is validated; an invalid source, custom field or transform name
// is a construction error.
func NewRegistry(defaultMapping *FormMappingConfig, entries []Entry, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		defaultMapping: defaultMapping.Clone(),
		entries:        make(map[string]map[string]*FormMappingConfig),
		transforms:     DefaultTransforms(),
		sink:           diagnostics.Discard,
	}
	for _, opt := range opts {
		opt(r)
	}

	var errs []error
	if err := ValidateConfig(r.defaultMapping, r.transforms); err != nil {
		errs = append(errs, fmt.Errorf("default mapping: %w", err))
	}

	for _, e := range entries {
		m, p := normalizeKey(e.Manufacturer), normalizeKey(e.ProductType)
		if m == "" || p == "" {
			errs = append(errs, fmt.Errorf("entry %q/%q: manufacturer and product type are required",
				e.Manufacturer, e.ProductType))
			continue
		}
		if err := ValidateConfig(e.Config, r.transforms); err != nil {
			errs = append(errs, fmt.Errorf("mapping %s/%s: %w", m, p, err))
			continue
		}
		if r.entries[m] == nil {
			r.entries[m] = make(map[string]*FormMappingConfig)
		}
		r.entries[m][p] = e.Config.Clone()
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

// With returns a new registry holding r's entries plus the given ones; entries
// for an existing pair replace it.
func (r *Registry) With(entries ...Entry) (*Registry, error) {
	all := r.allEntries()
	all = append(all, entries...)
	return NewRegistry(r.defaultMapping, all, WithSink(r.sink), WithTransforms(r.transforms))
}

// WithSink returns a copy of r that reports to sink
func (r *Registry) WithSink(sink diagnostics.Sink) *Registry {
	cp := *r
	cp.sink = diagnostics.OrDiscard(sink)
	return &cp
}

// GetMapping returns the config for the pair, matched case-insensitively.
// Unknown pairs fall back to the default mapping and report MappingNotFound.
// The returned config is a copy the caller may modify.
func (r *Registry) GetMapping(manufacturer, productType string) *FormMappingConfig {
	if cfg, ok := r.lookup(manufacturer, productType); ok {
		return cfg.Clone()
	}

	r.sink.Report(diagnostics.NewEvent(diagnostics.KindMappingNotFound, "",
		fmt.Sprintf("no specific mapping for manufacturer %q and product type %q, using default mapping",
			manufacturer, productType)))
	return r.defaultMapping.Clone()
}

// Has reports whether a specific mapping exists for the pair
func (r *Registry) Has(manufacturer, productType string) bool {
	_, ok := r.lookup(manufacturer, productType)
	return ok
}

// Default returns a copy of the default mapping
func (r *Registry) Default() *FormMappingConfig {
	return r.defaultMapping.Clone()
}

// Transforms returns the transforms the registry was validated against
func (r *Registry) Transforms() *TransformRegistry {
	return r.transforms
}

// Manufacturers returns the normalized manufacturer keys, sorted
func (r *Registry) Manufacturers() []string {
	out := make([]string, 0, len(r.entries))
	for m := range r.entries {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// ProductTypes returns the normalized product types known for a manufacturer, sorted
func (r *Registry) ProductTypes(manufacturer string) []string {
	products := r.entries[normalizeKey(manufacturer)]
	out := make([]string, 0, len(products))
	for p := range products {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) lookup(manufacturer, productType string) (*FormMappingConfig, bool) {
	products, ok := r.entries[normalizeKey(manufacturer)]
	if !ok {
		return nil, false
	}
	cfg, ok := products[normalizeKey(productType)]
	return cfg, ok
}

func (r *Registry) allEntries() []Entry {
	var out []Entry
	for _, m := range r.Manufacturers() {
		for _, p := range r.ProductTypes(m) {
			out = append(out, Entry{Manufacturer: m, ProductType: p, Config: r.entries[m][p]})
		}
	}
	return out
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateConfig checks every entry of cfg: known source, non-empty field,
// known custom field for SourceCustom, registered transform name.
func ValidateConfig(cfg *FormMappingConfig, transforms *TransformRegistry) error {
	var errs []error
	for _, m := range cfg.Entries() {
		if err := validateEntry(m, transforms); err != nil {
			errs = append(errs, fmt.Errorf("pdf field %q: %w", m.PDFField, err))
		}
	}
	return errors.Join(errs...)
}

func validateEntry(m FieldMapping, transforms *TransformRegistry) error {
	if m.PDFField == "" {
		return errors.New("empty pdf field name")
	}
	if !m.Source.Valid() {
		return fmt.Errorf("unknown mapping source %q", m.Source)
	}
	if m.Field == "" {
		return errors.New("empty field")
	}
	if m.Source == SourceCustom && !IsCustomField(m.Field) {
		return fmt.Errorf("unknown custom field %q", m.Field)
	}
	if m.Transform != "" && !transforms.Has(m.Transform) {
		return fmt.Errorf("%w %q", ErrUnknownTransform, m.Transform)
	}
	return nil
}
