// Package resolver turns a mapping config and a set of order records into the
// flat PDF field -> value table used to fill a form.
package resolver

import (
	"fmt"
	"time"

	"github.com/a3tai/mcp-pdf-forms/internal/diagnostics"
	"github.com/a3tai/mcp-pdf-forms/internal/domain"
	"github.com/a3tai/mcp-pdf-forms/internal/mapping"
)

// Resolver evaluates mapping configs against order data.
// It holds no per-call state and is safe for concurrent use.
type Resolver struct {
	transforms *mapping.TransformRegistry
	sink       diagnostics.Sink
	now        func() time.Time
	dateLayout string
	rules      map[string]customRule
}

// Option configures a Resolver
type Option func(*Resolver)

// WithTransforms sets the transforms mappings may refer to
func WithTransforms(t *mapping.TransformRegistry) Option {
	return func(r *Resolver) {
		if t != nil {
			r.transforms = t
		}
	}
}

// WithSink routes per-field diagnostics to sink
func WithSink(sink diagnostics.Sink) Option {
	return func(r *Resolver) {
		r.sink = diagnostics.OrDiscard(sink)
	}
}

// WithClock sets the time source for the currentDate rule
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithDateLayout sets the Go time layout used for dates
func WithDateLayout(layout string) Option {
	return func(r *Resolver) {
		if layout != "" {
			r.dateLayout = layout
		}
	}
}

// New creates a resolver with the built-in transforms and custom rules
func New(opts ...Option) *Resolver {
	r := &Resolver{
		transforms: mapping.DefaultTransforms(),
		sink:       diagnostics.Discard,
		now:        time.Now,
		dateLayout: mapping.DateLayout,
		rules:      defaultRules(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithSink returns a copy of r reporting to sink, for per-request diagnostics
func (r *Resolver) WithSink(sink diagnostics.Sink) *Resolver {
	cp := *r
	cp.sink = diagnostics.OrDiscard(sink)
	return &cp
}

// Resolve computes one value per entry of cfg. Any record may be nil.
// Failures never abort resolution: the affected field gets "" (or its
// untransformed value when only the transform failed) and a diagnostic is reported.
func (r *Resolver) Resolve(cfg *mapping.FormMappingConfig, project *domain.Project, part *domain.ProjectPart,
	orderList *domain.OrderList, items []domain.Item) map[string]string {
	return r.ResolveOrder(cfg, domain.OrderData{
		Project:   project,
		Part:      part,
		OrderList: orderList,
		Items:     items,
	})
}

// ResolveOrder is Resolve over a bundled OrderData
func (r *Resolver) ResolveOrder(cfg *mapping.FormMappingConfig, data domain.OrderData) map[string]string {
	out := make(map[string]string, cfg.Len())

	// n-th occurrence of an item field binds to items[n]; scoped to this call.
	occurrences := make(map[string]int)

	for _, m := range cfg.Entries() {
		var itemIndex int
		if m.Source == mapping.SourceItem {
			itemIndex = occurrences[m.Field]
			occurrences[m.Field]++
		}
		out[m.PDFField] = r.resolveField(m, &data, itemIndex)
	}
	return out
}

func (r *Resolver) resolveField(m mapping.FieldMapping, data *domain.OrderData, itemIndex int) (value string) {
	defer func() {
		if p := recover(); p != nil {
			r.report(diagnostics.KindFieldResolution, m.PDFField,
				"field resolution panicked", fmt.Errorf("panic: %v", p))
			value = ""
		}
	}()

	raw, err := r.rawValue(m, data, itemIndex)
	if err != nil {
		r.report(diagnostics.KindFieldResolution, m.PDFField,
			fmt.Sprintf("cannot resolve %s.%s", m.Source, m.Field), err)
		return ""
	}
	// Absent data stays empty; transforms only see present values.
	if raw == nil {
		return ""
	}

	if m.Transform != "" {
		if s, ok := r.applyTransform(m, raw); ok {
			return s
		}
	}

	s, err := r.stringify(raw)
	if err != nil {
		r.report(diagnostics.KindFieldResolution, m.PDFField, "cannot convert value to text", err)
		return ""
	}
	return s
}

func (r *Resolver) rawValue(m mapping.FieldMapping, data *domain.OrderData, itemIndex int) (any, error) {
	switch m.Source {
	case mapping.SourceProject:
		return lookupRecord(data.Project, m.Field)
	case mapping.SourcePart:
		return lookupRecord(data.Part, m.Field)
	case mapping.SourceOrderList:
		return lookupRecord(data.OrderList, m.Field)
	case mapping.SourceItem:
		if itemIndex >= len(data.Items) {
			return nil, nil
		}
		return lookupItem(data.Items[itemIndex], m.Field)
	case mapping.SourceCustom:
		rule, ok := r.rules[m.Field]
		if !ok {
			return nil, fmt.Errorf("unknown custom field %q", m.Field)
		}
		return rule(r, data)
	default:
		return nil, fmt.Errorf("unknown mapping source %q", m.Source)
	}
}

// lookupRecord reads a dot path from a record pointer; nil records are absent
func lookupRecord[T any](rec *T, path string) (any, error) {
	if rec == nil {
		return nil, nil
	}
	return lookupPath(rec, path)
}

// lookupItem reads a direct item property, then the specifications bag.
// An empty direct property does not hide a specification with the same name.
func lookupItem(item domain.Item, field string) (any, error) {
	direct, err := lookupPath(&item, field)
	if err == nil && !isZero(direct) {
		return direct, nil
	}
	if v, ok := item.Specifications.Get(field); ok {
		return v, nil
	}
	if err != nil {
		// Not a direct property and not in the specifications: absent.
		return nil, nil
	}
	return direct, nil
}

// applyTransform runs the named transform; ok is false when it is unknown, fails or panics
func (r *Resolver) applyTransform(m mapping.FieldMapping, raw any) (s string, ok bool) {
	fn, found := r.transforms.Get(m.Transform)
	if !found {
		r.report(diagnostics.KindTransform, m.PDFField,
			fmt.Sprintf("transform %q is not registered", m.Transform), mapping.ErrUnknownTransform)
		return "", false
	}

	defer func() {
		if p := recover(); p != nil {
			r.report(diagnostics.KindTransform, m.PDFField,
				fmt.Sprintf("transform %q panicked", m.Transform), fmt.Errorf("panic: %v", p))
			s, ok = "", false
		}
	}()

	s, err := fn(raw)
	if err != nil {
		r.report(diagnostics.KindTransform, m.PDFField,
			fmt.Sprintf("transform %q failed", m.Transform), err)
		return "", false
	}
	return s, true
}

func (r *Resolver) stringify(v any) (string, error) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return "", nil
		}
		return t.Format(r.dateLayout), nil
	case *time.Time:
		if t == nil || t.IsZero() {
			return "", nil
		}
		return t.Format(r.dateLayout), nil
	}
	return mapping.Stringify(v)
}

func (r *Resolver) report(kind diagnostics.Kind, field, msg string, err error) {
	r.sink.Report(diagnostics.NewEvent(kind, field, msg).WithDetail(err))
}
