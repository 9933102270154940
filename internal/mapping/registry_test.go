package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-forms/internal/diagnostics"
)

func TestDefaultRegistry_IsValid(t *testing.T) {
	assert.NotPanics(t, func() { DefaultRegistry() })

	reg := DefaultRegistry()
	assert.Equal(t, []string{"halfen", "hilti", "schoeck", "schöck"}, reg.Manufacturers())
	assert.Equal(t, []string{"anchors", "hit-elements"}, reg.ProductTypes("Hilti"))
	assert.NoError(t, ValidateConfig(DefaultMapping(), DefaultTransforms()))
}

func TestRegistry_GetMappingIsCaseInsensitive(t *testing.T) {
	reg := DefaultRegistry()

	want := reg.GetMapping("hilti", "hit-elements")
	for _, pair := range [][2]string{
		{"HILTI", "HIT-Elements"},
		{" Hilti ", "hit-elements"},
		{"hIlTi", "HIT-ELEMENTS"},
	} {
		got := reg.GetMapping(pair[0], pair[1])
		assert.True(t, want.Equal(got), "lookup %q/%q", pair[0], pair[1])
	}

	m, ok := want.Get("Lieferdatum")
	require.True(t, ok)
	assert.Equal(t, "date", m.Transform)
}

func TestRegistry_UnknownPairFallsBackToDefault(t *testing.T) {
	sink := diagnostics.NewCollector()
	reg := DefaultRegistry(WithSink(sink))

	got := reg.GetMapping("Acme", "Widgets")

	assert.True(t, DefaultMapping().Equal(got))
	require.Equal(t, 1, sink.Len())
	assert.Equal(t, diagnostics.KindMappingNotFound, sink.Events()[0].Kind)
	assert.Contains(t, sink.Events()[0].Message, "Acme")

	// Known pairs are silent
	reg.GetMapping("Halfen", "HTA")
	assert.Equal(t, 1, sink.Len())
}

func TestRegistry_ReturnsIndependentCopies(t *testing.T) {
	reg := DefaultRegistry()

	cfg := reg.GetMapping("hilti", "anchors")
	cfg.Delete("Projekt")
	cfg.Set(FieldMapping{PDFField: "Injected", Source: SourceProject, Field: "name"})

	again := reg.GetMapping("hilti", "anchors")
	_, ok := again.Get("Projekt")
	assert.True(t, ok)
	_, ok = again.Get("Injected")
	assert.False(t, ok)
}

func TestNewRegistry_RejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name    string
		entry   FieldMapping
		wantErr string
	}{
		{"unknown source", FieldMapping{PDFField: "X", Source: "customer", Field: "name"}, "unknown mapping source"},
		{"empty field", FieldMapping{PDFField: "X", Source: SourceProject}, "empty field"},
		{"unknown custom field", FieldMapping{PDFField: "X", Source: SourceCustom, Field: "tomorrow"}, "unknown custom field"},
		{"unknown transform", FieldMapping{PDFField: "X", Source: SourceProject, Field: "name", Transform: "shout"}, "unknown transform"},
		{"empty pdf field", FieldMapping{Source: SourceProject, Field: "name"}, "empty pdf field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(NewConfig(), []Entry{{
				Manufacturer: "acme",
				ProductType:  "widgets",
				Config:       NewConfig(tt.entry),
			}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, err.Error(), "acme/widgets")
		})
	}

	_, err := NewRegistry(NewConfig(), []Entry{{Manufacturer: "acme", Config: NewConfig()}})
	assert.ErrorContains(t, err, "manufacturer and product type are required")
}

func TestNewRegistry_CustomTransforms(t *testing.T) {
	transforms := DefaultTransforms()
	transforms.Register("shout", func(v any) (string, error) { return "!", nil })

	cfg := NewConfig(FieldMapping{PDFField: "X", Source: SourceProject, Field: "name", Transform: "shout"})
	reg, err := NewRegistry(cfg, nil, WithTransforms(transforms))
	require.NoError(t, err)
	assert.True(t, reg.Transforms().Has("shout"))
}

func TestRegistry_WithReplacesAndAdds(t *testing.T) {
	reg := DefaultRegistry()

	replacement := NewConfig(FieldMapping{PDFField: "Only", Source: SourceProject, Field: "name"})
	next, err := reg.With(
		Entry{Manufacturer: "Hilti", ProductType: "Anchors", Config: replacement},
		Entry{Manufacturer: "Acme", ProductType: "Widgets", Config: replacement},
	)
	require.NoError(t, err)

	assert.True(t, replacement.Equal(next.GetMapping("hilti", "anchors")))
	assert.True(t, next.Has("acme", "widgets"))
	assert.False(t, reg.Has("acme", "widgets"), "original registry is unchanged")
}
