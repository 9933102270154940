package mapping

import (
	"encoding/json"
	"strings"

	"github.com/a3tai/mcp-pdf-forms/internal/diagnostics"
	"github.com/a3tai/mcp-pdf-forms/internal/domain"
)

// ParsePersistedMapping decodes a mapping stored as a JSON string column.
//
// It never fails: blank input yields an empty config, and malformed JSON yields
// an empty config plus a MappingParse diagnostic so the page stays usable.
// Entries are not validated here; unknown sources degrade at resolution time.
func ParsePersistedMapping(raw string, sink diagnostics.Sink) *FormMappingConfig {
	sink = diagnostics.OrDiscard(sink)

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return NewConfig()
	}

	// Some writers store the mapping JSON-encoded twice.
	if strings.HasPrefix(raw, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(raw), &inner); err == nil {
			raw = strings.TrimSpace(inner)
		}
	}

	cfg := &FormMappingConfig{}
	if err := json.Unmarshal([]byte(raw), cfg); err != nil {
		sink.Report(diagnostics.NewEvent(diagnostics.KindMappingParse, "",
			"stored field mapping is not valid, continuing without a mapping").WithDetail(err))
		return NewConfig()
	}
	return cfg
}

// EncodePersistedMapping renders cfg in the persisted JSON form
func EncodePersistedMapping(cfg *FormMappingConfig) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ForTemplate picks the mapping for a stored template: its own persisted
// mapping when that is non-empty, otherwise the registry entry for the
// template's manufacturer and product type.
func ForTemplate(reg *Registry, tpl domain.PdfTemplate, sink diagnostics.Sink) *FormMappingConfig {
	if cfg := ParsePersistedMapping(tpl.FieldMapping, sink); cfg.Len() > 0 {
		return cfg
	}
	return reg.WithSink(sink).GetMapping(tpl.Manufacturer, tpl.ProductType)
}
