package mapping

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// overlayFile is the YAML layout for registry overlays:
//
//	mappings:
//	  - manufacturer: Hilti
//	    productType: HIT-Elements
//	    extends: default
//	    fields:
//	      - pdfField: Lieferdatum
//	        source: orderList
//	        field: submissionDate
//	        transform: date
type overlayFile struct {
	Mappings []overlayMapping `yaml:"mappings"`
}

type overlayMapping struct {
	Manufacturer string         `yaml:"manufacturer"`
	ProductType  string         `yaml:"productType"`
	Extends      string         `yaml:"extends"`
	Fields       []overlayField `yaml:"fields"`
}

type overlayField struct {
	PDFField  string `yaml:"pdfField"`
	Source    string `yaml:"source"`
	Field     string `yaml:"field"`
	Transform string `yaml:"transform"`
}

// LoadRegistryFile reads a YAML overlay from path and applies it to base
func LoadRegistryFile(base *Registry, path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}
	reg, err := LoadRegistryYAML(base, data)
	if err != nil {
		return nil, fmt.Errorf("mapping file %s: %w", path, err)
	}
	return reg, nil
}

// LoadRegistryYAML applies a YAML overlay to base and returns the new registry.
//
// "extends" selects the starting config of each entry: "default" (the default),
// "none" for an empty config, or "<manufacturer>/<productType>" for an existing entry.
func LoadRegistryYAML(base *Registry, data []byte) (*Registry, error) {
	var file overlayFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mapping YAML: %w", err)
	}

	entries := make([]Entry, 0, len(file.Mappings))
	for i, om := range file.Mappings {
		start, err := overlayBase(base, om.Extends)
		if err != nil {
			return nil, fmt.Errorf("mappings[%d]: %w", i, err)
		}

		overrides := make([]FieldMapping, 0, len(om.Fields))
		for _, f := range om.Fields {
			overrides = append(overrides, FieldMapping{
				PDFField:  f.PDFField,
				Source:    Source(f.Source),
				Field:     f.Field,
				Transform: f.Transform,
			})
		}

		entries = append(entries, Entry{
			Manufacturer: om.Manufacturer,
			ProductType:  om.ProductType,
			Config:       Merge(start, overrides...),
		})
	}

	return base.With(entries...)
}

func overlayBase(base *Registry, extends string) (*FormMappingConfig, error) {
	switch ext := strings.TrimSpace(extends); strings.ToLower(ext) {
	case "", "default":
		return base.Default(), nil
	case "none":
		return NewConfig(), nil
	default:
		m, p, ok := strings.Cut(ext, "/")
		if !ok || !base.Has(m, p) {
			return nil, fmt.Errorf("extends %q: no such mapping", extends)
		}
		return base.GetMapping(m, p), nil
	}
}
