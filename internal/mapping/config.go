package mapping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// FieldMapping binds one PDF form field to a value source
type FieldMapping struct {
	PDFField  string `json:"-"`
	Source    Source `json:"source"`
	Field     string `json:"field"`
	Transform string `json:"transform,omitempty"`
}

// FormMappingConfig maps PDF field names to FieldMappings.
//
// Keys are unique. Definition order is kept because repeated item fields bind to
// successive line items in that order. The zero value is an empty config.
type FormMappingConfig struct {
	order   []string
	entries map[string]FieldMapping
}

// NewConfig builds a config from mappings; later duplicates replace earlier ones
func NewConfig(mappings ...FieldMapping) *FormMappingConfig {
	c := &FormMappingConfig{}
	for _, m := range mappings {
		c.Set(m)
	}
	return c
}

// Set adds m, or replaces the entry with the same PDF field name in place
func (c *FormMappingConfig) Set(m FieldMapping) {
	if c.entries == nil {
		c.entries = make(map[string]FieldMapping)
	}
	if _, exists := c.entries[m.PDFField]; !exists {
		c.order = append(c.order, m.PDFField)
	}
	c.entries[m.PDFField] = m
}

// Delete removes the entry for pdfField, if present
func (c *FormMappingConfig) Delete(pdfField string) {
	if c == nil {
		return
	}
	if _, exists := c.entries[pdfField]; !exists {
		return
	}
	delete(c.entries, pdfField)
	for i, name := range c.order {
		if name == pdfField {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
}

// Get returns the mapping for pdfField
func (c *FormMappingConfig) Get(pdfField string) (FieldMapping, bool) {
	if c == nil {
		return FieldMapping{}, false
	}
	m, ok := c.entries[pdfField]
	return m, ok
}

// Len returns the number of entries
func (c *FormMappingConfig) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Fields returns the PDF field names in definition order
func (c *FormMappingConfig) Fields() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Entries returns the mappings in definition order
func (c *FormMappingConfig) Entries() []FieldMapping {
	if c == nil {
		return nil
	}
	out := make([]FieldMapping, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.entries[name])
	}
	return out
}

// Clone returns an independent copy
func (c *FormMappingConfig) Clone() *FormMappingConfig {
	return NewConfig(c.Entries()...)
}

// Equal reports whether both configs hold the same entries in the same order
func (c *FormMappingConfig) Equal(other *FormMappingConfig) bool {
	a, b := c.Entries(), other.Entries()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Merge returns base with overrides applied. An override replaces a same-named
// entry entirely; there is no merging of individual FieldMapping properties.
func Merge(base *FormMappingConfig, overrides ...FieldMapping) *FormMappingConfig {
	merged := base.Clone()
	for _, m := range overrides {
		merged.Set(m)
	}
	return merged
}

// MarshalJSON encodes the config as a JSON object in definition order
func (c *FormMappingConfig) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range c.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.PDFField)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", m.PDFField, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes {"pdfField": {"source", "field", "transform"}} keeping key order
func (c *FormMappingConfig) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = FormMappingConfig{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("mapping config must be a JSON object")
	}

	fresh := FormMappingConfig{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected key token %v", keyTok)
		}

		var m FieldMapping
		if err := dec.Decode(&m); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		m.PDFField = key
		fresh.Set(m)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*c = fresh
	return nil
}
