package mapping

import "strings"

// templateRule maps trigger keywords in a PDF field name to a mapping guess.
// Every group must match, and a group matches when any of its keywords occurs.
type templateRule struct {
	groups  [][]string
	mapping FieldMapping
}

var numberWords = []string{"number", "nummer", "nr"}

// templateRules is evaluated in order; the first match wins.
var templateRules = []templateRule{
	{groups: [][]string{{"date", "datum"}}, mapping: FieldMapping{Source: SourceCustom, Field: CustomCurrentDate}},
	{groups: [][]string{{"engineer", "ingenieur"}, {"city", "ort"}},
		mapping: FieldMapping{Source: SourceCustom, Field: FormattedCityField(PartyEngineer)}},
	{groups: [][]string{{"engineer", "ingenieur"}, {"address", "adresse", "street", "strasse"}},
		mapping: FieldMapping{Source: SourceCustom, Field: FormattedAddressField(PartyEngineer)}},
	{groups: [][]string{{"engineer", "ingenieur"}}, mapping: FieldMapping{Source: SourceProject, Field: "engineer.name"}},
	{groups: [][]string{{"project", "projekt"}, numberWords},
		mapping: FieldMapping{Source: SourceProject, Field: "projectNumber"}},
	{groups: [][]string{{"project", "projekt"}}, mapping: FieldMapping{Source: SourceProject, Field: "name"}},
	{groups: [][]string{{"part", "bauteil"}, numberWords},
		mapping: FieldMapping{Source: SourceCustom, Field: CustomCompositePartNumber}},
	{groups: [][]string{{"part", "bauteil"}}, mapping: FieldMapping{Source: SourcePart, Field: "name"}},
	{groups: [][]string{{"list", "order", "bestell"}, numberWords},
		mapping: FieldMapping{Source: SourceCustom, Field: CustomCompositeOrderListNumber}},
	{groups: [][]string{{"list", "order", "bestell"}}, mapping: FieldMapping{Source: SourceOrderList, Field: "name"}},
	{groups: [][]string{{"article", "artikel"}}, mapping: FieldMapping{Source: SourceItem, Field: "article"}},
	{groups: [][]string{{"quantity", "qty", "menge", "anzahl"}}, mapping: FieldMapping{Source: SourceItem, Field: "quantity"}},
}

// fallbackGuess is used when no rule matches; authors are expected to correct it
var fallbackGuess = FieldMapping{Source: SourceProject, Field: "name"}

// BuildMappingTemplate guesses a mapping for each discovered PDF field name by
// keyword matching. The result is an authoring aid and usually needs manual review.
func BuildMappingTemplate(pdfFields []string) *FormMappingConfig {
	cfg := NewConfig()
	for _, name := range pdfFields {
		if name == "" {
			continue
		}
		guess := GuessFieldMapping(name)
		cfg.Set(guess)
	}
	return cfg
}

// GuessFieldMapping applies the keyword rules to a single PDF field name
func GuessFieldMapping(pdfField string) FieldMapping {
	lower := strings.ToLower(pdfField)
	for _, rule := range templateRules {
		if rule.matches(lower) {
			m := rule.mapping
			m.PDFField = pdfField
			return m
		}
	}
	m := fallbackGuess
	m.PDFField = pdfField
	return m
}

func (r templateRule) matches(lower string) bool {
	for _, group := range r.groups {
		if !containsAny(lower, group) {
			return false
		}
	}
	return true
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
