package mapping

import (
	"fmt"
	"sort"
)

// Source names the record a FieldMapping reads from
type Source string

const (
	SourceProject   Source = "project"
	SourcePart      Source = "part"
	SourceOrderList Source = "orderList"
	SourceItem      Source = "item"
	SourceCustom    Source = "custom"
)

// Sources lists every valid source in a stable order
func Sources() []Source {
	return []Source{SourceProject, SourcePart, SourceOrderList, SourceItem, SourceCustom}
}

// Valid reports whether s is one of the known sources
func (s Source) Valid() bool {
	switch s {
	case SourceProject, SourcePart, SourceOrderList, SourceItem, SourceCustom:
		return true
	}
	return false
}

// ParseSource converts a string into a Source, rejecting unknown names
func ParseSource(s string) (Source, error) {
	src := Source(s)
	if !src.Valid() {
		return "", fmt.Errorf("unknown mapping source %q", s)
	}
	return src, nil
}

// Computed field names understood for SourceCustom
const (
	CustomCurrentDate              = "currentDate"
	CustomCompositePartNumber      = "compositePartNumber"
	CustomCompositeOrderListNumber = "compositeOrderListNumber"
)

// Parties whose company record can be rendered as an address block
const (
	PartyEngineer  = "engineer"
	PartyMasonry   = "masonry"
	PartyArchitect = "architect"
	PartyOwner     = "owner"
)

// Parties lists the parties with formatted address and city rules
func Parties() []string {
	return []string{PartyEngineer, PartyMasonry, PartyArchitect, PartyOwner}
}

// FormattedAddressField returns the custom field name for a party's street line
func FormattedAddressField(party string) string {
	return party + "FormattedAddress"
}

// FormattedCityField returns the custom field name for a party's postal code and city line
func FormattedCityField(party string) string {
	return party + "FormattedCity"
}

var customFields = func() map[string]bool {
	set := map[string]bool{
		CustomCurrentDate:              true,
		CustomCompositePartNumber:      true,
		CustomCompositeOrderListNumber: true,
	}
	for _, p := range Parties() {
		set[FormattedAddressField(p)] = true
		set[FormattedCityField(p)] = true
	}
	return set
}()

// IsCustomField reports whether name is a known computed field
func IsCustomField(name string) bool {
	return customFields[name]
}

// CustomFields returns the closed set of computed field names, sorted
func CustomFields() []string {
	names := make([]string, 0, len(customFields))
	for name := range customFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
