package resolver

import (
	"strings"

	"github.com/a3tai/mcp-pdf-forms/internal/domain"
	"github.com/a3tai/mcp-pdf-forms/internal/mapping"
)

// placeholder stands in for an absent number in composite identifiers
const placeholder = "??"

// customRule computes the value of a SourceCustom field
type customRule func(r *Resolver, data *domain.OrderData) (any, error)

func defaultRules() map[string]customRule {
	rules := map[string]customRule{
		mapping.CustomCurrentDate:              currentDate,
		mapping.CustomCompositePartNumber:      compositePartNumber,
		mapping.CustomCompositeOrderListNumber: compositeOrderListNumber,
	}
	for _, party := range mapping.Parties() {
		rules[mapping.FormattedAddressField(party)] = formattedAddress(party)
		rules[mapping.FormattedCityField(party)] = formattedCity(party)
	}
	return rules
}

func currentDate(r *Resolver, _ *domain.OrderData) (any, error) {
	return r.now().Format(r.dateLayout), nil
}

// compositePartNumber renders "<projectNumber>-<partNumber>"
func compositePartNumber(_ *Resolver, data *domain.OrderData) (any, error) {
	return partNumber(data), nil
}

// compositeOrderListNumber renders "<projectNumber>-<partNumber>.<listNumber>"
func compositeOrderListNumber(_ *Resolver, data *domain.OrderData) (any, error) {
	list := ""
	if data.OrderList != nil {
		list = data.OrderList.ListNumber
	}
	return partNumber(data) + "." + orPlaceholder(list), nil
}

func partNumber(data *domain.OrderData) string {
	project, part := "", ""
	if data.Project != nil {
		project = data.Project.ProjectNumber
	}
	if data.Part != nil {
		part = data.Part.PartNumber
	}
	return orPlaceholder(project) + "-" + orPlaceholder(part)
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

// formattedAddress returns the party's street, falling back to the legacy address line
func formattedAddress(party string) customRule {
	return func(_ *Resolver, data *domain.OrderData) (any, error) {
		c := company(data.Project, party)
		if c == nil {
			return "", nil
		}
		if s := strings.TrimSpace(c.Street); s != "" {
			return s, nil
		}
		return strings.TrimSpace(c.Address), nil
	}
}

// formattedCity returns "CH-<postalCode> <city>", or whichever part is present
func formattedCity(party string) customRule {
	return func(_ *Resolver, data *domain.OrderData) (any, error) {
		c := company(data.Project, party)
		if c == nil {
			return "", nil
		}
		postal, city := strings.TrimSpace(c.PostalCode), strings.TrimSpace(c.City)
		switch {
		case postal != "" && city != "":
			return "CH-" + postal + " " + city, nil
		case postal != "":
			return postal, nil
		default:
			return city, nil
		}
	}
}

func company(p *domain.Project, party string) *domain.Company {
	if p == nil {
		return nil
	}
	switch party {
	case mapping.PartyEngineer:
		return p.Engineer
	case mapping.PartyMasonry:
		return p.MasonryCompany
	case mapping.PartyArchitect:
		return p.Architect
	case mapping.PartyOwner:
		return p.Owner
	}
	return nil
}
