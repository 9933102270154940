package mapping

import "fmt"

// Number of repeating line-item rows on the standard order form
const defaultItemRows = 5

func project(pdfField, field string) FieldMapping {
	return FieldMapping{PDFField: pdfField, Source: SourceProject, Field: field}
}

func part(pdfField, field string) FieldMapping {
	return FieldMapping{PDFField: pdfField, Source: SourcePart, Field: field}
}

func orderList(pdfField, field string) FieldMapping {
	return FieldMapping{PDFField: pdfField, Source: SourceOrderList, Field: field}
}

func custom(pdfField, field string) FieldMapping {
	return FieldMapping{PDFField: pdfField, Source: SourceCustom, Field: field}
}

func item(pdfField, field string) FieldMapping {
	return FieldMapping{PDFField: pdfField, Source: SourceItem, Field: field}
}

func withTransform(m FieldMapping, transform string) FieldMapping {
	m.Transform = transform
	return m
}

// itemRows maps one item field onto the numbered rows Pos1_<suffix> .. PosN_<suffix>
func itemRows(suffix, field, transform string) []FieldMapping {
	rows := make([]FieldMapping, 0, defaultItemRows)
	for i := 1; i <= defaultItemRows; i++ {
		rows = append(rows, withTransform(item(fmt.Sprintf("Pos%d_%s", i, suffix), field), transform))
	}
	return rows
}

// DefaultMapping is the manufacturer-agnostic order form mapping
func DefaultMapping() *FormMappingConfig {
	cfg := NewConfig(
		project("Projekt", "name"),
		project("Projektnummer", "projectNumber"),
		project("Projektadresse", "address"),
		project("Projektleiter", "projectManager"),
		part("Bauteil", "name"),
		custom("Bauteilnummer", CustomCompositePartNumber),
		orderList("Bestellliste", "name"),
		custom("Bestellnummer", CustomCompositeOrderListNumber),
		orderList("Hersteller", "manufacturer"),
		orderList("Produkttyp", "type"),
		orderList("Zeichner", "designer"),
		withTransform(orderList("Status", "status"), "status"),
		custom("Datum", CustomCurrentDate),
		project("Ingenieur", "engineer.name"),
		custom("Ingenieur_Adresse", FormattedAddressField(PartyEngineer)),
		custom("Ingenieur_Ort", FormattedCityField(PartyEngineer)),
		project("Ingenieur_Telefon", "engineer.phone"),
		project("Ingenieur_Email", "engineer.email"),
		project("Baumeister", "masonryCompany.name"),
		custom("Baumeister_Adresse", FormattedAddressField(PartyMasonry)),
		custom("Baumeister_Ort", FormattedCityField(PartyMasonry)),
		project("Baumeister_Telefon", "masonryCompany.phone"),
	)
	// Article and quantity alternate per row so row n binds item n for both.
	for i := 1; i <= defaultItemRows; i++ {
		cfg.Set(item(fmt.Sprintf("Pos%d_Artikel", i), "article"))
		cfg.Set(withTransform(item(fmt.Sprintf("Pos%d_Menge", i), "quantity"), "quantity"))
	}
	return cfg
}

// builtinEntries are the manufacturer forms shipped with the engine
func builtinEntries() []Entry {
	base := DefaultMapping()

	hitElements := Merge(base,
		part("Projektleiter", "projectManager"),
		withTransform(orderList("Lieferdatum", "submissionDate"), "date"),
	)
	hitElements = Merge(hitElements, itemRows("Laenge", "length", "number")...)

	hiltiAnchors := Merge(base, itemRows("Typ", "type", "")...)
	hiltiAnchors = Merge(hiltiAnchors, itemRows("Bohrtiefe", "drillDepth", "number")...)

	halfenChannels := Merge(base,
		project("Architekt", "architect.name"),
		custom("Architekt_Adresse", FormattedAddressField(PartyArchitect)),
		custom("Architekt_Ort", FormattedCityField(PartyArchitect)),
	)
	halfenChannels = Merge(halfenChannels, itemRows("Profil", "profile", "upper")...)
	halfenChannels = Merge(halfenChannels, itemRows("Laenge", "length", "number")...)

	isokorb := Merge(base,
		project("Bauherr", "owner.name"),
		custom("Bauherr_Adresse", FormattedAddressField(PartyOwner)),
		custom("Bauherr_Ort", FormattedCityField(PartyOwner)),
	)
	isokorb = Merge(isokorb, itemRows("Typ", "type", "")...)
	isokorb = Merge(isokorb, itemRows("Tragstufe", "loadClass", "")...)

	return []Entry{
		{Manufacturer: "hilti", ProductType: "hit-elements", Config: hitElements},
		{Manufacturer: "hilti", ProductType: "anchors", Config: hiltiAnchors},
		{Manufacturer: "halfen", ProductType: "hit-elements", Config: hitElements},
		{Manufacturer: "halfen", ProductType: "hta", Config: halfenChannels},
		{Manufacturer: "schöck", ProductType: "isokorb", Config: isokorb},
		{Manufacturer: "schoeck", ProductType: "isokorb", Config: isokorb},
	}
}

// DefaultRegistry returns the built-in registry. It panics if the built-in
// tables are invalid, which is a programming error caught by the tests.
func DefaultRegistry(opts ...RegistryOption) *Registry {
	r, err := NewRegistry(DefaultMapping(), builtinEntries(), opts...)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in mapping registry: %v", err))
	}
	return r
}
