package descriptions

import "sort"

// Tool names
const (
	ToolFormList     = "pdf_form_list"
	ToolFormFields   = "pdf_form_fields"
	ToolFormTemplate = "pdf_form_template"
	ToolFormPreview  = "pdf_form_preview"
	ToolServerInfo   = "pdf_server_info"
	ToolOrderMapping = "order_form_mapping"
	ToolOrderResolve = "order_form_resolve"
	ToolOrderFill    = "order_form_fill"
)

// Tool descriptions with practical examples and use cases

const (
	// Form inspection
	FormListDescription = `Find PDF order forms under the document root.

**When to use:** Looking for the blank manufacturer form to fill, or checking which forms are available before setting up templates.

**Why it's useful:** Walks the document root (skipping hidden folders and the output directory), matches file names against an optional query word by word, and can count each form's fields so empty or broken PDFs stand out.

**Examples:**
• Discovery: "Which order forms do we have?"
• Filtered: "Find the Hilti HIT forms" (query "hilti hit")
• Health check: "List the forms with their field counts"

**Common workflows:**
1. pdf_form_list → pdf_form_fields on the chosen path → order_form_fill
2. pdf_form_list with countFields → investigate files reporting errors or zero fields

**Best practices:** Returned paths are relative to the document root and can be passed directly as a location.`

	FormFieldsDescription = `List the interactive AcroForm fields of a PDF order form.

**When to use:** Preparing a new manufacturer form, checking which field names a mapping must target, or diagnosing why a value did not land in the document.

**Why it's useful:** Reports every terminal field with its fully qualified name, type (text, checkbox, radio, choice, signature), current value, options, required/read-only flags, page and widget rectangle.

**Examples:**
• New form: "List the fields of hilti-hit-bestellung.pdf so we can write its mapping"
• Remote template: "Show the fields of https://cdn.example.ch/forms/isokorb.pdf"
• Debugging: "Why is Pos3_Menge empty in the filled order? Check the field exists"

**Common workflows:**
1. Onboarding a form: pdf_form_fields → pdf_form_template → adjust mapping → order_form_resolve
2. Troubleshooting: order_form_fill reports missing fields → pdf_form_fields → fix mapping

**Best practices:** Only text fields are filled; other field types are listed for completeness and reported as unsupported when targeted.`

	FormTemplateDescription = `Guess a starting field mapping for a PDF order form from its field names.

**When to use:** A manufacturer form has no mapping yet and you want a first draft to edit rather than writing every entry by hand.

**Why it's useful:** Applies name heuristics (project, order number, date, article, quantity, company parties) to every text field and returns the mapping both as structured JSON and in the persisted string form stored on templates.

**Examples:**
• Draft: "Create a mapping template for schoeck-isokorb-2025.pdf"
• Review: "Which fields of halfen-hta.pdf could not be guessed?"

**Common workflows:**
1. Mapping authoring: pdf_form_template → review guesses → store as template fieldMapping → order_form_resolve

**Best practices:** Guesses are a draft, never a correctness path. Review every entry before saving it on a template.`

	FormPreviewDescription = `Render one page of the original PDF as a PNG preview with page and zoom navigation.

**When to use:** Showing the user what the blank form looks like, or locating a field's widget visually before editing a mapping.

**Why it's useful:** Keeps one viewer per client session with its current page and zoom; each call re-renders only the current page and cached pages are shared across sessions.

**Examples:**
• Open: "Preview https://cdn.example.ch/forms/isokorb.pdf" (action load)
• Navigate: "Next page", "Zoom in", "Go to page 3"

**Common workflows:**
1. Form review: pdf_form_preview (load) → next/previous → zoom_in to inspect small fields

**Best practices:** Zoom runs from 0.5 to 3.0 in steps of 0.2. A page that fails to render is reported for that page only; the rest of the document stays usable.`

	ServerInfoDescription = `Get server configuration, available tools, known manufacturer mappings and transforms.

**When to use:** Starting a session, checking which manufacturer and product type mappings exist, or troubleshooting configuration.

**Why it's useful:** Lists the document root, output directory, size limit, date format, registry contents, transform names and custom field names in one call.

**Examples:**
• Capability check: "Which manufacturers have order form mappings?"
• Troubleshooting: "Where are filled documents saved?"

**Common workflows:**
1. Session startup: pdf_server_info → pick manufacturer/product type → order_form_mapping

**Best practices:** Run at the start of a session.`

	// Order form workflow
	OrderMappingDescription = `Return the field mapping that applies to a stored PDF template.

**When to use:** Inspecting which order data feeds which PDF field before resolving or filling.

**Why it's useful:** Uses the template's own persisted mapping when it has one, otherwise the registry entry for its manufacturer and product type, otherwise the default mapping. The origin is reported together with any warnings such as an unparseable stored mapping.

**Examples:**
• Lookup: "Which mapping does the Hilti HIT elements template use?"
• Fallback check: "Does manufacturer 'Acme' have its own mapping?"

**Common workflows:**
1. Review: order_form_mapping → order_form_resolve → order_form_fill

**Best practices:** Manufacturer and product type are matched case-insensitively.`

	OrderResolveDescription = `Resolve project, part, order list and items into one string per mapped PDF field.

**When to use:** Checking the values a fill would write, without producing a document.

**Why it's useful:** Applies the mapping's sources, item rows and transforms (upper, lower, trim, date, number, quantity, status, swissPostal). Missing data resolves to an empty string and is reported as a warning instead of failing.

**Examples:**
• Dry run: "Resolve order list BL-2025-014 against the Schöck Isokorb template"
• Debugging: "Why is Datum empty? Look at the resolution warnings"

**Common workflows:**
1. Verification: order_form_resolve → inspect values and warnings → order_form_fill

**Best practices:** Dates are formatted with the configured date format; item rows bind item n for every field of row n.`

	OrderFillDescription = `Fill the original PDF order form with resolved order data and return the filled document.

**When to use:** Producing the order form to send to the manufacturer.

**Why it's useful:** Resolves the order, writes text field values with proper encoding, optionally flattens the values into the page content, and returns a named artifact. The document can also be saved to the output directory.

**Examples:**
• Export: "Fill the Hilti order form for order list BL-2025-014 and save it"
• Flattened copy: "Fill isokorb.pdf and flatten it so values cannot be edited"
• Explicit values: "Fill form.pdf with Projekt=Wohnüberbauung Etappe 2"

**Common workflows:**
1. Ordering: order_form_mapping → order_form_resolve → order_form_fill (save)

**Best practices:** Fields missing from the document are reported, not fatal. Non-text fields are left untouched. A fetch or parse failure produces no document.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	ToolFormList:     FormListDescription,
	ToolFormFields:   FormFieldsDescription,
	ToolFormTemplate: FormTemplateDescription,
	ToolFormPreview:  FormPreviewDescription,
	ToolServerInfo:   ServerInfoDescription,
	ToolOrderMapping: OrderMappingDescription,
	ToolOrderResolve: OrderResolveDescription,
	ToolOrderFill:    OrderFillDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns all tool names, sorted
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
