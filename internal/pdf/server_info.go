package pdf

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/a3tai/mcp-pdf-forms/internal/descriptions"
	"github.com/a3tai/mcp-pdf-forms/internal/mapping"
)

// ServerInfo returns server configuration, registry contents and usage guidance
func (s *Service) ServerInfo(serverName, version string) *ServerInfoResult {
	manufacturers := make(map[string][]string)
	for _, m := range s.registry.Manufacturers() {
		manufacturers[m] = s.registry.ProductTypes(m)
	}

	return &ServerInfoResult{
		ServerName:       serverName,
		Version:          version,
		DocumentRoot:     s.paths.Root(),
		OutputDirectory:  s.outputDir,
		MaxFileSize:      s.fetcher.MaxSize(),
		FlattenByDefault: s.opts.Flatten,
		DateLayout:       s.opts.DateLayout,
		Manufacturers:    manufacturers,
		Transforms:       s.registry.Transforms().Names(),
		CustomFields:     mapping.CustomFields(),
		PreviewCache:     s.cache.Stats(),
		AvailableTools:   getAvailableTools(),
		UsageGuidance:    s.getUsageGuidance(),
	}
}

// getAvailableTools returns the list of available tools
func getAvailableTools() []ToolInfo {
	const templateParam = "template (required): object with manufacturer, productType and optional fieldMapping " +
		"(persisted mapping JSON string, or a list of {pdfField, source, field, transform})"
	const orderParam = "orderData (optional): object with project, part, orderList and items"

	return []ToolInfo{
		{
			Name:        descriptions.ToolFormList,
			Description: descriptions.GetToolDescription(descriptions.ToolFormList),
			Usage:       "Use this tool to find order forms under the document root.",
			Parameters:  "query (optional): words to match in file names; limit (optional): maximum results; countFields (optional): count each form's fields",
		},
		{
			Name:        descriptions.ToolFormFields,
			Description: descriptions.GetToolDescription(descriptions.ToolFormFields),
			Usage:       "Use this tool to list the form fields of an order form before writing or checking a mapping.",
			Parameters:  "location (required): http(s) URL or path of the PDF (relative paths resolve against the document root)",
		},
		{
			Name:        descriptions.ToolFormTemplate,
			Description: descriptions.GetToolDescription(descriptions.ToolFormTemplate),
			Usage:       "Use this tool to draft a mapping for a form that has none yet.",
			Parameters:  "location (required): http(s) URL or path of the PDF",
		},
		{
			Name:        descriptions.ToolOrderMapping,
			Description: descriptions.GetToolDescription(descriptions.ToolOrderMapping),
			Usage:       "Use this tool to see which mapping a template uses and where it comes from.",
			Parameters:  templateParam,
		},
		{
			Name:        descriptions.ToolOrderResolve,
			Description: descriptions.GetToolDescription(descriptions.ToolOrderResolve),
			Usage:       "Use this tool to compute field values for an order without producing a document.",
			Parameters:  templateParam + ", " + orderParam,
		},
		{
			Name:        descriptions.ToolOrderFill,
			Description: descriptions.GetToolDescription(descriptions.ToolOrderFill),
			Usage:       "Use this tool to produce the filled order form.",
			Parameters: templateParam + ", " + orderParam + ", location (optional): defaults to template fileUrl, " +
				"values (optional): explicit field values instead of orderData, flatten (optional), save (optional)",
		},
		{
			Name:        descriptions.ToolFormPreview,
			Description: descriptions.GetToolDescription(descriptions.ToolFormPreview),
			Usage:       "Use this tool to show a page of the original form as an image.",
			Parameters: "action (optional): load, next, previous, zoom_in, zoom_out or goto (default load), " +
				"location (required for the first load), page (optional), scale (optional)",
		},
		{
			Name:        descriptions.ToolServerInfo,
			Description: descriptions.GetToolDescription(descriptions.ToolServerInfo),
			Usage:       "Use this tool to get server configuration and the known manufacturer mappings.",
			Parameters:  "No parameters required",
		},
	}
}

// getUsageGuidance returns usage guidance
func (s *Service) getUsageGuidance() string {
	return fmt.Sprintf(`PDF Order Form Server Usage Guide:

1. INSPECT THE FORM:
   - Use 'pdf_form_fields' to list the fillable fields of a manufacturer form
   - Use 'pdf_form_preview' to look at the original pages
   - Use 'pdf_form_template' to draft a mapping for a form without one

2. CHECK THE MAPPING:
   - Use 'order_form_mapping' with the stored template
   - origin "template": the template's own fieldMapping is used
   - origin "registry": the built-in entry for manufacturer and product type is used
   - origin "default": no specific mapping exists, the default mapping is used

3. RESOLVE AND FILL:
   - Use 'order_form_resolve' to see the values a fill would write
   - Use 'order_form_fill' to produce the document, with save=true to keep a copy

IMPORTANT NOTES:
- Documents up to %s are accepted
- Local paths must lie inside %s
- Saved documents go to %s
- Dates are formatted as %s
- Only text fields are filled; checkboxes, choices and signatures are reported as unsupported
- Missing order data resolves to empty values and is listed in warnings`,
		humanize.IBytes(uint64(s.fetcher.MaxSize())), s.paths.Root(), s.outputDir, s.opts.DateLayout)
}
