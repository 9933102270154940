package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/a3tai/mcp-pdf-forms/internal/diagnostics"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
)

func formatFormListResult(result *pdf.FormListResult) string {
	text := fmt.Sprintf("Found %d PDF form(s) in: %s", result.TotalCount, result.Directory)
	if result.Query != "" {
		text += fmt.Sprintf(" matching %q", result.Query)
	}
	text += "\n"
	for i, f := range result.Files {
		text += fmt.Sprintf("%d. %s (%s, modified %s)", i+1, f.Path, humanize.IBytes(uint64(f.Size)), f.ModifiedTime)
		switch {
		case f.Error != "":
			text += " - unreadable: " + f.Error
		case f.FieldCount != nil:
			text += fmt.Sprintf(", %d field(s)", *f.FieldCount)
		}
		text += "\n"
	}
	if result.Truncated {
		text += "More forms exist; narrow the query or raise the limit.\n"
	}
	return text
}

func formatFormFieldsResult(result *pdf.FormFieldsResult) string {
	text := fmt.Sprintf("Found %d form field(s) in: %s\n", result.Count, result.Location)
	for i, f := range result.Fields {
		text += fmt.Sprintf("%d. %s (%s)", i+1, f.Name, f.Type)
		if f.Page > 0 {
			text += fmt.Sprintf(", page %d", f.Page)
		}
		if f.Value != "" {
			text += fmt.Sprintf(", value %q", f.Value)
		}
		if f.Required {
			text += ", required"
		}
		if f.ReadOnly {
			text += ", read-only"
		}
		text += "\n"
	}
	return text
}

func formatWarnings(events []diagnostics.Event) string {
	if len(events) == 0 {
		return ""
	}
	text := fmt.Sprintf("Warnings (%d):\n", len(events))
	for _, ev := range events {
		text += "  - " + ev.String() + "\n"
	}
	return text
}

func formatServerInfoResult(result *pdf.ServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Document Root: %s\n", result.DocumentRoot)
	text += fmt.Sprintf("💾 Output Directory: %s\n", result.OutputDirectory)
	text += fmt.Sprintf("📏 Max File Size: %s\n", humanize.IBytes(uint64(result.MaxFileSize)))
	text += fmt.Sprintf("📅 Date Format: %s\n", result.DateLayout)
	text += fmt.Sprintf("🗜️  Flatten By Default: %t\n\n", result.FlattenByDefault)

	manufacturers := make([]string, 0, len(result.Manufacturers))
	for m := range result.Manufacturers {
		manufacturers = append(manufacturers, m)
	}
	sort.Strings(manufacturers)
	text += fmt.Sprintf("🏭 Manufacturer Mappings (%d):\n", len(manufacturers))
	for _, m := range manufacturers {
		text += fmt.Sprintf("   • %s: %s\n", m, strings.Join(result.Manufacturers[m], ", "))
	}

	text += fmt.Sprintf("\n🔧 Transforms: %s\n", strings.Join(result.Transforms, ", "))
	text += fmt.Sprintf("🧩 Custom Fields: %s\n", strings.Join(result.CustomFields, ", "))
	text += fmt.Sprintf("🖼️  Preview Cache: %d/%d pages, %.1f%% hit rate\n\n",
		result.PreviewCache.Size, result.PreviewCache.Capacity, result.PreviewCache.HitRate)

	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Description: %s\n", tool.Description)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	text += "\n" + result.UsageGuidance
	return text
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
