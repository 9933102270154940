package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf/acroform"
	"github.com/a3tai/mcp-pdf-forms/internal/mapping"
)

var errUsage = errors.New("usage")

type options struct {
	format   string
	template bool
	mapping  string
	path     string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 2
	}

	data, err := os.ReadFile(opts.path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fields, err := acroform.ExtractFormFields(data)
	if err != nil {
		fmt.Fprintf(stderr, "Error extracting form fields: %v\n", err)
		return 1
	}

	switch {
	case opts.template:
		err = outputTemplate(stdout, fields)
	case opts.mapping != "":
		err = outputValidation(stdout, opts.mapping, fields)
	default:
		err = outputFields(stdout, opts, fields)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("pdf_extract_forms", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.format, "format", "text", "Output format: text, json")
	fs.BoolVar(&opts.template, "template", false, "Print a guessed field mapping for the text fields")
	fs.StringVar(&opts.mapping, "mapping", "", "Check a field mapping JSON file against the form")
	fs.Usage = func() { printUsage(fs) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "Error: PDF file path required\n\n")
		printUsage(fs)
		return nil, errUsage
	}
	if opts.format != "text" && opts.format != "json" {
		return nil, fmt.Errorf("unsupported format %q", opts.format)
	}
	opts.path = fs.Arg(0)
	return opts, nil
}

func printUsage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintln(out, "PDF Extract Forms - list the form fields of a PDF order form")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "USAGE:")
	fmt.Fprintln(out, "  pdf_extract_forms [OPTIONS] <pdf-file>")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "OPTIONS:")
	fs.PrintDefaults()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "EXAMPLES:")
	fmt.Fprintln(out, "  pdf_extract_forms bestellung.pdf")
	fmt.Fprintln(out, "  pdf_extract_forms -format json bestellung.pdf")
	fmt.Fprintln(out, "  pdf_extract_forms -template bestellung.pdf > mapping.json")
	fmt.Fprintln(out, "  pdf_extract_forms -mapping mapping.json bestellung.pdf")
}

func outputFields(w io.Writer, opts *options, fields []acroform.FieldDescriptor) error {
	if opts.format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"file":   filepath.Base(opts.path),
			"count":  len(fields),
			"fields": fields,
		})
	}

	fmt.Fprintf(w, "File: %s\n", filepath.Base(opts.path))
	fmt.Fprintf(w, "Form fields: %d\n", len(fields))
	for i, f := range fields {
		fmt.Fprintf(w, "%3d. %-40s %-9s", i+1, f.Name, f.Type)
		if f.Page > 0 {
			fmt.Fprintf(w, " page %d", f.Page)
		}
		if f.Value != "" {
			fmt.Fprintf(w, " value=%q", f.Value)
		}
		if f.Required {
			fmt.Fprint(w, " required")
		}
		if f.ReadOnly {
			fmt.Fprint(w, " read-only")
		}
		fmt.Fprintln(w)
	}
	return nil
}

func outputTemplate(w io.Writer, fields []acroform.FieldDescriptor) error {
	var names []string
	for _, f := range fields {
		if f.Type == acroform.FieldTypeText {
			names = append(names, f.Name)
		}
	}
	encoded, err := mapping.EncodePersistedMapping(mapping.BuildMappingTemplate(names))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, encoded)
	return err
}

func outputValidation(w io.Writer, path string, fields []acroform.FieldDescriptor) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cfg := mapping.ParsePersistedMapping(string(raw), nil)
	if cfg.Len() == 0 {
		return fmt.Errorf("%s contains no field mappings", path)
	}

	missing := acroform.ValidateMapping(cfg, fields)
	unmapped := acroform.UnmappedFields(cfg, fields)

	fmt.Fprintf(w, "Mapped fields: %d\n", cfg.Len())
	fmt.Fprintf(w, "Not in document: %d\n", len(missing))
	for _, name := range missing {
		fmt.Fprintf(w, "  - %s\n", name)
	}
	fmt.Fprintf(w, "Unmapped text fields: %d\n", len(unmapped))
	for _, name := range unmapped {
		fmt.Fprintf(w, "  - %s\n", name)
	}
	return nil
}
