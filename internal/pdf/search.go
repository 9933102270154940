package pdf

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf/acroform"
)

// DefaultListLimit caps ListForms when the request sets no limit
const DefaultListLimit = 200

// ListForms walks the document root for PDF order forms. Hidden directories
// and the output directory are skipped; files over the size limit are left out.
// With CountFields set each form is parsed and its fields counted.
func (s *Service) ListForms(ctx context.Context, req FormListRequest) (*FormListResult, error) {
	root := s.paths.Root()
	query := strings.ToLower(strings.TrimSpace(req.Query))
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	result := &FormListResult{Directory: root, Query: req.Query, Files: []FormFile{}}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, the walk continues
			return nil //nolint:nilerr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if !s.paths.Contains(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && (strings.HasPrefix(d.Name(), ".") || path == s.outputDir) {
				return filepath.SkipDir
			}
			return nil
		}

		if !isPDFFile(d.Name()) || !matchesQuery(d.Name(), query) {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() == 0 || info.Size() > s.GetMaxFileSize() {
			return nil //nolint:nilerr
		}

		if len(result.Files) >= limit {
			result.Truncated = true
			return filepath.SkipAll
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil //nolint:nilerr
		}

		file := FormFile{
			Path:         filepath.ToSlash(rel),
			Name:         info.Name(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
		}
		if req.CountFields {
			s.countFields(path, &file)
		}
		result.Files = append(result.Files, file)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking document root: %w", err)
	}

	sort.Slice(result.Files, func(i, j int) bool { return result.Files[i].Path < result.Files[j].Path })
	result.TotalCount = len(result.Files)
	return result, nil
}

func (s *Service) countFields(path string, file *FormFile) {
	data, err := os.ReadFile(path)
	if err != nil {
		file.Error = err.Error()
		return
	}
	fields, err := acroform.ExtractFormFields(data)
	if err != nil {
		file.Error = err.Error()
		return
	}
	n := len(fields)
	file.FieldCount = &n
}

// isPDFFile checks if a file has a PDF extension
func isPDFFile(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

// matchesQuery matches a lower-cased query against a filename. Every query
// word must occur in some word of the name.
func matchesQuery(filename, query string) bool {
	if query == "" {
		return true
	}

	name := strings.TrimSuffix(strings.ToLower(filename), ".pdf")
	if strings.Contains(name, query) {
		return true
	}

	words := splitIntoWords(name)
	for _, queryWord := range splitIntoWords(query) {
		found := false
		for _, word := range words {
			if strings.Contains(word, queryWord) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// splitIntoWords splits a string into words using common separators
func splitIntoWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ' ', '_', '-', '.', '(', ')', '[', ']':
			return true
		}
		return false
	})
}
