// Package domain holds the read-only record snapshots the form engine consumes.
// The JSON names double as the property names addressed by mapping dot paths.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of an order list
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// ParseStatus validates a status string (case-insensitive)
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusRejected:
		return st, nil
	default:
		return "", fmt.Errorf("invalid order list status %q", s)
	}
}

// Company is a party related to a project (engineer, masonry company, architect, owner)
type Company struct {
	Name       string `json:"name,omitempty"`
	Street     string `json:"street,omitempty"`
	Address    string `json:"address,omitempty"` // legacy single-line address
	PostalCode string `json:"postalCode,omitempty"`
	City       string `json:"city,omitempty"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
}

// Project is a construction project
type Project struct {
	ID             string   `json:"id,omitempty"`
	Name           string   `json:"name,omitempty"`
	ProjectNumber  string   `json:"projectNumber,omitempty"`
	Address        string   `json:"address,omitempty"`
	Designer       string   `json:"designer,omitempty"`
	ProjectManager string   `json:"projectManager,omitempty"`
	Engineer       *Company `json:"engineer,omitempty"`
	MasonryCompany *Company `json:"masonryCompany,omitempty"`
	Architect      *Company `json:"architect,omitempty"`
	Owner          *Company `json:"owner,omitempty"`
}

// ProjectPart is a sub-part of a project (building section, stage)
type ProjectPart struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name,omitempty"`
	PartNumber     string `json:"partNumber,omitempty"`
	Designer       string `json:"designer,omitempty"`
	ProjectManager string `json:"projectManager,omitempty"`
	ProjectID      string `json:"projectId,omitempty"`
}

// OrderList is a manufacturer order list belonging to a project part
type OrderList struct {
	ID             string     `json:"id,omitempty"`
	ListNumber     string     `json:"listNumber,omitempty"`
	Name           string     `json:"name,omitempty"`
	Manufacturer   string     `json:"manufacturer,omitempty"`
	Type           string     `json:"type,omitempty"`
	Designer       string     `json:"designer,omitempty"`
	ProjectManager string     `json:"projectManager,omitempty"`
	Status         Status     `json:"status,omitempty"`
	SubmissionDate *time.Time `json:"submissionDate,omitempty"`
}

// Item is a line item on an order list
type Item struct {
	Article        string  `json:"article,omitempty"`
	Quantity       float64 `json:"quantity,omitempty"`
	Type           string  `json:"type,omitempty"`
	Specifications Specs   `json:"specifications,omitempty"`
}

// Specs is the free-form bag of manufacturer-specific item attributes.
// Values are scalars: string, number or bool. Absent keys are simply missing.
type Specs map[string]any

// Get returns the value stored under key and whether it is present and non-nil
func (s Specs) Get(key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// PdfTemplate is a stored fillable PDF with its persisted field mapping
type PdfTemplate struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	ProductType  string `json:"productType,omitempty"`
	FileURL      string `json:"fileUrl,omitempty"`
	FieldMapping string `json:"fieldMapping,omitempty"` // JSON-encoded mapping config
}

// OrderData bundles everything needed to resolve one order form
type OrderData struct {
	Project   *Project     `json:"project,omitempty"`
	Part      *ProjectPart `json:"part,omitempty"`
	OrderList *OrderList   `json:"orderList,omitempty"`
	Items     []Item       `json:"items,omitempty"`
}
