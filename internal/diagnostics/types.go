package diagnostics

import (
	"errors"
	"fmt"
	"time"
)

// Kind represents the categories of problems the form engine reports
type Kind int

const (
	KindUnknown Kind = iota
	KindMappingNotFound
	KindFieldResolution
	KindTransform
	KindMappingParse
	KindPDFFetch
	KindPDFParse
	KindFieldNotFound
	KindUnsupportedField
	KindExportIO
)

// Severity indicates how critical a diagnostic is
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// String returns a string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindMappingNotFound:
		return "MAPPING_NOT_FOUND"
	case KindFieldResolution:
		return "FIELD_RESOLUTION"
	case KindTransform:
		return "TRANSFORM"
	case KindMappingParse:
		return "MAPPING_PARSE"
	case KindPDFFetch:
		return "PDF_FETCH"
	case KindPDFParse:
		return "PDF_PARSE"
	case KindFieldNotFound:
		return "FIELD_NOT_FOUND"
	case KindUnsupportedField:
		return "UNSUPPORTED_FIELD"
	case KindExportIO:
		return "EXPORT_IO"
	default:
		return "UNKNOWN"
	}
}

// Severity returns the severity level for a given kind
func (k Kind) Severity() Severity {
	switch k {
	case KindMappingNotFound, KindUnsupportedField:
		return SeverityInfo
	case KindFieldResolution, KindTransform, KindFieldNotFound, KindMappingParse:
		return SeverityWarning
	case KindPDFFetch, KindPDFParse, KindExportIO:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// IsFatal reports whether the kind aborts the operation it occurred in.
// Everything else degrades a single field or mapping and lets the caller continue.
func (k Kind) IsFatal() bool {
	return k.Severity() == SeverityFatal
}

// String returns the lower-case severity name used in log output
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is a classified engine failure carrying the field or document it concerns
type Error struct {
	Kind     Kind
	Message  string
	Field    string // PDF field name, when the failure is scoped to one field
	Location string // URL or path of the document, when known
	Cause    error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %q)", e.Field)
	}
	if e.Location != "" {
		msg += fmt.Sprintf(" (%s)", e.Location)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error of the given kind
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError wraps a lower-level error as an Error of the given kind
func WrapError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithField scopes the error to a PDF field
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithLocation records the document location
func (e *Error) WithLocation(location string) *Error {
	e.Location = location
	return e
}

// IsKind reports whether any error in err's chain is an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// Event is a single non-fatal diagnostic emitted while the engine keeps going
type Event struct {
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Field     string    `json:"field,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent builds an event stamped with the current time
func NewEvent(kind Kind, field, message string) Event {
	return Event{
		Kind:      kind,
		Field:     field,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WithDetail attaches the text of an underlying error to the event
func (ev Event) WithDetail(err error) Event {
	if err != nil {
		ev.Detail = err.Error()
	}
	return ev
}

// String renders the event for humans
func (ev Event) String() string {
	s := fmt.Sprintf("%s: %s", ev.Kind, ev.Message)
	if ev.Field != "" {
		s += fmt.Sprintf(" [%s]", ev.Field)
	}
	if ev.Detail != "" {
		s += ": " + ev.Detail
	}
	return s
}
