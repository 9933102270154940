package mapping

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/a3tai/mcp-pdf-forms/internal/domain"
)

// DateLayout is the Swiss date format used on order forms
const DateLayout = "02.01.2006"

// TransformFunc converts a raw resolved value into the string written to the form
type TransformFunc func(value any) (string, error)

// TransformRegistry holds named transforms that mappings refer to
type TransformRegistry struct {
	transforms map[string]TransformFunc
}

// NewTransformRegistry creates an empty transform registry
func NewTransformRegistry() *TransformRegistry {
	return &TransformRegistry{
		transforms: make(map[string]TransformFunc),
	}
}

// DefaultTransforms returns a registry with the built-in transforms
func DefaultTransforms() *TransformRegistry {
	r := NewTransformRegistry()
	r.Register("upper", transformUpper)
	r.Register("lower", transformLower)
	r.Register("trim", transformTrim)
	r.Register("date", transformDate)
	r.Register("number", transformNumber)
	r.Register("quantity", transformQuantity)
	r.Register("status", transformStatus)
	r.Register("swissPostal", transformSwissPostal)
	return r
}

// Register adds or replaces a transform
func (r *TransformRegistry) Register(name string, fn TransformFunc) {
	r.transforms[name] = fn
}

// Get returns the transform registered under name
func (r *TransformRegistry) Get(name string) (TransformFunc, bool) {
	if r == nil {
		return nil, false
	}
	fn, ok := r.transforms[name]
	return fn, ok
}

// Has returns true if a transform with the given name exists
func (r *TransformRegistry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the registered transform names, sorted
func (r *TransformRegistry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.transforms))
	for name := range r.transforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func transformUpper(v any) (string, error) {
	s, err := Stringify(v)
	if err != nil {
		return "", err
	}
	// Casers are stateful, so each call gets its own.
	return cases.Upper(language.German).String(s), nil
}

func transformLower(v any) (string, error) {
	s, err := Stringify(v)
	if err != nil {
		return "", err
	}
	return cases.Lower(language.German).String(s), nil
}

func transformTrim(v any) (string, error) {
	s, err := Stringify(v)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

func transformDate(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case *time.Time:
		if t == nil {
			return "", nil
		}
		return t.Format(DateLayout), nil
	case string:
		if strings.TrimSpace(t) == "" {
			return "", nil
		}
	}
	tm, err := cast.ToTimeE(v)
	if err != nil {
		return "", fmt.Errorf("not a date: %w", err)
	}
	return tm.Format(DateLayout), nil
}

func transformNumber(v any) (string, error) {
	if isBlank(v) {
		return "", nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return "", fmt.Errorf("not a number: %w", err)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

func transformQuantity(v any) (string, error) {
	if isBlank(v) {
		return "", nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return "", fmt.Errorf("not a quantity: %w", err)
	}
	if f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10), nil
	}
	return strconv.FormatFloat(f, 'f', 2, 64), nil
}

var statusLabels = map[domain.Status]string{
	domain.StatusDraft:     "Entwurf",
	domain.StatusSubmitted: "Eingereicht",
	domain.StatusApproved:  "Freigegeben",
	domain.StatusRejected:  "Abgelehnt",
}

func transformStatus(v any) (string, error) {
	s, err := Stringify(v)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", nil
	}
	st, err := domain.ParseStatus(s)
	if err != nil {
		return "", err
	}
	return statusLabels[st], nil
}

func transformSwissPostal(v any) (string, error) {
	s, err := Stringify(v)
	if err != nil {
		return "", err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if strings.HasPrefix(strings.ToUpper(s), "CH-") {
		return s, nil
	}
	return "CH-" + s, nil
}

// ErrUnknownTransform is returned when a mapping names a transform that is not registered
var ErrUnknownTransform = errors.New("unknown transform")

// isBlank reports nil and whitespace-only strings
func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
