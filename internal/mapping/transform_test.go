package mapping

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-forms/internal/domain"
)

func TestDefaultTransforms(t *testing.T) {
	when := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		transform string
		in        any
		want      string
		wantErr   bool
	}{
		{"upper", "upper", "gerät", "GERÄT", false},
		{"upper nil", "upper", nil, "", false},
		{"lower", "lower", "HIT-Elements", "hit-elements", false},
		{"trim", "trim", "  a b  ", "a b", false},
		{"date time", "date", when, "05.03.2024", false},
		{"date pointer", "date", &when, "05.03.2024", false},
		{"date nil pointer", "date", (*time.Time)(nil), "", false},
		{"date string", "date", "2024-03-05", "05.03.2024", false},
		{"date empty", "date", "", "", false},
		{"date garbage", "date", "next tuesday", "", true},
		{"number float", "number", 2.50, "2.5", false},
		{"number string", "number", "12", "12", false},
		{"number garbage", "number", "twelve", "", true},
		{"number nil", "number", nil, "", false},
		{"quantity nil", "quantity", nil, "", false},
		{"quantity whole", "quantity", 4.0, "4", false},
		{"quantity fraction", "quantity", 2.5, "2.50", false},
		{"quantity int", "quantity", 7, "7", false},
		{"status", "status", domain.StatusApproved, "Freigegeben", false},
		{"status string", "status", "Draft", "Entwurf", false},
		{"status invalid", "status", "lost", "", true},
		{"swiss postal", "swissPostal", "8005", "CH-8005", false},
		{"swiss postal prefixed", "swissPostal", "ch-8005", "ch-8005", false},
		{"swiss postal empty", "swissPostal", " ", "", false},
	}

	reg := DefaultTransforms()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, ok := reg.Get(tt.transform)
			require.True(t, ok)

			got, err := fn(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransformRegistry(t *testing.T) {
	reg := NewTransformRegistry()
	assert.False(t, reg.Has("upper"))

	reg.Register("x", func(any) (string, error) { return "x", nil })
	assert.Equal(t, []string{"x"}, reg.Names())

	var nilReg *TransformRegistry
	assert.False(t, nilReg.Has("x"))
	assert.Nil(t, nilReg.Names())
}

func TestStringify(t *testing.T) {
	when := time.Date(2024, 12, 24, 0, 0, 0, 0, time.UTC)
	name := "Muster AG"

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "abc", "abc"},
		{"float whole", 3.0, "3"},
		{"float", 0.25, "0.25"},
		{"int", 42, "42"},
		{"bool", true, "true"},
		{"time", when, "24.12.2024"},
		{"zero time", time.Time{}, ""},
		{"nil time pointer", (*time.Time)(nil), ""},
		{"string pointer", &name, "Muster AG"},
		{"nil string pointer", (*string)(nil), ""},
		{"named string", domain.StatusSubmitted, "submitted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Stringify(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
