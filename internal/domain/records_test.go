package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"draft", StatusDraft, false},
		{" Submitted ", StatusSubmitted, false},
		{"APPROVED", StatusApproved, false},
		{"rejected", StatusRejected, false},
		{"archived", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSpecs_Get(t *testing.T) {
	var empty Specs
	_, ok := empty.Get("length")
	assert.False(t, ok)

	s := Specs{"length": 120, "coating": "galvanised", "optional": nil}

	v, ok := s.Get("length")
	assert.True(t, ok)
	assert.Equal(t, 120, v)

	_, ok = s.Get("optional")
	assert.False(t, ok, "nil values count as absent")

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestOrderData_DecodesCollaboratorJSON(t *testing.T) {
	raw := `{
		"project": {"name": "Schulhaus Nord", "projectNumber": "P-2031",
			"engineer": {"name": "Ing. AG", "address": "Hauptstrasse 4", "postalCode": "8000", "city": "Zürich"}},
		"part": {"partNumber": "03", "name": "Trakt B"},
		"orderList": {"listNumber": "7", "status": "submitted", "submissionDate": "2024-03-05T00:00:00Z"},
		"items": [{"article": "HIT-V M12", "quantity": 40, "specifications": {"length": 160}}]
	}`

	var data OrderData
	require.NoError(t, json.Unmarshal([]byte(raw), &data))

	require.NotNil(t, data.Project)
	require.NotNil(t, data.Project.Engineer)
	assert.Equal(t, "Hauptstrasse 4", data.Project.Engineer.Address)
	assert.Nil(t, data.Project.MasonryCompany)
	assert.Equal(t, StatusSubmitted, data.OrderList.Status)
	require.NotNil(t, data.OrderList.SubmissionDate)
	assert.Equal(t, 2024, data.OrderList.SubmissionDate.Year())
	require.Len(t, data.Items, 1)
	assert.Equal(t, float64(40), data.Items[0].Quantity)
	assert.Equal(t, float64(160), data.Items[0].Specifications["length"])
}
