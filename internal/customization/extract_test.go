package customization

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/wooacry-bridge/internal/domain"
)

func lineItems(t *testing.T, payload string) []domain.LineItem {
	t.Helper()

	var items []domain.LineItem
	require.NoError(t, json.Unmarshal([]byte(payload), &items))
	return items
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []domain.CustomizationItem
	}{
		{
			name:    "array of name/value pairs",
			payload: `[{"quantity":2,"properties":[{"name":"_color","value":"red"},{"name":"customize_no","value":"ABC1"}]}]`,
			want:    []domain.CustomizationItem{{CustomizeNo: "ABC1", Count: 2}},
		},
		{
			name:    "flat object",
			payload: `[{"quantity":3,"properties":{"customize_no":"XYZ9"}}]`,
			want:    []domain.CustomizationItem{{CustomizeNo: "XYZ9", Count: 3}},
		},
		{
			name: "quantities are summed per reference in first-seen order",
			payload: `[
				{"quantity":1,"properties":{"customize_no":"B"}},
				{"quantity":2,"properties":[{"name":"customize_no","value":"A"}]},
				{"quantity":4,"properties":{"customize_no":"B"}}
			]`,
			want: []domain.CustomizationItem{{CustomizeNo: "B", Count: 5}, {CustomizeNo: "A", Count: 2}},
		},
		{
			name:    "missing or zero quantity counts as one",
			payload: `[{"properties":{"customize_no":"A"}},{"quantity":0,"properties":{"customize_no":"A"}},{"quantity":"2","properties":{"customize_no":"A"}}]`,
			want:    []domain.CustomizationItem{{CustomizeNo: "A", Count: 4}},
		},
		{
			name:    "values are trimmed and numbers coerced",
			payload: `[{"quantity":1,"properties":{"customize_no":"  ABC1  "}},{"quantity":1,"properties":[{"name":"customize_no","value":12345}]}]`,
			want:    []domain.CustomizationItem{{CustomizeNo: "ABC1", Count: 1}, {CustomizeNo: "12345", Count: 1}},
		},
		{
			name:    "blank values and unrelated lines are ignored",
			payload: `[{"quantity":1,"properties":{"customize_no":"  "}},{"quantity":1,"properties":[]},{"quantity":1},{"quantity":1,"properties":null},{"quantity":1,"properties":"garbage"}]`,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(lineItems(t, tt.payload))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_Invariants(t *testing.T) {
	items := lineItems(t, `[
		{"quantity":-3,"properties":{"customize_no":"A"}},
		{"quantity":7,"properties":{"customize_no":"B"}}
	]`)

	for _, item := range Extract(items) {
		assert.NotEmpty(t, item.CustomizeNo)
		assert.GreaterOrEqual(t, item.Count, 1)
	}
}
