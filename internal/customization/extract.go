// Package customization finds the Wooacry customization references carried on Shopify line items.
package customization

import (
	"bytes"
	"encoding/json"

	"github.com/joao-fontenele/wooacry-bridge/internal/domain"
)

// PropertyName is the line item property the storefront writes when a buyer finishes a design.
const PropertyName = "customize_no"

type namedProperty struct {
	Name  domain.FlexString `json:"name"`
	Value domain.FlexString `json:"value"`
}

// Extract returns one item per distinct customize_no, in first-seen order, with the
// quantities of all lines carrying it summed. Lines without the property are ignored.
func Extract(items []domain.LineItem) []domain.CustomizationItem {
	var (
		out   []domain.CustomizationItem
		index = make(map[string]int)
	)

	for _, li := range items {
		ref := property(li.Properties, PropertyName)
		if ref == "" {
			continue
		}

		qty := int(li.Quantity)
		if qty < 1 {
			qty = 1
		}

		if i, ok := index[ref]; ok {
			out[i].Count += qty
			continue
		}

		index[ref] = len(out)
		out = append(out, domain.CustomizationItem{CustomizeNo: ref, Count: qty})
	}

	return out
}

// property reads key from either [{name, value}] or {key: value} encoded properties.
func property(raw json.RawMessage, key string) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	switch raw[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return ""
		}
		for _, entry := range list {
			var p namedProperty
			if err := json.Unmarshal(entry, &p); err != nil {
				continue
			}
			if p.Name.String() == key {
				return p.Value.String()
			}
		}

	case '{':
		var m map[string]domain.FlexString
		if err := json.Unmarshal(raw, &m); err != nil {
			return ""
		}
		return m[key].String()
	}

	return ""
}
