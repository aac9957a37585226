package domain

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a money value Wooacry may send as a number, a numeric string or an empty string.
// Any other value decodes without error but is not Valid.
type Amount struct {
	decimal.Decimal
	// unparsed holds the partner's text when it was not a number.
	unparsed string
}

func NewAmount(v string) Amount {
	var a Amount
	a.parse(v)
	return a
}

func (a Amount) Valid() bool {
	return a.unparsed == ""
}

func (a *Amount) parse(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		*a = Amount{Decimal: decimal.Zero}
		return
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		*a = Amount{Decimal: decimal.Zero, unparsed: text}
		return
	}
	*a = Amount{Decimal: d}
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Amount{Decimal: decimal.Zero}
		return nil
	}

	text := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}

	a.parse(text)
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid() {
		return json.Marshal(a.unparsed)
	}
	return []byte(`"` + a.Decimal.String() + `"`), nil
}

// ShippingQuote is one shipping method offered by a Wooacry preorder.
type ShippingQuote struct {
	ID               FlexString `json:"id"`
	Name             string     `json:"name,omitempty"`
	PostalAmount     Amount     `json:"postal_amount"`
	TaxAmount        Amount     `json:"tax_amount"`
	TaxServiceAmount Amount     `json:"tax_service_amount"`
}

// Priced reports whether every cost component is a number.
func (q ShippingQuote) Priced() bool {
	return q.PostalAmount.Valid() && q.TaxAmount.Valid() && q.TaxServiceAmount.Valid()
}

// Total is the landed shipping cost; components the partner omitted count as zero.
func (q ShippingQuote) Total() decimal.Decimal {
	return q.PostalAmount.Add(q.TaxAmount.Decimal).Add(q.TaxServiceAmount.Decimal)
}
