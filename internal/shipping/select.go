// Package shipping picks the shipping method for a Wooacry order.
package shipping

import (
	"slices"
	"strings"

	"github.com/joao-fontenele/wooacry-bridge/internal/apperr"
	"github.com/joao-fontenele/wooacry-bridge/internal/domain"
)

// SelectCheapest returns the id of the quote with the lowest landed total. Equal totals
// are broken by the lower id so the choice is stable across redeliveries. Quotes with a
// non-numeric cost are not candidates.
func SelectCheapest(quotes []domain.ShippingQuote) (string, error) {
	priced := make([]domain.ShippingQuote, 0, len(quotes))
	for _, q := range quotes {
		if q.Priced() {
			priced = append(priced, q)
		}
	}
	if len(priced) == 0 {
		return "", apperr.ErrNoQuotes
	}

	best := slices.MinFunc(priced, func(a, b domain.ShippingQuote) int {
		if c := a.Total().Cmp(b.Total()); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return best.ID.String(), nil
}
