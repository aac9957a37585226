// Package address converts Shopify addresses into the ten-field address Wooacry requires.
package address

import (
	"strings"

	"github.com/joao-fontenele/wooacry-bridge/internal/apperr"
	"github.com/joao-fontenele/wooacry-bridge/internal/domain"
)

// Normalize trims every field, uppercases the country code and enforces the required
// fields, the country list and the tax number rule. It has no side effects.
func Normalize(raw domain.Address) (domain.NormalizedAddress, error) {
	addr := domain.NormalizedAddress{
		FirstName:   raw.FirstName.String(),
		LastName:    raw.LastName.String(),
		Phone:       raw.Phone.String(),
		CountryCode: strings.ToUpper(raw.CountryCode.String()),
		Province:    raw.Province.String(),
		City:        raw.City.String(),
		Address1:    raw.Address1.String(),
		Address2:    raw.Address2.String(),
		PostCode:    raw.Zip.String(),
		TaxNumber:   raw.TaxNumber.String(),
	}

	required := []struct {
		field string
		value string
	}{
		{"first_name", addr.FirstName},
		{"last_name", addr.LastName},
		{"phone", addr.Phone},
		{"country_code", addr.CountryCode},
		{"province", addr.Province},
		{"city", addr.City},
		{"address1", addr.Address1},
		{"post_code", addr.PostCode},
	}
	for _, r := range required {
		if r.value == "" {
			return domain.NormalizedAddress{}, apperr.Validation(r.field, "is required")
		}
	}

	if !IsSupportedCountry(addr.CountryCode) {
		return domain.NormalizedAddress{}, apperr.Validation("country_code", "unsupported country "+addr.CountryCode)
	}

	if RequiresTaxNumber(addr.CountryCode) && addr.TaxNumber == "" {
		return domain.NormalizedAddress{}, apperr.Validation("tax_number", "is required for destination country "+addr.CountryCode)
	}

	return addr, nil
}

// FromShopify picks the address to ship to: the shipping address, else the billing
// address. The phone falls back to the order phone and then the billing phone.
func FromShopify(order domain.InboundOrder) (domain.Address, error) {
	ship := order.ShippingAddress
	if ship == nil {
		ship = order.BillingAddress
	}
	if ship == nil {
		return domain.Address{}, apperr.Validation("shipping_address", "is missing on order")
	}

	addr := *ship
	if addr.Phone.String() == "" {
		addr.Phone = order.Phone
	}
	if addr.Phone.String() == "" && order.BillingAddress != nil {
		addr.Phone = order.BillingAddress.Phone
	}

	return addr, nil
}
