package domain

import (
	"encoding/json"
	"time"
)

// Address is a Shopify mailing address as delivered in the webhook payload.
// tax_number is not a Shopify field; stores that collect it at checkout put it here.
type Address struct {
	FirstName   FlexString `json:"first_name"`
	LastName    FlexString `json:"last_name"`
	Phone       FlexString `json:"phone"`
	CountryCode FlexString `json:"country_code"`
	Province    FlexString `json:"province"`
	City        FlexString `json:"city"`
	Address1    FlexString `json:"address1"`
	Address2    FlexString `json:"address2"`
	Zip         FlexString `json:"zip"`
	TaxNumber   FlexString `json:"tax_number"`
}

type LineItem struct {
	ID         FlexString      `json:"id"`
	Title      string          `json:"title"`
	Quantity   FlexInt         `json:"quantity"`
	Properties json.RawMessage `json:"properties"`
}

// InboundOrder is the subset of the Shopify order payload the bridge reads.
type InboundOrder struct {
	ID              FlexString `json:"id"`
	Name            string     `json:"name"`
	Email           FlexString `json:"email"`
	Phone           FlexString `json:"phone"`
	CreatedAt       string     `json:"created_at"`
	ProcessedAt     string     `json:"processed_at"`
	ShippingAddress *Address   `json:"shipping_address"`
	BillingAddress  *Address   `json:"billing_address"`
	LineItems       []LineItem `json:"line_items"`
}

// CreatedAtUnix returns the order creation time in epoch seconds, falling back to
// processed_at and then to now.
func (o InboundOrder) CreatedAtUnix(now time.Time) int64 {
	for _, v := range []string{o.CreatedAt, o.ProcessedAt} {
		if v == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.Unix()
		}
	}
	return now.Unix()
}

// CustomizationItem is one Wooacry SKU line: a customization reference and how many to make.
type CustomizationItem struct {
	CustomizeNo string `json:"customize_no"`
	Count       int    `json:"count"`
}

// NormalizedAddress is the exact ten-field address Wooacry requires.
type NormalizedAddress struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Phone       string `json:"phone"`
	CountryCode string `json:"country_code"`
	Province    string `json:"province"`
	City        string `json:"city"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	PostCode    string `json:"post_code"`
	TaxNumber   string `json:"tax_number"`
}

// AsAddress converts back into the loose form so it can be normalized again.
func (a NormalizedAddress) AsAddress() Address {
	return Address{
		FirstName:   FlexString(a.FirstName),
		LastName:    FlexString(a.LastName),
		Phone:       FlexString(a.Phone),
		CountryCode: FlexString(a.CountryCode),
		Province:    FlexString(a.Province),
		City:        FlexString(a.City),
		Address1:    FlexString(a.Address1),
		Address2:    FlexString(a.Address2),
		Zip:         FlexString(a.PostCode),
		TaxNumber:   FlexString(a.TaxNumber),
	}
}

type PartnerOrderStatus string

const (
	PartnerOrderStatusCreated        PartnerOrderStatus = "created"
	PartnerOrderStatusFailedPreorder PartnerOrderStatus = "failed:preorder"
	PartnerOrderStatusFailedCreate   PartnerOrderStatus = "failed:create"
)

// PartnerOrderRecord is the ledger annotation attached to a Shopify order.
// An empty OrderSN means no manufacturing order is known for the order.
type PartnerOrderRecord struct {
	OrderSN        string             `json:"order_sn"`
	Status         PartnerOrderStatus `json:"status"`
	ThirdPartyUser string             `json:"third_party_user"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func (r *PartnerOrderRecord) Processed() bool {
	return r != nil && r.OrderSN != ""
}
