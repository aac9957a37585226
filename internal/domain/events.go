package domain

import "time"

// ManufacturingOrderSubmittedEvent is published once a Wooacry order is recorded for a Shopify order.
type ManufacturingOrderSubmittedEvent struct {
	EventID          string              `json:"event_id"`
	ShopifyOrderID   string              `json:"shopify_order_id"`
	WooacryOrderSN   string              `json:"wooacry_order_sn"`
	ShippingMethodID string              `json:"shipping_method_id"`
	Items            []CustomizationItem `json:"items"`
	Timestamp        time.Time           `json:"timestamp"`
}

func (ManufacturingOrderSubmittedEvent) EventType() string {
	return "wooacry.order.submitted"
}

type Express struct {
	ExpressNumber      string     `json:"express_number"`
	ExpressCompanyName string     `json:"express_company_name"`
	ExpressCompany     string     `json:"express_company"`
	ShippingStatus     FlexString `json:"shipping_status"`
}

// ShipmentNotice is the body of Wooacry's shipping webhook.
type ShipmentNotice struct {
	ThirdPartyOrderSN FlexString `json:"third_party_order_sn" validate:"required"`
	Express           Express    `json:"express"`
}
