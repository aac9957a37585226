package shopify

type Metafield struct {
	ID        int64  `json:"id,omitempty"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

type Order struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Fulfillments []Fulfillment `json:"fulfillments"`
}

type Fulfillment struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type FulfillmentOrder struct {
	ID                 int64                      `json:"id"`
	Status             string                     `json:"status"`
	AssignedLocationID int64                      `json:"assigned_location_id"`
	AssignedLocation   *AssignedLocation          `json:"assigned_location,omitempty"`
	LineItems          []FulfillmentOrderLineItem `json:"line_items"`
}

type AssignedLocation struct {
	LocationID int64 `json:"location_id"`
}

type FulfillmentOrderLineItem struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

// LocationID returns the assigned location, from whichever field the API populated.
func (fo FulfillmentOrder) LocationID() int64 {
	if fo.AssignedLocationID != 0 {
		return fo.AssignedLocationID
	}
	if fo.AssignedLocation != nil {
		return fo.AssignedLocation.LocationID
	}
	return 0
}

type TrackingInfo struct {
	Number  *string `json:"number"`
	Company *string `json:"company"`
	URL     *string `json:"url"`
}

type LineItemsByFulfillmentOrder struct {
	FulfillmentOrderID        int64                      `json:"fulfillment_order_id"`
	FulfillmentOrderLineItems []FulfillmentOrderLineItem `json:"fulfillment_order_line_items"`
}

type CreateFulfillmentRequest struct {
	NotifyCustomer              bool                          `json:"notify_customer"`
	TrackingInfo                TrackingInfo                  `json:"tracking_info"`
	LineItemsByFulfillmentOrder []LineItemsByFulfillmentOrder `json:"line_items_by_fulfillment_order"`
	LocationID                  int64                         `json:"location_id,omitempty"`
}
