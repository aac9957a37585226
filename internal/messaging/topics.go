package messaging

const (
	// TopicOrdersCreate carries raw Shopify orders/create payloads keyed by order id.
	TopicOrdersCreate = "shopify.orders.create"
	// TopicOrderSubmitted carries ManufacturingOrderSubmittedEvent.
	TopicOrderSubmitted = "wooacry.order.submitted"

	DefaultGroupID = "wooacry-bridge"

	headerEventType = "event-type"
)
