package shopify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// metafieldPageSize is the REST maximum; a single namespace never comes close to it.
const metafieldPageSize = 250

// ListOrderMetafields returns the order's metafields in namespace.
func (c *Client) ListOrderMetafields(ctx context.Context, orderID, namespace string) ([]Metafield, error) {
	query := url.Values{}
	query.Set("namespace", namespace)
	query.Set("limit", strconv.Itoa(metafieldPageSize))

	var out struct {
		Metafields []Metafield `json:"metafields"`
	}
	path := fmt.Sprintf("/orders/%s/metafields.json?%s", orderID, query.Encode())
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Metafields, nil
}

func (c *Client) CreateOrderMetafield(ctx context.Context, orderID string, mf Metafield) (*Metafield, error) {
	in := map[string]Metafield{"metafield": mf}
	var out struct {
		Metafield Metafield `json:"metafield"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%s/metafields.json", orderID), in, &out); err != nil {
		return nil, err
	}
	return &out.Metafield, nil
}

func (c *Client) UpdateOrderMetafield(ctx context.Context, orderID string, metafieldID int64, value string) (*Metafield, error) {
	in := map[string]any{"metafield": map[string]any{"id": metafieldID, "value": value}}
	var out struct {
		Metafield Metafield `json:"metafield"`
	}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/orders/%s/metafields/%d.json", orderID, metafieldID), in, &out); err != nil {
		return nil, err
	}
	return &out.Metafield, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var out struct {
		Order *Order `json:"order"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%s.json", orderID), nil, &out); err != nil {
		return nil, err
	}
	if out.Order == nil {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	return out.Order, nil
}

func (c *Client) ListFulfillmentOrders(ctx context.Context, orderID string) ([]FulfillmentOrder, error) {
	var out struct {
		FulfillmentOrders []FulfillmentOrder `json:"fulfillment_orders"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%s/fulfillment_orders.json", orderID), nil, &out); err != nil {
		return nil, err
	}
	return out.FulfillmentOrders, nil
}

func (c *Client) CreateFulfillment(ctx context.Context, req CreateFulfillmentRequest) (*Fulfillment, error) {
	in := map[string]CreateFulfillmentRequest{"fulfillment": req}
	var out struct {
		Fulfillment Fulfillment `json:"fulfillment"`
	}
	if err := c.do(ctx, http.MethodPost, "/fulfillments.json", in, &out); err != nil {
		return nil, err
	}
	return &out.Fulfillment, nil
}

func (c *Client) UpdateFulfillmentTracking(ctx context.Context, fulfillmentID int64, tracking TrackingInfo) (*Fulfillment, error) {
	in := map[string]any{
		"fulfillment": map[string]any{
			"notify_customer": true,
			"tracking_info":   tracking,
		},
	}
	var out struct {
		Fulfillment Fulfillment `json:"fulfillment"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/fulfillments/%d/update_tracking.json", fulfillmentID), in, &out); err != nil {
		return nil, err
	}
	return &out.Fulfillment, nil
}
