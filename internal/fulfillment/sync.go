// Package fulfillment mirrors Wooacry shipping notices onto Shopify fulfillments.
package fulfillment

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/joao-fontenele/wooacry-bridge/internal/apperr"
	"github.com/joao-fontenele/wooacry-bridge/internal/domain"
	"github.com/joao-fontenele/wooacry-bridge/internal/shopify"
)

const (
	defaultCarrier = "Carrier"
	trackingURL    = "https://t.17track.net/en#nums="
)

var orderIDPattern = regexp.MustCompile(`\d{6,}`)

type ShopifyAPI interface {
	GetOrder(ctx context.Context, orderID string) (*shopify.Order, error)
	ListFulfillmentOrders(ctx context.Context, orderID string) ([]shopify.FulfillmentOrder, error)
	CreateFulfillment(ctx context.Context, req shopify.CreateFulfillmentRequest) (*shopify.Fulfillment, error)
	UpdateFulfillmentTracking(ctx context.Context, fulfillmentID int64, tracking shopify.TrackingInfo) (*shopify.Fulfillment, error)
}

type Action string

const (
	ActionCreated     Action = "created"
	ActionUpdated     Action = "updated"
	ActionNothingOpen Action = "nothing_open"
)

type Syncer struct {
	shop   ShopifyAPI
	logger *slog.Logger
}

func NewSyncer(shop ShopifyAPI, logger *slog.Logger) *Syncer {
	return &Syncer{shop: shop, logger: logger}
}

// Sync creates a fulfillment for the open fulfillment orders of the Shopify order named in
// the notice, or updates the tracking of the fulfillment that already exists.
func (s *Syncer) Sync(ctx context.Context, notice domain.ShipmentNotice) (Action, error) {
	orderID, ok := ShopifyOrderID(notice.ThirdPartyOrderSN.String())
	if !ok {
		return "", apperr.Validation("third_party_order_sn", "does not contain a Shopify order id")
	}

	tracking := Tracking(notice.Express)
	logger := s.logger.With("order_id", orderID)

	order, err := s.shop.GetOrder(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("load order %s: %w", orderID, err)
	}

	fos, err := s.shop.ListFulfillmentOrders(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("load fulfillment orders for %s: %w", orderID, err)
	}

	open := openFulfillmentOrders(fos)
	if len(open) == 0 {
		logger.InfoContext(ctx, "no open fulfillment orders, nothing to do")
		return ActionNothingOpen, nil
	}

	if existing := activeFulfillment(order.Fulfillments); existing != nil {
		if _, err := s.shop.UpdateFulfillmentTracking(ctx, existing.ID, tracking); err != nil {
			return "", fmt.Errorf("update tracking on fulfillment %d: %w", existing.ID, err)
		}
		logger.InfoContext(ctx, "fulfillment tracking updated", "fulfillment_id", existing.ID)
		return ActionUpdated, nil
	}

	req := shopify.CreateFulfillmentRequest{
		NotifyCustomer: true,
		TrackingInfo:   tracking,
		LocationID:     open[0].LocationID(),
	}
	for _, fo := range open {
		req.LineItemsByFulfillmentOrder = append(req.LineItemsByFulfillmentOrder, shopify.LineItemsByFulfillmentOrder{
			FulfillmentOrderID:        fo.ID,
			FulfillmentOrderLineItems: fo.LineItems,
		})
	}

	created, err := s.shop.CreateFulfillment(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create fulfillment for %s: %w", orderID, err)
	}

	logger.InfoContext(ctx, "fulfillment created", "fulfillment_id", created.ID, "fulfillment_orders", len(open))
	return ActionCreated, nil
}

// ShopifyOrderID extracts the first run of at least six digits.
func ShopifyOrderID(thirdPartyOrderSN string) (string, bool) {
	id := orderIDPattern.FindString(thirdPartyOrderSN)
	return id, id != ""
}

// Tracking builds Shopify tracking info. Empty parts are sent as null.
func Tracking(express domain.Express) shopify.TrackingInfo {
	number := strings.TrimSpace(express.ExpressNumber)

	company := strings.TrimSpace(express.ExpressCompanyName)
	if company == "" {
		company = strings.TrimSpace(express.ExpressCompany)
	}
	if company == "" {
		company = defaultCarrier
	}

	info := shopify.TrackingInfo{Company: &company}
	if number != "" {
		link := trackingURL + url.PathEscape(number)
		info.Number = &number
		info.URL = &link
	}
	return info
}

func openFulfillmentOrders(fos []shopify.FulfillmentOrder) []shopify.FulfillmentOrder {
	var open []shopify.FulfillmentOrder
	for _, fo := range fos {
		switch strings.ToLower(fo.Status) {
		case "closed", "cancelled":
			continue
		}
		open = append(open, fo)
	}
	return open
}

func activeFulfillment(fs []shopify.Fulfillment) *shopify.Fulfillment {
	for i := range fs {
		if fs[i].Status != "cancelled" {
			return &fs[i]
		}
	}
	return nil
}
