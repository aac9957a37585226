package fulfillment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/wooacry-bridge/internal/apperr"
	"github.com/joao-fontenele/wooacry-bridge/internal/domain"
	"github.com/joao-fontenele/wooacry-bridge/internal/shopify"
)

type fakeShop struct {
	order   *shopify.Order
	fos     []shopify.FulfillmentOrder
	getErr  error
	created []shopify.CreateFulfillmentRequest
	updated []int64
	tracked []shopify.TrackingInfo
}

func (f *fakeShop) GetOrder(_ context.Context, orderID string) (*shopify.Order, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.order, nil
}

func (f *fakeShop) ListFulfillmentOrders(context.Context, string) ([]shopify.FulfillmentOrder, error) {
	return f.fos, nil
}

func (f *fakeShop) CreateFulfillment(_ context.Context, req shopify.CreateFulfillmentRequest) (*shopify.Fulfillment, error) {
	f.created = append(f.created, req)
	return &shopify.Fulfillment{ID: 555}, nil
}

func (f *fakeShop) UpdateFulfillmentTracking(_ context.Context, id int64, tracking shopify.TrackingInfo) (*shopify.Fulfillment, error) {
	f.updated = append(f.updated, id)
	f.tracked = append(f.tracked, tracking)
	return &shopify.Fulfillment{ID: id}, nil
}

func newSyncer(shop ShopifyAPI) *Syncer {
	return NewSyncer(shop, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func notice(sn string) domain.ShipmentNotice {
	return domain.ShipmentNotice{
		ThirdPartyOrderSN: domain.FlexString(sn),
		Express:           domain.Express{ExpressNumber: "1Z 999", ExpressCompanyName: "UPS"},
	}
}

func TestShopifyOrderID(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{in: "5678901234", want: "5678901234", wantOK: true},
		{in: "SHOP-5678901234-A", want: "5678901234", wantOK: true},
		{in: "#1001", wantOK: false},
		{in: "", wantOK: false},
		{in: "12345 and 1234567", want: "1234567", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ShopifyOrderID(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTracking(t *testing.T) {
	t.Run("number, company and link", func(t *testing.T) {
		info := Tracking(domain.Express{ExpressNumber: "1Z 999", ExpressCompanyName: "UPS", ExpressCompany: "ups"})
		require.NotNil(t, info.Number)
		assert.Equal(t, "1Z 999", *info.Number)
		assert.Equal(t, "UPS", *info.Company)
		assert.Equal(t, "https://t.17track.net/en#nums=1Z%20999", *info.URL)
	})

	t.Run("falls back to express_company then Carrier", func(t *testing.T) {
		assert.Equal(t, "dhl", *Tracking(domain.Express{ExpressCompany: "dhl"}).Company)
		assert.Equal(t, "Carrier", *Tracking(domain.Express{}).Company)
	})

	t.Run("no number means no link", func(t *testing.T) {
		info := Tracking(domain.Express{})
		assert.Nil(t, info.Number)
		assert.Nil(t, info.URL)
	})
}

func TestSyncer_Sync(t *testing.T) {
	ctx := context.Background()

	t.Run("creates fulfillment across open fulfillment orders", func(t *testing.T) {
		shop := &fakeShop{
			order: &shopify.Order{ID: 5678901234},
			fos: []shopify.FulfillmentOrder{
				{ID: 1, Status: "open", AssignedLocationID: 900, LineItems: []shopify.FulfillmentOrderLineItem{{ID: 11, Quantity: 2}}},
				{ID: 2, Status: "closed"},
				{ID: 3, Status: "in_progress", LineItems: []shopify.FulfillmentOrderLineItem{{ID: 31, Quantity: 1}}},
			},
		}

		action, err := newSyncer(shop).Sync(ctx, notice("5678901234"))
		require.NoError(t, err)
		assert.Equal(t, ActionCreated, action)

		require.Len(t, shop.created, 1)
		req := shop.created[0]
		assert.True(t, req.NotifyCustomer)
		assert.Equal(t, int64(900), req.LocationID)
		require.Len(t, req.LineItemsByFulfillmentOrder, 2)
		assert.Equal(t, int64(1), req.LineItemsByFulfillmentOrder[0].FulfillmentOrderID)
		assert.Equal(t, int64(3), req.LineItemsByFulfillmentOrder[1].FulfillmentOrderID)
	})

	t.Run("updates tracking on the active fulfillment", func(t *testing.T) {
		shop := &fakeShop{
			order: &shopify.Order{Fulfillments: []shopify.Fulfillment{{ID: 70, Status: "cancelled"}, {ID: 71, Status: "success"}}},
			fos:   []shopify.FulfillmentOrder{{ID: 1, Status: "open"}},
		}

		action, err := newSyncer(shop).Sync(ctx, notice("5678901234"))
		require.NoError(t, err)
		assert.Equal(t, ActionUpdated, action)
		assert.Equal(t, []int64{71}, shop.updated)
		assert.Empty(t, shop.created)
	})

	t.Run("nothing open", func(t *testing.T) {
		shop := &fakeShop{
			order: &shopify.Order{},
			fos:   []shopify.FulfillmentOrder{{ID: 1, Status: "CLOSED"}, {ID: 2, Status: "cancelled"}},
		}

		action, err := newSyncer(shop).Sync(ctx, notice("5678901234"))
		require.NoError(t, err)
		assert.Equal(t, ActionNothingOpen, action)
		assert.Empty(t, shop.created)
		assert.Empty(t, shop.updated)
	})

	t.Run("reference without order id", func(t *testing.T) {
		_, err := newSyncer(&fakeShop{}).Sync(ctx, notice("#1001"))
		assert.Equal(t, "validation", apperr.Kind(err))
	})

	t.Run("shopify errors surface", func(t *testing.T) {
		shop := &fakeShop{getErr: shopify.ErrNotFound}

		_, err := newSyncer(shop).Sync(ctx, notice("5678901234"))
		assert.True(t, errors.Is(err, shopify.ErrNotFound))
	})
}
