package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/wooacry-bridge/internal/domain"
	"github.com/joao-fontenele/wooacry-bridge/internal/shopify"
)

type fakeMetafieldStore struct {
	fields     map[string][]shopify.Metafield
	nextID     int64
	creates    int
	updates    int
	listErr    error
	namespaces []string
}

func newFakeMetafieldStore() *fakeMetafieldStore {
	return &fakeMetafieldStore{fields: make(map[string][]shopify.Metafield), nextID: 100}
}

func (f *fakeMetafieldStore) ListOrderMetafields(_ context.Context, orderID, namespace string) ([]shopify.Metafield, error) {
	f.namespaces = append(f.namespaces, namespace)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]shopify.Metafield(nil), f.fields[orderID]...), nil
}

func (f *fakeMetafieldStore) CreateOrderMetafield(_ context.Context, orderID string, mf shopify.Metafield) (*shopify.Metafield, error) {
	f.creates++
	f.nextID++
	mf.ID = f.nextID
	mf.UpdatedAt = "2026-03-01T12:00:00Z"
	f.fields[orderID] = append(f.fields[orderID], mf)
	return &mf, nil
}

func (f *fakeMetafieldStore) UpdateOrderMetafield(_ context.Context, orderID string, id int64, value string) (*shopify.Metafield, error) {
	f.updates++
	for i := range f.fields[orderID] {
		if f.fields[orderID][i].ID == id {
			f.fields[orderID][i].Value = value
			mf := f.fields[orderID][i]
			return &mf, nil
		}
	}
	return nil, shopify.ErrNotFound
}

func TestShopifyLedger_Lookup(t *testing.T) {
	ctx := context.Background()

	t.Run("ignores other namespaces", func(t *testing.T) {
		store := newFakeMetafieldStore()
		store.fields["5001"] = []shopify.Metafield{{ID: 1, Namespace: "custom", Key: "order_sn", Value: "X"}}

		rec, err := NewShopifyLedger(store).Lookup(ctx, "5001")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("reads the wooacry namespace", func(t *testing.T) {
		store := newFakeMetafieldStore()
		store.fields["5001"] = []shopify.Metafield{
			{ID: 1, Namespace: Namespace, Key: "order_sn", Value: "WA1", UpdatedAt: "2026-03-01T12:00:00Z"},
			{ID: 2, Namespace: Namespace, Key: "third_party_user", Value: "ada@example.com"},
		}

		rec, err := NewShopifyLedger(store).Lookup(ctx, "5001")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "WA1", rec.OrderSN)
		assert.Equal(t, domain.PartnerOrderStatusCreated, rec.Status)
		assert.Equal(t, "ada@example.com", rec.ThirdPartyUser)
		assert.Equal(t, []string{Namespace}, store.namespaces)
		assert.False(t, rec.UpdatedAt.IsZero())
	})

	t.Run("list error", func(t *testing.T) {
		store := newFakeMetafieldStore()
		store.listErr = errors.New("throttled")

		_, err := NewShopifyLedger(store).Lookup(ctx, "5001")
		assert.ErrorContains(t, err, "throttled")
	})
}

func TestShopifyLedger_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("creates metafields", func(t *testing.T) {
		store := newFakeMetafieldStore()
		l := NewShopifyLedger(store)

		got, err := l.Record(ctx, "5001", domain.PartnerOrderRecord{
			OrderSN: "WA1", Status: domain.PartnerOrderStatusCreated, ThirdPartyUser: "guest",
		})
		require.NoError(t, err)
		assert.Equal(t, "WA1", got.OrderSN)
		assert.Equal(t, 3, store.creates)
		assert.Equal(t, "order_sn", store.fields["5001"][0].Key)
	})

	t.Run("failure annotation skips blank order_sn", func(t *testing.T) {
		store := newFakeMetafieldStore()
		l := NewShopifyLedger(store)

		got, err := l.Record(ctx, "5001", domain.PartnerOrderRecord{Status: domain.PartnerOrderStatusFailedPreorder, ThirdPartyUser: "guest"})
		require.NoError(t, err)
		assert.False(t, got.Processed())
		assert.Equal(t, domain.PartnerOrderStatusFailedPreorder, got.Status)
		assert.Equal(t, 2, store.creates)
	})

	t.Run("updates a failure annotation in place", func(t *testing.T) {
		store := newFakeMetafieldStore()
		l := NewShopifyLedger(store)

		_, err := l.Record(ctx, "5001", domain.PartnerOrderRecord{Status: domain.PartnerOrderStatusFailedCreate, ThirdPartyUser: "guest"})
		require.NoError(t, err)

		got, err := l.Record(ctx, "5001", domain.PartnerOrderRecord{OrderSN: "WA1", Status: domain.PartnerOrderStatusCreated, ThirdPartyUser: "guest"})
		require.NoError(t, err)
		assert.Equal(t, "WA1", got.OrderSN)
		assert.Equal(t, domain.PartnerOrderStatusCreated, got.Status)
		assert.Equal(t, 1, store.updates, "status changes, third_party_user is unchanged")
		assert.Equal(t, 3, store.creates)
	})

	t.Run("never overwrites a created order", func(t *testing.T) {
		store := newFakeMetafieldStore()
		store.fields["5001"] = []shopify.Metafield{{ID: 1, Namespace: Namespace, Key: "order_sn", Value: "WA0"}}
		l := NewShopifyLedger(store)

		got, err := l.Record(ctx, "5001", domain.PartnerOrderRecord{OrderSN: "WA1", Status: domain.PartnerOrderStatusCreated})
		require.NoError(t, err)
		assert.Equal(t, "WA0", got.OrderSN)
		assert.Zero(t, store.creates)
		assert.Zero(t, store.updates)
	})
}
