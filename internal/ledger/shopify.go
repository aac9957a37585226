package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/joao-fontenele/wooacry-bridge/internal/domain"
	"github.com/joao-fontenele/wooacry-bridge/internal/shopify"
)

const (
	keyOrderSN        = "order_sn"
	keyStatus         = "status"
	keyThirdPartyUser = "third_party_user"

	metafieldType = "single_line_text_field"
)

type MetafieldStore interface {
	ListOrderMetafields(ctx context.Context, orderID, namespace string) ([]shopify.Metafield, error)
	CreateOrderMetafield(ctx context.Context, orderID string, mf shopify.Metafield) (*shopify.Metafield, error)
	UpdateOrderMetafield(ctx context.Context, orderID string, metafieldID int64, value string) (*shopify.Metafield, error)
}

// ShopifyLedger stores the record as metafields on the Shopify order itself. The Admin API
// has no compare-and-set, so Record re-reads after writing; pair it with a Locker.
type ShopifyLedger struct {
	store MetafieldStore
}

func NewShopifyLedger(store MetafieldStore) *ShopifyLedger {
	return &ShopifyLedger{store: store}
}

func (l *ShopifyLedger) Lookup(ctx context.Context, orderID string) (*domain.PartnerOrderRecord, error) {
	fields, err := l.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return recordFrom(fields), nil
}

func (l *ShopifyLedger) Record(ctx context.Context, orderID string, rec domain.PartnerOrderRecord) (domain.PartnerOrderRecord, error) {
	fields, err := l.load(ctx, orderID)
	if err != nil {
		return domain.PartnerOrderRecord{}, err
	}

	if current := recordFrom(fields); current.Processed() {
		return *current, nil
	}

	// order_sn first so a concurrent reader sees it as early as possible
	values := []struct{ key, value string }{
		{keyOrderSN, rec.OrderSN},
		{keyStatus, string(rec.Status)},
		{keyThirdPartyUser, rec.ThirdPartyUser},
	}
	for _, v := range values {
		// Shopify rejects blank metafield values
		if v.value == "" {
			continue
		}
		if err := l.put(ctx, orderID, fields[v.key], v.key, v.value); err != nil {
			return domain.PartnerOrderRecord{}, err
		}
	}

	after, err := l.Lookup(ctx, orderID)
	if err != nil {
		return domain.PartnerOrderRecord{}, err
	}
	if after == nil {
		return domain.PartnerOrderRecord{}, fmt.Errorf("record partner order %s: metafields missing after write", orderID)
	}
	return *after, nil
}

func (l *ShopifyLedger) put(ctx context.Context, orderID string, existing *shopify.Metafield, key, value string) error {
	if existing != nil {
		if existing.Value == value {
			return nil
		}
		if _, err := l.store.UpdateOrderMetafield(ctx, orderID, existing.ID, value); err != nil {
			return fmt.Errorf("update metafield %s.%s on order %s: %w", Namespace, key, orderID, err)
		}
		return nil
	}

	_, err := l.store.CreateOrderMetafield(ctx, orderID, shopify.Metafield{
		Namespace: Namespace,
		Key:       key,
		Value:     value,
		Type:      metafieldType,
	})
	if err != nil {
		return fmt.Errorf("create metafield %s.%s on order %s: %w", Namespace, key, orderID, err)
	}
	return nil
}

func (l *ShopifyLedger) load(ctx context.Context, orderID string) (map[string]*shopify.Metafield, error) {
	list, err := l.store.ListOrderMetafields(ctx, orderID, Namespace)
	if err != nil {
		return nil, fmt.Errorf("list metafields on order %s: %w", orderID, err)
	}

	fields := make(map[string]*shopify.Metafield)
	for i := range list {
		if list[i].Namespace != Namespace {
			continue
		}
		fields[list[i].Key] = &list[i]
	}
	return fields, nil
}

func recordFrom(fields map[string]*shopify.Metafield) *domain.PartnerOrderRecord {
	if len(fields) == 0 {
		return nil
	}

	rec := &domain.PartnerOrderRecord{}
	if mf := fields[keyOrderSN]; mf != nil {
		rec.OrderSN = mf.Value
	}
	if mf := fields[keyStatus]; mf != nil {
		rec.Status = domain.PartnerOrderStatus(mf.Value)
	}
	if mf := fields[keyThirdPartyUser]; mf != nil {
		rec.ThirdPartyUser = mf.Value
	}

	for _, mf := range fields {
		if t, err := time.Parse(time.RFC3339, mf.UpdatedAt); err == nil && t.After(rec.UpdatedAt) {
			rec.UpdatedAt = t
		}
	}

	// a record stored before status existed is still a created order
	if rec.OrderSN != "" && rec.Status == "" {
		rec.Status = domain.PartnerOrderStatusCreated
	}
	return rec
}

var _ Ledger = (*ShopifyLedger)(nil)
