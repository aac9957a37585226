// Package ledger records which Shopify orders already have a Wooacry manufacturing order.
package ledger

import (
	"context"

	"github.com/joao-fontenele/wooacry-bridge/internal/domain"
)

const Namespace = "wooacry"

// Ledger is the idempotency boundary of the pipeline.
//
// Record is an upsert keyed by order id and Namespace that never replaces a non-empty
// order_sn. It returns the record held after the write, so a caller whose order_sn differs
// from the returned one lost a race.
type Ledger interface {
	Lookup(ctx context.Context, orderID string) (*domain.PartnerOrderRecord, error)
	Record(ctx context.Context, orderID string, rec domain.PartnerOrderRecord) (domain.PartnerOrderRecord, error)
}
