package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/joao-fontenele/wooacry-bridge/internal/domain"
)

// PostgresLedger keeps records in bridge.partner_orders. The conditional upsert makes
// Record safe against concurrent deliveries across replicas.
type PostgresLedger struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db, now: time.Now}
}

func (l *PostgresLedger) Lookup(ctx context.Context, orderID string) (*domain.PartnerOrderRecord, error) {
	rec := &domain.PartnerOrderRecord{}

	err := l.db.QueryRowContext(ctx, `
		SELECT order_sn, status, third_party_user, updated_at
		FROM bridge.partner_orders
		WHERE order_id = $1 AND namespace = $2
	`, orderID, Namespace).Scan(&rec.OrderSN, &rec.Status, &rec.ThirdPartyUser, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup partner order %s: %w", orderID, err)
	}

	return rec, nil
}

func (l *PostgresLedger) Record(ctx context.Context, orderID string, rec domain.PartnerOrderRecord) (domain.PartnerOrderRecord, error) {
	rec.UpdatedAt = l.now().UTC()

	var out domain.PartnerOrderRecord
	err := l.db.QueryRowContext(ctx, `
		INSERT INTO bridge.partner_orders (order_id, namespace, order_sn, status, third_party_user, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (order_id, namespace) DO UPDATE
		SET order_sn = EXCLUDED.order_sn,
			status = EXCLUDED.status,
			third_party_user = EXCLUDED.third_party_user,
			updated_at = EXCLUDED.updated_at
		WHERE partner_orders.order_sn = ''
		RETURNING order_sn, status, third_party_user, updated_at
	`, orderID, Namespace, rec.OrderSN, rec.Status, rec.ThirdPartyUser, rec.UpdatedAt).
		Scan(&out.OrderSN, &out.Status, &out.ThirdPartyUser, &out.UpdatedAt)
	if err == nil {
		return out, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return domain.PartnerOrderRecord{}, fmt.Errorf("record partner order %s: %w", orderID, err)
	}

	// the guard refused the update: a created record already exists
	existing, err := l.Lookup(ctx, orderID)
	if err != nil {
		return domain.PartnerOrderRecord{}, err
	}
	if existing == nil {
		return domain.PartnerOrderRecord{}, fmt.Errorf("record partner order %s: row vanished after conflict", orderID)
	}
	return *existing, nil
}

var _ Ledger = (*PostgresLedger)(nil)
