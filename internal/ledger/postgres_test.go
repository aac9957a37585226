package ledger

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/wooacry-bridge/internal/domain"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockLedger(t *testing.T) (*PostgresLedger, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	l := NewPostgresLedger(db)
	l.now = func() time.Time { return fixedNow }
	return l, mock
}

func TestPostgresLedger_Lookup(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		l, mock := newMockLedger(t)

		mock.ExpectQuery(`SELECT order_sn, status, third_party_user, updated_at\s+FROM bridge.partner_orders`).
			WithArgs("5001", Namespace).
			WillReturnRows(sqlmock.NewRows([]string{"order_sn", "status", "third_party_user", "updated_at"}).
				AddRow("WA1", "created", "ada@example.com", fixedNow))

		rec, err := l.Lookup(ctx, "5001")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "WA1", rec.OrderSN)
		assert.Equal(t, domain.PartnerOrderStatusCreated, rec.Status)
		assert.True(t, rec.Processed())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent", func(t *testing.T) {
		l, mock := newMockLedger(t)

		mock.ExpectQuery(`FROM bridge.partner_orders`).
			WithArgs("5001", Namespace).
			WillReturnError(sql.ErrNoRows)

		rec, err := l.Lookup(ctx, "5001")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("database error", func(t *testing.T) {
		l, mock := newMockLedger(t)

		mock.ExpectQuery(`FROM bridge.partner_orders`).WillReturnError(errors.New("connection reset"))

		_, err := l.Lookup(ctx, "5001")
		assert.ErrorContains(t, err, "connection reset")
	})
}

func TestPostgresLedger_Record(t *testing.T) {
	ctx := context.Background()
	rec := domain.PartnerOrderRecord{OrderSN: "WA1", Status: domain.PartnerOrderStatusCreated, ThirdPartyUser: "guest"}

	t.Run("insert wins", func(t *testing.T) {
		l, mock := newMockLedger(t)

		mock.ExpectQuery(`INSERT INTO bridge.partner_orders .* ON CONFLICT \(order_id, namespace\) DO UPDATE .* WHERE partner_orders.order_sn = ''`).
			WithArgs("5001", Namespace, "WA1", domain.PartnerOrderStatusCreated, "guest", fixedNow).
			WillReturnRows(sqlmock.NewRows([]string{"order_sn", "status", "third_party_user", "updated_at"}).
				AddRow("WA1", "created", "guest", fixedNow))

		got, err := l.Record(ctx, "5001", rec)
		require.NoError(t, err)
		assert.Equal(t, "WA1", got.OrderSN)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("guard refuses and the existing record is returned", func(t *testing.T) {
		l, mock := newMockLedger(t)

		mock.ExpectQuery(`INSERT INTO bridge.partner_orders`).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`FROM bridge.partner_orders`).
			WithArgs("5001", Namespace).
			WillReturnRows(sqlmock.NewRows([]string{"order_sn", "status", "third_party_user", "updated_at"}).
				AddRow("WA0", "created", "guest", fixedNow.Add(-time.Minute)))

		got, err := l.Record(ctx, "5001", rec)
		require.NoError(t, err)
		assert.Equal(t, "WA0", got.OrderSN)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("write error", func(t *testing.T) {
		l, mock := newMockLedger(t)

		mock.ExpectQuery(`INSERT INTO bridge.partner_orders`).WillReturnError(errors.New("deadlock detected"))

		_, err := l.Record(ctx, "5001", rec)
		assert.ErrorContains(t, err, "deadlock detected")
	})
}
