package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/wooacry-bridge/internal/domain"
)

func TestMemoryLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("absent order", func(t *testing.T) {
		l := NewMemoryLedger()
		rec, err := l.Lookup(ctx, "5001")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("failure annotation is not processed and can be replaced", func(t *testing.T) {
		l := NewMemoryLedger()

		_, err := l.Record(ctx, "5001", domain.PartnerOrderRecord{Status: domain.PartnerOrderStatusFailedPreorder})
		require.NoError(t, err)

		rec, err := l.Lookup(ctx, "5001")
		require.NoError(t, err)
		assert.False(t, rec.Processed())

		got, err := l.Record(ctx, "5001", domain.PartnerOrderRecord{OrderSN: "WA1", Status: domain.PartnerOrderStatusCreated})
		require.NoError(t, err)
		assert.Equal(t, "WA1", got.OrderSN)
	})

	t.Run("created record is never replaced", func(t *testing.T) {
		l := NewMemoryLedger()

		_, err := l.Record(ctx, "5001", domain.PartnerOrderRecord{OrderSN: "WA1", Status: domain.PartnerOrderStatusCreated})
		require.NoError(t, err)

		got, err := l.Record(ctx, "5001", domain.PartnerOrderRecord{OrderSN: "WA2", Status: domain.PartnerOrderStatusCreated})
		require.NoError(t, err)
		assert.Equal(t, "WA1", got.OrderSN)

		got, err = l.Record(ctx, "5001", domain.PartnerOrderRecord{Status: domain.PartnerOrderStatusFailedCreate})
		require.NoError(t, err)
		assert.Equal(t, "WA1", got.OrderSN)
		assert.Equal(t, domain.PartnerOrderStatusCreated, got.Status)
	})

	t.Run("concurrent records agree on one winner", func(t *testing.T) {
		l := NewMemoryLedger()

		var wg sync.WaitGroup
		results := make([]string, 20)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				got, err := l.Record(ctx, "5001", domain.PartnerOrderRecord{OrderSN: string(rune('A' + i))})
				assert.NoError(t, err)
				results[i] = got.OrderSN
			}(i)
		}
		wg.Wait()

		for _, r := range results {
			assert.Equal(t, results[0], r)
		}
	})
}
