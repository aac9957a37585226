package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/joao-fontenele/wooacry-bridge/internal/domain"
)

type MemoryLedger struct {
	mu      sync.Mutex
	records map[string]domain.PartnerOrderRecord
	now     func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		records: make(map[string]domain.PartnerOrderRecord),
		now:     time.Now,
	}
}

func (l *MemoryLedger) Lookup(_ context.Context, orderID string) (*domain.PartnerOrderRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[orderID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (l *MemoryLedger) Record(_ context.Context, orderID string, rec domain.PartnerOrderRecord) (domain.PartnerOrderRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if current, ok := l.records[orderID]; ok && current.Processed() {
		return current, nil
	}

	rec.UpdatedAt = l.now().UTC()
	l.records[orderID] = rec
	return rec, nil
}

var _ Ledger = (*MemoryLedger)(nil)
