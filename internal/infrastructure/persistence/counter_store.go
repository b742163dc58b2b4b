package persistence

import (
	"context"
	"time"

	"github.com/garage/backoffice/internal/domain/invoicing"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// nextSequenceSQL increments the counter of a series, creating it on first use.
// Concurrent callers serialize on the row; inside a transaction the number is
// released again when the transaction rolls back.
const nextSequenceSQL = `INSERT INTO document_sequences (tenant_id, kind, value, updated_at)
VALUES (?, ?, 1, ?)
ON CONFLICT (tenant_id, kind) DO UPDATE SET value = document_sequences.value + 1, updated_at = excluded.updated_at
RETURNING value`

// GormCounterStore implements invoicing.CounterStore on the document_sequences table
type GormCounterStore struct {
	db *gorm.DB
}

// NewGormCounterStore creates a new GormCounterStore
func NewGormCounterStore(db *gorm.DB) *GormCounterStore {
	return &GormCounterStore{db: db}
}

// NextValue atomically increments and returns the counter of a series
func (s *GormCounterStore) NextValue(ctx context.Context, tenantID uuid.UUID, kind invoicing.DocumentKind) (int64, error) {
	var value int64
	result := s.db.WithContext(ctx).
		Raw(nextSequenceSQL, tenantID, kind, time.Now().UTC()).
		Scan(&value)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return value, nil
}

var _ invoicing.CounterStore = (*GormCounterStore)(nil)
