package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateBatch inserts the entries in one statement. Empty change sets are
// stored as an empty JSON object so the jsonb column stays queryable.
func (r *AuditRepository) CreateBatch(ctx context.Context, entries []*domain.AuditLog) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if e.Changes == "" {
			e.Changes = "{}"
		}
	}
	if err := r.db.WithContext(ctx).Create(&entries).Error; err != nil {
		return fmt.Errorf("inserting %d audit logs: %w", len(entries), err)
	}
	return nil
}
