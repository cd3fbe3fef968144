package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
)

const insertBatchSize = 100

// VisitRepository stores visits in clinical.visits. It also serves the
// patient-level reads, since patients only exist through their visits.
type VisitRepository struct {
	db *gorm.DB
}

func NewVisitRepository(db *gorm.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

func (r *VisitRepository) Create(ctx context.Context, v *visit.Visit) error {
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		return fmt.Errorf("inserting visit: %w", err)
	}
	return nil
}

func (r *VisitRepository) CreateBatch(ctx context.Context, vs []visit.Visit) error {
	if len(vs) == 0 {
		return visit.ErrEmptyImportBatch
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(vs, insertBatchSize).Error; err != nil {
			return fmt.Errorf("inserting %d visits: %w", len(vs), err)
		}
		return nil
	})
}

func (r *VisitRepository) GetByID(ctx context.Context, id uuid.UUID) (*visit.Visit, error) {
	var v visit.Visit
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, visit.ErrVisitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading visit %s: %w", id, err)
	}
	return &v, nil
}

// Update writes every column, so cleared optional fields become NULL.
func (r *VisitRepository) Update(ctx context.Context, v *visit.Visit) error {
	res := r.db.WithContext(ctx).
		Model(&visit.Visit{}).
		Where("id = ?", v.ID).
		Select("*").
		Omit("id", "created_at", "created_by").
		Updates(v)
	if res.Error != nil {
		return fmt.Errorf("updating visit %s: %w", v.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return visit.ErrVisitNotFound
	}
	return nil
}

func (r *VisitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&visit.Visit{})
	if res.Error != nil {
		return fmt.Errorf("deleting visit %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return visit.ErrVisitNotFound
	}
	return nil
}

func (r *VisitRepository) List(ctx context.Context, q *visit.ListVisitsQuery) ([]visit.Visit, error) {
	tx := r.db.WithContext(ctx).Model(&visit.Visit{})
	if q != nil && q.PatientID != "" {
		tx = tx.Where("patient_id = ?", q.PatientID)
	}

	var vs []visit.Visit
	if err := tx.Order("created_at ASC, id ASC").Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("listing visits: %w", err)
	}
	return vs, nil
}

func (r *VisitRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&visit.Visit{}).
		Where("patient_id IS NOT NULL AND patient_id <> ''").
		Distinct().
		Order("patient_id").
		Pluck("patient_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("listing patient IDs: %w", err)
	}
	return ids, nil
}

func (r *VisitRepository) ListVisits(ctx context.Context, patientID string) ([]visit.Visit, error) {
	return r.List(ctx, &visit.ListVisitsQuery{PatientID: patientID})
}
