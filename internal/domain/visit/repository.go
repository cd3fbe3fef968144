package visit

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new visit and fills in its ID and timestamps.
	Create(ctx context.Context, v *Visit) error

	// CreateBatch persists several visits in one transaction.
	CreateBatch(ctx context.Context, vs []Visit) error

	// GetByID returns ErrVisitNotFound if no such visit exists.
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)

	// Update overwrites every column of an existing visit.
	Update(ctx context.Context, v *Visit) error

	// Delete removes the visit permanently.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns visits in insertion order.
	List(ctx context.Context, q *ListVisitsQuery) ([]Visit, error)
}
