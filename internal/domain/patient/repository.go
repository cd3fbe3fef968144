package patient

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
)

// Repository is the patient-level read side of the visit store. There is
// no patient table; a patient exists through its visits.
type Repository interface {
	// ListIDs returns the distinct non-empty patient IDs, sorted.
	ListIDs(ctx context.Context) ([]string, error)

	// ListVisits returns every visit recorded for the patient.
	ListVisits(ctx context.Context, patientID string) ([]visit.Visit, error)
}
