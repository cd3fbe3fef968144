package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/patient"
)

// PatientService answers patient-level questions. Patients have no table
// of their own; everything is read from their visits.
type PatientService struct {
	repo patient.Repository
	log  *zap.Logger
}

func NewPatientService(repo patient.Repository, log *zap.Logger) *PatientService {
	return &PatientService{repo: repo, log: log}
}

// ListPatientIDs returns the distinct patient IDs on record, for
// autocomplete.
func (s *PatientService) ListPatientIDs(ctx context.Context) ([]string, error) {
	ids, err := s.repo.ListIDs(ctx)
	if err != nil {
		s.log.Error("failed to list patient IDs", zap.Error(err))
		return nil, fmt.Errorf("listing patient IDs: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// GetProfile returns the fixed attributes of the patient's most recent
// named visit.
func (s *PatientService) GetProfile(ctx context.Context, patientID string) (*patient.Profile, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, patient.ErrPatientIDMissing
	}

	visits, err := s.repo.ListVisits(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("loading patient visits: %w", err)
	}

	p, ok := patient.ProfileFrom(patientID, visits)
	if !ok {
		return nil, patient.ErrProfileNotFound
	}
	return &p, nil
}

// GenerateID proposes the next free "SURNAME_NNN" identifier for a name.
func (s *PatientService) GenerateID(ctx context.Context, fullName string) (string, error) {
	if strings.TrimSpace(fullName) == "" {
		return "", patient.ErrNameRequired
	}

	existing, err := s.repo.ListIDs(ctx)
	if err != nil {
		return "", fmt.Errorf("listing patient IDs: %w", err)
	}
	return patient.GenerateID(fullName, existing), nil
}
