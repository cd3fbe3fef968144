package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/events"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/extraction"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/pkg/tracer"
)

var ErrExtractionDisabled = errors.New("photo extraction is not enabled")

// Extractor reads follow-up sheets from photos.
type Extractor interface {
	Extract(ctx context.Context, images []extraction.Image) (*extraction.Candidate, error)
}

// ImportService turns photographed paper sheets into visits in two steps:
// Extract proposes a candidate for review, Commit stores the reviewed one.
type ImportService struct {
	extractor Extractor
	visits    visit.Repository
	patients  patient.Repository
	auditSvc  *AuditService
	notifier  events.Notifier
	metrics   *metrics.Collector
	tracer    trace.Tracer
	log       *zap.Logger
}

// NewImportService accepts a nil extractor when extraction is disabled;
// Commit still works for candidates typed in by hand.
func NewImportService(
	extractor Extractor,
	visits visit.Repository,
	patients patient.Repository,
	auditSvc *AuditService,
	notifier events.Notifier,
	m *metrics.Collector,
	log *zap.Logger,
) *ImportService {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &ImportService{
		extractor: extractor,
		visits:    visits,
		patients:  patients,
		auditSvc:  auditSvc,
		notifier:  notifier,
		metrics:   m,
		tracer:    tracer.Tracer("service.import"),
		log:       log,
	}
}

type ExtractResult struct {
	Candidate          *extraction.Candidate `json:"candidate"`
	SuggestedPatientID string                `json:"suggested_patient_id"`
	Warnings           []string              `json:"warnings"`
}

func (s *ImportService) Extract(ctx context.Context, images []extraction.Image) (*ExtractResult, error) {
	ctx, span := s.tracer.Start(ctx, "ImportService.Extract", trace.WithAttributes(attribute.Int("images", len(images))))
	defer span.End()

	if s.extractor == nil {
		return nil, ErrExtractionDisabled
	}

	candidate, err := s.extractor.Extract(ctx, images)
	if err != nil {
		outcome := "error"
		if errors.Is(err, extraction.ErrQuotaExceeded) {
			outcome = "quota"
		}
		s.metrics.ExtractionRequests.WithLabelValues(outcome).Inc()
		tracer.Fail(span, err, "extraction failed")
		s.log.Warn("sheet extraction failed", zap.Int("images", len(images)), zap.Error(err))
		return nil, err
	}
	s.metrics.ExtractionRequests.WithLabelValues("ok").Inc()

	result := &ExtractResult{Candidate: candidate, Warnings: []string{}}
	if name := strings.TrimSpace(candidate.Patient.FullName); name != "" {
		existing, err := s.patients.ListIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing patient IDs: %w", err)
		}
		result.SuggestedPatientID = patient.GenerateID(name, existing)
	}
	if _, warnings := candidate.ToCommands(result.SuggestedPatientID); len(warnings) > 0 {
		result.Warnings = warnings
	}

	s.log.Info("sheet extracted",
		zap.Int("images", len(images)),
		zap.Int("visits", len(candidate.Visits)),
		zap.String("confidence", candidate.Confidence),
	)
	return result, nil
}

type CommitRequest struct {
	// PatientID may be left empty to generate one from the candidate's name.
	PatientID string               `json:"patient_id"`
	Candidate extraction.Candidate `json:"candidate"`
}

type CommitResult struct {
	PatientID string        `json:"patient_id"`
	Visits    []visit.Visit `json:"visits"`
	Warnings  []string      `json:"warnings"`
}

func (s *ImportService) Commit(ctx context.Context, req *CommitRequest, actor Actor) (*CommitResult, error) {
	ctx, span := s.tracer.Start(ctx, "ImportService.Commit")
	defer span.End()

	patientID := strings.TrimSpace(req.PatientID)
	if patientID == "" {
		name := strings.TrimSpace(req.Candidate.Patient.FullName)
		if name == "" {
			return nil, patient.ErrPatientIDMissing
		}
		existing, err := s.patients.ListIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing patient IDs: %w", err)
		}
		patientID = patient.GenerateID(name, existing)
	}
	span.SetAttributes(attribute.String("patient.id", patientID))

	cmds, warnings := req.Candidate.ToCommands(patientID)
	if len(cmds) == 0 {
		return nil, visit.ErrEmptyImportBatch
	}

	batch := make([]visit.Visit, len(cmds))
	var errs []string
	for i := range cmds {
		v := cmds[i].NewVisit()
		if actor.UserID != uuid.Nil {
			v.CreatedBy = &actor.UserID
		}
		for _, e := range validateVisit(v) {
			errs = append(errs, fmt.Sprintf("visit %d: %s", i+1, e))
		}
		batch[i] = *v
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	if err := s.visits.CreateBatch(ctx, batch); err != nil {
		tracer.Fail(span, err, "storing import")
		s.log.Error("failed to store imported visits", zap.String("patient_id", patientID), zap.Error(err))
		return nil, fmt.Errorf("storing imported visits: %w", err)
	}

	s.metrics.VisitWritesTotal.WithLabelValues(string(domain.ActionImport)).Add(float64(len(batch)))
	for i := range batch {
		publish(ctx, s.notifier, s.metrics, s.log, events.Change{
			Type:      events.ChangeInsert,
			ID:        batch[i].ID,
			PatientID: patientID,
			At:        time.Now().UTC(),
		})
	}

	entry := actor.entry(domain.ActionImport, "patient", patientID)
	entry.Changes = fmt.Sprintf(`{"visits":%d}`, len(batch))
	s.auditSvc.LogAsync(ctx, entry)

	s.log.Info("sheet imported",
		zap.String("patient_id", patientID),
		zap.Int("visits", len(batch)),
		zap.Int("warnings", len(warnings)),
	)

	if warnings == nil {
		warnings = []string{}
	}
	return &CommitResult{PatientID: patientID, Visits: batch, Warnings: warnings}, nil
}
