package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/growth"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/export"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/pkg/tracer"
)

type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

func (f ExportFormat) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

type ReportService struct {
	repo      visit.Repository
	auditSvc  *AuditService
	metrics   *metrics.Collector
	tracer    trace.Tracer
	sheetName string
	log       *zap.Logger
}

func NewReportService(repo visit.Repository, auditSvc *AuditService, m *metrics.Collector, sheetName string, log *zap.Logger) *ReportService {
	return &ReportService{
		repo:      repo,
		auditSvc:  auditSvc,
		metrics:   m,
		tracer:    tracer.Tracer("service.report"),
		sheetName: sheetName,
		log:       log,
	}
}

func (s *ReportService) Summary(ctx context.Context, q *visit.ListVisitsQuery) (*growth.Summary, error) {
	ctx, span := s.tracer.Start(ctx, "ReportService.Summary")
	defer span.End()

	rows, err := s.rows(ctx, q)
	if err != nil {
		return nil, err
	}
	summary := growth.Summarize(rows)
	span.SetAttributes(
		attribute.Int("summary.visits", summary.TotalVisits),
		attribute.Int("summary.patients", summary.TotalPatients),
	)
	return &summary, nil
}

// Export writes every visit with its derived fields to w. When actor is
// nil (command-line use) no audit entry is written.
func (s *ReportService) Export(ctx context.Context, w io.Writer, format ExportFormat, q *visit.ListVisitsQuery, actor *Actor) error {
	ctx, span := s.tracer.Start(ctx, "ReportService.Export", trace.WithAttributes(attribute.String("export.format", string(format))))
	defer span.End()

	if format != FormatCSV && format != FormatXLSX {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	rows, err := s.rows(ctx, q)
	if err != nil {
		return err
	}

	switch format {
	case FormatXLSX:
		err = export.WriteXLSX(w, rows, s.sheetName)
	default:
		err = export.WriteCSV(w, rows)
	}
	if err != nil {
		s.log.Error("export failed", zap.String("format", string(format)), zap.Error(err))
		return fmt.Errorf("writing %s export: %w", format, err)
	}

	s.metrics.ExportsTotal.WithLabelValues(string(format)).Inc()
	if actor != nil {
		s.auditSvc.LogAsync(ctx, actor.entry(domain.ActionExport, resourceVisit, string(format)))
	}
	s.log.Info("visits exported", zap.String("format", string(format)), zap.Int("rows", len(rows)))
	return nil
}

func (s *ReportService) rows(ctx context.Context, q *visit.ListVisitsQuery) ([]growth.Row, error) {
	if q == nil {
		q = &visit.ListVisitsQuery{}
	}
	stored, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing visits: %w", err)
	}
	return growth.DeriveAll(visit.CloneAll(stored)), nil
}
