package service

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/growth"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/events"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/pkg/tracer"
)

const resourceVisit = "visit"

type VisitService struct {
	repo     visit.Repository
	patients patient.Repository
	auditSvc *AuditService
	notifier events.Notifier
	metrics  *metrics.Collector
	tracer   trace.Tracer
	log      *zap.Logger
}

func NewVisitService(
	repo visit.Repository,
	patients patient.Repository,
	auditSvc *AuditService,
	notifier events.Notifier,
	m *metrics.Collector,
	log *zap.Logger,
) *VisitService {
	if notifier == nil {
		notifier = events.Nop{}
	}
	return &VisitService{
		repo:     repo,
		patients: patients,
		auditSvc: auditSvc,
		notifier: notifier,
		metrics:  m,
		tracer:   tracer.Tracer("service.visit"),
		log:      log,
	}
}

// CreateVisit stores a new visit. With autofill, the fixed attributes are
// replaced by the patient's profile when one exists.
func (s *VisitService) CreateVisit(ctx context.Context, cmd *visit.CreateVisitCommand, autofill bool, actor Actor) (*growth.Row, error) {
	ctx, span := s.tracer.Start(ctx, "VisitService.CreateVisit")
	defer span.End()

	cmd.PatientID = strings.TrimSpace(cmd.PatientID)
	if err := validateCreate(cmd); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("patient.id", cmd.PatientID))

	v := cmd.NewVisit()
	if actor.UserID != uuid.Nil {
		v.CreatedBy = &actor.UserID
	}

	if autofill {
		history, err := s.patients.ListVisits(ctx, cmd.PatientID)
		if err != nil {
			return nil, s.fail(span, "loading patient history", err)
		}
		if profile, ok := patient.ProfileFrom(cmd.PatientID, history); ok {
			fill := profile.Autofill()
			fill.ApplyTo(v)
		}
	}

	if err := s.repo.Create(ctx, v); err != nil {
		return nil, s.fail(span, "creating visit", err)
	}

	s.afterWrite(ctx, events.ChangeInsert, v, actor, domain.ActionCreate, "")
	s.log.Info("visit created",
		zap.String("visit_id", v.ID.String()),
		zap.String("patient_id", v.PatientID),
		zap.String("created_by", actor.UserID.String()),
	)

	return s.derived(ctx, v)
}

func (s *VisitService) GetVisit(ctx context.Context, id uuid.UUID) (*growth.Row, error) {
	ctx, span := s.tracer.Start(ctx, "VisitService.GetVisit", trace.WithAttributes(attribute.String("visit.id", id.String())))
	defer span.End()

	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.derived(ctx, v)
}

// ListVisits returns the stored visits, in insertion order, each with its
// derived fields.
func (s *VisitService) ListVisits(ctx context.Context, q *visit.ListVisitsQuery) ([]growth.Row, error) {
	ctx, span := s.tracer.Start(ctx, "VisitService.ListVisits")
	defer span.End()

	stored, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, s.fail(span, "listing visits", err)
	}
	return s.deriveSnapshot(span, visit.CloneAll(stored)), nil
}

// UpdateVisit applies a partial update, from a single edited cell to a
// bulk profile fill.
func (s *VisitService) UpdateVisit(ctx context.Context, id uuid.UUID, cmd *visit.UpdateVisitCommand, actor Actor) (*growth.Row, error) {
	ctx, span := s.tracer.Start(ctx, "VisitService.UpdateVisit", trace.WithAttributes(attribute.String("visit.id", id.String())))
	defer span.End()

	if err := validateUpdate(cmd); err != nil {
		return nil, err
	}

	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := v.Clone()
	cmd.ApplyTo(v)
	if cmd.PatientID.Set {
		v.PatientID = strings.TrimSpace(v.PatientID)
	}

	if err := s.repo.Update(ctx, v); err != nil {
		return nil, s.fail(span, "updating visit", err)
	}

	changed := changedFields(&before, v)
	s.afterWrite(ctx, events.ChangeUpdate, v, actor, domain.ActionUpdate, changesJSON(changed))
	s.log.Info("visit updated",
		zap.String("visit_id", v.ID.String()),
		zap.Strings("fields", changed),
	)

	return s.derived(ctx, v)
}

func (s *VisitService) DeleteVisit(ctx context.Context, id uuid.UUID, actor Actor) error {
	ctx, span := s.tracer.Start(ctx, "VisitService.DeleteVisit", trace.WithAttributes(attribute.String("visit.id", id.String())))
	defer span.End()

	if !actor.Role.CanDeleteVisits() {
		return ErrForbidden
	}

	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.afterWrite(ctx, events.ChangeDelete, v, actor, domain.ActionDelete, "")
	s.log.Info("visit deleted",
		zap.String("visit_id", id.String()),
		zap.String("deleted_by", actor.UserID.String()),
	)
	return nil
}

// PreviewRequest carries unsaved edits: changes to stored visits and new
// rows that have not been created yet.
type PreviewRequest struct {
	PatientID string                     `json:"patient_id"`
	Drafts    []DraftInput               `json:"drafts"`
	Added     []visit.CreateVisitCommand `json:"added"`
}

type DraftInput struct {
	VisitID uuid.UUID                `json:"visit_id"`
	Changes visit.UpdateVisitCommand `json:"changes"`
}

// PreviewVisits recomputes derived fields over the stored visits with the
// drafts merged in. Nothing is written. Added rows receive a temporary ID.
func (s *VisitService) PreviewVisits(ctx context.Context, req *PreviewRequest) ([]growth.Row, error) {
	ctx, span := s.tracer.Start(ctx, "VisitService.PreviewVisits", trace.WithAttributes(
		attribute.Int("preview.drafts", len(req.Drafts)),
		attribute.Int("preview.added", len(req.Added)),
	))
	defer span.End()

	stored, err := s.repo.List(ctx, &visit.ListVisitsQuery{PatientID: req.PatientID})
	if err != nil {
		return nil, s.fail(span, "listing visits", err)
	}

	drafts := make([]visit.Draft, len(req.Drafts))
	for i, d := range req.Drafts {
		drafts[i] = visit.Draft{VisitID: d.VisitID, Changes: d.Changes}
	}
	added := make([]visit.Visit, len(req.Added))
	for i := range req.Added {
		added[i] = *req.Added[i].NewVisit()
		added[i].ID = uuid.New()
	}

	return s.deriveSnapshot(span, visit.Merge(stored, drafts, added)), nil
}

func (s *VisitService) derived(ctx context.Context, v *visit.Visit) (*growth.Row, error) {
	group := []visit.Visit{*v}
	if v.PatientID != "" {
		history, err := s.patients.ListVisits(ctx, v.PatientID)
		if err != nil {
			return nil, fmt.Errorf("loading patient history: %w", err)
		}
		group = visit.CloneAll(history)
	}
	row := growth.Row{Visit: v.Clone(), Derived: growth.Derive(*v, group)}
	return &row, nil
}

func (s *VisitService) deriveSnapshot(span trace.Span, snapshot []visit.Visit) []growth.Row {
	start := time.Now()
	rows := growth.DeriveAll(snapshot)
	s.metrics.DeriveDuration.Observe(time.Since(start).Seconds())
	s.metrics.SnapshotVisits.Set(float64(len(snapshot)))
	span.SetAttributes(attribute.Int("snapshot.visits", len(snapshot)))
	return rows
}

// afterWrite records the write in metrics and the audit log and notifies
// other sessions. Notification failures are logged, never returned.
func (s *VisitService) afterWrite(ctx context.Context, change events.ChangeType, v *visit.Visit, actor Actor, action domain.AuditAction, changes string) {
	s.metrics.VisitWritesTotal.WithLabelValues(string(action)).Inc()

	entry := actor.entry(action, resourceVisit, v.ID.String())
	entry.Changes = changes
	s.auditSvc.LogAsync(ctx, entry)

	publish(ctx, s.notifier, s.metrics, s.log, events.Change{
		Type:      change,
		ID:        v.ID,
		PatientID: v.PatientID,
		At:        time.Now().UTC(),
	})
}

func (s *VisitService) fail(span trace.Span, msg string, err error) error {
	tracer.Fail(span, err, msg)
	s.log.Error("failed: "+msg, zap.Error(err))
	return fmt.Errorf("%s: %w", msg, err)
}

func publish(ctx context.Context, n events.Notifier, m *metrics.Collector, log *zap.Logger, c events.Change) {
	if err := n.Publish(ctx, c); err != nil {
		m.NotificationsTotal.WithLabelValues("error").Inc()
		log.Warn("change notification failed",
			zap.String("visit_id", c.ID.String()),
			zap.String("type", string(c.Type)),
			zap.Error(err),
		)
		return
	}
	m.NotificationsTotal.WithLabelValues("sent").Inc()
}

// changedFields lists the JSON keys whose value differs between two
// versions of a visit, ignoring bookkeeping columns.
func changedFields(before, after *visit.Visit) []string {
	a, errA := toMap(before)
	b, errB := toMap(after)
	if errA != nil || errB != nil {
		return nil
	}
	var out []string
	for k, bv := range b {
		switch k {
		case "id", "created_at", "updated_at", "created_by":
			continue
		}
		if !reflect.DeepEqual(a[k], bv) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func toMap(v *visit.Visit) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	err = json.Unmarshal(raw, &m)
	return m, err
}

func changesJSON(fields []string) string {
	raw, err := json.Marshal(map[string][]string{"fields": fields})
	if err != nil {
		return ""
	}
	return string(raw)
}
