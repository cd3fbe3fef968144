package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/events"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/extraction"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/pkg/metrics"
)

// memVisitRepo is an in-memory visit store serving both the visit and the
// patient repository interfaces.
type memVisitRepo struct {
	mu      sync.Mutex
	visits  []visit.Visit
	listErr error
}

func (r *memVisitRepo) Create(_ context.Context, v *visit.Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v.ID = uuid.New()
	v.CreatedAt = time.Now()
	r.visits = append(r.visits, v.Clone())
	return nil
}

func (r *memVisitRepo) CreateBatch(_ context.Context, vs []visit.Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range vs {
		vs[i].ID = uuid.New()
		r.visits = append(r.visits, vs[i].Clone())
	}
	return nil
}

func (r *memVisitRepo) GetByID(_ context.Context, id uuid.UUID) (*visit.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.visits {
		if r.visits[i].ID == id {
			v := r.visits[i].Clone()
			return &v, nil
		}
	}
	return nil, visit.ErrVisitNotFound
}

func (r *memVisitRepo) Update(_ context.Context, v *visit.Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.visits {
		if r.visits[i].ID == v.ID {
			r.visits[i] = v.Clone()
			return nil
		}
	}
	return visit.ErrVisitNotFound
}

func (r *memVisitRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.visits {
		if r.visits[i].ID == id {
			r.visits = append(r.visits[:i], r.visits[i+1:]...)
			return nil
		}
	}
	return visit.ErrVisitNotFound
}

func (r *memVisitRepo) List(_ context.Context, q *visit.ListVisitsQuery) ([]visit.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []visit.Visit
	for _, v := range r.visits {
		if q == nil || q.PatientID == "" || v.PatientID == q.PatientID {
			out = append(out, v.Clone())
		}
	}
	return out, nil
}

func (r *memVisitRepo) ListIDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var ids []string
	for _, v := range r.visits {
		if v.PatientID != "" && !seen[v.PatientID] {
			seen[v.PatientID] = true
			ids = append(ids, v.PatientID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *memVisitRepo) ListVisits(ctx context.Context, patientID string) ([]visit.Visit, error) {
	return r.List(ctx, &visit.ListVisitsQuery{PatientID: patientID})
}

// seed stores visits as-is, keeping their IDs.
func (r *memVisitRepo) seed(vs ...visit.Visit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range vs {
		r.visits = append(r.visits, v.Clone())
	}
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLog
	block   chan struct{}
}

func (r *memAuditRepo) CreateBatch(_ context.Context, batch []*domain.AuditLog) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range batch {
		r.entries = append(r.entries, *e)
	}
	return nil
}

func (r *memAuditRepo) all() []domain.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditLog(nil), r.entries...)
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []events.Change
	err     error
}

func (n *recordingNotifier) Publish(_ context.Context, c events.Change) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.changes = append(n.changes, c)
	return nil
}

func (n *recordingNotifier) types() []events.ChangeType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]events.ChangeType, len(n.changes))
	for i, c := range n.changes {
		out[i] = c.Type
	}
	return out
}

type stubExtractor struct {
	candidate *extraction.Candidate
	err       error
	calls     int
}

func (e *stubExtractor) Extract(_ context.Context, images []extraction.Image) (*extraction.Candidate, error) {
	e.calls++
	if len(images) == 0 {
		return nil, extraction.ErrNoImages
	}
	return e.candidate, e.err
}

var errStore = errors.New("store unavailable")

type fixture struct {
	repo     *memVisitRepo
	audit    *memAuditRepo
	notifier *recordingNotifier
	metrics  *metrics.Collector
	auditSvc *AuditService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     &memVisitRepo{},
		audit:    &memAuditRepo{},
		notifier: &recordingNotifier{},
		metrics:  metrics.NewCollector("test", prometheus.NewRegistry()),
	}
	f.auditSvc = NewAuditService(f.audit, f.metrics, zap.NewNop())
	t.Cleanup(f.auditSvc.Shutdown)
	return f
}

func (f *fixture) visits() *VisitService {
	return NewVisitService(f.repo, f.repo, f.auditSvc, f.notifier, f.metrics, zap.NewNop())
}

// flushAudit waits until every queued audit entry is persisted.
func (f *fixture) flushAudit() []domain.AuditLog {
	f.auditSvc.Shutdown()
	return f.audit.all()
}

var (
	clinician = Actor{UserID: uuid.New(), Role: domain.RoleClinician, IP: "10.0.0.1", RequestID: "req-1"}
	dataEntry = Actor{UserID: uuid.New(), Role: domain.RoleDataEntry, IP: "10.0.0.2"}
)

func weight(g float64) *float64 { return &g }

func storedVisit(patientID, date string, w float64) visit.Visit {
	v := visit.Visit{ID: uuid.New(), PatientID: patientID}
	v.BirthDate = "2023-04-11"
	v.VisitDate = visit.Date(date)
	v.WeightG = weight(w)
	return v
}
