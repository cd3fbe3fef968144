package v1

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/growth"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/extraction"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubVisits struct {
	create  func(cmd *visit.CreateVisitCommand, autofill bool, a service.Actor) (*growth.Row, error)
	get     func(id uuid.UUID) (*growth.Row, error)
	list    func(q *visit.ListVisitsQuery) ([]growth.Row, error)
	update  func(id uuid.UUID, cmd *visit.UpdateVisitCommand, a service.Actor) (*growth.Row, error)
	del     func(id uuid.UUID, a service.Actor) error
	preview func(req *service.PreviewRequest) ([]growth.Row, error)
}

func (s *stubVisits) CreateVisit(_ context.Context, cmd *visit.CreateVisitCommand, autofill bool, a service.Actor) (*growth.Row, error) {
	return s.create(cmd, autofill, a)
}

func (s *stubVisits) GetVisit(_ context.Context, id uuid.UUID) (*growth.Row, error) {
	return s.get(id)
}

func (s *stubVisits) ListVisits(_ context.Context, q *visit.ListVisitsQuery) ([]growth.Row, error) {
	return s.list(q)
}

func (s *stubVisits) UpdateVisit(_ context.Context, id uuid.UUID, cmd *visit.UpdateVisitCommand, a service.Actor) (*growth.Row, error) {
	return s.update(id, cmd, a)
}

func (s *stubVisits) DeleteVisit(_ context.Context, id uuid.UUID, a service.Actor) error {
	return s.del(id, a)
}

func (s *stubVisits) PreviewVisits(_ context.Context, req *service.PreviewRequest) ([]growth.Row, error) {
	return s.preview(req)
}

type stubPatients struct {
	ids      []string
	profiles map[string]*patient.Profile
}

func (s *stubPatients) ListPatientIDs(context.Context) ([]string, error) { return s.ids, nil }

func (s *stubPatients) GetProfile(_ context.Context, id string) (*patient.Profile, error) {
	if id == "" {
		return nil, patient.ErrPatientIDMissing
	}
	p, ok := s.profiles[id]
	if !ok {
		return nil, patient.ErrProfileNotFound
	}
	return p, nil
}

func (s *stubPatients) GenerateID(_ context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", patient.ErrNameRequired
	}
	return strings.ToUpper(strings.Fields(name)[0]) + "_001", nil
}

type stubReports struct {
	summary *growth.Summary
	body    string
	err     error
	gotFmt  service.ExportFormat
	gotQ    *visit.ListVisitsQuery
}

func (s *stubReports) Summary(_ context.Context, q *visit.ListVisitsQuery) (*growth.Summary, error) {
	s.gotQ = q
	return s.summary, s.err
}

func (s *stubReports) Export(_ context.Context, w io.Writer, f service.ExportFormat, q *visit.ListVisitsQuery, _ *service.Actor) error {
	s.gotFmt, s.gotQ = f, q
	if s.err != nil {
		return s.err
	}
	_, err := io.WriteString(w, s.body)
	return err
}

type stubImports struct {
	images    []extraction.Image
	extractFn func() (*service.ExtractResult, error)
	commitFn  func(req *service.CommitRequest) (*service.CommitResult, error)
}

func (s *stubImports) Extract(_ context.Context, images []extraction.Image) (*service.ExtractResult, error) {
	s.images = images
	return s.extractFn()
}

func (s *stubImports) Commit(_ context.Context, req *service.CommitRequest, _ service.Actor) (*service.CommitResult, error) {
	return s.commitFn(req)
}

type stubAuth struct {
	pair *domain.TokenPair
	err  error
}

func (s *stubAuth) Login(context.Context, string, string, string) (*domain.TokenPair, error) {
	return s.pair, s.err
}

func (s *stubAuth) RefreshToken(context.Context, string) (*domain.TokenPair, error) {
	return s.pair, s.err
}

func (s *stubAuth) ChangePassword(context.Context, uuid.UUID, string, string) error {
	return s.err
}

func perform(t *testing.T, r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ptr[T any](v T) *T { return &v }
