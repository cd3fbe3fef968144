package v1

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/growth"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/events"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/service"
)

type VisitService interface {
	CreateVisit(ctx context.Context, cmd *visit.CreateVisitCommand, autofill bool, actor service.Actor) (*growth.Row, error)
	GetVisit(ctx context.Context, id uuid.UUID) (*growth.Row, error)
	ListVisits(ctx context.Context, q *visit.ListVisitsQuery) ([]growth.Row, error)
	UpdateVisit(ctx context.Context, id uuid.UUID, cmd *visit.UpdateVisitCommand, actor service.Actor) (*growth.Row, error)
	DeleteVisit(ctx context.Context, id uuid.UUID, actor service.Actor) error
	PreviewVisits(ctx context.Context, req *service.PreviewRequest) ([]growth.Row, error)
}

// ChangeFeed opens a stream of visit changes that ends when ctx is done.
// A nil ChangeFeed disables the live endpoint.
type ChangeFeed func(ctx context.Context) (<-chan events.Change, error)

type VisitHandler struct {
	svc       VisitService
	changes   ChangeFeed
	keepAlive time.Duration
}

func NewVisitHandler(svc VisitService, changes ChangeFeed) *VisitHandler {
	return &VisitHandler{svc: svc, changes: changes, keepAlive: 25 * time.Second}
}

func (h *VisitHandler) List(c *gin.Context) {
	rows, err := h.svc.ListVisits(c.Request.Context(), &visit.ListVisitsQuery{PatientID: c.Query("patient_id")})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if rows == nil {
		rows = []growth.Row{}
	}
	respondOK(c, rows)
}

func (h *VisitHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	row, err := h.svc.GetVisit(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, row)
}

// Create accepts ?autofill=true to copy the patient's known fixed
// attributes onto the new visit.
func (h *VisitHandler) Create(c *gin.Context) {
	var cmd visit.CreateVisitCommand
	if !bindJSON(c, &cmd) {
		return
	}
	autofill, _ := strconv.ParseBool(c.DefaultQuery("autofill", "false"))

	row, err := h.svc.CreateVisit(c.Request.Context(), &cmd, autofill, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, row)
}

func (h *VisitHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var cmd visit.UpdateVisitCommand
	if !bindJSON(c, &cmd) {
		return
	}

	row, err := h.svc.UpdateVisit(c.Request.Context(), id, &cmd, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, row)
}

func (h *VisitHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteVisit(c.Request.Context(), id, actor(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *VisitHandler) Preview(c *gin.Context) {
	var req service.PreviewRequest
	if !bindJSON(c, &req) {
		return
	}
	rows, err := h.svc.PreviewVisits(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if rows == nil {
		rows = []growth.Row{}
	}
	respondOK(c, rows)
}

// Changes streams visit changes as server-sent events named "visit".
func (h *VisitHandler) Changes(c *gin.Context) {
	if h.changes == nil {
		respondError(c, http.StatusServiceUnavailable, "live updates are not enabled")
		return
	}

	ctx := c.Request.Context()
	feed, err := h.changes(ctx)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusServiceUnavailable, "live updates are unavailable")
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case change, ok := <-feed:
			if !ok {
				return false
			}
			c.SSEvent("visit", change)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}
