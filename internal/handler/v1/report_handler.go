package v1

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/growth"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/service"
)

type ReportService interface {
	Summary(ctx context.Context, q *visit.ListVisitsQuery) (*growth.Summary, error)
	Export(ctx context.Context, w io.Writer, format service.ExportFormat, q *visit.ListVisitsQuery, actor *service.Actor) error
}

type ReportHandler struct {
	svc      ReportService
	baseName string
	now      func() time.Time
}

func NewReportHandler(svc ReportService, fileBaseName string) *ReportHandler {
	return &ReportHandler{svc: svc, baseName: fileBaseName, now: time.Now}
}

func (h *ReportHandler) Summary(c *gin.Context) {
	s, err := h.svc.Summary(c.Request.Context(), &visit.ListVisitsQuery{PatientID: c.Query("patient_id")})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, s)
}

func (h *ReportHandler) ExportCSV(c *gin.Context)  { h.export(c, service.FormatCSV) }
func (h *ReportHandler) ExportXLSX(c *gin.Context) { h.export(c, service.FormatXLSX) }

// export renders into memory first so that a failure still produces a
// proper error status instead of a truncated file.
func (h *ReportHandler) export(c *gin.Context, format service.ExportFormat) {
	a := actor(c)
	var buf bytes.Buffer
	q := &visit.ListVisitsQuery{PatientID: c.Query("patient_id")}
	if err := h.svc.Export(c.Request.Context(), &buf, format, q, &a); err != nil {
		respondServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("%s_%s.%s", h.baseName, h.now().Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}
