package v1

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/patient"
)

type PatientService interface {
	ListPatientIDs(ctx context.Context) ([]string, error)
	GetProfile(ctx context.Context, patientID string) (*patient.Profile, error)
	GenerateID(ctx context.Context, fullName string) (string, error)
}

type PatientHandler struct {
	svc PatientService
}

func NewPatientHandler(svc PatientService) *PatientHandler {
	return &PatientHandler{svc: svc}
}

func (h *PatientHandler) ListIDs(c *gin.Context) {
	ids, err := h.svc.ListPatientIDs(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, ids)
}

func (h *PatientHandler) Profile(c *gin.Context) {
	p, err := h.svc.GetProfile(c.Request.Context(), c.Param("patient_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, p)
}

type generateIDRequest struct {
	FullName string `json:"full_name"`
}

func (h *PatientHandler) GenerateID(c *gin.Context) {
	var req generateIDRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := h.svc.GenerateID(c.Request.Context(), req.FullName)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, gin.H{"patient_id": id})
}
