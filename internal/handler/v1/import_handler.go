package v1

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/extraction"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/service"
)

type ImportService interface {
	Extract(ctx context.Context, images []extraction.Image) (*service.ExtractResult, error)
	Commit(ctx context.Context, req *service.CommitRequest, actor service.Actor) (*service.CommitResult, error)
}

type ImportHandler struct {
	svc       ImportService
	maxUpload int64
}

func NewImportHandler(svc ImportService, maxUploadBytes int64) *ImportHandler {
	return &ImportHandler{svc: svc, maxUpload: maxUploadBytes}
}

const (
	imagesField = "images"
	maxImages   = 10
)

// Extract reads the photographed sheets sent as multipart "images" files
// and returns the candidate for review. Nothing is stored.
func (h *ImportHandler) Extract(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			respondError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", h.maxUpload))
			return
		}
		respondError(c, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	files := form.File[imagesField]
	if len(files) == 0 {
		respondError(c, http.StatusBadRequest, `at least one file is required in field "images"`)
		return
	}
	if len(files) > maxImages {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("at most %d images per request", maxImages))
		return
	}

	images := make([]extraction.Image, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "cannot read "+fh.Filename)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			respondError(c, http.StatusBadRequest, "cannot read "+fh.Filename)
			return
		}
		images = append(images, extraction.Image{
			MIMEType: extraction.DetectMIME(fh.Filename, fh.Header.Get("Content-Type")),
			Data:     data,
		})
	}

	res, err := h.svc.Extract(c.Request.Context(), images)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *ImportHandler) Commit(c *gin.Context) {
	var req service.CommitRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Commit(c.Request.Context(), &req, actor(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, res)
}
