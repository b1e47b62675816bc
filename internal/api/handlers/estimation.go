package handlers

import (
	"errors"
	"io"
	"net/http"
	"slices"

	"github.com/Harshitk-cp/prest/internal/api/middleware"
	"github.com/Harshitk-cp/prest/internal/estimation"
	"github.com/Harshitk-cp/prest/internal/service"
	"github.com/Harshitk-cp/prest/internal/theory"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const wireContentType = "application/octet-stream"

type EstimationHandler struct {
	svc          *service.EstimationService
	maxBodyBytes int64
	logger       *zap.Logger
}

func NewEstimationHandler(svc *service.EstimationService, maxBodyBytes int64, logger *zap.Logger) *EstimationHandler {
	return &EstimationHandler{svc: svc, maxBodyBytes: maxBodyBytes, logger: logger}
}

type estimateRequest struct {
	DatasetID          string   `json:"dataset_id" validate:"required,uuid"`
	Subjects           []string `json:"subjects"`
	Theories           []string `json:"theories" validate:"required,min=1"`
	ForcedChoice       *bool    `json:"forced_choice"`
	DisableParallelism bool     `json:"disable_parallelism"`
}

// Estimate runs theories over a stored dataset and answers in JSON.
func (h *EstimationHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	ws := middleware.WorkspaceFromContext(r.Context())
	if ws == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req estimateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	theories := make([]theory.Theory, 0, len(req.Theories))
	for _, s := range req.Theories {
		t, err := theory.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		theories = append(theories, t)
	}

	resps, err := h.svc.Estimate(r.Context(), ws.ID, service.EstimateInput{
		DatasetID:          uuid.MustParse(req.DatasetID),
		Subjects:           req.Subjects,
		Theories:           theories,
		ForcedChoice:       req.ForcedChoice,
		DisableParallelism: req.DisableParallelism,
	})
	if err != nil {
		h.writeEstimationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": estimation.ToJSON(resps)})
}

// EstimateWire takes a codec-encoded request carrying its own subjects and
// answers with the list of packed responses.
func (h *EstimationHandler) EstimateWire(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		writeUploadError(w, err)
		return
	}

	req, err := estimation.UnmarshalRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}

	resps, err := h.svc.Run(r.Context(), req)
	if err != nil {
		h.writeEstimationError(w, err)
		return
	}

	p, err := estimation.MarshalResponses(resps)
	if err != nil {
		h.logger.Error("encode estimation responses", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", wireContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(p)
}

func (h *EstimationHandler) writeEstimationError(w http.ResponseWriter, err error) {
	var se *estimation.SubjectError
	switch {
	case errors.Is(err, service.ErrDatasetNotFound), errors.Is(err, service.ErrSubjectNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEstimationRejected):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &se):
		h.logger.Error("estimation failed", zap.String("subject", se.Subject), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "estimation failed for subject "+se.Subject)
	default:
		h.logger.Error("estimation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "estimation failed")
	}
}

type theoryResponse struct {
	Name string     `json:"name"`
	Tag  theory.Tag `json:"tag"`
}

// Theories lists the theory catalog in canonical order.
func Theories(w http.ResponseWriter, r *http.Request) {
	catalog := theory.Catalog()
	slices.SortFunc(catalog, theory.Compare)
	out := make([]theoryResponse, 0, len(catalog))
	for _, t := range catalog {
		out = append(out, theoryResponse{Name: t.String(), Tag: t.Tag()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"theories": out})
}
