package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Harshitk-cp/prest/internal/api/middleware"
	"github.com/Harshitk-cp/prest/internal/domain"
	"github.com/Harshitk-cp/prest/internal/ingest"
	"github.com/Harshitk-cp/prest/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DatasetHandler struct {
	svc            *service.DatasetService
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewDatasetHandler(svc *service.DatasetService, maxUploadBytes int64, logger *zap.Logger) *DatasetHandler {
	return &DatasetHandler{svc: svc, maxUploadBytes: maxUploadBytes, logger: logger}
}

// Create imports a CSV experiment. The CSV is either the "file" part of a
// multipart form, with name, key_column and forced_choice form fields, or the
// raw request body with the same fields as query parameters.
func (h *DatasetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ws := middleware.WorkspaceFromContext(r.Context())
	if ws == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var body io.Reader = r.Body
	field := r.URL.Query().Get
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			writeUploadError(w, err)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close()
		body = file
		field = r.FormValue
	}

	opts := ingest.Options{KeyColumn: field("key_column")}
	if v := field("forced_choice"); v != "" {
		forced, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "forced_choice must be a boolean")
			return
		}
		opts.ForcedChoice = forced
	}

	d, err := h.svc.Import(r.Context(), ws.ID, field("name"), body, opts)
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeUploadError(w, maxErr)
		case errors.Is(err, service.ErrDatasetNameMissing),
			errors.Is(err, service.ErrDatasetEmpty),
			errors.Is(err, service.ErrInvalidDataset):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrDatasetConflict):
			writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("dataset import failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to import dataset")
		}
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

func writeUploadError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds "+strconv.FormatInt(maxErr.Limit, 10)+" bytes")
		return
	}
	writeError(w, http.StatusBadRequest, "invalid multipart form")
}

func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	ws := middleware.WorkspaceFromContext(r.Context())
	if ws == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	datasets, err := h.svc.List(r.Context(), ws.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list datasets")
		return
	}
	if datasets == nil {
		datasets = []domain.Dataset{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"datasets": datasets})
}

func (h *DatasetHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ws, id, ok := datasetParams(w, r)
	if !ok {
		return
	}

	d, err := h.svc.Get(r.Context(), id, ws.ID)
	if err != nil {
		writeDatasetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ws, id, ok := datasetParams(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id, ws.ID); err != nil {
		writeDatasetError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DatasetHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ws, id, ok := datasetParams(w, r)
	if !ok {
		return
	}

	stats, err := h.svc.SubjectStats(r.Context(), id, ws.ID)
	if err != nil {
		writeDatasetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subjects": stats})
}

type observationResponse struct {
	Menu    string  `json:"menu"`
	Default *string `json:"default,omitempty"`
	Choice  string  `json:"choice"`
}

type subjectResponse struct {
	Name         string                `json:"name"`
	Alternatives []string              `json:"alternatives"`
	Choices      []observationResponse `json:"choices"`
}

func (h *DatasetHandler) GetSubject(w http.ResponseWriter, r *http.Request) {
	ws, id, ok := datasetParams(w, r)
	if !ok {
		return
	}

	subj, err := h.svc.Subject(r.Context(), id, ws.ID, chi.URLParam(r, "name"))
	if err != nil {
		writeDatasetError(w, err)
		return
	}

	resp := subjectResponse{
		Name:         subj.Name,
		Alternatives: subj.Alternatives,
		Choices:      make([]observationResponse, 0, len(subj.Choices)),
	}
	for _, c := range subj.Choices {
		o := observationResponse{
			Menu:   c.Menu.Format(subj.Alternatives),
			Choice: c.Choice.Format(subj.Alternatives),
		}
		if c.Default != nil {
			def := domain.Singleton(*c.Default).Format(subj.Alternatives)
			o.Default = &def
		}
		resp.Choices = append(resp.Choices, o)
	}
	writeJSON(w, http.StatusOK, resp)
}

func datasetParams(w http.ResponseWriter, r *http.Request) (*domain.Workspace, uuid.UUID, bool) {
	ws := middleware.WorkspaceFromContext(r.Context())
	if ws == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, uuid.Nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dataset id")
		return nil, uuid.Nil, false
	}
	return ws, id, true
}

func writeDatasetError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrDatasetNotFound), errors.Is(err, service.ErrSubjectNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
