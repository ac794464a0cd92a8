package report

import (
	"errors"
	"net/http"

	"medical-assessment/internal/assessment"
	"medical-assessment/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	svc Service
	log *zap.Logger
}

func NewHandler(svc Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log.Named("report.http")}
}

type GenerateRequest struct {
	SessionID string `json:"session_id"`
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request")
		return
	}
	id, err := uuid.Parse(req.SessionID)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid session_id")
		return
	}
	owner, _ := httpx.Owner(r)
	rep, err := h.svc.Generate(r.Context(), owner, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rep)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	owner, _ := httpx.Owner(r)
	recs, err := h.svc.List(r.Context(), owner)
	if err != nil {
		h.fail(w, err)
		return
	}
	if recs == nil {
		recs = []Record{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"reports": recs})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	owner, _ := httpx.Owner(r)
	rec, err := h.svc.Get(r.Context(), owner, chi.URLParam(r, "reportID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec.Report)
}

func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	owner, _ := httpx.Owner(r)
	id := chi.URLParam(r, "reportID")
	data, err := h.svc.PDF(r.Context(), owner, id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteFile(w, "application/pdf", "report_"+id+".pdf", data)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "report not found")
	case errors.Is(err, assessment.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, assessment.ErrNotActive):
		httpx.WriteError(w, http.StatusForbidden, "session is not active")
	case errors.Is(err, assessment.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, assessment.ErrIncomplete):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrNoFont):
		h.log.Error("pdf rendering unavailable", zap.Error(err))
		httpx.WriteError(w, http.StatusServiceUnavailable, "pdf rendering unavailable")
	default:
		h.log.Error("request failed", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

// RegisterRoutes mounts the report endpoints. Callers wrap r with
// assessment.RequireOwner.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/assessment/report", h.Generate)
	r.Get("/reports", h.List)
	r.Get("/reports/{reportID}", h.Get)
	r.Get("/reports/{reportID}/pdf", h.PDF)
}
