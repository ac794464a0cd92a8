package assessment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"medical-assessment/internal/catalog"
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
	return &Handler{svc: svc, log: log.Named("assessment.http")}
}

type AnswerRequest struct {
	SessionID    string          `json:"session_id"`
	QuestionID   string          `json:"question_id"`
	QuestionText string          `json:"question_text,omitempty"`
	AnswerJSON   json.RawMessage `json:"answer_json"`
}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type StepResponse struct {
	SessionID     string            `json:"session_id"`
	Status        string            `json:"status"`
	Phase         Phase             `json:"phase"`
	Question      *catalog.Question `json:"question,omitempty"`
	Completed     bool              `json:"completed"`
	Progress      Progress          `json:"progress"`
	Symptom       *SymptomMatch     `json:"symptom,omitempty"`
	StoredAnswers []Answer          `json:"stored_answers,omitempty"`
	Resumed       bool              `json:"resumed,omitempty"`
}

// newStepResponse reports "next" or "completed" as status while the session
// is active, and the stored status once it is closed.
func newStepResponse(step *Step) StepResponse {
	status := "next"
	switch {
	case !step.Session.IsActive():
		status = string(step.Session.Status)
	case step.Completed:
		status = "completed"
	}
	return StepResponse{
		SessionID:     step.Session.ID.String(),
		Status:        status,
		Phase:         step.Session.Phase,
		Question:      step.Question,
		Completed:     step.Completed,
		Progress:      step.Progress,
		Symptom:       step.Match,
		StoredAnswers: step.Answers,
		Resumed:       step.Resumed,
	}
}

type DetectResponse struct {
	Detected bool `json:"detected"`
	*SymptomMatch
	Message string `json:"message,omitempty"`
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	step, err := h.svc.Start(r.Context(), owner)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newStepResponse(step))
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request")
		return
	}
	id, err := uuid.Parse(req.SessionID)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid session_id")
		return
	}
	step, err := h.svc.SubmitAnswer(r.Context(), ownerFrom(r), id, SubmitRequest{
		QuestionID:   req.QuestionID,
		QuestionText: req.QuestionText,
		Payload:      req.AnswerJSON,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newStepResponse(step))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	step, err := h.svc.Current(r.Context(), ownerFrom(r), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newStepResponse(step))
}

func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request")
		return
	}
	id, err := uuid.Parse(req.SessionID)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid session_id")
		return
	}
	if err := h.svc.End(r.Context(), ownerFrom(r), id); err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	data, err := h.svc.Export(r.Context(), ownerFrom(r), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.WriteFile(w,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"assessment-"+id.String()+".xlsx", data)
}

func (h *Handler) Detect(w http.ResponseWriter, r *http.Request) {
	complaint := strings.TrimSpace(r.URL.Query().Get("complaint"))
	if complaint == "" {
		httpx.WriteError(w, http.StatusBadRequest, "complaint is required")
		return
	}
	m := h.svc.DetectSymptom(complaint)
	if m == nil {
		httpx.WriteJSON(w, http.StatusOK, DetectResponse{Message: "No specific symptom detected"})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, DetectResponse{Detected: true, SymptomMatch: m})
}

// fail maps lifecycle errors to HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, ErrNotActive):
		httpx.WriteError(w, http.StatusForbidden, "session is not active")
	case errors.Is(err, ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, ErrInvalidAnswer):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrIncomplete):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error("request failed", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

// RequireOwner rejects requests without an owner header.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := httpx.Owner(r); !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "missing "+httpx.OwnerHeader)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ownerFrom(r *http.Request) string {
	owner, _ := httpx.Owner(r)
	return owner
}

func sessionParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

// RegisterRoutes mounts the assessment endpoints on r. Callers wrap r with
// RequireOwner.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/assessment/start", h.Start)
	r.Post("/assessment/start", h.Start)
	r.Post("/assessment/answer", h.Answer)
	r.Post("/assessment/end", h.End)
	r.Get("/assessment/{sessionID}", h.Get)
	r.Get("/assessment/{sessionID}/export.xlsx", h.Export)
	r.Get("/symptom/detect", h.Detect)
}
