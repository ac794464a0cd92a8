package profile

import (
	"errors"
	"net/http"

	"medical-assessment/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
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
	return &Handler{svc: svc, log: log.Named("profile.http")}
}

type OnboardingRequest struct {
	Answers []Item `json:"answer_json"`
}

type onboardingResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

var storedMessages = map[Kind]string{
	KindProfile: "Profile stored successfully",
	KindMedical: "Medical data stored successfully",
}

func (h *Handler) Onboard(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OnboardingRequest
		if err := httpx.ReadJSON(r, &req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid request")
			return
		}
		owner, _ := httpx.Owner(r)
		if err := h.svc.Save(r.Context(), owner, kind, req.Answers); err != nil {
			h.fail(w, kind, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, onboardingResponse{Success: true, Message: storedMessages[kind]})
	}
}

// Get responds with {"success": true, "<kind>": [...]}.
func (h *Handler) Get(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, _ := httpx.Owner(r)
		answers, err := h.svc.Get(r.Context(), owner, kind)
		if err != nil {
			h.fail(w, kind, err)
			return
		}
		if answers == nil {
			answers = []Answer{}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, string(kind): answers})
	}
}

func (h *Handler) fail(w http.ResponseWriter, kind Kind, err error) {
	switch {
	case errors.Is(err, ErrEmpty), errors.Is(err, ErrInvalid):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("onboarding request failed", zap.String("kind", string(kind)), zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

// RegisterRoutes mounts the onboarding endpoints on r. Callers require an
// owner header.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/user/profile/onboarding", h.Onboard(KindProfile))
	r.Get("/user/profile", h.Get(KindProfile))
	r.Post("/user/medical/onboarding", h.Onboard(KindMedical))
	r.Get("/user/medical", h.Get(KindMedical))
}
