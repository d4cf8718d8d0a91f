// AngelaMos | 2026
// handler.go

package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
	"github.com/ccdexplorer/ccdexplorer-api/internal/middleware"
	"github.com/ccdexplorer/ccdexplorer-api/internal/plan"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts the plan and account pages. loginRequired sends
// anonymous callers to the login page.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	loginRequired func(http.Handler) http.Handler,
) {
	r.Route("/plans", func(r chi.Router) {
		r.Get("/", h.PlansHome)
		r.Get("/catalog", h.Catalog)

		r.Group(func(r chi.Router) {
			r.Use(loginRequired)
			r.Post("/set", h.SetPlan)
			r.Post("/reset", h.ResetPlan)
		})
	})

	r.Route("/account", func(r chi.Router) {
		r.Use(loginRequired)

		r.Get("/", h.GetAccount)
		r.Get("/keys", h.GetKeys)
		r.Post("/new-key", h.NewKey)
		r.Delete("/key/{key}", h.DeleteKey)
		r.Post("/refresh", h.Refresh)
	})
}

func (h *Handler) PlansHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) Catalog(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, plan.Display())
}

func (h *Handler) planFromRequest(r *http.Request) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req SetPlanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", err
		}
		if err := h.validator.Struct(req); err != nil {
			return "", err
		}
		return req.Plan, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", err
	}
	return r.PostFormValue("plan"), nil
}

func (h *Handler) SetPlan(w http.ResponseWriter, r *http.Request) {
	planName, err := h.planFromRequest(r)
	if err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if _, err := h.service.SetPlan(r.Context(), middleware.GetUserID(r.Context()), planName); err != nil {
		writeError(w, err)
		return
	}

	core.Redirect(w, "/account")
}

func (h *Handler) ResetPlan(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetPlan(r.Context(), middleware.GetUserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}

	core.Redirect(w, "/")
}

func (h *Handler) NewKey(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.NewKey(r.Context(), middleware.GetUserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}

	core.Redirect(w, "/account")
}

func (h *Handler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "key")

	if err := h.service.DeleteKey(r.Context(), middleware.GetUserID(r.Context()), keyID); err != nil {
		writeError(w, err)
		return
	}

	core.Redirect(w, "/account")
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.Refresh(r.Context(), middleware.GetUserID(r.Context())); err != nil {
		writeError(w, err)
		return
	}

	core.Refresh(w)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Account(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, summary)
}

func (h *Handler) GetKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.service.Keys(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, KeysResponse{Keys: keys})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownPlan):
		core.NotFound(w, "plan")
	case errors.Is(err, ErrNoPlan):
		core.JSONError(w, core.NewAppError(
			err,
			"choose a plan before creating a key",
			http.StatusBadRequest,
			"NO_PLAN",
		))
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "account or key")
	case errors.Is(err, core.ErrUpstream):
		core.JSONError(w, core.UpstreamError("payment data is unavailable, try again later"))
	default:
		core.InternalServerError(w, err)
	}
}
