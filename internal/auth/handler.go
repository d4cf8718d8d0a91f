// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
	"github.com/ccdexplorer/ccdexplorer-api/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
	cookie    string
	secure    bool
}

func NewHandler(service *Service, cookieName string, secureCookie bool) *Handler {
	if cookieName == "" {
		cookieName = middleware.DefaultSessionCookie
	}
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		cookie:    cookieName,
		secure:    secureCookie,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Get("/.well-known/jwks.json", h.service.JWKS())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/register", h.Register)
		r.Post("/reset-password", h.ResetPassword)
		r.Post("/set-password", h.SetPassword)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Get("/me", h.GetMe)
			r.Post("/logout", h.Logout)
		})
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}

	return true
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.service.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailExists):
			core.JSONError(w, core.DuplicateError("email"))
		case errors.Is(err, ErrAliasPoolExhausted):
			core.JSONError(w, core.NewAppError(
				err,
				"no deposit alias available, try again later",
				http.StatusServiceUnavailable,
				"ALIAS_POOL_EXHAUSTED",
			))
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	h.setCookie(w, session.Token)
	w.Header().Set("HX-Redirect", "/account")
	core.Created(w, toSessionResponse(session))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			slog.Info("login failed", "ip", middleware.ClientIP(r))
			core.JSONError(w, core.UnauthorizedError("invalid email or password"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	h.setCookie(w, session.Token)
	w.Header().Set("HX-Redirect", "/account")
	core.OK(w, toSessionResponse(session))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), middleware.GetClaims(r.Context())); err != nil {
		core.InternalServerError(w, err)
		return
	}

	h.clearCookie(w)
	core.Redirect(w, "/")
}

// ResetPassword answers 202 whether or not the address is known.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Accepted(w, map[string]string{
		"message": "if the address is registered, a reset link is on its way",
	})
}

func (h *Handler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req SetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.SetPassword(r.Context(), req); err != nil {
		if errors.Is(err, ErrResetTokenInvalid) {
			core.JSONError(w, core.NewAppError(
				err,
				"reset link is invalid or has expired",
				http.StatusBadRequest,
				"RESET_TOKEN_INVALID",
			))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Redirect(w, "/auth/login")
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Me(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "user")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, toUserResponse(user))
}

func (h *Handler) setCookie(w http.ResponseWriter, token IssuedToken) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie,
		Value:    token.Token,
		Path:     "/",
		Expires:  token.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
