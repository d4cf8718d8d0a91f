// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
)

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
	ClaimsKey   contextKey = "jwt_claims"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// DefaultSessionCookie is the cookie the account pages keep the session in.
const DefaultSessionCookie = "api.ccdexplorer.io"

type TokenVerifier interface {
	VerifyAccessToken(
		ctx context.Context,
		token string,
	) (*AccessTokenClaims, error)
}

type AccessTokenClaims struct {
	UserID    string
	Role      string
	Tier      string
	TokenID   string
	ExpiresAt time.Time
}

type Sessions struct {
	verifier   TokenVerifier
	cookieName string
}

func NewSessions(verifier TokenVerifier, cookieName string) *Sessions {
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}
	return &Sessions{verifier: verifier, cookieName: cookieName}
}

// Authenticator rejects requests without a valid session with a 401.
func (s *Sessions) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.ExtractToken(r)
		if token == "" {
			core.JSONError(w, core.UnauthorizedError("missing session"))
			return
		}

		claims, err := s.verifier.VerifyAccessToken(r.Context(), token)
		if err != nil {
			handleAuthError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

// LoginRequired sends browsers without a valid session to the login page
// the way the account pages navigate: a 200 with HX-Redirect.
func (s *Sessions) LoginRequired(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := s.ExtractToken(r)
			if token == "" {
				core.Redirect(w, loginPath)
				return
			}

			claims, err := s.verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				core.Redirect(w, loginPath)
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// ExtractToken prefers the bearer header and falls back to the cookie.
func (s *Sessions) ExtractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if c, err := r.Cookie(s.cookieName); err == nil {
		return strings.TrimPrefix(c.Value, "Bearer ")
	}

	return ""
}

func (s *Sessions) CookieName() string {
	return s.cookieName
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch GetUserRole(r.Context()) {
		case "":
			core.JSONError(w, core.UnauthorizedError("authentication required"))
		case RoleAdmin:
			next.ServeHTTP(w, r)
		default:
			core.JSONError(w, core.ForbiddenError("insufficient permissions"))
		}
	})
}

func withClaims(ctx context.Context, claims *AccessTokenClaims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
	return context.WithValue(ctx, ClaimsKey, claims)
}

// WithClaims is exposed for handler tests.
func WithClaims(ctx context.Context, claims *AccessTokenClaims) context.Context {
	return withClaims(ctx, claims)
}

func handleAuthError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, core.ErrTokenExpired):
		core.JSONError(w, core.TokenExpiredError())
	case errors.Is(err, core.ErrTokenRevoked):
		core.JSONError(w, core.TokenRevokedError())
	default:
		core.JSONError(w, core.TokenInvalidError())
	}
}

func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

func GetUserRole(ctx context.Context) string {
	if role, ok := ctx.Value(UserRoleKey).(string); ok {
		return role
	}
	return ""
}

func GetClaims(ctx context.Context) *AccessTokenClaims {
	if claims, ok := ctx.Value(ClaimsKey).(*AccessTokenClaims); ok {
		return claims
	}
	return nil
}
