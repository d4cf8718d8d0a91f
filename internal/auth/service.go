// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ccdexplorer/ccdexplorer-api/internal/config"
	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
	"github.com/ccdexplorer/ccdexplorer-api/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")
	ErrAliasPoolExhausted = errors.New("no deposit alias available")
	ErrResetTokenInvalid  = errors.New("reset token invalid or expired")
)

type UserInfo struct {
	ID             string
	Email          string
	PasswordHash   string
	Role           string
	Plan           string
	AliasAccountID string
}

// UserProvider is the account store as seen from authentication. Create
// allocates the deposit alias and returns ErrAliasPoolExhausted when none is
// left.
type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(ctx context.Context, email, passwordHash string) (*UserInfo, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string) (*UserInfo, error)
}

type Session struct {
	User  UserInfo
	Token IssuedToken
}

type Service struct {
	jwt       *JWTManager
	users     UserProvider
	blacklist Blacklist
	notifier  Notifier
	cfg       config.SessionConfig
	now       func() time.Time
}

func NewService(
	jwt *JWTManager,
	users UserProvider,
	blacklist Blacklist,
	notifier Notifier,
	cfg config.SessionConfig,
) *Service {
	return &Service{
		jwt:       jwt,
		users:     users,
		blacklist: blacklist,
		notifier:  notifier,
		cfg:       cfg,
		now:       time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, normalizeEmail(req.Email), passwordHash)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	slog.Info("account registered",
		"api_account_id", user.ID,
		"alias_account_id", user.AliasAccountID,
	)

	return s.startSession(user)
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// same argon2 cost as a wrong password
			_, _ = core.CheckLogin(req.Password, "")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	ok, rehash := core.CheckLogin(req.Password, user.PasswordHash)
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if rehash != "" {
		if err := s.users.UpdatePassword(ctx, user.ID, rehash); err != nil {
			slog.Warn("password rehash not saved", "api_account_id", user.ID, "error", err)
		}
	}

	return s.startSession(user)
}

func (s *Service) startSession(user *UserInfo) (*Session, error) {
	token, err := s.jwt.CreateAccessToken(SessionClaims{
		AccountID: user.ID,
		Role:      user.Role,
		Plan:      user.Plan,
	})
	if err != nil {
		return nil, fmt.Errorf("create session token: %w", err)
	}

	return &Session{User: *user, Token: *token}, nil
}

// Logout blacklists the session token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, claims *middleware.AccessTokenClaims) error {
	if claims == nil || claims.TokenID == "" {
		return nil
	}
	if err := s.blacklist.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// VerifyAccessToken implements middleware.TokenVerifier. A token whose
// revocation state cannot be read is rejected.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.VerifyAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		slog.Warn("session blacklist unavailable", "error", err)
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}
	if revoked {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	return claims, nil
}

// RequestPasswordReset stores a one-time token for the account and sends
// the reset link. Unknown addresses are silently ignored.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	token, err := core.GenerateSecureToken(32)
	if err != nil {
		return err
	}

	expiresAt := s.now().Add(s.cfg.ResetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, core.HashToken(token), expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	link := strings.TrimRight(s.cfg.ResetLinkBase, "/") + "/auth/reset-password-action/" + token
	if err := s.notifier.PasswordResetRequested(ctx, user.Email, link); err != nil {
		slog.Error("send reset link", "api_account_id", user.ID, "error", err)
	}

	return nil
}

func (s *Service) SetPassword(ctx context.Context, req SetPasswordRequest) error {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.ConsumeResetToken(ctx, core.HashToken(req.Token), passwordHash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrTokenExpired) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("set password: %w", err)
	}

	if err := s.notifier.PasswordChanged(ctx, user.Email); err != nil {
		slog.Error("send password changed notice", "api_account_id", user.ID, "error", err)
	}

	return nil
}

func (s *Service) Me(ctx context.Context, userID string) (*UserInfo, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) JWKS() http.HandlerFunc {
	return s.jwt.GetJWKSHandler()
}
