// AngelaMos | 2026
// dto.go

package auth

import (
	"time"
)

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type ResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type SetPasswordRequest struct {
	Token    string `json:"token"    validate:"required,max=128"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type UserResponse struct {
	APIAccountID   string `json:"api_account_id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	Plan           string `json:"plan,omitempty"`
	AliasAccountID string `json:"alias_account_id"`
}

type SessionResponse struct {
	User      UserResponse `json:"user"`
	TokenType string       `json:"token_type"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func toUserResponse(u *UserInfo) UserResponse {
	return UserResponse{
		APIAccountID:   u.ID,
		Email:          u.Email,
		Role:           u.Role,
		Plan:           u.Plan,
		AliasAccountID: u.AliasAccountID,
	}
}

func toSessionResponse(s *Session) SessionResponse {
	return SessionResponse{
		User:      toUserResponse(&s.User),
		TokenType: "Bearer",
		Token:     s.Token.Token,
		ExpiresAt: s.Token.ExpiresAt,
	}
}
