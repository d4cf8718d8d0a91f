// AngelaMos | 2026
// entity.go

package user

import (
	"time"

	"github.com/ccdexplorer/ccdexplorer-api/internal/billing"
)

// User is an API account. Its id is the api_account_id; AliasAccountID is
// the deposit address payments for this account are sent to.
type User struct {
	ID                 string                     `json:"_id"                              validate:"required"`
	Scope              string                     `json:"scope"`
	Token              string                     `json:"token"`
	AliasID            int                        `json:"alias_id"                         validate:"min=0"`
	AliasAccountID     string                     `json:"alias_account_id"                 validate:"required"`
	APIAccountID       string                     `json:"api_account_id"                   validate:"required"`
	Email              string                     `json:"email"                            validate:"required"`
	PasswordHash       string                     `json:"password"`
	ResetPasswordToken string                     `json:"reset_password_token,omitempty"`
	ResetExpiresAt     *time.Time                 `json:"reset_password_expires,omitempty"`
	Plan               string                     `json:"plan,omitempty"`
	Payments           map[string]billing.Payment `json:"payments,omitempty"               validate:"omitempty,dive"`
	Active             *bool                      `json:"active,omitempty"`
	PlanEndDate        time.Time                  `json:"plan_end_date"`
	IsAdmin            bool                       `json:"is_admin,omitempty"`
}

func (u *User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

func (u *User) IsActive() bool {
	return u.Active != nil && *u.Active
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Alias is one pre-generated deposit address of a net.
type Alias struct {
	Net     string `json:"net"      validate:"required"`
	AliasID int    `json:"alias_id" validate:"min=0"`
	Alias   string `json:"alias"    validate:"required"`
}
