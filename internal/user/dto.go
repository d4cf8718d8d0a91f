// AngelaMos | 2026
// dto.go

package user

import (
	"time"

	"github.com/ccdexplorer/ccdexplorer-api/internal/apikey"
	"github.com/ccdexplorer/ccdexplorer-api/internal/billing"
	"github.com/ccdexplorer/ccdexplorer-api/internal/plan"
)

// sampleKey is shown in the usage examples of accounts without a key.
const sampleKey = "528e6511-d55a-49d3-a4f1-fcce5eef03cc"

type SetPlanRequest struct {
	Plan string `json:"plan" validate:"omitempty,max=32"`
}

// WindowUsage is what is left of one quota window.
type WindowUsage struct {
	Limit     int64     `json:"limit"`
	Remaining int64     `json:"remaining"`
	ResetsIn  int64     `json:"resets_in_seconds"`
	ResetsAt  time.Time `json:"resets_at"`
}

type AccountSummary struct {
	APIAccountID   string            `json:"api_account_id"`
	Email          string            `json:"email"`
	Plan           string            `json:"plan,omitempty"`
	PlanEndDate    time.Time         `json:"plan_end_date"`
	Active         bool              `json:"active"`
	AliasAccountID string            `json:"alias_account_id"`
	Payments       []billing.Payment `json:"payments"`
	Keys           []apikey.Summary  `json:"keys"`
	SampleKey      string            `json:"sample_key"`
	DailyLimit     *int64            `json:"plan_daily_limit"`
	MinuteLimit    *int64            `json:"plan_min_limit"`
	DailyFee       *float64          `json:"plan_daily_fee"`
	Day            *WindowUsage      `json:"day_calls,omitempty"`
	Minute         *WindowUsage      `json:"min_calls,omitempty"`
	Net            string            `json:"net"`
	Stale          bool              `json:"stale,omitempty"`
}

type KeysResponse struct {
	Keys []apikey.Summary `json:"user_api_keys"`
}

// UserResponse is the operator view of an account.
type UserResponse struct {
	APIAccountID   string                     `json:"api_account_id"`
	Email          string                     `json:"email"`
	Role           string                     `json:"role"`
	Plan           string                     `json:"plan,omitempty"`
	PlanEndDate    time.Time                  `json:"plan_end_date"`
	Active         bool                       `json:"active"`
	AliasID        int                        `json:"alias_id"`
	AliasAccountID string                     `json:"alias_account_id"`
	Payments       map[string]billing.Payment `json:"payments"`
}

type ListUsersParams struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search"`
	Plan     string `json:"plan"`
}

func (p *ListUsersParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListUsersParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToUserResponse(u *User) UserResponse {
	payments := u.Payments
	if payments == nil {
		payments = map[string]billing.Payment{}
	}
	return UserResponse{
		APIAccountID:   u.ID,
		Email:          u.Email,
		Role:           u.Role(),
		Plan:           u.Plan,
		PlanEndDate:    u.PlanEndDate,
		Active:         u.IsActive(),
		AliasID:        u.AliasID,
		AliasAccountID: u.AliasAccountID,
		Payments:       payments,
	}
}

func ToUserResponseList(users []User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, ToUserResponse(&users[i]))
	}
	return responses
}

func planLimits(name string) (day, minute *int64, fee *float64) {
	p, ok := plan.Lookup(name)
	if !ok {
		return nil, nil, nil
	}
	if p.DayQuota > 0 {
		d := p.DayQuota
		day = &d
	}
	if p.MinuteQuota > 0 {
		m := p.MinuteQuota
		minute = &m
	}
	f := p.DailyFee()
	return day, minute, &f
}
