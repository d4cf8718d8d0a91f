// AngelaMos | 2026
// entity.go

package apikey

import (
	"time"
)

// APIKey grants metered /v2 access. The key string is the document id.
// APIGroup is the plan the key was issued under, or a non-plan group such
// as the site's own key, which is not limited.
type APIKey struct {
	ID           string    `json:"_id"              validate:"required"`
	Scope        string    `json:"scope"            validate:"required"`
	APIAccountID string    `json:"api_account_id"   validate:"required"`
	APIGroup     string    `json:"api_group"        validate:"required"`
	EndDate      time.Time `json:"api_key_end_date"`
}

func (k APIKey) ActiveAt(t time.Time) bool {
	return !k.EndDate.Before(t)
}

// Summary is the {key, tier} pair the account page lists.
type Summary struct {
	Key  string `json:"key"`
	Tier string `json:"tier"`
}

func (k APIKey) Summary() Summary {
	return Summary{Key: k.ID, Tier: k.APIGroup}
}
