// AngelaMos | 2026
// catalog.go

package plan

import (
	"strings"
	"time"
)

// Window is a fixed rate-limit window.
type Window string

const (
	WindowSecond Window = "second"
	WindowMinute Window = "minute"
	WindowDay    Window = "day"
)

func (w Window) Duration() time.Duration {
	switch w {
	case WindowSecond:
		return time.Second
	case WindowMinute:
		return time.Minute
	case WindowDay:
		return 24 * time.Hour
	}
	return 0
}

const (
	Free         = "free"
	Standard     = "standard"
	Pro          = "pro"
	Unrestricted = "unrestricted"
)

// Plan is one subscription tier. A zero quota means the window is not
// limited.
type Plan struct {
	Name        string
	DisplayName string
	PricePerDay float64
	DayQuota    int64
	MinuteQuota int64
	SecondQuota int64
}

type Quota struct {
	Window Window
	Limit  int64
}

// Quotas lists the limited windows, shortest first.
func (p Plan) Quotas() []Quota {
	var out []Quota
	if p.SecondQuota > 0 {
		out = append(out, Quota{Window: WindowSecond, Limit: p.SecondQuota})
	}
	if p.MinuteQuota > 0 {
		out = append(out, Quota{Window: WindowMinute, Limit: p.MinuteQuota})
	}
	if p.DayQuota > 0 {
		out = append(out, Quota{Window: WindowDay, Limit: p.DayQuota})
	}
	return out
}

// DailyFee is what a day on this plan costs in the settlement token.
func (p Plan) DailyFee() float64 {
	return p.PricePerDay
}

var catalog = []Plan{
	{
		Name:        Free,
		DisplayName: "Free",
		PricePerDay: 0.0000001,
		DayQuota:    100,
		MinuteQuota: 2,
	},
	{
		Name:        Standard,
		DisplayName: "Standard",
		PricePerDay: 1,
		DayQuota:    10_000,
		SecondQuota: 5,
	},
	{
		Name:        Pro,
		DisplayName: "Pro",
		PricePerDay: 3,
		DayQuota:    100_000,
		SecondQuota: 5,
	},
	{
		Name:        Unrestricted,
		DisplayName: "Unrestricted",
		PricePerDay: 0.0000001,
		SecondQuota: 5,
	},
}

var byName = func() map[string]Plan {
	m := make(map[string]Plan, len(catalog))
	for _, p := range catalog {
		m[p.Name] = p
	}
	return m
}()

// Lookup accepts both the stored lowercase name and the display name.
func Lookup(name string) (Plan, bool) {
	p, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

func All() []Plan {
	out := make([]Plan, len(catalog))
	copy(out, catalog)
	return out
}

func IsFree(name string) bool {
	p, ok := Lookup(name)
	return ok && p.Name == Free
}

// Row is one line of the public plan table.
type Row struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	PricePerDay float64 `json:"price_per_day"`
	DayLimit    *int64  `json:"day_limit"`
	MinuteLimit *int64  `json:"minute_limit"`
	SecondLimit *int64  `json:"second_limit"`
}

func Display() []Row {
	rows := make([]Row, 0, len(catalog))
	for _, p := range catalog {
		rows = append(rows, Row{
			Name:        p.Name,
			DisplayName: p.DisplayName,
			PricePerDay: p.PricePerDay,
			DayLimit:    limit(p.DayQuota),
			MinuteLimit: limit(p.MinuteQuota),
			SecondLimit: limit(p.SecondQuota),
		})
	}
	return rows
}

func limit(n int64) *int64 {
	if n <= 0 {
		return nil
	}
	return &n
}
