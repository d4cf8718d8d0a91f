// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ccdexplorer/ccdexplorer-api/internal/billing"
	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
	"github.com/ccdexplorer/ccdexplorer-api/internal/middleware"
	"github.com/ccdexplorer/ccdexplorer-api/internal/user"
)

type Accounts interface {
	Get(ctx context.Context, accountID string) (*user.User, error)
	ListUsers(ctx context.Context, params user.ListUsersParams) ([]user.User, int, error)
	CountByPlan(ctx context.Context) (map[string]int, error)
}

type Subscriptions interface {
	Refresh(ctx context.Context, accountID string) (*billing.Subscription, error)
	SetOverride(ctx context.Context, accountID, txHash string, days *int) (*billing.Subscription, error)
}

type Handler struct {
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	redisPing  func(ctx context.Context) error
	dbPing     func(ctx context.Context) error
	nodePing   func(ctx context.Context) error
	accounts   Accounts
	subs       Subscriptions
}

type HandlerConfig struct {
	DBStats       func() sql.DBStats
	RedisStats    func() *redis.PoolStats
	RedisPing     func(ctx context.Context) error
	DBPing        func(ctx context.Context) error
	NodePing      func(ctx context.Context) error
	Accounts      Accounts
	Subscriptions Subscriptions
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		redisPing:  cfg.RedisPing,
		dbPing:     cfg.DBPing,
		nodePing:   cfg.NodePing,
		accounts:   cfg.Accounts,
		subs:       cfg.Subscriptions,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(middleware.RequireAdmin)

		r.Get("/stats", h.GetSystemStats)
		r.Get("/stats/db", h.GetDatabaseStats)
		r.Get("/stats/redis", h.GetRedisStats)
		r.Get("/stats/runtime", h.GetRuntimeStats)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Get("/{accountID}", h.GetUser)
			r.Post("/{accountID}/refresh", h.RefreshUser)
			r.Put("/{accountID}/payments/{txHash}/override", h.SetOverride)
		})
	})
}

func healthy(ctx context.Context, ping func(ctx context.Context) error) bool {
	if ping == nil {
		return true
	}
	return ping(ctx) == nil
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := h.accounts.CountByPlan(ctx)
	if err != nil {
		slog.Warn("count accounts by plan", "error", err)
	}

	response := SystemStatsResponse{
		Database: DatabaseStatus{
			Healthy: healthy(ctx, h.dbPing),
			Stats:   h.getDBStats(),
		},
		Redis: RedisStatus{
			Healthy: healthy(ctx, h.redisPing),
			Stats:   h.getRedisStats(),
		},
		Node: NodeStatus{
			Healthy: healthy(ctx, h.nodePing),
		},
		Runtime:  readRuntimeStats(),
		Accounts: counts,
	}

	core.OK(w, response)
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.getDBStats())
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, h.getRedisStats())
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, readRuntimeStats())
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))          //nolint:errcheck // defaults on bad input
	pageSize, _ := strconv.Atoi(q.Get("page_size")) //nolint:errcheck // defaults on bad input

	params := user.ListUsersParams{
		Page:     page,
		PageSize: pageSize,
		Search:   q.Get("search"),
		Plan:     q.Get("plan"),
	}
	params.Normalize()

	users, total, err := h.accounts.ListUsers(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, user.ToUserResponseList(users), params.Page, params.PageSize, total)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.accounts.Get(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, user.ToUserResponse(u))
}

func (h *Handler) RefreshUser(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subs.Refresh(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, sub)
}

func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	var req OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	accountID := chi.URLParam(r, "accountID")
	txHash := chi.URLParam(r, "txHash")

	sub, err := h.subs.SetOverride(r.Context(), accountID, txHash, req.Days)
	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("payment override set",
		"api_account_id", accountID,
		"tx_hash", txHash,
		"days", req.Days,
		"operator", middleware.GetUserID(r.Context()),
	)
	core.OK(w, sub)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "account or payment")
	case errors.Is(err, core.ErrUpstream):
		core.JSONError(w, core.UpstreamError("payment data is unavailable, try again later"))
	default:
		core.InternalServerError(w, err)
	}
}

func readRuntimeStats() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
		MaxIdleClosed:      stats.MaxIdleClosed,
		MaxIdleTimeClosed:  stats.MaxIdleTimeClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}
