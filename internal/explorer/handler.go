// AngelaMos | 2026
// handler.go

package explorer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ccdexplorer/ccdexplorer-api/internal/cache"
	"github.com/ccdexplorer/ccdexplorer-api/internal/config"
	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
	"github.com/ccdexplorer/ccdexplorer-api/internal/metrics"
)

var nets = []string{core.DBMainnet, core.DBTestnet}

// Handler serves the v2 read routes the account pages and the payment
// scanner depend on. Responses are bare JSON like the rest of v2.
type Handler struct {
	repo   Repository
	rates  *cache.Value[map[string]ExchangeRate]
	blocks map[string]*cache.Value[map[string]BlockPerDay]
}

func NewHandler(repo Repository, cfg config.CacheConfig, m *metrics.Metrics) *Handler {
	h := &Handler{
		repo:   repo,
		blocks: make(map[string]*cache.Value[map[string]BlockPerDay], len(nets)),
	}

	h.rates = cache.New(
		"exchange_rates",
		cfg.ExchangeRatesTTL,
		repo.ExchangeRates,
		cache.WithLoadHook[map[string]ExchangeRate](loadHook(m, "exchange_rates")),
	)

	for _, net := range nets {
		h.blocks[net] = cache.New(
			"blocks_per_day_"+net,
			cfg.BlocksPerDayTTL,
			func(ctx context.Context) (map[string]BlockPerDay, error) {
				return repo.BlocksPerDay(ctx, net)
			},
			cache.WithLoadHook[map[string]BlockPerDay](loadHook(m, "blocks_per_day")),
		)
	}

	return h
}

func loadHook(m *metrics.Metrics, name string) func(error) {
	return func(err error) {
		if err != nil {
			slog.Warn("cache refresh failed", "cache", name, "error", err)
		}
		if m != nil {
			m.CacheLoaded(name, err)
		}
	}
}

// RegisterRoutes mounts relative to the v2 router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/markets/rates", h.GetExchangeRates)
	r.Get("/{net}/transaction/{tx_hash}", h.GetTransaction)
	r.Get("/{net}/blocks-per-day/{date}", h.GetBlocksPerDay)
}

func netParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	net := chi.URLParam(r, "net")
	if net != core.DBMainnet && net != core.DBTestnet {
		core.NotFound(w, "net")
		return "", false
	}
	return net, true
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	net, ok := netParam(w, r)
	if !ok {
		return
	}
	txHash := chi.URLParam(r, "tx_hash")

	tx, err := h.repo.Transaction(r.Context(), net, txHash)
	if err != nil {
		writeError(w, err, "transaction")
		return
	}

	core.JSON(w, http.StatusOK, tx)
}

func (h *Handler) GetExchangeRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.rates.Get(r.Context())
	if err != nil {
		writeError(w, err, "exchange rates")
		return
	}

	core.JSON(w, http.StatusOK, rates)
}

func (h *Handler) GetBlocksPerDay(w http.ResponseWriter, r *http.Request) {
	net, ok := netParam(w, r)
	if !ok {
		return
	}

	days, err := h.blocks[net].Get(r.Context())
	if err != nil {
		writeError(w, err, "blocks per day")
		return
	}

	day, found := days[chi.URLParam(r, "date")]
	if !found {
		core.NotFound(w, "date")
		return
	}

	core.JSON(w, http.StatusOK, day)
}

func writeError(w http.ResponseWriter, err error, resource string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, resource)
	case errors.Is(err, core.ErrInvalidDocument):
		slog.Error("stored document is malformed", "resource", resource, "error", err)
		core.JSONError(w, core.UpstreamError(resource+" data is malformed"))
	default:
		core.InternalServerError(w, err)
	}
}
