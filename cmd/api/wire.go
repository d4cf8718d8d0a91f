// AngelaMos | 2026
// wire.go

package main

import (
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/ccdexplorer/ccdexplorer-api/internal/billing"
	"github.com/ccdexplorer/ccdexplorer-api/internal/config"
	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
	"github.com/ccdexplorer/ccdexplorer-api/internal/metrics"
	"github.com/ccdexplorer/ccdexplorer-api/internal/user"
)

// newBilling builds the subscription service shared by serve and recompute.
func newBilling(
	cfg *config.Config,
	docs *core.DocumentStore,
	users user.Repository,
	keys billing.KeyExtender,
	m *metrics.Metrics,
	tracer trace.Tracer,
) *billing.Service {
	ledger := billing.NewLedger(
		billing.NewStoreLedger(docs, cfg.Explorer.Net),
		cfg.Explorer.SettlementToken,
	)

	slots := billing.NewHTTPSlotTimes(
		&http.Client{Timeout: cfg.Explorer.RequestTimeout},
		cfg.Explorer.APIURL,
		cfg.Explorer.Net,
		cfg.Explorer.APIKey,
	)

	opts := []billing.ServiceOption{
		billing.WithKeyExtender(keys),
		billing.WithMetrics(m),
	}
	if tracer != nil {
		opts = append(opts, billing.WithTracer(tracer))
	}

	return billing.NewService(
		user.NewBillingStore(users),
		ledger,
		billing.NewCalculator(slots),
		opts...,
	)
}
