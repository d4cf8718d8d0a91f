// AngelaMos | 2026
// slottime.go

package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
)

const APIKeyHeader = "x-ccdexplorer-key"

// HTTPSlotTimes asks the explorer API for the classified transaction and
// reads the slot time of the block it was finalized in.
type HTTPSlotTimes struct {
	client  *http.Client
	baseURL string
	net     string
	apiKey  string
}

func NewHTTPSlotTimes(client *http.Client, baseURL, net, apiKey string) *HTTPSlotTimes {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSlotTimes{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		net:     net,
		apiKey:  apiKey,
	}
}

type classifiedTransaction struct {
	BlockInfo struct {
		SlotTime string `json:"slot_time"`
	} `json:"block_info"`
}

func (h *HTTPSlotTimes) SlotTime(ctx context.Context, txHash string) (time.Time, error) {
	endpoint := fmt.Sprintf(
		"%s/v2/%s/transaction/%s", h.baseURL, h.net, url.PathEscape(txHash),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if h.apiKey != "" {
		req.Header.Set(APIKeyHeader, h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: get transaction: %v", core.ErrUpstream, err)
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck // read-only body
	}()

	if resp.StatusCode != http.StatusOK {
		//nolint:errcheck // drain for connection reuse
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return time.Time{}, fmt.Errorf(
			"%w: get transaction %s: status %d", core.ErrUpstream, txHash, resp.StatusCode,
		)
	}

	var tx classifiedTransaction
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return time.Time{}, fmt.Errorf("%w: decode transaction %s: %v", core.ErrUpstream, txHash, err)
	}

	slot, ok := parseTimestamp(tx.BlockInfo.SlotTime)
	if !ok {
		return time.Time{}, fmt.Errorf(
			"%w: transaction %s: bad slot time %q", core.ErrUpstream, txHash, tx.BlockInfo.SlotTime,
		)
	}

	return slot, nil
}
