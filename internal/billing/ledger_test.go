// AngelaMos | 2026
// ledger_test.go

package billing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ccdexplorer/ccdexplorer-api/internal/plan"
)

const alias = "3Aliasxyz"

var euroe = TokenTag{ID: "EUROe", Contracts: []string{"<9390,0>"}, Decimals: 6}

func transfer(t *testing.T, hash, to, amount string) TransferEvent {
	t.Helper()
	raw := `{"tx_hash":"` + hash + `","date":"2026-01-10","token_address":"<9390,0>-",` +
		`"result":{"to_address":"` + to + `","token_amount":"` + amount + `"}}`
	var ev TransferEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))
	return ev
}

func mustPlan(t *testing.T, name string) plan.Plan {
	t.Helper()
	p, ok := plan.Lookup(name)
	require.True(t, ok)
	return p
}

func TestBuildPaymentsScalesAmountAndDays(t *testing.T) {
	events := []TransferEvent{transfer(t, "tx1", alias, "100000000")}

	standard := BuildPayments(euroe, mustPlan(t, "standard"), alias, events, nil)
	require.Contains(t, standard, "tx1")
	assert.InDelta(t, 100.0, standard["tx1"].Amount, 1e-9)
	assert.InDelta(t, 100.0, standard["tx1"].PaidDays, 1e-9)
	assert.Equal(t, "2026-01-10", standard["tx1"].TxDate)

	pro := BuildPayments(euroe, mustPlan(t, "pro"), alias, events, nil)
	assert.InDelta(t, 100.0/3, pro["tx1"].PaidDays, 1e-9)
}

func TestBuildPaymentsIgnoresOtherTokensAndRecipients(t *testing.T) {
	other := transfer(t, "tx2", alias, "5000000")
	other.TokenAddress = "<1234,0>-"

	events := []TransferEvent{
		transfer(t, "tx1", alias, "1000000"),
		other,
		transfer(t, "tx3", "3SomeoneElse", "1000000"),
	}

	got := BuildPayments(euroe, mustPlan(t, "standard"), alias, events, nil)

	assert.Len(t, got, 1)
	assert.Contains(t, got, "tx1")
}

func TestBuildPaymentsZeroAmountBuysNothing(t *testing.T) {
	got := BuildPayments(euroe, mustPlan(t, "standard"), alias,
		[]TransferEvent{transfer(t, "tx1", alias, "0")}, nil)

	assert.Zero(t, got["tx1"].PaidDays)
	assert.Zero(t, got["tx1"].Amount)
}

func TestBuildPaymentsKeepsManualOverride(t *testing.T) {
	prior := map[string]Payment{
		"tx1": {TxHash: "tx1", TxDate: "2026-01-10", PaidDays: 1, ManualOverride: intPtr(10)},
		"gone": {TxHash: "gone", TxDate: "2025-01-01", PaidDays: 3},
	}

	got := BuildPayments(euroe, mustPlan(t, "standard"), alias,
		[]TransferEvent{transfer(t, "tx1", alias, "50000000")}, prior)

	require.Len(t, got, 1)
	require.NotNil(t, got["tx1"].ManualOverride)
	assert.Equal(t, 10, *got["tx1"].ManualOverride)
	assert.InDelta(t, 50.0, got["tx1"].PaidDays, 1e-9)
	assert.InDelta(t, 10.0, got["tx1"].Days(), 0)

	*prior["tx1"].ManualOverride = 99
	assert.Equal(t, 10, *got["tx1"].ManualOverride)
}

func TestBuildPaymentsIsIdempotent(t *testing.T) {
	events := []TransferEvent{
		transfer(t, "tx1", alias, "1000000"),
		transfer(t, "tx2", alias, "2500000"),
	}
	p := mustPlan(t, "standard")

	first := BuildPayments(euroe, p, alias, events, nil)
	second := BuildPayments(euroe, p, alias, events, first)

	assert.Equal(t, first, second)
}

func TestTokenAmountAcceptsStringsAndNumbers(t *testing.T) {
	cases := map[string]string{
		`"123456789012345678901234567890"`: "123456789012345678901234567890",
		`42`:                               "42",
		`null`:                             "0",
	}
	for raw, want := range cases {
		var a TokenAmount
		require.NoError(t, json.Unmarshal([]byte(raw), &a), raw)
		assert.Equal(t, want, a.RatString())
	}

	var bad TokenAmount
	assert.Error(t, json.Unmarshal([]byte(`"lots"`), &bad))
}

type mockLedgerSource struct {
	mock.Mock
}

func (m *mockLedgerSource) TokenTag(ctx context.Context, tagID string) (*TokenTag, error) {
	args := m.Called(ctx, tagID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TokenTag), args.Error(1)
}

func (m *mockLedgerSource) TransfersTo(
	ctx context.Context,
	tokenAddress, to string,
) ([]TransferEvent, error) {
	args := m.Called(ctx, tokenAddress, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]TransferEvent), args.Error(1)
}

func TestScanReadsTagThenTransfers(t *testing.T) {
	src := &mockLedgerSource{}
	tag := euroe
	src.On("TokenTag", mock.Anything, "EUROe").Return(&tag, nil)
	src.On("TransfersTo", mock.Anything, "<9390,0>-", alias).
		Return([]TransferEvent{transfer(t, "tx1", alias, "3000000")}, nil)

	got, err := NewLedger(src, "EUROe").Scan(context.Background(), "pro", alias, nil)

	require.NoError(t, err)
	assert.InDelta(t, 1.0, got["tx1"].PaidDays, 1e-9)
	src.AssertExpectations(t)
}

func TestScanUnknownPlan(t *testing.T) {
	src := &mockLedgerSource{}

	_, err := NewLedger(src, "EUROe").Scan(context.Background(), "gold", alias, nil)

	assert.ErrorIs(t, err, ErrUnknownPlan)
	src.AssertNotCalled(t, "TokenTag", mock.Anything, mock.Anything)
}

func TestScanPropagatesSourceErrors(t *testing.T) {
	src := &mockLedgerSource{}
	boom := errors.New("db down")
	src.On("TokenTag", mock.Anything, "EUROe").Return(nil, boom)

	_, err := NewLedger(src, "EUROe").Scan(context.Background(), "standard", alias, nil)

	assert.ErrorIs(t, err, boom)
}
