// AngelaMos | 2026
// entity.go

package explorer

import (
	"github.com/ccdexplorer/ccdexplorer-api/internal/core"
)

var (
	exchangeRatesCollection = core.Collection(core.DBUtilities, "exchange_rates")
)

func transactionsCollection(net string) string {
	return core.Collection(net, "transactions")
}

func blocksPerDayCollection(net string) string {
	return core.Collection(net, "blocks_per_day")
}

// Transaction holds the fields a classified transaction must carry to be
// served. The stored document is returned unchanged.
type Transaction struct {
	ID        string `json:"_id"        validate:"required"`
	BlockInfo struct {
		Height   int64  `json:"height"    validate:"min=0"`
		SlotTime string `json:"slot_time" validate:"required"`
	} `json:"block_info"`
}

type ExchangeRate struct {
	Token     string  `json:"token"     validate:"required"`
	Rate      float64 `json:"rate"      validate:"gte=0"`
	Source    string  `json:"source,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
}

// BlockPerDay is the block height range finalized on one calendar day.
type BlockPerDay struct {
	ID                    string `json:"_id"                    validate:"required"`
	Date                  string `json:"date"                   validate:"required"`
	HeightForFirstBlock   int64  `json:"height_for_first_block" validate:"min=0"`
	HeightForLastBlock    int64  `json:"height_for_last_block"  validate:"gtefield=HeightForFirstBlock"`
	SlotTimeForFirstBlock string `json:"slot_time_for_first_block"`
	SlotTimeForLastBlock  string `json:"slot_time_for_last_block"`
	HashForFirstBlock     string `json:"hash_for_first_block"`
	HashForLastBlock      string `json:"hash_for_last_block"`
}
