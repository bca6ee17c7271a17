package events

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// TokenDecimals is the display scale of the rebase token.
const TokenDecimals = 18

// Tokens renders a raw integer amount in whole-token units for consumers
// that want display precision instead of wei-style integers.
func Tokens(v *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(v, -TokenDecimals)
}

type DepositCompleted struct {
	EventID      string          `json:"event_id"`
	Account      string          `json:"account"`
	Amount       string          `json:"amount"`
	AmountTokens decimal.Decimal `json:"amount_tokens"`
	Rate         string          `json:"rate"`
	OccurredAt   time.Time       `json:"occurred_at"`
}
