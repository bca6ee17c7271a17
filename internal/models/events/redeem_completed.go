package events

import (
	"time"

	"github.com/shopspring/decimal"
)

type RedeemCompleted struct {
	EventID      string          `json:"event_id"`
	Account      string          `json:"account"`
	Amount       string          `json:"amount"`
	AmountTokens decimal.Decimal `json:"amount_tokens"`
	OccurredAt   time.Time       `json:"occurred_at"`
}
