package events

import (
	"time"

	"github.com/shopspring/decimal"
)

type BridgeReleased struct {
	EventID      string          `json:"event_id"`
	MessageID    string          `json:"message_id"`
	Account      string          `json:"account"`
	Amount       string          `json:"amount"`
	AmountTokens decimal.Decimal `json:"amount_tokens"`
	Rate         string          `json:"rate"`
	SourceChain  string          `json:"source_chain"`
	OccurredAt   time.Time       `json:"occurred_at"`
}
