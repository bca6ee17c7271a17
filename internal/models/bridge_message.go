package models

import (
	"math/big"
	"time"
)

// BridgeMessage is the payload a bridge pool emits on lock and consumes on
// release. Rate is the account's frozen per-account rate on the source
// chain; the releasing side must install it verbatim instead of the
// destination chain's global rate.
type BridgeMessage struct {
	MessageID   string    `json:"message_id"`
	Account     string    `json:"account"`
	Amount      *big.Int  `json:"amount"`
	Rate        *big.Int  `json:"rate"`
	SourceChain string    `json:"source_chain"`
	DestChain   string    `json:"dest_chain"`
	LockedAt    time.Time `json:"locked_at"`
}
