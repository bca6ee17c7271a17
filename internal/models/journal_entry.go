package models

import (
	"math/big"
	"time"
)

type EntryKind string

const (
	EntryMint        EntryKind = "mint"
	EntryBurn        EntryKind = "burn"
	EntryInterest    EntryKind = "interest"
	EntryTransferOut EntryKind = "transfer_out"
	EntryTransferIn  EntryKind = "transfer_in"
)

// JournalEntry is one leg of a principal-affecting operation. Interest
// realization writes its own entry so the journal accounts for every unit
// of supply.
type JournalEntry struct {
	ID        string    // unique identifier
	AccountID string    // which account this entry belongs to
	Kind      EntryKind // mint, burn, interest, transfer_out, transfer_in
	Amount    *big.Int  // always non-negative; Kind carries the direction
	Rate      *big.Int  // the account's rate at the time of the entry
	CreatedAt time.Time // timestamp
}
