package models

import (
	"math/big"
	"time"
)

// Precision is the fixed-point scale shared by rates and the accrual factor.
// A rate equal to Precision would accrue 100% of the principal per second.
var Precision = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// DefaultGlobalRate is the protocol's starting interest rate: 5e10, i.e.
// 5e-8 of the principal per second.
var DefaultGlobalRate = big.NewInt(50_000_000_000)

// Account is the rebase bookkeeping for a single participant.
//
// Principal is the raw minted-minus-burned balance with no time adjustment.
// Rate is the interest rate frozen into the account the last time it went
// from zero to a positive accrued balance. LastUpdate marks when pending
// interest was last realized into Principal.
type Account struct {
	ID         string
	Principal  *big.Int
	Rate       *big.Int
	LastUpdate time.Time
}

// Clone returns a deep copy so callers can stage changes without touching
// the stored account.
func (a *Account) Clone() *Account {
	return &Account{
		ID:         a.ID,
		Principal:  new(big.Int).Set(a.Principal),
		Rate:       new(big.Int).Set(a.Rate),
		LastUpdate: a.LastUpdate,
	}
}
