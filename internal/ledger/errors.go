package ledger

import (
	"errors"
	"fmt"
	"math/big"
)

// Capability names used in authorization errors.
const (
	CapabilityMintBurn = "mint/burn role"
	CapabilityOwner    = "owner"
)

// ErrInvalidAmount rejects nil or negative amounts before any state is read.
var ErrInvalidAmount = errors.New("amount must be positive")

// AuthorizationError reports a caller lacking the capability an operation
// requires. Nothing is mutated when it is returned.
type AuthorizationError struct {
	Caller     string
	Capability string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("account %q does not hold the %s capability", e.Caller, e.Capability)
}

// RateIncreaseError reports an attempt to raise the global rate, which can
// only ever decrease.
type RateIncreaseError struct {
	Current  *big.Int
	Proposed *big.Int
}

func (e *RateIncreaseError) Error() string {
	return fmt.Sprintf("global rate can only decrease: current %s, proposed %s", e.Current, e.Proposed)
}

// InsufficientBalanceError reports a burn or transfer exceeding the
// account's just-realized principal.
type InsufficientBalanceError struct {
	Account   string
	Requested *big.Int
	Available *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("account %q holds %s, requested %s", e.Account, e.Available, e.Requested)
}
