package models

import "math/big"

// AmountRequest is either a concrete amount or "everything the account
// holds". The component that owns the relevant balance snapshot resolves
// All to a concrete value: the vault for redemptions, the ledger for
// transfers.
type AmountRequest struct {
	all   bool
	value *big.Int
}

// Exact requests a concrete amount. The value is copied.
func Exact(v *big.Int) AmountRequest {
	return AmountRequest{value: new(big.Int).Set(v)}
}

// All requests the account's full balance.
func All() AmountRequest {
	return AmountRequest{all: true}
}

func (a AmountRequest) IsAll() bool { return a.all }

// Value returns the requested amount for an Exact request, nil for All.
func (a AmountRequest) Value() *big.Int {
	if a.all || a.value == nil {
		return nil
	}
	return new(big.Int).Set(a.value)
}
