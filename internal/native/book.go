package native

import (
	"context"
	"fmt"
	"math/big"
	"sync"
)

// Book tracks native-asset balances per account, standing in for the host
// environment's value transfer. The vault pays redemptions out through it.
type Book struct {
	mu       sync.Mutex
	balances map[string]*big.Int
}

func NewBook() *Book {
	return &Book{
		balances: make(map[string]*big.Int),
	}
}

func (b *Book) Credit(account string, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.balances[account]
	if !ok {
		bal = new(big.Int)
		b.balances[account] = bal
	}
	bal.Add(bal, amount)
}

// Debit removes native value from an account, failing without effect when
// the balance is short.
func (b *Book) Debit(account string, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.balances[account]
	if !ok || bal.Cmp(amount) < 0 {
		return fmt.Errorf("account %q has insufficient native balance", account)
	}
	bal.Sub(bal, amount)
	return nil
}

func (b *Book) Balance(account string) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.balances[account]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(bal)
}

// Pay credits the recipient; this is the vault's payout sink.
func (b *Book) Pay(ctx context.Context, account string, amount *big.Int) error {
	b.Credit(account, amount)
	return nil
}
