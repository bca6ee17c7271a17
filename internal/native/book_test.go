package native_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rebasefi/rebase-token-ledger/internal/native"
)

func TestCreditAndDebit(t *testing.T) {
	book := native.NewBook()

	book.Credit("alice", big.NewInt(100))
	require.Equal(t, big.NewInt(100), book.Balance("alice"))

	require.NoError(t, book.Debit("alice", big.NewInt(40)))
	require.Equal(t, big.NewInt(60), book.Balance("alice"))
}

func TestDebitInsufficient(t *testing.T) {
	book := native.NewBook()

	book.Credit("alice", big.NewInt(10))
	require.Error(t, book.Debit("alice", big.NewInt(11)))
	require.Equal(t, big.NewInt(10), book.Balance("alice"), "a failed debit must not change the balance")
	require.Error(t, book.Debit("nobody", big.NewInt(1)))
}

func TestPayCreditsRecipient(t *testing.T) {
	book := native.NewBook()

	require.NoError(t, book.Pay(context.Background(), "alice", big.NewInt(25)))
	require.Equal(t, big.NewInt(25), book.Balance("alice"))
}
