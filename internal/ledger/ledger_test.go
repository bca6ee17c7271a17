package ledger_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rebasefi/rebase-token-ledger/internal/ledger"
	"github.com/rebasefi/rebase-token-ledger/internal/models"
	"github.com/rebasefi/rebase-token-ledger/internal/storage/memory"
)

const (
	owner  = "owner"
	minter = "minter"
	alice  = "alice"
	bob    = "bob"
	carol  = "carol"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newLedger(t *testing.T) (*ledger.Ledger, *fakeClock, *memory.MemoryJournalStore) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := memory.NewMemoryJournalStore()
	l := ledger.New("RBT", owner, store, clock)
	require.NoError(t, l.GrantRole(owner, minter))
	return l, clock, store
}

func bi(v int64) *big.Int { return big.NewInt(v) }

// one whole token at 18 decimals
var oneToken = new(big.Int).Exp(bi(10), bi(18), nil)

// interest accrued by principal at rate over elapsed seconds, truncating
func interest(principal, rate *big.Int, elapsed int64) *big.Int {
	out := new(big.Int).Mul(principal, rate)
	out.Mul(out, bi(elapsed))
	return out.Div(out, models.Precision)
}

func TestLinearAccrual(t *testing.T) {
	l, clock, _ := newLedger(t)
	ctx := context.Background()

	rate := new(big.Int).Set(models.DefaultGlobalRate)
	require.NoError(t, l.Mint(ctx, minter, alice, oneToken, rate))
	require.Equal(t, oneToken, l.BalanceOf(alice))

	clock.Advance(time.Hour)
	t1 := l.BalanceOf(alice)
	want := new(big.Int).Add(oneToken, interest(oneToken, rate, 3600))
	require.Equal(t, want, t1)

	clock.Advance(time.Hour)
	t2 := l.BalanceOf(alice)
	diff := new(big.Int).Sub(t2, t1)
	require.Equal(t, interest(oneToken, rate, 3600), diff, "accrual must be linear between queries")

	// queries never realize
	require.Equal(t, oneToken, l.PrincipalBalanceOf(alice))
}

func TestAccrualTruncatesTowardZero(t *testing.T) {
	l, clock, _ := newLedger(t)
	ctx := context.Background()

	// 1 wei at a rate of 1: the factor is 1e18+1, the product 1e18+1,
	// and the division truncates back to 1.
	require.NoError(t, l.Mint(ctx, minter, alice, bi(1), bi(1)))
	clock.Advance(time.Second)
	require.Equal(t, bi(1), l.BalanceOf(alice))
}

func TestRealizationMintsInterestOnDemand(t *testing.T) {
	l, clock, store := newLedger(t)
	ctx := context.Background()

	rate := new(big.Int).Set(models.DefaultGlobalRate)
	require.NoError(t, l.Mint(ctx, minter, alice, oneToken, rate))
	supplyBefore := l.TotalSupply()

	clock.Advance(time.Hour)
	require.NoError(t, l.Mint(ctx, minter, alice, bi(1), rate))

	accrued := interest(oneToken, rate, 3600)
	wantPrincipal := new(big.Int).Add(oneToken, accrued)
	wantPrincipal.Add(wantPrincipal, bi(1))
	require.Equal(t, wantPrincipal, l.PrincipalBalanceOf(alice))

	wantSupply := new(big.Int).Add(supplyBefore, accrued)
	wantSupply.Add(wantSupply, bi(1))
	require.Equal(t, wantSupply, l.TotalSupply(), "realized interest is a real supply-increasing mint")

	entries, err := store.GetEntriesByAccount(alice)
	require.NoError(t, err)
	var kinds []models.EntryKind
	for _, e := range entries {
		kinds = append(kinds, e.Kind)
	}
	require.Equal(t, []models.EntryKind{models.EntryMint, models.EntryInterest, models.EntryMint}, kinds)
}

func TestSetGlobalRateOnlyDecreases(t *testing.T) {
	l, _, _ := newLedger(t)

	lower := bi(40_000_000_000)
	require.NoError(t, l.SetGlobalRate(owner, lower))
	require.Equal(t, lower, l.GlobalRate())

	higher := bi(60_000_000_000)
	err := l.SetGlobalRate(owner, higher)
	var rateErr *ledger.RateIncreaseError
	require.ErrorAs(t, err, &rateErr)
	require.Equal(t, lower, rateErr.Current)
	require.Equal(t, higher, rateErr.Proposed)
	require.Equal(t, lower, l.GlobalRate(), "rejected increase must not change the rate")

	t.Run("equal rate is accepted", func(t *testing.T) {
		require.NoError(t, l.SetGlobalRate(owner, lower))
	})

	t.Run("non-owner is rejected", func(t *testing.T) {
		err := l.SetGlobalRate(alice, bi(1))
		var authErr *ledger.AuthorizationError
		require.ErrorAs(t, err, &authErr)
		require.Equal(t, lower, l.GlobalRate())
	})
}

func TestCapabilityEnforcement(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()

	var authErr *ledger.AuthorizationError

	t.Run("mint requires the role", func(t *testing.T) {
		err := l.Mint(ctx, alice, alice, oneToken, models.DefaultGlobalRate)
		require.ErrorAs(t, err, &authErr)
		require.Zero(t, l.BalanceOf(alice).Sign())
	})

	t.Run("burn requires the role", func(t *testing.T) {
		require.NoError(t, l.Mint(ctx, minter, alice, oneToken, models.DefaultGlobalRate))
		err := l.Burn(ctx, alice, alice, oneToken)
		require.ErrorAs(t, err, &authErr)
		require.Equal(t, oneToken, l.BalanceOf(alice))
	})

	t.Run("role management requires owner", func(t *testing.T) {
		require.ErrorAs(t, l.GrantRole(alice, alice), &authErr)
		require.ErrorAs(t, l.RevokeRole(alice, minter), &authErr)
	})

	t.Run("revoked role stops minting", func(t *testing.T) {
		require.NoError(t, l.RevokeRole(owner, minter))
		err := l.Mint(ctx, minter, alice, oneToken, models.DefaultGlobalRate)
		require.ErrorAs(t, err, &authErr)
	})
}

func TestRatePropagationOnTransfer(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()

	highRate := bi(50_000_000_000)
	lowRate := bi(40_000_000_000)
	require.NoError(t, l.Mint(ctx, minter, alice, oneToken, highRate))
	require.NoError(t, l.Mint(ctx, minter, bob, oneToken, lowRate))

	t.Run("fresh recipient adopts the sender's rate", func(t *testing.T) {
		require.NoError(t, l.Transfer(ctx, alice, carol, models.Exact(bi(1000))))
		require.Equal(t, highRate, l.UserRate(carol))
	})

	t.Run("recipient with balance keeps its own rate", func(t *testing.T) {
		require.NoError(t, l.Transfer(ctx, alice, bob, models.Exact(bi(1000))))
		require.Equal(t, lowRate, l.UserRate(bob))
	})

	t.Run("fully drained recipient is re-assigned on next receipt", func(t *testing.T) {
		require.NoError(t, l.Transfer(ctx, bob, alice, models.All()))
		require.Zero(t, l.BalanceOf(bob).Sign())
		// the rate itself survives the drain until new balance arrives
		require.Equal(t, lowRate, l.UserRate(bob))

		require.NoError(t, l.Transfer(ctx, alice, bob, models.Exact(bi(1000))))
		require.Equal(t, highRate, l.UserRate(bob))
	})
}

func TestTransferAllMovesRealizedBalance(t *testing.T) {
	l, clock, _ := newLedger(t)
	ctx := context.Background()

	rate := new(big.Int).Set(models.DefaultGlobalRate)
	require.NoError(t, l.Mint(ctx, minter, alice, oneToken, rate))
	clock.Advance(time.Hour)

	require.NoError(t, l.Transfer(ctx, alice, bob, models.All()))

	want := new(big.Int).Add(oneToken, interest(oneToken, rate, 3600))
	require.Equal(t, want, l.BalanceOf(bob))
	require.Zero(t, l.BalanceOf(alice).Sign())
	require.Zero(t, l.PrincipalBalanceOf(alice).Sign())
}

func TestTransferConservesPrincipal(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Mint(ctx, minter, alice, oneToken, models.DefaultGlobalRate))
	require.NoError(t, l.Mint(ctx, minter, bob, oneToken, models.DefaultGlobalRate))

	sumBefore := new(big.Int).Add(l.PrincipalBalanceOf(alice), l.PrincipalBalanceOf(bob))
	require.NoError(t, l.Transfer(ctx, alice, bob, models.Exact(bi(123_456))))
	sumAfter := new(big.Int).Add(l.PrincipalBalanceOf(alice), l.PrincipalBalanceOf(bob))

	require.Equal(t, sumBefore, sumAfter, "transfer moves value, never creates or destroys it")
	require.Equal(t, sumBefore, l.TotalSupply())
}

func TestInsufficientBalanceLeavesNoTrace(t *testing.T) {
	l, clock, _ := newLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Mint(ctx, minter, alice, bi(100), models.DefaultGlobalRate))
	clock.Advance(time.Hour)

	var balErr *ledger.InsufficientBalanceError

	t.Run("burn", func(t *testing.T) {
		err := l.Burn(ctx, minter, alice, oneToken)
		require.ErrorAs(t, err, &balErr)
		require.Equal(t, alice, balErr.Account)
		// even the interest realization must not have committed
		require.Equal(t, bi(100), l.PrincipalBalanceOf(alice))
	})

	t.Run("transfer", func(t *testing.T) {
		err := l.Transfer(ctx, alice, bob, models.Exact(oneToken))
		require.ErrorAs(t, err, &balErr)
		require.Equal(t, bi(100), l.PrincipalBalanceOf(alice))
		require.Zero(t, l.BalanceOf(bob).Sign())
	})
}

func TestBurnRealizesBeforeChecking(t *testing.T) {
	l, clock, _ := newLedger(t)
	ctx := context.Background()

	rate := new(big.Int).Set(models.DefaultGlobalRate)
	require.NoError(t, l.Mint(ctx, minter, alice, oneToken, rate))
	clock.Advance(time.Hour)

	// burning slightly more than the original principal succeeds because
	// pending interest is realized first
	accrued := interest(oneToken, rate, 3600)
	amount := new(big.Int).Add(oneToken, accrued)
	require.NoError(t, l.Burn(ctx, minter, alice, amount))
	require.Zero(t, l.BalanceOf(alice).Sign())
	require.Zero(t, l.TotalSupply().Sign())
}

func TestInvalidAmounts(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()

	require.ErrorIs(t, l.Mint(ctx, minter, alice, bi(0), models.DefaultGlobalRate), ledger.ErrInvalidAmount)
	require.ErrorIs(t, l.Mint(ctx, minter, alice, bi(-1), models.DefaultGlobalRate), ledger.ErrInvalidAmount)
	require.ErrorIs(t, l.Burn(ctx, minter, alice, bi(-1)), ledger.ErrInvalidAmount)
	require.ErrorIs(t, l.Transfer(ctx, alice, bob, models.Exact(bi(-1))), ledger.ErrInvalidAmount)
	require.ErrorIs(t, l.SetGlobalRate(owner, bi(-1)), ledger.ErrInvalidAmount)
}

type failingStore struct {
	*memory.MemoryJournalStore
}

func (f *failingStore) SaveEntries(ctx context.Context, entries []models.JournalEntry) error {
	return errors.New("disk full")
}

func TestStoreFailureAbortsOperation(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := ledger.New("RBT", owner, &failingStore{memory.NewMemoryJournalStore()}, clock)
	require.NoError(t, l.GrantRole(owner, minter))

	err := l.Mint(context.Background(), minter, alice, oneToken, models.DefaultGlobalRate)
	require.Error(t, err)
	require.Zero(t, l.BalanceOf(alice).Sign())
	require.Zero(t, l.TotalSupply().Sign())
}

func TestTransferFromBehavesLikeTransfer(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()

	require.NoError(t, l.Mint(ctx, minter, alice, oneToken, models.DefaultGlobalRate))
	require.NoError(t, l.TransferFrom(ctx, carol, alice, bob, models.Exact(bi(5000))))
	require.Equal(t, bi(5000), l.BalanceOf(bob))
	require.Equal(t, models.DefaultGlobalRate, l.UserRate(bob))
}
