package bridge_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rebasefi/rebase-token-ledger/internal/bridge"
	"github.com/rebasefi/rebase-token-ledger/internal/ledger"
	"github.com/rebasefi/rebase-token-ledger/internal/models"
	"github.com/rebasefi/rebase-token-ledger/internal/storage/memory"
)

const (
	owner  = "owner"
	poolId = "bridge-pool"
	minter = "minter"
	alice  = "alice"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	fail   bool
}

func (r *recordingPublisher) Publish(topic string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broker unreachable")
	}
	r.topics = append(r.topics, topic)
	return nil
}

var oneToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

type chain struct {
	ledger *ledger.Ledger
	store  *memory.MemoryJournalStore
	pool   *bridge.Pool
	pub    *recordingPublisher
}

func newChain(t *testing.T, chainId string) *chain {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := memory.NewMemoryJournalStore()
	l := ledger.New("RBT", owner, store, clock)
	require.NoError(t, l.GrantRole(owner, poolId))
	require.NoError(t, l.GrantRole(owner, minter))
	pub := &recordingPublisher{}
	pool := bridge.NewPool(poolId, chainId, l, store, pub, zaptest.NewLogger(t))
	return &chain{ledger: l, store: store, pool: pool, pub: pub}
}

func TestLockReleasePreservesRate(t *testing.T) {
	source := newChain(t, "source")
	dest := newChain(t, "dest")
	ctx := context.Background()

	// alice joined the source chain when the rate was still 3e10; the
	// destination chain's global rate is the default and must not leak in
	preserved := big.NewInt(30_000_000_000)
	require.NoError(t, source.ledger.Mint(ctx, minter, alice, oneToken, preserved))

	msg, err := source.pool.Lock(ctx, alice, oneToken, "dest")
	require.NoError(t, err)
	require.Equal(t, preserved, msg.Rate)
	require.Equal(t, "source", msg.SourceChain)
	require.Zero(t, source.ledger.BalanceOf(alice).Sign())

	require.NoError(t, dest.pool.Release(ctx, msg))
	require.Equal(t, oneToken, dest.ledger.BalanceOf(alice))
	require.Equal(t, preserved, dest.ledger.UserRate(alice))
	require.NotEqual(t, dest.ledger.GlobalRate(), dest.ledger.UserRate(alice))
}

func TestReleaseIsIdempotent(t *testing.T) {
	source := newChain(t, "source")
	dest := newChain(t, "dest")
	ctx := context.Background()

	require.NoError(t, source.ledger.Mint(ctx, minter, alice, oneToken, models.DefaultGlobalRate))
	msg, err := source.pool.Lock(ctx, alice, oneToken, "dest")
	require.NoError(t, err)

	require.NoError(t, dest.pool.Release(ctx, msg))
	require.NoError(t, dest.pool.Release(ctx, msg), "redelivery must be a no-op")
	require.Equal(t, oneToken, dest.ledger.BalanceOf(alice))
}

func TestLockFailsOnInsufficientBalance(t *testing.T) {
	source := newChain(t, "source")
	ctx := context.Background()

	require.NoError(t, source.ledger.Mint(ctx, minter, alice, big.NewInt(100), models.DefaultGlobalRate))

	_, err := source.pool.Lock(ctx, alice, oneToken, "dest")
	var balErr *ledger.InsufficientBalanceError
	require.ErrorAs(t, err, &balErr)
	require.Equal(t, big.NewInt(100), source.ledger.BalanceOf(alice))
}

func TestLockPublishFailureUndoesBurn(t *testing.T) {
	source := newChain(t, "source")
	ctx := context.Background()

	preserved := big.NewInt(30_000_000_000)
	require.NoError(t, source.ledger.Mint(ctx, minter, alice, oneToken, preserved))
	source.pub.fail = true

	_, err := source.pool.Lock(ctx, alice, oneToken, "dest")
	require.Error(t, err)
	require.Equal(t, oneToken, source.ledger.BalanceOf(alice), "burn must be compensated")
	require.Equal(t, preserved, source.ledger.UserRate(alice))
}
