package vault

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	interfaces "github.com/rebasefi/rebase-token-ledger/internal/interfaces"
	"github.com/rebasefi/rebase-token-ledger/internal/ledger"
	"github.com/rebasefi/rebase-token-ledger/internal/models"
	events "github.com/rebasefi/rebase-token-ledger/internal/models/events"
)

// PayoutSink delivers native value to an account during redemption. A
// failure aborts the whole redemption.
type PayoutSink interface {
	Pay(ctx context.Context, account string, amount *big.Int) error
}

// ErrInsufficientReserve is the payout cause when the vault's native
// reserve can't cover a redemption. The reserve is never pre-checked at
// deposit time; topping it up for interest payouts is operational.
var ErrInsufficientReserve = errors.New("vault reserve insufficient")

// PayoutError reports a redemption whose native payout failed. The burn is
// compensated before this is returned, so from the caller's perspective
// the redemption never happened.
type PayoutError struct {
	Account string
	Amount  *big.Int
	Cause   error
}

func (e *PayoutError) Error() string {
	return fmt.Sprintf("payout of %s to %q failed: %v", e.Amount, e.Account, e.Cause)
}

func (e *PayoutError) Unwrap() error { return e.Cause }

// Vault is the sole conversion boundary between native value and ledger
// balance: deposits mint 1:1 at the current global rate, redemptions burn
// and pay out 1:1. It holds the native reserve and must be granted the
// ledger's mint/burn role at deployment.
type Vault struct {
	mu      sync.Mutex
	id      string // the vault's identity on the ledger (role holder)
	ledger  *ledger.Ledger
	reserve *big.Int
	sink    PayoutSink
	events  interfaces.EventPublisher
	logger  *zap.Logger
}

func New(id string, lgr *ledger.Ledger, sink PayoutSink, publisher interfaces.EventPublisher, logger *zap.Logger) *Vault {
	return &Vault{
		id:      id,
		ledger:  lgr,
		reserve: new(big.Int),
		sink:    sink,
		events:  publisher,
		logger:  logger,
	}
}

// RebaseTokenId identifies the ledger this vault converts for.
func (v *Vault) RebaseTokenId() string { return v.ledger.TokenId() }

// Reserve is the native value currently held for payouts.
func (v *Vault) Reserve() *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return new(big.Int).Set(v.reserve)
}

// TopUp accepts unsolicited native value into the reserve, the way the
// redeem path is funded for interest payouts. No ledger mint happens.
func (v *Vault) TopUp(amount *big.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reserve.Add(v.reserve, amount)
}

// Deposit converts native value already transferred to the vault into
// ledger balance, minted at the current global rate.
func (v *Vault) Deposit(ctx context.Context, account string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ledger.ErrInvalidAmount
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	rate := v.ledger.GlobalRate()
	if err := v.ledger.Mint(ctx, v.id, account, amount, rate); err != nil {
		return err
	}
	v.reserve.Add(v.reserve, amount)

	v.publish(events.TopicDepositCompleted, events.DepositCompleted{
		EventID:      uuid.New().String(),
		Account:      account,
		Amount:       amount.String(),
		AmountTokens: events.Tokens(amount),
		Rate:         rate.String(),
		OccurredAt:   time.Now().UTC(),
	})
	return nil
}

// Redeem burns ledger balance and pays out the same amount of native
// value. An All request resolves against the account's live accrued
// balance before the burn. Burn and payout commit or fail as a unit: a
// failed payout re-mints the burned amount at the account's preserved rate
// before the error is returned.
func (v *Vault) Redeem(ctx context.Context, account string, req models.AmountRequest) (*big.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	amount := req.Value()
	if req.IsAll() {
		amount = v.ledger.BalanceOf(account)
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, ledger.ErrInvalidAmount
	}

	rate := v.ledger.UserRate(account)
	if err := v.ledger.Burn(ctx, v.id, account, amount); err != nil {
		return nil, err
	}

	if err := v.payout(ctx, account, amount); err != nil {
		if mintErr := v.restore(ctx, account, amount, rate); mintErr != nil {
			v.logger.Error("compensating mint after failed payout did not apply",
				zap.String("account", account),
				zap.String("amount", amount.String()),
				zap.Error(mintErr))
		}
		return nil, &PayoutError{Account: account, Amount: new(big.Int).Set(amount), Cause: err}
	}

	v.publish(events.TopicRedeemCompleted, events.RedeemCompleted{
		EventID:      uuid.New().String(),
		Account:      account,
		Amount:       amount.String(),
		AmountTokens: events.Tokens(amount),
		OccurredAt:   time.Now().UTC(),
	})
	return amount, nil
}

func (v *Vault) payout(ctx context.Context, account string, amount *big.Int) error {
	if v.reserve.Cmp(amount) < 0 {
		return ErrInsufficientReserve
	}
	if err := v.sink.Pay(ctx, account, amount); err != nil {
		return err
	}
	v.reserve.Sub(v.reserve, amount)
	return nil
}

// restore undoes a burn whose payout failed. The account's rate survives a
// burn untouched, so minting the amount back at that rate reproduces the
// pre-redemption state exactly. A zero amount has nothing to undo.
func (v *Vault) restore(ctx context.Context, account string, amount, rate *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	return v.ledger.Mint(ctx, v.id, account, amount, rate)
}

func (v *Vault) publish(topic string, event any) {
	if err := v.events.Publish(topic, event); err != nil {
		v.logger.Warn("event publish failed", zap.String("topic", topic), zap.Error(err))
	}
}
