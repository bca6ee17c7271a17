package ledger

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	interfaces "github.com/rebasefi/rebase-token-ledger/internal/interfaces"
	"github.com/rebasefi/rebase-token-ledger/internal/models"
)

// Ledger is the authoritative rebase-token state: every account's principal,
// frozen per-account rate and last realization time, plus the global rate
// new deposits mint at. Principal-affecting operations append their legs to
// the journal store before committing.
//
// The global rate only ever decreases, so an account keeps the rate it was
// assigned when it first acquired balance, however long ago that was.
type Ledger struct {
	mu          sync.Mutex
	tokenId     string
	owner       string
	roles       map[string]bool
	accounts    map[string]*models.Account
	globalRate  *big.Int
	totalSupply *big.Int
	store       interfaces.JournalStore
	clock       Clock
}

// New creates a ledger with the protocol's default global rate. The owner
// may lower the rate and manage the mint/burn role; it holds no balance
// privileges of its own. A nil clock means the system clock.
func New(tokenId, owner string, store interfaces.JournalStore, clock Clock) *Ledger {
	if clock == nil {
		clock = SystemClock
	}
	return &Ledger{
		tokenId:     tokenId,
		owner:       owner,
		roles:       make(map[string]bool),
		accounts:    make(map[string]*models.Account),
		globalRate:  new(big.Int).Set(models.DefaultGlobalRate),
		totalSupply: new(big.Int),
		store:       store,
		clock:       clock,
	}
}

func (l *Ledger) TokenId() string { return l.tokenId }

// workingCopy stages an account for mutation. Missing accounts materialize
// at zero state; nothing is committed until the operation succeeds.
func (l *Ledger) workingCopy(accountId string, now time.Time) *models.Account {
	if acc, ok := l.accounts[accountId]; ok {
		return acc.Clone()
	}
	return &models.Account{
		ID:         accountId,
		Principal:  new(big.Int),
		Rate:       new(big.Int),
		LastUpdate: now,
	}
}

// accruedBalance applies the linear interest factor to a principal:
// principal * (Precision + rate*elapsed) / Precision, truncating. The
// truncation slightly underpays and is accepted as-is.
func accruedBalance(principal, rate *big.Int, elapsed int64) *big.Int {
	if principal.Sign() == 0 || rate.Sign() == 0 || elapsed <= 0 {
		return new(big.Int).Set(principal)
	}
	factor := new(big.Int).Mul(rate, big.NewInt(elapsed))
	factor.Add(factor, models.Precision)
	out := new(big.Int).Mul(principal, factor)
	return out.Div(out, models.Precision)
}

func elapsedSeconds(since, now time.Time) int64 {
	return now.Unix() - since.Unix()
}

// realize materializes the staged account's pending interest into its
// principal and stamps LastUpdate. The interest delta is a real
// supply-increasing mint, returned with its journal leg so the caller can
// fold both into the operation's commit.
func (l *Ledger) realize(acc *models.Account, now time.Time) (*big.Int, []models.JournalEntry) {
	accrued := accruedBalance(acc.Principal, acc.Rate, elapsedSeconds(acc.LastUpdate, now))
	delta := new(big.Int).Sub(accrued, acc.Principal)
	var entries []models.JournalEntry
	if delta.Sign() > 0 {
		acc.Principal.Set(accrued)
		entries = append(entries, l.newEntry(acc, models.EntryInterest, delta, now))
	}
	acc.LastUpdate = now
	return delta, entries
}

func (l *Ledger) newEntry(acc *models.Account, kind models.EntryKind, amount *big.Int, now time.Time) models.JournalEntry {
	return models.JournalEntry{
		ID:        uuid.New().String(),
		AccountID: acc.ID,
		Kind:      kind,
		Amount:    new(big.Int).Set(amount),
		Rate:      new(big.Int).Set(acc.Rate),
		CreatedAt: now,
	}
}

// commit persists the operation's journal legs and only then installs the
// staged accounts and supply change. A store failure leaves the ledger
// exactly as it was.
func (l *Ledger) commit(ctx context.Context, entries []models.JournalEntry, supplyDelta *big.Int, staged ...*models.Account) error {
	if len(entries) > 0 {
		if err := l.store.SaveEntries(ctx, entries); err != nil {
			return err
		}
	}
	for _, acc := range staged {
		l.accounts[acc.ID] = acc
	}
	l.totalSupply.Add(l.totalSupply, supplyDelta)
	return nil
}

// Mint realizes the target's pending interest, installs the caller-supplied
// rate unconditionally, and credits amount to the principal. The rate is
// the caller's responsibility: the vault passes the current global rate, a
// bridge pool passes the rate preserved from the source chain.
func (l *Ledger) Mint(ctx context.Context, caller, to string, amount, rate *big.Int) error {
	if amount == nil || amount.Sign() <= 0 || rate == nil || rate.Sign() < 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.roles[caller] {
		return &AuthorizationError{Caller: caller, Capability: CapabilityMintBurn}
	}

	now := l.clock.Now()
	acc := l.workingCopy(to, now)
	supplyDelta, entries := l.realize(acc, now)
	acc.Rate = new(big.Int).Set(rate)
	acc.Principal.Add(acc.Principal, amount)
	supplyDelta.Add(supplyDelta, amount)
	entries = append(entries, l.newEntry(acc, models.EntryMint, amount, now))

	return l.commit(ctx, entries, supplyDelta, acc)
}

// Burn realizes the source's pending interest, then debits amount from the
// principal. There is no "burn everything" sentinel here: callers that want
// that resolve the live balance first, the way the vault does for
// redemptions.
func (l *Ledger) Burn(ctx context.Context, caller, from string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.roles[caller] {
		return &AuthorizationError{Caller: caller, Capability: CapabilityMintBurn}
	}

	now := l.clock.Now()
	acc := l.workingCopy(from, now)
	supplyDelta, entries := l.realize(acc, now)
	if acc.Principal.Cmp(amount) < 0 {
		return &InsufficientBalanceError{Account: from, Requested: new(big.Int).Set(amount), Available: acc.Principal}
	}
	acc.Principal.Sub(acc.Principal, amount)
	supplyDelta.Sub(supplyDelta, amount)
	entries = append(entries, l.newEntry(acc, models.EntryBurn, amount, now))

	return l.commit(ctx, entries, supplyDelta, acc)
}

// Transfer realizes interest on both sides, resolves an All request against
// the sender's just-realized balance, and moves principal. A recipient
// whose accrued balance is exactly zero adopts the sender's rate; a
// recipient already holding tokens keeps its own historical rate.
func (l *Ledger) Transfer(ctx context.Context, from, to string, req models.AmountRequest) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transfer(ctx, from, to, req)
}

// TransferFrom is Transfer initiated by a third party. Allowance
// bookkeeping is deliberately not kept here; callers enforce approvals
// outside the ledger.
func (l *Ledger) TransferFrom(ctx context.Context, spender, from, to string, req models.AmountRequest) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transfer(ctx, from, to, req)
}

func (l *Ledger) transfer(ctx context.Context, from, to string, req models.AmountRequest) error {
	if !req.IsAll() {
		if v := req.Value(); v == nil || v.Sign() < 0 {
			return ErrInvalidAmount
		}
	}

	now := l.clock.Now()
	sender := l.workingCopy(from, now)
	supplyDelta, entries := l.realize(sender, now)

	var recipient *models.Account
	if to != from {
		recipient = l.workingCopy(to, now)
		recvDelta, recvEntries := l.realize(recipient, now)
		supplyDelta.Add(supplyDelta, recvDelta)
		entries = append(entries, recvEntries...)
	}

	amount := req.Value()
	if req.IsAll() {
		amount = new(big.Int).Set(sender.Principal)
	}
	if sender.Principal.Cmp(amount) < 0 {
		return &InsufficientBalanceError{Account: from, Requested: amount, Available: sender.Principal}
	}

	if recipient == nil {
		// Self-transfer: realization happened, principal is unchanged.
		entries = append(entries, l.newEntry(sender, models.EntryTransferOut, amount, now))
		entries = append(entries, l.newEntry(sender, models.EntryTransferIn, amount, now))
		return l.commit(ctx, entries, supplyDelta, sender)
	}

	if recipient.Principal.Sign() == 0 {
		recipient.Rate = new(big.Int).Set(sender.Rate)
	}
	sender.Principal.Sub(sender.Principal, amount)
	recipient.Principal.Add(recipient.Principal, amount)
	entries = append(entries, l.newEntry(sender, models.EntryTransferOut, amount, now))
	entries = append(entries, l.newEntry(recipient, models.EntryTransferIn, amount, now))
	return l.commit(ctx, entries, supplyDelta, sender, recipient)
}

// SetGlobalRate lowers the protocol rate for all subsequent mints.
// Increases are rejected outright; accounts minted earlier keep the higher
// rate they were assigned.
func (l *Ledger) SetGlobalRate(caller string, newRate *big.Int) error {
	if newRate == nil || newRate.Sign() < 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.owner {
		return &AuthorizationError{Caller: caller, Capability: CapabilityOwner}
	}
	if newRate.Cmp(l.globalRate) > 0 {
		return &RateIncreaseError{Current: new(big.Int).Set(l.globalRate), Proposed: new(big.Int).Set(newRate)}
	}
	l.globalRate.Set(newRate)
	return nil
}

// GrantRole admits an account to the mint/burn role. Owner-only, as is
// RevokeRole.
func (l *Ledger) GrantRole(caller, account string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.owner {
		return &AuthorizationError{Caller: caller, Capability: CapabilityOwner}
	}
	l.roles[account] = true
	return nil
}

func (l *Ledger) RevokeRole(caller, account string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.owner {
		return &AuthorizationError{Caller: caller, Capability: CapabilityOwner}
	}
	delete(l.roles, account)
	return nil
}

func (l *Ledger) HasRole(account string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.roles[account]
}

// BalanceOf is the externally visible balance: the stored principal scaled
// by the linear interest factor since the account's last realization. Pure
// query, nothing is realized.
func (l *Ledger) BalanceOf(accountId string) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[accountId]
	if !ok {
		return new(big.Int)
	}
	return accruedBalance(acc.Principal, acc.Rate, elapsedSeconds(acc.LastUpdate, l.clock.Now()))
}

// PrincipalBalanceOf is the stored principal with no time adjustment:
// tokens actually minted so far, excluding unrealized interest.
func (l *Ledger) PrincipalBalanceOf(accountId string) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[accountId]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(acc.Principal)
}

// UserRate returns the per-account rate frozen at the account's last
// zero-to-positive transition. Zero for unknown accounts.
func (l *Ledger) UserRate(accountId string) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[accountId]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(acc.Rate)
}

func (l *Ledger) GlobalRate() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.globalRate)
}

// TotalSupply is the sum of all realized principals. Interest an account
// has accrued but not yet realized is not included until that account is
// next touched.
func (l *Ledger) TotalSupply() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.totalSupply)
}
