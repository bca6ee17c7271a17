package bridge

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	interfaces "github.com/rebasefi/rebase-token-ledger/internal/interfaces"
	"github.com/rebasefi/rebase-token-ledger/internal/ledger"
	"github.com/rebasefi/rebase-token-ledger/internal/models"
	events "github.com/rebasefi/rebase-token-ledger/internal/models/events"
)

// Pool moves value across chains while preserving the per-account rate.
// Lock burns on this chain and publishes a BridgeMessage carrying the
// account's frozen rate; Release mints on this chain with the rate decoded
// from the message, never this chain's global rate. The pool must hold the
// ledger's mint/burn role.
type Pool struct {
	id      string // the pool's identity on the ledger (role holder)
	chainId string
	ledger  *ledger.Ledger
	store   interfaces.JournalStore
	events  interfaces.EventPublisher
	logger  *zap.Logger
}

func NewPool(id, chainId string, lgr *ledger.Ledger, store interfaces.JournalStore, publisher interfaces.EventPublisher, logger *zap.Logger) *Pool {
	return &Pool{
		id:      id,
		chainId: chainId,
		ledger:  lgr,
		store:   store,
		events:  publisher,
		logger:  logger,
	}
}

// Lock burns the amount out of the account and emits the outbound message.
// If the message cannot be handed to the transport, the burn is compensated
// and the lock fails as a whole.
func (p *Pool) Lock(ctx context.Context, account string, amount *big.Int, destChain string) (models.BridgeMessage, error) {
	rate := p.ledger.UserRate(account)
	if err := p.ledger.Burn(ctx, p.id, account, amount); err != nil {
		return models.BridgeMessage{}, err
	}

	msg := models.BridgeMessage{
		MessageID:   uuid.New().String(),
		Account:     account,
		Amount:      new(big.Int).Set(amount),
		Rate:        rate,
		SourceChain: p.chainId,
		DestChain:   destChain,
		LockedAt:    time.Now().UTC(),
	}
	if err := p.events.Publish(events.TopicBridgeTransfers, msg); err != nil {
		if mintErr := p.ledger.Mint(ctx, p.id, account, amount, rate); mintErr != nil {
			p.logger.Error("compensating mint after failed lock publish did not apply",
				zap.String("account", account),
				zap.String("amount", amount.String()),
				zap.Error(mintErr))
		}
		return models.BridgeMessage{}, err
	}

	p.logger.Info("bridge lock",
		zap.String("message_id", msg.MessageID),
		zap.String("account", account),
		zap.String("dest_chain", destChain))
	return msg, nil
}

// Release applies an inbound message: mints the amount with the preserved
// source-chain rate. Releases are idempotent so transport redelivery and
// retries are safe.
func (p *Pool) Release(ctx context.Context, msg models.BridgeMessage) error {
	applied, err := p.store.ReleaseApplied(msg.MessageID)
	if err != nil {
		return err
	}
	if applied {
		p.logger.Debug("bridge release replayed", zap.String("message_id", msg.MessageID))
		return nil
	}

	if err := p.ledger.Mint(ctx, p.id, msg.Account, msg.Amount, msg.Rate); err != nil {
		return err
	}
	if err := p.store.SaveRelease(msg.MessageID, time.Now().UTC()); err != nil {
		return err
	}

	p.publish(events.TopicBridgeReleased, events.BridgeReleased{
		EventID:      uuid.New().String(),
		MessageID:    msg.MessageID,
		Account:      msg.Account,
		Amount:       msg.Amount.String(),
		AmountTokens: events.Tokens(msg.Amount),
		Rate:         msg.Rate.String(),
		SourceChain:  msg.SourceChain,
		OccurredAt:   time.Now().UTC(),
	})
	return nil
}

// Run consumes inbound bridge messages until the context is cancelled.
// Release failures are logged and the message is retried by the next
// delivery; the replay guard makes that safe.
func (p *Pool) Run(ctx context.Context, brokers []string, groupId string) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupId,
		Topic:   events.TopicBridgeTransfers,
	})
	defer reader.Close()

	for {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		var msg models.BridgeMessage
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			p.logger.Warn("bad bridge message", zap.Error(err))
			continue
		}
		if msg.DestChain != p.chainId {
			continue
		}
		if err := p.Release(ctx, msg); err != nil {
			p.logger.Error("bridge release failed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err))
		}
	}
}

func (p *Pool) publish(topic string, event any) {
	if err := p.events.Publish(topic, event); err != nil {
		p.logger.Warn("event publish failed", zap.String("topic", topic), zap.Error(err))
	}
}
