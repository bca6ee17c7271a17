package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/rebasefi/rebase-token-ledger/internal/bridge"
	"github.com/rebasefi/rebase-token-ledger/internal/config"
	"github.com/rebasefi/rebase-token-ledger/internal/events"
	eventskafka "github.com/rebasefi/rebase-token-ledger/internal/events/kafka"
	interfaces "github.com/rebasefi/rebase-token-ledger/internal/interfaces"
	"github.com/rebasefi/rebase-token-ledger/internal/ledger"
	"github.com/rebasefi/rebase-token-ledger/internal/logging"
	"github.com/rebasefi/rebase-token-ledger/internal/models"
	eventmodels "github.com/rebasefi/rebase-token-ledger/internal/models/events"
	"github.com/rebasefi/rebase-token-ledger/internal/native"
	"github.com/rebasefi/rebase-token-ledger/internal/storage/memory"
	"github.com/rebasefi/rebase-token-ledger/internal/storage/postgres"
	"github.com/rebasefi/rebase-token-ledger/internal/vault"
)

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.New("amount must be a base-10 integer")
	}
	return v, nil
}

// parseAmountRequest accepts either a concrete integer or the literal
// string "all".
func parseAmountRequest(s string) (models.AmountRequest, error) {
	if s == "all" {
		return models.All(), nil
	}
	v, err := parseAmount(s)
	if err != nil {
		return models.AmountRequest{}, err
	}
	return models.Exact(v), nil
}

// writeDomainError maps the ledger/vault error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var authErr *ledger.AuthorizationError
	var rateErr *ledger.RateIncreaseError
	var balErr *ledger.InsufficientBalanceError
	var payErr *vault.PayoutError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &authErr):
		status = http.StatusForbidden
	case errors.As(err, &rateErr), errors.Is(err, ledger.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.As(err, &balErr):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &payErr):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

func main() {
	cfg := config.Load()
	logger, err := logging.New()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	var store interfaces.JournalStore
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("open postgres", zap.Error(err))
		}
		if err := db.Ping(); err != nil {
			logger.Fatal("ping postgres", zap.Error(err))
		}
		store = postgres.NewPostgresJournalStore(db)
	} else {
		store = memory.NewMemoryJournalStore()
	}

	var publisher interfaces.EventPublisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := eventskafka.NewPublisher(cfg.KafkaBrokers)
		defer kp.Close()
		publisher = kp
	}

	ledgerService := ledger.New(cfg.TokenId, cfg.Owner, store, nil)
	if err := ledgerService.GrantRole(cfg.Owner, cfg.VaultAccount); err != nil {
		logger.Fatal("grant vault role", zap.Error(err))
	}
	if err := ledgerService.GrantRole(cfg.Owner, cfg.PoolAccount); err != nil {
		logger.Fatal("grant pool role", zap.Error(err))
	}

	nativeBook := native.NewBook()
	vaultService := vault.New(cfg.VaultAccount, ledgerService, nativeBook, publisher, logger)
	pool := bridge.NewPool(cfg.PoolAccount, cfg.ChainId, ledgerService, store, publisher, logger)

	if len(cfg.KafkaBrokers) > 0 {
		go func() {
			err := pool.Run(context.Background(), cfg.KafkaBrokers, "bridge-pool-"+cfg.ChainId)
			logger.Error("bridge consumer stopped", zap.Error(err))
		}()
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			Status  string `json:"status"`
			TokenId string `json:"token_id"`
			ChainId string `json:"chain_id"`
		}{"ok", vaultService.RebaseTokenId(), cfg.ChainId})
	})

	http.HandleFunc("/deposit", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Account string `json:"account"`
			Amount  string `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		// The native transfer is paired with the deposit: debit first,
		// and hand the value back if the mint fails.
		if err := nativeBook.Debit(req.Account, amount); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		if err := vaultService.Deposit(r.Context(), req.Account, amount); err != nil {
			nativeBook.Credit(req.Account, amount)
			writeDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"status":"deposited"}`))
	})

	http.HandleFunc("/redeem", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Account string `json:"account"`
			Amount  string `json:"amount"` // integer or "all"
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		amountReq, err := parseAmountRequest(req.Amount)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		paid, err := vaultService.Redeem(r.Context(), req.Account, amountReq)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			Account string `json:"account"`
			Paid    string `json:"paid"`
		}{req.Account, paid.String()})
	})

	http.HandleFunc("/transfer", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			From   string `json:"from"`
			To     string `json:"to"`
			Amount string `json:"amount"` // integer or "all"
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		amountReq, err := parseAmountRequest(req.Amount)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := ledgerService.Transfer(r.Context(), req.From, req.To, amountReq); err != nil {
			writeDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"status":"transferred"}`))
	})

	http.HandleFunc("/accounts/balance", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		accountId := r.URL.Query().Get("account_id")
		if accountId == "" {
			http.Error(w, "account_id is a mandatory field", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			AccountID string `json:"account_id"`
			Balance   string `json:"balance"`
			Principal string `json:"principal"`
			Rate      string `json:"rate"`
		}{
			AccountID: accountId,
			Balance:   ledgerService.BalanceOf(accountId).String(),
			Principal: ledgerService.PrincipalBalanceOf(accountId).String(),
			Rate:      ledgerService.UserRate(accountId).String(),
		})
	})

	http.HandleFunc("/rates/global", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(struct {
				GlobalRate string `json:"global_rate"`
			}{ledgerService.GlobalRate().String()})

		case http.MethodPut:
			var req struct {
				Caller string `json:"caller"`
				Rate   string `json:"rate"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
			newRate, err := parseAmount(req.Rate)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			oldRate := ledgerService.GlobalRate()
			if err := ledgerService.SetGlobalRate(req.Caller, newRate); err != nil {
				writeDomainError(w, err)
				return
			}
			if err := publisher.Publish(eventmodels.TopicRateUpdated, eventmodels.RateUpdated{
				EventID:    uuid.New().String(),
				OldRate:    oldRate.String(),
				NewRate:    newRate.String(),
				OccurredAt: time.Now().UTC(),
			}); err != nil {
				logger.Warn("event publish failed", zap.Error(err))
			}
			w.WriteHeader(http.StatusOK)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	http.HandleFunc("/ledgerEntries", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		entries, err := store.GetJournal()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entries)
	})

	http.HandleFunc("/native/faucet", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Account string `json:"account"`
			Amount  string `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		amount, err := parseAmount(req.Amount)
		if err != nil || amount.Sign() <= 0 {
			http.Error(w, "amount must be a positive integer", http.StatusBadRequest)
			return
		}

		nativeBook.Credit(req.Account, amount)
		w.WriteHeader(http.StatusCreated)
	})

	http.HandleFunc("/native/balance", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		accountId := r.URL.Query().Get("account_id")
		if accountId == "" {
			http.Error(w, "account_id is a mandatory field", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			AccountID string `json:"account_id"`
			Balance   string `json:"balance"`
		}{accountId, nativeBook.Balance(accountId).String()})
	})

	http.HandleFunc("/vault/topup", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Account string `json:"account"`
			Amount  string `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		amount, err := parseAmount(req.Amount)
		if err != nil || amount.Sign() <= 0 {
			http.Error(w, "amount must be a positive integer", http.StatusBadRequest)
			return
		}

		if err := nativeBook.Debit(req.Account, amount); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		vaultService.TopUp(amount)
		w.WriteHeader(http.StatusCreated)
	})

	http.HandleFunc("/bridge/lock", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Account   string `json:"account"`
			Amount    string `json:"amount"`
			DestChain string `json:"dest_chain"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		msg, err := pool.Lock(r.Context(), req.Account, amount, req.DestChain)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(msg)
	})

	logger.Info("starting server", zap.String("port", cfg.Port), zap.String("chain_id", cfg.ChainId))
	if err := http.ListenAndServe(":"+cfg.Port, nil); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
