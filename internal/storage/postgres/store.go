package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	interfaces "github.com/rebasefi/rebase-token-ledger/internal/interfaces"
	"github.com/rebasefi/rebase-token-ledger/internal/models"
)

// PostgresJournalStore persists the operation journal and the bridge
// release guard. Expected schema:
//
//	journal_entries(id, account_id, kind, amount numeric, rate numeric, created_at)
//	bridge_releases(message_id primary key, applied_at)
type PostgresJournalStore struct {
	db *sql.DB
}

func NewPostgresJournalStore(db *sql.DB) *PostgresJournalStore {
	return &PostgresJournalStore{
		db: db,
	}
}

// SaveEntries writes all legs of one operation inside a single database
// transaction, so the journal never records half an operation.
func (p *PostgresJournalStore) SaveEntries(ctx context.Context, entries []models.JournalEntry) error {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	const query = `INSERT INTO journal_entries (id, account_id, kind, amount, rate, created_at)
	VALUES ($1,$2,$3,$4,$5,$6)`

	for _, entry := range entries {
		_, err = dbTx.ExecContext(ctx, query,
			entry.ID, entry.AccountID, string(entry.Kind),
			entry.Amount.String(), entry.Rate.String(), entry.CreatedAt)
		if err != nil {
			return err
		}
	}
	return dbTx.Commit()
}

func (p *PostgresJournalStore) GetJournal() ([]models.JournalEntry, error) {
	const query = `SELECT id, account_id, kind, amount, rate, created_at FROM journal_entries`

	rows, err := p.db.Query(query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()
	return scanEntries(rows)
}

func (p *PostgresJournalStore) GetEntriesByAccount(accountId string) ([]models.JournalEntry, error) {
	const query = `SELECT id, account_id, kind, amount, rate, created_at FROM journal_entries
	WHERE account_id = $1`

	rows, err := p.db.Query(query, accountId)
	if err != nil {
		return nil, err
	}

	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]models.JournalEntry, error) {
	var entries []models.JournalEntry

	for rows.Next() {
		var entry models.JournalEntry
		var kind, amount, rate string
		if err := rows.Scan(&entry.ID, &entry.AccountID, &kind, &amount, &rate, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Kind = models.EntryKind(kind)
		var ok bool
		if entry.Amount, ok = new(big.Int).SetString(amount, 10); !ok {
			return nil, fmt.Errorf("journal entry %s: bad amount %q", entry.ID, amount)
		}
		if entry.Rate, ok = new(big.Int).SetString(rate, 10); !ok {
			return nil, fmt.Errorf("journal entry %s: bad rate %q", entry.ID, rate)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (p *PostgresJournalStore) ReleaseApplied(messageId string) (bool, error) {
	const query = `SELECT 1 FROM bridge_releases WHERE message_id = $1 LIMIT 1`

	var applied int
	err := p.db.QueryRow(query, messageId).Scan(&applied)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (p *PostgresJournalStore) SaveRelease(messageId string, appliedAt time.Time) error {
	const query = `INSERT INTO bridge_releases (message_id, applied_at)
	VALUES ($1,$2) ON CONFLICT (message_id) DO NOTHING`

	_, err := p.db.Exec(query, messageId, appliedAt)

	return err
}

var _ interfaces.JournalStore = (*PostgresJournalStore)(nil)
