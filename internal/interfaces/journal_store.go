package interfaces

import (
	"context"
	"time"

	"github.com/rebasefi/rebase-token-ledger/internal/models"
)

type JournalStore interface {
	// SaveEntries appends all legs of one operation as a unit.
	SaveEntries(ctx context.Context, entries []models.JournalEntry) error
	GetEntriesByAccount(accountId string) ([]models.JournalEntry, error)
	GetJournal() ([]models.JournalEntry, error)

	// Bridge release replay guard.
	ReleaseApplied(messageId string) (bool, error)
	SaveRelease(messageId string, appliedAt time.Time) error
}
