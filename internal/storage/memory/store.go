package memory

import (
	"context"
	"sync"
	"time"

	interfaces "github.com/rebasefi/rebase-token-ledger/internal/interfaces"
	"github.com/rebasefi/rebase-token-ledger/internal/models"
)

// MemoryJournalStore is an in-memory implementation of
// interfaces.JournalStore, used in tests and single-node runs.
type MemoryJournalStore struct {
	mu       sync.Mutex // protects entries and releases
	entries  []models.JournalEntry
	releases map[string]time.Time // applied bridge release message ids
}

func NewMemoryJournalStore() *MemoryJournalStore {
	return &MemoryJournalStore{
		entries:  make([]models.JournalEntry, 0),
		releases: make(map[string]time.Time),
	}
}

// SaveEntries appends all legs of one operation. In memory this cannot
// partially fail, so the batch is trivially atomic.
func (m *MemoryJournalStore) SaveEntries(ctx context.Context, entries []models.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, entries...)
	return nil
}

// GetJournal returns a copy of all entries so callers can't modify
// internal state.
func (m *MemoryJournalStore) GetJournal() ([]models.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]models.JournalEntry, len(m.entries))
	copy(copied, m.entries)
	return copied, nil
}

func (m *MemoryJournalStore) GetEntriesByAccount(accountId string) ([]models.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.JournalEntry
	for _, e := range m.entries {
		if e.AccountID == accountId {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *MemoryJournalStore) ReleaseApplied(messageId string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, applied := m.releases[messageId]
	return applied, nil
}

func (m *MemoryJournalStore) SaveRelease(messageId string, appliedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.releases[messageId] = appliedAt
	return nil
}

// Compile-time check: ensure MemoryJournalStore implements JournalStore
var _ interfaces.JournalStore = (*MemoryJournalStore)(nil)
