package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/PabloGalante/kbju-bot/internal/domain"
)

// MealLogStore is a simple in-memory implementation of domain.MealLogStore.
// It is NOT persistent and is only suitable for development / local mode.
type MealLogStore struct {
	mu       sync.RWMutex
	entries  map[domain.MealEntryID]*domain.MealEntry
	byUserID map[domain.UserID][]domain.MealEntryID
}

// NewMealLogStore creates a new in-memory MealLogStore.
func NewMealLogStore() *MealLogStore {
	return &MealLogStore{
		entries:  make(map[domain.MealEntryID]*domain.MealEntry),
		byUserID: make(map[domain.UserID][]domain.MealEntryID),
	}
}

// AppendMealEntry saves a new meal entry.
func (s *MealLogStore) AppendMealEntry(_ context.Context, entry *domain.MealEntry) error {
	if entry == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = domain.MealEntryID(uuid.NewString())
	}

	cp := *entry
	s.entries[cp.ID] = &cp
	s.byUserID[cp.UserID] = append(s.byUserID[cp.UserID], cp.ID)

	return nil
}

// ListMealEntriesByUser returns the last `limit` entries for a user, oldest first.
// If limit <= 0, returns all.
func (s *MealLogStore) ListMealEntriesByUser(
	_ context.Context,
	userID domain.UserID,
	limit int,
) ([]*domain.MealEntry, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUserID[userID]
	if len(ids) == 0 {
		return []*domain.MealEntry{}, nil
	}

	if limit <= 0 || limit > len(ids) {
		limit = len(ids)
	}

	selected := ids[len(ids)-limit:]

	out := make([]*domain.MealEntry, 0, len(selected))
	for _, id := range selected {
		if e, ok := s.entries[id]; ok {
			cp := *e
			out = append(out, &cp)
		}
	}

	return out, nil
}
