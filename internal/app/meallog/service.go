package meallog

import (
	"context"

	"github.com/PabloGalante/kbju-bot/internal/domain"
)

// DefaultLimit is used when the caller asks for no specific page size.
const DefaultLimit = 20

// Service holds the logic of reading the local meal log
type Service struct {
	store domain.MealLogStore
}

// NewService creates a meal log service from a MealLogStore
func NewService(store domain.MealLogStore) *Service {
	return &Service{
		store: store,
	}
}

// GetUserMeals returns the last `limit` tracked meals for a user, oldest first.
// If limit <= 0, DefaultLimit is used.
func (s *Service) GetUserMeals(
	ctx context.Context,
	userID domain.UserID,
	limit int,
) ([]*domain.MealEntry, error) {

	if s.store == nil {
		// meal logging disabled
		return []*domain.MealEntry{}, nil
	}

	if limit <= 0 {
		limit = DefaultLimit
	}

	entries, err := s.store.ListMealEntriesByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*domain.MealEntry{}
	}
	return entries, nil
}
