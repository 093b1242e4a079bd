package domain

import (
	"context"
	"time"
)

// MealEntry is the local record of one successful track.
type MealEntry struct {
	ID          MealEntryID `json:"id"`
	UserID      UserID      `json:"user_id"`
	Barcode     string      `json:"barcode"`
	ProductName string      `json:"product_name"`
	Unit        Unit        `json:"unit"`
	Amount      float64     `json:"amount"`

	// Totals is the daily snapshot returned right after this entry.
	Totals DailyTotals `json:"totals"`

	CreatedAt time.Time `json:"created_at"`
}

// MealLogStore defines the minimum operations to persist the meal log.
type MealLogStore interface {
	AppendMealEntry(ctx context.Context, entry *MealEntry) error
	ListMealEntriesByUser(ctx context.Context, userID UserID, limit int) ([]*MealEntry, error)
}
