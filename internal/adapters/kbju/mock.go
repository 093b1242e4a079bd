package kbju

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PabloGalante/kbju-bot/internal/domain"
)

// MockClient is an in-memory KBJU service for local runs. It knows a fixed
// catalog and accumulates totals per user and day.
type MockClient struct {
	mu      sync.Mutex
	catalog map[string]domain.ProductNutrition
	totals  map[domain.UserID]*domain.DailyTotals
	users   map[domain.UserID]domain.UserInfo
	now     func() time.Time
}

func NewMockClient() *MockClient {
	kcal, protein, fat, carbs := 60.0, 3.0, 3.2, 4.7
	size := "200 мл"
	skcal, sprotein, sfat, scarbs := 120.0, 6.0, 6.4, 9.4

	return &MockClient{
		catalog: map[string]domain.ProductNutrition{
			"4601234567890": {
				Barcode: "4601234567890",
				Name:    "Молоко 3,2%",
				Per100g: domain.Macros{Kcal: &kcal, Protein: &protein, Fat: &fat, Carbs: &carbs},
				Serving: domain.ServingMacros{
					Size:   &size,
					Macros: domain.Macros{Kcal: &skcal, Protein: &sprotein, Fat: &sfat, Carbs: &scarbs},
				},
			},
		},
		totals: make(map[domain.UserID]*domain.DailyTotals),
		users:  make(map[domain.UserID]domain.UserInfo),
		now:    time.Now,
	}
}

// AddProduct registers a product in the catalog.
func (m *MockClient) AddProduct(p domain.ProductNutrition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog[p.Barcode] = p
}

func (m *MockClient) LookupByBarcode(_ context.Context, barcode string) (*domain.ProductNutrition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.catalog[barcode]
	if !ok {
		return nil, fmt.Errorf("barcode %s: %w", barcode, domain.ErrNotFound)
	}
	return &p, nil
}

func (m *MockClient) TrackByBarcode(_ context.Context, req domain.TrackRequest) (*domain.TrackResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.catalog[req.Barcode]
	if !ok {
		return nil, fmt.Errorf("barcode %s: %w", req.Barcode, domain.ErrNotFound)
	}

	var factor float64
	var src domain.Macros
	switch {
	case req.Grams != nil:
		factor = *req.Grams / 100
		src = p.Per100g
	case req.Servings != nil:
		factor = *req.Servings
		src = p.Serving.Macros
	default:
		return nil, fmt.Errorf("track %s: no amount", req.Barcode)
	}

	today := m.now().Format("2006-01-02")
	t, ok := m.totals[req.User.ID]
	if !ok || t.Date != today {
		t = &domain.DailyTotals{Date: today}
		m.totals[req.User.ID] = t
	}
	t.Kcal += value(src.Kcal) * factor
	t.Protein += value(src.Protein) * factor
	t.Fat += value(src.Fat) * factor
	t.Carbs += value(src.Carbs) * factor
	m.users[req.User.ID] = req.User

	return &domain.TrackResult{
		Barcode:     p.Barcode,
		Name:        p.Name,
		AmountGrams: req.Grams,
		Servings:    req.Servings,
		Per100g:     p.Per100g,
		Serving:     p.Serving,
		Daily:       *t,
	}, nil
}

func (m *MockClient) GetDailySummary(_ context.Context, userID domain.UserID) (*domain.DailySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}

	first := u.FirstName
	summary := &domain.DailySummary{
		Profile: domain.UserProfile{
			ID:         int64(userID),
			TelegramID: int64(userID),
			FirstName:  &first,
		},
	}
	if t, ok := m.totals[userID]; ok && t.Date == m.now().Format("2006-01-02") {
		cp := *t
		summary.Today = &cp
	}
	return summary, nil
}

func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
