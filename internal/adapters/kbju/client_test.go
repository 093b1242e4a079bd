package kbju_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/kbju-bot/internal/adapters/kbju"
	"github.com/PabloGalante/kbju-bot/internal/domain"
)

func TestLookupByBarcode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/barcode/4601234567890":
			w.Write([]byte(`{"barcode":"4601234567890","name":"Молоко","per_100g":{"kcal":60,"protein":3,"fat":null,"carbs":4.7},"serving":{"size":"200 мл","kcal":120}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := kbju.NewClient(srv.URL + "/")

	p, err := c.LookupByBarcode(context.Background(), "4601234567890")
	require.NoError(t, err)
	assert.Equal(t, "Молоко", p.Name)
	require.NotNil(t, p.Per100g.Kcal)
	assert.Equal(t, 60.0, *p.Per100g.Kcal)
	assert.Nil(t, p.Per100g.Fat)
	require.NotNil(t, p.Serving.Size)
	assert.Equal(t, "200 мл", *p.Serving.Size)

	_, err = c.LookupByBarcode(context.Background(), "00000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTrackByBarcodeSendsExactlyOneAmount(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/barcode/4601234567890/track", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"barcode":"4601234567890","name":"Молоко","amount_grams":120,"servings":null,
			"per_100g":{},"serving":{},
			"daily":{"date":"2024-05-01","kcal":1800,"protein":90,"fat":60,"carbs":200}}`))
	}))
	defer srv.Close()

	grams := 120.0
	res, err := kbju.NewClient(srv.URL).TrackByBarcode(context.Background(), domain.TrackRequest{
		Barcode: "4601234567890",
		User:    domain.UserInfo{ID: 77, FirstName: "Ann"},
		Grams:   &grams,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.DailyTotals{Date: "2024-05-01", Kcal: 1800, Protein: 90, Fat: 60, Carbs: 200}, res.Daily)
	assert.Equal(t, 120.0, got["grams"])
	assert.Nil(t, got["servings"])
	user := got["telegram_user"].(map[string]any)
	assert.Equal(t, 77.0, user["id"])
	assert.Equal(t, "Ann", user["first_name"])
	assert.Nil(t, user["username"])
	assert.NotContains(t, user, "is_premium")
}

func TestTrackByBarcodeRejectsAmbiguousAmount(t *testing.T) {
	c := kbju.NewClient("http://127.0.0.1:0")
	one := 1.0

	_, err := c.TrackByBarcode(context.Background(), domain.TrackRequest{Barcode: "12345678"})
	assert.Error(t, err)

	_, err = c.TrackByBarcode(context.Background(), domain.TrackRequest{Barcode: "12345678", Grams: &one, Servings: &one})
	assert.Error(t, err)
}

func TestServerErrorIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := kbju.NewClient(srv.URL).GetDailySummary(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestDeadlineIsTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := kbju.NewClient(srv.URL).LookupByBarcode(ctx, "12345678")
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestGetDailySummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("telegram_id"))
		w.Write([]byte(`{"profile":{"id":1,"telegram_id":42,"first_name":"Ann"},"today":null}`))
	}))
	defer srv.Close()

	s, err := kbju.NewClient(srv.URL).GetDailySummary(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), s.Profile.TelegramID)
	assert.Nil(t, s.Today)
}

func TestMockClientAccumulatesTotals(t *testing.T) {
	ctx := context.Background()
	m := kbju.NewMockClient()

	_, err := m.GetDailySummary(ctx, 9)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	grams := 200.0
	res, err := m.TrackByBarcode(ctx, domain.TrackRequest{Barcode: "4601234567890", User: domain.UserInfo{ID: 9}, Grams: &grams})
	require.NoError(t, err)
	assert.InDelta(t, 120.0, res.Daily.Kcal, 1e-9)

	servings := 0.5
	res, err = m.TrackByBarcode(ctx, domain.TrackRequest{Barcode: "4601234567890", User: domain.UserInfo{ID: 9}, Servings: &servings})
	require.NoError(t, err)
	assert.InDelta(t, 180.0, res.Daily.Kcal, 1e-9)

	s, err := m.GetDailySummary(ctx, 9)
	require.NoError(t, err)
	require.NotNil(t, s.Today)
	assert.InDelta(t, 180.0, s.Today.Kcal, 1e-9)
}
