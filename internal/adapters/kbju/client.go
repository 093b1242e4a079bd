// Package kbju is the client of the remote KBJU (calories, protein, fat,
// carbs) service that resolves barcodes and keeps daily totals.
package kbju

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PabloGalante/kbju-bot/internal/domain"
)

// Client implements domain.NutritionClient over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ─────────────────────────────────────────────
// Wire types
// ─────────────────────────────────────────────

type trackRequest struct {
	TelegramUser telegramUser `json:"telegram_user"`
	Grams        *float64     `json:"grams"`
	Servings     *float64     `json:"servings"`
}

type telegramUser struct {
	ID           int64   `json:"id"`
	IsBot        bool    `json:"is_bot"`
	FirstName    string  `json:"first_name"`
	LastName     *string `json:"last_name"`
	Username     *string `json:"username"`
	LanguageCode *string `json:"language_code"`
}

func toTelegramUser(u domain.UserInfo) telegramUser {
	out := telegramUser{
		ID:        int64(u.ID),
		IsBot:     u.IsBot,
		FirstName: u.FirstName,
	}
	if u.LastName != "" {
		out.LastName = &u.LastName
	}
	if u.Username != "" {
		out.Username = &u.Username
	}
	if u.LanguageCode != "" {
		out.LanguageCode = &u.LanguageCode
	}
	return out
}

// ─────────────────────────────────────────────
// domain.NutritionClient
// ─────────────────────────────────────────────

// LookupByBarcode returns domain.ErrNotFound on 404.
func (c *Client) LookupByBarcode(ctx context.Context, barcode string) (*domain.ProductNutrition, error) {
	var out domain.ProductNutrition
	if err := c.do(ctx, http.MethodGet, "/barcode/"+url.PathEscape(barcode), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TrackByBarcode(ctx context.Context, req domain.TrackRequest) (*domain.TrackResult, error) {
	if (req.Grams == nil) == (req.Servings == nil) {
		return nil, fmt.Errorf("track %s: exactly one of grams and servings must be set", req.Barcode)
	}

	body := trackRequest{
		TelegramUser: toTelegramUser(req.User),
		Grams:        req.Grams,
		Servings:     req.Servings,
	}

	var out domain.TrackResult
	if err := c.do(ctx, http.MethodPost, "/barcode/"+url.PathEscape(req.Barcode)+"/track", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDailySummary returns domain.ErrNotFound when the user has no profile yet.
func (c *Client) GetDailySummary(ctx context.Context, userID domain.UserID) (*domain.DailySummary, error) {
	q := url.Values{}
	q.Set("telegram_id", strconv.FormatInt(int64(userID), 10))

	var out domain.DailySummary
	if err := c.do(ctx, http.MethodGet, "/users/me", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ─────────────────────────────────────────────
// HTTP helpers
// ─────────────────────────────────────────────

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%s %s: %w", method, path, domain.ErrTimeout)
		}
		return fmt.Errorf("%s %s: %w: %v", method, path, domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, domain.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: %w: status %d: %s", method, path, domain.ErrUpstream, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%s %s: %w", method, path, domain.ErrTimeout)
		}
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
