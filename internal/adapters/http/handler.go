package httpadapter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PabloGalante/kbju-bot/internal/adapters/imagefile"
	"github.com/PabloGalante/kbju-bot/internal/app/dispatch"
	"github.com/PabloGalante/kbju-bot/internal/app/meallog"
	"github.com/PabloGalante/kbju-bot/internal/app/tracking"
	"github.com/PabloGalante/kbju-bot/internal/domain"
	"github.com/PabloGalante/kbju-bot/internal/observability"
)

// MaxEventBodyBytes fits a base64 photo of imagefile.MaxImageBytes plus
// the rest of the event.
const MaxEventBodyBytes = (imagefile.MaxImageBytes+2)/3*4 + 64<<10

type Server struct {
	svc        *tracking.Service
	dispatcher *dispatch.Dispatcher
	meals      *meallog.Service
}

func NewServer(svc *tracking.Service, dispatcher *dispatch.Dispatcher, meals *meallog.Service) http.Handler {
	s := &Server{svc: svc, dispatcher: dispatcher, meals: meals}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)

	// /users/{id}/events  → POST: feed one chat event
	// /users/{id}/summary → GET: today's totals
	// /users/{id}/meals   → GET: local meal log
	mux.HandleFunc("/users/", s.handleUserWithID)

	return chainMiddlewares(mux, withCORS, withLogging, withRequestID)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type eventRequest struct {
	Text        *string    `json:"text,omitempty"`
	Button      string     `json:"button,omitempty"`
	PhotoBase64 string     `json:"photo_base64,omitempty"`
	User        *userInput `json:"user,omitempty"`
}

type userInput struct {
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

type mealResponse struct {
	ID          string             `json:"id"`
	Barcode     string             `json:"barcode"`
	ProductName string             `json:"product_name"`
	Unit        string             `json:"unit"`
	Amount      float64            `json:"amount"`
	Totals      domain.DailyTotals `json:"totals"`
	CreatedAt   time.Time          `json:"created_at"`
}

type listMealsResponse struct {
	UserID int64          `json:"user_id"`
	Meals  []mealResponse `json:"meals"`
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"active_users": s.dispatcher.Active(),
	})
}

// /users/{id}/events, /users/{id}/summary or /users/{id}/meals
func (s *Server) handleUserWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/users/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "user id must be a positive integer")
		return
	}
	userID := domain.UserID(id)

	switch parts[1] {
	case "events":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleEvent(w, r, userID)
	case "summary":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleSummary(w, r, userID)
	case "meals":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleListMeals(w, r, userID)
	default:
		http.NotFound(w, r)
	}
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request, userID domain.UserID) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxEventBodyBytes)

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": "request body too large",
			})
			return
		}
		badRequest(w, "invalid JSON body")
		return
	}

	ev, err := toEvent(userID, req)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var (
		resp      *domain.Response
		handleErr error
	)
	ctx := r.Context()
	err = s.dispatcher.Do(ctx, userID, func(context.Context) {
		// the client left while the event was queued
		if ctx.Err() != nil {
			return
		}
		resp, handleErr = s.svc.Handle(ctx, ev)
	})
	if err != nil {
		observability.LoggerFromContext(ctx).Error("event not processed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "event not processed",
		})
		return
	}
	if handleErr != nil {
		internalError(w, handleErr)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, userID domain.UserID) {
	resp := s.svc.DailySummary(r.Context(), userID)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListMeals(w http.ResponseWriter, r *http.Request, userID domain.UserID) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.meals.GetUserMeals(r.Context(), userID, limit)
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listMealsResponse{
		UserID: int64(userID),
		Meals:  toMealsResponse(entries),
	})
}

// ─────────────────────────────────────────────
// Event Helpers
// ─────────────────────────────────────────────

type requestError string

func (e requestError) Error() string { return string(e) }

func toEvent(userID domain.UserID, req eventRequest) (domain.Event, error) {
	ev := domain.Event{
		UserID:     userID,
		User:       domain.UserInfo{ID: userID},
		ButtonData: req.Button,
	}
	if req.User != nil {
		ev.User.FirstName = req.User.FirstName
		ev.User.LastName = req.User.LastName
		ev.User.Username = req.User.Username
		ev.User.LanguageCode = req.User.LanguageCode
	}
	if req.Text != nil {
		ev.Text = *req.Text
		ev.HasText = true
	}
	if req.PhotoBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.PhotoBase64)
		if err != nil {
			return ev, requestError("photo_base64 is not valid base64")
		}
		ev.Photo = imagefile.Bytes{Name: "http-upload", Data: data}
	}

	if ev.Photo == nil && ev.ButtonData == "" && !ev.HasText {
		return ev, requestError("one of text, button or photo_base64 is required")
	}
	return ev, nil
}

func toMealsResponse(entries []*domain.MealEntry) []mealResponse {
	out := make([]mealResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, mealResponse{
			ID:          string(e.ID),
			Barcode:     e.Barcode,
			ProductName: e.ProductName,
			Unit:        string(e.Unit),
			Amount:      e.Amount,
			Totals:      e.Totals,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, err error) {
	observability.Logger().Error("internal server error", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
