package firestore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/kbju-bot/internal/domain"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store.
// Uses the project passed (KBJU_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func userKey(id domain.UserID) string {
	return strconv.FormatInt(int64(id), 10)
}

func (s *Store) conversationDoc(id domain.UserID) *firestore.DocumentRef {
	return s.client.Collection("conversations").Doc(userKey(id))
}

func (s *Store) mealsCol(id domain.UserID) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(userKey(id)).Collection("meals")
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type conversationDoc struct {
	Phase       string    `firestore:"phase"`
	Barcode     string    `firestore:"barcode"`
	ProductName string    `firestore:"product_name"`
	Unit        string    `firestore:"unit"`
	Amount      *float64  `firestore:"amount"`
	UpdatedAt   time.Time `firestore:"updated_at"`
}

type mealDoc struct {
	Barcode     string    `firestore:"barcode"`
	ProductName string    `firestore:"product_name"`
	Unit        string    `firestore:"unit"`
	Amount      float64   `firestore:"amount"`
	Day         string    `firestore:"day"`
	Kcal        float64   `firestore:"kcal"`
	Protein     float64   `firestore:"protein"`
	Fat         float64   `firestore:"fat"`
	Carbs       float64   `firestore:"carbs"`
	CreatedAt   time.Time `firestore:"created_at"`
}

// ─────────────────────────────────────────
// ConversationStore implementation
// ─────────────────────────────────────────

func (s *Store) Get(ctx context.Context, userID domain.UserID) (*domain.ConversationState, error) {
	snap, err := s.conversationDoc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.NewConversationState(userID), nil
		}
		return nil, fmt.Errorf("firestore GetConversation: %w", err)
	}

	var doc conversationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetConversation decode: %w", err)
	}

	return &domain.ConversationState{
		UserID:      userID,
		Phase:       domain.Phase(doc.Phase),
		Barcode:     doc.Barcode,
		ProductName: doc.ProductName,
		Unit:        domain.Unit(doc.Unit),
		Amount:      doc.Amount,
		UpdatedAt:   doc.UpdatedAt,
	}, nil
}

// Set overwrites the whole document; an Idle state removes it.
func (s *Store) Set(ctx context.Context, state *domain.ConversationState) error {
	if state.Phase == domain.PhaseIdle {
		return s.Clear(ctx, state.UserID)
	}

	doc := conversationDoc{
		Phase:       string(state.Phase),
		Barcode:     state.Barcode,
		ProductName: state.ProductName,
		Unit:        string(state.Unit),
		Amount:      state.Amount,
		UpdatedAt:   state.UpdatedAt,
	}

	if _, err := s.conversationDoc(state.UserID).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore SetConversation: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, userID domain.UserID) error {
	if _, err := s.conversationDoc(userID).Delete(ctx); err != nil {
		return fmt.Errorf("firestore ClearConversation: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// MealLogStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendMealEntry(ctx context.Context, entry *domain.MealEntry) error {
	if entry.ID == "" {
		entry.ID = domain.MealEntryID(uuid.NewString())
	}

	doc := mealDoc{
		Barcode:     entry.Barcode,
		ProductName: entry.ProductName,
		Unit:        string(entry.Unit),
		Amount:      entry.Amount,
		Day:         entry.Totals.Date,
		Kcal:        entry.Totals.Kcal,
		Protein:     entry.Totals.Protein,
		Fat:         entry.Totals.Fat,
		Carbs:       entry.Totals.Carbs,
		CreatedAt:   entry.CreatedAt,
	}

	if _, err := s.mealsCol(entry.UserID).Doc(string(entry.ID)).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore AppendMealEntry: %w", err)
	}
	return nil
}

// ListMealEntriesByUser returns the last `limit` entries, oldest first.
func (s *Store) ListMealEntriesByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.MealEntry, error) {
	q := s.mealsCol(userID).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.MealEntry
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListMealEntriesByUser: %w", err)
		}

		var doc mealDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode mealDoc: %w", err)
		}

		out = append(out, &domain.MealEntry{
			ID:          domain.MealEntryID(snap.Ref.ID),
			UserID:      userID,
			Barcode:     doc.Barcode,
			ProductName: doc.ProductName,
			Unit:        domain.Unit(doc.Unit),
			Amount:      doc.Amount,
			Totals: domain.DailyTotals{
				Date:    doc.Day,
				Kcal:    doc.Kcal,
				Protein: doc.Protein,
				Fat:     doc.Fat,
				Carbs:   doc.Carbs,
			},
			CreatedAt: doc.CreatedAt,
		})
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
