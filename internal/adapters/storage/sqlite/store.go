// Package sqlite keeps conversation state and the meal log in a local
// SQLite file, so in-progress flows survive a restart.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/PabloGalante/kbju-bot/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one writer at a time; avoids SQLITE_BUSY under concurrent users
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// --------- ConversationStore ---------

// ConversationStore is the domain.ConversationStore view of the database.
type ConversationStore struct{ s *Store }

func (s *Store) Conversations() *ConversationStore { return &ConversationStore{s: s} }

func (c *ConversationStore) Get(ctx context.Context, userID domain.UserID) (*domain.ConversationState, error) {
	row := c.s.db.QueryRowContext(ctx, `
		SELECT phase, barcode, product_name, unit, amount, updated_at
		FROM conversation_states WHERE user_id = ?`, int64(userID))

	st := domain.NewConversationState(userID)
	var (
		phase, unit string
		amount      sql.NullFloat64
	)
	err := row.Scan(&phase, &st.Barcode, &st.ProductName, &unit, &amount, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation state %d: %w", userID, err)
	}

	st.Phase = domain.Phase(phase)
	st.Unit = domain.Unit(unit)
	if amount.Valid {
		v := amount.Float64
		st.Amount = &v
	}
	return st, nil
}

// Set upserts the state. An Idle state is stored as no row at all.
func (c *ConversationStore) Set(ctx context.Context, state *domain.ConversationState) error {
	if state.Phase == domain.PhaseIdle {
		return c.Clear(ctx, state.UserID)
	}

	var amount sql.NullFloat64
	if state.Amount != nil {
		amount = sql.NullFloat64{Float64: *state.Amount, Valid: true}
	}
	updated := state.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err := c.s.db.ExecContext(ctx, `
		INSERT INTO conversation_states (user_id, phase, barcode, product_name, unit, amount, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			phase = excluded.phase,
			barcode = excluded.barcode,
			product_name = excluded.product_name,
			unit = excluded.unit,
			amount = excluded.amount,
			updated_at = excluded.updated_at`,
		int64(state.UserID), string(state.Phase), state.Barcode, state.ProductName,
		string(state.Unit), amount, updated.UTC(),
	)
	if err != nil {
		return fmt.Errorf("set conversation state %d: %w", state.UserID, err)
	}
	return nil
}

func (c *ConversationStore) Clear(ctx context.Context, userID domain.UserID) error {
	if _, err := c.s.db.ExecContext(ctx, `DELETE FROM conversation_states WHERE user_id = ?`, int64(userID)); err != nil {
		return fmt.Errorf("clear conversation state %d: %w", userID, err)
	}
	return nil
}

// --------- MealLogStore ---------

type MealLogStore struct{ s *Store }

func (s *Store) Meals() *MealLogStore { return &MealLogStore{s: s} }

func (m *MealLogStore) AppendMealEntry(ctx context.Context, entry *domain.MealEntry) error {
	if entry.ID == "" {
		entry.ID = domain.MealEntryID(uuid.NewString())
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := m.s.db.ExecContext(ctx, `
		INSERT INTO meal_entries
			(id, user_id, barcode, product_name, unit, amount, day, kcal, protein, fat, carbs, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(entry.ID), int64(entry.UserID), entry.Barcode, entry.ProductName,
		string(entry.Unit), entry.Amount,
		entry.Totals.Date, entry.Totals.Kcal, entry.Totals.Protein, entry.Totals.Fat, entry.Totals.Carbs,
		entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append meal entry: %w", err)
	}
	return nil
}

// ListMealEntriesByUser returns the last `limit` entries, oldest first.
func (m *MealLogStore) ListMealEntriesByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.MealEntry, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := m.s.db.QueryContext(ctx, `
		SELECT id, barcode, product_name, unit, amount, day, kcal, protein, fat, carbs, created_at
		FROM meal_entries
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, int64(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("list meal entries: %w", err)
	}
	defer rows.Close()

	var out []*domain.MealEntry
	for rows.Next() {
		e := &domain.MealEntry{UserID: userID}
		var id, unit string
		if err := rows.Scan(
			&id, &e.Barcode, &e.ProductName, &unit, &e.Amount,
			&e.Totals.Date, &e.Totals.Kcal, &e.Totals.Protein, &e.Totals.Fat, &e.Totals.Carbs,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan meal entry: %w", err)
		}
		e.ID = domain.MealEntryID(id)
		e.Unit = domain.Unit(unit)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meal entries: %w", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
