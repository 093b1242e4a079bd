package domain

import "time"

// UserID is the stable account id of a chat user.
type UserID int64

type MealEntryID string

// Phase is the step of a user's in-progress track conversation.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseAwaitingUnitChoice Phase = "awaiting_unit_choice"
	PhaseAwaitingAmount     Phase = "awaiting_amount"
)

// Unit is the measurement basis of a tracked amount. The zero value means
// no unit was chosen yet.
type Unit string

const (
	UnitGrams    Unit = "grams"
	UnitServings Unit = "servings"
)

func (u Unit) Valid() bool {
	return u == UnitGrams || u == UnitServings
}

type Timestamp = time.Time
