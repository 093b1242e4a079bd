package domain

import "fmt"

// ConversationState is the single in-progress track flow of one user.
type ConversationState struct {
	UserID UserID
	Phase  Phase

	// Barcode is set on entering PhaseAwaitingUnitChoice.
	Barcode string
	// ProductName is cached from the lookup for display only.
	ProductName string

	Unit   Unit
	Amount *float64

	UpdatedAt Timestamp
}

// NewConversationState returns the default Idle state for a user.
func NewConversationState(userID UserID) *ConversationState {
	return &ConversationState{
		UserID: userID,
		Phase:  PhaseIdle,
	}
}

// Reset returns the state to Idle with every optional field unset.
func (s *ConversationState) Reset() {
	s.Phase = PhaseIdle
	s.Barcode = ""
	s.ProductName = ""
	s.Unit = ""
	s.Amount = nil
}

// Clone returns a deep copy so callers can mutate without aliasing the store.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	out := *s
	if s.Amount != nil {
		v := *s.Amount
		out.Amount = &v
	}
	return &out
}

// ReadyToTrack reports whether barcode, unit and amount are all present.
func (s *ConversationState) ReadyToTrack() bool {
	return s.Barcode != "" && s.Unit.Valid() && s.Amount != nil && *s.Amount > 0
}

// Validate checks the structural invariants of the state.
func (s *ConversationState) Validate() error {
	switch s.Phase {
	case PhaseIdle:
		if s.Unit != "" || s.Amount != nil || s.Barcode != "" {
			return fmt.Errorf("idle state carries flow data")
		}
	case PhaseAwaitingUnitChoice:
		if s.Barcode == "" {
			return fmt.Errorf("awaiting unit choice without barcode")
		}
		if s.Unit != "" || s.Amount != nil {
			return fmt.Errorf("unit or amount set before unit choice")
		}
	case PhaseAwaitingAmount:
		if s.Barcode == "" || !s.Unit.Valid() {
			return fmt.Errorf("awaiting amount without barcode or unit")
		}
	default:
		return fmt.Errorf("unknown phase %q", s.Phase)
	}
	if s.Amount != nil && *s.Amount <= 0 {
		return fmt.Errorf("non-positive amount %v", *s.Amount)
	}
	return nil
}
