package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/kbju-bot/internal/domain"
)

// ConversationStore keeps conversation states in a map. States are copied
// in and out so callers never share memory with the store.
type ConversationStore struct {
	mu     sync.RWMutex
	states map[domain.UserID]*domain.ConversationState
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		states: make(map[domain.UserID]*domain.ConversationState),
	}
}

func (s *ConversationStore) Get(_ context.Context, userID domain.UserID) (*domain.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[userID]
	if !ok {
		return domain.NewConversationState(userID), nil
	}
	return state.Clone(), nil
}

func (s *ConversationStore) Set(_ context.Context, state *domain.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state.Phase == domain.PhaseIdle {
		delete(s.states, state.UserID)
		return nil
	}

	s.states[state.UserID] = state.Clone()
	return nil
}

func (s *ConversationStore) Clear(_ context.Context, userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, userID)
	return nil
}

// Len returns how many users have a non-idle conversation.
func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}
