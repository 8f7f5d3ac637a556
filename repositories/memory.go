package repositories

import (
	"sync"

	"meister-eder/domain"
)

// MemoryRepository keeps conversation state in process memory. The chat
// channel uses it: sessions are ephemeral by design and do not survive a
// restart. Sessions are independent, but the map is still guarded so
// concurrent sessions never race.
type MemoryRepository struct {
	mu     sync.RWMutex
	states map[string]domain.ConversationState
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{states: map[string]domain.ConversationState{}}
}

func (r *MemoryRepository) Load(identity string) (*domain.ConversationState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.states[identity]
	if !ok {
		return nil, nil
	}
	copied := state
	return &copied, nil
}

func (r *MemoryRepository) Save(state *domain.ConversationState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state.Identity] = *state
	return nil
}

func (r *MemoryRepository) ListIncomplete() ([]domain.ConversationState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ConversationState
	for _, state := range r.states {
		if !state.Completed {
			out = append(out, state)
		}
	}
	return out, nil
}

// Drop discards a finished session's state.
func (r *MemoryRepository) Drop(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, identity)
}
