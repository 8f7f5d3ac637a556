//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"meister-eder/domain"
)

const conversationPrefix = "conv:"

type IConversationRepository interface {
	Load(identity string) (*domain.ConversationState, error)
	Save(state *domain.ConversationState) error
	ListIncomplete() ([]domain.ConversationState, error)
}

// ConversationRepository persists conversation state in BadgerDB, one value
// per identity under "conv:{identity}". Values are JSON so a snapshot
// round-trips the same field names as the registration files on disk.
type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) ConversationRepository {
	return ConversationRepository{db: db, log: log}
}

// Load returns nil without error when the identity is unknown.
func (r ConversationRepository) Load(identity string) (*domain.ConversationState, error) {
	var raw []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(identity))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state domain.ConversationState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("corrupt conversation state for %s: %w", identity, err)
	}
	return &state, nil
}

func (r ConversationRepository) Save(state *domain.ConversationState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(state.Identity), raw)
	})
}

// ListIncomplete scans every conversation that has not completed yet. The
// reminder collaborator reads this to decide who to nudge.
func (r ConversationRepository) ListIncomplete() ([]domain.ConversationState, error) {
	var states []domain.ConversationState
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(conversationPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var state domain.ConversationState
				if err := json.Unmarshal(value, &state); err != nil {
					r.log.Warn("Skipping corrupt conversation entry", "key", string(it.Item().Key()))
					return nil
				}
				if !state.Completed {
					states = append(states, state)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return states, err
}

func key(identity string) []byte {
	return []byte(conversationPrefix + identity)
}
