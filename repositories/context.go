//go:generate go run go.uber.org/mock/mockgen -source=context.go -destination=../mocks/mock_context_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"trip-hub/domain"
)

type IContextRepository interface {
	Save(ctx *domain.GroupContext) error
	Get(groupID string) (*domain.GroupContext, error)
}

// ContextRepository persists the per-group conversational memory under
// "ctx:{group}". The store writes through on every mutation, so the stored
// document is always the current context.
type ContextRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewContextRepository(db *badger.DB, log *slog.Logger) ContextRepository {
	return ContextRepository{db: db, log: log}
}

func contextKey(groupID string) []byte {
	return []byte(fmt.Sprintf("ctx:%s", groupID))
}

func (r ContextRepository) Save(ctx *domain.GroupContext) error {
	bytes, err := encode(ctx)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(contextKey(ctx.GroupID), bytes)
	})
}

// Get returns nil without error when no context was stored yet; the store
// initializes an empty one lazily.
func (r ContextRepository) Get(groupID string) (*domain.GroupContext, error) {
	var ctx *domain.GroupContext
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(contextKey(groupID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			ctx = &domain.GroupContext{}
			return decode(val, ctx)
		})
	})
	return ctx, err
}
