//go:generate go run go.uber.org/mock/mockgen -source=moderation.go -destination=../mocks/mock_moderation_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"trip-hub/domain"
)

type IModerationRepository interface {
	Get(groupID, userID string) (domain.ModerationRecord, error)
	Save(record domain.ModerationRecord) error
}

// ModerationRepository keeps per-author escalation state under
// "warn:{group}:{user}". A missing record means the author was never warned.
type ModerationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewModerationRepository(db *badger.DB, log *slog.Logger) ModerationRepository {
	return ModerationRepository{db: db, log: log}
}

func moderationKey(groupID, userID string) []byte {
	return []byte(fmt.Sprintf("warn:%s:%s", groupID, userID))
}

func (r ModerationRepository) Get(groupID, userID string) (domain.ModerationRecord, error) {
	record := domain.ModerationRecord{GroupID: groupID, UserID: userID}
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(moderationKey(groupID, userID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return decode(val, &record)
		})
	})
	return record, err
}

func (r ModerationRepository) Save(record domain.ModerationRecord) error {
	bytes, err := encode(record)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(moderationKey(record.GroupID, record.UserID), bytes)
	})
}
