//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"trip-hub/domain"
	apperrors "trip-hub/errors"
)

type IMessageRepository interface {
	Store(message domain.Message) error
	Get(id uuid.UUID) (domain.Message, error)
	Update(id uuid.UUID, mutate func(*domain.Message) error) (domain.Message, error)
	History(groupID string, limit int) ([]domain.Message, error)
}

// MessageRepository stores messages under "msg:{group}:{paddedNanos}:{id}"
// so that a prefix scan yields them in chronological order, plus an id index
// "msgidx:{id}" pointing at the primary key for direct lookups.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

func messageKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%s:%s", m.GroupID, paddedNanos(m.At), m.ID))
}

func messageIndexKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msgidx:%s", id))
}

func (r MessageRepository) Store(message domain.Message) error {
	bytes, err := encode(message)
	if err != nil {
		return err
	}
	key := messageKey(message)
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		return txn.Set(messageIndexKey(message.ID), key)
	})
}

func (r MessageRepository) Get(id uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		message, err = getByIndex(txn, id)
		return err
	})
	return message, err
}

// Update applies mutate inside a single transaction. Combined with the
// per-message lock held by the caller, the read-modify-write is atomic with
// respect to concurrent reporters and reactors.
func (r MessageRepository) Update(id uuid.UUID, mutate func(*domain.Message) error) (domain.Message, error) {
	var updated domain.Message
	err := r.db.Update(func(txn *badger.Txn) error {
		message, err := getByIndex(txn, id)
		if err != nil {
			return err
		}
		if err := mutate(&message); err != nil {
			return err
		}
		bytes, err := encode(message)
		if err != nil {
			return err
		}
		updated = message
		return txn.Set(messageKey(message), bytes)
	})
	return updated, err
}

func getByIndex(txn *badger.Txn, id uuid.UUID) (domain.Message, error) {
	var message domain.Message
	item, err := txn.Get(messageIndexKey(id))
	if err == badger.ErrKeyNotFound {
		return message, apperrors.ErrMessageNotFound
	}
	if err != nil {
		return message, err
	}
	primaryKey, err := item.ValueCopy(nil)
	if err != nil {
		return message, err
	}
	item, err = txn.Get(primaryKey)
	if err == badger.ErrKeyNotFound {
		return message, apperrors.ErrMessageNotFound
	}
	if err != nil {
		return message, err
	}
	err = item.Value(func(val []byte) error {
		return decode(val, &message)
	})
	return message, err
}

// History returns up to limit of the group's most recent messages,
// oldest-first. It scans the chronological prefix backwards and reverses
// the collected slice.
func (r MessageRepository) History(groupID string, limit int) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", groupID))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible key of the prefix, then walk back.
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(messages) == limit {
				break
			}
			var message domain.Message
			err := it.Item().Value(func(val []byte) error {
				return decode(val, &message)
			})
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
