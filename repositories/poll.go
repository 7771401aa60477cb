//go:generate go run go.uber.org/mock/mockgen -source=poll.go -destination=../mocks/mock_poll_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"trip-hub/domain"
	apperrors "trip-hub/errors"
)

type IPollRepository interface {
	Store(poll domain.Poll) error
	Get(id uuid.UUID) (domain.Poll, error)
	Update(id uuid.UUID, mutate func(*domain.Poll) error) (domain.Poll, error)
	ListByGroup(groupID string, includeClosed bool) ([]domain.Poll, error)
}

// PollRepository keeps polls under "poll:{id}" with a per-group
// chronological index "pollgrp:{group}:{paddedNanos}:{id}".
type PollRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewPollRepository(db *badger.DB, log *slog.Logger) PollRepository {
	return PollRepository{db: db, log: log}
}

func pollKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("poll:%s", id))
}

func pollGroupKey(p domain.Poll) []byte {
	return []byte(fmt.Sprintf("pollgrp:%s:%s:%s", p.GroupID, paddedNanos(p.CreatedAt), p.ID))
}

func (r PollRepository) Store(poll domain.Poll) error {
	bytes, err := encode(poll)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(pollKey(poll.ID), bytes); err != nil {
			return err
		}
		return txn.Set(pollGroupKey(poll), pollKey(poll.ID))
	})
}

func (r PollRepository) Get(id uuid.UUID) (domain.Poll, error) {
	var poll domain.Poll
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		poll, err = getPoll(txn, id)
		return err
	})
	return poll, err
}

// Update applies mutate inside one transaction; the engine additionally
// serializes voters per poll so increment-and-record never interleaves.
func (r PollRepository) Update(id uuid.UUID, mutate func(*domain.Poll) error) (domain.Poll, error) {
	var updated domain.Poll
	err := r.db.Update(func(txn *badger.Txn) error {
		poll, err := getPoll(txn, id)
		if err != nil {
			return err
		}
		if err := mutate(&poll); err != nil {
			return err
		}
		bytes, err := encode(poll)
		if err != nil {
			return err
		}
		updated = poll
		return txn.Set(pollKey(poll.ID), bytes)
	})
	return updated, err
}

func getPoll(txn *badger.Txn, id uuid.UUID) (domain.Poll, error) {
	var poll domain.Poll
	item, err := txn.Get(pollKey(id))
	if err == badger.ErrKeyNotFound {
		return poll, apperrors.ErrPollNotFound
	}
	if err != nil {
		return poll, err
	}
	err = item.Value(func(val []byte) error {
		return decode(val, &poll)
	})
	return poll, err
}

// ListByGroup returns a group's polls, most recent first.
func (r PollRepository) ListByGroup(groupID string, includeClosed bool) ([]domain.Poll, error) {
	var polls []domain.Poll
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("pollgrp:%s:", groupID))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			primaryKey, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			item, err := txn.Get(primaryKey)
			if err != nil {
				return err
			}
			var poll domain.Poll
			if err := item.Value(func(val []byte) error {
				return decode(val, &poll)
			}); err != nil {
				return err
			}
			if !includeClosed && poll.Status != domain.PollOpen {
				continue
			}
			polls = append(polls, poll)
		}
		return nil
	})
	return polls, err
}
