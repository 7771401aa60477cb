package repositories

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	apperrors "trip-hub/errors"
)

// MediaBlob is an uploaded file shared into a group chat.
type MediaBlob struct {
	ID          string
	Filename    string
	ContentType string
	Data        []byte
}

type IMediaRepository interface {
	Store(blob MediaBlob) (string, error)
	Get(id string) (MediaBlob, error)
}

// MediaRepository keeps uploaded blobs under "media:{id}".
type MediaRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMediaRepository(db *badger.DB, log *slog.Logger) MediaRepository {
	return MediaRepository{db: db, log: log}
}

func mediaKey(id string) []byte {
	return []byte(fmt.Sprintf("media:%s", id))
}

func (r MediaRepository) Store(blob MediaBlob) (string, error) {
	if blob.ID == "" {
		blob.ID = uuid.NewString()
	}
	bytes, err := encode(blob)
	if err != nil {
		return "", err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(mediaKey(blob.ID), bytes)
	})
	return blob.ID, err
}

func (r MediaRepository) Get(id string) (MediaBlob, error) {
	var blob MediaBlob
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(mediaKey(id))
		if err == badger.ErrKeyNotFound {
			return apperrors.ErrMediaNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return decode(val, &blob)
		})
	})
	return blob, err
}
