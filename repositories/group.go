//go:generate go run go.uber.org/mock/mockgen -source=group.go -destination=../mocks/mock_group_directory.go -package=mocks
package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"trip-hub/contract"
	"trip-hub/domain"
	apperrors "trip-hub/errors"
)

// GroupDirectory is the badger-backed default of the membership
// collaborator. Group CRUD itself lives in another service; this directory
// only answers membership questions and applies moderation removals.
type GroupDirectory struct {
	db  *badger.DB
	log *slog.Logger
}

func NewGroupDirectory(db *badger.DB, log *slog.Logger) GroupDirectory {
	return GroupDirectory{db: db, log: log}
}

var _ contract.GroupDirectory = GroupDirectory{}

func groupKey(groupID string) []byte {
	return []byte(fmt.Sprintf("group:%s", groupID))
}

func userKey(userID string) []byte {
	return []byte(fmt.Sprintf("user:%s", userID))
}

type userRecord struct {
	UserID         string
	Name           string
	RejectedGroups []string
}

func (d GroupDirectory) Group(_ context.Context, groupID string) (domain.Group, error) {
	var group domain.Group
	err := d.db.View(func(txn *badger.Txn) error {
		var err error
		group, err = getGroup(txn, groupID)
		return err
	})
	return group, err
}

func (d GroupDirectory) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	group, err := d.Group(ctx, groupID)
	if err != nil {
		return false, err
	}
	return group.HasMember(userID), nil
}

func (d GroupDirectory) MemberCount(ctx context.Context, groupID string) (int, error) {
	group, err := d.Group(ctx, groupID)
	if err != nil {
		return 0, err
	}
	return group.CurrentMembers, nil
}

// RemoveMember drops the author and recomputes count and status in a single
// transaction, returning the updated group.
func (d GroupDirectory) RemoveMember(_ context.Context, groupID, userID string) (domain.Group, error) {
	var updated domain.Group
	err := d.db.Update(func(txn *badger.Txn) error {
		group, err := getGroup(txn, groupID)
		if err != nil {
			return err
		}
		group.RemoveMember(userID)
		bytes, err := encode(group)
		if err != nil {
			return err
		}
		updated = group
		return txn.Set(groupKey(groupID), bytes)
	})
	return updated, err
}

// MarkGreeted records that the user received the onboarding digest.
// Idempotent.
func (d GroupDirectory) MarkGreeted(_ context.Context, groupID, userID string) error {
	return d.db.Update(func(txn *badger.Txn) error {
		group, err := getGroup(txn, groupID)
		if err != nil {
			return err
		}
		if group.Greeted(userID) {
			return nil
		}
		group.GreetedUsers = append(group.GreetedUsers, userID)
		bytes, err := encode(group)
		if err != nil {
			return err
		}
		return txn.Set(groupKey(groupID), bytes)
	})
}

// RejectGroup adds the group to the user's rejection list so matching and
// recommendation exclude it afterwards.
func (d GroupDirectory) RejectGroup(_ context.Context, userID, groupID string) error {
	return d.db.Update(func(txn *badger.Txn) error {
		record := userRecord{UserID: userID}
		item, err := txn.Get(userKey(userID))
		if err == nil {
			if err := item.Value(func(val []byte) error {
				return decode(val, &record)
			}); err != nil {
				return err
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		for _, g := range record.RejectedGroups {
			if g == groupID {
				return nil
			}
		}
		record.RejectedGroups = append(record.RejectedGroups, groupID)
		bytes, err := encode(record)
		if err != nil {
			return err
		}
		return txn.Set(userKey(userID), bytes)
	})
}

// SaveGroup seeds or replaces a membership record. The membership CRUD
// service owns this in production; tests and local runs use it directly.
func (d GroupDirectory) SaveGroup(group domain.Group) error {
	bytes, err := encode(group)
	if err != nil {
		return err
	}
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(groupKey(group.ID), bytes)
	})
}

// RejectedGroups lists the groups a user was removed from.
func (d GroupDirectory) RejectedGroups(userID string) ([]string, error) {
	var record userRecord
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(userID))
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
	return record.RejectedGroups, err
}

func getGroup(txn *badger.Txn, groupID string) (domain.Group, error) {
	var group domain.Group
	item, err := txn.Get(groupKey(groupID))
	if err == badger.ErrKeyNotFound {
		return group, apperrors.ErrGroupNotFound
	}
	if err != nil {
		return group, err
	}
	err = item.Value(func(val []byte) error {
		return decode(val, &group)
	})
	return group, err
}
