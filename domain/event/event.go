// Package event defines the broadcast events fanned out to live
// connections. Each event is scoped to one group; per-group delivery order
// follows the order events were issued.
package event

import (
	"time"

	"github.com/google/uuid"

	"trip-hub/domain"
)

// Type tags the event envelope for clients.
type Type string

const (
	TypeMessage    Type = "message"
	TypeReaction   Type = "reaction"
	TypeMedia      Type = "media"
	TypePollResult Type = "poll-result"
)

// DomainEvent is anything the fanout worker can deliver to a group.
type DomainEvent interface {
	GroupID() string
	Kind() Type
}

// MessagePosted carries a user or assistant message.
type MessagePosted struct {
	ID         uuid.UUID
	Group      string
	AuthorID   string
	AuthorName string
	Content    string
	Intent     domain.Intent
	At         time.Time
}

func (e MessagePosted) GroupID() string { return e.Group }
func (e MessagePosted) Kind() Type      { return TypeMessage }

// ReactionUpdated carries the full reaction set of a message after a change.
type ReactionUpdated struct {
	MessageID uuid.UUID
	Group     string
	Reactions []domain.Reaction
}

func (e ReactionUpdated) GroupID() string { return e.Group }
func (e ReactionUpdated) Kind() Type      { return TypeReaction }

// MediaShared announces an uploaded blob.
type MediaShared struct {
	ID         uuid.UUID
	Group      string
	AuthorID   string
	AuthorName string
	MediaID    string
	MediaType  string
	At         time.Time
}

func (e MediaShared) GroupID() string { return e.Group }
func (e MediaShared) Kind() Type      { return TypeMedia }

// PollResult carries the ranked summary of a closed poll.
type PollResult struct {
	PollID  uuid.UUID
	Group   string
	Summary string
	At      time.Time
}

func (e PollResult) GroupID() string { return e.Group }
func (e PollResult) Kind() Type      { return TypePollResult }
