// Package domain contains core concepts of the trip chat system.
// Messages are immutable once posted; reactions and reports are the only
// fields mutated afterwards, and only through the repositories.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reaction is one user's emoji on a message. A user holds at most one
// reaction per message; re-reacting replaces the previous one.
type Reaction struct {
	UserID string
	Emoji  string
}

// Report is one entry of the ordered report log of a message.
type Report struct {
	UserID   string
	At       time.Time
	Category string
	Note     string
}

// Message represents a chat event inside a group.
// Invariant: ReportCount == len(Reporters).
type Message struct {
	ID         uuid.UUID
	GroupID    string
	AuthorID   string
	AuthorName string
	Content    string
	Intent     Intent
	At         time.Time

	// Media messages carry a blob reference instead of text content.
	MediaID   string
	MediaType string

	Reactions   []Reaction
	Reporters   []string
	ReportLog   []Report
	ReportCount int
}

// IsSystem reports whether the message was authored by the assistant.
func (m Message) IsSystem() bool {
	return m.AuthorID == BotUserID
}

// React replaces any previous reaction by the same user and records the new
// one. An empty emoji only removes the previous reaction.
func (m *Message) React(userID, emoji string) {
	kept := m.Reactions[:0]
	for _, r := range m.Reactions {
		if r.UserID != userID {
			kept = append(kept, r)
		}
	}
	m.Reactions = kept
	if emoji != "" {
		m.Reactions = append(m.Reactions, Reaction{UserID: userID, Emoji: emoji})
	}
}

// AddReporter records a unique reporter. It returns false when the reporter
// is already present, leaving the message untouched.
func (m *Message) AddReporter(userID string, at time.Time, category, note string) bool {
	for _, r := range m.Reporters {
		if r == userID {
			return false
		}
	}
	m.Reporters = append(m.Reporters, userID)
	m.ReportLog = append(m.ReportLog, Report{UserID: userID, At: at, Category: category, Note: note})
	m.ReportCount++
	return true
}

// BotUserID identifies the scripted assistant in message author fields.
const BotUserID = "AI_BOT"

// BotName is the display name the assistant posts under.
const BotName = "TripBot"
