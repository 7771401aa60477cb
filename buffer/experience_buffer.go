// Package buffer stages multi-message experience narratives per group and
// user until silence or an intent change flushes them.
package buffer

import (
	"strings"
	"sync"
	"time"

	"trip-hub/domain"
)

// Entry is one user's staging area inside one group. Cleared (not deleted)
// on flush; superseded when the user's intent changes.
type Entry struct {
	Messages      []string
	LastMessageAt time.Time
	Intent        domain.Intent
}

// Empty reports whether there is nothing staged.
func (e Entry) Empty() bool {
	return len(e.Messages) == 0
}

// Combined joins the staged messages with single spaces.
func (e Entry) Combined() string {
	return strings.Join(e.Messages, " ")
}

// Experiences holds the staging areas, keyed by group then user. A single
// mutex guards the two-level map; every operation is a short
// read-modify-write, and flush decisions re-read state under the same lock
// so a timer and a live handler can never both flush the same content.
type Experiences struct {
	mu     sync.Mutex
	groups map[string]map[string]*Entry
}

func NewExperiences() *Experiences {
	return &Experiences{groups: make(map[string]map[string]*Entry)}
}

// Append stages a message, creating the entry on first use and re-tagging
// it with the given intent.
func (b *Experiences) Append(groupID, userID, text string, intent domain.Intent, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	users, ok := b.groups[groupID]
	if !ok {
		users = make(map[string]*Entry)
		b.groups[groupID] = users
	}
	entry, ok := users[userID]
	if !ok {
		entry = &Entry{}
		users[userID] = entry
	}
	entry.Intent = intent
	entry.Messages = append(entry.Messages, text)
	entry.LastMessageAt = at
}

// Get returns a snapshot of the user's entry.
func (b *Experiences) Get(groupID, userID string) (Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.lookup(groupID, userID)
	if !ok {
		return Entry{}, false
	}
	snapshot := *entry
	snapshot.Messages = append([]string(nil), entry.Messages...)
	return snapshot, true
}

// TakeIfTagged atomically drains the entry when it still carries the wanted
// intent tag and is non-empty. It returns the drained snapshot; ok=false
// means the caller's flush was superseded and must become a no-op.
func (b *Experiences) TakeIfTagged(groupID, userID string, intent domain.Intent) (Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.lookup(groupID, userID)
	if !ok || entry.Intent != intent || entry.Empty() {
		return Entry{}, false
	}
	snapshot := *entry
	entry.Messages = nil
	entry.LastMessageAt = time.Now().UTC()
	return snapshot, true
}

// TakeIfSilent drains like TakeIfTagged but additionally requires that the
// user has been silent for at least the given window. A timer scheduled
// before further messages arrived sees fresh activity here and becomes a
// no-op; the timer scheduled by the latest message performs the flush.
func (b *Experiences) TakeIfSilent(groupID, userID string, intent domain.Intent, silence time.Duration) (Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.lookup(groupID, userID)
	if !ok || entry.Intent != intent || entry.Empty() {
		return Entry{}, false
	}
	if time.Since(entry.LastMessageAt) < silence {
		return Entry{}, false
	}
	snapshot := *entry
	entry.Messages = nil
	entry.LastMessageAt = time.Now().UTC()
	return snapshot, true
}

// Clear empties the entry without deleting it.
func (b *Experiences) Clear(groupID, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if entry, ok := b.lookup(groupID, userID); ok {
		entry.Messages = nil
		entry.LastMessageAt = time.Now().UTC()
	}
}

func (b *Experiences) lookup(groupID, userID string) (*Entry, bool) {
	users, ok := b.groups[groupID]
	if !ok {
		return nil, false
	}
	entry, ok := users[userID]
	return entry, ok
}
