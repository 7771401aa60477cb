package buffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trip-hub/domain"
)

func TestExperiences_AppendAndCombine(t *testing.T) {
	req := require.New(t)
	buf := NewExperiences()
	now := time.Now().UTC()

	buf.Append("g1", "u1", "We went to Ella", domain.IntentShareExperience, now)
	buf.Append("g1", "u1", "The train ride was great", domain.IntentShareExperience, now)

	entry, ok := buf.Get("g1", "u1")
	req.True(ok)
	req.Len(entry.Messages, 2)
	req.Equal("We went to Ella The train ride was great", entry.Combined())
	req.Equal(domain.IntentShareExperience, entry.Intent)
}

func TestExperiences_TakeIfTagged(t *testing.T) {
	req := require.New(t)
	buf := NewExperiences()
	now := time.Now().UTC()
	buf.Append("g1", "u1", "first", domain.IntentShareExperience, now)

	// Wrong tag drains nothing.
	_, ok := buf.TakeIfTagged("g1", "u1", domain.IntentGeneric)
	req.False(ok)

	drained, ok := buf.TakeIfTagged("g1", "u1", domain.IntentShareExperience)
	req.True(ok)
	req.Equal([]string{"first"}, drained.Messages)

	// Second take is a no-op: the entry is already empty.
	_, ok = buf.TakeIfTagged("g1", "u1", domain.IntentShareExperience)
	req.False(ok)
}

func TestExperiences_TakeIfSilent(t *testing.T) {
	req := require.New(t)
	buf := NewExperiences()

	buf.Append("g1", "u1", "fresh", domain.IntentShareExperience, time.Now().UTC())
	_, ok := buf.TakeIfSilent("g1", "u1", domain.IntentShareExperience, time.Minute)
	req.False(ok, "recent activity must block the flush")

	stale := time.Now().UTC().Add(-2 * time.Minute)
	buf.Clear("g1", "u1")
	buf.Append("g1", "u1", "old story", domain.IntentShareExperience, stale)
	drained, ok := buf.TakeIfSilent("g1", "u1", domain.IntentShareExperience, time.Minute)
	req.True(ok)
	req.Equal([]string{"old story"}, drained.Messages)
}

func TestExperiences_UsersAreIsolated(t *testing.T) {
	req := require.New(t)
	buf := NewExperiences()
	now := time.Now().UTC()

	buf.Append("g1", "u1", "mine", domain.IntentShareExperience, now)
	buf.Append("g1", "u2", "theirs", domain.IntentShareExperience, now)
	buf.Append("g2", "u1", "elsewhere", domain.IntentShareExperience, now)

	drained, ok := buf.TakeIfTagged("g1", "u1", domain.IntentShareExperience)
	req.True(ok)
	req.Equal([]string{"mine"}, drained.Messages)

	other, ok := buf.Get("g1", "u2")
	req.True(ok)
	req.Equal([]string{"theirs"}, other.Messages)
	elsewhere, ok := buf.Get("g2", "u1")
	req.True(ok)
	req.Equal([]string{"elsewhere"}, elsewhere.Messages)
}

func TestExperiences_ClearKeepsEntry(t *testing.T) {
	req := require.New(t)
	buf := NewExperiences()
	buf.Append("g1", "u1", "text", domain.IntentShareExperience, time.Now().UTC())

	buf.Clear("g1", "u1")
	entry, ok := buf.Get("g1", "u1")
	req.True(ok)
	req.True(entry.Empty())
}
