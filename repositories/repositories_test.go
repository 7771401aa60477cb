package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"trip-hub/domain"
	apperrors "trip-hub/errors"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newMessage(groupID, author string, at time.Time) domain.Message {
	return domain.Message{
		ID:         uuid.New(),
		GroupID:    groupID,
		AuthorID:   author,
		AuthorName: author,
		Content:    "hello from " + author,
		Intent:     domain.IntentGeneric,
		At:         at,
	}
}

func Test_Message_Store_And_Get(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	message := newMessage("g1", "Alice", time.Now().UTC().Truncate(time.Millisecond))
	req.NoError(repository.Store(message))

	fetched, err := repository.Get(message.ID)
	req.NoError(err)
	req.Equal(message.ID, fetched.ID)
	req.Equal(message.Content, fetched.Content)
	req.True(message.At.Equal(fetched.At))

	_, err = repository.Get(uuid.New())
	req.ErrorIs(err, apperrors.ErrMessageNotFound)
}

func Test_Message_History_Order_And_Limit(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	at := time.Now().UTC()
	authors := []string{"Alice", "Bob", "Clara"}
	for i, author := range authors {
		req.NoError(repository.Store(newMessage("g1", author, at.Add(time.Duration(i)*time.Minute))))
	}
	req.NoError(repository.Store(newMessage("g2", "Dave", at)))

	history, err := repository.History("g1", 0)
	req.NoError(err)
	req.Len(history, 3)
	for i, author := range authors {
		req.Equal(author, history[i].AuthorID)
	}

	// Limit keeps the most recent ones, still oldest-first.
	history, err = repository.History("g1", 2)
	req.NoError(err)
	req.Len(history, 2)
	req.Equal("Bob", history[0].AuthorID)
	req.Equal("Clara", history[1].AuthorID)
}

func Test_Message_Update_Is_Reflected(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	message := newMessage("g1", "Alice", time.Now().UTC())
	req.NoError(repository.Store(message))

	updated, err := repository.Update(message.ID, func(m *domain.Message) error {
		m.React("Bob", "🔥")
		return nil
	})
	req.NoError(err)
	req.Len(updated.Reactions, 1)

	fetched, err := repository.Get(message.ID)
	req.NoError(err)
	req.Equal(updated.Reactions, fetched.Reactions)
}

func Test_Context_Roundtrip_And_Missing(t *testing.T) {
	req := require.New(t)
	repository := NewContextRepository(openTestDB(t), slog.Default())

	missing, err := repository.Get("nope")
	req.NoError(err)
	req.Nil(missing)

	ctx := domain.NewGroupContext("g1")
	ctx.PushIntent(domain.IntentPlanTrip)
	ctx.Plan = domain.TripPlan{Destination: "Ella", Status: domain.PlanDraft}
	req.NoError(repository.Save(ctx))

	fetched, err := repository.Get("g1")
	req.NoError(err)
	req.Equal([]domain.Intent{domain.IntentPlanTrip}, fetched.Intents)
	req.Equal("Ella", fetched.Plan.Destination)
}

func Test_Poll_Store_Update_List(t *testing.T) {
	req := require.New(t)
	repository := NewPollRepository(openTestDB(t), slog.Default())

	at := time.Now().UTC()
	open := domain.Poll{
		ID: uuid.New(), GroupID: "g1", CreatedBy: "Alice",
		Question: "Where to?", Status: domain.PollOpen, CreatedAt: at,
		Options: []domain.PollOption{domain.NewPollOption("Ella"), domain.NewPollOption("Galle")},
	}
	closed := domain.Poll{
		ID: uuid.New(), GroupID: "g1", CreatedBy: "Alice",
		Question: "When?", Status: domain.PollClosed, CreatedAt: at.Add(time.Minute),
	}
	req.NoError(repository.Store(open))
	req.NoError(repository.Store(closed))

	onlyOpen, err := repository.ListByGroup("g1", false)
	req.NoError(err)
	req.Len(onlyOpen, 1)
	req.Equal(open.ID, onlyOpen[0].ID)

	all, err := repository.ListByGroup("g1", true)
	req.NoError(err)
	req.Len(all, 2)
	// Most recent first.
	req.Equal(closed.ID, all[0].ID)

	updated, err := repository.Update(open.ID, func(p *domain.Poll) error {
		req.True(p.CastVote("Bob", p.Options[0].ID))
		return nil
	})
	req.NoError(err)
	req.Equal(1, updated.TotalVotes())

	_, err = repository.Get(uuid.New())
	req.ErrorIs(err, apperrors.ErrPollNotFound)
}

func Test_Moderation_MissingMeansNoWarnings(t *testing.T) {
	req := require.New(t)
	repository := NewModerationRepository(openTestDB(t), slog.Default())

	record, err := repository.Get("g1", "Alice")
	req.NoError(err)
	req.Equal(0, record.Warnings)

	record.Warnings = 1
	record.WarnedAt = time.Now().UTC()
	req.NoError(repository.Save(record))

	fetched, err := repository.Get("g1", "Alice")
	req.NoError(err)
	req.Equal(1, fetched.Warnings)
}

func Test_Media_Roundtrip(t *testing.T) {
	req := require.New(t)
	repository := NewMediaRepository(openTestDB(t), slog.Default())

	id, err := repository.Store(MediaBlob{Filename: "beach.jpg", ContentType: "image/jpeg", Data: []byte{0xFF, 0xD8}})
	req.NoError(err)
	req.NotEmpty(id)

	blob, err := repository.Get(id)
	req.NoError(err)
	req.Equal("beach.jpg", blob.Filename)
	req.Equal([]byte{0xFF, 0xD8}, blob.Data)

	_, err = repository.Get("missing")
	req.ErrorIs(err, apperrors.ErrMediaNotFound)
}

func Test_GroupDirectory_Membership_And_Moderation(t *testing.T) {
	req := require.New(t)
	directory := NewGroupDirectory(openTestDB(t), slog.Default())
	ctx := t.Context()

	group := domain.Group{
		ID: "g1", Members: []string{"Alice", "Bob", "Clara"},
		CurrentMembers: 3, Status: domain.GroupActive,
	}
	req.NoError(directory.SaveGroup(group))

	member, err := directory.IsMember(ctx, "g1", "Alice")
	req.NoError(err)
	req.True(member)
	member, err = directory.IsMember(ctx, "g1", "Zoe")
	req.NoError(err)
	req.False(member)

	updated, err := directory.RemoveMember(ctx, "g1", "Alice")
	req.NoError(err)
	req.Equal(2, updated.CurrentMembers)
	req.Equal(domain.GroupActive, updated.Status)

	updated, err = directory.RemoveMember(ctx, "g1", "Bob")
	req.NoError(err)
	req.Equal(1, updated.CurrentMembers)
	req.Equal(domain.GroupInactive, updated.Status)

	req.NoError(directory.RejectGroup(ctx, "Alice", "g1"))
	req.NoError(directory.RejectGroup(ctx, "Alice", "g1")) // idempotent
	rejected, err := directory.RejectedGroups("Alice")
	req.NoError(err)
	req.Equal([]string{"g1"}, rejected)

	req.NoError(directory.MarkGreeted(ctx, "g1", "Clara"))
	req.NoError(directory.MarkGreeted(ctx, "g1", "Clara"))
	fetched, err := directory.Group(ctx, "g1")
	req.NoError(err)
	req.Equal([]string{"Clara"}, fetched.GreetedUsers)

	_, err = directory.Group(ctx, "missing")
	req.ErrorIs(err, apperrors.ErrGroupNotFound)
}
