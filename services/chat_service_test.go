package services

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"trip-hub/buffer"
	"trip-hub/dispatcher"
	"trip-hub/domain"
	"trip-hub/domain/event"
	apperrors "trip-hub/errors"
	"trip-hub/mocks"
	"trip-hub/nlp"
	"trip-hub/repositories"
	"trip-hub/runtime"
	"trip-hub/store"
)

type stubHub struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (h *stubHub) Broadcast(e event.DomainEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *stubHub) all() []event.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]event.DomainEvent, len(h.events))
	copy(out, h.events)
	return out
}

type stubSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *stubSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *stubSink) received() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.DomainEvent, len(s.events))
	copy(out, s.events)
	return out
}

type chatFixture struct {
	chat      *ChatService
	hub       *stubHub
	messages  repositories.MessageRepository
	directory repositories.GroupDirectory
	assistant *mocks.MockAssistant
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	timersCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := slog.New(slog.DiscardHandler)
	ctrl := gomock.NewController(t)
	classifier := mocks.NewMockIntentClassifier(ctrl)
	classifier.EXPECT().Classify(gomock.Any()).Return(domain.IntentGeneric).AnyTimes()
	extractor := mocks.NewMockEntityExtractor(ctrl)
	extractor.EXPECT().Extract(gomock.Any()).Return(nil, nil).AnyTimes()
	ai := mocks.NewMockAssistant(ctrl)
	weather := mocks.NewMockWeatherService(ctrl)
	subtypes, err := nlp.NewSubtypeDetector()
	require.NoError(t, err)

	messages := repositories.NewMessageRepository(db, log)
	media := repositories.NewMediaRepository(db, log)
	contexts := store.NewContextStore(repositories.NewContextRepository(db, log), nil, log)
	directory := repositories.NewGroupDirectory(db, log)
	require.NoError(t, directory.SaveGroup(domain.Group{
		ID: "g1", Members: []string{"alice", "bob"},
		CurrentMembers: 2, Status: domain.GroupActive,
	}))

	hub := &stubHub{}
	timers := dispatcher.DefaultTimers()
	disp := dispatcher.NewDispatcher(timersCtx, messages, contexts, nil, buffer.NewExperiences(),
		hub, runtime.NewDeferred(log), classifier, extractor, ai, weather, subtypes, timers, log)

	return &chatFixture{
		chat:      NewChatService(runtime.NewRegistry(), hub, disp, directory, messages, media, contexts, nil, ai, log),
		hub:       hub,
		messages:  messages,
		directory: directory,
		assistant: ai,
	}
}

func TestJoin_RejectsNonMembers(t *testing.T) {
	f := newChatFixture(t)
	err := f.chat.Join(context.Background(), "g1", "zoe", "Zoe", &stubSink{})
	require.ErrorIs(t, err, apperrors.ErrNotMember)

	err = f.chat.Join(context.Background(), "missing", "alice", "Alice", &stubSink{})
	require.ErrorIs(t, err, apperrors.ErrGroupNotFound)
}

func TestJoin_SendsOnboardingDigestOnce(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	ctx := context.Background()

	// Seed some history so the digest has material.
	_, err := f.chat.Post(ctx, PostMessageCommand{
		GroupID: "g1", UserID: "bob", Username: "Bob", Text: "The beach in Mirissa was great",
	})
	req.NoError(err)

	f.assistant.EXPECT().Ask(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, prompt string) (string, error) {
			require.True(t, strings.Contains(prompt, "Bob: The beach in Mirissa was great"))
			return "Bob praised the beach in Mirissa.", nil
		})

	sink := &stubSink{}
	req.NoError(f.chat.Join(ctx, "g1", "alice", "Alice", sink))

	received := sink.received()
	req.Len(received, 1)
	welcome, ok := received[0].(event.MessagePosted)
	req.True(ok)
	req.Contains(welcome.Content, "Hi Alice! Here's what you missed:")
	req.Contains(welcome.Content, "Bob praised the beach in Mirissa.")

	// The digest is personal: nothing went through the hub for it.
	for _, e := range f.hub.all() {
		if m, isPosted := e.(event.MessagePosted); isPosted {
			req.NotContains(m.Content, "what you missed")
		}
	}

	// Rejoining does not greet again.
	second := &stubSink{}
	req.NoError(f.chat.Join(ctx, "g1", "alice", "Alice", second))
	req.Empty(second.received())
}

func TestJoin_EmptyGroupGetsCannedDigest(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	sink := &stubSink{}
	req.NoError(f.chat.Join(context.Background(), "g1", "alice", "Alice", sink))

	received := sink.received()
	req.Len(received, 1)
	welcome := received[0].(event.MessagePosted)
	req.Contains(welcome.Content, "No one has shared anything yet")
}

func TestPost_ValidatesAndChecksMembership(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.chat.Post(ctx, PostMessageCommand{GroupID: "g1", UserID: "alice", Username: "Alice"})
	req.Error(err, "missing text fails validation")

	_, err = f.chat.Post(ctx, PostMessageCommand{
		GroupID: "g1", UserID: "zoe", Username: "Zoe", Text: "hello",
	})
	req.ErrorIs(err, apperrors.ErrNotMember)
}

func TestReact_ReplacesAndRemoves(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	ctx := context.Background()

	msg, err := f.chat.Post(ctx, PostMessageCommand{
		GroupID: "g1", UserID: "alice", Username: "Alice", Text: "Look at this sunset",
	})
	req.NoError(err)

	updated, err := f.chat.React(ctx, ReactCommand{MessageID: msg.ID.String(), UserID: "bob", Emoji: "🔥"})
	req.NoError(err)
	req.Equal([]domain.Reaction{{UserID: "bob", Emoji: "🔥"}}, updated.Reactions)

	updated, err = f.chat.React(ctx, ReactCommand{MessageID: msg.ID.String(), UserID: "bob", Emoji: "😍"})
	req.NoError(err)
	req.Equal([]domain.Reaction{{UserID: "bob", Emoji: "😍"}}, updated.Reactions)

	updated, err = f.chat.React(ctx, ReactCommand{MessageID: msg.ID.String(), UserID: "bob"})
	req.NoError(err)
	req.Empty(updated.Reactions)

	_, err = f.chat.React(ctx, ReactCommand{MessageID: "not-a-uuid", UserID: "bob", Emoji: "🔥"})
	req.ErrorIs(err, apperrors.ErrInvalidID)

	_, err = f.chat.React(ctx, ReactCommand{MessageID: msg.ID.String(), UserID: "zoe", Emoji: "🔥"})
	req.ErrorIs(err, apperrors.ErrNotMember)

	var reactionEvents int
	for _, e := range f.hub.all() {
		if _, ok := e.(event.ReactionUpdated); ok {
			reactionEvents++
		}
	}
	req.Equal(3, reactionEvents)
}

func TestShareMedia_SniffsContentType(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	ctx := context.Background()

	pngHeader := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	msg, err := f.chat.ShareMedia(ctx, ShareMediaCommand{
		GroupID: "g1", UserID: "alice", Username: "Alice",
		Filename: "sunset.png", Data: pngHeader,
	})
	req.NoError(err)
	req.Equal("image/png", msg.MediaType)
	req.NotEmpty(msg.MediaID)

	blob, err := f.chat.Media(msg.MediaID)
	req.NoError(err)
	req.Equal("sunset.png", blob.Filename)
	req.Equal(pngHeader, blob.Data)

	var shared []event.MediaShared
	for _, e := range f.hub.all() {
		if m, ok := e.(event.MediaShared); ok {
			shared = append(shared, m)
		}
	}
	req.Len(shared, 1)
	req.Equal(msg.MediaID, shared[0].MediaID)

	_, err = f.chat.Media("")
	req.ErrorIs(err, apperrors.ErrInvalidID)
}

func TestAnnounceLeave_PostsSystemNotice(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	f.chat.AnnounceLeave(context.Background(), "g1", "Alice")

	history, err := f.messages.History("g1", 0)
	req.NoError(err)
	req.Len(history, 1)
	req.True(history[0].IsSystem())
	req.Contains(history[0].Content, "Alice left the group")

	// System notices never touch the reply cooldown.
	time.Sleep(time.Millisecond)
	allowed, err := f.chat.contexts.CanReply("g1", time.Hour)
	req.NoError(err)
	req.True(allowed)
}
