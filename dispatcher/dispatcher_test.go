package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"trip-hub/assistant"
	"trip-hub/buffer"
	"trip-hub/domain"
	"trip-hub/domain/event"
	apperrors "trip-hub/errors"
	"trip-hub/mocks"
	"trip-hub/nlp"
	"trip-hub/repositories"
	"trip-hub/runtime"
	"trip-hub/store"
)

type captureHub struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (h *captureHub) Broadcast(e event.DomainEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *captureHub) posted() []event.MessagePosted {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []event.MessagePosted
	for _, e := range h.events {
		if m, ok := e.(event.MessagePosted); ok {
			out = append(out, m)
		}
	}
	return out
}

type fixture struct {
	dispatcher *Dispatcher
	hub        *captureHub
	messages   repositories.MessageRepository
	contexts   *store.ContextStore
	buffers    *buffer.Experiences
	classifier *mocks.MockIntentClassifier
	extractor  *mocks.MockEntityExtractor
	assistant  *mocks.MockAssistant
	weather    *mocks.MockWeatherService
}

// shortTimers keeps the deferred behaviors observable within a test run.
func shortTimers() Timers {
	return Timers{
		FlushSilence:    30 * time.Millisecond,
		FlushGrace:      time.Minute,
		HelpDelay:       30 * time.Millisecond,
		HelpQuietWindow: 10 * time.Millisecond,
		GreetSilence:    time.Minute,
	}
}

// idleTimers parks every deferred behavior beyond the test's lifetime.
func idleTimers() Timers {
	return Timers{
		FlushSilence:    time.Hour,
		FlushGrace:      time.Minute,
		HelpDelay:       time.Hour,
		HelpQuietWindow: time.Hour,
		GreetSilence:    time.Minute,
	}
}

func newFixture(t *testing.T, timers Timers) *fixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// Timers are bound to this context; cancelling it on cleanup reaps any
	// timer a test armed but never waited for.
	timersCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := slog.New(slog.DiscardHandler)
	ctrl := gomock.NewController(t)
	subtypes, err := nlp.NewSubtypeDetector()
	require.NoError(t, err)

	f := &fixture{
		hub:        &captureHub{},
		messages:   repositories.NewMessageRepository(db, log),
		contexts:   store.NewContextStore(repositories.NewContextRepository(db, log), nil, log),
		buffers:    buffer.NewExperiences(),
		classifier: mocks.NewMockIntentClassifier(ctrl),
		extractor:  mocks.NewMockEntityExtractor(ctrl),
		assistant:  mocks.NewMockAssistant(ctrl),
		weather:    mocks.NewMockWeatherService(ctrl),
	}
	f.dispatcher = NewDispatcher(timersCtx, f.messages, f.contexts, nil, f.buffers,
		f.hub, runtime.NewDeferred(log), f.classifier, f.extractor,
		f.assistant, f.weather, subtypes, timers, log)
	return f
}

func (f *fixture) botMessages(t *testing.T) []domain.Message {
	t.Helper()
	history, err := f.messages.History("g1", 0)
	require.NoError(t, err)
	var out []domain.Message
	for _, m := range history {
		if m.IsSystem() {
			out = append(out, m)
		}
	}
	return out
}

func inbound(text string) Inbound {
	return Inbound{GroupID: "g1", UserID: "alice", Username: "Alice", Text: text}
}

func TestHandleMessage_RejectsEmptyText(t *testing.T) {
	f := newFixture(t, idleTimers())
	_, err := f.dispatcher.HandleMessage(context.Background(), inbound("   "))
	require.ErrorIs(t, err, apperrors.ErrEmptyMessage)
}

func TestHandleMessage_PersistsStampsAndBroadcasts(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, idleTimers())
	f.classifier.EXPECT().Classify("hello there").Return(domain.IntentGeneric)

	before := time.Now().UTC()
	msg, err := f.dispatcher.HandleMessage(context.Background(), inbound("hello there"))
	req.NoError(err)
	req.Equal(domain.IntentGeneric, msg.Intent)

	history, err := f.messages.History("g1", 0)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("hello there", history[0].Content)

	posted := f.hub.posted()
	req.Len(posted, 1)
	req.Equal(msg.ID, posted[0].ID)

	ctx, err := f.contexts.Get("g1")
	req.NoError(err)
	req.False(ctx.LastMessageAt.Before(before))
	req.Equal([]domain.Intent{domain.IntentGeneric}, ctx.Intents)
}

func TestHandleMessage_QuestionShapeOverridesClassifier(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, idleTimers())
	f.classifier.EXPECT().Classify("Has anyone been to Ella").Return(domain.IntentGeneric)

	msg, err := f.dispatcher.HandleMessage(context.Background(), inbound("Has anyone been to Ella"))
	req.NoError(err)
	req.Equal(domain.IntentAskHelp, msg.Intent)
}

func TestHandleMessage_SilenceFlushCommitsOnce(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, shortTimers())
	ctx := context.Background()

	f.classifier.EXPECT().Classify(gomock.Any()).Return(domain.IntentShareExperience).Times(2)
	f.extractor.EXPECT().Extract(gomock.Any()).Return([]string{"Ella"}, []string{"hiking"})

	_, err := f.dispatcher.HandleMessage(ctx, inbound("We hiked Little Adam's Peak"))
	req.NoError(err)
	_, err = f.dispatcher.HandleMessage(ctx, inbound("The sunrise was unreal"))
	req.NoError(err)

	req.Eventually(func() bool { return len(f.botMessages(t)) == 1 }, 2*time.Second, 10*time.Millisecond)

	announcement := f.botMessages(t)[0]
	req.Contains(announcement.Content, "Thanks Alice")
	req.Contains(announcement.Content, "Places: Ella.")
	req.Contains(announcement.Content, "Activities: hiking.")

	entry, found, err := f.contexts.FindExperience("g1", "ella")
	req.NoError(err)
	req.True(found)
	req.Contains(entry.Message, "Little Adam's Peak")
	req.Contains(entry.Message, "sunrise")

	// Settled: the second armed timer found the buffer empty.
	time.Sleep(60 * time.Millisecond)
	req.Len(f.botMessages(t), 1)
}

func TestHandleMessage_IntentChangeFlushesBuffer(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, idleTimers())
	ctx := context.Background()

	f.classifier.EXPECT().Classify("We stayed at a tea estate").Return(domain.IntentShareExperience)
	f.classifier.EXPECT().Classify("anyway, lunch time").Return(domain.IntentGeneric)
	f.extractor.EXPECT().Extract("We stayed at a tea estate").Return(nil, nil)

	_, err := f.dispatcher.HandleMessage(ctx, inbound("We stayed at a tea estate"))
	req.NoError(err)
	_, err = f.dispatcher.HandleMessage(ctx, inbound("anyway, lunch time"))
	req.NoError(err)

	bots := f.botMessages(t)
	req.Len(bots, 1)
	req.Contains(bots[0].Content, "your experience has been saved")

	// The switching message itself is broadcast before the announcement.
	posted := f.hub.posted()
	req.Len(posted, 3)
	req.Equal("anyway, lunch time", posted[1].Content)
	req.Equal(domain.BotUserID, posted[2].AuthorID)

	_, ok := f.buffers.TakeIfTagged("g1", "alice", domain.IntentShareExperience)
	req.False(ok, "the buffer is drained by the flush")
}

func TestHandleMessage_StaleBufferIsDiscarded(t *testing.T) {
	req := require.New(t)
	timers := idleTimers()
	timers.FlushGrace = 5 * time.Millisecond
	f := newFixture(t, timers)
	ctx := context.Background()

	f.classifier.EXPECT().Classify("old story about Galle").Return(domain.IntentShareExperience)
	f.classifier.EXPECT().Classify("what is for dinner").Return(domain.IntentGeneric)

	_, err := f.dispatcher.HandleMessage(ctx, inbound("old story about Galle"))
	req.NoError(err)
	time.Sleep(20 * time.Millisecond)
	_, err = f.dispatcher.HandleMessage(ctx, inbound("what is for dinner"))
	req.NoError(err)

	req.Empty(f.botMessages(t), "abandoned content is dropped without an announcement")
	_, found, err := f.contexts.FindExperience("g1", "galle")
	req.NoError(err)
	req.False(found)
}

func TestHandleMessage_RecordsPlanDraft(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, idleTimers())
	text := "Let's go to Ella this weekend"

	f.classifier.EXPECT().Classify(text).Return(domain.IntentPlanTrip)
	f.extractor.EXPECT().Extract(text).Return([]string{"Ella"}, nil)

	_, err := f.dispatcher.HandleMessage(context.Background(), inbound(text))
	req.NoError(err)

	ctx, err := f.contexts.Get("g1")
	req.NoError(err)
	req.Equal("Ella", ctx.Plan.Destination)
	req.NotEqual(domain.PlanUnspecified, ctx.Plan.Date)
	req.Equal(domain.PlanDraft, ctx.Plan.Status)
}

func TestHandleMessage_GreetsOnceAfterSilence(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, idleTimers())
	ctx := context.Background()

	f.classifier.EXPECT().Classify(gomock.Any()).Return(domain.IntentGreet).Times(2)

	// A group with no history counts as silent.
	_, err := f.dispatcher.HandleMessage(ctx, inbound("Hello everyone"))
	req.NoError(err)
	bots := f.botMessages(t)
	req.Len(bots, 1)
	req.Contains(bots[0].Content, "Welcome, Alice")

	// The group is no longer silent, so a second greeting stays quiet.
	_, err = f.dispatcher.HandleMessage(ctx, inbound("Hi again"))
	req.NoError(err)
	req.Len(f.botMessages(t), 1)
}

func TestHandleMessage_GreetIgnoresReplyCooldown(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, idleTimers())
	ctx := context.Background()

	// A fresh assistant reply elsewhere does not suppress the welcome; only
	// the group-silence window gates it.
	req.NoError(f.contexts.RecordReply("g1", "experience_saved"))

	f.classifier.EXPECT().Classify(gomock.Any()).Return(domain.IntentGreet)
	_, err := f.dispatcher.HandleMessage(ctx, inbound("Hello everyone"))
	req.NoError(err)

	bots := f.botMessages(t)
	req.Len(bots, 1)
	req.Contains(bots[0].Content, "Welcome, Alice")
}

func TestDelayedHelp_AnswersWhenGroupWentQuiet(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, shortTimers())
	question := "Is Jaffna worth a detour"

	f.classifier.EXPECT().Classify(question).Return(domain.IntentAskHelp)
	f.assistant.EXPECT().Ask(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, prompt string) (string, error) {
			require.True(t, strings.HasSuffix(prompt, question))
			return "Definitely, plan two days for the islands.", nil
		})

	_, err := f.dispatcher.HandleMessage(context.Background(), inbound(question))
	req.NoError(err)

	req.Eventually(func() bool { return len(f.botMessages(t)) == 1 }, 2*time.Second, 10*time.Millisecond)
	req.Equal("Definitely, plan two days for the islands.", f.botMessages(t)[0].Content)

	ctx, err := f.contexts.Get("g1")
	req.NoError(err)
	req.Equal("help_generic", ctx.LastPromptTag)
}

func TestDelayedHelp_SuppressedWhileConversationIsLive(t *testing.T) {
	req := require.New(t)
	timers := shortTimers()
	timers.HelpQuietWindow = time.Hour
	f := newFixture(t, timers)

	f.classifier.EXPECT().Classify(gomock.Any()).Return(domain.IntentAskHelp)

	_, err := f.dispatcher.HandleMessage(context.Background(), inbound("Is Jaffna worth a detour"))
	req.NoError(err)

	// The timer fires, sees recent activity and stands down.
	time.Sleep(80 * time.Millisecond)
	req.Empty(f.botMessages(t))
}

func TestDelayedHelp_SuppressedWhenAlreadyAnswered(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, shortTimers())

	f.classifier.EXPECT().Classify(gomock.Any()).Return(domain.IntentAskHelp)

	_, err := f.dispatcher.HandleMessage(context.Background(), inbound("Is Jaffna worth a detour"))
	req.NoError(err)
	// An assistant reply lands between the question and the timer.
	req.NoError(f.contexts.RecordReply("g1", "experience_saved"))

	time.Sleep(80 * time.Millisecond)
	req.Empty(f.botMessages(t))
}

func TestConfirmHelp_WeatherSubtype(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, idleTimers())
	question := "What's the weather in Ella?"

	f.extractor.EXPECT().Extract(question).Return([]string{"Ella"}, nil)
	f.weather.EXPECT().Weather(gomock.Any(), "Ella").Return("☀️ 28°C and clear in Ella", nil)

	f.dispatcher.HandleConfirmHelp(context.Background(), "g1", "alice", "Alice", question)

	bots := f.botMessages(t)
	req.Len(bots, 1)
	req.Equal("☀️ 28°C and clear in Ella", bots[0].Content)
}

func TestConfirmHelp_WeatherFailureApologizes(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, idleTimers())
	question := "Any forecast for the coast?"

	f.extractor.EXPECT().Extract(question).Return(nil, nil)
	f.weather.EXPECT().Weather(gomock.Any(), "Sri Lanka").Return("", fmt.Errorf("upstream down"))

	f.dispatcher.HandleConfirmHelp(context.Background(), "g1", "alice", "Alice", question)

	bots := f.botMessages(t)
	req.Len(bots, 1)
	req.Equal(assistant.WeatherApology, bots[0].Content)
}

func TestConfirmHelp_RouteSubtype(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, idleTimers())
	question := "What's the best route to Ella?"

	f.extractor.EXPECT().Extract(question).Return([]string{"Ella"}, nil)

	f.dispatcher.HandleConfirmHelp(context.Background(), "g1", "alice", "Alice", question)

	bots := f.botMessages(t)
	req.Len(bots, 1)
	req.Contains(bots[0].Content, "Route to Ella")
	req.Contains(bots[0].Content, "https://www.google.com/maps/dir/")
}

func TestConfirmHelp_RouteBetweenTwoStops(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, idleTimers())
	question := "What's the best route from Kandy to Ella?"

	f.extractor.EXPECT().Extract(question).Return([]string{"Kandy", "Ella"}, nil)

	f.dispatcher.HandleConfirmHelp(context.Background(), "g1", "alice", "Alice", question)

	bots := f.botMessages(t)
	req.Len(bots, 1)
	req.Contains(bots[0].Content, "Route from Kandy to Ella")
	req.Contains(bots[0].Content, "origin=Kandy")
	req.Contains(bots[0].Content, "destination=Ella")
}

func TestConfirmHelp_ExperienceSubtypeWithNothingShared(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, idleTimers())
	question := "Has anyone been to Ella?"

	f.extractor.EXPECT().Extract(question).Return([]string{"Ella"}, nil)

	f.dispatcher.HandleConfirmHelp(context.Background(), "g1", "alice", "Alice", question)

	bots := f.botMessages(t)
	req.Len(bots, 1)
	req.Contains(bots[0].Content, "No one in the group has shared an experience")
}

func TestConfirmHelp_ExperienceSubtypeFindsSharedStory(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, idleTimers())
	question := "Has anyone been to Ella?"

	req.NoError(f.contexts.RecordExperience("g1", "Bob",
		"Ella was magic, do the train ride", []string{"Ella"}, nil))
	f.extractor.EXPECT().Extract(question).Return([]string{"Ella"}, nil)

	f.dispatcher.HandleConfirmHelp(context.Background(), "g1", "alice", "Alice", question)

	bots := f.botMessages(t)
	req.Len(bots, 1)
	req.Contains(bots[0].Content, "Bob shared this earlier about Ella")
	req.Contains(bots[0].Content, "do the train ride")
}

func TestConfirmHelp_AssistantFailureApologizes(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, idleTimers())
	question := "Is Jaffna worth a detour?"

	f.assistant.EXPECT().Ask(gomock.Any(), gomock.Any()).Return("", fmt.Errorf("quota exceeded"))

	f.dispatcher.HandleConfirmHelp(context.Background(), "g1", "alice", "Alice", question)

	bots := f.botMessages(t)
	req.Len(bots, 1)
	req.Equal(assistant.Apology, bots[0].Content)
}
