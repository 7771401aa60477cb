// Package dispatcher routes every inbound group message through intent
// classification and drives the assistant's reactions: experience buffering
// and flushing, delayed help, plan drafting and greetings.
//
// Ordering invariant: the raw message is persisted and broadcast before any
// assistant behavior runs, so members always see the message itself ahead of
// whatever the assistant says about it.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"trip-hub/buffer"
	"trip-hub/contract"
	"trip-hub/domain"
	"trip-hub/domain/event"
	"trip-hub/errors"
	"trip-hub/nlp"
	"trip-hub/repositories"
	"trip-hub/runtime"
	"trip-hub/store"
)

// Timers groups the windows the dispatcher schedules against.
type Timers struct {
	FlushSilence    time.Duration
	FlushGrace      time.Duration
	HelpDelay       time.Duration
	HelpQuietWindow time.Duration
	GreetSilence    time.Duration
}

// DefaultTimers matches the production tuning of the assistant.
func DefaultTimers() Timers {
	return Timers{
		FlushSilence:    35 * time.Second,
		FlushGrace:      60 * time.Second,
		HelpDelay:       60 * time.Second,
		HelpQuietWindow: 55 * time.Second,
		GreetSilence:    60 * time.Second,
	}
}

// Inbound is one text message arriving from a live connection.
type Inbound struct {
	GroupID  string
	UserID   string
	Username string
	Text     string
}

// Dispatcher is the dialogue state machine. It is safe for concurrent use;
// all mutable state lives in the context store and the experience buffer,
// both of which serialize their own mutations.
type Dispatcher struct {
	// timersCtx bounds the deferred timers to the process lifetime instead
	// of the request that scheduled them.
	timersCtx  context.Context
	log        *slog.Logger
	messages   repositories.IMessageRepository
	store      *store.ContextStore
	archive    *store.ExperienceArchive
	buffers    *buffer.Experiences
	hub        contract.IHub
	deferred   *runtime.Deferred
	classifier contract.IntentClassifier
	extractor  contract.EntityExtractor
	assistant  contract.Assistant
	weather    contract.WeatherService
	subtypes   *nlp.SubtypeDetector
	timers     Timers
}

func NewDispatcher(
	timersCtx context.Context,
	messages repositories.IMessageRepository,
	contexts *store.ContextStore,
	archive *store.ExperienceArchive,
	buffers *buffer.Experiences,
	hub contract.IHub,
	deferred *runtime.Deferred,
	classifier contract.IntentClassifier,
	extractor contract.EntityExtractor,
	assistant contract.Assistant,
	weather contract.WeatherService,
	subtypes *nlp.SubtypeDetector,
	timers Timers,
	log *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		timersCtx:  timersCtx,
		log:        log,
		messages:   messages,
		store:      contexts,
		archive:    archive,
		buffers:    buffers,
		hub:        hub,
		deferred:   deferred,
		classifier: classifier,
		extractor:  extractor,
		assistant:  assistant,
		weather:    weather,
		subtypes:   subtypes,
		timers:     timers,
	}
}

// HandleMessage runs the full inbound pipeline: classify, persist, stamp,
// broadcast, then dispatch on the detected intent. The returned message is
// the persisted record including the intent label.
func (d *Dispatcher) HandleMessage(ctx context.Context, in Inbound) (domain.Message, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return domain.Message{}, errors.ErrEmptyMessage
	}
	now := time.Now().UTC()

	intent := d.classifier.Classify(text)
	// Question-shaped messages override whatever the classifier said.
	if intent != domain.IntentAskHelp && nlp.IsHelpLike(text) {
		intent = domain.IntentAskHelp
	}

	// Snapshot before stamping; the greet check needs the previous
	// last-message time, not the one this message is about to set.
	previous, err := d.store.Get(in.GroupID)
	if err != nil {
		return domain.Message{}, err
	}

	msg := domain.Message{
		ID:         uuid.New(),
		GroupID:    in.GroupID,
		AuthorID:   in.UserID,
		AuthorName: in.Username,
		Content:    text,
		Intent:     intent,
		At:         now,
	}
	if err := d.messages.Store(msg); err != nil {
		return domain.Message{}, err
	}
	if err := d.store.RecordMessageTime(in.GroupID, now); err != nil {
		d.log.Warn("Failed to stamp message time", "group", in.GroupID, "error", err)
	}
	d.hub.Broadcast(event.MessagePosted{
		ID:         msg.ID,
		Group:      msg.GroupID,
		AuthorID:   msg.AuthorID,
		AuthorName: msg.AuthorName,
		Content:    msg.Content,
		Intent:     msg.Intent,
		At:         msg.At,
	})

	d.flushOnIntentChange(in, intent, now)

	if err := d.store.RecordIntent(in.GroupID, intent); err != nil {
		d.log.Warn("Failed to record intent", "group", in.GroupID, "error", err)
	}

	switch intent {
	case domain.IntentShareExperience:
		d.buffers.Append(in.GroupID, in.UserID, text, intent, now)
		d.scheduleFlush(in.GroupID, in.UserID, in.Username)
	case domain.IntentAskHelp:
		d.scheduleHelp(helpRequest{
			GroupID:  in.GroupID,
			UserID:   in.UserID,
			Username: in.Username,
			Question: text,
			Subtype:  d.subtypes.Detect(text),
			AskedAt:  now,
		})
	case domain.IntentPlanTrip:
		d.recordPlan(in.GroupID, text, now)
	case domain.IntentGreet:
		d.maybeGreet(in, previous, now)
	}

	return msg, nil
}

// recordPlan extracts what it can from the message and overwrites the
// group's plan draft. Missing fields fall back to their sentinels inside
// the store.
func (d *Dispatcher) recordPlan(groupID, text string, now time.Time) {
	destinations, _ := d.extractor.Extract(text)
	plan := domain.TripPlan{
		Date:      nlp.ExtractDate(text, now),
		PartySize: nlp.ExtractPartySize(text),
		Style:     nlp.ExtractTripStyle(text),
	}
	if len(destinations) > 0 {
		plan.Destination = destinations[0]
	}
	if err := d.store.RecordPlan(groupID, plan); err != nil {
		d.log.Warn("Failed to record plan", "group", groupID, "error", err)
		return
	}
	d.log.Info("Plan draft updated",
		"group", groupID,
		"destination", plan.Destination,
		"date", plan.Date,
		"partySize", plan.PartySize,
		"style", plan.Style)
}

// maybeGreet welcomes the author when the group has been silent for the
// greet window. The silence check is the only throttle here: a burst of
// greetings resets the window itself, so one welcome comes out per lull.
func (d *Dispatcher) maybeGreet(in Inbound, previous domain.GroupContext, now time.Time) {
	if !previous.LastMessageAt.IsZero() && now.Sub(previous.LastMessageAt) <= d.timers.GreetSilence {
		return
	}
	d.postBot(in.GroupID,
		fmt.Sprintf("👋 Welcome, %s! Ready to plan your next adventure?", in.Username),
		"greet")
}

// postBot persists an assistant message, broadcasts it and stamps the reply
// time with the given prompt tag.
func (d *Dispatcher) postBot(groupID, text, tag string) {
	msg := domain.Message{
		ID:         uuid.New(),
		GroupID:    groupID,
		AuthorID:   domain.BotUserID,
		AuthorName: domain.BotName,
		Content:    text,
		Intent:     domain.IntentGeneric,
		At:         time.Now().UTC(),
	}
	if err := d.messages.Store(msg); err != nil {
		d.log.Warn("Failed to store assistant message", "group", groupID, "error", err)
		return
	}
	d.hub.Broadcast(event.MessagePosted{
		ID:         msg.ID,
		Group:      msg.GroupID,
		AuthorID:   msg.AuthorID,
		AuthorName: msg.AuthorName,
		Content:    msg.Content,
		Intent:     msg.Intent,
		At:         msg.At,
	})
	if err := d.store.RecordReply(groupID, tag); err != nil {
		d.log.Warn("Failed to stamp assistant reply", "group", groupID, "error", err)
	}
}
