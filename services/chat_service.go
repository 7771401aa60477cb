// Package services is the application layer between the transports and the
// engines. Every command is validated here; membership checks happen here so
// the engines below can trust their inputs.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"trip-hub/assistant"
	"trip-hub/contract"
	"trip-hub/dispatcher"
	"trip-hub/domain"
	"trip-hub/domain/event"
	"trip-hub/errors"
	"trip-hub/repositories"
	"trip-hub/runtime"
	"trip-hub/store"
)

// digestWindow caps how much history feeds the onboarding digest.
const digestWindow = 20

type IChatService interface {
	Join(ctx context.Context, groupID, userID, username string, sink contract.EventSink) error
	Leave(groupID string, sink contract.EventSink)
	AnnounceLeave(ctx context.Context, groupID, username string)
	Post(ctx context.Context, cmd PostMessageCommand) (domain.Message, error)
	ConfirmHelp(ctx context.Context, cmd ConfirmHelpCommand) error
	React(ctx context.Context, cmd ReactCommand) (domain.Message, error)
	ShareMedia(ctx context.Context, cmd ShareMediaCommand) (domain.Message, error)
	Media(id string) (repositories.MediaBlob, error)
	History(groupID string, limit int) ([]domain.Message, error)
	Experiences(groupID string) ([]domain.Experience, error)
	SearchExperiences(ctx context.Context, groupID, query string, limit int) ([]store.ArchivedExperience, error)
}

type ChatService struct {
	registry   contract.IRegistry
	hub        contract.IHub
	dispatcher *dispatcher.Dispatcher
	directory  contract.GroupDirectory
	messages   repositories.IMessageRepository
	media      repositories.IMediaRepository
	contexts   *store.ContextStore
	archive    *store.ExperienceArchive
	assistant  contract.Assistant
	locks      *runtime.KeyedMutex
	validate   *validator.Validate
	log        *slog.Logger
}

func NewChatService(
	registry contract.IRegistry,
	hub contract.IHub,
	disp *dispatcher.Dispatcher,
	directory contract.GroupDirectory,
	messages repositories.IMessageRepository,
	media repositories.IMediaRepository,
	contexts *store.ContextStore,
	archive *store.ExperienceArchive,
	ai contract.Assistant,
	log *slog.Logger,
) *ChatService {
	return &ChatService{
		registry:   registry,
		hub:        hub,
		dispatcher: disp,
		directory:  directory,
		messages:   messages,
		media:      media,
		contexts:   contexts,
		archive:    archive,
		assistant:  ai,
		locks:      runtime.NewKeyedMutex(),
		validate:   validator.New(),
		log:        log,
	}
}

// Join registers the sink for live delivery and, on the user's first join,
// sends them a personal onboarding digest of what the group discussed so
// far. The digest goes only to the joining sink, never to the group.
func (s *ChatService) Join(ctx context.Context, groupID, userID, username string, sink contract.EventSink) error {
	group, err := s.directory.Group(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.HasMember(userID) {
		return errors.ErrNotMember
	}
	s.registry.Join(groupID, sink)
	s.log.Info("User joined", "group", groupID, "user", userID)

	if group.Greeted(userID) {
		return nil
	}
	digest := s.onboardingDigest(ctx, groupID)
	welcome := event.MessagePosted{
		ID:         uuid.New(),
		Group:      groupID,
		AuthorID:   domain.BotUserID,
		AuthorName: domain.BotName,
		Content:    fmt.Sprintf("Hi %s! Here's what you missed:\n%s", username, digest),
		Intent:     domain.IntentGeneric,
		At:         time.Now().UTC(),
	}
	if err := sink.Consume(ctx, welcome); err != nil {
		s.log.Warn("Failed to deliver onboarding digest", "group", groupID, "user", userID, "error", err)
		return nil
	}
	if err := s.directory.MarkGreeted(ctx, groupID, userID); err != nil {
		s.log.Warn("Failed to mark user greeted", "group", groupID, "user", userID, "error", err)
	}
	return nil
}

func (s *ChatService) onboardingDigest(ctx context.Context, groupID string) string {
	history, err := s.messages.History(groupID, digestWindow)
	if err != nil {
		s.log.Warn("Failed to load history for digest", "group", groupID, "error", err)
		return assistant.Apology
	}
	prompt, ok := s.contexts.Summarize(ctx, history)
	if !ok {
		// Nothing to digest; the prompt already is the canned line.
		return prompt
	}
	reply, err := s.assistant.Ask(ctx, prompt)
	if err != nil {
		s.log.Warn("Digest generation failed", "group", groupID, "error", err)
		return assistant.Apology
	}
	return reply
}

// Leave unregisters the sink. Called on every disconnect; announcement is a
// separate explicit action.
func (s *ChatService) Leave(groupID string, sink contract.EventSink) {
	s.registry.Leave(groupID, sink)
	s.log.Info("Sink left", "group", groupID)
}

// AnnounceLeave posts the departure notice into the group.
func (s *ChatService) AnnounceLeave(ctx context.Context, groupID, username string) {
	s.postSystem(groupID, fmt.Sprintf("👋 %s left the group.", username))
}

func (s *ChatService) Post(ctx context.Context, cmd PostMessageCommand) (domain.Message, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return domain.Message{}, err
	}
	if err := s.requireMember(ctx, cmd.GroupID, cmd.UserID); err != nil {
		return domain.Message{}, err
	}
	return s.dispatcher.HandleMessage(ctx, dispatcher.Inbound{
		GroupID:  cmd.GroupID,
		UserID:   cmd.UserID,
		Username: cmd.Username,
		Text:     cmd.Text,
	})
}

// ConfirmHelp triggers the immediate help path, bypassing the delay.
func (s *ChatService) ConfirmHelp(ctx context.Context, cmd ConfirmHelpCommand) error {
	if err := s.validate.Struct(cmd); err != nil {
		return err
	}
	if err := s.requireMember(ctx, cmd.GroupID, cmd.UserID); err != nil {
		return err
	}
	s.dispatcher.HandleConfirmHelp(ctx, cmd.GroupID, cmd.UserID, cmd.Username, cmd.Question)
	return nil
}

// React replaces the user's previous reaction on the message and broadcasts
// the updated reaction set.
func (s *ChatService) React(ctx context.Context, cmd ReactCommand) (domain.Message, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return domain.Message{}, err
	}
	id, err := uuid.Parse(cmd.MessageID)
	if err != nil {
		return domain.Message{}, errors.ErrInvalidID
	}

	message, err := s.messages.Get(id)
	if err != nil {
		return domain.Message{}, err
	}
	if err := s.requireMember(ctx, message.GroupID, cmd.UserID); err != nil {
		return domain.Message{}, err
	}

	s.locks.Lock(id.String())
	defer s.locks.Unlock(id.String())
	updated, err := s.messages.Update(id, func(m *domain.Message) error {
		m.React(cmd.UserID, cmd.Emoji)
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}

	s.hub.Broadcast(event.ReactionUpdated{
		MessageID: updated.ID,
		Group:     updated.GroupID,
		Reactions: updated.Reactions,
	})
	return updated, nil
}

// ShareMedia sniffs the real content type from the bytes, stores the blob
// and posts the media message.
func (s *ChatService) ShareMedia(ctx context.Context, cmd ShareMediaCommand) (domain.Message, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return domain.Message{}, err
	}
	if err := s.requireMember(ctx, cmd.GroupID, cmd.UserID); err != nil {
		return domain.Message{}, err
	}

	kind := mimetype.Detect(cmd.Data)
	blobID, err := s.media.Store(repositories.MediaBlob{
		Filename:    cmd.Filename,
		ContentType: kind.String(),
		Data:        cmd.Data,
	})
	if err != nil {
		return domain.Message{}, err
	}

	now := time.Now().UTC()
	msg := domain.Message{
		ID:         uuid.New(),
		GroupID:    cmd.GroupID,
		AuthorID:   cmd.UserID,
		AuthorName: cmd.Username,
		Intent:     domain.IntentGeneric,
		At:         now,
		MediaID:    blobID,
		MediaType:  kind.String(),
	}
	if err := s.messages.Store(msg); err != nil {
		return domain.Message{}, err
	}
	if err := s.contexts.RecordMessageTime(cmd.GroupID, now); err != nil {
		s.log.Warn("Failed to stamp message time", "group", cmd.GroupID, "error", err)
	}
	s.hub.Broadcast(event.MediaShared{
		ID:         msg.ID,
		Group:      msg.GroupID,
		AuthorID:   msg.AuthorID,
		AuthorName: msg.AuthorName,
		MediaID:    blobID,
		MediaType:  kind.String(),
		At:         now,
	})
	s.log.Info("Media shared", "group", cmd.GroupID, "user", cmd.UserID, "type", kind.String(), "bytes", len(cmd.Data))
	return msg, nil
}

func (s *ChatService) Media(id string) (repositories.MediaBlob, error) {
	if id == "" {
		return repositories.MediaBlob{}, errors.ErrInvalidID
	}
	return s.media.Get(id)
}

func (s *ChatService) History(groupID string, limit int) ([]domain.Message, error) {
	return s.messages.History(groupID, limit)
}

// Experiences returns the live bounded experience log of the group.
func (s *ChatService) Experiences(groupID string) ([]domain.Experience, error) {
	ctx, err := s.contexts.Get(groupID)
	if err != nil {
		return nil, err
	}
	return ctx.Experiences, nil
}

// SearchExperiences queries the durable archive, which also covers entries
// evicted from the live log.
func (s *ChatService) SearchExperiences(ctx context.Context, groupID, query string, limit int) ([]store.ArchivedExperience, error) {
	return s.archive.Search(ctx, groupID, query, limit)
}

// postSystem persists and broadcasts an assistant-authored notice without
// touching the reply cooldown.
func (s *ChatService) postSystem(groupID, text string) {
	msg := domain.Message{
		ID:         uuid.New(),
		GroupID:    groupID,
		AuthorID:   domain.BotUserID,
		AuthorName: domain.BotName,
		Content:    text,
		Intent:     domain.IntentGeneric,
		At:         time.Now().UTC(),
	}
	if err := s.messages.Store(msg); err != nil {
		s.log.Warn("Failed to store system message", "group", groupID, "error", err)
		return
	}
	s.hub.Broadcast(event.MessagePosted{
		ID:         msg.ID,
		Group:      msg.GroupID,
		AuthorID:   msg.AuthorID,
		AuthorName: msg.AuthorName,
		Content:    msg.Content,
		Intent:     msg.Intent,
		At:         msg.At,
	})
}

func (s *ChatService) requireMember(ctx context.Context, groupID, userID string) error {
	member, err := s.directory.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !member {
		return errors.ErrNotMember
	}
	return nil
}
