package services

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"trip-hub/domain"
	"trip-hub/errors"
	"trip-hub/polls"
)

type IPollService interface {
	Create(ctx context.Context, cmd CreatePollCommand) (domain.Poll, error)
	Vote(ctx context.Context, cmd VoteCommand) (domain.Poll, error)
	Close(ctx context.Context, cmd ClosePollCommand) (domain.Poll, error)
	List(ctx context.Context, groupID string, includeClosed bool) ([]domain.Poll, error)
}

type PollService struct {
	engine   *polls.Engine
	validate *validator.Validate
	log      *slog.Logger
}

func NewPollService(engine *polls.Engine, log *slog.Logger) *PollService {
	return &PollService{engine: engine, validate: validator.New(), log: log}
}

func (s *PollService) Create(ctx context.Context, cmd CreatePollCommand) (domain.Poll, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return domain.Poll{}, err
	}
	return s.engine.Create(ctx, cmd.GroupID, cmd.UserID, cmd.Question, cmd.Options, cmd.Duration)
}

func (s *PollService) Vote(ctx context.Context, cmd VoteCommand) (domain.Poll, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return domain.Poll{}, err
	}
	pollID, err := uuid.Parse(cmd.PollID)
	if err != nil {
		return domain.Poll{}, errors.ErrInvalidID
	}
	return s.engine.Vote(ctx, pollID, cmd.UserID, cmd.OptionID)
}

func (s *PollService) Close(ctx context.Context, cmd ClosePollCommand) (domain.Poll, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return domain.Poll{}, err
	}
	pollID, err := uuid.Parse(cmd.PollID)
	if err != nil {
		return domain.Poll{}, errors.ErrInvalidID
	}
	return s.engine.Close(ctx, pollID, cmd.UserID)
}

func (s *PollService) List(ctx context.Context, groupID string, includeClosed bool) ([]domain.Poll, error) {
	if groupID == "" {
		return nil, errors.ErrInvalidID
	}
	return s.engine.List(ctx, groupID, includeClosed)
}
