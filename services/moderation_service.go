package services

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"trip-hub/domain"
	"trip-hub/errors"
	"trip-hub/moderation"
)

type IModerationService interface {
	Report(ctx context.Context, cmd ReportCommand) (domain.ReportOutcome, error)
}

type ModerationService struct {
	engine   *moderation.Engine
	validate *validator.Validate
	log      *slog.Logger
}

func NewModerationService(engine *moderation.Engine, log *slog.Logger) *ModerationService {
	return &ModerationService{engine: engine, validate: validator.New(), log: log}
}

func (s *ModerationService) Report(ctx context.Context, cmd ReportCommand) (domain.ReportOutcome, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return domain.ReportOutcome{}, err
	}
	messageID, err := uuid.Parse(cmd.MessageID)
	if err != nil {
		return domain.ReportOutcome{}, errors.ErrInvalidID
	}
	return s.engine.Report(ctx, messageID, cmd.ReporterID, cmd.Category, cmd.Note)
}
