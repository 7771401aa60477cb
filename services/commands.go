package services

import "time"

// Commands are the validated inputs of the service layer. Validation tags
// are enforced before any engine or repository is touched.

type PostMessageCommand struct {
	GroupID  string `validate:"required"`
	UserID   string `validate:"required"`
	Username string `validate:"required"`
	Text     string `validate:"required"`
}

type ConfirmHelpCommand struct {
	GroupID  string `validate:"required"`
	UserID   string `validate:"required"`
	Username string `validate:"required"`
	Question string `validate:"required"`
}

// ReactCommand with an empty emoji removes the user's previous reaction.
type ReactCommand struct {
	MessageID string `validate:"required"`
	UserID    string `validate:"required"`
	Emoji     string
}

type ShareMediaCommand struct {
	GroupID  string `validate:"required"`
	UserID   string `validate:"required"`
	Username string `validate:"required"`
	Filename string `validate:"required"`
	Data     []byte `validate:"required"`
}

type CreatePollCommand struct {
	GroupID  string   `validate:"required"`
	UserID   string   `validate:"required"`
	Question string   `validate:"required"`
	Options  []string `validate:"required,min=2,dive,required"`
	Duration time.Duration
}

type VoteCommand struct {
	PollID   string `validate:"required"`
	UserID   string `validate:"required"`
	OptionID string `validate:"required"`
}

type ClosePollCommand struct {
	PollID string `validate:"required"`
	UserID string `validate:"required"`
}

type ReportCommand struct {
	MessageID  string `validate:"required"`
	ReporterID string `validate:"required"`
	Category   string
	Note       string
}
