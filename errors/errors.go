package errors

import "fmt"

// Validation errors: rejected synchronously, no state change.
var (
	ErrEmptyMessage     = fmt.Errorf("empty message")
	ErrInvalidID        = fmt.Errorf("invalid id")
	ErrNotEnoughOptions = fmt.Errorf("provide at least 2 options")
)

// Authorization errors: rejected synchronously, no state change.
var (
	ErrNotMember  = fmt.Errorf("only current group members are allowed")
	ErrNotCreator = fmt.Errorf("only the creator can close this poll")
	ErrSelfReport = fmt.Errorf("you cannot report your own message")
)

// Not-found errors.
var (
	ErrPollNotFound    = fmt.Errorf("poll not found")
	ErrMessageNotFound = fmt.Errorf("message not found")
	ErrGroupNotFound   = fmt.Errorf("group not found")
	ErrMediaNotFound   = fmt.Errorf("media not found")
)

// Conflict errors: retrying is safe, state is unchanged.
var (
	ErrPollClosed    = fmt.Errorf("poll is closed")
	ErrAlreadyVoted  = fmt.Errorf("you have already voted in this poll")
	ErrUnknownOption = fmt.Errorf("invalid option")
)

var (
	ErrWorkerPanic  = fmt.Errorf("worker panic")
	ErrEmptyLexicon = fmt.Errorf("no keywords have been found")
)
