// Package moderation implements the warn-then-remove escalation flow built
// on unique per-message reports.
//
// Escalation per author per group is monotonic: the first message reaching
// the report threshold warns the author, the next one removes them from the
// group and records the rejection so re-joining is blocked.
package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"trip-hub/contract"
	"trip-hub/domain"
	"trip-hub/errors"
	"trip-hub/repositories"
	"trip-hub/runtime"
)

// Engine processes message reports. The per-message lock plus the
// single-transaction repository update make the duplicate check and the
// report append atomic against concurrent reporters.
type Engine struct {
	messages  repositories.IMessageRepository
	records   repositories.IModerationRepository
	directory contract.GroupDirectory
	locks     *runtime.KeyedMutex
	log       *slog.Logger
}

func NewEngine(messages repositories.IMessageRepository,
	records repositories.IModerationRepository,
	directory contract.GroupDirectory, log *slog.Logger) *Engine {
	return &Engine{
		messages:  messages,
		records:   records,
		directory: directory,
		locks:     runtime.NewKeyedMutex(),
		log:       log,
	}
}

// Report records one user's report against a message and escalates when the
// unique-reporter count reaches the threshold. Duplicate reports return
// ReportDuplicate without changing any state.
func (e *Engine) Report(ctx context.Context, messageID uuid.UUID, reporterID, category, note string) (domain.ReportOutcome, error) {
	e.locks.Lock(messageID.String())
	defer e.locks.Unlock(messageID.String())

	message, err := e.messages.Get(messageID)
	if err != nil {
		return domain.ReportOutcome{}, err
	}
	if message.AuthorID == reporterID {
		return domain.ReportOutcome{}, errors.ErrSelfReport
	}
	if message.IsSystem() {
		return domain.ReportOutcome{}, fmt.Errorf("assistant messages cannot be reported")
	}
	member, err := e.directory.IsMember(ctx, message.GroupID, reporterID)
	if err != nil {
		return domain.ReportOutcome{}, err
	}
	if !member {
		return domain.ReportOutcome{}, errors.ErrNotMember
	}

	duplicate := false
	updated, err := e.messages.Update(messageID, func(m *domain.Message) error {
		if !m.AddReporter(reporterID, time.Now().UTC(), category, note) {
			duplicate = true
		}
		return nil
	})
	if err != nil {
		return domain.ReportOutcome{}, err
	}
	if duplicate {
		return domain.ReportOutcome{
			Status:      domain.ReportDuplicate,
			ReportCount: updated.ReportCount,
		}, nil
	}

	e.log.Info("Message reported",
		"message", messageID,
		"group", updated.GroupID,
		"author", updated.AuthorID,
		"reports", updated.ReportCount)

	if updated.ReportCount < domain.ReportThreshold {
		return domain.ReportOutcome{
			Status:      domain.ReportRecorded,
			ReportCount: updated.ReportCount,
		}, nil
	}
	return e.escalate(ctx, updated)
}

// escalate advances the author's record. Every unique report at or past the
// threshold lands here, so a message that keeps drawing reports can walk its
// author from warned to removed on its own.
func (e *Engine) escalate(ctx context.Context, message domain.Message) (domain.ReportOutcome, error) {
	record, err := e.records.Get(message.GroupID, message.AuthorID)
	if err != nil {
		return domain.ReportOutcome{}, err
	}

	now := time.Now().UTC()
	if record.Warnings == 0 {
		record.Warnings = 1
		record.WarnedAt = now
		if err := e.records.Save(record); err != nil {
			return domain.ReportOutcome{}, err
		}
		e.log.Warn("Author warned",
			"group", message.GroupID, "author", message.AuthorID, "message", message.ID)
		return domain.ReportOutcome{
			Status:      domain.ReportWarned,
			ReportCount: message.ReportCount,
		}, nil
	}

	group, err := e.directory.RemoveMember(ctx, message.GroupID, message.AuthorID)
	if err != nil {
		return domain.ReportOutcome{}, err
	}
	if err := e.directory.RejectGroup(ctx, message.AuthorID, message.GroupID); err != nil {
		return domain.ReportOutcome{}, err
	}
	record.LastAutoAction = now
	if err := e.records.Save(record); err != nil {
		return domain.ReportOutcome{}, err
	}
	e.log.Warn("Author removed",
		"group", message.GroupID,
		"author", message.AuthorID,
		"message", message.ID,
		"remainingMembers", group.CurrentMembers,
		"groupStatus", group.Status)
	return domain.ReportOutcome{
		Status:      domain.ReportRemoved,
		ReportCount: message.ReportCount,
		MemberCount: group.CurrentMembers,
		GroupStatus: group.Status,
	}, nil
}
