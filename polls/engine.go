// Package polls implements the single-choice consensus flow of a group:
// creation, voting with auto close on an elapsed deadline, and an explicit
// close that broadcasts the ranked result.
package polls

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"trip-hub/contract"
	"trip-hub/domain"
	"trip-hub/domain/event"
	"trip-hub/errors"
	"trip-hub/repositories"
	"trip-hub/runtime"
)

// Engine validates membership through the directory, serializes votes per
// poll and publishes poll results through the hub.
type Engine struct {
	polls     repositories.IPollRepository
	directory contract.GroupDirectory
	hub       contract.IHub
	locks     *runtime.KeyedMutex
	log       *slog.Logger
}

func NewEngine(polls repositories.IPollRepository, directory contract.GroupDirectory,
	hub contract.IHub, log *slog.Logger) *Engine {
	return &Engine{
		polls:     polls,
		directory: directory,
		hub:       hub,
		locks:     runtime.NewKeyedMutex(),
		log:       log,
	}
}

// Create opens a poll for a group member. Duration zero means the poll never
// auto closes.
func (e *Engine) Create(ctx context.Context, groupID, creatorID, question string, options []string, duration time.Duration) (domain.Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Poll{}, errors.ErrEmptyMessage
	}
	var kept []string
	for _, o := range options {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	if len(kept) < 2 {
		return domain.Poll{}, errors.ErrNotEnoughOptions
	}
	if err := e.requireMember(ctx, groupID, creatorID); err != nil {
		return domain.Poll{}, err
	}

	now := time.Now().UTC()
	poll := domain.Poll{
		ID:        uuid.New(),
		GroupID:   groupID,
		CreatedBy: creatorID,
		Question:  question,
		Voters:    make(map[string]string),
		Status:    domain.PollOpen,
		CreatedAt: now,
	}
	if duration > 0 {
		poll.ClosesAt = now.Add(duration)
	}
	for _, o := range kept {
		poll.Options = append(poll.Options, domain.NewPollOption(o))
	}
	if err := e.polls.Store(poll); err != nil {
		return domain.Poll{}, err
	}
	e.log.Info("Poll created", "poll", poll.ID, "group", groupID, "options", len(poll.Options))
	return poll, nil
}

// Vote records a member's single choice. An elapsed deadline observed here
// closes the poll first and rejects the vote; the caller gets the result
// broadcast like everyone else.
func (e *Engine) Vote(ctx context.Context, pollID uuid.UUID, voterID, optionID string) (domain.Poll, error) {
	e.locks.Lock(pollID.String())
	defer e.locks.Unlock(pollID.String())

	poll, err := e.polls.Get(pollID)
	if err != nil {
		return domain.Poll{}, err
	}
	if poll.Status != domain.PollOpen {
		return domain.Poll{}, errors.ErrPollClosed
	}
	if poll.Expired(time.Now().UTC()) {
		if _, err := e.closeLocked(poll.ID); err != nil {
			return domain.Poll{}, err
		}
		return domain.Poll{}, errors.ErrPollClosed
	}
	if err := e.requireMember(ctx, poll.GroupID, voterID); err != nil {
		return domain.Poll{}, err
	}
	if poll.HasVoted(voterID) {
		return domain.Poll{}, errors.ErrAlreadyVoted
	}

	updated, err := e.polls.Update(pollID, func(p *domain.Poll) error {
		if p.Status != domain.PollOpen {
			return errors.ErrPollClosed
		}
		if p.HasVoted(voterID) {
			return errors.ErrAlreadyVoted
		}
		if !p.CastVote(voterID, optionID) {
			return errors.ErrUnknownOption
		}
		return nil
	})
	if err != nil {
		return domain.Poll{}, err
	}
	return updated, nil
}

// Close finalizes a poll. Only the creator may close; closing an already
// closed poll is a no-op returning the stored state. The ranked summary is
// broadcast exactly once, by whoever performs the transition.
func (e *Engine) Close(ctx context.Context, pollID uuid.UUID, userID string) (domain.Poll, error) {
	e.locks.Lock(pollID.String())
	defer e.locks.Unlock(pollID.String())

	poll, err := e.polls.Get(pollID)
	if err != nil {
		return domain.Poll{}, err
	}
	if poll.Status == domain.PollClosed {
		return poll, nil
	}
	if poll.CreatedBy != userID {
		return domain.Poll{}, errors.ErrNotCreator
	}
	return e.closeLocked(pollID)
}

// List returns the group's polls, most recent first. Open polls whose
// deadline elapsed are closed on the way out, so readers never see an
// expired poll as open.
func (e *Engine) List(ctx context.Context, groupID string, includeClosed bool) ([]domain.Poll, error) {
	polls, err := e.polls.ListByGroup(groupID, true)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	out := polls[:0]
	for _, poll := range polls {
		if poll.Status == domain.PollOpen && poll.Expired(now) {
			e.locks.Lock(poll.ID.String())
			closed, err := e.closeLocked(poll.ID)
			e.locks.Unlock(poll.ID.String())
			if err != nil {
				return nil, err
			}
			poll = closed
		}
		if !includeClosed && poll.Status != domain.PollOpen {
			continue
		}
		out = append(out, poll)
	}
	return out, nil
}

// closeLocked transitions the poll to closed and broadcasts the summary.
// Callers hold the per-poll lock. The status check inside the update keeps
// the transition idempotent even against a racing auto close.
func (e *Engine) closeLocked(pollID uuid.UUID) (domain.Poll, error) {
	alreadyClosed := false
	updated, err := e.polls.Update(pollID, func(p *domain.Poll) error {
		if p.Status == domain.PollClosed {
			alreadyClosed = true
			return nil
		}
		p.Status = domain.PollClosed
		return nil
	})
	if err != nil {
		return domain.Poll{}, err
	}
	if alreadyClosed {
		return updated, nil
	}

	summary := Summary(updated)
	e.hub.Broadcast(event.PollResult{
		PollID:  updated.ID,
		Group:   updated.GroupID,
		Summary: summary,
		At:      time.Now().UTC(),
	})
	e.log.Info("Poll closed", "poll", updated.ID, "group", updated.GroupID, "votes", updated.TotalVotes())
	return updated, nil
}

// Summary renders the ranked result, highest count first, with the share of
// the total vote per option. Ties keep the creation order.
func Summary(poll domain.Poll) string {
	ranked := make([]domain.PollOption, len(poll.Options))
	copy(ranked, poll.Options)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Votes > ranked[j].Votes
	})

	total := poll.TotalVotes()
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Poll closed: %s\n", poll.Question)
	for i, option := range ranked {
		share := 0
		if total > 0 {
			share = int(float64(option.Votes)/float64(total)*100 + 0.5)
		}
		fmt.Fprintf(&b, "%d. %s: %d vote(s), %d%%\n", i+1, option.Text, option.Votes, share)
	}
	if total == 0 {
		b.WriteString("Nobody voted this time.")
	} else {
		fmt.Fprintf(&b, "Winner: %s", ranked[0].Text)
	}
	return b.String()
}

func (e *Engine) requireMember(ctx context.Context, groupID, userID string) error {
	member, err := e.directory.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !member {
		return errors.ErrNotMember
	}
	return nil
}
