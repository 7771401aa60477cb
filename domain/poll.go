package domain

import (
	"time"

	"github.com/google/uuid"
)

type PollStatus string

const (
	PollOpen   PollStatus = "open"
	PollClosed PollStatus = "closed"
)

// PollOption is one votable choice of a poll.
type PollOption struct {
	ID    string
	Text  string
	Votes int
}

// Poll is a single-choice consensus primitive scoped to one group.
// Invariant: the sum of option vote counts equals len(Voters), and a voter
// appears at most once in Voters.
type Poll struct {
	ID        uuid.UUID
	GroupID   string
	CreatedBy string
	Question  string
	Options   []PollOption
	Voters    map[string]string // voter id -> option id
	Status    PollStatus
	CreatedAt time.Time
	ClosesAt  time.Time // zero means no auto close
}

// Expired reports whether the close deadline has elapsed at now.
func (p Poll) Expired(now time.Time) bool {
	return !p.ClosesAt.IsZero() && now.After(p.ClosesAt)
}

// HasVoted reports whether the voter already cast a vote.
func (p Poll) HasVoted(voter string) bool {
	_, ok := p.Voters[voter]
	return ok
}

// CastVote increments the chosen option and records the voter. The caller
// holds the per-poll lock; single-choice and sum invariants are preserved
// because recording and incrementing happen together.
func (p *Poll) CastVote(voter, optionID string) bool {
	for i := range p.Options {
		if p.Options[i].ID == optionID {
			p.Options[i].Votes++
			if p.Voters == nil {
				p.Voters = make(map[string]string)
			}
			p.Voters[voter] = optionID
			return true
		}
	}
	return false
}

// TotalVotes is the sum of all option counts.
func (p Poll) TotalVotes() int {
	total := 0
	for _, o := range p.Options {
		total += o.Votes
	}
	return total
}

// NewPollOption assigns a fresh option id at creation time.
func NewPollOption(text string) PollOption {
	return PollOption{ID: uuid.NewString(), Text: text}
}
