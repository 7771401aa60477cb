// Package store owns the per-group conversational memory. All mutation goes
// through this API; every mutating call persists the full context before
// returning, so a concurrent reader never observes dirty state.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"trip-hub/domain"
	"trip-hub/repositories"
	"trip-hub/runtime"
)

// DefaultReplyCooldown throttles assistant replies per group.
const DefaultReplyCooldown = 2 * time.Minute

// summarizeWindow caps how many recent messages feed the digest prompt.
const summarizeWindow = 20

// ContextStore caches group contexts in memory and writes them through to
// the repository on every mutation. Contexts are created lazily on first
// access, restored from storage when present.
type ContextStore struct {
	mu       sync.RWMutex
	locks    *runtime.KeyedMutex
	contexts map[string]*domain.GroupContext
	repo     repositories.IContextRepository
	archive  *ExperienceArchive
	log      *slog.Logger
}

func NewContextStore(repo repositories.IContextRepository, archive *ExperienceArchive, log *slog.Logger) *ContextStore {
	return &ContextStore{
		locks:    runtime.NewKeyedMutex(),
		contexts: make(map[string]*domain.GroupContext),
		repo:     repo,
		archive:  archive,
		log:      log,
	}
}

// Get returns a copy of the group's context, creating it lazily.
func (s *ContextStore) Get(groupID string) (domain.GroupContext, error) {
	s.locks.Lock(groupID)
	defer s.locks.Unlock(groupID)

	ctx, err := s.load(groupID)
	if err != nil {
		return domain.GroupContext{}, err
	}
	return *ctx, nil
}

// RecordIntent appends to the bounded intent history.
func (s *ContextStore) RecordIntent(groupID string, intent domain.Intent) error {
	return s.mutate(groupID, func(ctx *domain.GroupContext) {
		ctx.PushIntent(intent)
	})
}

// CanReply reports whether the assistant may reply: either it never replied
// or the cooldown window has elapsed since the last reply. A non-positive
// cooldown falls back to DefaultReplyCooldown.
func (s *ContextStore) CanReply(groupID string, cooldown time.Duration) (bool, error) {
	if cooldown <= 0 {
		cooldown = DefaultReplyCooldown
	}
	ctx, err := s.Get(groupID)
	if err != nil {
		return false, err
	}
	if ctx.LastReplyAt.IsZero() {
		return true, nil
	}
	return time.Since(ctx.LastReplyAt) > cooldown, nil
}

// RecordReply stamps the reply time and prompt tag.
func (s *ContextStore) RecordReply(groupID, tag string) error {
	return s.mutate(groupID, func(ctx *domain.GroupContext) {
		ctx.LastReplyAt = time.Now().UTC()
		if tag != "" {
			ctx.LastPromptTag = tag
		}
	})
}

// RecordMessageTime stamps the last group message timestamp.
func (s *ContextStore) RecordMessageTime(groupID string, at time.Time) error {
	return s.mutate(groupID, func(ctx *domain.GroupContext) {
		ctx.LastMessageAt = at
	})
}

// RecordPlan overwrites the stored plan as a draft. Missing fields keep
// their sentinel values.
func (s *ContextStore) RecordPlan(groupID string, plan domain.TripPlan) error {
	if plan.Destination == "" {
		plan.Destination = domain.PlanUnknown
	}
	if plan.Date == "" {
		plan.Date = domain.PlanUnspecified
	}
	if plan.Style == "" {
		plan.Style = domain.PlanUnspecified
	}
	plan.Status = domain.PlanDraft
	return s.mutate(groupID, func(ctx *domain.GroupContext) {
		ctx.Plan = plan
	})
}

// RecordExperience appends an entry to the bounded experience log, stamps
// the last-experience metadata and feeds the durable archive index.
func (s *ContextStore) RecordExperience(groupID, user, message string, destinations, activities []string) error {
	entry := domain.Experience{
		User:         user,
		Message:      message,
		Destinations: destinations,
		Activities:   activities,
		At:           time.Now().UTC(),
	}
	if err := s.mutate(groupID, func(ctx *domain.GroupContext) {
		ctx.PushExperience(entry)
	}); err != nil {
		return err
	}
	if s.archive != nil {
		if err := s.archive.Index(groupID, entry); err != nil {
			// The live context is already persisted; a lagging archive only
			// degrades historical search.
			s.log.Warn("Experience archive indexing failed", "group", groupID, "error", err)
		}
	}
	return nil
}

// FindExperience returns the first entry (stored order) whose destinations,
// activities or raw text contain the keyword, case-insensitively.
func (s *ContextStore) FindExperience(groupID, keyword string) (domain.Experience, bool, error) {
	ctx, err := s.Get(groupID)
	if err != nil {
		return domain.Experience{}, false, err
	}
	needle := strings.ToLower(keyword)
	for _, entry := range ctx.Experiences {
		if containsFold(entry.Destinations, needle) ||
			containsFold(entry.Activities, needle) ||
			strings.Contains(strings.ToLower(entry.Message), needle) {
			return entry, true, nil
		}
	}
	return domain.Experience{}, false, nil
}

// Summarize builds the digest request for the generative collaborator from
// up to the 20 most recent messages, oldest first. The caller forwards it to
// the assistant; when there is nothing to digest the canned line is returned
// with ok=false and no assistant call is needed.
func (s *ContextStore) Summarize(_ context.Context, recent []domain.Message) (prompt string, ok bool) {
	if len(recent) > summarizeWindow {
		recent = recent[len(recent)-summarizeWindow:]
	}
	snippets := lo.FilterMap(recent, func(m domain.Message, _ int) (string, bool) {
		if m.Content == "" {
			return "", false
		}
		return fmt.Sprintf("%s: %s", m.AuthorName, m.Content), true
	})
	if len(snippets) == 0 {
		return "No one has shared anything yet. Why not get the conversation started?", false
	}
	return "You are TripBot. Summarize this group chat in 3 short sentences. " +
		"Include only the trip destination, date if mentioned, and 1-2 helpful travel tips. " +
		"Avoid repeating greetings, disclaimers, or unnecessary explanations.\n\n" +
		strings.Join(snippets, "\n"), true
}

// mutate loads, applies and persists under the group lock. The repository
// write happens before the lock is released, which is what makes the store
// write-through.
func (s *ContextStore) mutate(groupID string, apply func(*domain.GroupContext)) error {
	s.locks.Lock(groupID)
	defer s.locks.Unlock(groupID)

	ctx, err := s.load(groupID)
	if err != nil {
		return err
	}
	apply(ctx)
	return s.repo.Save(ctx)
}

// load resolves the cached context, restoring from storage or initializing
// empty. Callers hold the group lock.
func (s *ContextStore) load(groupID string) (*domain.GroupContext, error) {
	s.mu.RLock()
	ctx, ok := s.contexts[groupID]
	s.mu.RUnlock()
	if ok {
		return ctx, nil
	}

	stored, err := s.repo.Get(groupID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		stored = domain.NewGroupContext(groupID)
	}

	s.mu.Lock()
	s.contexts[groupID] = stored
	s.mu.Unlock()
	return stored, nil
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}
