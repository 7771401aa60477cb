//go:generate go run go.uber.org/mock/mockgen -source=collaborators.go -destination=../mocks/mock_collaborators.go -package=mocks
package contract

import (
	"context"

	"trip-hub/domain"
)

// IntentClassifier labels a message with one of the closed intent set.
type IntentClassifier interface {
	Classify(text string) domain.Intent
}

// EntityExtractor pulls destinations and activities out of free text.
// Either slice may be empty.
type EntityExtractor interface {
	Extract(text string) (destinations, activities []string)
}

// Assistant is the generative-text collaborator. Failures are degraded to a
// static apology at the call site, never propagated to the user.
type Assistant interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// WeatherService answers current-conditions lookups for a place.
type WeatherService interface {
	Weather(ctx context.Context, place string) (string, error)
}

// GroupDirectory is the group-membership collaborator. Removal and
// rejection recording are the moderation engine's only writes.
type GroupDirectory interface {
	Group(ctx context.Context, groupID string) (domain.Group, error)
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	MemberCount(ctx context.Context, groupID string) (int, error)
	RemoveMember(ctx context.Context, groupID, userID string) (domain.Group, error)
	MarkGreeted(ctx context.Context, groupID, userID string) error
	RejectGroup(ctx context.Context, userID, groupID string) error
}
