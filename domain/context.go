package domain

import "time"

// Sentinel values for plan fields the extractors could not fill.
const (
	PlanUnknown     = "unknown"
	PlanUnspecified = "unspecified"
	PlanDraft       = "draft"
)

// Capacity limits of the bounded context lists. Oldest entries are evicted
// first once a list overflows.
const (
	MaxIntents     = 10
	MaxExperiences = 10
)

// TripPlan is the group's current plan draft. It is overwritten as a whole
// on every plan_trip message.
type TripPlan struct {
	Destination string
	Date        string
	PartySize   int
	Style       string
	Status      string
}

// Experience is one committed narrative entry of the group's experience log.
type Experience struct {
	User         string
	Message      string
	Destinations []string
	Activities   []string
	At           time.Time
}

// GroupContext is the per-group conversational memory. It is owned
// exclusively by the context store: all mutation goes through the store's
// API so that persistence stays write-through.
type GroupContext struct {
	GroupID           string
	LastPromptTag     string
	LastReplyAt       time.Time
	Intents           []Intent
	Plan              TripPlan
	Experiences       []Experience
	LastMessageAt     time.Time
	LastExperienceAt  time.Time
	LastExperienceMsg string
}

// NewGroupContext returns the empty context a group starts from.
func NewGroupContext(groupID string) *GroupContext {
	return &GroupContext{GroupID: groupID}
}

// PushIntent appends an intent and evicts the oldest entry past MaxIntents.
func (c *GroupContext) PushIntent(intent Intent) {
	c.Intents = append(c.Intents, intent)
	if len(c.Intents) > MaxIntents {
		c.Intents = c.Intents[len(c.Intents)-MaxIntents:]
	}
}

// PushExperience appends an entry and evicts the oldest past MaxExperiences.
func (c *GroupContext) PushExperience(e Experience) {
	c.Experiences = append(c.Experiences, e)
	if len(c.Experiences) > MaxExperiences {
		c.Experiences = c.Experiences[len(c.Experiences)-MaxExperiences:]
	}
	c.LastExperienceAt = e.At
	c.LastExperienceMsg = e.Message
}
