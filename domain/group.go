package domain

type GroupStatus string

const (
	GroupActive   GroupStatus = "Active"
	GroupInactive GroupStatus = "Inactive"
)

// Group is the membership record the directory collaborator maintains.
// The coordinator only reads it, except for moderation removals.
type Group struct {
	ID             string
	Members        []string
	CurrentMembers int
	Status         GroupStatus
	GreetedUsers   []string
}

// HasMember reports whether the user is a current member.
func (g Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// Greeted reports whether the user already received the onboarding digest.
func (g Group) Greeted(userID string) bool {
	for _, u := range g.GreetedUsers {
		if u == userID {
			return true
		}
	}
	return false
}

// RemoveMember drops the user from the member list, decrements the count
// (floor 0) and recomputes the status: Active needs at least 2 members.
func (g *Group) RemoveMember(userID string) {
	kept := g.Members[:0]
	for _, m := range g.Members {
		if m != userID {
			kept = append(kept, m)
		}
	}
	g.Members = kept
	if g.CurrentMembers > 0 {
		g.CurrentMembers--
	}
	if g.CurrentMembers >= 2 {
		g.Status = GroupActive
	} else {
		g.Status = GroupInactive
	}
}
