package domain

import "time"

// ReportThreshold is the number of unique reporters on one message that
// triggers an escalation step against its author.
const ReportThreshold = 3

// ReportStatus is the outcome of a report submission.
type ReportStatus string

const (
	ReportRecorded  ReportStatus = "recorded"
	ReportDuplicate ReportStatus = "already_reported"
	ReportWarned    ReportStatus = "warned_author"
	ReportRemoved   ReportStatus = "auto_removed"
)

// ModerationRecord tracks the escalation state of one author inside one
// group. Escalation is monotonic: none -> warned -> removed.
type ModerationRecord struct {
	GroupID        string
	UserID         string
	Warnings       int // 0 or 1
	WarnedAt       time.Time
	LastAutoAction time.Time
}

// ReportOutcome is returned to the reporter. MemberCount and GroupStatus are
// only meaningful when Status is ReportRemoved.
type ReportOutcome struct {
	Status      ReportStatus
	ReportCount int
	MemberCount int
	GroupStatus GroupStatus
}
