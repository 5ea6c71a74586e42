package domain

import "time"

// TicketStatus is a free-form board column label, not an ordered workflow.
// Any status may follow any other.
type TicketStatus string

const (
	TicketStatusBacklog    TicketStatus = "backlog"
	TicketStatusInProgress TicketStatus = "in-progress"
	TicketStatusReview     TicketStatus = "review"
	TicketStatusDone       TicketStatus = "done"
)

// ValidStatus reports whether s is one of the four board statuses.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusBacklog, TicketStatusInProgress, TicketStatusReview, TicketStatusDone:
		return true
	}
	return false
}

// Statuses lists every board status in board order.
func Statuses() []TicketStatus {
	return []TicketStatus{
		TicketStatusBacklog,
		TicketStatusInProgress,
		TicketStatusReview,
		TicketStatusDone,
	}
}

// Ticket is a work item owned by exactly one organization.
type Ticket struct {
	ID             string
	OrganizationID string
	Title          string
	Assignee       string
	Description    *string
	Status         TicketStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TicketUpdate carries a partial update. Only non-nil fields are applied.
type TicketUpdate struct {
	Title       *string
	Assignee    *string
	Description *string
	Status      *TicketStatus
}

// Empty reports whether the update would change nothing.
func (u TicketUpdate) Empty() bool {
	return u.Title == nil && u.Assignee == nil && u.Description == nil && u.Status == nil
}

// TicketStatistics aggregates a tenant's board. Distribution maps contain
// only observed values, never zero-filled categories.
type TicketStatistics struct {
	TotalTickets         int
	StatusDistribution   map[TicketStatus]int
	AssigneeDistribution map[string]int
}
