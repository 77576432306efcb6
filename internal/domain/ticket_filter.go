package domain

import "time"

// TicketFilter is the structured predicate handed to the ticket store. Every set field narrows
// the result; the zero value matches all tickets.
type TicketFilter struct {
	OwnerID     *string
	AssigneeID  *string
	Unassigned  bool
	Statuses    []TicketStatus
	Priorities  []TicketPriority
	Window      *VisibilityWindow
	UpdatedFrom *time.Time
	UpdatedTo   *time.Time
	Limit       int
	Offset      int
}

// VisibilityWindow admits tickets in an active status, or closed tickets whose last update
// falls inside [ClosedFrom, ClosedTo).
type VisibilityWindow struct {
	ClosedFrom time.Time
	ClosedTo   time.Time
}

// Admits reports whether the window lets t through.
func (w *VisibilityWindow) Admits(t *Ticket) bool {
	if w == nil {
		return true
	}
	if t.Status.Active() {
		return true
	}
	if t.Status != TicketStatusClosed {
		return false
	}
	return !t.UpdatedAt.Before(w.ClosedFrom) && t.UpdatedAt.Before(w.ClosedTo)
}

// Matches evaluates the filter against a single ticket, ignoring Limit and Offset.
func (f TicketFilter) Matches(t *Ticket) bool {
	if f.OwnerID != nil && t.UserID != *f.OwnerID {
		return false
	}
	if f.AssigneeID != nil && !t.AssignedToUser(*f.AssigneeID) {
		return false
	}
	if f.Unassigned && t.AssignedTo != nil {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !containsPriority(f.Priorities, t.Priority) {
		return false
	}
	if !f.Window.Admits(t) {
		return false
	}
	if f.UpdatedFrom != nil && t.UpdatedAt.Before(*f.UpdatedFrom) {
		return false
	}
	if f.UpdatedTo != nil && !t.UpdatedAt.Before(*f.UpdatedTo) {
		return false
	}
	return true
}

func containsStatus(set []TicketStatus, s TicketStatus) bool {
	for _, candidate := range set {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsPriority(set []TicketPriority, p TicketPriority) bool {
	for _, candidate := range set {
		if candidate == p {
			return true
		}
	}
	return false
}
