// Package policy decides who may see, modify and assign tickets.
package policy

import (
	"errors"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ErrUnknownRole is returned when an actor carries a role outside the closed set.
var ErrUnknownRole = errors.New("role not recognized")

// Actor is the authenticated caller.
type Actor struct {
	ID   string
	Role domain.Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

// DayBounds returns [start of day, start of next day) for now in now's location.
func DayBounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}

// VisibilityFilter builds the predicate describing every ticket the actor may list.
func VisibilityFilter(actor Actor, now time.Time) (domain.TicketFilter, error) {
	switch actor.Role {
	case domain.RoleAdmin:
		return domain.TicketFilter{}, nil
	case domain.RoleSupport:
		id := actor.ID
		return domain.TicketFilter{AssigneeID: &id, Window: todayWindow(now)}, nil
	case domain.RoleUser:
		id := actor.ID
		return domain.TicketFilter{OwnerID: &id, Window: todayWindow(now)}, nil
	default:
		return domain.TicketFilter{}, ErrUnknownRole
	}
}

// CanView reports whether the actor may see the ticket in a list.
func CanView(actor Actor, ticket *domain.Ticket, now time.Time) bool {
	filter, err := VisibilityFilter(actor, now)
	if err != nil {
		return false
	}
	return filter.Matches(ticket)
}

// CanModify reports whether the actor may change the ticket's status or priority.
func CanModify(actor Actor, ticket *domain.Ticket) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleSupport:
		return !ticket.IsClosed()
	default:
		return false
	}
}

// CanAssign reports whether the actor may assign tickets.
func CanAssign(actor Actor) bool {
	return actor.Role == domain.RoleAdmin
}

func todayWindow(now time.Time) *domain.VisibilityWindow {
	from, to := DayBounds(now)
	return &domain.VisibilityWindow{ClosedFrom: from, ClosedTo: to}
}
