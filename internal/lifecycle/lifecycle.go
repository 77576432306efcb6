// Package lifecycle holds the ticket status rules: the initial state, which status values may be
// set, and what is still allowed once a ticket is closed.
package lifecycle

import (
	"strings"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/policy"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// InitialStatus is forced on every new ticket.
const InitialStatus = domain.TicketStatusOpen

// DefaultPriority is used when a ticket is created without one.
const DefaultPriority = domain.TicketPriorityMedium

// ReopenStatuses are the only targets allowed when updating a closed ticket.
var ReopenStatuses = []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress}

// Changes is the mutable subset of a ticket. Nil fields are left alone.
type Changes struct {
	Status   *domain.TicketStatus
	Priority *domain.TicketPriority
}

// Transition is the outcome of a planned update.
type Transition struct {
	FromStatus   domain.TicketStatus
	ToStatus     domain.TicketStatus
	FromPriority domain.TicketPriority
	ToPriority   domain.TicketPriority
}

// StatusChanged reports whether the status moves to a different value.
func (t Transition) StatusChanged() bool {
	return t.FromStatus != t.ToStatus
}

// PriorityChanged reports whether the priority moves to a different value.
func (t Transition) PriorityChanged() bool {
	return t.FromPriority != t.ToPriority
}

// Changed reports whether the transition touches the ticket at all.
func (t Transition) Changed() bool {
	return t.StatusChanged() || t.PriorityChanged()
}

// Apply writes the transition's target values onto ticket.
func (t Transition) Apply(ticket *domain.Ticket) {
	ticket.Status = t.ToStatus
	ticket.Priority = t.ToPriority
}

// ResolvePriority validates a creation-time priority, defaulting blank input to DefaultPriority.
func ResolvePriority(raw string) (domain.TicketPriority, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultPriority, nil
	}
	priority := domain.TicketPriority(raw)
	if !priority.Valid() {
		return "", invalidPriority(priority)
	}
	return priority, nil
}

// Plan checks an update against the lifecycle rules and returns the resulting transition.
// Permission is checked before the values. The ticket is never mutated.
func Plan(actor policy.Actor, ticket *domain.Ticket, changes Changes) (Transition, error) {
	tr := Transition{
		FromStatus:   ticket.Status,
		ToStatus:     ticket.Status,
		FromPriority: ticket.Priority,
		ToPriority:   ticket.Priority,
	}

	if !policy.CanModify(actor, ticket) {
		if ticket.IsClosed() {
			return Transition{}, apperrors.NewForbidden("ticket is closed")
		}
		return Transition{}, apperrors.NewForbidden("not allowed to modify ticket")
	}

	if changes.Status != nil {
		if !changes.Status.Valid() {
			return Transition{}, invalidStatus(*changes.Status)
		}
		tr.ToStatus = *changes.Status
	}
	if changes.Priority != nil {
		if !changes.Priority.Valid() {
			return Transition{}, invalidPriority(*changes.Priority)
		}
		tr.ToPriority = *changes.Priority
	}

	if ticket.IsClosed() {
		if err := checkReopen(tr); err != nil {
			return Transition{}, err
		}
	}
	return tr, nil
}

// checkReopen enforces that a closed ticket may only be moved back to a reopen status.
func checkReopen(tr Transition) error {
	if tr.PriorityChanged() {
		return apperrors.NewBusinessRuleError("closed tickets can only be reopened", map[string]any{
			"field": "priority",
		})
	}
	for _, allowed := range ReopenStatuses {
		if tr.ToStatus == allowed {
			return nil
		}
	}
	return apperrors.NewBusinessRuleError("closed tickets can only be reopened", map[string]any{
		"status":  tr.ToStatus,
		"allowed": ReopenStatuses,
	})
}

func invalidStatus(status domain.TicketStatus) error {
	return apperrors.NewValidationError("invalid status", map[string]any{
		"status":  status,
		"allowed": domain.TicketStatuses,
	})
}

func invalidPriority(priority domain.TicketPriority) error {
	return apperrors.NewValidationError("invalid priority", map[string]any{
		"priority": priority,
		"allowed":  domain.TicketPriorities,
	})
}
