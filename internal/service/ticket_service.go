package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/lifecycle"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows: policy, lifecycle, persistence and events.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        Clock
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      Clock
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    string
}

// TicketUpdateInput carries the only mutable fields. Nil means unchanged.
type TicketUpdateInput struct {
	Status   *string
	Priority *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = NewClock(nil)
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     nopIfNil(deps.Logger),
		now:        clock,
	}
}

// Create opens a new ticket owned by actor.
func (s *TicketService) Create(ctx context.Context, actor policy.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if !actor.Role.Valid() {
		return nil, errUnknownRole()
	}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	missing := map[string]any{}
	if title == "" {
		missing["title"] = "required"
	}
	if description == "" {
		missing["description"] = "required"
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket", missing)
	}
	priority, err := lifecycle.ResolvePriority(input.Priority)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      lifecycle.InitialStatus,
		Priority:    priority,
		UserID:      actor.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, mapRepoError("ticket", "", err)
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketCreatedPayload{
			CreatorID: ticket.UserID,
			Title:     ticket.Title,
			Priority:  ticket.Priority,
		},
	})
	return ticket, nil
}

// List returns the page of tickets visible to actor together with the total visible count.
func (s *TicketService) List(ctx context.Context, actor policy.Actor, page Page) ([]domain.Ticket, int64, error) {
	filter, err := policy.VisibilityFilter(actor, s.now())
	if err != nil {
		return nil, 0, errUnknownRole()
	}
	total, err := s.tickets.Count(ctx, filter)
	if err != nil {
		return nil, 0, mapRepoError("ticket", "", err)
	}
	filter.Limit = page.Limit
	filter.Offset = page.Offset
	tickets, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, 0, mapRepoError("ticket", "", err)
	}
	return tickets, total, nil
}

// Get fetches a single ticket. Existence is not hidden: a forbidden ticket yields 403, not 404.
func (s *TicketService) Get(ctx context.Context, actor policy.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := ensureViewable(actor, ticket, s.now()); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Update changes status and priority. The write is conditional on the status read here, so a
// concurrent change is reported as a conflict and nothing is written.
func (s *TicketService) Update(ctx context.Context, actor policy.Actor, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	var changes lifecycle.Changes
	if input.Status != nil {
		status := domain.TicketStatus(strings.TrimSpace(*input.Status))
		changes.Status = &status
	}
	if input.Priority != nil {
		priority := domain.TicketPriority(strings.TrimSpace(*input.Priority))
		changes.Priority = &priority
	}

	tr, err := lifecycle.Plan(actor, ticket, changes)
	if err != nil {
		return nil, err
	}
	if !tr.Changed() {
		return ticket, nil
	}

	updated := *ticket
	tr.Apply(&updated)
	if err := s.tickets.UpdateLifecycle(ctx, &updated, tr.FromStatus); err != nil {
		return nil, mapRepoError("ticket", ticketID, err)
	}

	if tr.StatusChanged() {
		publishEvent(ctx, s.dispatcher, s.logger, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: updated.ID,
			Actor:    eventActor(actor),
			Payload: events.TicketStatusChangedPayload{
				CreatorID: updated.UserID,
				Title:     updated.Title,
				OldStatus: tr.FromStatus,
				NewStatus: tr.ToStatus,
			},
		})
	}
	return &updated, nil
}

// Assign routes a ticket to a support user. Admin only.
func (s *TicketService) Assign(ctx context.Context, actor policy.Actor, ticketID, assigneeID string) (*domain.Ticket, error) {
	if !policy.CanAssign(actor) {
		return nil, apperrors.NewForbidden("only admins may assign tickets")
	}
	assigneeID = strings.TrimSpace(assigneeID)
	if assigneeID == "" {
		return nil, apperrors.NewValidationError("invalid assignment", map[string]any{"assigned_to": "required"})
	}

	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewValidationError("assigned user does not exist", map[string]any{"assigned_to": assigneeID})
		}
		return nil, mapRepoError("user", assigneeID, err)
	}
	if assignee.Role != domain.RoleSupport {
		return nil, notSupportError(assigneeID)
	}

	previous := ticket.AssignedTo
	updated := *ticket
	if err := s.tickets.Assign(ctx, &updated, assigneeID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// The role changed between the check above and the guarded write.
			return nil, notSupportError(assigneeID)
		}
		return nil, mapRepoError("ticket", ticketID, err)
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: updated.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketAssignedPayload{
			Title:              updated.Title,
			AssigneeID:         assigneeID,
			PreviousAssigneeID: previous,
		},
	})
	return &updated, nil
}

func (s *TicketService) load(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError("ticket", ticketID, err)
	}
	return ticket, nil
}

func notSupportError(assigneeID string) error {
	return apperrors.NewValidationError("assigned user must have the support role", map[string]any{
		"assigned_to": assigneeID,
	})
}
