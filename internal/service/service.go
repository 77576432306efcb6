package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// Clock returns the current time in the service time zone.
type Clock func() time.Time

// NewClock returns a Clock reporting wall time in loc.
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return func() time.Time { return time.Now().In(loc) }
}

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}

func errUnknownRole() error {
	return apperrors.NewForbidden("role not recognized")
}

// mapRepoError converts repository sentinels into API errors.
func mapRepoError(resource string, id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", nil)
	case errors.Is(err, repository.ErrConflict):
		return apperrors.NewConflict(resource+" was modified concurrently", map[string]any{"id": id})
	}
	return apperrors.NewInternalError(err)
}

// ensureViewable gates single-ticket reads. Closed tickets are archived for everyone but admins.
func ensureViewable(actor policy.Actor, ticket *domain.Ticket, now time.Time) error {
	if !actor.Role.Valid() {
		return errUnknownRole()
	}
	if actor.IsAdmin() {
		return nil
	}
	if ticket.IsClosed() {
		return apperrors.NewForbidden("ticket is archived")
	}
	if !policy.CanView(actor, ticket, now) {
		return apperrors.NewForbidden("not allowed to view ticket")
	}
	return nil
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("publish event",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func eventActor(actor policy.Actor) events.Actor {
	return events.Actor{UserID: actor.ID, Role: actor.Role}
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
