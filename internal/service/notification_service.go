package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/mail"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Notification outcomes reported to the recorder.
const (
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
	NotificationDropped = "dropped"
)

// NotificationRecorder counts notification outcomes.
type NotificationRecorder interface {
	RecordNotification(event, outcome string)
}

// NotificationService turns domain events into mail. Failures are logged and counted; they
// never reach the request that produced the event.
type NotificationService struct {
	dispatcher events.Dispatcher
	users      repository.UserRepository
	mailer     mail.Mailer
	recorder   NotificationRecorder
	logger     *zap.Logger
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	UserRepo   repository.UserRepository
	Mailer     mail.Mailer
	Recorder   NotificationRecorder
	Logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		users:      deps.UserRepo,
		mailer:     deps.Mailer,
		recorder:   deps.Recorder,
		logger:     nopIfNil(deps.Logger),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
}

// RecordDropped counts an event the queue could not accept.
func (n *NotificationService) RecordDropped(event events.Event) {
	n.record(event, NotificationDropped)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return n.badPayload(event)
	}
	return n.deliver(ctx, event, payload.CreatorID, func(to string) mail.Message {
		return mail.TicketCreated(to, payload.Title)
	})
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return n.badPayload(event)
	}
	return n.deliver(ctx, event, payload.CreatorID, func(to string) mail.Message {
		return mail.TicketStatusUpdated(to, payload.Title, payload.NewStatus)
	})
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return n.badPayload(event)
	}
	return n.deliver(ctx, event, payload.AssigneeID, func(to string) mail.Message {
		return mail.TicketAssigned(to, payload.Title)
	})
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event, recipientID string, build func(to string) mail.Message) error {
	recipient, err := n.users.GetByID(ctx, recipientID)
	if err != nil {
		n.record(event, NotificationFailed)
		return fmt.Errorf("resolve recipient %s: %w", recipientID, err)
	}
	if err := n.mailer.Send(ctx, build(recipient.Email)); err != nil {
		n.record(event, NotificationFailed)
		return err
	}
	n.record(event, NotificationSent)
	n.logger.Info("notification sent",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("recipient_id", recipientID))
	return nil
}

func (n *NotificationService) badPayload(event events.Event) error {
	n.record(event, NotificationFailed)
	return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
}

func (n *NotificationService) record(event events.Event, outcome string) {
	if n.recorder != nil {
		n.recorder.RecordNotification(string(event.Type), outcome)
	}
}
