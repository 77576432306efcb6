package service

import (
	"context"
	"strings"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// CommentService manages ticket comment threads. Both operations are gated on the same view
// rule as a single-ticket read.
type CommentService struct {
	comments repository.CommentRepository
	tickets  repository.TicketRepository
	users    repository.UserRepository
	now      Clock
}

// CommentDependencies bundles repositories.
type CommentDependencies struct {
	CommentRepo repository.CommentRepository
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	Clock       Clock
}

// NewCommentService builds the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	clock := deps.Clock
	if clock == nil {
		clock = NewClock(nil)
	}
	return &CommentService{
		comments: deps.CommentRepo,
		tickets:  deps.TicketRepo,
		users:    deps.UserRepo,
		now:      clock,
	}
}

// List returns the thread oldest first.
func (s *CommentService) List(ctx context.Context, actor policy.Actor, ticketID string) ([]domain.Comment, error) {
	if err := s.gate(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError("comment", "", err)
	}
	return comments, nil
}

// Add appends a comment authored by actor. The view gate runs before content is checked.
func (s *CommentService) Add(ctx context.Context, actor policy.Actor, ticketID, content string) (*domain.Comment, error) {
	if err := s.gate(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("invalid comment", map[string]any{"content": "required"})
	}

	author, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, mapRepoError("user", actor.ID, err)
	}

	comment := &domain.Comment{TicketID: ticketID, UserID: actor.ID, Content: content}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, mapRepoError("comment", "", err)
	}
	summary := author.Summary()
	comment.Author = &summary
	return comment, nil
}

func (s *CommentService) gate(ctx context.Context, actor policy.Actor, ticketID string) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return mapRepoError("ticket", ticketID, err)
	}
	return ensureViewable(actor, ticket, s.now())
}
