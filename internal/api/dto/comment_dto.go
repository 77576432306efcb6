package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateCommentRequest payload. Emptiness is checked after the ticket view gate.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// CommentResponse is a thread entry with its author.
type CommentResponse struct {
	ID        string       `json:"id"`
	TicketID  string       `json:"ticket_id"`
	UserID    string       `json:"user_id"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
	User      *UserSummary `json:"user,omitempty"`
}

// NewCommentResponse maps a domain comment.
func NewCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		TicketID:  c.TicketID,
		UserID:    c.UserID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		User:      NewUserSummary(c.Author),
	}
}
