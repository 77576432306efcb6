package repository

import (
	"context"

	"github.com/Masterminds/squirrel"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CommentRepository manages the append-only comment thread of a ticket.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error)
}

type commentRepository struct {
	db DB
}

// NewCommentRepository builds repository.
func NewCommentRepository(db DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	query, args, err := psql.Insert("comments").
		Columns("ticket_id", "user_id", "content").
		Values(comment.TicketID, comment.UserID, comment.Content).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return mapError("build insert comment", err)
	}
	err = r.db.QueryRow(ctx, query, args...).Scan(&comment.ID, &comment.CreatedAt)
	return mapError("insert comment", err)
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	query, args, err := psql.Select(
		"c.id", "c.ticket_id", "c.user_id", "c.content", "c.created_at", "u.name", "u.email",
	).
		From("comments c").
		Join("users u ON u.id = c.user_id").
		Where(squirrel.Eq{"c.ticket_id": ticketID}).
		OrderBy("c.created_at ASC", "c.id ASC").
		ToSql()
	if err != nil {
		return nil, mapError("build list comments", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list comments", err)
	}
	defer rows.Close()

	result := []domain.Comment{}
	for rows.Next() {
		var (
			comment domain.Comment
			author  domain.UserSummary
		)
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.UserID,
			&comment.Content,
			&comment.CreatedAt,
			&author.Name,
			&author.Email,
		); err != nil {
			return nil, mapError("scan comment", err)
		}
		author.ID = comment.UserID
		comment.Author = &author
		result = append(result, comment)
	}
	return result, mapError("list comments", rows.Err())
}
