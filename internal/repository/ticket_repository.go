package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter domain.TicketFilter) ([]domain.Ticket, error)
	Count(ctx context.Context, filter domain.TicketFilter) (int64, error)
	CountByPriority(ctx context.Context) ([]domain.PriorityCount, error)
	// UpdateLifecycle writes status and priority only if the stored status still equals
	// expected. A lost race yields ErrConflict and a deleted ticket ErrNotFound; nothing is
	// written in either case.
	UpdateLifecycle(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error
	// Assign sets assigned_to only if assigneeID still belongs to a support user. A failed
	// guard yields ErrConflict; a missing ticket yields ErrNotFound.
	Assign(ctx context.Context, ticket *domain.Ticket, assigneeID string) error
	// ClearAssignments unassigns every ticket held by assigneeID and reports how many changed.
	ClearAssignments(ctx context.Context, assigneeID string) (int64, error)
}

type ticketRepository struct {
	db DB
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DB) TicketRepository {
	return &ticketRepository{db: db}
}

var ticketColumns = []string{
	"t.id", "t.title", "t.description", "t.status", "t.priority", "t.user_id", "t.assigned_to",
	"t.created_at", "t.updated_at", "u.name", "u.email",
}

func selectTickets() squirrel.SelectBuilder {
	return psql.Select(ticketColumns...).
		From("tickets t").
		Join("users u ON u.id = t.user_id")
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	query, args, err := psql.Insert("tickets").
		Columns("title", "description", "status", "priority", "user_id").
		Values(ticket.Title, ticket.Description, string(ticket.Status), string(ticket.Priority), ticket.UserID).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return mapError("build insert ticket", err)
	}
	err = r.db.QueryRow(ctx, query, args...).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	return mapError("insert ticket", err)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query, args, err := selectTickets().Where(squirrel.Eq{"t.id": id}).ToSql()
	if err != nil {
		return nil, mapError("build get ticket", err)
	}
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError("get ticket", err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter domain.TicketFilter) ([]domain.Ticket, error) {
	builder := applyTicketFilter(selectTickets(), filter).OrderBy("t.created_at DESC", "t.id DESC")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, mapError("build list tickets", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list tickets", err)
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, mapError("scan ticket", err)
		}
		result = append(result, *ticket)
	}
	return result, mapError("list tickets", rows.Err())
}

func (r *ticketRepository) Count(ctx context.Context, filter domain.TicketFilter) (int64, error) {
	query, args, err := applyTicketFilter(psql.Select("COUNT(*)").From("tickets t"), filter).ToSql()
	if err != nil {
		return 0, mapError("build count tickets", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, mapError("count tickets", err)
	}
	return total, nil
}

func (r *ticketRepository) CountByPriority(ctx context.Context) ([]domain.PriorityCount, error) {
	query, args, err := psql.Select("priority", "COUNT(*) AS total").
		From("tickets").
		GroupBy("priority").
		OrderBy("priority").
		ToSql()
	if err != nil {
		return nil, mapError("build count by priority", err)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("count by priority", err)
	}
	defer rows.Close()

	result := []domain.PriorityCount{}
	for rows.Next() {
		var (
			priority string
			total    int64
		)
		if err := rows.Scan(&priority, &total); err != nil {
			return nil, mapError("scan priority count", err)
		}
		result = append(result, domain.PriorityCount{Priority: domain.TicketPriority(priority), Total: total})
	}
	return result, mapError("count by priority", rows.Err())
}

func (r *ticketRepository) UpdateLifecycle(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error {
	query, args, err := psql.Update("tickets").
		Set("status", string(ticket.Status)).
		Set("priority", string(ticket.Priority)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": ticket.ID, "status": string(expected)}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return mapError("build update ticket", err)
	}
	if err := r.db.QueryRow(ctx, query, args...).Scan(&ticket.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.guardFailed(ctx, ticket.ID)
		}
		return mapError("update ticket", err)
	}
	return nil
}

func (r *ticketRepository) Assign(ctx context.Context, ticket *domain.Ticket, assigneeID string) error {
	query, args, err := psql.Update("tickets").
		Set("assigned_to", assigneeID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": ticket.ID}).
		Where("EXISTS (SELECT 1 FROM users WHERE id = ? AND role = ?)", assigneeID, string(domain.RoleSupport)).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return mapError("build assign ticket", err)
	}
	if err := r.db.QueryRow(ctx, query, args...).Scan(&ticket.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.guardFailed(ctx, ticket.ID)
		}
		return mapError("assign ticket", err)
	}
	ticket.AssignedTo = &assigneeID
	return nil
}

func (r *ticketRepository) ClearAssignments(ctx context.Context, assigneeID string) (int64, error) {
	query, args, err := psql.Update("tickets").
		Set("assigned_to", squirrel.Expr("NULL")).
		Where(squirrel.Eq{"assigned_to": assigneeID}).
		ToSql()
	if err != nil {
		return 0, mapError("build clear assignments", err)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, mapError("clear assignments", err)
	}
	return tag.RowsAffected(), nil
}

// guardFailed explains an empty RETURNING: ErrNotFound when the row is gone, ErrConflict when
// the row exists but its guard no longer holds.
func (r *ticketRepository) guardFailed(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM tickets WHERE id = $1)", id).Scan(&exists); err != nil {
		return mapError("check ticket", err)
	}
	if !exists {
		return fmt.Errorf("check ticket: %w", ErrNotFound)
	}
	return ErrConflict
}

// applyTicketFilter renders a TicketFilter as WHERE clauses on the "t" alias.
func applyTicketFilter(b squirrel.SelectBuilder, f domain.TicketFilter) squirrel.SelectBuilder {
	if f.OwnerID != nil {
		b = b.Where(squirrel.Eq{"t.user_id": *f.OwnerID})
	}
	if f.AssigneeID != nil {
		b = b.Where(squirrel.Eq{"t.assigned_to": *f.AssigneeID})
	}
	if f.Unassigned {
		b = b.Where(squirrel.Eq{"t.assigned_to": nil})
	}
	if len(f.Statuses) > 0 {
		b = b.Where(squirrel.Eq{"t.status": statusStrings(f.Statuses)})
	}
	if len(f.Priorities) > 0 {
		priorities := make([]string, len(f.Priorities))
		for i, p := range f.Priorities {
			priorities[i] = string(p)
		}
		b = b.Where(squirrel.Eq{"t.priority": priorities})
	}
	if f.Window != nil {
		b = b.Where(squirrel.Or{
			squirrel.Eq{"t.status": statusStrings(domain.ActiveStatuses)},
			squirrel.And{
				squirrel.Eq{"t.status": string(domain.TicketStatusClosed)},
				squirrel.GtOrEq{"t.updated_at": f.Window.ClosedFrom},
				squirrel.Lt{"t.updated_at": f.Window.ClosedTo},
			},
		})
	}
	if f.UpdatedFrom != nil {
		b = b.Where(squirrel.GtOrEq{"t.updated_at": *f.UpdatedFrom})
	}
	if f.UpdatedTo != nil {
		b = b.Where(squirrel.Lt{"t.updated_at": *f.UpdatedTo})
	}
	return b
}

func statusStrings(statuses []domain.TicketStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket   domain.Ticket
		status   string
		priority string
		creator  domain.UserSummary
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&status,
		&priority,
		&ticket.UserID,
		&ticket.AssignedTo,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&creator.Name,
		&creator.Email,
	); err != nil {
		return nil, err
	}
	ticket.Status = domain.TicketStatus(status)
	ticket.Priority = domain.TicketPriority(priority)
	creator.ID = ticket.UserID
	ticket.Creator = &creator
	return &ticket, nil
}
