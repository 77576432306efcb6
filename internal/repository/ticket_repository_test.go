package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
)

var ticketRowColumns = []string{
	"id", "title", "description", "status", "priority", "user_id", "assigned_to",
	"created_at", "updated_at", "name", "email",
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return mockPool
}

func TestTicketRepository_Create(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewTicketRepository(mockPool)
	now := time.Now()

	ticket := &domain.Ticket{
		Title:       "Printer on fire",
		Description: "Third floor",
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityMedium,
		UserID:      "user-1",
	}
	mockPool.ExpectQuery(`INSERT INTO tickets \(title,description,status,priority,user_id\) VALUES \(\$1,\$2,\$3,\$4,\$5\) RETURNING id, created_at, updated_at`).
		WithArgs("Printer on fire", "Third floor", "open", "medium", "user-1").
		WillReturnRows(mockPool.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("ticket-1", now, now))

	require.NoError(t, repo.Create(context.Background(), ticket))
	assert.Equal(t, "ticket-1", ticket.ID)
	assert.Equal(t, now, ticket.CreatedAt)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTicketRepository_GetByID(t *testing.T) {
	t.Run("Should attach creator summary", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewTicketRepository(mockPool)
		now := time.Now()
		supportID := "support-1"

		mockPool.ExpectQuery(`SELECT (.+) FROM tickets t JOIN users u ON u\.id = t\.user_id WHERE t\.id = \$1`).
			WithArgs("ticket-1").
			WillReturnRows(mockPool.NewRows(ticketRowColumns).
				AddRow("ticket-1", "T", "D", "resolved", "high", "user-1", &supportID, now, now, "Ada", "ada@example.com"))

		ticket, err := repo.GetByID(context.Background(), "ticket-1")
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusResolved, ticket.Status)
		assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
		require.NotNil(t, ticket.AssignedTo)
		assert.Equal(t, supportID, *ticket.AssignedTo)
		require.NotNil(t, ticket.Creator)
		assert.Equal(t, domain.UserSummary{ID: "user-1", Name: "Ada", Email: "ada@example.com"}, *ticket.Creator)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should map missing rows to ErrNotFound", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewTicketRepository(mockPool)

		mockPool.ExpectQuery(`SELECT (.+) FROM tickets t`).
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		ticket, err := repo.GetByID(context.Background(), "missing")
		assert.Nil(t, ticket)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestTicketRepository_ListWithVisibilityWindow(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewTicketRepository(mockPool)
	now := time.Now()
	supportID := "support-1"
	from := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	filter := domain.TicketFilter{
		AssigneeID: &supportID,
		Window:     &domain.VisibilityWindow{ClosedFrom: from, ClosedTo: from.AddDate(0, 0, 1)},
		Limit:      20,
	}

	mockPool.ExpectQuery(`SELECT (.+) FROM tickets t JOIN users u ON u\.id = t\.user_id ` +
		`WHERE t\.assigned_to = \$1 AND \(t\.status IN \(\$2,\$3,\$4,\$5\) OR \(t\.status = \$6 AND t\.updated_at >= \$7 AND t\.updated_at < \$8\)\) ` +
		`ORDER BY t\.created_at DESC, t\.id DESC LIMIT 20`).
		WithArgs(supportID, "open", "in_progress", "pending", "resolved", "closed", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(mockPool.NewRows(ticketRowColumns).
			AddRow("t-1", "A", "a", "open", "low", "user-1", &supportID, now, now, "Ada", "ada@example.com").
			AddRow("t-2", "B", "b", "closed", "high", "user-2", &supportID, now, now, "Bob", "bob@example.com"))

	tickets, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, "t-1", tickets[0].ID)
	assert.Equal(t, "Bob", tickets[1].Creator.Name)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTicketRepository_CountUnassignedOpen(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewTicketRepository(mockPool)

	mockPool.ExpectQuery(`SELECT COUNT\(\*\) FROM tickets t WHERE t\.assigned_to IS NULL AND t\.status IN \(\$1\)`).
		WithArgs("open").
		WillReturnRows(mockPool.NewRows([]string{"count"}).AddRow(int64(4)))

	total, err := repo.Count(context.Background(), domain.TicketFilter{
		Unassigned: true,
		Statuses:   []domain.TicketStatus{domain.TicketStatusOpen},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTicketRepository_CountByPriority(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewTicketRepository(mockPool)

	mockPool.ExpectQuery(`SELECT priority, COUNT\(\*\) AS total FROM tickets GROUP BY priority`).
		WillReturnRows(mockPool.NewRows([]string{"priority", "total"}).
			AddRow("high", int64(2)).
			AddRow("low", int64(5)))

	counts, err := repo.CountByPriority(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.PriorityCount{
		{Priority: domain.TicketPriorityHigh, Total: 2},
		{Priority: domain.TicketPriorityLow, Total: 5},
	}, counts)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTicketRepository_UpdateLifecycle(t *testing.T) {
	t.Run("Should guard on the previous status", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewTicketRepository(mockPool)
		now := time.Now()
		ticket := &domain.Ticket{ID: "t-1", Status: domain.TicketStatusResolved, Priority: domain.TicketPriorityHigh}

		mockPool.ExpectQuery(`UPDATE tickets SET status = \$1, priority = \$2, updated_at = NOW\(\) WHERE id = \$3 AND status = \$4 RETURNING updated_at`).
			WithArgs("resolved", "high", "t-1", "in_progress").
			WillReturnRows(mockPool.NewRows([]string{"updated_at"}).AddRow(now))

		require.NoError(t, repo.UpdateLifecycle(context.Background(), ticket, domain.TicketStatusInProgress))
		assert.Equal(t, now, ticket.UpdatedAt)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should report a lost race as ErrConflict", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewTicketRepository(mockPool)
		ticket := &domain.Ticket{ID: "t-1", Status: domain.TicketStatusResolved, Priority: domain.TicketPriorityHigh}

		mockPool.ExpectQuery(`UPDATE tickets`).
			WithArgs("resolved", "high", "t-1", "open").
			WillReturnError(pgx.ErrNoRows)
		mockPool.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM tickets WHERE id = \$1\)`).
			WithArgs("t-1").
			WillReturnRows(mockPool.NewRows([]string{"exists"}).AddRow(true))

		err := repo.UpdateLifecycle(context.Background(), ticket, domain.TicketStatusOpen)
		assert.ErrorIs(t, err, ErrConflict)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should report a deleted ticket as ErrNotFound", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewTicketRepository(mockPool)
		ticket := &domain.Ticket{ID: "t-1", Status: domain.TicketStatusResolved, Priority: domain.TicketPriorityHigh}

		mockPool.ExpectQuery(`UPDATE tickets`).
			WithArgs("resolved", "high", "t-1", "open").
			WillReturnError(pgx.ErrNoRows)
		mockPool.ExpectQuery(`SELECT EXISTS`).
			WithArgs("t-1").
			WillReturnRows(mockPool.NewRows([]string{"exists"}).AddRow(false))

		err := repo.UpdateLifecycle(context.Background(), ticket, domain.TicketStatusOpen)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NotErrorIs(t, err, ErrConflict)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestTicketRepository_Assign(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewTicketRepository(mockPool)
	now := time.Now()
	ticket := &domain.Ticket{ID: "t-1"}

	mockPool.ExpectQuery(`UPDATE tickets SET assigned_to = \$1, updated_at = NOW\(\) WHERE id = \$2 AND EXISTS \(SELECT 1 FROM users WHERE id = \$3 AND role = \$4\) RETURNING updated_at`).
		WithArgs("support-1", "t-1", "support-1", "support").
		WillReturnRows(mockPool.NewRows([]string{"updated_at"}).AddRow(now))

	require.NoError(t, repo.Assign(context.Background(), ticket, "support-1"))
	require.NotNil(t, ticket.AssignedTo)
	assert.Equal(t, "support-1", *ticket.AssignedTo)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTicketRepository_AssignGuard(t *testing.T) {
	t.Run("Should report a non-support assignee as ErrConflict", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewTicketRepository(mockPool)
		ticket := &domain.Ticket{ID: "t-1"}

		mockPool.ExpectQuery(`UPDATE tickets SET assigned_to`).
			WithArgs("user-9", "t-1", "user-9", "support").
			WillReturnError(pgx.ErrNoRows)
		mockPool.ExpectQuery(`SELECT EXISTS`).
			WithArgs("t-1").
			WillReturnRows(mockPool.NewRows([]string{"exists"}).AddRow(true))

		err := repo.Assign(context.Background(), ticket, "user-9")
		assert.ErrorIs(t, err, ErrConflict)
		assert.Nil(t, ticket.AssignedTo)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should report a deleted ticket as ErrNotFound", func(t *testing.T) {
		mockPool := newMockPool(t)
		repo := NewTicketRepository(mockPool)
		ticket := &domain.Ticket{ID: "t-1"}

		mockPool.ExpectQuery(`UPDATE tickets SET assigned_to`).
			WithArgs("support-1", "t-1", "support-1", "support").
			WillReturnError(pgx.ErrNoRows)
		mockPool.ExpectQuery(`SELECT EXISTS`).
			WithArgs("t-1").
			WillReturnRows(mockPool.NewRows([]string{"exists"}).AddRow(false))

		err := repo.Assign(context.Background(), ticket, "support-1")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestTicketRepository_ClearAssignments(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewTicketRepository(mockPool)

	mockPool.ExpectExec(`UPDATE tickets SET assigned_to = NULL WHERE assigned_to = \$1`).
		WithArgs("support-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	cleared, err := repo.ClearAssignments(context.Background(), "support-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), cleared)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestTicketRepository_GetByIDMalformedID(t *testing.T) {
	mockPool := newMockPool(t)
	repo := NewTicketRepository(mockPool)

	mockPool.ExpectQuery(`SELECT (.+) FROM tickets t`).
		WithArgs("abc").
		WillReturnError(&pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"})

	ticket, err := repo.GetByID(context.Background(), "abc")
	assert.Nil(t, ticket)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError("op", nil))
	assert.ErrorIs(t, mapError("op", pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, mapError("op", &pgconn.PgError{Code: "23505"}), ErrDuplicate)
	assert.ErrorIs(t, mapError("op", &pgconn.PgError{Code: "22P02"}), ErrNotFound)

	cause := errors.New("connection reset")
	err := mapError("op", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "op: connection reset")
}
