// Package memory provides in-process implementations of the repository interfaces. They honour
// the same contracts as the Postgres repositories, including the guarded lifecycle and
// assignment writes, and back the service and HTTP tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Store holds users, tickets and comments behind one lock.
type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	seq      int64
	users    map[string]*domain.User
	tickets  map[string]*ticketRow
	comments []commentRow
}

type ticketRow struct {
	ticket domain.Ticket
	seq    int64
}

type commentRow struct {
	comment domain.Comment
	seq     int64
}

// NewStore builds an empty store. A nil clock uses time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:     now,
		users:   make(map[string]*domain.User),
		tickets: make(map[string]*ticketRow),
	}
}

// Users returns the store as a UserRepository.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Tickets returns the store as a TicketRepository.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// Comments returns the store as a CommentRepository.
func (s *Store) Comments() repository.CommentRepository { return commentRepo{s} }

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

func (s *Store) summary(userID string) *domain.UserSummary {
	u, ok := s.users[userID]
	if !ok {
		return &domain.UserSummary{ID: userID}
	}
	summary := u.Summary()
	return &summary
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.emailTaken(user.Email, "") {
		return repository.ErrDuplicate
	}
	now := r.s.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	stored := *user
	r.s.users[user.ID] = &stored
	return nil
}

func (r userRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.s.emailTaken(user.Email, user.ID) {
		return repository.ErrDuplicate
	}
	user.UpdatedAt = r.s.now()
	stored := *user
	r.s.users[user.ID] = &stored
	return nil
}

// Delete mirrors the schema's foreign keys: owned tickets and authored comments cascade,
// assignments are cleared.
func (r userRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.users, id)
	for ticketID, row := range r.s.tickets {
		if row.ticket.UserID == id {
			delete(r.s.tickets, ticketID)
			continue
		}
		if row.ticket.AssignedToUser(id) {
			row.ticket.AssignedTo = nil
		}
	}
	kept := r.s.comments[:0]
	for _, row := range r.s.comments {
		if row.comment.UserID == id {
			continue
		}
		if _, ok := r.s.tickets[row.comment.TicketID]; !ok {
			continue
		}
		kept = append(kept, row)
	}
	r.s.comments = kept
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) List(_ context.Context, limit, offset int) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	users := make([]domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID > users[j].ID
	})
	return paginate(users, limit, offset), nil
}

func (r userRepo) Count(context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.users)), nil
}

func (s *Store) emailTaken(email, exceptID string) bool {
	for id, u := range s.users {
		if id != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[ticket.UserID]; !ok {
		return repository.ErrNotFound
	}
	now := r.s.now()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	stored := *ticket
	stored.Creator = nil
	r.s.tickets[ticket.ID] = &ticketRow{ticket: stored, seq: r.s.next()}
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.s.view(row), nil
}

func (r ticketRepo) List(_ context.Context, filter domain.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rows := r.s.matching(filter)
	out := make([]domain.Ticket, 0, len(rows))
	for _, row := range rows {
		out = append(out, *r.s.view(row))
	}
	return paginate(out, filter.Limit, filter.Offset), nil
}

func (r ticketRepo) Count(_ context.Context, filter domain.TicketFilter) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.matching(filter))), nil
}

func (r ticketRepo) CountByPriority(context.Context) ([]domain.PriorityCount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	totals := map[domain.TicketPriority]int64{}
	for _, row := range r.s.tickets {
		totals[row.ticket.Priority]++
	}
	out := make([]domain.PriorityCount, 0, len(totals))
	for p, n := range totals {
		out = append(out, domain.PriorityCount{Priority: p, Total: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (r ticketRepo) UpdateLifecycle(_ context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if row.ticket.Status != expected {
		return repository.ErrConflict
	}
	row.ticket.Status = ticket.Status
	row.ticket.Priority = ticket.Priority
	row.ticket.UpdatedAt = r.s.now()
	ticket.UpdatedAt = row.ticket.UpdatedAt
	return nil
}

func (r ticketRepo) Assign(_ context.Context, ticket *domain.Ticket, assigneeID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	assignee, exists := r.s.users[assigneeID]
	if !exists || assignee.Role != domain.RoleSupport {
		return repository.ErrConflict
	}
	id := assigneeID
	row.ticket.AssignedTo = &id
	row.ticket.UpdatedAt = r.s.now()
	ticket.AssignedTo = &assigneeID
	ticket.UpdatedAt = row.ticket.UpdatedAt
	return nil
}

// ClearAssignments leaves updated_at untouched.
func (r ticketRepo) ClearAssignments(_ context.Context, assigneeID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var cleared int64
	for _, row := range r.s.tickets {
		if row.ticket.AssignedToUser(assigneeID) {
			row.ticket.AssignedTo = nil
			cleared++
		}
	}
	return cleared, nil
}

// matching returns rows passing filter, newest first.
func (s *Store) matching(filter domain.TicketFilter) []*ticketRow {
	rows := make([]*ticketRow, 0, len(s.tickets))
	for _, row := range s.tickets {
		if filter.Matches(&row.ticket) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.ticket.CreatedAt.Equal(b.ticket.CreatedAt) {
			return a.ticket.CreatedAt.After(b.ticket.CreatedAt)
		}
		return a.seq > b.seq
	})
	return rows
}

func (s *Store) view(row *ticketRow) *domain.Ticket {
	out := row.ticket
	if row.ticket.AssignedTo != nil {
		id := *row.ticket.AssignedTo
		out.AssignedTo = &id
	}
	out.Creator = s.summary(out.UserID)
	return &out
}

type commentRepo struct{ s *Store }

func (r commentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[comment.TicketID]; !ok {
		return repository.ErrNotFound
	}
	comment.ID = uuid.NewString()
	comment.CreatedAt = r.s.now()
	stored := *comment
	stored.Author = nil
	r.s.comments = append(r.s.comments, commentRow{comment: stored, seq: r.s.next()})
	return nil
}

func (r commentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rows := []commentRow{}
	for _, row := range r.s.comments {
		if row.comment.TicketID == ticketID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].comment.CreatedAt.Equal(rows[j].comment.CreatedAt) {
			return rows[i].comment.CreatedAt.Before(rows[j].comment.CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})
	out := make([]domain.Comment, 0, len(rows))
	for _, row := range rows {
		c := row.comment
		c.Author = r.s.summary(c.UserID)
		out = append(out, c)
	}
	return out, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
