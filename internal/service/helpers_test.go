package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) ofType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := []events.Event{}
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store      *memory.Store
	now        time.Time
	dispatcher *recordingDispatcher

	admin   *domain.User
	agent   *domain.User
	agent2  *domain.User
	owner   *domain.User
	another *domain.User

	tickets   *TicketService
	comments  *CommentService
	dashboard *DashboardService
	users     *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		now:        time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC),
		dispatcher: &recordingDispatcher{},
	}
	clock := func() time.Time { return f.now }
	f.store = memory.NewStore(clock)

	f.admin = f.seedUser(t, "admin@example.com", domain.RoleAdmin)
	f.agent = f.seedUser(t, "sam@example.com", domain.RoleSupport)
	f.agent2 = f.seedUser(t, "kim@example.com", domain.RoleSupport)
	f.owner = f.seedUser(t, "ada@example.com", domain.RoleUser)
	f.another = f.seedUser(t, "bob@example.com", domain.RoleUser)

	f.tickets = NewTicketService(TicketDependencies{
		TicketRepo: f.store.Tickets(),
		UserRepo:   f.store.Users(),
		Dispatcher: f.dispatcher,
		Clock:      clock,
	})
	f.comments = NewCommentService(CommentDependencies{
		CommentRepo: f.store.Comments(),
		TicketRepo:  f.store.Tickets(),
		UserRepo:    f.store.Users(),
		Clock:       clock,
	})
	f.dashboard = NewDashboardService(DashboardDependencies{
		TicketRepo: f.store.Tickets(),
		UserRepo:   f.store.Users(),
		Clock:      clock,
	})
	f.users = NewUserService(UserDependencies{UserRepo: f.store.Users(), TicketRepo: f.store.Tickets(), BcryptCost: 4})
	return f
}

func (f *fixture) seedUser(t *testing.T, email string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword("password123", 4)
	require.NoError(t, err)
	u := &domain.User{Name: email, Email: email, PasswordHash: hash, Role: role}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) newTicket(t *testing.T, owner *domain.User, priority string) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.Create(context.Background(), actorOf(owner), TicketCreateInput{
		Title: "Printer jammed", Description: "Second floor", Priority: priority,
	})
	require.NoError(t, err)
	return ticket
}

func (f *fixture) assign(t *testing.T, ticket *domain.Ticket, agent *domain.User) {
	t.Helper()
	_, err := f.tickets.Assign(context.Background(), actorOf(f.admin), ticket.ID, agent.ID)
	require.NoError(t, err)
}

func (f *fixture) setStatus(t *testing.T, ticket *domain.Ticket, status domain.TicketStatus) {
	t.Helper()
	s := string(status)
	_, err := f.tickets.Update(context.Background(), actorOf(f.admin), ticket.ID, TicketUpdateInput{Status: &s})
	require.NoError(t, err)
}

func (f *fixture) reload(t *testing.T, id string) *domain.Ticket {
	t.Helper()
	ticket, err := f.store.Tickets().GetByID(context.Background(), id)
	require.NoError(t, err)
	return ticket
}

func actorOf(u *domain.User) policy.Actor {
	return policy.Actor{ID: u.ID, Role: u.Role}
}

func ptr[T any](v T) *T { return &v }

func assertHTTPStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, status, de.HTTPStatus, "error: %v", err)
}
