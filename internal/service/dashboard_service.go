package service

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository"
)

const (
	adminRecentLimit   = 5
	supportRecentLimit = 10
	userRecentLimit    = 5
)

var (
	workingStatuses  = []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusPending}
	finishedStatuses = []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed}
	urgentStatuses   = []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress}
)

// DashboardService computes read-only, per-role statistics.
type DashboardService struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
	now     Clock
}

// DashboardDependencies bundles repositories.
type DashboardDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Clock      Clock
}

// NewDashboardService builds the service.
func NewDashboardService(deps DashboardDependencies) *DashboardService {
	clock := deps.Clock
	if clock == nil {
		clock = NewClock(nil)
	}
	return &DashboardService{tickets: deps.TicketRepo, users: deps.UserRepo, now: clock}
}

// Stats returns the dashboard for actor's role.
func (s *DashboardService) Stats(ctx context.Context, actor policy.Actor) (*domain.DashboardStats, error) {
	stats := &domain.DashboardStats{Role: actor.Role}
	var err error
	switch actor.Role {
	case domain.RoleAdmin:
		stats.Admin, err = s.adminStats(ctx)
	case domain.RoleSupport:
		stats.Support, err = s.supportStats(ctx, actor.ID)
	case domain.RoleUser:
		stats.User, err = s.userStats(ctx, actor.ID)
	default:
		return nil, errUnknownRole()
	}
	if err != nil {
		return nil, mapRepoError("dashboard", "", err)
	}
	return stats, nil
}

func (s *DashboardService) adminStats(ctx context.Context) (*domain.AdminStats, error) {
	var (
		stats domain.AdminStats
		err   error
	)
	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalTickets, err = s.tickets.Count(ctx, domain.TicketFilter{}); err != nil {
		return nil, err
	}
	if stats.TicketsOpen, err = s.countStatus(ctx, domain.TicketStatusOpen); err != nil {
		return nil, err
	}
	if stats.TicketsInProgress, err = s.countStatus(ctx, domain.TicketStatusInProgress); err != nil {
		return nil, err
	}
	if stats.TicketsByPriority, err = s.tickets.CountByPriority(ctx); err != nil {
		return nil, err
	}
	if stats.RecentTickets, err = s.tickets.List(ctx, domain.TicketFilter{Limit: adminRecentLimit}); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *DashboardService) supportStats(ctx context.Context, supportID string) (*domain.SupportStats, error) {
	var (
		stats domain.SupportStats
		err   error
	)
	start, end := policy.DayBounds(s.now())
	mine := func(f domain.TicketFilter) domain.TicketFilter {
		f.AssigneeID = &supportID
		return f
	}

	if stats.AssignedTicketsCount, err = s.tickets.Count(ctx, mine(domain.TicketFilter{Statuses: workingStatuses})); err != nil {
		return nil, err
	}
	today := mine(domain.TicketFilter{Statuses: finishedStatuses, UpdatedFrom: &start, UpdatedTo: &end})
	if stats.ResolvedTicketsToday, err = s.tickets.Count(ctx, today); err != nil {
		return nil, err
	}
	if stats.ResolvedTicketsTotal, err = s.tickets.Count(ctx, mine(domain.TicketFilter{Statuses: finishedStatuses})); err != nil {
		return nil, err
	}
	pool := domain.TicketFilter{Unassigned: true, Statuses: []domain.TicketStatus{domain.TicketStatusOpen}}
	if stats.UnassignedTicketsCount, err = s.tickets.Count(ctx, pool); err != nil {
		return nil, err
	}
	urgent := mine(domain.TicketFilter{
		Priorities: []domain.TicketPriority{domain.TicketPriorityHigh},
		Statuses:   urgentStatuses,
	})
	if stats.UrgentAssignedTickets, err = s.tickets.List(ctx, urgent); err != nil {
		return nil, err
	}
	recent := mine(domain.TicketFilter{Statuses: workingStatuses, Limit: supportRecentLimit})
	if stats.MyAssignedTickets, err = s.tickets.List(ctx, recent); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *DashboardService) userStats(ctx context.Context, userID string) (*domain.UserStats, error) {
	var (
		stats domain.UserStats
		err   error
	)
	own := func(f domain.TicketFilter) domain.TicketFilter {
		f.OwnerID = &userID
		return f
	}
	if stats.MyOpenTickets, err = s.tickets.Count(ctx, own(domain.TicketFilter{Statuses: workingStatuses})); err != nil {
		return nil, err
	}
	if stats.MyClosedTickets, err = s.tickets.Count(ctx, own(domain.TicketFilter{Statuses: finishedStatuses})); err != nil {
		return nil, err
	}
	if stats.RecentTickets, err = s.tickets.List(ctx, own(domain.TicketFilter{Limit: userRecentLimit})); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *DashboardService) countStatus(ctx context.Context, status domain.TicketStatus) (int64, error) {
	return s.tickets.Count(ctx, domain.TicketFilter{Statuses: []domain.TicketStatus{status}})
}
