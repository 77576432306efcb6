package dto

import "github.com/spec-kit/helpdesk/internal/domain"

// PriorityCountResponse is one tickets-by-priority row.
type PriorityCountResponse struct {
	Priority domain.TicketPriority `json:"priority"`
	Total    int64                 `json:"total"`
}

// AdminDashboardResponse is returned to admins.
type AdminDashboardResponse struct {
	Role              domain.Role             `json:"role"`
	TotalUsers        int64                   `json:"total_users"`
	TotalTickets      int64                   `json:"total_tickets"`
	TicketsOpen       int64                   `json:"tickets_open"`
	TicketsInProgress int64                   `json:"tickets_in_progress"`
	TicketsByPriority []PriorityCountResponse `json:"tickets_by_priority"`
	RecentTickets     []TicketResponse        `json:"recent_tickets"`
}

// SupportDashboardResponse is returned to support staff.
type SupportDashboardResponse struct {
	Role                   domain.Role      `json:"role"`
	AssignedTicketsCount   int64            `json:"assigned_tickets_count"`
	ResolvedTicketsToday   int64            `json:"resolved_tickets_today"`
	ResolvedTicketsTotal   int64            `json:"resolved_tickets_total"`
	UnassignedTicketsCount int64            `json:"unassigned_tickets_count"`
	UrgentAssignedTickets  []TicketResponse `json:"urgent_assigned_tickets"`
	MyAssignedTickets      []TicketResponse `json:"my_assigned_tickets"`
}

// UserDashboardResponse is returned to end users.
type UserDashboardResponse struct {
	Role            domain.Role      `json:"role"`
	MyOpenTickets   int64            `json:"my_open_tickets"`
	MyClosedTickets int64            `json:"my_closed_tickets"`
	RecentTickets   []TicketResponse `json:"recent_tickets"`
}

// NewDashboardResponse picks the role-specific shape. It returns nil when stats carries none.
func NewDashboardResponse(stats *domain.DashboardStats) any {
	switch {
	case stats.Admin != nil:
		s := stats.Admin
		byPriority := make([]PriorityCountResponse, 0, len(s.TicketsByPriority))
		for _, pc := range s.TicketsByPriority {
			byPriority = append(byPriority, PriorityCountResponse{Priority: pc.Priority, Total: pc.Total})
		}
		return AdminDashboardResponse{
			Role:              stats.Role,
			TotalUsers:        s.TotalUsers,
			TotalTickets:      s.TotalTickets,
			TicketsOpen:       s.TicketsOpen,
			TicketsInProgress: s.TicketsInProgress,
			TicketsByPriority: byPriority,
			RecentTickets:     NewTicketList(s.RecentTickets),
		}
	case stats.Support != nil:
		s := stats.Support
		return SupportDashboardResponse{
			Role:                   stats.Role,
			AssignedTicketsCount:   s.AssignedTicketsCount,
			ResolvedTicketsToday:   s.ResolvedTicketsToday,
			ResolvedTicketsTotal:   s.ResolvedTicketsTotal,
			UnassignedTicketsCount: s.UnassignedTicketsCount,
			UrgentAssignedTickets:  NewTicketList(s.UrgentAssignedTickets),
			MyAssignedTickets:      NewTicketList(s.MyAssignedTickets),
		}
	case stats.User != nil:
		s := stats.User
		return UserDashboardResponse{
			Role:            stats.Role,
			MyOpenTickets:   s.MyOpenTickets,
			MyClosedTickets: s.MyClosedTickets,
			RecentTickets:   NewTicketList(s.RecentTickets),
		}
	}
	return nil
}
