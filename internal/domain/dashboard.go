package domain

// PriorityCount is one row of the tickets-by-priority aggregate.
type PriorityCount struct {
	Priority TicketPriority
	Total    int64
}

// AdminStats is the admin dashboard.
type AdminStats struct {
	TotalUsers        int64
	TotalTickets      int64
	TicketsOpen       int64
	TicketsInProgress int64
	TicketsByPriority []PriorityCount
	RecentTickets     []Ticket
}

// SupportStats is the support dashboard, scoped to tickets assigned to the caller.
type SupportStats struct {
	AssignedTicketsCount   int64
	ResolvedTicketsToday   int64
	ResolvedTicketsTotal   int64
	UnassignedTicketsCount int64
	UrgentAssignedTickets  []Ticket
	MyAssignedTickets      []Ticket
}

// UserStats is the end-user dashboard, scoped to the caller's own tickets.
type UserStats struct {
	MyOpenTickets   int64
	MyClosedTickets int64
	RecentTickets   []Ticket
}

// DashboardStats carries exactly one of the role-specific dashboards.
type DashboardStats struct {
	Role    Role
	Admin   *AdminStats
	Support *SupportStats
	User    *UserStats
}
