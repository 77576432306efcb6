package domain

import "time"

// Comment is an append-only note on a ticket thread.
type Comment struct {
	ID        string
	TicketID  string
	UserID    string
	Content   string
	CreatedAt time.Time

	// Author is populated by list reads.
	Author *UserSummary
}
