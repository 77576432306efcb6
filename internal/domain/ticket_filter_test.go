package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVisibilityWindowAdmits(t *testing.T) {
	dayStart := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	window := &VisibilityWindow{ClosedFrom: dayStart, ClosedTo: dayStart.Add(24 * time.Hour)}

	tests := []struct {
		name   string
		ticket Ticket
		want   bool
	}{
		{"active status always admitted", Ticket{Status: TicketStatusPending, UpdatedAt: dayStart.Add(-72 * time.Hour)}, true},
		{"closed today", Ticket{Status: TicketStatusClosed, UpdatedAt: dayStart.Add(3 * time.Hour)}, true},
		{"closed at midnight", Ticket{Status: TicketStatusClosed, UpdatedAt: dayStart}, true},
		{"closed yesterday", Ticket{Status: TicketStatusClosed, UpdatedAt: dayStart.Add(-time.Second)}, false},
		{"unknown status", Ticket{Status: "weird", UpdatedAt: dayStart.Add(time.Hour)}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, window.Admits(&tc.ticket))
		})
	}

	var none *VisibilityWindow
	assert.True(t, none.Admits(&Ticket{Status: TicketStatusClosed}))
}

func TestTicketFilterMatches(t *testing.T) {
	owner := "u-1"
	support := "s-1"
	ticket := &Ticket{UserID: owner, AssignedTo: &support, Status: TicketStatusOpen, Priority: TicketPriorityHigh}

	assert.True(t, TicketFilter{}.Matches(ticket))
	assert.True(t, TicketFilter{OwnerID: &owner}.Matches(ticket))
	other := "u-2"
	assert.False(t, TicketFilter{OwnerID: &other}.Matches(ticket))
	assert.True(t, TicketFilter{AssigneeID: &support}.Matches(ticket))
	assert.False(t, TicketFilter{Unassigned: true}.Matches(ticket))
	assert.True(t, TicketFilter{Statuses: []TicketStatus{TicketStatusOpen, TicketStatusInProgress}}.Matches(ticket))
	assert.False(t, TicketFilter{Priorities: []TicketPriority{TicketPriorityLow}}.Matches(ticket))
}
