package lifecycle

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/policy"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

var (
	admin   = policy.Actor{ID: "a", Role: domain.RoleAdmin}
	support = policy.Actor{ID: "s", Role: domain.RoleSupport}
	user    = policy.Actor{ID: "u", Role: domain.RoleUser}
)

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }

func priorityPtr(p domain.TicketPriority) *domain.TicketPriority { return &p }

func ticketIn(status domain.TicketStatus) *domain.Ticket {
	return &domain.Ticket{ID: "t", UserID: "u", Status: status, Priority: domain.TicketPriorityMedium}
}

func TestResolvePriority(t *testing.T) {
	p, err := ResolvePriority("")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityMedium, p)

	p, err = ResolvePriority(" high ")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityHigh, p)

	_, err = ResolvePriority("urgent")
	assert.True(t, apperrors.IsStatus(err, http.StatusUnprocessableEntity))
}

func TestPlan_OpenTicket(t *testing.T) {
	for _, actor := range []policy.Actor{admin, support} {
		for _, target := range domain.TicketStatuses {
			tr, err := Plan(actor, ticketIn(domain.TicketStatusOpen), Changes{Status: statusPtr(target)})
			require.NoError(t, err, "%s -> %s", actor.Role, target)
			assert.Equal(t, target, tr.ToStatus)
			assert.Equal(t, target != domain.TicketStatusOpen, tr.StatusChanged())
		}
	}
}

func TestPlan_PriorityOnly(t *testing.T) {
	tr, err := Plan(support, ticketIn(domain.TicketStatusInProgress), Changes{Priority: priorityPtr(domain.TicketPriorityHigh)})
	require.NoError(t, err)
	assert.False(t, tr.StatusChanged())
	assert.True(t, tr.PriorityChanged())

	ticket := ticketIn(domain.TicketStatusInProgress)
	tr.Apply(ticket)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
}

func TestPlan_UserCannotModify(t *testing.T) {
	_, err := Plan(user, ticketIn(domain.TicketStatusOpen), Changes{Status: statusPtr(domain.TicketStatusResolved)})
	assert.True(t, apperrors.IsStatus(err, http.StatusForbidden))
}

func TestPlan_InvalidValues(t *testing.T) {
	_, err := Plan(admin, ticketIn(domain.TicketStatusOpen), Changes{Status: statusPtr("invalid_status")})
	assert.True(t, apperrors.IsStatus(err, http.StatusUnprocessableEntity))

	_, err = Plan(admin, ticketIn(domain.TicketStatusOpen), Changes{Priority: priorityPtr("urgent")})
	assert.True(t, apperrors.IsStatus(err, http.StatusUnprocessableEntity))
}

func TestPlan_PermissionCheckedBeforeValues(t *testing.T) {
	_, err := Plan(user, ticketIn(domain.TicketStatusOpen), Changes{Status: statusPtr("bogus")})
	assert.True(t, apperrors.IsStatus(err, http.StatusForbidden))

	_, err = Plan(support, ticketIn(domain.TicketStatusClosed), Changes{Priority: priorityPtr("urgent")})
	assert.True(t, apperrors.IsStatus(err, http.StatusForbidden))
}

func TestPlan_ClosedTicket(t *testing.T) {
	tests := []struct {
		name       string
		actor      policy.Actor
		changes    Changes
		wantStatus int
	}{
		{"admin reopens to open", admin, Changes{Status: statusPtr(domain.TicketStatusOpen)}, 0},
		{"admin reopens to in_progress", admin, Changes{Status: statusPtr(domain.TicketStatusInProgress)}, 0},
		{"admin reopen with unchanged priority", admin, Changes{Status: statusPtr(domain.TicketStatusOpen), Priority: priorityPtr(domain.TicketPriorityMedium)}, 0},
		{"admin to pending rejected", admin, Changes{Status: statusPtr(domain.TicketStatusPending)}, http.StatusUnprocessableEntity},
		{"admin to resolved rejected", admin, Changes{Status: statusPtr(domain.TicketStatusResolved)}, http.StatusUnprocessableEntity},
		{"admin priority change rejected", admin, Changes{Priority: priorityPtr(domain.TicketPriorityLow)}, http.StatusUnprocessableEntity},
		{"admin reopen plus priority rejected", admin, Changes{Status: statusPtr(domain.TicketStatusOpen), Priority: priorityPtr(domain.TicketPriorityHigh)}, http.StatusUnprocessableEntity},
		{"admin empty update rejected", admin, Changes{}, http.StatusUnprocessableEntity},
		{"support reopen forbidden", support, Changes{Status: statusPtr(domain.TicketStatusOpen)}, http.StatusForbidden},
		{"user reopen forbidden", user, Changes{Status: statusPtr(domain.TicketStatusOpen)}, http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ticket := ticketIn(domain.TicketStatusClosed)
			tr, err := Plan(tc.actor, ticket, tc.changes)
			if tc.wantStatus == 0 {
				require.NoError(t, err)
				assert.True(t, tr.StatusChanged())
			} else {
				assert.True(t, apperrors.IsStatus(err, tc.wantStatus), "got %v", err)
			}
			assert.Equal(t, domain.TicketStatusClosed, ticket.Status)
		})
	}
}
