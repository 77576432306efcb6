package mail

import (
	"fmt"
	"html"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketCreated confirms a new ticket to its creator.
func TicketCreated(to, title string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Ticket Created: %s", title),
		HTML: fmt.Sprintf(`<h1>Ticket Created</h1><p>Your ticket "%s" has been received. Our support team will get back to you shortly.</p>`,
			html.EscapeString(title)),
		Text: fmt.Sprintf("Your ticket %q has been received. Our support team will get back to you shortly.", title),
	}
}

// TicketStatusUpdated tells the creator about a status change.
func TicketStatusUpdated(to, title string, status domain.TicketStatus) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Ticket Status Updated: %s", title),
		HTML: fmt.Sprintf(`<h1>Status Updated</h1><p>Your ticket "%s" status has been updated to: <strong>%s</strong></p>`,
			html.EscapeString(title), html.EscapeString(string(status))),
		Text: fmt.Sprintf("Your ticket %q status has been updated to: %s", title, status),
	}
}

// TicketAssigned tells a support agent a ticket was routed to them.
func TicketAssigned(to, title string) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Ticket Assigned: %s", title),
		HTML: fmt.Sprintf(`<h1>Ticket Assigned</h1><p>The ticket "%s" has been assigned to you.</p>`,
			html.EscapeString(title)),
		Text: fmt.Sprintf("The ticket %q has been assigned to you.", title),
	}
}
