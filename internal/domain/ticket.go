package domain

// TicketStatus is the lifecycle position of a support ticket.
type TicketStatus string

const (
	TicketUnresolved TicketStatus = "Unresolved"
	TicketInProgress TicketStatus = "In Progress"
	TicketResolved   TicketStatus = "Resolved"
)

// Ticket is one support request. Response is set only by the Resolved transition.
type Ticket struct {
	ID          int64        `db:"id"`
	UserID      int64        `db:"user_id"`
	Username    *string      `db:"username"`
	Problem     string       `db:"problem"`
	Description string       `db:"description"`
	Status      TicketStatus `db:"status"`
	Response    *string      `db:"response"`
}

// Open reports whether the admin can still act on the ticket.
func (t Ticket) Open() bool {
	return t.Status == TicketUnresolved || t.Status == TicketInProgress
}
