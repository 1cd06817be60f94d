package domain

import "time"

// NotificationKind names the event a notification is about.
type NotificationKind string

const (
	NotificationTicketCreated NotificationKind = "ticket_created"
	NotificationStatusChanged NotificationKind = "ticket_status_changed"
	NotificationCommentAdded  NotificationKind = "comment_added"
	NotificationTicketDeleted NotificationKind = "ticket_deleted"
)

// Notification is a message addressed to one recipient. Delivery is best effort.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Recipient string           `json:"recipient"`
	Subject   string           `json:"subject"`
	Body      string           `json:"body"`
	TicketID  string           `json:"ticket_id"`
	CreatedAt time.Time        `json:"created_at"`
}
