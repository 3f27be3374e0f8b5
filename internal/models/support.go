package models

import "time"

type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketWaiting    TicketStatus = "waiting"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketWaiting, TicketResolved, TicketClosed:
		return true
	}
	return false
}

var ticketPriorities = map[string]bool{"low": true, "medium": true, "high": true, "urgent": true}

func ValidPriority(p string) bool { return ticketPriorities[p] }

type Ticket struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	Subject       string          `json:"subject"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Priority      string          `json:"priority"`
	Status        TicketStatus    `json:"status"`
	RelatedType   *string         `json:"related_type"`
	RelatedID     *int64          `json:"related_id"`
	AssignedTo    *int64          `json:"assigned_to"`
	ResolvedAt    *time.Time      `json:"resolved_at"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	MessagesCount int             `json:"messages_count"`
	Messages      []TicketMessage `json:"messages,omitempty"`
}

type TicketMessage struct {
	ID          int64     `json:"id"`
	TicketID    int64     `json:"ticket_id"`
	UserID      int64     `json:"user_id"`
	Message     string    `json:"message"`
	Attachments []string  `json:"attachments"`
	IsInternal  bool      `json:"is_internal"`
	CreatedAt   time.Time `json:"created_at"`
}

type TicketFilter struct {
	UserID   *int64
	Status   string
	Category string
	Limit    int
}

type TicketUpdate struct {
	Status     *TicketStatus `json:"status"`
	Priority   *string       `json:"priority"`
	AssignedTo *int64        `json:"assigned_to"`
}

func (u TicketUpdate) Empty() bool { return u.Status == nil && u.Priority == nil && u.AssignedTo == nil }
