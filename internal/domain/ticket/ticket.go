// Package ticket is the customer support desk: contact form submissions,
// their triage by admins, and the reply thread between the two.
package ticket

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/apperr"
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

var Statuses = []Status{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

var (
	ErrTicketNotFound  = apperr.NotFound("ticket not found")
	ErrUnknownStatus   = apperr.Validation("invalid ticket status")
	ErrUnknownPriority = apperr.Validation("invalid ticket priority")
	ErrMissingFields   = apperr.Validation("all fields are required")
	ErrEmptyReply      = apperr.Validation("reply message is required")
	ErrTicketClosed    = apperr.InvalidState("cannot reply to a closed ticket")
	ErrNotTicketOwner  = apperr.Forbidden("you can only view your own tickets")
	ErrAdminOnly       = apperr.Forbidden("admin role required")
	ErrLoginRequired   = apperr.New(apperr.ErrUnauthenticated, "please log in to continue")
)

// ParseStatus accepts the canonical values and the spaced "in progress"
// spelling found in older data.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_"))
	for _, known := range Statuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

// ParsePriority accepts one of Priorities. Blank input means medium.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(raw)))
	if p == "" {
		return PriorityMedium, nil
	}
	for _, known := range Priorities {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPriority, raw)
}

// Reply is one message in a ticket thread.
type Reply struct {
	ID        string    `json:"replyId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	UserRole  string    `json:"userRole"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Ticket is a support request. UserID is empty for guest submissions.
type Ticket struct {
	ID        string    `json:"ticketId"`
	UserID    string    `json:"userId,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Status    Status    `json:"status"`
	Priority  Priority  `json:"priority"`
	Replies   []Reply   `json:"replies"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a copy that shares no slices with t.
func (t *Ticket) Clone() *Ticket {
	c := *t
	c.Replies = append([]Reply{}, t.Replies...)
	return &c
}

// Query selects tickets. Zero values mean "no constraint".
type Query struct {
	UserID string
	Status Status
}

func (q Query) Matches(t *Ticket) bool {
	if q.UserID != "" && t.UserID != q.UserID {
		return false
	}
	return q.Status == "" || t.Status == q.Status
}

// Change is applied atomically by UpdateTicket. Empty fields are left alone;
// a non-nil Reply is appended to the thread.
type Change struct {
	Status    Status
	Priority  Priority
	Reply     *Reply
	UpdatedAt time.Time
}

// Apply mutates t in place.
func (c Change) Apply(t *Ticket) {
	if c.Status != "" {
		t.Status = c.Status
	}
	if c.Priority != "" {
		t.Priority = c.Priority
	}
	if c.Reply != nil {
		t.Replies = append(t.Replies, *c.Reply)
	}
	t.UpdatedAt = c.UpdatedAt
}

// Repository persists tickets. Lookups and updates return ErrTicketNotFound
// for unknown ids.
type Repository interface {
	CreateTicket(ctx context.Context, t *Ticket) error
	GetTicket(ctx context.Context, ticketID string) (*Ticket, error)
	// ListTickets returns matches newest first.
	ListTickets(ctx context.Context, q Query) ([]*Ticket, error)
	UpdateTicket(ctx context.Context, ticketID string, change Change) (*Ticket, error)
}

// SortNewestFirst orders by createdAt descending, then ticketId descending.
func SortNewestFirst(tickets []*Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		if !tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
		}
		return tickets[i].ID > tickets[j].ID
	})
}
