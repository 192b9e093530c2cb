package ticket

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/domain/user"
	"github.com/google/uuid"
)

// Accounts resolves the display name of logged-in submitters.
type Accounts interface {
	Get(ctx context.Context, userID string) (*user.User, error)
}

// ContactInput is the contact form. Name and Email are ignored for logged-in
// users; their account details are used instead.
type ContactInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

type Service struct {
	repo     Repository
	accounts Accounts
	now      func() time.Time
	newID    func() string
}

func NewService(repo Repository, accounts Accounts) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
}

// Open files a new ticket from the contact form. Guests may submit too.
func (s *Service) Open(ctx context.Context, actor auth.Principal, in ContactInput) (*Ticket, error) {
	name, email := strings.TrimSpace(in.Name), strings.TrimSpace(in.Email)
	if actor.Authenticated() {
		u, err := s.accounts.Get(ctx, actor.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load account: %w", err)
		}
		name, email = displayName(u), u.Email
	}
	subject, message := strings.TrimSpace(in.Subject), strings.TrimSpace(in.Message)
	if name == "" || email == "" || subject == "" || message == "" {
		return nil, ErrMissingFields
	}
	if !user.IsValidEmail(strings.ToLower(email)) {
		return nil, apperr.Validation("invalid email %q", email)
	}
	priority, err := ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	now := s.now()
	t := &Ticket{
		ID:        s.newID(),
		UserID:    actor.ID,
		Name:      name,
		Email:     email,
		Subject:   subject,
		Message:   message,
		Status:    StatusOpen,
		Priority:  priority,
		Replies:   []Reply{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateTicket(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to save ticket: %w", err)
	}
	log.Printf("[Ticket] Opened ticket %s (%s priority)", t.ID, t.Priority)
	return t, nil
}

// Get returns a ticket to its owner or an admin.
func (s *Service) Get(ctx context.Context, actor auth.Principal, ticketID string) (*Ticket, error) {
	if !actor.Authenticated() {
		return nil, ErrLoginRequired
	}
	t, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(t.UserID) {
		return nil, ErrNotTicketOwner
	}
	return t, nil
}

// Mine lists the actor's own tickets, newest first.
func (s *Service) Mine(ctx context.Context, actor auth.Principal) ([]*Ticket, error) {
	if !actor.Authenticated() {
		return nil, ErrLoginRequired
	}
	return s.repo.ListTickets(ctx, Query{UserID: actor.ID})
}

// List is the admin queue. An empty rawStatus lists every ticket.
func (s *Service) List(ctx context.Context, actor auth.Principal, rawStatus string) ([]*Ticket, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var q Query
	if strings.TrimSpace(rawStatus) != "" {
		status, err := ParseStatus(rawStatus)
		if err != nil {
			return nil, err
		}
		q.Status = status
	}
	return s.repo.ListTickets(ctx, q)
}

// SetStatus moves a ticket to any status. Admin only.
func (s *Service) SetStatus(ctx context.Context, actor auth.Principal, ticketID, rawStatus string) (*Ticket, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	status, err := ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	t, err := s.repo.UpdateTicket(ctx, ticketID, Change{Status: status, UpdatedAt: s.now()})
	if err != nil {
		return nil, err
	}
	log.Printf("[Ticket] Admin %s set ticket %s to %s", actor.ID, ticketID, status)
	return t, nil
}

// SetPriority changes the priority. Admin only.
func (s *Service) SetPriority(ctx context.Context, actor auth.Principal, ticketID, rawPriority string) (*Ticket, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(rawPriority) == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPriority, rawPriority)
	}
	priority, err := ParsePriority(rawPriority)
	if err != nil {
		return nil, err
	}
	return s.repo.UpdateTicket(ctx, ticketID, Change{Priority: priority, UpdatedAt: s.now()})
}

// Reply appends a message from the owner or an admin. Closed tickets accept
// no further replies.
func (s *Service) Reply(ctx context.Context, actor auth.Principal, ticketID, message string) (*Ticket, error) {
	t, err := s.Get(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if t.Status == StatusClosed {
		return nil, ErrTicketClosed
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyReply
	}
	u, err := s.accounts.Get(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	now := s.now()
	return s.repo.UpdateTicket(ctx, ticketID, Change{
		Reply: &Reply{
			ID:        s.newID(),
			UserID:    actor.ID,
			UserName:  displayName(u),
			UserRole:  actor.Role,
			Message:   message,
			CreatedAt: now,
		},
		UpdatedAt: now,
	})
}

func requireAdmin(actor auth.Principal) error {
	if !actor.Authenticated() {
		return ErrLoginRequired
	}
	if !actor.IsAdmin() {
		return ErrAdminOnly
	}
	return nil
}

func displayName(u *user.User) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
