package api

import (
	"context"
	"net/http"

	"github.com/example/ec-storefront/internal/api/respond"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/domain/ticket"
	"github.com/go-chi/chi/v5"
)

// TicketHandlers serves the contact form and the support ticket threads.
type TicketHandlers struct {
	tickets *ticket.Service
}

func NewTicketHandlers(tickets *ticket.Service) *TicketHandlers {
	return &TicketHandlers{tickets: tickets}
}

func ticketIDParam(r *http.Request) string {
	return chi.URLParam(r, "ticketId")
}

// Contact files a ticket. Guests and logged-in users may both submit.
func (h *TicketHandlers) Contact(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r)
	if err != nil {
		respond.Error(w, r, err, "/contact")
		return
	}
	t, err := h.tickets.Open(r.Context(), principal(r), ticket.ContactInput{
		Name:     f.String("name"),
		Email:    f.String("email"),
		Subject:  f.String("subject"),
		Message:  f.String("message"),
		Priority: f.String("priority"),
	})
	if err != nil {
		respond.Error(w, r, err, "/contact")
		return
	}
	next := "/contact"
	if t.UserID != "" {
		next = "/tickets/" + t.ID
	}
	respond.Done(w, r, http.StatusCreated, t, next, "Your message has been sent. We'll get back to you soon.")
}

func (h *TicketHandlers) MyTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.tickets.Mine(r.Context(), principal(r))
	if err != nil {
		respond.Error(w, r, err, "/")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"tickets": tickets})
}

func (h *TicketHandlers) GetTicket(w http.ResponseWriter, r *http.Request) {
	t, err := h.tickets.Get(r.Context(), principal(r), ticketIDParam(r))
	if err != nil {
		respond.Error(w, r, err, "/my-tickets")
		return
	}
	respond.JSON(w, http.StatusOK, t)
}

// AdminTickets serves GET /admin/tickets?status=
func (h *TicketHandlers) AdminTickets(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "all" {
		status = ""
	}
	tickets, err := h.tickets.List(r.Context(), principal(r), status)
	if err != nil {
		respond.Error(w, r, err, "/admin/tickets")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"tickets": tickets, "status": status})
}

func (h *TicketHandlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, "status", "Ticket status updated", h.tickets.SetStatus)
}

func (h *TicketHandlers) UpdatePriority(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, "priority", "Ticket priority updated", h.tickets.SetPriority)
}

func (h *TicketHandlers) Reply(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, "message", "Reply added", h.tickets.Reply)
}

type ticketAction func(ctx context.Context, actor auth.Principal, ticketID, value string) (*ticket.Ticket, error)

// update reads one form field and hands it to apply.
func (h *TicketHandlers) update(w http.ResponseWriter, r *http.Request, field, message string, apply ticketAction) {
	ticketID := ticketIDParam(r)
	back := "/tickets/" + ticketID

	f, err := parseForm(r)
	if err != nil {
		respond.Error(w, r, err, back)
		return
	}
	t, err := apply(r.Context(), principal(r), ticketID, f.String(field))
	if err != nil {
		respond.Error(w, r, err, back)
		return
	}
	respond.Done(w, r, http.StatusOK, t, back, message)
}
