package services

import (
	"context"
	"strings"

	"github.com/baharkarakas/market-backend/internal/models"
	repo "github.com/baharkarakas/market-backend/internal/repository"
)

// StaffChecker answers whether a user holds a staff role.
type StaffChecker interface {
	IsStaff(ctx context.Context, userID int64) (bool, error)
}

type SupportService struct {
	repo  repo.Support
	staff StaffChecker
	audit *Auditor
}

func NewSupportService(r repo.Support, staff StaffChecker, a *Auditor) *SupportService {
	return &SupportService{repo: r, staff: staff, audit: a}
}

func (s *SupportService) ListTickets(ctx context.Context, userID int64, f models.TicketFilter) ([]models.Ticket, error) {
	staff, err := s.staff.IsStaff(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !staff {
		f.UserID = &userID
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 100
	}
	return s.repo.ListTickets(ctx, f)
}

// access loads a ticket visible to the caller and reports whether the caller is staff.
func (s *SupportService) access(ctx context.Context, userID, ticketID int64) (models.Ticket, bool, error) {
	t, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return models.Ticket{}, false, notFound(err, "Ticket not found")
	}
	staff, err := s.staff.IsStaff(ctx, userID)
	if err != nil {
		return models.Ticket{}, false, err
	}
	if t.UserID != userID && !staff {
		return models.Ticket{}, false, Fail(ErrForbidden, "Access denied")
	}
	return t, staff, nil
}

// GetTicket returns the ticket with its thread. Internal notes are shown to staff only.
func (s *SupportService) GetTicket(ctx context.Context, userID, ticketID int64) (models.Ticket, error) {
	t, staff, err := s.access(ctx, userID, ticketID)
	if err != nil {
		return models.Ticket{}, err
	}
	msgs, err := s.repo.ListMessages(ctx, ticketID, staff)
	if err != nil {
		return models.Ticket{}, err
	}
	t.Messages = msgs
	t.MessagesCount = len(msgs)
	return t, nil
}

func (s *SupportService) CreateTicket(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	if t.UserID == 0 {
		return models.Ticket{}, Fail(ErrUnauthorized, "Authentication required")
	}
	t.Subject = strings.TrimSpace(t.Subject)
	t.Description = strings.TrimSpace(t.Description)
	if t.Subject == "" || t.Description == "" {
		return models.Ticket{}, Fail(ErrBadRequest, "subject and description are required")
	}
	if t.Category == "" {
		t.Category = "other"
	}
	if t.Priority == "" {
		t.Priority = "medium"
	}
	if !models.ValidPriority(t.Priority) {
		return models.Ticket{}, Failf(ErrBadRequest, "unknown priority %q", t.Priority)
	}
	t.Status = models.TicketOpen

	created, err := s.repo.CreateTicket(ctx, t)
	if err != nil {
		return models.Ticket{}, err
	}
	s.audit.Record("ticket", created.ID, t.UserID, "created", map[string]any{"category": t.Category})
	return created, nil
}

func (s *SupportService) AddMessage(ctx context.Context, m models.TicketMessage) (models.TicketMessage, error) {
	if m.UserID == 0 {
		return models.TicketMessage{}, Fail(ErrUnauthorized, "Authentication required")
	}
	m.Message = strings.TrimSpace(m.Message)
	if m.TicketID == 0 || m.Message == "" {
		return models.TicketMessage{}, Fail(ErrBadRequest, "ticket_id and message are required")
	}
	_, staff, err := s.access(ctx, m.UserID, m.TicketID)
	if err != nil {
		return models.TicketMessage{}, err
	}
	if m.IsInternal && !staff {
		return models.TicketMessage{}, Fail(ErrForbidden, "Only staff can post internal notes")
	}
	return s.repo.AddMessage(ctx, m)
}

func (s *SupportService) UpdateTicket(ctx context.Context, userID, ticketID int64, u models.TicketUpdate) (models.Ticket, error) {
	if ticketID == 0 {
		return models.Ticket{}, Fail(ErrBadRequest, "ticket_id is required")
	}
	if u.Empty() {
		return models.Ticket{}, Fail(ErrBadRequest, "No fields to update")
	}
	if u.Status != nil && !u.Status.Valid() {
		return models.Ticket{}, Failf(ErrBadRequest, "unknown status %q", *u.Status)
	}
	if u.Priority != nil && !models.ValidPriority(*u.Priority) {
		return models.Ticket{}, Failf(ErrBadRequest, "unknown priority %q", *u.Priority)
	}
	_, staff, err := s.access(ctx, userID, ticketID)
	if err != nil {
		return models.Ticket{}, err
	}
	if u.AssignedTo != nil && !staff {
		return models.Ticket{}, Fail(ErrForbidden, "Only staff can assign tickets")
	}
	t, err := s.repo.UpdateTicket(ctx, ticketID, u)
	if err != nil {
		return models.Ticket{}, notFound(err, "Ticket not found")
	}
	s.audit.Record("ticket", ticketID, userID, "updated", nil)
	return t, nil
}
