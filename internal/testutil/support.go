package testutil

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/baharkarakas/market-backend/internal/models"
	repo "github.com/baharkarakas/market-backend/internal/repository"
)

type supportMem Store

func (m *supportMem) s() *Store { return (*Store)(m) }

// ticketView returns a copy with messages_count filled in; caller holds the lock.
func (s *Store) ticketView(t *models.Ticket) models.Ticket {
	v := *t
	v.MessagesCount = 0
	for _, msg := range s.ticketMsgs {
		if msg.TicketID == t.ID {
			v.MessagesCount++
		}
	}
	return v
}

func (m *supportMem) CreateTicket(_ context.Context, t models.Ticket) (models.Ticket, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Ticket{}, err
	}
	defer s.unlock()
	t.ID = s.next()
	t.CreatedAt, t.UpdatedAt = time.Now(), time.Now()
	s.tickets[t.ID] = &t
	s.ticketMsgs = append(s.ticketMsgs, models.TicketMessage{
		ID: s.next(), TicketID: t.ID, UserID: t.UserID, Message: t.Description, Attachments: []string{}, CreatedAt: time.Now(),
	})
	return s.ticketView(&t), nil
}

func (m *supportMem) GetTicket(_ context.Context, id int64) (models.Ticket, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Ticket{}, err
	}
	defer s.unlock()
	t, ok := s.tickets[id]
	if !ok {
		return models.Ticket{}, repo.ErrNotFound
	}
	return s.ticketView(t), nil
}

func (m *supportMem) ListTickets(_ context.Context, f models.TicketFilter) ([]models.Ticket, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.Ticket{}
	for _, t := range s.tickets {
		if (f.UserID != nil && t.UserID != *f.UserID) || (f.Status != "" && string(t.Status) != f.Status) ||
			(f.Category != "" && !strings.EqualFold(t.Category, f.Category)) {
			continue
		}
		out = append(out, s.ticketView(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, f.Limit, 0), nil
}

func (m *supportMem) UpdateTicket(_ context.Context, id int64, u models.TicketUpdate) (models.Ticket, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Ticket{}, err
	}
	defer s.unlock()
	t, ok := s.tickets[id]
	if !ok {
		return models.Ticket{}, repo.ErrNotFound
	}
	if u.Status != nil {
		t.Status = *u.Status
		if *u.Status == models.TicketResolved {
			now := time.Now()
			t.ResolvedAt = &now
		}
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.AssignedTo != nil {
		t.AssignedTo = u.AssignedTo
	}
	t.UpdatedAt = time.Now()
	return s.ticketView(t), nil
}

func (m *supportMem) AddMessage(_ context.Context, msg models.TicketMessage) (models.TicketMessage, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.TicketMessage{}, err
	}
	defer s.unlock()
	t, ok := s.tickets[msg.TicketID]
	if !ok {
		return models.TicketMessage{}, repo.ErrNotFound
	}
	if msg.Attachments == nil {
		msg.Attachments = []string{}
	}
	msg.ID, msg.CreatedAt = s.next(), time.Now()
	t.UpdatedAt = msg.CreatedAt
	s.ticketMsgs = append(s.ticketMsgs, msg)
	return msg, nil
}

func (m *supportMem) ListMessages(_ context.Context, ticketID int64, includeInternal bool) ([]models.TicketMessage, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.TicketMessage{}
	for _, msg := range s.ticketMsgs {
		if msg.TicketID == ticketID && (includeInternal || !msg.IsInternal) {
			out = append(out, msg)
		}
	}
	return out, nil
}

type filesMem Store

func (m *filesMem) Save(_ context.Context, f models.StoredFile) (models.StoredFile, error) {
	s := (*Store)(m)
	if err := s.lock(); err != nil {
		return models.StoredFile{}, err
	}
	defer s.unlock()
	if _, ok := s.files[f.URL]; ok {
		return models.StoredFile{}, repo.ErrConflict
	}
	f.ID, f.CreatedAt = s.next(), time.Now()
	s.files[f.URL] = f
	return f, nil
}

func (m *filesMem) GetByURL(_ context.Context, url string) (models.StoredFile, error) {
	s := (*Store)(m)
	if err := s.lock(); err != nil {
		return models.StoredFile{}, err
	}
	defer s.unlock()
	f, ok := s.files[url]
	if !ok {
		return models.StoredFile{}, repo.ErrNotFound
	}
	return f, nil
}

type newsletterMem Store

func (m *newsletterMem) Subscribe(_ context.Context, sub models.Subscription) (models.Subscription, error) {
	s := (*Store)(m)
	if err := s.lock(); err != nil {
		return models.Subscription{}, err
	}
	defer s.unlock()
	for _, ex := range s.subs {
		if ex.Email == sub.Email {
			return models.Subscription{}, repo.ErrConflict
		}
	}
	sub.ID, sub.IsActive, sub.SubscribedAt = s.next(), true, time.Now()
	s.subs = append(s.subs, sub)
	return sub, nil
}

func (m *newsletterMem) List(_ context.Context, activeOnly bool, limit, offset int) ([]models.Subscription, int, error) {
	s := (*Store)(m)
	if err := s.lock(); err != nil {
		return nil, 0, err
	}
	defer s.unlock()
	out := []models.Subscription{}
	for i := len(s.subs) - 1; i >= 0; i-- {
		if !activeOnly || s.subs[i].IsActive {
			out = append(out, s.subs[i])
		}
	}
	return page(out, limit, offset), len(out), nil
}
