package testutil

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/baharkarakas/market-backend/internal/models"
	repo "github.com/baharkarakas/market-backend/internal/repository"
)

type exchangeMem Store

func (m *exchangeMem) s() *Store { return (*Store)(m) }

// exchangeSnapshot captures the state a failed transaction must roll back.
type exchangeSnapshot struct {
	orders       map[int64]models.Order
	proposals    map[int64]models.Proposal
	deals        map[int64]models.Deal
	balances     map[int64]float64
	ratings      map[int64]float64
	dealMessages []models.DealMessage
	transactions []models.Transaction
	reviews      []models.Review
	skills       map[int64][]models.Skill
}

func (s *Store) snapshotExchange() exchangeSnapshot {
	snap := exchangeSnapshot{
		orders:       map[int64]models.Order{},
		proposals:    map[int64]models.Proposal{},
		deals:        map[int64]models.Deal{},
		balances:     map[int64]float64{},
		ratings:      map[int64]float64{},
		dealMessages: append([]models.DealMessage(nil), s.dealMessages...),
		transactions: append([]models.Transaction(nil), s.transactions...),
		reviews:      append([]models.Review(nil), s.reviews...),
		skills:       map[int64][]models.Skill{},
	}
	for id, o := range s.orders {
		snap.orders[id] = *o
	}
	for id, p := range s.proposals {
		snap.proposals[id] = *p
	}
	for id, d := range s.deals {
		snap.deals[id] = *d
	}
	for id, u := range s.users {
		snap.balances[id], snap.ratings[id] = u.Balance, u.Rating
	}
	for id, sk := range s.skills {
		snap.skills[id] = sk
	}
	return snap
}

func (s *Store) restoreExchange(snap exchangeSnapshot) {
	s.orders, s.proposals, s.deals = map[int64]*models.Order{}, map[int64]*models.Proposal{}, map[int64]*models.Deal{}
	for id, o := range snap.orders {
		o := o
		s.orders[id] = &o
	}
	for id, p := range snap.proposals {
		p := p
		s.proposals[id] = &p
	}
	for id, d := range snap.deals {
		d := d
		s.deals[id] = &d
	}
	for id, u := range s.users {
		u.Balance, u.Rating = snap.balances[id], snap.ratings[id]
	}
	s.dealMessages, s.transactions, s.reviews, s.skills = snap.dealMessages, snap.transactions, snap.reviews, snap.skills
}

// WithTx runs one transaction at a time and rolls the exchange tables back
// when fn fails.
func (m *exchangeMem) WithTx(_ context.Context, fn func(repo.Exchange) error) error {
	s := m.s()
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := s.lock(); err != nil {
		return err
	}
	snap := s.snapshotExchange()
	s.unlock()

	if err := fn(m); err != nil {
		s.mu.Lock()
		s.restoreExchange(snap)
		s.mu.Unlock()
		return err
	}
	return nil
}

// LockOrder only checks existence; WithTx already serializes writers.
func (m *exchangeMem) LockOrder(_ context.Context, id int64) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	if _, ok := s.orders[id]; !ok {
		return repo.ErrNotFound
	}
	return nil
}

func (m *exchangeMem) LockDeal(_ context.Context, id int64) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	if _, ok := s.deals[id]; !ok {
		return repo.ErrNotFound
	}
	return nil
}

func (m *exchangeMem) CreateService(_ context.Context, svc models.Service) (models.Service, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Service{}, err
	}
	defer s.unlock()
	svc.ID, svc.IsActive, svc.CreatedAt = s.next(), true, time.Now()
	s.services = append(s.services, svc)
	return svc, nil
}

func (m *exchangeMem) ListServices(_ context.Context, f models.ServiceFilter) ([]models.Service, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.Service{}
	for i := len(s.services) - 1; i >= 0; i-- {
		svc := s.services[i]
		if !svc.IsActive || (f.FreelancerID != nil && svc.FreelancerID != *f.FreelancerID) ||
			(f.Category != "" && svc.Category != f.Category) {
			continue
		}
		out = append(out, svc)
	}
	return page(out, f.Limit, 0), nil
}

func (s *Store) orderView(o *models.Order) models.Order {
	out := *o
	out.ProposalsCount = 0
	for _, p := range s.proposals {
		if p.OrderID == o.ID && p.Status != models.ProposalWithdrawn {
			out.ProposalsCount++
		}
	}
	out.ViewsCount = 0
	prefix := fmt.Sprintf("%d:", o.ID)
	for k := range s.orderViews {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			out.ViewsCount++
		}
	}
	return out
}

func (m *exchangeMem) CreateOrder(_ context.Context, o models.Order) (models.Order, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Order{}, err
	}
	defer s.unlock()
	if o.RequiredSkills == nil {
		o.RequiredSkills = []string{}
	}
	if o.Attachments == nil {
		o.Attachments = []string{}
	}
	o.ID = s.next()
	o.CreatedAt, o.UpdatedAt = time.Now(), time.Now()
	s.orders[o.ID] = &o
	return s.orderView(&o), nil
}

func (m *exchangeMem) GetOrder(_ context.Context, id int64) (models.Order, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Order{}, err
	}
	defer s.unlock()
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, repo.ErrNotFound
	}
	return s.orderView(o), nil
}

func (m *exchangeMem) ListOrders(_ context.Context, f models.OrderFilter) ([]models.Order, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.Order{}
	for _, o := range s.orders {
		if (f.Status != "" && o.Status != f.Status) || (f.ClientID != nil && o.ClientID != *f.ClientID) ||
			(f.Category != "" && (o.Category == nil || *o.Category != f.Category)) {
			continue
		}
		out = append(out, s.orderView(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, f.Limit, 0), nil
}

func (m *exchangeMem) UpdateOrder(_ context.Context, id int64, u models.OrderUpdate) (models.Order, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Order{}, err
	}
	defer s.unlock()
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, repo.ErrNotFound
	}
	if u.Title != nil {
		o.Title = *u.Title
	}
	if u.Description != nil {
		o.Description = u.Description
	}
	if u.Category != nil {
		o.Category = u.Category
	}
	if u.BudgetMin != nil {
		o.BudgetMin = u.BudgetMin
	}
	if u.BudgetMax != nil {
		o.BudgetMax = u.BudgetMax
	}
	if u.Deadline != nil {
		o.Deadline = u.Deadline
	}
	if u.RequiredSkills != nil {
		o.RequiredSkills = *u.RequiredSkills
	}
	if u.CoverImageURL != nil {
		o.CoverImageURL = u.CoverImageURL
	}
	if u.Attachments != nil {
		o.Attachments = *u.Attachments
	}
	if u.Status != nil {
		o.Status = *u.Status
	}
	o.UpdatedAt = time.Now()
	return s.orderView(o), nil
}

func (m *exchangeMem) SetOrderStatus(_ context.Context, id int64, status models.OrderStatus) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	o, ok := s.orders[id]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status, o.UpdatedAt = status, time.Now()
	return nil
}

func (m *exchangeMem) RecordOrderView(_ context.Context, orderID int64, userID *int64, ip string) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	var uid int64
	if userID != nil {
		uid = *userID
	}
	s.orderViews[fmt.Sprintf("%d:%d:%s", orderID, uid, ip)] = true
	return nil
}

func (m *exchangeMem) UserRating(_ context.Context, userID int64) (float64, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return 0, err
	}
	defer s.unlock()
	u, ok := s.users[userID]
	if !ok {
		return 0, repo.ErrNotFound
	}
	return u.Rating, nil
}

func (m *exchangeMem) CountActiveProposals(_ context.Context, orderID int64) (int, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return 0, err
	}
	defer s.unlock()
	n := 0
	for _, p := range s.proposals {
		if p.OrderID == orderID && p.Status != models.ProposalWithdrawn {
			n++
		}
	}
	return n, nil
}

func (m *exchangeMem) HasActiveProposal(_ context.Context, orderID, freelancerID int64) (bool, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.unlock()
	for _, p := range s.proposals {
		if p.OrderID == orderID && p.FreelancerID == freelancerID && p.Status != models.ProposalWithdrawn {
			return true, nil
		}
	}
	return false, nil
}

func (m *exchangeMem) CreateProposal(_ context.Context, p models.Proposal) (models.Proposal, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Proposal{}, err
	}
	defer s.unlock()
	p.ID = s.next()
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	s.proposals[p.ID] = &p
	return p, nil
}

func (m *exchangeMem) GetProposal(_ context.Context, id int64) (models.Proposal, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Proposal{}, err
	}
	defer s.unlock()
	p, ok := s.proposals[id]
	if !ok {
		return models.Proposal{}, repo.ErrNotFound
	}
	return *p, nil
}

func (s *Store) proposalView(p *models.Proposal) models.Proposal {
	out := *p
	if u, ok := s.users[p.FreelancerID]; ok {
		rating := u.Rating
		out.FreelancerName, out.FreelancerEmail, out.FreelancerAvatar, out.FreelancerRating = u.FullName, u.Email, u.AvatarURL, &rating
	}
	for _, d := range s.deals {
		if d.FreelancerID == p.FreelancerID && d.Status == models.DealCompleted {
			out.CompletedDeals++
		}
	}
	return out
}

func (m *exchangeMem) ListOrderProposals(_ context.Context, orderID int64) ([]models.Proposal, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.Proposal{}
	for _, p := range s.proposals {
		if p.OrderID == orderID && p.Status != models.ProposalWithdrawn {
			out = append(out, s.proposalView(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *exchangeMem) ListFreelancerProposals(_ context.Context, freelancerID int64) ([]models.Proposal, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.Proposal{}
	for _, p := range s.proposals {
		if p.FreelancerID == freelancerID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *exchangeMem) SetProposalStatus(_ context.Context, id int64, status models.ProposalStatus) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	p, ok := s.proposals[id]
	if !ok {
		return repo.ErrNotFound
	}
	p.Status, p.UpdatedAt = status, time.Now()
	return nil
}

func (m *exchangeMem) RejectPending(_ context.Context, orderID, keepID int64) (int64, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return 0, err
	}
	defer s.unlock()
	var n int64
	for _, p := range s.proposals {
		if p.OrderID == orderID && p.ID != keepID && p.Status == models.ProposalPending {
			p.Status = models.ProposalRejected
			n++
		}
	}
	return n, nil
}

func (m *exchangeMem) CreateDeal(_ context.Context, d models.Deal) (models.Deal, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Deal{}, err
	}
	defer s.unlock()
	for _, ex := range s.deals {
		if ex.ProposalID == d.ProposalID || (ex.OrderID == d.OrderID && ex.Status.Open()) {
			return models.Deal{}, repo.ErrConflict
		}
	}
	d.ID = s.next()
	d.CreatedAt, d.UpdatedAt = time.Now(), time.Now()
	s.deals[d.ID] = &d
	return d, nil
}

func (m *exchangeMem) GetDeal(_ context.Context, id int64) (models.Deal, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Deal{}, err
	}
	defer s.unlock()
	d, ok := s.deals[id]
	if !ok {
		return models.Deal{}, repo.ErrNotFound
	}
	return *d, nil
}

func (m *exchangeMem) ListDeals(_ context.Context, userID int64) ([]models.Deal, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.Deal{}
	for _, d := range s.deals {
		if d.IsParticipant(userID) {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *exchangeMem) SetDealStatus(_ context.Context, id int64, status models.DealStatus, escrow models.EscrowStatus) (models.Deal, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Deal{}, err
	}
	defer s.unlock()
	d, ok := s.deals[id]
	if !ok {
		return models.Deal{}, repo.ErrNotFound
	}
	now := time.Now()
	d.Status, d.EscrowStatus, d.UpdatedAt = status, escrow, now
	if status == models.DealCompleted {
		d.CompletedAt = &now
	}
	return *d, nil
}

func (m *exchangeMem) RecordTransaction(_ context.Context, t models.Transaction) (models.Transaction, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Transaction{}, err
	}
	defer s.unlock()
	t.ID, t.CreatedAt = s.next(), time.Now()
	s.transactions = append(s.transactions, t)
	return t, nil
}

func (m *exchangeMem) CreditBalance(_ context.Context, userID int64, amount float64) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	u, ok := s.users[userID]
	if !ok {
		return repo.ErrNotFound
	}
	u.Balance += amount
	return nil
}

func (m *exchangeMem) AddDealMessage(_ context.Context, msg models.DealMessage) (models.DealMessage, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.DealMessage{}, err
	}
	defer s.unlock()
	if msg.Attachments == nil {
		msg.Attachments = []string{}
	}
	msg.ID, msg.CreatedAt = s.next(), time.Now()
	s.dealMessages = append(s.dealMessages, msg)
	return msg, nil
}

func (m *exchangeMem) ListDealMessages(_ context.Context, dealID int64) ([]models.DealMessage, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.DealMessage{}
	for _, msg := range s.dealMessages {
		if msg.DealID == dealID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *exchangeMem) HasReview(_ context.Context, dealID, reviewerID int64) (bool, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.unlock()
	for _, r := range s.reviews {
		if r.DealID == dealID && r.ReviewerID == reviewerID {
			return true, nil
		}
	}
	return false, nil
}

func (m *exchangeMem) CreateReview(_ context.Context, r models.Review) (models.Review, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Review{}, err
	}
	defer s.unlock()
	r.ID, r.CreatedAt = s.next(), time.Now()
	s.reviews = append(s.reviews, r)
	return r, nil
}

func (m *exchangeMem) RecalculateUserRating(_ context.Context, userID int64) (float64, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return 0, err
	}
	defer s.unlock()
	var sum, n float64
	for _, r := range s.reviews {
		if r.RevieweeID == userID {
			sum += float64(r.Rating)
			n++
		}
	}
	avg := 0.0
	if n > 0 {
		avg = math.Round(sum/n*100) / 100
	}
	if u, ok := s.users[userID]; ok {
		u.Rating = avg
	}
	return avg, nil
}

func (m *exchangeMem) ListReviews(_ context.Context, revieweeID int64) ([]models.Review, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.Review{}
	for i := len(s.reviews) - 1; i >= 0; i-- {
		r := s.reviews[i]
		if r.RevieweeID == revieweeID {
			if u, ok := s.users[r.ReviewerID]; ok {
				r.ReviewerName = u.FullName
			}
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *exchangeMem) ListPortfolio(_ context.Context, freelancerID int64) ([]models.PortfolioItem, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.PortfolioItem{}
	for i := len(s.portfolio) - 1; i >= 0; i-- {
		if s.portfolio[i].FreelancerID == freelancerID {
			out = append(out, s.portfolio[i])
		}
	}
	return out, nil
}

func (m *exchangeMem) AddPortfolioItem(_ context.Context, p models.PortfolioItem) (models.PortfolioItem, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.PortfolioItem{}, err
	}
	defer s.unlock()
	p.ID, p.CreatedAt = s.next(), time.Now()
	s.portfolio = append(s.portfolio, p)
	return p, nil
}

func (m *exchangeMem) ListSkills(_ context.Context, freelancerID int64) ([]models.Skill, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := append([]models.Skill{}, s.skills[freelancerID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *exchangeMem) ReplaceSkills(_ context.Context, freelancerID int64, skills []models.Skill) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	s.skills[freelancerID] = append([]models.Skill(nil), skills...)
	return nil
}
