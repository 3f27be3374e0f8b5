package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/baharkarakas/market-backend/internal/metrics"
	"github.com/baharkarakas/market-backend/internal/models"
	repo "github.com/baharkarakas/market-backend/internal/repository"
	"github.com/baharkarakas/market-backend/internal/worker"
)

const (
	msgDealCreated   = "Deal created. Proposal accepted."
	msgDealCompleted = "Deal completed. Payment released to the freelancer."
	msgDealCancelled = "Deal cancelled. Payment refunded to the client."
	problemPrefix    = "User reported a problem: "
)

// ExchangeService drives the freelance exchange lifecycle:
// order -> proposal -> accepted deal with escrow -> messages -> completion -> review.
type ExchangeService struct {
	repo  repo.Exchange
	wp    *worker.Pool
	audit *Auditor
}

func NewExchangeService(r repo.Exchange, wp *worker.Pool, a *Auditor) *ExchangeService {
	return &ExchangeService{repo: r, wp: wp, audit: a}
}

// ---------- services ----------

func (s *ExchangeService) CreateService(ctx context.Context, svc models.Service) (models.Service, error) {
	svc.Title = strings.TrimSpace(svc.Title)
	if svc.Title == "" {
		return models.Service{}, Fail(ErrBadRequest, "title is required")
	}
	if svc.Price < 0 {
		return models.Service{}, Fail(ErrBadRequest, "price must be >= 0")
	}
	if svc.Category == "" {
		svc.Category = "other"
	}
	return s.repo.CreateService(ctx, svc)
}

func (s *ExchangeService) ListServices(ctx context.Context, f models.ServiceFilter) ([]models.Service, error) {
	f.Limit = clampLimit(f.Limit)
	return s.repo.ListServices(ctx, f)
}

// ---------- orders ----------

func validateBudget(min, max *float64) error {
	if (min != nil && *min < 0) || (max != nil && *max < 0) {
		return Fail(ErrBadRequest, "budget must be >= 0")
	}
	if min != nil && max != nil && *min > *max {
		return Fail(ErrBadRequest, "budget_min must not exceed budget_max")
	}
	return nil
}

func (s *ExchangeService) CreateOrder(ctx context.Context, o models.Order) (models.Order, error) {
	o.Title = strings.TrimSpace(o.Title)
	if o.Title == "" {
		return models.Order{}, Fail(ErrBadRequest, "title is required")
	}
	if err := validateBudget(o.BudgetMin, o.BudgetMax); err != nil {
		return models.Order{}, err
	}
	if o.MaxProposals != nil && *o.MaxProposals < 1 {
		return models.Order{}, Fail(ErrBadRequest, "max_proposals must be >= 1")
	}
	rating, err := s.repo.UserRating(ctx, o.ClientID)
	if err != nil {
		return models.Order{}, notFound(err, "User not found")
	}
	o.ClientRating = rating
	o.Status = models.OrderOpen

	created, err := s.repo.CreateOrder(ctx, o)
	if err != nil {
		return models.Order{}, err
	}
	s.audit.Record("order", created.ID, o.ClientID, "created", nil)
	slog.Info("order created", "order_id", created.ID, "client_id", created.ClientID)
	return created, nil
}

func (s *ExchangeService) ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, error) {
	if f.Status == "" {
		f.Status = models.OrderOpen
	}
	if !f.Status.Valid() {
		return nil, Fail(ErrBadRequest, "unknown status")
	}
	f.Limit = clampLimit(f.Limit)
	return s.repo.ListOrders(ctx, f)
}

// GetOrder returns an order and records the view in the background.
func (s *ExchangeService) GetOrder(ctx context.Context, id int64, viewerID *int64, ip string) (models.Order, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return models.Order{}, notFound(err, "Order not found")
	}
	if s.wp != nil {
		s.wp.Submit("order_view", func(ctx context.Context) error {
			return s.repo.RecordOrderView(ctx, id, viewerID, ip)
		})
	}
	return o, nil
}

// ownedOrder locks and loads an order its client may still edit.
func (s *ExchangeService) ownedOrder(ctx context.Context, tx repo.Exchange, userID, orderID int64) (models.Order, error) {
	if orderID == 0 {
		return models.Order{}, Fail(ErrBadRequest, "order_id is required")
	}
	if err := tx.LockOrder(ctx, orderID); err != nil {
		return models.Order{}, notFound(err, "Order not found")
	}
	o, err := tx.GetOrder(ctx, orderID)
	if err != nil {
		return models.Order{}, notFound(err, "Order not found")
	}
	if userID == 0 {
		return models.Order{}, Fail(ErrUnauthorized, "Authentication required")
	}
	if o.ClientID != userID {
		return models.Order{}, Fail(ErrForbidden, "Only the order owner can modify it")
	}
	if !o.Status.Editable() {
		return models.Order{}, Failf(ErrInvalidState, "Cannot modify order with status %s", o.Status)
	}
	return o, nil
}

func (s *ExchangeService) UpdateOrder(ctx context.Context, userID, orderID int64, u models.OrderUpdate) (models.Order, error) {
	var updated models.Order
	err := s.repo.WithTx(ctx, func(tx repo.Exchange) error {
		o, err := s.ownedOrder(ctx, tx, userID, orderID)
		if err != nil {
			return err
		}
		if u.Empty() {
			return Fail(ErrBadRequest, "No fields to update")
		}
		if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
			return Fail(ErrBadRequest, "title must not be empty")
		}
		min, max := o.BudgetMin, o.BudgetMax
		if u.BudgetMin != nil {
			min = u.BudgetMin
		}
		if u.BudgetMax != nil {
			max = u.BudgetMax
		}
		if err := validateBudget(min, max); err != nil {
			return err
		}
		if u.Status != nil && *u.Status != o.Status {
			// Progress and completion belong to the deal; clients only close or reopen.
			manual := *u.Status == models.OrderCancelled || *u.Status == models.OrderOpen
			if !manual || !o.Status.CanTransition(*u.Status) {
				return transition("order", string(o.Status), string(*u.Status))
			}
		}
		updated, err = tx.UpdateOrder(ctx, orderID, u)
		return notFound(err, "Order not found")
	})
	if err != nil {
		return models.Order{}, err
	}
	s.audit.Record("order", orderID, userID, "updated", nil)
	return updated, nil
}

func (s *ExchangeService) CancelOrder(ctx context.Context, userID, orderID int64) (models.Order, error) {
	var o models.Order
	err := s.repo.WithTx(ctx, func(tx repo.Exchange) error {
		var err error
		if o, err = s.ownedOrder(ctx, tx, userID, orderID); err != nil {
			return err
		}
		if !o.Status.CanTransition(models.OrderCancelled) {
			return transition("order", string(o.Status), string(models.OrderCancelled))
		}
		if err := tx.SetOrderStatus(ctx, orderID, models.OrderCancelled); err != nil {
			return notFound(err, "Order not found")
		}
		o.Status = models.OrderCancelled
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}
	s.audit.Record("order", orderID, userID, "cancelled", nil)
	return o, nil
}

// ---------- proposals ----------

func (s *ExchangeService) SubmitProposal(ctx context.Context, p models.Proposal) (models.Proposal, error) {
	if p.OrderID == 0 {
		return models.Proposal{}, Fail(ErrBadRequest, "order_id is required")
	}
	if p.Price <= 0 {
		return models.Proposal{}, Fail(ErrBadRequest, "price must be > 0")
	}
	if p.DeliveryTimeDays != nil && *p.DeliveryTimeDays < 1 {
		return models.Proposal{}, Fail(ErrBadRequest, "delivery_time_days must be >= 1")
	}
	if p.Currency == "" {
		p.Currency = "RUB"
	}
	p.Status = models.ProposalPending

	var out models.Proposal
	err := s.repo.WithTx(ctx, func(tx repo.Exchange) error {
		if err := tx.LockOrder(ctx, p.OrderID); err != nil {
			return notFound(err, "Order not found")
		}
		o, err := tx.GetOrder(ctx, p.OrderID)
		if err != nil {
			return notFound(err, "Order not found")
		}
		if o.Status != models.OrderOpen {
			return Fail(ErrInvalidState, "Order is not accepting proposals")
		}
		if o.ClientID == p.FreelancerID {
			return Fail(ErrBadRequest, "You cannot submit a proposal to your own order")
		}
		if o.MaxProposals != nil {
			n, err := tx.CountActiveProposals(ctx, p.OrderID)
			if err != nil {
				return err
			}
			if n >= *o.MaxProposals {
				return Fail(ErrBadRequest, "Maximum number of proposals reached")
			}
		}
		dup, err := tx.HasActiveProposal(ctx, p.OrderID, p.FreelancerID)
		if err != nil {
			return err
		}
		if dup {
			return Fail(ErrBadRequest, "You have already submitted a proposal")
		}
		out, err = tx.CreateProposal(ctx, p)
		if errors.Is(err, repo.ErrConflict) {
			return Fail(ErrBadRequest, "You have already submitted a proposal")
		}
		return err
	})
	if err != nil {
		return models.Proposal{}, err
	}
	metrics.ProposalsTotal.WithLabelValues("submitted").Inc()
	s.audit.Record("proposal", out.ID, p.FreelancerID, "submitted", map[string]any{"order_id": p.OrderID})
	return out, nil
}

func (s *ExchangeService) OrderProposals(ctx context.Context, orderID int64) ([]models.Proposal, error) {
	return s.repo.ListOrderProposals(ctx, orderID)
}

func (s *ExchangeService) FreelancerProposals(ctx context.Context, freelancerID int64) ([]models.Proposal, error) {
	return s.repo.ListFreelancerProposals(ctx, freelancerID)
}

// WithdrawProposal locks the proposal's order so it cannot race an accept.
func (s *ExchangeService) WithdrawProposal(ctx context.Context, userID, proposalID int64) (models.Proposal, error) {
	var p models.Proposal
	err := s.repo.WithTx(ctx, func(tx repo.Exchange) error {
		found, err := tx.GetProposal(ctx, proposalID)
		if err != nil {
			return notFound(err, "Proposal not found")
		}
		if err := tx.LockOrder(ctx, found.OrderID); err != nil {
			return notFound(err, "Order not found")
		}
		if p, err = tx.GetProposal(ctx, proposalID); err != nil {
			return notFound(err, "Proposal not found")
		}
		if p.FreelancerID != userID {
			return Fail(ErrForbidden, "Only the author can withdraw a proposal")
		}
		if !p.Status.CanTransition(models.ProposalWithdrawn) {
			return transition("proposal", string(p.Status), string(models.ProposalWithdrawn))
		}
		if err := tx.SetProposalStatus(ctx, p.ID, models.ProposalWithdrawn); err != nil {
			return notFound(err, "Proposal not found")
		}
		p.Status = models.ProposalWithdrawn
		return nil
	})
	if err != nil {
		return models.Proposal{}, err
	}
	metrics.ProposalsTotal.WithLabelValues("withdrawn").Inc()
	s.audit.Record("proposal", p.ID, userID, "withdrawn", nil)
	return p, nil
}

// AcceptProposal turns a pending proposal into a deal with the price held in escrow.
func (s *ExchangeService) AcceptProposal(ctx context.Context, userID, orderID, proposalID int64) (models.Deal, error) {
	if userID == 0 {
		return models.Deal{}, Fail(ErrUnauthorized, "Authentication required")
	}
	if orderID == 0 || proposalID == 0 {
		return models.Deal{}, Fail(ErrBadRequest, "proposal_id and order_id are required")
	}

	var deal models.Deal
	err := s.repo.WithTx(ctx, func(tx repo.Exchange) error {
		if err := tx.LockOrder(ctx, orderID); err != nil {
			return notFound(err, "Order not found")
		}
		o, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return notFound(err, "Order not found")
		}
		if o.ClientID != userID {
			return Fail(ErrForbidden, "Only the order owner can accept proposals")
		}
		if o.Status != models.OrderOpen {
			return Fail(ErrInvalidState, "Order is not open")
		}
		p, err := tx.GetProposal(ctx, proposalID)
		if err != nil || p.OrderID != orderID {
			if err == nil || errors.Is(err, repo.ErrNotFound) {
				return Fail(ErrNotFound, "Proposal not found")
			}
			return err
		}
		if !p.Status.CanTransition(models.ProposalAccepted) {
			return transition("proposal", string(p.Status), string(models.ProposalAccepted))
		}

		deal, err = tx.CreateDeal(ctx, models.Deal{
			OrderID:      o.ID,
			ProposalID:   p.ID,
			ClientID:     o.ClientID,
			FreelancerID: p.FreelancerID,
			Amount:       p.Price,
			Currency:     p.Currency,
			Status:       models.DealInProgress,
			EscrowStatus: models.EscrowHolding,
		})
		if err != nil {
			return err
		}
		if _, err := tx.RecordTransaction(ctx, models.Transaction{
			UserID: o.ClientID, DealID: &deal.ID, Type: models.TxnEscrowHold, Amount: deal.Amount, Currency: deal.Currency,
		}); err != nil {
			return err
		}
		if err := tx.SetProposalStatus(ctx, p.ID, models.ProposalAccepted); err != nil {
			return err
		}
		if _, err := tx.RejectPending(ctx, o.ID, p.ID); err != nil {
			return err
		}
		if err := tx.SetOrderStatus(ctx, o.ID, models.OrderInProgress); err != nil {
			return err
		}
		_, err = tx.AddDealMessage(ctx, models.DealMessage{DealID: deal.ID, Message: msgDealCreated, IsSystem: true})
		return err
	})
	if err != nil {
		return models.Deal{}, err
	}
	metrics.DealsTotal.WithLabelValues("created").Inc()
	s.audit.Record("deal", deal.ID, userID, "created", map[string]any{"order_id": orderID, "proposal_id": proposalID, "amount": deal.Amount})
	slog.Info("deal created", "deal_id", deal.ID, "order_id", orderID, "amount", deal.Amount)
	return deal, nil
}

// ---------- deals ----------

// participantDeal loads a deal the caller takes part in. With lock set the
// deal row stays locked until r's transaction ends.
func (s *ExchangeService) participantDeal(ctx context.Context, r repo.Exchange, userID, dealID int64, lock bool) (models.Deal, error) {
	if userID == 0 {
		return models.Deal{}, Fail(ErrUnauthorized, "Authentication required")
	}
	if dealID == 0 {
		return models.Deal{}, Fail(ErrBadRequest, "deal_id is required")
	}
	if lock {
		if err := r.LockDeal(ctx, dealID); err != nil {
			return models.Deal{}, notFound(err, "Deal not found")
		}
	}
	d, err := r.GetDeal(ctx, dealID)
	if err != nil {
		return models.Deal{}, notFound(err, "Deal not found")
	}
	if !d.IsParticipant(userID) {
		return models.Deal{}, Fail(ErrForbidden, "Access denied")
	}
	return d, nil
}

func (s *ExchangeService) GetDeal(ctx context.Context, userID, dealID int64) (models.Deal, error) {
	return s.participantDeal(ctx, s.repo, userID, dealID, false)
}

func (s *ExchangeService) ListDeals(ctx context.Context, userID int64) ([]models.Deal, error) {
	return s.repo.ListDeals(ctx, userID)
}

// settlement describes how a deal closes and where the escrowed money goes.
type settlement struct {
	deal    models.DealStatus
	escrow  models.EscrowStatus
	order   models.OrderStatus
	txn     models.TransactionType
	message string
	event   string
}

var (
	completeDeal = settlement{models.DealCompleted, models.EscrowReleased, models.OrderCompleted, models.TxnEscrowRelease, msgDealCompleted, "completed"}
	cancelDeal   = settlement{models.DealCancelled, models.EscrowRefunded, models.OrderCancelled, models.TxnEscrowRefund, msgDealCancelled, "cancelled"}
)

// CompleteDeal releases the escrow to the freelancer. Only the client can confirm.
func (s *ExchangeService) CompleteDeal(ctx context.Context, userID, dealID int64) (models.Deal, error) {
	return s.settle(ctx, userID, dealID, completeDeal)
}

// CancelDeal refunds the escrow to the client.
func (s *ExchangeService) CancelDeal(ctx context.Context, userID, dealID int64) (models.Deal, error) {
	return s.settle(ctx, userID, dealID, cancelDeal)
}

func (s *ExchangeService) settle(ctx context.Context, userID, dealID int64, st settlement) (models.Deal, error) {
	var out models.Deal
	err := s.repo.WithTx(ctx, func(tx repo.Exchange) error {
		d, err := s.participantDeal(ctx, tx, userID, dealID, true)
		if err != nil {
			return err
		}
		if d.ClientID != userID {
			return Fail(ErrForbidden, "Only the client can settle a deal")
		}
		if !d.Status.CanTransition(st.deal) {
			return transition("deal", string(d.Status), string(st.deal))
		}
		if !d.EscrowStatus.CanTransition(st.escrow) {
			return transition("escrow", string(d.EscrowStatus), string(st.escrow))
		}

		payee := d.FreelancerID
		if st.txn == models.TxnEscrowRefund {
			payee = d.ClientID
		}
		if out, err = tx.SetDealStatus(ctx, d.ID, st.deal, st.escrow); err != nil {
			return err
		}
		if err := tx.CreditBalance(ctx, payee, d.Amount); err != nil {
			return err
		}
		if _, err := tx.RecordTransaction(ctx, models.Transaction{
			UserID: payee, DealID: &d.ID, Type: st.txn, Amount: d.Amount, Currency: d.Currency,
		}); err != nil {
			return err
		}
		if err := tx.SetOrderStatus(ctx, d.OrderID, st.order); err != nil {
			return err
		}
		_, err = tx.AddDealMessage(ctx, models.DealMessage{DealID: d.ID, Message: st.message, IsSystem: true})
		return err
	})
	if err != nil {
		return models.Deal{}, err
	}
	metrics.DealsTotal.WithLabelValues(st.event).Inc()
	s.audit.Record("deal", dealID, userID, st.event, map[string]any{"escrow": string(st.escrow)})
	slog.Info("deal settled", "deal_id", dealID, "status", out.Status, "escrow", out.EscrowStatus)
	return out, nil
}

// ---------- deal messages ----------

func (s *ExchangeService) DealMessages(ctx context.Context, userID, dealID int64) ([]models.DealMessage, error) {
	if _, err := s.participantDeal(ctx, s.repo, userID, dealID, false); err != nil {
		return nil, err
	}
	return s.repo.ListDealMessages(ctx, dealID)
}

// PostDealMessage stores a participant message. A problem report also
// posts a system notice and moves a running deal into dispute.
func (s *ExchangeService) PostDealMessage(ctx context.Context, m models.DealMessage) (models.DealMessage, error) {
	if m.SenderID == nil || *m.SenderID == 0 {
		return models.DealMessage{}, Fail(ErrUnauthorized, "Authentication required")
	}
	m.Message = strings.TrimSpace(m.Message)
	if m.DealID == 0 || m.Message == "" {
		return models.DealMessage{}, Fail(ErrBadRequest, "deal_id and message are required")
	}
	m.IsSystem = false

	var (
		out      models.DealMessage
		disputed bool
	)
	err := s.repo.WithTx(ctx, func(tx repo.Exchange) error {
		d, err := s.participantDeal(ctx, tx, *m.SenderID, m.DealID, m.IsProblem)
		if err != nil {
			return err
		}
		if m.IsProblem {
			if _, err := tx.AddDealMessage(ctx, models.DealMessage{
				DealID: d.ID, SenderID: m.SenderID, Message: problemPrefix + m.Message, IsSystem: true, IsProblem: true,
			}); err != nil {
				return err
			}
			if d.Status.CanTransition(models.DealDisputed) {
				if _, err := tx.SetDealStatus(ctx, d.ID, models.DealDisputed, d.EscrowStatus); err != nil {
					return err
				}
				disputed = true
			}
		}
		out, err = tx.AddDealMessage(ctx, m)
		return err
	})
	if err != nil {
		return models.DealMessage{}, err
	}
	if disputed {
		metrics.DealsTotal.WithLabelValues("disputed").Inc()
		s.audit.Record("deal", m.DealID, *m.SenderID, "disputed", nil)
		slog.Warn("deal disputed", "deal_id", m.DealID, "reporter", *m.SenderID)
	}
	return out, nil
}

// ---------- reviews ----------

func (s *ExchangeService) CreateReview(ctx context.Context, r models.Review) (models.Review, error) {
	if r.ReviewerID == 0 {
		return models.Review{}, Fail(ErrUnauthorized, "Authentication required")
	}
	if r.DealID == 0 || r.RevieweeID == 0 || r.Rating == 0 {
		return models.Review{}, Fail(ErrBadRequest, "deal_id, reviewee_id and rating are required")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return models.Review{}, Fail(ErrBadRequest, "rating must be between 1 and 5")
	}

	var out models.Review
	err := s.repo.WithTx(ctx, func(tx repo.Exchange) error {
		d, err := tx.GetDeal(ctx, r.DealID)
		if err != nil {
			return notFound(err, "Deal not found")
		}
		if d.Status != models.DealCompleted {
			return Fail(ErrInvalidState, "Can only review completed deals")
		}
		if !d.IsParticipant(r.ReviewerID) {
			return Fail(ErrForbidden, "Access denied")
		}
		if d.Counterparty(r.ReviewerID) != r.RevieweeID {
			return Fail(ErrBadRequest, "You can only review the other party of the deal")
		}
		done, err := tx.HasReview(ctx, d.ID, r.ReviewerID)
		if err != nil {
			return err
		}
		if done {
			return Fail(ErrBadRequest, "Review already submitted")
		}
		if out, err = tx.CreateReview(ctx, r); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return Fail(ErrBadRequest, "Review already submitted")
			}
			return err
		}
		_, err = tx.RecalculateUserRating(ctx, r.RevieweeID)
		return err
	})
	if err != nil {
		return models.Review{}, err
	}
	s.audit.Record("deal", r.DealID, r.ReviewerID, "reviewed", map[string]any{"reviewee_id": r.RevieweeID, "rating": r.Rating})
	return out, nil
}

func (s *ExchangeService) Reviews(ctx context.Context, freelancerID int64) ([]models.Review, error) {
	if freelancerID == 0 {
		return nil, Fail(ErrBadRequest, "freelancer_id is required")
	}
	return s.repo.ListReviews(ctx, freelancerID)
}

// ---------- portfolio & skills ----------

func (s *ExchangeService) Portfolio(ctx context.Context, freelancerID int64) ([]models.PortfolioItem, error) {
	if freelancerID == 0 {
		return nil, Fail(ErrBadRequest, "freelancer_id is required")
	}
	return s.repo.ListPortfolio(ctx, freelancerID)
}

func (s *ExchangeService) AddPortfolioItem(ctx context.Context, p models.PortfolioItem) (models.PortfolioItem, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return models.PortfolioItem{}, Fail(ErrBadRequest, "title is required")
	}
	return s.repo.AddPortfolioItem(ctx, p)
}

func (s *ExchangeService) Skills(ctx context.Context, freelancerID int64) ([]models.Skill, error) {
	if freelancerID == 0 {
		return nil, Fail(ErrBadRequest, "freelancer_id is required")
	}
	return s.repo.ListSkills(ctx, freelancerID)
}

var skillLevels = map[string]bool{"beginner": true, "intermediate": true, "expert": true}

func (s *ExchangeService) ReplaceSkills(ctx context.Context, freelancerID int64, skills []models.Skill) ([]models.Skill, error) {
	clean := make([]models.Skill, 0, len(skills))
	for _, sk := range skills {
		sk.Name = strings.TrimSpace(sk.Name)
		if sk.Name == "" {
			return nil, Fail(ErrBadRequest, "skill_name is required")
		}
		if sk.Level == "" {
			sk.Level = "intermediate"
		}
		if !skillLevels[sk.Level] {
			return nil, Failf(ErrBadRequest, "unknown skill level %q", sk.Level)
		}
		sk.FreelancerID = freelancerID
		clean = append(clean, sk)
	}
	err := s.repo.WithTx(ctx, func(tx repo.Exchange) error {
		return tx.ReplaceSkills(ctx, freelancerID, clean)
	})
	if err != nil {
		return nil, err
	}
	return clean, nil
}
