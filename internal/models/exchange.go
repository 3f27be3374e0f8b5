package models

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderOpen       OrderStatus = "open"
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "pending"
	ProposalAccepted  ProposalStatus = "accepted"
	ProposalRejected  ProposalStatus = "rejected"
	ProposalWithdrawn ProposalStatus = "withdrawn"
)

type DealStatus string

const (
	DealInProgress DealStatus = "in_progress"
	DealCompleted  DealStatus = "completed"
	DealCancelled  DealStatus = "cancelled"
	DealDisputed   DealStatus = "disputed"
)

type EscrowStatus string

const (
	EscrowHolding  EscrowStatus = "holding"
	EscrowReleased EscrowStatus = "released"
	EscrowRefunded EscrowStatus = "refunded"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderOpen:       {OrderInProgress, OrderCancelled},
	OrderInProgress: {OrderCompleted, OrderCancelled},
	OrderCancelled:  {OrderOpen},
}

var proposalTransitions = map[ProposalStatus][]ProposalStatus{
	ProposalPending: {ProposalAccepted, ProposalRejected, ProposalWithdrawn},
}

var dealTransitions = map[DealStatus][]DealStatus{
	DealInProgress: {DealCompleted, DealCancelled, DealDisputed},
	DealDisputed:   {DealCompleted, DealCancelled},
}

var escrowTransitions = map[EscrowStatus][]EscrowStatus{
	EscrowHolding: {EscrowReleased, EscrowRefunded},
}

func allowed[S comparable](table map[S][]S, from, to S) bool {
	for _, s := range table[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s OrderStatus) CanTransition(to OrderStatus) bool { return allowed(orderTransitions, s, to) }
func (s OrderStatus) Valid() bool {
	return s == OrderOpen || s == OrderInProgress || s == OrderCompleted || s == OrderCancelled
}

// Editable reports whether the client may still change the order.
func (s OrderStatus) Editable() bool { return s == OrderOpen || s == OrderCancelled }

func (s ProposalStatus) CanTransition(to ProposalStatus) bool {
	return allowed(proposalTransitions, s, to)
}

func (s DealStatus) CanTransition(to DealStatus) bool { return allowed(dealTransitions, s, to) }

// Open reports whether the deal still holds its order.
func (s DealStatus) Open() bool { return s == DealInProgress || s == DealDisputed }

func (s EscrowStatus) CanTransition(to EscrowStatus) bool { return allowed(escrowTransitions, s, to) }

// TransitionError describes a rejected state change.
type TransitionError struct {
	Entity   string
	From, To string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

type Service struct {
	ID           int64     `json:"id"`
	FreelancerID int64     `json:"freelancer_id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description"`
	Category     string    `json:"category"`
	Price        float64   `json:"price"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

type ServiceFilter struct {
	FreelancerID *int64
	Category     string
	Limit        int
}

type Order struct {
	ID             int64       `json:"id"`
	ClientID       int64       `json:"client_id"`
	Title          string      `json:"title"`
	Description    *string     `json:"description"`
	Category       *string     `json:"category"`
	BudgetMin      *float64    `json:"budget_min"`
	BudgetMax      *float64    `json:"budget_max"`
	Deadline       *time.Time  `json:"deadline"`
	RequiredSkills []string    `json:"required_skills"`
	MaxProposals   *int        `json:"max_proposals"`
	ClientRating   float64     `json:"client_rating"`
	CoverImageURL  *string     `json:"cover_image_url"`
	Attachments    []string    `json:"attachments"`
	Status         OrderStatus `json:"status"`
	ProposalsCount int         `json:"proposals_count"`
	ViewsCount     int         `json:"views_count"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// OrderUpdate is a partial edit of an order. Nil fields stay untouched.
type OrderUpdate struct {
	Title          *string      `json:"title"`
	Description    *string      `json:"description"`
	Category       *string      `json:"category"`
	BudgetMin      *float64     `json:"budget_min"`
	BudgetMax      *float64     `json:"budget_max"`
	Deadline       *time.Time   `json:"deadline"`
	RequiredSkills *[]string    `json:"required_skills"`
	CoverImageURL  *string      `json:"cover_image_url"`
	Attachments    *[]string    `json:"attachments"`
	Status         *OrderStatus `json:"status"`
}

func (u OrderUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Category == nil && u.BudgetMin == nil &&
		u.BudgetMax == nil && u.Deadline == nil && u.RequiredSkills == nil && u.CoverImageURL == nil &&
		u.Attachments == nil && u.Status == nil
}

type OrderFilter struct {
	Status   OrderStatus
	Category string
	ClientID *int64
	Limit    int
}

type Proposal struct {
	ID               int64          `json:"id"`
	OrderID          int64          `json:"order_id"`
	FreelancerID     int64          `json:"freelancer_id"`
	Price            float64        `json:"price"`
	Currency         string         `json:"currency"`
	Message          *string        `json:"message"`
	DeliveryTimeDays *int           `json:"delivery_time_days"`
	Status           ProposalStatus `json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`

	FreelancerName   string   `json:"freelancer_name,omitempty"`
	FreelancerEmail  string   `json:"freelancer_email,omitempty"`
	FreelancerAvatar *string  `json:"freelancer_avatar,omitempty"`
	FreelancerRating *float64 `json:"freelancer_rating,omitempty"`
	CompletedDeals   int      `json:"completed_deals"`
}

type Deal struct {
	ID           int64        `json:"id"`
	OrderID      int64        `json:"order_id"`
	ProposalID   int64        `json:"proposal_id"`
	ClientID     int64        `json:"client_id"`
	FreelancerID int64        `json:"freelancer_id"`
	Amount       float64      `json:"amount"`
	Currency     string       `json:"currency"`
	Status       DealStatus   `json:"status"`
	EscrowStatus EscrowStatus `json:"escrow_status"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	CompletedAt  *time.Time   `json:"completed_at"`
}

func (d Deal) IsParticipant(userID int64) bool {
	return userID == d.ClientID || userID == d.FreelancerID
}

// Counterparty returns the other side of the deal for a participant.
func (d Deal) Counterparty(userID int64) int64 {
	if userID == d.ClientID {
		return d.FreelancerID
	}
	return d.ClientID
}

type DealMessage struct {
	ID          int64     `json:"id"`
	DealID      int64     `json:"deal_id"`
	SenderID    *int64    `json:"sender_id"`
	Message     string    `json:"message"`
	Attachments []string  `json:"attachments"`
	IsSystem    bool      `json:"is_system"`
	IsProblem   bool      `json:"is_problem"`
	CreatedAt   time.Time `json:"created_at"`
}

type Review struct {
	ID           int64     `json:"id"`
	DealID       int64     `json:"deal_id"`
	ReviewerID   int64     `json:"reviewer_id"`
	RevieweeID   int64     `json:"reviewee_id"`
	Rating       int       `json:"rating"`
	Comment      *string   `json:"comment"`
	ReviewerName string    `json:"reviewer_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type PortfolioItem struct {
	ID           int64     `json:"id"`
	FreelancerID int64     `json:"freelancer_id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description"`
	ImageURL     *string   `json:"image_url"`
	ProjectURL   *string   `json:"project_url"`
	CreatedAt    time.Time `json:"created_at"`
}

type Skill struct {
	FreelancerID int64  `json:"freelancer_id"`
	Name         string `json:"skill_name"`
	Level        string `json:"level"`
}
