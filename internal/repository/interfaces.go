package repository

import (
	"context"
	"errors"

	"github.com/baharkarakas/market-backend/internal/models"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("already exists")
	ErrUnavailable = errors.New("database unavailable")
)

type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
	// GetByLogin matches either the email (case insensitive) or the phone.
	GetByLogin(ctx context.Context, emailOrPhone string) (models.User, error)
	UpdateProfile(ctx context.Context, id int64, p models.ProfileUpdate) (models.User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	SetTwoFactor(ctx context.Context, id int64, secret *string, enabled bool) error
}

type Sessions interface {
	Create(ctx context.Context, s models.Session) (models.Session, error)
	GetByToken(ctx context.Context, tokenID string) (models.Session, error)
	// Verify marks a pending two-factor session as verified and extends its expiry.
	Verify(ctx context.Context, tokenID string, s models.Session) error
	Touch(ctx context.Context, tokenID string) error
	ListActive(ctx context.Context, userID int64) ([]models.Session, error)
	Delete(ctx context.Context, userID, id int64) error
	DeleteAllExcept(ctx context.Context, userID int64, keepTokenID string) error
}

type Roles interface {
	List(ctx context.Context) ([]models.Role, error)
	ListForUser(ctx context.Context, userID int64) ([]models.Role, error)
	Create(ctx context.Context, r models.Role) (models.Role, error)
	// Update and Delete touch non-system roles only; system roles report ErrNotFound.
	Update(ctx context.Context, id int64, u models.RoleUpdate) (models.Role, error)
	Delete(ctx context.Context, id int64) error
	// Assign reports created=false when the user already holds the role.
	Assign(ctx context.Context, ur models.UserRole) (created bool, err error)
	Unassign(ctx context.Context, userID, roleID int64) error
	HasAnyRole(ctx context.Context, userID int64, names ...string) (bool, error)

	ListPermissions(ctx context.Context) ([]models.Permission, error)
	ListRolePermissions(ctx context.Context, roleID int64) ([]models.Permission, error)
	ListUserPermissions(ctx context.Context, userID int64) ([]models.Permission, error)
	GrantToRole(ctx context.Context, roleID, permissionID int64) (created bool, err error)
	RevokeFromRole(ctx context.Context, roleID, permissionID int64) error
	ListOverrides(ctx context.Context, userID int64) ([]models.PermissionOverride, error)
	SetOverride(ctx context.Context, o models.PermissionOverride) (models.PermissionOverride, error)
	DeleteOverride(ctx context.Context, userID, permissionID int64) error
}

type Bots interface {
	Create(ctx context.Context, b models.Bot) (models.Bot, error)
	Get(ctx context.Context, id int64) (models.Bot, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Bot, error)
	AddNode(ctx context.Context, n models.BotNode) (models.BotNode, error)
	ListNodes(ctx context.Context, botID int64) ([]models.BotNode, error)
	AddConnection(ctx context.Context, c models.BotConnection) (models.BotConnection, error)
	ListConnections(ctx context.Context, botID int64) ([]models.BotConnection, error)
}

type Blocks interface {
	Create(ctx context.Context, b models.Block) (models.Block, error)
	ListByPage(ctx context.Context, pageID int64) ([]models.Block, error)
	Update(ctx context.Context, id int64, u models.BlockUpdate) (models.Block, error)
	Delete(ctx context.Context, id int64) error
}

type Marketplace interface {
	// WithTx runs fn against a repository bound to one database transaction.
	WithTx(ctx context.Context, fn func(Marketplace) error) error

	CreateItem(ctx context.Context, item models.MarketItem) (models.MarketItem, error)
	AddStock(ctx context.Context, itemID int64, stock []models.AutoDeliveryItem) error
	GetItem(ctx context.Context, id int64) (models.MarketItem, error)
	IncrementViews(ctx context.Context, id int64) error
	IncrementSales(ctx context.Context, id int64) error
	ListItems(ctx context.Context, f models.ItemFilter) ([]models.MarketItem, error)
	SetModeration(ctx context.Context, id int64, status string) (models.MarketItem, error)

	CreatePurchase(ctx context.Context, p models.Purchase) (models.Purchase, error)
	// ClaimStock locks and returns one undelivered row; ErrNotFound when stock is exhausted.
	ClaimStock(ctx context.Context, itemID int64) (models.AutoDeliveryItem, error)
	// PeekStock returns the first row without consuming it, for repeatable items.
	PeekStock(ctx context.Context, itemID int64) (models.AutoDeliveryItem, error)
	MarkStockDelivered(ctx context.Context, stockID, buyerID int64) error
	MarkDelivered(ctx context.Context, purchaseID int64, content, fileURL *string) (models.Purchase, error)
	ListPurchases(ctx context.Context, buyerID int64) ([]models.Purchase, error)
	Earnings(ctx context.Context, sellerID int64) (float64, error)

	AddReview(ctx context.Context, r models.ItemReview) (models.ItemReview, error)
	RecalculateItemRating(ctx context.Context, itemID int64) (float64, error)
	ListReviews(ctx context.Context, itemID int64) ([]models.ItemReview, error)
}

type Exchange interface {
	// WithTx runs fn against a repository bound to one database transaction.
	WithTx(ctx context.Context, fn func(Exchange) error) error
	// LockOrder and LockDeal hold a row lock until the surrounding transaction
	// ends. Reads made after them see the latest committed row.
	LockOrder(ctx context.Context, id int64) error
	LockDeal(ctx context.Context, id int64) error

	CreateService(ctx context.Context, s models.Service) (models.Service, error)
	ListServices(ctx context.Context, f models.ServiceFilter) ([]models.Service, error)

	CreateOrder(ctx context.Context, o models.Order) (models.Order, error)
	GetOrder(ctx context.Context, id int64) (models.Order, error)
	ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, error)
	UpdateOrder(ctx context.Context, id int64, u models.OrderUpdate) (models.Order, error)
	SetOrderStatus(ctx context.Context, id int64, status models.OrderStatus) error
	RecordOrderView(ctx context.Context, orderID int64, userID *int64, ip string) error
	UserRating(ctx context.Context, userID int64) (float64, error)

	CountActiveProposals(ctx context.Context, orderID int64) (int, error)
	HasActiveProposal(ctx context.Context, orderID, freelancerID int64) (bool, error)
	CreateProposal(ctx context.Context, p models.Proposal) (models.Proposal, error)
	GetProposal(ctx context.Context, id int64) (models.Proposal, error)
	ListOrderProposals(ctx context.Context, orderID int64) ([]models.Proposal, error)
	ListFreelancerProposals(ctx context.Context, freelancerID int64) ([]models.Proposal, error)
	SetProposalStatus(ctx context.Context, id int64, status models.ProposalStatus) error
	// RejectPending rejects every pending proposal of the order except keepID.
	RejectPending(ctx context.Context, orderID, keepID int64) (int64, error)

	CreateDeal(ctx context.Context, d models.Deal) (models.Deal, error)
	GetDeal(ctx context.Context, id int64) (models.Deal, error)
	ListDeals(ctx context.Context, userID int64) ([]models.Deal, error)
	SetDealStatus(ctx context.Context, id int64, status models.DealStatus, escrow models.EscrowStatus) (models.Deal, error)
	RecordTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error)
	CreditBalance(ctx context.Context, userID int64, amount float64) error

	AddDealMessage(ctx context.Context, m models.DealMessage) (models.DealMessage, error)
	ListDealMessages(ctx context.Context, dealID int64) ([]models.DealMessage, error)

	HasReview(ctx context.Context, dealID, reviewerID int64) (bool, error)
	CreateReview(ctx context.Context, r models.Review) (models.Review, error)
	RecalculateUserRating(ctx context.Context, userID int64) (float64, error)
	ListReviews(ctx context.Context, revieweeID int64) ([]models.Review, error)

	ListPortfolio(ctx context.Context, freelancerID int64) ([]models.PortfolioItem, error)
	AddPortfolioItem(ctx context.Context, p models.PortfolioItem) (models.PortfolioItem, error)
	ListSkills(ctx context.Context, freelancerID int64) ([]models.Skill, error)
	ReplaceSkills(ctx context.Context, freelancerID int64, skills []models.Skill) error
}

type Balances interface {
	Get(ctx context.Context, userID int64) (float64, error)
	ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]models.Transaction, error)
}

type Support interface {
	CreateTicket(ctx context.Context, t models.Ticket) (models.Ticket, error)
	GetTicket(ctx context.Context, id int64) (models.Ticket, error)
	ListTickets(ctx context.Context, f models.TicketFilter) ([]models.Ticket, error)
	UpdateTicket(ctx context.Context, id int64, u models.TicketUpdate) (models.Ticket, error)
	// AddMessage stores the message and bumps the ticket's updated_at.
	AddMessage(ctx context.Context, m models.TicketMessage) (models.TicketMessage, error)
	ListMessages(ctx context.Context, ticketID int64, includeInternal bool) ([]models.TicketMessage, error)
}

type Files interface {
	Save(ctx context.Context, f models.StoredFile) (models.StoredFile, error)
	GetByURL(ctx context.Context, url string) (models.StoredFile, error)
}

type Newsletter interface {
	Subscribe(ctx context.Context, s models.Subscription) (models.Subscription, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]models.Subscription, int, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
