package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/baharkarakas/market-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// exchangeRepo runs on the pool, or on a transaction when pool is nil.
type exchangeRepo struct {
	pool *pgxpool.Pool
	db   querier
}

func (r *exchangeRepo) WithTx(ctx context.Context, fn func(repository.Exchange) error) error {
	return withTx(ctx, r.pool, r.db, func(q querier) error {
		return fn(&exchangeRepo{db: q})
	})
}

func (r *exchangeRepo) LockOrder(ctx context.Context, id int64) error {
	var got int64
	return mapErr(r.db.QueryRow(ctx, `SELECT id FROM exchange_orders WHERE id=$1 FOR UPDATE`, id).Scan(&got))
}

func (r *exchangeRepo) LockDeal(ctx context.Context, id int64) error {
	var got int64
	return mapErr(r.db.QueryRow(ctx, `SELECT id FROM exchange_deals WHERE id=$1 FOR UPDATE`, id).Scan(&got))
}

// ---------- services ----------

func (r *exchangeRepo) CreateService(ctx context.Context, s models.Service) (models.Service, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO exchange_services(freelancer_id, title, description, category, price)
		 VALUES($1,$2,$3,$4,$5) RETURNING id, is_active, created_at`,
		s.FreelancerID, s.Title, s.Description, s.Category, s.Price).Scan(&s.ID, &s.IsActive, &s.CreatedAt)
	return s, mapErr(err)
}

func (r *exchangeRepo) ListServices(ctx context.Context, f models.ServiceFilter) ([]models.Service, error) {
	where, args := []string{"is_active"}, []any{}
	if f.FreelancerID != nil {
		args = append(args, *f.FreelancerID)
		where = append(where, "freelancer_id = $"+strconv.Itoa(len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, "category = $"+strconv.Itoa(len(args)))
	}
	args = append(args, f.Limit)
	rows, err := r.db.Query(ctx,
		`SELECT id, freelancer_id, title, description, category, price, is_active, created_at
		 FROM exchange_services WHERE `+strings.Join(where, " AND ")+
			` ORDER BY created_at DESC LIMIT $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.Service{}
	for rows.Next() {
		var s models.Service
		if err := rows.Scan(&s.ID, &s.FreelancerID, &s.Title, &s.Description, &s.Category, &s.Price, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, s)
	}
	return out, mapErr(rows.Err())
}

// ---------- orders ----------

const orderSelect = `SELECT o.id, o.client_id, o.title, o.description, o.category, o.budget_min, o.budget_max,
	o.deadline, o.required_skills, o.max_proposals, o.client_rating, o.cover_image_url, o.attachments, o.status,
	(SELECT COUNT(*) FROM exchange_proposals p WHERE p.order_id = o.id AND p.status <> 'withdrawn'),
	(SELECT COUNT(*) FROM exchange_order_views v WHERE v.order_id = o.id),
	o.created_at, o.updated_at
	FROM exchange_orders o`

func scanOrder(row pgx.Row) (models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.ClientID, &o.Title, &o.Description, &o.Category, &o.BudgetMin, &o.BudgetMax,
		&o.Deadline, &o.RequiredSkills, &o.MaxProposals, &o.ClientRating, &o.CoverImageURL, &o.Attachments, &o.Status,
		&o.ProposalsCount, &o.ViewsCount, &o.CreatedAt, &o.UpdatedAt)
	return o, mapErr(err)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r *exchangeRepo) CreateOrder(ctx context.Context, o models.Order) (models.Order, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO exchange_orders(client_id, title, description, category, budget_min, budget_max, deadline,
			required_skills, max_proposals, client_rating, cover_image_url, attachments, status)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) RETURNING id`,
		o.ClientID, o.Title, o.Description, o.Category, o.BudgetMin, o.BudgetMax, o.Deadline,
		nonNil(o.RequiredSkills), o.MaxProposals, o.ClientRating, o.CoverImageURL, nonNil(o.Attachments), o.Status,
	).Scan(&id)
	if err != nil {
		return models.Order{}, mapErr(err)
	}
	return r.GetOrder(ctx, id)
}

func (r *exchangeRepo) GetOrder(ctx context.Context, id int64) (models.Order, error) {
	return scanOrder(r.db.QueryRow(ctx, orderSelect+` WHERE o.id=$1`, id))
}

func (r *exchangeRepo) ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, error) {
	where, args := []string{"TRUE"}, []any{}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, "o.status = $"+strconv.Itoa(len(args)))
	}
	if f.Category != "" && f.Category != "all" {
		args = append(args, f.Category)
		where = append(where, "o.category = $"+strconv.Itoa(len(args)))
	}
	if f.ClientID != nil {
		args = append(args, *f.ClientID)
		where = append(where, "o.client_id = $"+strconv.Itoa(len(args)))
	}
	args = append(args, f.Limit)
	rows, err := r.db.Query(ctx, orderSelect+` WHERE `+strings.Join(where, " AND ")+
		` ORDER BY o.created_at DESC LIMIT $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, mapErr(rows.Err())
}

func (r *exchangeRepo) UpdateOrder(ctx context.Context, id int64, u models.OrderUpdate) (models.Order, error) {
	err := expectOne(r.db.Exec(ctx,
		`UPDATE exchange_orders SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			category = COALESCE($4, category),
			budget_min = COALESCE($5, budget_min),
			budget_max = COALESCE($6, budget_max),
			deadline = COALESCE($7, deadline),
			required_skills = COALESCE($8, required_skills),
			cover_image_url = COALESCE($9, cover_image_url),
			attachments = COALESCE($10, attachments),
			status = COALESCE($11, status),
			updated_at = now()
		 WHERE id=$1`,
		id, u.Title, u.Description, u.Category, u.BudgetMin, u.BudgetMax, u.Deadline,
		u.RequiredSkills, u.CoverImageURL, u.Attachments, u.Status))
	if err != nil {
		return models.Order{}, err
	}
	return r.GetOrder(ctx, id)
}

func (r *exchangeRepo) SetOrderStatus(ctx context.Context, id int64, status models.OrderStatus) error {
	return expectOne(r.db.Exec(ctx, `UPDATE exchange_orders SET status=$2, updated_at=now() WHERE id=$1`, id, status))
}

func (r *exchangeRepo) RecordOrderView(ctx context.Context, orderID int64, userID *int64, ip string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO exchange_order_views(order_id, user_id, ip_address) VALUES($1, COALESCE($2, 0), $3)
		 ON CONFLICT DO NOTHING`, orderID, userID, ip)
	return mapErr(err)
}

func (r *exchangeRepo) UserRating(ctx context.Context, userID int64) (float64, error) {
	var rating float64
	err := r.db.QueryRow(ctx, `SELECT rating FROM users WHERE id=$1`, userID).Scan(&rating)
	return rating, mapErr(err)
}

// ---------- proposals ----------

const proposalColumns = `id, order_id, freelancer_id, price, currency, message, delivery_time_days, status, created_at, updated_at`

func scanProposal(row pgx.Row) (models.Proposal, error) {
	var p models.Proposal
	err := row.Scan(&p.ID, &p.OrderID, &p.FreelancerID, &p.Price, &p.Currency, &p.Message, &p.DeliveryTimeDays,
		&p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, mapErr(err)
}

func (r *exchangeRepo) CountActiveProposals(ctx context.Context, orderID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM exchange_proposals WHERE order_id=$1 AND status <> 'withdrawn'`, orderID).Scan(&n)
	return n, mapErr(err)
}

func (r *exchangeRepo) HasActiveProposal(ctx context.Context, orderID, freelancerID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM exchange_proposals WHERE order_id=$1 AND freelancer_id=$2 AND status <> 'withdrawn')`,
		orderID, freelancerID).Scan(&ok)
	return ok, mapErr(err)
}

func (r *exchangeRepo) CreateProposal(ctx context.Context, p models.Proposal) (models.Proposal, error) {
	return scanProposal(r.db.QueryRow(ctx,
		`INSERT INTO exchange_proposals(order_id, freelancer_id, price, currency, message, delivery_time_days, status)
		 VALUES($1,$2,$3,$4,$5,$6,$7) RETURNING `+proposalColumns,
		p.OrderID, p.FreelancerID, p.Price, p.Currency, p.Message, p.DeliveryTimeDays, p.Status))
}

func (r *exchangeRepo) GetProposal(ctx context.Context, id int64) (models.Proposal, error) {
	return scanProposal(r.db.QueryRow(ctx, `SELECT `+proposalColumns+` FROM exchange_proposals WHERE id=$1`, id))
}

func (r *exchangeRepo) ListOrderProposals(ctx context.Context, orderID int64) ([]models.Proposal, error) {
	rows, err := r.db.Query(ctx,
		`SELECT p.id, p.order_id, p.freelancer_id, p.price, p.currency, p.message, p.delivery_time_days, p.status,
			p.created_at, p.updated_at, u.full_name, u.email, u.avatar_url,
			(SELECT AVG(rv.rating)::float8 FROM exchange_reviews rv WHERE rv.reviewee_id = p.freelancer_id),
			(SELECT COUNT(*) FROM exchange_deals d WHERE d.freelancer_id = p.freelancer_id AND d.status = 'completed')
		 FROM exchange_proposals p JOIN users u ON u.id = p.freelancer_id
		 WHERE p.order_id=$1 AND p.status <> 'withdrawn' ORDER BY p.created_at DESC`, orderID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.Proposal{}
	for rows.Next() {
		var p models.Proposal
		if err := rows.Scan(&p.ID, &p.OrderID, &p.FreelancerID, &p.Price, &p.Currency, &p.Message, &p.DeliveryTimeDays,
			&p.Status, &p.CreatedAt, &p.UpdatedAt, &p.FreelancerName, &p.FreelancerEmail, &p.FreelancerAvatar,
			&p.FreelancerRating, &p.CompletedDeals); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, p)
	}
	return out, mapErr(rows.Err())
}

func (r *exchangeRepo) ListFreelancerProposals(ctx context.Context, freelancerID int64) ([]models.Proposal, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+proposalColumns+` FROM exchange_proposals WHERE freelancer_id=$1 ORDER BY created_at DESC`, freelancerID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.Proposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, mapErr(rows.Err())
}

func (r *exchangeRepo) SetProposalStatus(ctx context.Context, id int64, status models.ProposalStatus) error {
	return expectOne(r.db.Exec(ctx, `UPDATE exchange_proposals SET status=$2, updated_at=now() WHERE id=$1`, id, status))
}

func (r *exchangeRepo) RejectPending(ctx context.Context, orderID, keepID int64) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE exchange_proposals SET status='rejected', updated_at=now()
		 WHERE order_id=$1 AND id<>$2 AND status='pending'`, orderID, keepID)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}

// ---------- deals ----------

const dealColumns = `id, order_id, proposal_id, client_id, freelancer_id, amount, currency, status, escrow_status,
	created_at, updated_at, completed_at`

func scanDeal(row pgx.Row) (models.Deal, error) {
	var d models.Deal
	err := row.Scan(&d.ID, &d.OrderID, &d.ProposalID, &d.ClientID, &d.FreelancerID, &d.Amount, &d.Currency,
		&d.Status, &d.EscrowStatus, &d.CreatedAt, &d.UpdatedAt, &d.CompletedAt)
	return d, mapErr(err)
}

func (r *exchangeRepo) CreateDeal(ctx context.Context, d models.Deal) (models.Deal, error) {
	return scanDeal(r.db.QueryRow(ctx,
		`INSERT INTO exchange_deals(order_id, proposal_id, client_id, freelancer_id, amount, currency, status, escrow_status)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8) RETURNING `+dealColumns,
		d.OrderID, d.ProposalID, d.ClientID, d.FreelancerID, d.Amount, d.Currency, d.Status, d.EscrowStatus))
}

func (r *exchangeRepo) GetDeal(ctx context.Context, id int64) (models.Deal, error) {
	return scanDeal(r.db.QueryRow(ctx, `SELECT `+dealColumns+` FROM exchange_deals WHERE id=$1`, id))
}

func (r *exchangeRepo) ListDeals(ctx context.Context, userID int64) ([]models.Deal, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+dealColumns+` FROM exchange_deals WHERE client_id=$1 OR freelancer_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.Deal{}
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, mapErr(rows.Err())
}

func (r *exchangeRepo) SetDealStatus(ctx context.Context, id int64, status models.DealStatus, escrow models.EscrowStatus) (models.Deal, error) {
	return scanDeal(r.db.QueryRow(ctx,
		`UPDATE exchange_deals SET status=$2, escrow_status=$3, updated_at=now(),
			completed_at = CASE WHEN $2::text = 'completed' THEN now() ELSE completed_at END
		 WHERE id=$1 RETURNING `+dealColumns, id, string(status), escrow))
}

func (r *exchangeRepo) RecordTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO balance_transactions(user_id, deal_id, type, amount, currency) VALUES($1,$2,$3,$4,$5)
		 RETURNING id, created_at`, t.UserID, t.DealID, t.Type, t.Amount, t.Currency).Scan(&t.ID, &t.CreatedAt)
	return t, mapErr(err)
}

func (r *exchangeRepo) CreditBalance(ctx context.Context, userID int64, amount float64) error {
	return expectOne(r.db.Exec(ctx, `UPDATE users SET balance = balance + $2, updated_at=now() WHERE id=$1`, userID, amount))
}

// ---------- deal messages ----------

func (r *exchangeRepo) AddDealMessage(ctx context.Context, m models.DealMessage) (models.DealMessage, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO exchange_deal_messages(deal_id, sender_id, message, attachments, is_system, is_problem)
		 VALUES($1,$2,$3,$4,$5,$6) RETURNING id, created_at`,
		m.DealID, m.SenderID, m.Message, nonNil(m.Attachments), m.IsSystem, m.IsProblem).Scan(&m.ID, &m.CreatedAt)
	return m, mapErr(err)
}

func (r *exchangeRepo) ListDealMessages(ctx context.Context, dealID int64) ([]models.DealMessage, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, deal_id, sender_id, message, attachments, is_system, is_problem, created_at
		 FROM exchange_deal_messages WHERE deal_id=$1 ORDER BY created_at ASC, id ASC`, dealID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.DealMessage{}
	for rows.Next() {
		var m models.DealMessage
		if err := rows.Scan(&m.ID, &m.DealID, &m.SenderID, &m.Message, &m.Attachments, &m.IsSystem, &m.IsProblem, &m.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, m)
	}
	return out, mapErr(rows.Err())
}

// ---------- reviews ----------

func (r *exchangeRepo) HasReview(ctx context.Context, dealID, reviewerID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM exchange_reviews WHERE deal_id=$1 AND reviewer_id=$2)`, dealID, reviewerID).Scan(&ok)
	return ok, mapErr(err)
}

func (r *exchangeRepo) CreateReview(ctx context.Context, rv models.Review) (models.Review, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO exchange_reviews(deal_id, reviewer_id, reviewee_id, rating, comment) VALUES($1,$2,$3,$4,$5)
		 RETURNING id, created_at`, rv.DealID, rv.ReviewerID, rv.RevieweeID, rv.Rating, rv.Comment).Scan(&rv.ID, &rv.CreatedAt)
	return rv, mapErr(err)
}

func (r *exchangeRepo) RecalculateUserRating(ctx context.Context, userID int64) (float64, error) {
	var rating float64
	err := r.db.QueryRow(ctx,
		`UPDATE users SET rating = (
			SELECT COALESCE(AVG(rating), 0)::DECIMAL(3,2) FROM exchange_reviews WHERE reviewee_id=$1
		 ), updated_at=now() WHERE id=$1 RETURNING rating`, userID).Scan(&rating)
	return rating, mapErr(err)
}

func (r *exchangeRepo) ListReviews(ctx context.Context, revieweeID int64) ([]models.Review, error) {
	rows, err := r.db.Query(ctx,
		`SELECT rv.id, rv.deal_id, rv.reviewer_id, rv.reviewee_id, rv.rating, rv.comment, u.full_name, rv.created_at
		 FROM exchange_reviews rv JOIN users u ON u.id = rv.reviewer_id
		 WHERE rv.reviewee_id=$1 ORDER BY rv.created_at DESC`, revieweeID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.Review{}
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.DealID, &rv.ReviewerID, &rv.RevieweeID, &rv.Rating, &rv.Comment, &rv.ReviewerName, &rv.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, rv)
	}
	return out, mapErr(rows.Err())
}

// ---------- portfolio & skills ----------

func (r *exchangeRepo) ListPortfolio(ctx context.Context, freelancerID int64) ([]models.PortfolioItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, freelancer_id, title, description, image_url, project_url, created_at
		 FROM freelancer_portfolio WHERE freelancer_id=$1 ORDER BY created_at DESC`, freelancerID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.PortfolioItem{}
	for rows.Next() {
		var p models.PortfolioItem
		if err := rows.Scan(&p.ID, &p.FreelancerID, &p.Title, &p.Description, &p.ImageURL, &p.ProjectURL, &p.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, p)
	}
	return out, mapErr(rows.Err())
}

func (r *exchangeRepo) AddPortfolioItem(ctx context.Context, p models.PortfolioItem) (models.PortfolioItem, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO freelancer_portfolio(freelancer_id, title, description, image_url, project_url)
		 VALUES($1,$2,$3,$4,$5) RETURNING id, created_at`,
		p.FreelancerID, p.Title, p.Description, p.ImageURL, p.ProjectURL).Scan(&p.ID, &p.CreatedAt)
	return p, mapErr(err)
}

func (r *exchangeRepo) ListSkills(ctx context.Context, freelancerID int64) ([]models.Skill, error) {
	rows, err := r.db.Query(ctx,
		`SELECT freelancer_id, skill_name, level FROM freelancer_skills WHERE freelancer_id=$1 ORDER BY skill_name`, freelancerID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.Skill{}
	for rows.Next() {
		var s models.Skill
		if err := rows.Scan(&s.FreelancerID, &s.Name, &s.Level); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, s)
	}
	return out, mapErr(rows.Err())
}

func (r *exchangeRepo) ReplaceSkills(ctx context.Context, freelancerID int64, skills []models.Skill) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM freelancer_skills WHERE freelancer_id=$1`, freelancerID); err != nil {
		return mapErr(err)
	}
	if len(skills) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, s := range skills {
		batch.Queue(`INSERT INTO freelancer_skills(freelancer_id, skill_name, level) VALUES($1,$2,$3)
			ON CONFLICT (freelancer_id, skill_name) DO UPDATE SET level=EXCLUDED.level`, freelancerID, s.Name, s.Level)
	}
	return mapErr(r.db.SendBatch(ctx, batch).Close())
}
