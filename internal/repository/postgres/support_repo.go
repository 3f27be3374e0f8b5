package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// supportRepo runs on the pool, or on a transaction when pool is nil.
type supportRepo struct {
	pool *pgxpool.Pool
	db   querier
}

const ticketSelect = `SELECT t.id, t.user_id, t.subject, t.description, t.category, t.priority, t.status,
	t.related_type, t.related_id, t.assigned_to, t.resolved_at, t.created_at, t.updated_at,
	(SELECT COUNT(*) FROM support_messages m WHERE m.ticket_id = t.id)
	FROM support_tickets t`

func scanTicket(row pgx.Row) (models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(&t.ID, &t.UserID, &t.Subject, &t.Description, &t.Category, &t.Priority, &t.Status,
		&t.RelatedType, &t.RelatedID, &t.AssignedTo, &t.ResolvedAt, &t.CreatedAt, &t.UpdatedAt, &t.MessagesCount)
	return t, mapErr(err)
}

// CreateTicket stores the ticket and its description as the first message.
func (r *supportRepo) CreateTicket(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	var id int64
	err := withTx(ctx, r.pool, r.db, func(tx querier) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO support_tickets(user_id, subject, description, category, priority, status, related_type, related_id)
			 VALUES($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
			t.UserID, t.Subject, t.Description, t.Category, t.Priority, t.Status, t.RelatedType, t.RelatedID,
		).Scan(&id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO support_messages(ticket_id, user_id, message) VALUES($1,$2,$3)`,
			id, t.UserID, t.Description)
		return err
	})
	if err != nil {
		return models.Ticket{}, mapErr(err)
	}
	return r.GetTicket(ctx, id)
}

func (r *supportRepo) GetTicket(ctx context.Context, id int64) (models.Ticket, error) {
	return scanTicket(r.db.QueryRow(ctx, ticketSelect+` WHERE t.id=$1`, id))
}

func (r *supportRepo) ListTickets(ctx context.Context, f models.TicketFilter) ([]models.Ticket, error) {
	where, args := []string{"TRUE"}, []any{}
	if f.UserID != nil {
		args = append(args, *f.UserID)
		where = append(where, "t.user_id = $"+strconv.Itoa(len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, "t.status = $"+strconv.Itoa(len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, "t.category = $"+strconv.Itoa(len(args)))
	}
	args = append(args, f.Limit)
	rows, err := r.db.Query(ctx, ticketSelect+` WHERE `+strings.Join(where, " AND ")+
		` ORDER BY t.updated_at DESC LIMIT $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, mapErr(rows.Err())
}

func (r *supportRepo) UpdateTicket(ctx context.Context, id int64, u models.TicketUpdate) (models.Ticket, error) {
	err := expectOne(r.db.Exec(ctx,
		`UPDATE support_tickets SET
			status = COALESCE($2, status),
			priority = COALESCE($3, priority),
			assigned_to = COALESCE($4, assigned_to),
			resolved_at = CASE WHEN $2::text = 'resolved' THEN now() ELSE resolved_at END,
			updated_at = now()
		 WHERE id=$1`, id, u.Status, u.Priority, u.AssignedTo))
	if err != nil {
		return models.Ticket{}, err
	}
	return r.GetTicket(ctx, id)
}

func (r *supportRepo) AddMessage(ctx context.Context, m models.TicketMessage) (models.TicketMessage, error) {
	if m.Attachments == nil {
		m.Attachments = []string{}
	}
	err := withTx(ctx, r.pool, r.db, func(tx querier) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO support_messages(ticket_id, user_id, message, attachments, is_internal)
			 VALUES($1,$2,$3,$4,$5) RETURNING id, created_at`,
			m.TicketID, m.UserID, m.Message, m.Attachments, m.IsInternal).Scan(&m.ID, &m.CreatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE support_tickets SET updated_at=now() WHERE id=$1`, m.TicketID)
		return err
	})
	return m, mapErr(err)
}

func (r *supportRepo) ListMessages(ctx context.Context, ticketID int64, includeInternal bool) ([]models.TicketMessage, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, ticket_id, user_id, message, attachments, is_internal, created_at FROM support_messages
		 WHERE ticket_id=$1 AND ($2 OR NOT is_internal) ORDER BY created_at ASC, id ASC`, ticketID, includeInternal)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.TicketMessage{}
	for rows.Next() {
		var m models.TicketMessage
		if err := rows.Scan(&m.ID, &m.TicketID, &m.UserID, &m.Message, &m.Attachments, &m.IsInternal, &m.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, m)
	}
	return out, mapErr(rows.Err())
}
