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

// marketplaceRepo runs on the pool, or on a transaction when pool is nil.
type marketplaceRepo struct {
	pool *pgxpool.Pool
	db   querier
}

func (r *marketplaceRepo) WithTx(ctx context.Context, fn func(repository.Marketplace) error) error {
	return withTx(ctx, r.pool, r.db, func(q querier) error {
		return fn(&marketplaceRepo{db: q})
	})
}

const itemColumns = `id, seller_id, title, description, category, item_type, price, currency, preview_image,
	gallery_images, delivery_type, attached_file_url, attached_file_name, moderation_status, is_active, rating,
	views_count, sales_count, created_at, updated_at`

func scanItem(row pgx.Row) (models.MarketItem, error) {
	var m models.MarketItem
	err := row.Scan(&m.ID, &m.SellerID, &m.Title, &m.Description, &m.Category, &m.ItemType, &m.Price, &m.Currency,
		&m.PreviewImage, &m.GalleryImages, &m.DeliveryType, &m.AttachedFileURL, &m.AttachedFileName,
		&m.ModerationStatus, &m.IsActive, &m.Rating, &m.ViewsCount, &m.SalesCount, &m.CreatedAt, &m.UpdatedAt)
	return m, mapErr(err)
}

func (r *marketplaceRepo) CreateItem(ctx context.Context, m models.MarketItem) (models.MarketItem, error) {
	if m.GalleryImages == nil {
		m.GalleryImages = []string{}
	}
	return scanItem(r.db.QueryRow(ctx,
		`INSERT INTO marketplace_items(seller_id, title, description, category, item_type, price, currency,
			preview_image, gallery_images, delivery_type, attached_file_url, attached_file_name, moderation_status)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) RETURNING `+itemColumns,
		m.SellerID, m.Title, m.Description, m.Category, m.ItemType, m.Price, m.Currency, m.PreviewImage,
		m.GalleryImages, m.DeliveryType, m.AttachedFileURL, m.AttachedFileName, m.ModerationStatus))
}

func (r *marketplaceRepo) AddStock(ctx context.Context, itemID int64, stock []models.AutoDeliveryItem) error {
	if len(stock) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, st := range stock {
		batch.Queue(`INSERT INTO marketplace_auto_delivery_items(item_id, content, file_url, file_name) VALUES($1,$2,$3,$4)`,
			itemID, st.Content, st.FileURL, st.FileName)
	}
	return mapErr(r.db.SendBatch(ctx, batch).Close())
}

func (r *marketplaceRepo) GetItem(ctx context.Context, id int64) (models.MarketItem, error) {
	return scanItem(r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM marketplace_items WHERE id=$1`, id))
}

func (r *marketplaceRepo) IncrementViews(ctx context.Context, id int64) error {
	return expectOne(r.db.Exec(ctx, `UPDATE marketplace_items SET views_count = views_count + 1 WHERE id=$1`, id))
}

func (r *marketplaceRepo) IncrementSales(ctx context.Context, id int64) error {
	return expectOne(r.db.Exec(ctx, `UPDATE marketplace_items SET sales_count = sales_count + 1 WHERE id=$1`, id))
}

func (r *marketplaceRepo) ListItems(ctx context.Context, f models.ItemFilter) ([]models.MarketItem, error) {
	var (
		where = []string{"is_active"}
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.ApprovedOnly {
		where = append(where, "moderation_status = 'approved'")
	}
	if f.SellerID != nil {
		where = append(where, "seller_id = "+arg(*f.SellerID))
	}
	if f.Category != "" && f.Category != "all" {
		where = append(where, "category = "+arg(f.Category))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where = append(where, "(title ILIKE "+p+" OR description ILIKE "+p+")")
	}
	sql := `SELECT ` + itemColumns + ` FROM marketplace_items WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC LIMIT ` + arg(f.Limit)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.MarketItem{}
	for rows.Next() {
		m, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, mapErr(rows.Err())
}

func (r *marketplaceRepo) SetModeration(ctx context.Context, id int64, status string) (models.MarketItem, error) {
	return scanItem(r.db.QueryRow(ctx,
		`UPDATE marketplace_items SET moderation_status=$2, updated_at=now() WHERE id=$1 RETURNING `+itemColumns, id, status))
}

const purchaseColumns = `id, buyer_id, item_id, seller_id, price, currency, status, delivery_type, delivered_content,
	delivered_file_url, purchased_at, delivered_at`

func scanPurchase(row pgx.Row) (models.Purchase, error) {
	var p models.Purchase
	err := row.Scan(&p.ID, &p.BuyerID, &p.ItemID, &p.SellerID, &p.Price, &p.Currency, &p.Status, &p.DeliveryType,
		&p.DeliveredContent, &p.DeliveredFileURL, &p.PurchasedAt, &p.DeliveredAt)
	return p, mapErr(err)
}

func (r *marketplaceRepo) CreatePurchase(ctx context.Context, p models.Purchase) (models.Purchase, error) {
	return scanPurchase(r.db.QueryRow(ctx,
		`INSERT INTO marketplace_purchases(buyer_id, item_id, seller_id, price, currency, status, delivery_type)
		 VALUES($1,$2,$3,$4,$5,$6,$7) RETURNING `+purchaseColumns,
		p.BuyerID, p.ItemID, p.SellerID, p.Price, p.Currency, p.Status, p.DeliveryType))
}

func scanStock(row pgx.Row) (models.AutoDeliveryItem, error) {
	var s models.AutoDeliveryItem
	err := row.Scan(&s.ID, &s.ItemID, &s.Content, &s.FileURL, &s.FileName, &s.IsDelivered, &s.DeliveredTo, &s.DeliveredAt)
	return s, mapErr(err)
}

func (r *marketplaceRepo) ClaimStock(ctx context.Context, itemID int64) (models.AutoDeliveryItem, error) {
	return scanStock(r.db.QueryRow(ctx,
		`SELECT id, item_id, content, file_url, file_name, is_delivered, delivered_to, delivered_at
		 FROM marketplace_auto_delivery_items WHERE item_id=$1 AND NOT is_delivered
		 ORDER BY id LIMIT 1 FOR UPDATE SKIP LOCKED`, itemID))
}

func (r *marketplaceRepo) PeekStock(ctx context.Context, itemID int64) (models.AutoDeliveryItem, error) {
	return scanStock(r.db.QueryRow(ctx,
		`SELECT id, item_id, content, file_url, file_name, is_delivered, delivered_to, delivered_at
		 FROM marketplace_auto_delivery_items WHERE item_id=$1 ORDER BY id LIMIT 1`, itemID))
}

func (r *marketplaceRepo) MarkStockDelivered(ctx context.Context, stockID, buyerID int64) error {
	return expectOne(r.db.Exec(ctx,
		`UPDATE marketplace_auto_delivery_items SET is_delivered=true, delivered_to=$2, delivered_at=now() WHERE id=$1`,
		stockID, buyerID))
}

func (r *marketplaceRepo) MarkDelivered(ctx context.Context, purchaseID int64, content, fileURL *string) (models.Purchase, error) {
	return scanPurchase(r.db.QueryRow(ctx,
		`UPDATE marketplace_purchases SET status='delivered', delivered_content=$2, delivered_file_url=$3, delivered_at=now()
		 WHERE id=$1 RETURNING `+purchaseColumns, purchaseID, content, fileURL))
}

func (r *marketplaceRepo) ListPurchases(ctx context.Context, buyerID int64) ([]models.Purchase, error) {
	rows, err := r.db.Query(ctx,
		`SELECT p.id, p.buyer_id, p.item_id, p.seller_id, p.price, p.currency, p.status, p.delivery_type,
			p.delivered_content, p.delivered_file_url, p.purchased_at, p.delivered_at, i.title, i.preview_image
		 FROM marketplace_purchases p JOIN marketplace_items i ON i.id = p.item_id
		 WHERE p.buyer_id=$1 ORDER BY p.purchased_at DESC`, buyerID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.Purchase{}
	for rows.Next() {
		var p models.Purchase
		if err := rows.Scan(&p.ID, &p.BuyerID, &p.ItemID, &p.SellerID, &p.Price, &p.Currency, &p.Status, &p.DeliveryType,
			&p.DeliveredContent, &p.DeliveredFileURL, &p.PurchasedAt, &p.DeliveredAt, &p.Title, &p.PreviewImage); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, p)
	}
	return out, mapErr(rows.Err())
}

func (r *marketplaceRepo) Earnings(ctx context.Context, sellerID int64) (float64, error) {
	var total float64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(price * $2), 0)::float8 FROM marketplace_purchases
		 WHERE seller_id=$1 AND status IN ('delivered', 'completed')`, sellerID, models.SellerShare).Scan(&total)
	return total, mapErr(err)
}

func (r *marketplaceRepo) AddReview(ctx context.Context, rv models.ItemReview) (models.ItemReview, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO marketplace_reviews(item_id, user_id, rating, comment) VALUES($1,$2,$3,$4) RETURNING id, created_at`,
		rv.ItemID, rv.UserID, rv.Rating, rv.Comment).Scan(&rv.ID, &rv.CreatedAt)
	return rv, mapErr(err)
}

func (r *marketplaceRepo) RecalculateItemRating(ctx context.Context, itemID int64) (float64, error) {
	var rating float64
	err := r.db.QueryRow(ctx,
		`UPDATE marketplace_items SET rating = (
			SELECT COALESCE(AVG(rating), 0)::DECIMAL(3,2) FROM marketplace_reviews WHERE item_id=$1
		 ) WHERE id=$1 RETURNING rating`, itemID).Scan(&rating)
	return rating, mapErr(err)
}

func (r *marketplaceRepo) ListReviews(ctx context.Context, itemID int64) ([]models.ItemReview, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, item_id, user_id, rating, comment, created_at FROM marketplace_reviews
		 WHERE item_id=$1 ORDER BY created_at DESC`, itemID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := []models.ItemReview{}
	for rows.Next() {
		var rv models.ItemReview
		if err := rows.Scan(&rv.ID, &rv.ItemID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, rv)
	}
	return out, mapErr(rows.Err())
}
