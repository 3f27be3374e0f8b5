package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/baharkarakas/market-backend/internal/metrics"
	"github.com/baharkarakas/market-backend/internal/models"
	repo "github.com/baharkarakas/market-backend/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

func clampLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}

type MarketplaceService struct {
	repo  repo.Marketplace
	audit *Auditor
}

func NewMarketplaceService(r repo.Marketplace, a *Auditor) *MarketplaceService {
	return &MarketplaceService{repo: r, audit: a}
}

// CreateItem stores a new listing awaiting moderation along with its delivery stock.
func (s *MarketplaceService) CreateItem(ctx context.Context, item models.MarketItem) (models.MarketItem, error) {
	item.Title = strings.TrimSpace(item.Title)
	if item.Title == "" {
		return models.MarketItem{}, Fail(ErrBadRequest, "title is required")
	}
	if item.Price < 0 {
		return models.MarketItem{}, Fail(ErrBadRequest, "price must be >= 0")
	}
	if item.DeliveryType == "" {
		item.DeliveryType = models.DeliveryManual
	}
	if !item.DeliveryType.Valid() {
		return models.MarketItem{}, Fail(ErrBadRequest, "delivery_type must be manual, auto or repeatable")
	}
	stock := item.DeliveryStock()
	if item.DeliveryType != models.DeliveryManual && len(stock) == 0 {
		return models.MarketItem{}, Fail(ErrBadRequest, "auto_delivery_content is required for automatic delivery")
	}
	if item.Category == "" {
		item.Category = "other"
	}
	if item.Currency == "" {
		item.Currency = "RUB"
	}
	item.ModerationStatus = models.ModerationPending

	var created models.MarketItem
	err := s.repo.WithTx(ctx, func(tx repo.Marketplace) error {
		var err error
		if created, err = tx.CreateItem(ctx, item); err != nil {
			return err
		}
		return tx.AddStock(ctx, created.ID, stock)
	})
	if err != nil {
		return models.MarketItem{}, err
	}
	slog.Info("marketplace item created", "item_id", created.ID, "seller_id", created.SellerID, "stock", len(stock))
	return created, nil
}

// GetItem returns an item and counts the view.
func (s *MarketplaceService) GetItem(ctx context.Context, id int64) (models.MarketItem, error) {
	if err := s.repo.IncrementViews(ctx, id); err != nil {
		return models.MarketItem{}, notFound(err, "Item not found")
	}
	item, err := s.repo.GetItem(ctx, id)
	return item, notFound(err, "Item not found")
}

func (s *MarketplaceService) ListItems(ctx context.Context, f models.ItemFilter) ([]models.MarketItem, error) {
	f.Limit = clampLimit(f.Limit)
	f.ApprovedOnly = true
	f.Search = strings.TrimSpace(f.Search)
	return s.repo.ListItems(ctx, f)
}

func (s *MarketplaceService) Moderate(ctx context.Context, actorID, id int64, status string) (models.MarketItem, error) {
	if status != models.ModerationApproved && status != models.ModerationRejected {
		return models.MarketItem{}, Fail(ErrBadRequest, "status must be approved or rejected")
	}
	item, err := s.repo.SetModeration(ctx, id, status)
	if err != nil {
		return models.MarketItem{}, notFound(err, "Item not found")
	}
	s.audit.Record("marketplace_item", id, actorID, "moderated", map[string]any{"status": status})
	return item, nil
}

// Purchase buys an item and delivers it right away when stock allows.
func (s *MarketplaceService) Purchase(ctx context.Context, buyerID, itemID int64) (models.Purchase, error) {
	if itemID == 0 {
		return models.Purchase{}, Fail(ErrBadRequest, "item_id is required")
	}
	var (
		out      models.Purchase
		delivery string
	)
	err := s.repo.WithTx(ctx, func(tx repo.Marketplace) error {
		item, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return notFound(err, "Item not found or inactive")
		}
		if !item.IsActive || item.ModerationStatus != models.ModerationApproved {
			return Fail(ErrNotFound, "Item not found or inactive")
		}
		if item.SellerID == buyerID {
			return Fail(ErrBadRequest, "You cannot buy your own item")
		}

		p, err := tx.CreatePurchase(ctx, models.Purchase{
			BuyerID:      buyerID,
			ItemID:       item.ID,
			SellerID:     item.SellerID,
			Price:        item.Price,
			Currency:     "RUB",
			Status:       models.PurchasePending,
			DeliveryType: item.DeliveryType,
		})
		if err != nil {
			return err
		}

		delivery = string(item.DeliveryType)
		switch item.DeliveryType {
		case models.DeliveryAuto:
			st, err := tx.ClaimStock(ctx, item.ID)
			if errors.Is(err, repo.ErrNotFound) {
				delivery = "out_of_stock"
				break
			}
			if err != nil {
				return err
			}
			if err := tx.MarkStockDelivered(ctx, st.ID, buyerID); err != nil {
				return err
			}
			if p, err = tx.MarkDelivered(ctx, p.ID, &st.Content, st.FileURL); err != nil {
				return err
			}
		case models.DeliveryRepeatable:
			st, err := tx.PeekStock(ctx, item.ID)
			if errors.Is(err, repo.ErrNotFound) {
				delivery = "out_of_stock"
				break
			}
			if err != nil {
				return err
			}
			if p, err = tx.MarkDelivered(ctx, p.ID, &st.Content, st.FileURL); err != nil {
				return err
			}
		}

		if err := tx.IncrementSales(ctx, item.ID); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return models.Purchase{}, err
	}
	metrics.PurchasesTotal.WithLabelValues(delivery).Inc()
	slog.Info("marketplace purchase", "purchase_id", out.ID, "item_id", itemID, "buyer_id", buyerID, "status", out.Status)
	return out, nil
}

func (s *MarketplaceService) Purchases(ctx context.Context, buyerID int64) ([]models.Purchase, error) {
	return s.repo.ListPurchases(ctx, buyerID)
}

func (s *MarketplaceService) Earnings(ctx context.Context, sellerID int64) (float64, error) {
	return s.repo.Earnings(ctx, sellerID)
}

func (s *MarketplaceService) AddReview(ctx context.Context, r models.ItemReview) (models.ItemReview, error) {
	if r.ItemID == 0 {
		return models.ItemReview{}, Fail(ErrBadRequest, "item_id is required")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return models.ItemReview{}, Fail(ErrBadRequest, "rating must be between 1 and 5")
	}
	var out models.ItemReview
	err := s.repo.WithTx(ctx, func(tx repo.Marketplace) error {
		if _, err := tx.GetItem(ctx, r.ItemID); err != nil {
			return notFound(err, "Item not found")
		}
		var err error
		if out, err = tx.AddReview(ctx, r); err != nil {
			return err
		}
		_, err = tx.RecalculateItemRating(ctx, r.ItemID)
		return err
	})
	return out, err
}

func (s *MarketplaceService) Reviews(ctx context.Context, itemID int64) ([]models.ItemReview, error) {
	if itemID == 0 {
		return nil, Fail(ErrBadRequest, "item_id is required")
	}
	return s.repo.ListReviews(ctx, itemID)
}
