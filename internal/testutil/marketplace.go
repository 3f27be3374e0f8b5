package testutil

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/baharkarakas/market-backend/internal/models"
	repo "github.com/baharkarakas/market-backend/internal/repository"
)

type marketMem Store

func (m *marketMem) s() *Store { return (*Store)(m) }

// WithTx runs fn directly; marketplace tests do not exercise rollback.
func (m *marketMem) WithTx(_ context.Context, fn func(repo.Marketplace) error) error {
	if err := m.s().lock(); err != nil {
		return err
	}
	m.s().unlock()
	return fn(m)
}

func (m *marketMem) CreateItem(_ context.Context, it models.MarketItem) (models.MarketItem, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.MarketItem{}, err
	}
	defer s.unlock()
	if it.GalleryImages == nil {
		it.GalleryImages = []string{}
	}
	it.ID, it.IsActive = s.next(), true
	it.CreatedAt, it.UpdatedAt = time.Now(), time.Now()
	stored := it
	s.items[it.ID] = &stored
	it.AutoDeliveryContent = ""
	return it, nil
}

func (m *marketMem) AddStock(_ context.Context, itemID int64, stock []models.AutoDeliveryItem) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	for _, st := range stock {
		st := st
		st.ID, st.ItemID = s.next(), itemID
		s.stock = append(s.stock, &st)
	}
	return nil
}

func (m *marketMem) GetItem(_ context.Context, id int64) (models.MarketItem, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.MarketItem{}, err
	}
	defer s.unlock()
	it, ok := s.items[id]
	if !ok {
		return models.MarketItem{}, repo.ErrNotFound
	}
	out := *it
	out.AutoDeliveryContent = ""
	return out, nil
}

func (m *marketMem) bump(id int64, f func(*models.MarketItem)) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	it, ok := s.items[id]
	if !ok {
		return repo.ErrNotFound
	}
	f(it)
	return nil
}

func (m *marketMem) IncrementViews(_ context.Context, id int64) error {
	return m.bump(id, func(it *models.MarketItem) { it.ViewsCount++ })
}

func (m *marketMem) IncrementSales(_ context.Context, id int64) error {
	return m.bump(id, func(it *models.MarketItem) { it.SalesCount++ })
}

// ApproveItem approves an item without going through moderation.
func (s *Store) ApproveItem(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[id]; ok {
		it.ModerationStatus = models.ModerationApproved
	}
}

func (m *marketMem) ListItems(_ context.Context, f models.ItemFilter) ([]models.MarketItem, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	search := strings.ToLower(f.Search)
	out := []models.MarketItem{}
	for _, it := range s.items {
		if !it.IsActive || (f.ApprovedOnly && it.ModerationStatus != models.ModerationApproved) ||
			(f.SellerID != nil && it.SellerID != *f.SellerID) || (f.Category != "" && it.Category != f.Category) {
			continue
		}
		if search != "" {
			desc := ""
			if it.Description != nil {
				desc = *it.Description
			}
			if !strings.Contains(strings.ToLower(it.Title+" "+desc), search) {
				continue
			}
		}
		v := *it
		v.AutoDeliveryContent = ""
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, f.Limit, 0), nil
}

func (m *marketMem) SetModeration(_ context.Context, id int64, status string) (models.MarketItem, error) {
	if err := m.bump(id, func(it *models.MarketItem) { it.ModerationStatus = status }); err != nil {
		return models.MarketItem{}, err
	}
	return m.GetItem(context.Background(), id)
}

func (m *marketMem) CreatePurchase(_ context.Context, p models.Purchase) (models.Purchase, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Purchase{}, err
	}
	defer s.unlock()
	p.ID, p.PurchasedAt = s.next(), time.Now()
	s.purchases[p.ID] = &p
	return p, nil
}

func (m *marketMem) ClaimStock(_ context.Context, itemID int64) (models.AutoDeliveryItem, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.AutoDeliveryItem{}, err
	}
	defer s.unlock()
	for _, st := range s.stock {
		if st.ItemID == itemID && !st.IsDelivered {
			return *st, nil
		}
	}
	return models.AutoDeliveryItem{}, repo.ErrNotFound
}

func (m *marketMem) PeekStock(ctx context.Context, itemID int64) (models.AutoDeliveryItem, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.AutoDeliveryItem{}, err
	}
	defer s.unlock()
	for _, st := range s.stock {
		if st.ItemID == itemID {
			return *st, nil
		}
	}
	return models.AutoDeliveryItem{}, repo.ErrNotFound
}

func (m *marketMem) MarkStockDelivered(_ context.Context, stockID, buyerID int64) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	for _, st := range s.stock {
		if st.ID == stockID {
			now := time.Now()
			st.IsDelivered, st.DeliveredTo, st.DeliveredAt = true, &buyerID, &now
			return nil
		}
	}
	return repo.ErrNotFound
}

func (m *marketMem) MarkDelivered(_ context.Context, purchaseID int64, content, fileURL *string) (models.Purchase, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Purchase{}, err
	}
	defer s.unlock()
	p, ok := s.purchases[purchaseID]
	if !ok {
		return models.Purchase{}, repo.ErrNotFound
	}
	now := time.Now()
	p.Status, p.DeliveredContent, p.DeliveredFileURL, p.DeliveredAt = models.PurchaseDelivered, content, fileURL, &now
	return *p, nil
}

func (m *marketMem) ListPurchases(_ context.Context, buyerID int64) ([]models.Purchase, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.Purchase{}
	for _, p := range s.purchases {
		if p.BuyerID == buyerID {
			v := *p
			if it, ok := s.items[p.ItemID]; ok {
				v.Title, v.PreviewImage = it.Title, it.PreviewImage
			}
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *marketMem) Earnings(_ context.Context, sellerID int64) (float64, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return 0, err
	}
	defer s.unlock()
	var total float64
	for _, p := range s.purchases {
		if p.SellerID == sellerID && (p.Status == models.PurchaseDelivered || p.Status == models.PurchaseCompleted) {
			total += p.Price * models.SellerShare
		}
	}
	return math.Round(total*100) / 100, nil
}

func (m *marketMem) AddReview(_ context.Context, r models.ItemReview) (models.ItemReview, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.ItemReview{}, err
	}
	defer s.unlock()
	r.ID, r.CreatedAt = s.next(), time.Now()
	s.itemReviews = append(s.itemReviews, r)
	return r, nil
}

func (m *marketMem) RecalculateItemRating(_ context.Context, itemID int64) (float64, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return 0, err
	}
	defer s.unlock()
	var sum, n float64
	for _, r := range s.itemReviews {
		if r.ItemID == itemID {
			sum += float64(r.Rating)
			n++
		}
	}
	avg := 0.0
	if n > 0 {
		avg = math.Round(sum/n*100) / 100
	}
	if it, ok := s.items[itemID]; ok {
		it.Rating = avg
	}
	return avg, nil
}

func (m *marketMem) ListReviews(_ context.Context, itemID int64) ([]models.ItemReview, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.ItemReview{}
	for _, r := range s.itemReviews {
		if r.ItemID == itemID {
			out = append(out, r)
		}
	}
	return out, nil
}
