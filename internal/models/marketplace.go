package models

import (
	"strings"
	"time"
)

type DeliveryType string

const (
	DeliveryManual     DeliveryType = "manual"
	DeliveryAuto       DeliveryType = "auto"
	DeliveryRepeatable DeliveryType = "repeatable"
)

func (d DeliveryType) Valid() bool {
	return d == DeliveryManual || d == DeliveryAuto || d == DeliveryRepeatable
}

const (
	ModerationPending  = "pending"
	ModerationApproved = "approved"
	ModerationRejected = "rejected"
)

type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseDelivered PurchaseStatus = "delivered"
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseRefunded  PurchaseStatus = "refunded"
)

// SellerShare is the part of a sale price paid out to the seller.
const SellerShare = 0.7

type MarketItem struct {
	ID                  int64        `json:"id"`
	SellerID            int64        `json:"seller_id"`
	Title               string       `json:"title"`
	Description         *string      `json:"description"`
	Category            string       `json:"category"`
	ItemType            *string      `json:"item_type"`
	Price               float64      `json:"price"`
	Currency            string       `json:"currency"`
	PreviewImage        *string      `json:"preview_image"`
	GalleryImages       []string     `json:"gallery_images"`
	DeliveryType        DeliveryType `json:"delivery_type"`
	AutoDeliveryContent string       `json:"auto_delivery_content,omitempty"`
	AttachedFileURL     *string      `json:"attached_file_url,omitempty"`
	AttachedFileName    *string      `json:"attached_file_name,omitempty"`
	ModerationStatus    string       `json:"moderation_status"`
	IsActive            bool         `json:"is_active"`
	Rating              float64      `json:"rating"`
	ViewsCount          int          `json:"views_count"`
	SalesCount          int          `json:"sales_count"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// DeliveryStock turns the seller supplied content into auto-delivery rows.
// Auto items get one row per non-empty line, repeatable items a single row.
// A lone attached file counts as one row.
func (m MarketItem) DeliveryStock() []AutoDeliveryItem {
	var out []AutoDeliveryItem
	switch m.DeliveryType {
	case DeliveryAuto:
		for _, line := range strings.Split(m.AutoDeliveryContent, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, AutoDeliveryItem{Content: line})
			}
		}
		if len(out) == 0 && m.AttachedFileURL != nil {
			out = append(out, AutoDeliveryItem{FileURL: m.AttachedFileURL, FileName: m.AttachedFileName})
		}
	case DeliveryRepeatable:
		content := strings.TrimSpace(m.AutoDeliveryContent)
		if content != "" || m.AttachedFileURL != nil {
			out = append(out, AutoDeliveryItem{Content: content, FileURL: m.AttachedFileURL, FileName: m.AttachedFileName})
		}
	}
	return out
}

type AutoDeliveryItem struct {
	ID          int64      `json:"id"`
	ItemID      int64      `json:"item_id"`
	Content     string     `json:"content"`
	FileURL     *string    `json:"file_url"`
	FileName    *string    `json:"file_name"`
	IsDelivered bool       `json:"is_delivered"`
	DeliveredTo *int64     `json:"delivered_to"`
	DeliveredAt *time.Time `json:"delivered_at"`
}

type ItemFilter struct {
	SellerID     *int64
	Category     string
	Search       string
	ApprovedOnly bool
	Limit        int
}

type Purchase struct {
	ID               int64          `json:"id"`
	BuyerID          int64          `json:"buyer_id"`
	ItemID           int64          `json:"item_id"`
	SellerID         int64          `json:"seller_id"`
	Price            float64        `json:"price"`
	Currency         string         `json:"currency"`
	Status           PurchaseStatus `json:"status"`
	DeliveryType     DeliveryType   `json:"delivery_type"`
	DeliveredContent *string        `json:"delivered_content"`
	DeliveredFileURL *string        `json:"delivered_file_url"`
	PurchasedAt      time.Time      `json:"purchased_at"`
	DeliveredAt      *time.Time     `json:"delivered_at"`
	Title            string         `json:"title,omitempty"`
	PreviewImage     *string        `json:"preview_image,omitempty"`
}

type ItemReview struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	UserID    int64     `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}
