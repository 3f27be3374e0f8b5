package models

import "time"

type StoredFile struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	FileName  string    `json:"file_name"`
	FileType  string    `json:"file_type"`
	FileSize  int64     `json:"file_size"`
	URL       string    `json:"url"`
	Data      []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Subscription struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Source       string    `json:"source"`
	IPAddress    *string   `json:"ip_address"`
	UserAgent    *string   `json:"user_agent"`
	UserID       *int64    `json:"user_id"`
	IsActive     bool      `json:"is_active"`
	SubscribedAt time.Time `json:"subscribed_at"`
}
