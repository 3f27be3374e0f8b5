package models

import (
	"errors"
	"strings"
	"time"
)

type User struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	Phone            *string   `json:"phone"`
	FullName         string    `json:"full_name"`
	PasswordHash     string    `json:"-"`
	UserType         string    `json:"user_type"`
	Company          *string   `json:"company"`
	About            *string   `json:"about"`
	ProfilePhotoURL  *string   `json:"profile_photo_url"`
	AvatarURL        *string   `json:"avatar_url"`
	Rating           float64   `json:"rating"`
	Balance          float64   `json:"balance"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	TwoFactorSecret  *string   `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

const MinPasswordLen = 8

func (u *User) Validate() error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if !strings.Contains(u.Email, "@") {
		return errors.New("invalid email")
	}
	if len(strings.TrimSpace(u.FullName)) < 2 {
		return errors.New("full name too short")
	}
	if u.UserType == "" {
		u.UserType = "user"
	}
	return nil
}

// ProfileUpdate holds the optional fields of a profile edit. Nil means untouched.
type ProfileUpdate struct {
	FullName        *string `json:"full_name"`
	Phone           *string `json:"phone"`
	Company         *string `json:"company"`
	About           *string `json:"about"`
	ProfilePhotoURL *string `json:"profile_photo_url"`
}

func (p ProfileUpdate) Empty() bool {
	return p.FullName == nil && p.Phone == nil && p.Company == nil && p.About == nil && p.ProfilePhotoURL == nil
}

type Session struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	TokenID    string    `json:"-"`
	Verified   bool      `json:"-"`
	DeviceInfo string    `json:"device"`
	IPAddress  string    `json:"location"`
	ExpiresAt  time.Time `json:"expires_at"`
	LastActive time.Time `json:"lastActive"`
	CreatedAt  time.Time `json:"created_at"`
	Current    bool      `json:"current"`
}

func (s Session) Live(now time.Time) bool { return now.Before(s.ExpiresAt) }
