package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
	// TypePending marks a login that still owes a second factor.
	TypePending = "2fa"
)

var ErrInvalidToken = errors.New("invalid token")

type TokenManager struct {
	issuer        string
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenManager(issuer, accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		issuer:        issuer,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// Claims bind a token to a stored session; revoking the session revokes the token.
type Claims struct {
	UserID    int64  `json:"uid"`
	SessionID string `json:"sid"`
	Type      string `json:"typ"`
	jwt.RegisteredClaims
}

func (tm *TokenManager) RefreshTTL() time.Duration { return tm.refreshTTL }

func (tm *TokenManager) sign(userID int64, sessionID, typ string, ttl time.Duration, secret []byte) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := Claims{
		UserID:    userID,
		SessionID: sessionID,
		Type:      typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	return s, exp, err
}

// GeneratePair issues an access and a refresh token for one session.
func (tm *TokenManager) GeneratePair(userID int64, sessionID string) (access, refresh string, accessExp time.Time, err error) {
	access, accessExp, err = tm.sign(userID, sessionID, TypeAccess, tm.accessTTL, tm.accessSecret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	refresh, _, err = tm.sign(userID, sessionID, TypeRefresh, tm.refreshTTL, tm.refreshSecret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return access, refresh, accessExp, nil
}

// GeneratePending issues the short lived token handed out before the second factor.
func (tm *TokenManager) GeneratePending(userID int64, sessionID string, ttl time.Duration) (string, error) {
	s, _, err := tm.sign(userID, sessionID, TypePending, ttl, tm.accessSecret)
	return s, err
}

// Parse validates a token of the wanted type.
func (tm *TokenManager) Parse(tokenStr, want string) (*Claims, error) {
	secret := tm.accessSecret
	if want == TypeRefresh {
		secret = tm.refreshSecret
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tm.issuer))
	if err != nil || claims.Type != want || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
