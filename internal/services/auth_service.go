package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/market-backend/internal/auth"
	"github.com/baharkarakas/market-backend/internal/metrics"
	"github.com/baharkarakas/market-backend/internal/models"
	repo "github.com/baharkarakas/market-backend/internal/repository"
)

const pendingLoginTTL = 10 * time.Minute

type AuthService struct {
	users    repo.Users
	sessions repo.Sessions
	tm       *auth.TokenManager
	issuer   string
	now      func() time.Time
}

func NewAuthService(u repo.Users, s repo.Sessions, tm *auth.TokenManager, issuer string) *AuthService {
	return &AuthService{users: u, sessions: s, tm: tm, issuer: issuer, now: time.Now}
}

// ClientInfo describes the device a session was opened from.
type ClientInfo struct {
	Device string
	IP     string
}

type LoginResult struct {
	RequiresTwoFactor bool       `json:"requires_2fa,omitempty"`
	TempToken         string     `json:"temp_token,omitempty"`
	Token             string     `json:"token,omitempty"`
	RefreshToken      string     `json:"refresh_token,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	UserID            int64      `json:"userId,omitempty"`
	FullName          string     `json:"fullName,omitempty"`
	Email             string     `json:"email,omitempty"`
	UserType          string     `json:"userType,omitempty"`
	Balance           *float64   `json:"balance,omitempty"`
}

// Identity is what a verified access token resolves to.
type Identity struct {
	UserID    int64
	SessionID string
}

type RegisterInput struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName string  `json:"full_name"`
	Phone    *string `json:"phone"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	u := models.User{Email: in.Email, FullName: strings.TrimSpace(in.FullName), Phone: in.Phone}
	if err := u.Validate(); err != nil {
		return models.User{}, Fail(ErrBadRequest, err.Error())
	}
	if len(in.Password) < models.MinPasswordLen {
		return models.User{}, Fail(ErrBadRequest, "Password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, err
	}
	u.PasswordHash = hash
	created, err := s.users.Create(ctx, u)
	if errors.Is(err, repo.ErrConflict) {
		return models.User{}, Fail(ErrConflict, "User already exists")
	}
	return created, err
}

func (s *AuthService) Login(ctx context.Context, login, password string, ci ClientInfo) (LoginResult, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return LoginResult{}, Fail(ErrBadRequest, "Email/phone and password are required")
	}
	u, err := s.users.GetByLogin(ctx, login)
	if errors.Is(err, repo.ErrNotFound) {
		metrics.LoginsTotal.WithLabelValues("failed").Inc()
		return LoginResult{}, Fail(ErrUnauthorized, "Invalid credentials")
	}
	if err != nil {
		return LoginResult{}, err
	}
	if auth.VerifyPassword(password, u.PasswordHash) != nil {
		metrics.LoginsTotal.WithLabelValues("failed").Inc()
		return LoginResult{}, Fail(ErrUnauthorized, "Invalid credentials")
	}

	if u.TwoFactorEnabled {
		sess, err := s.sessions.Create(ctx, models.Session{
			UserID:     u.ID,
			TokenID:    uuid.NewString(),
			Verified:   false,
			DeviceInfo: ci.Device,
			IPAddress:  ci.IP,
			ExpiresAt:  s.now().Add(pendingLoginTTL),
		})
		if err != nil {
			return LoginResult{}, err
		}
		tmp, err := s.tm.GeneratePending(u.ID, sess.TokenID, pendingLoginTTL)
		if err != nil {
			return LoginResult{}, err
		}
		metrics.LoginsTotal.WithLabelValues("2fa_required").Inc()
		return LoginResult{RequiresTwoFactor: true, TempToken: tmp}, nil
	}

	sess, err := s.sessions.Create(ctx, models.Session{
		UserID:     u.ID,
		TokenID:    uuid.NewString(),
		Verified:   true,
		DeviceInfo: ci.Device,
		IPAddress:  ci.IP,
		ExpiresAt:  s.now().Add(s.tm.RefreshTTL()),
	})
	if err != nil {
		return LoginResult{}, err
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	return s.issue(u, sess.TokenID)
}

func (s *AuthService) issue(u models.User, sessionID string) (LoginResult, error) {
	access, refresh, exp, err := s.tm.GeneratePair(u.ID, sessionID)
	if err != nil {
		return LoginResult{}, err
	}
	bal := u.Balance
	return LoginResult{
		Token:        access,
		RefreshToken: refresh,
		ExpiresAt:    &exp,
		UserID:       u.ID,
		FullName:     u.FullName,
		Email:        u.Email,
		UserType:     u.UserType,
		Balance:      &bal,
	}, nil
}

// VerifyLogin completes a two-factor login and swaps the pending session for a full one.
func (s *AuthService) VerifyLogin(ctx context.Context, tempToken, code string) (LoginResult, error) {
	if tempToken == "" || code == "" {
		return LoginResult{}, Fail(ErrBadRequest, "temp_token and code are required")
	}
	claims, err := s.tm.Parse(tempToken, auth.TypePending)
	if err != nil {
		return LoginResult{}, Fail(ErrUnauthorized, "Invalid or expired session")
	}
	sess, err := s.sessions.GetByToken(ctx, claims.SessionID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && (sess.Verified || !sess.Live(s.now()))) {
		return LoginResult{}, Fail(ErrUnauthorized, "Invalid or expired session")
	}
	if err != nil {
		return LoginResult{}, err
	}
	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return LoginResult{}, notFound(err, "User not found")
	}
	if u.TwoFactorSecret == nil || !auth.ValidateTOTP(code, *u.TwoFactorSecret, s.now()) {
		metrics.LoginsTotal.WithLabelValues("failed").Inc()
		return LoginResult{}, Fail(ErrUnauthorized, "Invalid 2FA code")
	}

	full := models.Session{TokenID: uuid.NewString(), ExpiresAt: s.now().Add(s.tm.RefreshTTL())}
	if err := s.sessions.Verify(ctx, claims.SessionID, full); err != nil {
		return LoginResult{}, notFound(err, "Session not found")
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	return s.issue(u, full.TokenID)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (LoginResult, error) {
	if refreshToken == "" {
		return LoginResult{}, Fail(ErrBadRequest, "refresh_token is required")
	}
	claims, err := s.tm.Parse(refreshToken, auth.TypeRefresh)
	if err != nil {
		return LoginResult{}, Fail(ErrUnauthorized, "invalid refresh token")
	}
	if _, err := s.liveSession(ctx, claims.SessionID); err != nil {
		return LoginResult{}, err
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return LoginResult{}, notFound(err, "User not found")
	}
	if err := s.sessions.Touch(ctx, claims.SessionID); err != nil {
		slog.Warn("session touch failed", "user_id", u.ID, "err", err)
	}
	return s.issue(u, claims.SessionID)
}

func (s *AuthService) liveSession(ctx context.Context, tokenID string) (models.Session, error) {
	sess, err := s.sessions.GetByToken(ctx, tokenID)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Session{}, Fail(ErrUnauthorized, "Session expired")
	}
	if err != nil {
		return models.Session{}, err
	}
	if !sess.Verified || !sess.Live(s.now()) {
		return models.Session{}, Fail(ErrUnauthorized, "Session expired")
	}
	return sess, nil
}

// Authenticate resolves an access token to a live, verified session.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (Identity, error) {
	claims, err := s.tm.Parse(accessToken, auth.TypeAccess)
	if err != nil {
		return Identity{}, Fail(ErrUnauthorized, "invalid access token")
	}
	sess, err := s.liveSession(ctx, claims.SessionID)
	if err != nil {
		return Identity{}, err
	}
	if sess.UserID != claims.UserID {
		return Identity{}, Fail(ErrUnauthorized, "invalid access token")
	}
	return Identity{UserID: claims.UserID, SessionID: claims.SessionID}, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if current == "" || next == "" {
		return Fail(ErrBadRequest, "current_password and new_password are required")
	}
	if len(next) < models.MinPasswordLen {
		return Fail(ErrBadRequest, "New password must be at least 8 characters")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return notFound(err, "User not found")
	}
	if auth.VerifyPassword(current, u.PasswordHash) != nil {
		return Fail(ErrUnauthorized, "Current password is incorrect")
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

// GenerateTwoFactor returns a fresh secret; nothing is stored until EnableTwoFactor confirms it.
func (s *AuthService) GenerateTwoFactor(ctx context.Context, userID int64) (secret, url string, err error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", "", notFound(err, "User not found")
	}
	return auth.TOTPSecret(s.issuer, u.Email)
}

func (s *AuthService) EnableTwoFactor(ctx context.Context, userID int64, secret, code string) error {
	if secret == "" || code == "" {
		return Fail(ErrBadRequest, "secret and code are required")
	}
	if !auth.ValidateTOTP(code, secret, s.now()) {
		return Fail(ErrBadRequest, "Invalid code")
	}
	return notFound(s.users.SetTwoFactor(ctx, userID, &secret, true), "User not found")
}

func (s *AuthService) DisableTwoFactor(ctx context.Context, userID int64) error {
	return notFound(s.users.SetTwoFactor(ctx, userID, nil, false), "User not found")
}

func (s *AuthService) ListSessions(ctx context.Context, userID int64, currentSID string) ([]models.Session, error) {
	list, err := s.sessions.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Current = list[i].TokenID == currentSID
	}
	return list, nil
}

func (s *AuthService) DeleteSession(ctx context.Context, userID, id int64) error {
	return notFound(s.sessions.Delete(ctx, userID, id), "Session not found")
}

func (s *AuthService) DeleteOtherSessions(ctx context.Context, userID int64, currentSID string) error {
	return s.sessions.DeleteAllExcept(ctx, userID, currentSID)
}
