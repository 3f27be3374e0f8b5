// Package testutil provides in-memory repositories and HTTP helpers so
// services and handlers can be tested without a database.
package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/baharkarakas/market-backend/internal/models"
	repo "github.com/baharkarakas/market-backend/internal/repository"
	"github.com/baharkarakas/market-backend/internal/repository/postgres"
)

// Store holds every table in memory behind one mutex.
type Store struct {
	mu  sync.Mutex
	// txMu serializes exchange transactions the way row locks do in postgres.
	txMu sync.Mutex
	seq int64
	// Down makes every repository call fail with repository.ErrUnavailable.
	Down bool

	users        map[int64]*models.User
	sessions     map[int64]*models.Session
	roles        map[int64]*models.Role
	userRoles    map[[2]int64]models.UserRole
	permissions  map[int64]*models.Permission
	rolePerms    map[[2]int64]bool
	overrides    map[[2]int64]models.PermissionOverride
	bots         map[int64]*models.Bot
	botNodes     []models.BotNode
	botConns     []models.BotConnection
	blocks       map[int64]*models.Block
	items        map[int64]*models.MarketItem
	stock        []*models.AutoDeliveryItem
	purchases    map[int64]*models.Purchase
	itemReviews  []models.ItemReview
	services     []models.Service
	orders       map[int64]*models.Order
	orderViews   map[string]bool
	proposals    map[int64]*models.Proposal
	deals        map[int64]*models.Deal
	dealMessages []models.DealMessage
	reviews      []models.Review
	portfolio    []models.PortfolioItem
	skills       map[int64][]models.Skill
	transactions []models.Transaction
	tickets      map[int64]*models.Ticket
	ticketMsgs   []models.TicketMessage
	files        map[string]models.StoredFile
	subs         []models.Subscription
	auditLogs    []models.AuditLog
}

// NewStore returns an empty store seeded with the system roles.
func NewStore() *Store {
	s := &Store{
		users:       map[int64]*models.User{},
		sessions:    map[int64]*models.Session{},
		roles:       map[int64]*models.Role{},
		userRoles:   map[[2]int64]models.UserRole{},
		permissions: map[int64]*models.Permission{},
		rolePerms:   map[[2]int64]bool{},
		overrides:   map[[2]int64]models.PermissionOverride{},
		bots:        map[int64]*models.Bot{},
		blocks:      map[int64]*models.Block{},
		items:       map[int64]*models.MarketItem{},
		purchases:   map[int64]*models.Purchase{},
		orders:      map[int64]*models.Order{},
		orderViews:  map[string]bool{},
		proposals:   map[int64]*models.Proposal{},
		deals:       map[int64]*models.Deal{},
		skills:      map[int64][]models.Skill{},
		tickets:     map[int64]*models.Ticket{},
		files:       map[string]models.StoredFile{},
	}
	for _, name := range []string{models.RoleOwner, models.RoleAdmin, models.RoleSupport, "user"} {
		id := s.next()
		s.roles[id] = &models.Role{ID: id, Name: name, DisplayName: strings.ToUpper(name[:1]) + name[1:], IsSystem: true, CreatedAt: time.Now()}
	}
	for _, p := range []string{"users.manage", "roles.manage", "support.handle", "marketplace.moderate"} {
		id := s.next()
		s.permissions[id] = &models.Permission{ID: id, Name: p, DisplayName: p, Category: strings.Split(p, ".")[0]}
	}
	return s
}

// Repos exposes the store through the same struct the postgres factory returns.
func (s *Store) Repos() postgres.Repositories {
	return postgres.Repositories{
		Users:       (*usersMem)(s),
		Sessions:    (*sessionsMem)(s),
		Roles:       (*rolesMem)(s),
		Bots:        (*botsMem)(s),
		Blocks:      (*blocksMem)(s),
		Marketplace: (*marketMem)(s),
		Exchange:    (*exchangeMem)(s),
		Balances:    (*balancesMem)(s),
		Support:     (*supportMem)(s),
		Files:       (*filesMem)(s),
		Newsletter:  (*newsletterMem)(s),
		AuditLogs:   (*auditMem)(s),
	}
}

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

// lock acquires the store and reports the simulated outage, if any.
func (s *Store) lock() error {
	s.mu.Lock()
	if s.Down {
		s.mu.Unlock()
		return repo.ErrUnavailable
	}
	return nil
}

func (s *Store) unlock() { s.mu.Unlock() }

// SeedUser inserts a user directly and returns it.
func (s *Store) SeedUser(u models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.next()
	if u.UserType == "" {
		u.UserType = "user"
	}
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	s.users[u.ID] = &u
	return u
}

// GrantRole gives the user a role by name.
func (s *Store) GrantRole(userID int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles {
		if r.Name == name {
			s.userRoles[[2]int64{userID, r.ID}] = models.UserRole{UserID: userID, RoleID: r.ID, AssignedAt: time.Now()}
		}
	}
}

// User returns a copy of the stored user.
func (s *Store) User(id int64) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return *u
	}
	return models.User{}
}

// AuditActions lists recorded audit entries as "entity:action".
func (s *Store) AuditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.auditLogs))
	for _, l := range s.auditLogs {
		out = append(out, l.EntityType+":"+l.Action)
	}
	return out
}

// SetDown toggles the simulated database outage.
func (s *Store) SetDown(down bool) {
	s.mu.Lock()
	s.Down = down
	s.mu.Unlock()
}

// Transactions returns the escrow ledger.
func (s *Store) Transactions() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Transaction(nil), s.transactions...)
}

// ---------- users ----------

type usersMem Store

func (m *usersMem) s() *Store { return (*Store)(m) }

func (m *usersMem) Create(_ context.Context, u models.User) (models.User, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.User{}, err
	}
	defer s.unlock()
	for _, ex := range s.users {
		if strings.EqualFold(ex.Email, u.Email) {
			return models.User{}, repo.ErrConflict
		}
	}
	u.ID = s.next()
	if u.UserType == "" {
		u.UserType = "user"
	}
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	s.users[u.ID] = &u
	return u, nil
}

func (m *usersMem) GetByID(_ context.Context, id int64) (models.User, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.User{}, err
	}
	defer s.unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, repo.ErrNotFound
	}
	return *u, nil
}

func (m *usersMem) GetByLogin(_ context.Context, login string) (models.User, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.User{}, err
	}
	defer s.unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, login) || (u.Phone != nil && *u.Phone == login) {
			return *u, nil
		}
	}
	return models.User{}, repo.ErrNotFound
}

func (m *usersMem) UpdateProfile(_ context.Context, id int64, p models.ProfileUpdate) (models.User, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.User{}, err
	}
	defer s.unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, repo.ErrNotFound
	}
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Phone != nil {
		u.Phone = p.Phone
	}
	if p.Company != nil {
		u.Company = p.Company
	}
	if p.About != nil {
		u.About = p.About
	}
	if p.ProfilePhotoURL != nil {
		u.ProfilePhotoURL = p.ProfilePhotoURL
	}
	u.UpdatedAt = time.Now()
	return *u, nil
}

func (m *usersMem) UpdatePassword(_ context.Context, id int64, hash string) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	u, ok := s.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *usersMem) SetTwoFactor(_ context.Context, id int64, secret *string, enabled bool) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	u, ok := s.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.TwoFactorSecret, u.TwoFactorEnabled = secret, enabled
	return nil
}

// ---------- sessions ----------

type sessionsMem Store

func (m *sessionsMem) s() *Store { return (*Store)(m) }

func (m *sessionsMem) Create(_ context.Context, sess models.Session) (models.Session, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Session{}, err
	}
	defer s.unlock()
	sess.ID = s.next()
	sess.CreatedAt, sess.LastActive = time.Now(), time.Now()
	s.sessions[sess.ID] = &sess
	return sess, nil
}

func (s *Store) sessionByToken(tokenID string) *models.Session {
	for _, sess := range s.sessions {
		if sess.TokenID == tokenID {
			return sess
		}
	}
	return nil
}

func (m *sessionsMem) GetByToken(_ context.Context, tokenID string) (models.Session, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return models.Session{}, err
	}
	defer s.unlock()
	if sess := s.sessionByToken(tokenID); sess != nil {
		return *sess, nil
	}
	return models.Session{}, repo.ErrNotFound
}

func (m *sessionsMem) Verify(_ context.Context, tokenID string, next models.Session) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	sess := s.sessionByToken(tokenID)
	if sess == nil || sess.Verified {
		return repo.ErrNotFound
	}
	sess.TokenID, sess.Verified, sess.ExpiresAt, sess.LastActive = next.TokenID, true, next.ExpiresAt, time.Now()
	return nil
}

func (m *sessionsMem) Touch(_ context.Context, tokenID string) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	if sess := s.sessionByToken(tokenID); sess != nil {
		sess.LastActive = time.Now()
	}
	return nil
}

func (m *sessionsMem) ListActive(_ context.Context, userID int64) ([]models.Session, error) {
	s := m.s()
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.Session{}
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.Verified && sess.Live(time.Now()) {
			out = append(out, *sess)
		}
	}
	return out, nil
}

func (m *sessionsMem) Delete(_ context.Context, userID, id int64) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.UserID != userID {
		return repo.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (m *sessionsMem) DeleteAllExcept(_ context.Context, userID int64, keep string) error {
	s := m.s()
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	for id, sess := range s.sessions {
		if sess.UserID == userID && sess.TokenID != keep {
			delete(s.sessions, id)
		}
	}
	return nil
}

// ---------- balances & audit ----------

type balancesMem Store

func (m *balancesMem) Get(_ context.Context, userID int64) (float64, error) {
	s := (*Store)(m)
	if err := s.lock(); err != nil {
		return 0, err
	}
	defer s.unlock()
	u, ok := s.users[userID]
	if !ok {
		return 0, repo.ErrNotFound
	}
	return u.Balance, nil
}

func (m *balancesMem) ListTransactions(_ context.Context, userID int64, limit, offset int) ([]models.Transaction, error) {
	s := (*Store)(m)
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.unlock()
	out := []models.Transaction{}
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].UserID == userID {
			out = append(out, s.transactions[i])
		}
	}
	return page(out, limit, offset), nil
}

func page[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return []T{}
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

type auditMem Store

func (m *auditMem) Create(_ context.Context, l models.AuditLog) error {
	s := (*Store)(m)
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	l.ID = s.next()
	l.CreatedAt = time.Now()
	s.auditLogs = append(s.auditLogs, l)
	return nil
}
