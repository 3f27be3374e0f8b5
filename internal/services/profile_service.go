package services

import (
	"context"

	"github.com/baharkarakas/market-backend/internal/models"
	repo "github.com/baharkarakas/market-backend/internal/repository"
)

type ProfileService struct {
	users    repo.Users
	balances repo.Balances
}

func NewProfileService(u repo.Users, b repo.Balances) *ProfileService {
	return &ProfileService{users: u, balances: b}
}

func (s *ProfileService) Get(ctx context.Context, userID int64) (models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	return u, notFound(err, "User not found")
}

func (s *ProfileService) Update(ctx context.Context, userID int64, p models.ProfileUpdate) (models.User, error) {
	if p.Empty() {
		return models.User{}, Fail(ErrBadRequest, "No fields to update")
	}
	u, err := s.users.UpdateProfile(ctx, userID, p)
	return u, notFound(err, "User not found")
}

// Balance returns the wallet amount with a page of escrow ledger entries.
func (s *ProfileService) Balance(ctx context.Context, userID int64, limit, offset int) (models.Balance, error) {
	amount, err := s.balances.Get(ctx, userID)
	if err != nil {
		return models.Balance{}, notFound(err, "User not found")
	}
	txs, err := s.balances.ListTransactions(ctx, userID, limit, offset)
	if err != nil {
		return models.Balance{}, err
	}
	return models.Balance{UserID: userID, Amount: amount, Transactions: txs}, nil
}
