package models

import "time"

type TransactionType string

const (
	TxnEscrowHold    TransactionType = "escrow_hold"
	TxnEscrowRelease TransactionType = "escrow_release"
	TxnEscrowRefund  TransactionType = "escrow_refund"
)

// Transaction is one escrow ledger entry. Release and refund entries move money to UserID.
type Transaction struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	DealID    *int64          `json:"deal_id"`
	Type      TransactionType `json:"type"`
	Amount    float64         `json:"amount"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
}

type Balance struct {
	UserID       int64         `json:"user_id"`
	Amount       float64       `json:"amount"`
	Transactions []Transaction `json:"transactions"`
}
