package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CafeWallet is the DompetBowar balance of one user at one warnet.  The
// balance is never negative and only changes inside a database transaction
// that also writes a BowarTransaction.
type CafeWallet struct {
	ID        uint64          `json:"id"`
	UserID    uint64          `json:"user_id"`
	WarnetID  uint64          `json:"warnet_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Transaction types.
const (
	TxTopup   = "topup"
	TxPayment = "payment"
	TxRefund  = "refund"
)

// Transaction statuses.  Top-ups start pending and reach the wallet only
// when an operator completes them.
const (
	TxPending   = "pending"
	TxCompleted = "completed"
	TxFailed    = "failed"
)

// BowarTransaction is one entry of the wallet log.  Amount is signed:
// negative for payments, positive for top-ups and refunds.
type BowarTransaction struct {
	ID            uint64          `json:"id"`
	UserID        uint64          `json:"user_id"`
	WarnetID      uint64          `json:"warnet_id"`
	BookingID     *uint64         `json:"booking_id,omitempty"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	PaymentMethod *string         `json:"payment_method,omitempty"`
	ProofURL      *string         `json:"proof_url,omitempty"`
	PayerName     *string         `json:"payer_name,omitempty"`
	Description   *string         `json:"description,omitempty"`
	ApprovedBy    *uint64         `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time      `json:"approved_at,omitempty"`
	RejectionNote *string         `json:"rejection_note,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
