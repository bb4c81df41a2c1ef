package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/warnet-bowar/internal/model"
	"github.com/iliyamo/warnet-bowar/internal/repository"
)

// The interfaces below are implemented by the repository package; tests
// substitute in-memory fakes.

type BookingStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error)
	MarkPaidTx(ctx context.Context, tx *sql.Tx, id uint64, approvedBy *uint64, at time.Time) error
	MarkRejectedTx(ctx context.Context, tx *sql.Tx, id, rejectedBy uint64, note *string, at time.Time) error
	CancelTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error
	CompleteTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error
	List(ctx context.Context, f repository.BookingFilter) ([]model.Booking, int, error)
}

type WalletStore interface {
	ListByUser(ctx context.Context, userID uint64) ([]repository.WalletView, error)
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, userID, warnetID uint64) (*model.CafeWallet, error)
	EnsureForUpdateTx(ctx context.Context, tx *sql.Tx, userID, warnetID uint64) (*model.CafeWallet, error)
	DebitTx(ctx context.Context, tx *sql.Tx, walletID uint64, amount decimal.Decimal) error
	CreditTx(ctx context.Context, tx *sql.Tx, walletID uint64, amount decimal.Decimal) error
}

type TransactionStore interface {
	Create(ctx context.Context, t *model.BowarTransaction) error
	CreateTx(ctx context.Context, tx *sql.Tx, t *model.BowarTransaction) error
	GetByID(ctx context.Context, id uint64) (*model.BowarTransaction, error)
	GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.BowarTransaction, error)
	FindBookingPaymentTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (*model.BowarTransaction, error)
	CompleteTx(ctx context.Context, tx *sql.Tx, id, approvedBy uint64, at time.Time) error
	FailTx(ctx context.Context, tx *sql.Tx, id, rejectedBy uint64, note *string, at time.Time) error
	List(ctx context.Context, f repository.TransactionFilter) ([]model.BowarTransaction, int, error)
}

type PCStore interface {
	ListByWarnet(ctx context.Context, warnetID uint64) ([]model.PC, error)
	GetTx(ctx context.Context, tx *sql.Tx, warnetID uint64, pcNumber uint32) (*model.PC, error)
	OccupyTx(ctx context.Context, tx *sql.Tx, warnetID uint64, pcNumber uint32, bookingID uint64) error
	ReleaseTx(ctx context.Context, tx *sql.Tx, warnetID uint64, pcNumber uint32, bookingID uint64) (bool, error)
}

type WarnetStore interface {
	List(ctx context.Context, search string) ([]repository.WarnetSummary, error)
	GetByID(ctx context.Context, id uint64) (*model.Warnet, error)
	Rules(ctx context.Context, warnetID uint64) ([]model.WarnetRule, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

type ChatStore interface {
	Create(ctx context.Context, m *model.ChatMessage) error
	ListThread(ctx context.Context, userID, warnetID uint64, limit int) ([]model.ChatMessage, error)
	MarkRead(ctx context.Context, userID, warnetID uint64, senderRole string) (int64, error)
	Conversations(ctx context.Context, warnetID uint64) ([]model.Conversation, error)
}
