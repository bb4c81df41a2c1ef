package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/warnet-bowar/internal/model"
)

// WalletRepo owns DompetBowar balances.  Balance changes happen only in a
// caller-owned transaction so the matching ledger row commits with them.
type WalletRepo struct{ DB *sql.DB }

func NewWalletRepo(db *sql.DB) *WalletRepo { return &WalletRepo{DB: db} }

const walletColumns = `id, user_id, warnet_id, balance, created_at, updated_at`

func scanWallet(s rowScanner) (*model.CafeWallet, error) {
	var w model.CafeWallet
	if err := s.Scan(&w.ID, &w.UserID, &w.WarnetID, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &w, nil
}

// WalletView is a balance with its venue name for the wallet overview.
type WalletView struct {
	model.CafeWallet
	WarnetName string `json:"warnet_name"`
}

// ListByUser returns every wallet the user holds.
func (r *WalletRepo) ListByUser(ctx context.Context, userID uint64) ([]WalletView, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT cw.id, cw.user_id, cw.warnet_id, cw.balance, cw.created_at, cw.updated_at, w.name
		 FROM cafe_wallets cw JOIN warnets w ON w.id = cw.warnet_id
		 WHERE cw.user_id = ? ORDER BY w.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]WalletView, 0)
	for rows.Next() {
		var v WalletView
		if err := rows.Scan(&v.ID, &v.UserID, &v.WarnetID, &v.Balance, &v.CreatedAt, &v.UpdatedAt, &v.WarnetName); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetForUpdateTx locks the (user, warnet) wallet.  ErrNotFound when the
// user never had one.
func (r *WalletRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, userID, warnetID uint64) (*model.CafeWallet, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM cafe_wallets WHERE user_id = ? AND warnet_id = ? FOR UPDATE`,
		userID, warnetID)
	return scanWallet(row)
}

// EnsureForUpdateTx creates the wallet with a zero balance if missing and
// returns it locked.
func (r *WalletRepo) EnsureForUpdateTx(ctx context.Context, tx *sql.Tx, userID, warnetID uint64) (*model.CafeWallet, error) {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cafe_wallets (user_id, warnet_id, balance) VALUES (?, ?, 0)
		 ON DUPLICATE KEY UPDATE id = id`,
		userID, warnetID); err != nil {
		return nil, err
	}
	return r.GetForUpdateTx(ctx, tx, userID, warnetID)
}

// DebitTx subtracts amount only if the balance covers it; otherwise it
// returns ErrInsufficientBalance and nothing changes.
func (r *WalletRepo) DebitTx(ctx context.Context, tx *sql.Tx, walletID uint64, amount decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE cafe_wallets SET balance = balance - ? WHERE id = ? AND balance >= ?`,
		amount, walletID, amount)
	if err != nil {
		return err
	}
	return expectOne(res, ErrInsufficientBalance)
}

// CreditTx adds amount to the wallet.
func (r *WalletRepo) CreditTx(ctx context.Context, tx *sql.Tx, walletID uint64, amount decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE cafe_wallets SET balance = balance + ? WHERE id = ?`, amount, walletID)
	if err != nil {
		return err
	}
	return expectOne(res, ErrNotFound)
}
