package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/warnet-bowar/internal/model"
)

// TransactionRepo stores the DompetBowar ledger (bowar_transactions).
type TransactionRepo struct{ DB *sql.DB }

func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{DB: db} }

const txColumns = `id, user_id, warnet_id, booking_id, type, amount, status, payment_method, proof_url,
	payer_name, description, approved_by, approved_at, rejection_note, created_at, updated_at`

func scanTransaction(s rowScanner) (*model.BowarTransaction, error) {
	var (
		t                                model.BowarTransaction
		booking, approvedBy              sql.NullInt64
		method, proof, payer, desc, note sql.NullString
		approvedAt                       sql.NullTime
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.WarnetID, &booking, &t.Type, &t.Amount, &t.Status, &method, &proof,
		&payer, &desc, &approvedBy, &approvedAt, &note, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	t.BookingID = uint64Ptr(booking)
	t.PaymentMethod = stringPtr(method)
	t.ProofURL = stringPtr(proof)
	t.PayerName = stringPtr(payer)
	t.Description = stringPtr(desc)
	t.ApprovedBy = uint64Ptr(approvedBy)
	t.ApprovedAt = timePtr(approvedAt)
	t.RejectionNote = stringPtr(note)
	return &t, nil
}

func insertTransaction(ctx context.Context, ex execer, t *model.BowarTransaction) error {
	res, err := ex.ExecContext(ctx,
		`INSERT INTO bowar_transactions (user_id, warnet_id, booking_id, type, amount, status, payment_method,
			proof_url, payer_name, description, approved_by, approved_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.UserID, t.WarnetID, t.BookingID, t.Type, t.Amount, t.Status, t.PaymentMethod,
		t.ProofURL, t.PayerName, t.Description, t.ApprovedBy, t.ApprovedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// Create inserts a ledger row outside any transaction (pending top-ups).
func (r *TransactionRepo) Create(ctx context.Context, t *model.BowarTransaction) error {
	return insertTransaction(ctx, r.DB, t)
}

// CreateTx inserts a ledger row inside tx and sets t.ID.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.BowarTransaction) error {
	return insertTransaction(ctx, tx, t)
}

func (r *TransactionRepo) GetByID(ctx context.Context, id uint64) (*model.BowarTransaction, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+txColumns+` FROM bowar_transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

func (r *TransactionRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.BowarTransaction, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+txColumns+` FROM bowar_transactions WHERE id = ? FOR UPDATE`, id)
	return scanTransaction(row)
}

// FindBookingPaymentTx returns the completed payment that settled a booking.
func (r *TransactionRepo) FindBookingPaymentTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (*model.BowarTransaction, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM bowar_transactions
		 WHERE booking_id = ? AND type = 'payment' AND status = 'completed'
		 ORDER BY id DESC LIMIT 1`, bookingID)
	return scanTransaction(row)
}

// CompleteTx moves a pending row to completed.
func (r *TransactionRepo) CompleteTx(ctx context.Context, tx *sql.Tx, id, approvedBy uint64, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bowar_transactions SET status = 'completed', approved_by = ?, approved_at = ?
		 WHERE id = ? AND status = 'pending'`,
		approvedBy, at, id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrConflict)
}

// FailTx moves a pending row to failed with an optional note.
func (r *TransactionRepo) FailTx(ctx context.Context, tx *sql.Tx, id, rejectedBy uint64, note *string, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bowar_transactions SET status = 'failed', approved_by = ?, approved_at = ?, rejection_note = ?
		 WHERE id = ? AND status = 'pending'`,
		rejectedBy, at, note, id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrConflict)
}

// TransactionFilter narrows List.  Zero values mean "any".
type TransactionFilter struct {
	UserID   *uint64
	WarnetID *uint64
	Type     string
	Status   string
	Page     Page
}

func (f TransactionFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.UserID != nil {
		conds = append(conds, "user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.WarnetID != nil {
		conds = append(conds, "warnet_id = ?")
		args = append(args, *f.WarnetID)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, f.Type)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns one page of ledger rows, newest first, with the total count.
func (r *TransactionRepo) List(ctx context.Context, f TransactionFilter) ([]model.BowarTransaction, int, error) {
	p := f.Page.Normalize()
	where, args := f.where()

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM bowar_transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+txColumns+` FROM bowar_transactions`+where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.BowarTransaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	return out, total, rows.Err()
}
