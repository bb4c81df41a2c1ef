package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/warnet-bowar/internal/model"
)

// BookingRepo persists bookings.  Status changes are compare-and-set
// updates: each one names the state it expects and returns ErrConflict
// when the row has already moved on.
type BookingRepo struct{ DB *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

const bookingColumns = `id, user_id, warnet_id, pc_number, booking_date, start_time, duration_hours,
	price_per_hour, total_price, is_member_price, payment_method, status, payment_status, can_cancel_until,
	payment_proof_url, payer_name, approved_by, approved_at, rejection_note, cancelled_at, completed_at,
	created_at, updated_at`

func scanBooking(s rowScanner) (*model.Booking, error) {
	var (
		b                             model.Booking
		proof, payer, note            sql.NullString
		approvedBy                    sql.NullInt64
		approvedAt, cancelled, closed sql.NullTime
	)
	if err := s.Scan(&b.ID, &b.UserID, &b.WarnetID, &b.PCNumber, &b.BookingDate, &b.StartTime, &b.DurationHours,
		&b.PricePerHour, &b.TotalPrice, &b.IsMemberPrice, &b.PaymentMethod, &b.Status, &b.PaymentStatus, &b.CanCancelUntil,
		&proof, &payer, &approvedBy, &approvedAt, &note, &cancelled, &closed,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	b.PaymentProofURL = stringPtr(proof)
	b.PayerName = stringPtr(payer)
	b.ApprovedBy = uint64Ptr(approvedBy)
	b.ApprovedAt = timePtr(approvedAt)
	b.RejectionNote = stringPtr(note)
	b.CancelledAt = timePtr(cancelled)
	b.CompletedAt = timePtr(closed)
	return &b, nil
}

// CreateTx inserts a booking in its initial state and sets b.ID.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, warnet_id, pc_number, booking_date, start_time, duration_hours,
			price_per_hour, total_price, is_member_price, payment_method, status, payment_status,
			can_cancel_until, payment_proof_url, payer_name)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.UserID, b.WarnetID, b.PCNumber, b.BookingDate.Format("2006-01-02"), b.StartTime, b.DurationHours,
		b.PricePerHour, b.TotalPrice, b.IsMemberPrice, b.PaymentMethod, b.Status, b.PaymentStatus,
		b.CanCancelUntil, b.PaymentProofURL, b.PayerName)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	return scanBooking(row)
}

// GetByIDForUpdateTx locks the booking row for the rest of tx.
func (r *BookingRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id)
	return scanBooking(row)
}

// MarkPaidTx moves a pending booking to active/paid.  approvedBy is nil
// when the wallet settled the payment.
func (r *BookingRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, id uint64, approvedBy *uint64, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'active', payment_status = 'paid', approved_by = ?, approved_at = ?
		 WHERE id = ? AND status = 'pending' AND payment_status = 'pending'`,
		approvedBy, at, id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrConflict)
}

// MarkRejectedTx moves a pending booking to cancelled/rejected.
func (r *BookingRepo) MarkRejectedTx(ctx context.Context, tx *sql.Tx, id, rejectedBy uint64, note *string, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'cancelled', payment_status = 'rejected', approved_by = ?, approved_at = ?,
			rejection_note = ?, cancelled_at = ?
		 WHERE id = ? AND status = 'pending' AND payment_status = 'pending'`,
		rejectedBy, at, note, at, id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrConflict)
}

// CancelTx cancels a booking that is still pending or active.
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'cancelled', cancelled_at = ?
		 WHERE id = ? AND status IN ('pending', 'active')`,
		at, id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrConflict)
}

// CompleteTx closes an active booking.
func (r *BookingRepo) CompleteTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'completed', completed_at = ? WHERE id = ? AND status = 'active'`,
		at, id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrConflict)
}

// BookingFilter narrows List.  Zero values mean "any".
type BookingFilter struct {
	UserID        *uint64
	WarnetID      *uint64
	Status        string
	PaymentStatus string
	Date          *time.Time
	Page          Page
}

func (f BookingFilter) where() (string, []any) {
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
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.PaymentStatus != "" {
		conds = append(conds, "payment_status = ?")
		args = append(args, f.PaymentStatus)
	}
	if f.Date != nil {
		conds = append(conds, "booking_date = ?")
		args = append(args, f.Date.Format("2006-01-02"))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns one page of bookings, newest first, with the total count.
func (r *BookingRepo) List(ctx context.Context, f BookingFilter) ([]model.Booking, int, error) {
	p := f.Page.Normalize()
	where, args := f.where()

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings`+where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *b)
	}
	return out, total, rows.Err()
}
