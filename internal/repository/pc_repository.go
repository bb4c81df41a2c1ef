package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/warnet-bowar/internal/model"
)

// PCRepo tracks PC occupancy.  Rows are created lazily: a PC number with
// no row is available.
type PCRepo struct{ DB *sql.DB }

func NewPCRepo(db *sql.DB) *PCRepo { return &PCRepo{DB: db} }

const pcColumns = `id, warnet_id, pc_number, spec, status, current_booking_id, updated_at`

func scanPC(s rowScanner) (*model.PC, error) {
	var p model.PC
	var spec sql.NullString
	var booking sql.NullInt64
	if err := s.Scan(&p.ID, &p.WarnetID, &p.PCNumber, &spec, &p.Status, &booking, &p.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	p.Spec = stringPtr(spec)
	p.CurrentBookingID = uint64Ptr(booking)
	return &p, nil
}

// ListByWarnet returns the stored PC rows of a warnet ordered by number.
func (r *PCRepo) ListByWarnet(ctx context.Context, warnetID uint64) ([]model.PC, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+pcColumns+` FROM pcs WHERE warnet_id = ? ORDER BY pc_number`, warnetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.PC, 0)
	for rows.Next() {
		p, err := scanPC(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// GetTx locks and returns the PC row, or ErrNotFound when none exists yet.
func (r *PCRepo) GetTx(ctx context.Context, tx *sql.Tx, warnetID uint64, pcNumber uint32) (*model.PC, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+pcColumns+` FROM pcs WHERE warnet_id = ? AND pc_number = ? FOR UPDATE`, warnetID, pcNumber)
	return scanPC(row)
}

// OccupyTx marks the PC occupied by bookingID, creating the row if needed.
func (r *PCRepo) OccupyTx(ctx context.Context, tx *sql.Tx, warnetID uint64, pcNumber uint32, bookingID uint64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO pcs (warnet_id, pc_number, status, current_booking_id) VALUES (?, ?, 'occupied', ?)
		 ON DUPLICATE KEY UPDATE status = 'occupied', current_booking_id = VALUES(current_booking_id)`,
		warnetID, pcNumber, bookingID)
	return err
}

// ReleaseTx frees the PC only if it still points at bookingID.  It reports
// whether a row was released.
func (r *PCRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, warnetID uint64, pcNumber uint32, bookingID uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE pcs SET status = 'available', current_booking_id = NULL
		 WHERE warnet_id = ? AND pc_number = ? AND current_booking_id = ?`,
		warnetID, pcNumber, bookingID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
