package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/warnet-bowar/internal/model"
)

// WarnetRepo reads venues, their rules and PC occupancy.
type WarnetRepo struct{ DB *sql.DB }

func NewWarnetRepo(db *sql.DB) *WarnetRepo { return &WarnetRepo{DB: db} }

const warnetColumns = `w.id, w.name, w.address, w.phone, w.image_url, w.open_time, w.close_time,
	w.total_pcs, w.regular_price_per_hour, w.member_price_per_hour, w.is_active, w.created_at, w.updated_at`

// WarnetSummary is a venue with its live PC counts.  PCs without a row in
// `pcs` count as available.
type WarnetSummary struct {
	model.Warnet
	OccupiedPCs    int `json:"occupied_pcs"`
	MaintenancePCs int `json:"maintenance_pcs"`
	AvailablePCs   int `json:"available_pcs"`
}

func scanWarnet(s rowScanner, dest ...any) (*model.Warnet, error) {
	var w model.Warnet
	var phone, image sql.NullString
	args := []any{&w.ID, &w.Name, &w.Address, &phone, &image, &w.OpenTime, &w.CloseTime,
		&w.TotalPCs, &w.RegularPricePerHour, &w.MemberPricePerHour, &w.IsActive, &w.CreatedAt, &w.UpdatedAt}
	if err := s.Scan(append(args, dest...)...); err != nil {
		return nil, notFound(err)
	}
	w.Phone = stringPtr(phone)
	w.ImageURL = stringPtr(image)
	return &w, nil
}

// List returns active warnets ordered by name, optionally filtered by a
// case-insensitive search over name and address.
func (r *WarnetRepo) List(ctx context.Context, search string) ([]WarnetSummary, error) {
	q := `SELECT ` + warnetColumns + `,
		COALESCE(SUM(p.status = 'occupied'), 0),
		COALESCE(SUM(p.status = 'maintenance'), 0)
		FROM warnets w
		LEFT JOIN pcs p ON p.warnet_id = w.id
		WHERE w.is_active = 1`
	var args []any
	if s := strings.TrimSpace(search); s != "" {
		q += ` AND (w.name LIKE ? OR w.address LIKE ?)`
		like := "%" + s + "%"
		args = append(args, like, like)
	}
	q += ` GROUP BY w.id ORDER BY w.name ASC`

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]WarnetSummary, 0)
	for rows.Next() {
		var occ, mnt int
		w, err := scanWarnet(rows, &occ, &mnt)
		if err != nil {
			return nil, err
		}
		avail := int(w.TotalPCs) - occ - mnt
		if avail < 0 {
			avail = 0
		}
		out = append(out, WarnetSummary{Warnet: *w, OccupiedPCs: occ, MaintenancePCs: mnt, AvailablePCs: avail})
	}
	return out, rows.Err()
}

// GetByID returns a warnet regardless of its active flag.
func (r *WarnetRepo) GetByID(ctx context.Context, id uint64) (*model.Warnet, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+warnetColumns+` FROM warnets w WHERE w.id = ? LIMIT 1`, id)
	return scanWarnet(row)
}

// Rules lists the house rules of a warnet in display order.
func (r *WarnetRepo) Rules(ctx context.Context, warnetID uint64) ([]model.WarnetRule, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, warnet_id, rule, sort_order FROM warnet_rules WHERE warnet_id = ? ORDER BY sort_order, id`,
		warnetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.WarnetRule, 0)
	for rows.Next() {
		var rl model.WarnetRule
		if err := rows.Scan(&rl.ID, &rl.WarnetID, &rl.Rule, &rl.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, rl)
	}
	return out, rows.Err()
}
