package model

import "time"

// PC statuses.
const (
	PCAvailable   = "available"
	PCOccupied    = "occupied"
	PCMaintenance = "maintenance"
)

// PC tracks the current occupancy of one physical machine, keyed by
// (warnet, pc number).  CurrentBookingID points at the booking occupying
// it and is cleared when that booking ends or is cancelled.
type PC struct {
	ID               uint64    `json:"id"`
	WarnetID         uint64    `json:"warnet_id"`
	PCNumber         uint32    `json:"pc_number"`
	Spec             *string   `json:"spec,omitempty"`
	Status           string    `json:"status"`
	CurrentBookingID *uint64   `json:"current_booking_id,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}
