package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking statuses.  pending → active on payment, any non-terminal state →
// cancelled, active → completed when the session ends.
const (
	BookingPending   = "pending"
	BookingActive    = "active"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
)

// Payment statuses.  pending transitions exactly once, to paid or rejected.
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentRejected = "rejected"
)

// Payment methods accepted for bookings.  Only DompetBowar settles inside
// the booking transaction; the others wait for an operator.
const (
	MethodDompetBowar  = "dompet_bowar"
	MethodBankTransfer = "bank_transfer"
	MethodCash         = "cash"
)

// ValidPaymentMethod reports whether m is an accepted payment method.
func ValidPaymentMethod(m string) bool {
	switch m {
	case MethodDompetBowar, MethodBankTransfer, MethodCash:
		return true
	}
	return false
}

// Booking reserves a PC at a warnet for a number of hours.
//
// Fields:
//
//	BookingDate/StartTime – local date and HH:MM start of the session.
//	DurationHours         – booked hours.
//	PricePerHour          – member or regular rate applied at creation.
//	TotalPrice            – PricePerHour × DurationHours.
//	CanCancelUntil        – the owner may cancel until this instant.
//	PaymentProofURL       – relative URL of the bank transfer proof.
//	ApprovedBy/ApprovedAt – operator decision on a pending payment.
type Booking struct {
	ID              uint64          `json:"id"`
	UserID          uint64          `json:"user_id"`
	WarnetID        uint64          `json:"warnet_id"`
	PCNumber        uint32          `json:"pc_number"`
	BookingDate     time.Time       `json:"booking_date"`
	StartTime       string          `json:"start_time"`
	DurationHours   uint32          `json:"duration_hours"`
	PricePerHour    decimal.Decimal `json:"price_per_hour"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	IsMemberPrice   bool            `json:"is_member_price"`
	PaymentMethod   string          `json:"payment_method"`
	Status          string          `json:"status"`
	PaymentStatus   string          `json:"payment_status"`
	CanCancelUntil  time.Time       `json:"can_cancel_until"`
	PaymentProofURL *string         `json:"payment_proof_url,omitempty"`
	PayerName       *string         `json:"payer_name,omitempty"`
	ApprovedBy      *uint64         `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	RejectionNote   *string         `json:"rejection_note,omitempty"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsTerminal reports whether the booking can no longer change status.
func (b Booking) IsTerminal() bool {
	return b.Status == BookingCancelled || b.Status == BookingCompleted
}

// CancellableAt reports whether the owner may cancel the booking at now:
// the status is not terminal and now is not past CanCancelUntil.
func (b Booking) CancellableAt(now time.Time) bool {
	return !b.IsTerminal() && !now.After(b.CanCancelUntil)
}
