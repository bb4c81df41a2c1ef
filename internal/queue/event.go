// Package queue defines message payloads exchanged over the message broker,
// the publisher used by services and the consumer that records them.
package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Routing keys on the events exchange.  The consumer binds "#" and so
// receives all of them.
const (
	BookingCreated   = "booking.created"
	BookingCancelled = "booking.cancelled"
	BookingApproved  = "booking.approved"
	BookingRejected  = "booking.rejected"
	BookingCompleted = "booking.completed"
	TopupRequested   = "topup.requested"
	TopupApproved    = "topup.approved"
	TopupRejected    = "topup.rejected"
	WalletPaid       = "wallet.payment"
	WalletRefunded   = "wallet.refund"
)

// ActivityEvent is published after a booking or wallet change commits.  It
// carries enough to log or notify without querying the database.
type ActivityEvent struct {
	Type          string          `json:"type"`
	BookingID     *uint64         `json:"booking_id,omitempty"`
	TransactionID *uint64         `json:"transaction_id,omitempty"`
	UserID        uint64          `json:"user_id"`
	WarnetID      uint64          `json:"warnet_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Line renders the event as one log line for logs/activity.log.
func (e ActivityEvent) Line() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.OccurredAt.UTC().Format(time.RFC3339), e.Type)
	if e.BookingID != nil {
		fmt.Fprintf(&b, " | booking_id=%d", *e.BookingID)
	}
	if e.TransactionID != nil {
		fmt.Fprintf(&b, " | transaction_id=%d", *e.TransactionID)
	}
	fmt.Fprintf(&b, " | user_id=%d | warnet_id=%d | amount=%s | status=%s\n",
		e.UserID, e.WarnetID, e.Amount.StringFixed(2), e.Status)
	return b.String()
}
