package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/warnet-bowar/internal/model"
	"github.com/iliyamo/warnet-bowar/internal/queue"
	"github.com/iliyamo/warnet-bowar/internal/repository"
)

const maxDurationHours = 24

// BookingService owns the booking/payment state machine.  Every operation
// touching more than one of booking, wallet, ledger and PC runs inside a
// single transaction obtained from Tx.
type BookingService struct {
	tx           Transactor
	bookings     BookingStore
	wallets      WalletStore
	ledger       TransactionStore
	pcs          PCStore
	warnets      WarnetStore
	users        UserStore
	events       emitter
	log          *zap.Logger
	cancelWindow time.Duration
	now          func() time.Time
}

// BookingDeps wires a BookingService.  Publisher and Log may be nil.
type BookingDeps struct {
	Tx           Transactor
	Bookings     BookingStore
	Wallets      WalletStore
	Ledger       TransactionStore
	PCs          PCStore
	Warnets      WarnetStore
	Users        UserStore
	Publisher    EventPublisher
	Log          *zap.Logger
	CancelWindow time.Duration
	Now          func() time.Time
}

func NewBookingService(d BookingDeps) *BookingService {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.CancelWindow <= 0 {
		d.CancelWindow = 2 * time.Minute
	}
	return &BookingService{
		tx:           d.Tx,
		bookings:     d.Bookings,
		wallets:      d.Wallets,
		ledger:       d.Ledger,
		pcs:          d.PCs,
		warnets:      d.Warnets,
		users:        d.Users,
		events:       emitter{pub: d.Publisher, log: d.Log},
		log:          d.Log,
		cancelWindow: d.CancelWindow,
		now:          d.Now,
	}
}

// CreateBookingInput is the validated-on-entry booking request.
type CreateBookingInput struct {
	WarnetID      uint64
	PCNumber      int
	BookingDate   string // YYYY-MM-DD
	StartTime     string // HH:MM
	DurationHours int
	PaymentMethod string
	PayerName     string
	ProofURL      *string
}

func (in CreateBookingInput) validate() (time.Time, error) {
	if in.WarnetID == 0 {
		return time.Time{}, fmt.Errorf("%w: warnet_id is required", ErrValidation)
	}
	if in.PCNumber < 1 {
		return time.Time{}, fmt.Errorf("%w: pc_number is required", ErrValidation)
	}
	date, err := time.Parse("2006-01-02", strings.TrimSpace(in.BookingDate))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: booking_date must be YYYY-MM-DD", ErrValidation)
	}
	if _, err := time.Parse("15:04", strings.TrimSpace(in.StartTime)); err != nil {
		return time.Time{}, fmt.Errorf("%w: start_time must be HH:MM", ErrValidation)
	}
	if in.DurationHours < 1 || in.DurationHours > maxDurationHours {
		return time.Time{}, fmt.Errorf("%w: duration must be between 1 and %d hours", ErrValidation, maxDurationHours)
	}
	if !model.ValidPaymentMethod(in.PaymentMethod) {
		return time.Time{}, fmt.Errorf("%w: unknown payment_method %q", ErrValidation, in.PaymentMethod)
	}
	if _, err := boundedText("payer_name", in.PayerName, maxPayerName); err != nil {
		return time.Time{}, err
	}
	if in.PaymentMethod == model.MethodBankTransfer {
		if in.ProofURL == nil || *in.ProofURL == "" {
			return time.Time{}, fmt.Errorf("%w: payment proof is required for bank transfer", ErrValidation)
		}
		if strings.TrimSpace(in.PayerName) == "" {
			return time.Time{}, fmt.Errorf("%w: payer_name is required for bank transfer", ErrValidation)
		}
	}
	return date, nil
}

// Quote returns the hourly rate for a booking and whether it is the member
// rate.  The member rate needs a membership at this warnet and more than
// one hour.
func Quote(w model.Warnet, u model.User, hours int) (rate decimal.Decimal, member bool) {
	if u.IsMemberOf(w.ID) && hours > 1 {
		return w.MemberPricePerHour, true
	}
	return w.RegularPricePerHour, false
}

// Create books a PC.  A DompetBowar booking is paid and activated in the
// same transaction; other methods stay pending until an operator decides.
func (s *BookingService) Create(ctx context.Context, id model.Identity, in CreateBookingInput) (*model.Booking, error) {
	if id.IsOperator() {
		return nil, ErrForbidden
	}
	date, err := in.validate()
	if err != nil {
		return nil, err
	}
	w, err := s.warnets.GetByID(ctx, in.WarnetID)
	if err != nil {
		return nil, err
	}
	if !w.IsActive {
		return nil, ErrNotFound
	}
	if uint64(in.PCNumber) > uint64(w.TotalPCs) {
		return nil, fmt.Errorf("%w: pc_number must be between 1 and %d", ErrValidation, w.TotalPCs)
	}
	u, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}

	rate, member := Quote(*w, *u, in.DurationHours)
	now := s.now()
	b := &model.Booking{
		UserID:          id.UserID,
		WarnetID:        w.ID,
		PCNumber:        uint32(in.PCNumber),
		BookingDate:     date,
		StartTime:       strings.TrimSpace(in.StartTime),
		DurationHours:   uint32(in.DurationHours),
		PricePerHour:    rate,
		TotalPrice:      rate.Mul(decimal.NewFromInt(int64(in.DurationHours))),
		IsMemberPrice:   member,
		PaymentMethod:   in.PaymentMethod,
		Status:          model.BookingPending,
		PaymentStatus:   model.PaymentPending,
		CanCancelUntil:  now.Add(s.cancelWindow),
		PaymentProofURL: in.ProofURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if name := strings.TrimSpace(in.PayerName); name != "" {
		b.PayerName = &name
	}

	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		pc, err := s.pcs.GetTx(ctx, tx, b.WarnetID, b.PCNumber)
		switch {
		case errors.Is(err, repository.ErrNotFound):
		case err != nil:
			return err
		case pc.Status == model.PCMaintenance:
			return ErrUnavailable
		}
		if err := s.bookings.CreateTx(ctx, tx, b); err != nil {
			return err
		}
		if b.PaymentMethod != model.MethodDompetBowar {
			return nil
		}
		wallet, err := s.wallets.GetForUpdateTx(ctx, tx, b.UserID, b.WarnetID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInsufficientBalance
		}
		if err != nil {
			return err
		}
		if wallet.Balance.LessThan(b.TotalPrice) {
			return ErrInsufficientBalance
		}
		if err := s.wallets.DebitTx(ctx, tx, wallet.ID, b.TotalPrice); err != nil {
			return err
		}
		method := model.MethodDompetBowar
		desc := fmt.Sprintf("Pembayaran booking #%d", b.ID)
		if err := s.ledger.CreateTx(ctx, tx, &model.BowarTransaction{
			UserID:        b.UserID,
			WarnetID:      b.WarnetID,
			BookingID:     &b.ID,
			Type:          model.TxPayment,
			Amount:        b.TotalPrice.Neg(),
			Status:        model.TxCompleted,
			PaymentMethod: &method,
			Description:   &desc,
		}); err != nil {
			return err
		}
		if err := s.bookings.MarkPaidTx(ctx, tx, b.ID, nil, now); err != nil {
			return err
		}
		b.Status, b.PaymentStatus, b.ApprovedAt = model.BookingActive, model.PaymentPaid, &now
		return s.pcs.OccupyTx(ctx, tx, b.WarnetID, b.PCNumber, b.ID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("booking created",
		zap.Uint64("booking_id", b.ID), zap.Uint64("user_id", b.UserID), zap.Uint64("warnet_id", b.WarnetID),
		zap.String("method", b.PaymentMethod), zap.String("status", b.Status))
	s.events.emit(ctx, bookingEvent(queue.BookingCreated, b, now))
	return b, nil
}

// Cancel cancels the caller's own booking while the cancel window is open.
// A paid booking is refunded to the DompetBowar wallet at its warnet.
func (s *BookingService) Cancel(ctx context.Context, id model.Identity, bookingID uint64) (*model.Booking, error) {
	var b *model.Booking
	now := s.now()
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		b, err = s.bookings.GetByIDForUpdateTx(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if b.UserID != id.UserID {
			return ErrForbidden
		}
		if b.IsTerminal() {
			return ErrInvalidState
		}
		if !b.CancellableAt(now) {
			return ErrCancelWindowExpired
		}
		if err := s.bookings.CancelTx(ctx, tx, b.ID, now); err != nil {
			return err
		}
		if b.PaymentStatus == model.PaymentPaid {
			if err := s.refundBookingTx(ctx, tx, b); err != nil {
				return err
			}
		}
		_, err = s.pcs.ReleaseTx(ctx, tx, b.WarnetID, b.PCNumber, b.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	b.Status, b.CancelledAt = model.BookingCancelled, &now

	s.log.Info("booking cancelled", zap.Uint64("booking_id", b.ID), zap.Uint64("user_id", b.UserID))
	s.events.emit(ctx, bookingEvent(queue.BookingCancelled, b, now))
	return b, nil
}

// refundBookingTx credits the booking total back to the wallet at the
// venue of the original payment and records the refund.
func (s *BookingService) refundBookingTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	warnetID := b.WarnetID
	payment, err := s.ledger.FindBookingPaymentTx(ctx, tx, b.ID)
	switch {
	case err == nil:
		warnetID = payment.WarnetID
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}
	wallet, err := s.wallets.EnsureForUpdateTx(ctx, tx, b.UserID, warnetID)
	if err != nil {
		return err
	}
	if err := s.wallets.CreditTx(ctx, tx, wallet.ID, b.TotalPrice); err != nil {
		return err
	}
	method := model.MethodDompetBowar
	desc := fmt.Sprintf("Refund booking #%d", b.ID)
	return s.ledger.CreateTx(ctx, tx, &model.BowarTransaction{
		UserID:        b.UserID,
		WarnetID:      warnetID,
		BookingID:     &b.ID,
		Type:          model.TxRefund,
		Amount:        b.TotalPrice,
		Status:        model.TxCompleted,
		PaymentMethod: &method,
		Description:   &desc,
	})
}

// lockForOperator loads and locks a booking, checking that the caller
// operates its venue.
func (s *BookingService) lockForOperator(ctx context.Context, tx *sql.Tx, id model.Identity, bookingID uint64) (*model.Booking, error) {
	if !id.IsOperator() {
		return nil, ErrForbidden
	}
	b, err := s.bookings.GetByIDForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if !id.OperatesWarnet(b.WarnetID) {
		return nil, ErrForbidden
	}
	return b, nil
}

// Approve confirms a pending payment: the booking becomes active/paid and
// the PC occupied.
func (s *BookingService) Approve(ctx context.Context, id model.Identity, bookingID uint64) (*model.Booking, error) {
	var b *model.Booking
	now := s.now()
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		if b, err = s.lockForOperator(ctx, tx, id, bookingID); err != nil {
			return err
		}
		if b.PaymentStatus != model.PaymentPending || b.Status != model.BookingPending {
			return ErrConflict
		}
		if err := s.bookings.MarkPaidTx(ctx, tx, b.ID, &id.UserID, now); err != nil {
			return err
		}
		return s.pcs.OccupyTx(ctx, tx, b.WarnetID, b.PCNumber, b.ID)
	})
	if err != nil {
		return nil, err
	}
	b.Status, b.PaymentStatus = model.BookingActive, model.PaymentPaid
	b.ApprovedBy, b.ApprovedAt = &id.UserID, &now

	s.log.Info("booking approved", zap.Uint64("booking_id", b.ID), zap.Uint64("operator_id", id.UserID))
	s.events.emit(ctx, bookingEvent(queue.BookingApproved, b, now))
	return b, nil
}

// Reject refuses a pending payment.  The booking never held funds, so no
// wallet or PC changes are needed.
func (s *BookingService) Reject(ctx context.Context, id model.Identity, bookingID uint64, note string) (*model.Booking, error) {
	var b *model.Booking
	now := s.now()
	notePtr, err := optionalNote(note)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		if b, err = s.lockForOperator(ctx, tx, id, bookingID); err != nil {
			return err
		}
		if b.PaymentStatus != model.PaymentPending || b.Status != model.BookingPending {
			return ErrConflict
		}
		return s.bookings.MarkRejectedTx(ctx, tx, b.ID, id.UserID, notePtr, now)
	})
	if err != nil {
		return nil, err
	}
	b.Status, b.PaymentStatus = model.BookingCancelled, model.PaymentRejected
	b.ApprovedBy, b.ApprovedAt, b.RejectionNote, b.CancelledAt = &id.UserID, &now, notePtr, &now

	s.log.Info("booking rejected", zap.Uint64("booking_id", b.ID), zap.Uint64("operator_id", id.UserID))
	s.events.emit(ctx, bookingEvent(queue.BookingRejected, b, now))
	return b, nil
}

// Complete ends an active session and frees the PC.
func (s *BookingService) Complete(ctx context.Context, id model.Identity, bookingID uint64) (*model.Booking, error) {
	var b *model.Booking
	now := s.now()
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		if b, err = s.lockForOperator(ctx, tx, id, bookingID); err != nil {
			return err
		}
		if b.Status != model.BookingActive {
			return ErrConflict
		}
		if err := s.bookings.CompleteTx(ctx, tx, b.ID, now); err != nil {
			return err
		}
		_, err = s.pcs.ReleaseTx(ctx, tx, b.WarnetID, b.PCNumber, b.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	b.Status, b.CompletedAt = model.BookingCompleted, &now

	s.log.Info("booking completed", zap.Uint64("booking_id", b.ID), zap.Uint64("operator_id", id.UserID))
	s.events.emit(ctx, bookingEvent(queue.BookingCompleted, b, now))
	return b, nil
}

// Get returns a booking visible to the caller: its owner or the operator
// of its venue.
func (s *BookingService) Get(ctx context.Context, id model.Identity, bookingID uint64) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != id.UserID && !id.OperatesWarnet(b.WarnetID) {
		return nil, ErrForbidden
	}
	return b, nil
}

// List scopes f to the caller: users see their own bookings, operators
// the bookings of their venue.
func (s *BookingService) List(ctx context.Context, id model.Identity, f repository.BookingFilter) ([]model.Booking, int, error) {
	if id.IsOperator() {
		if id.WarnetID == nil {
			return nil, 0, ErrForbidden
		}
		f.WarnetID = id.WarnetID
	} else {
		f.UserID = &id.UserID
	}
	return s.bookings.List(ctx, f)
}

// Pending lists the venue's bookings waiting for a payment decision.
func (s *BookingService) Pending(ctx context.Context, id model.Identity, p repository.Page) ([]model.Booking, int, error) {
	if !id.IsOperator() {
		return nil, 0, ErrForbidden
	}
	return s.List(ctx, id, repository.BookingFilter{
		Status:        model.BookingPending,
		PaymentStatus: model.PaymentPending,
		Page:          p,
	})
}

func bookingEvent(typ string, b *model.Booking, at time.Time) queue.ActivityEvent {
	id := b.ID
	return queue.ActivityEvent{
		Type:       typ,
		BookingID:  &id,
		UserID:     b.UserID,
		WarnetID:   b.WarnetID,
		Amount:     b.TotalPrice,
		Status:     b.Status,
		OccurredAt: at,
	}
}
