package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/warnet-bowar/internal/model"
	"github.com/iliyamo/warnet-bowar/internal/queue"
	"github.com/iliyamo/warnet-bowar/internal/repository"
)

// WalletService handles DompetBowar top-ups, payments and refunds.  A
// balance only changes together with a completed ledger row.
type WalletService struct {
	tx       Transactor
	wallets  WalletStore
	ledger   TransactionStore
	bookings BookingStore
	warnets  WarnetStore
	users    UserStore
	events   emitter
	log      *zap.Logger
	now      func() time.Time
}

type WalletDeps struct {
	Tx        Transactor
	Wallets   WalletStore
	Ledger    TransactionStore
	Bookings  BookingStore
	Warnets   WarnetStore
	Users     UserStore
	Publisher EventPublisher
	Log       *zap.Logger
	Now       func() time.Time
}

func NewWalletService(d WalletDeps) *WalletService {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return &WalletService{
		tx:       d.Tx,
		wallets:  d.Wallets,
		ledger:   d.Ledger,
		bookings: d.Bookings,
		warnets:  d.Warnets,
		users:    d.Users,
		events:   emitter{pub: d.Publisher, log: d.Log},
		log:      d.Log,
		now:      d.Now,
	}
}

func positive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than 0", ErrValidation)
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: amount has more than 2 decimals", ErrValidation)
	}
	return nil
}

func (s *WalletService) activeWarnet(ctx context.Context, warnetID uint64) (*model.Warnet, error) {
	if warnetID == 0 {
		return nil, fmt.Errorf("%w: warnet_id is required", ErrValidation)
	}
	w, err := s.warnets.GetByID(ctx, warnetID)
	if err != nil {
		return nil, err
	}
	if !w.IsActive {
		return nil, ErrNotFound
	}
	return w, nil
}

// Wallets lists the caller's balances across warnets.
func (s *WalletService) Wallets(ctx context.Context, id model.Identity) ([]repository.WalletView, error) {
	return s.wallets.ListByUser(ctx, id.UserID)
}

// TopupInput is a bank transfer the user asks to credit to a wallet.
type TopupInput struct {
	WarnetID  uint64
	Amount    decimal.Decimal
	PayerName string
	ProofURL  string
}

// RequestTopup records a pending top-up.  The wallet is untouched until an
// operator approves it.
func (s *WalletService) RequestTopup(ctx context.Context, id model.Identity, in TopupInput) (*model.BowarTransaction, error) {
	if id.IsOperator() {
		return nil, ErrForbidden
	}
	if err := positive(in.Amount); err != nil {
		return nil, err
	}
	payer, err := boundedText("payer_name", in.PayerName, maxPayerName)
	if err != nil {
		return nil, err
	}
	if payer == "" {
		return nil, fmt.Errorf("%w: payer_name is required", ErrValidation)
	}
	if in.ProofURL == "" {
		return nil, fmt.Errorf("%w: transfer proof is required", ErrValidation)
	}
	if _, err := s.activeWarnet(ctx, in.WarnetID); err != nil {
		return nil, err
	}

	method := model.MethodBankTransfer
	proof := in.ProofURL
	desc := "Top up DompetBowar"
	t := &model.BowarTransaction{
		UserID:        id.UserID,
		WarnetID:      in.WarnetID,
		Type:          model.TxTopup,
		Amount:        in.Amount,
		Status:        model.TxPending,
		PaymentMethod: &method,
		ProofURL:      &proof,
		PayerName:     &payer,
		Description:   &desc,
	}
	if err := s.ledger.Create(ctx, t); err != nil {
		return nil, err
	}
	t.CreatedAt, t.UpdatedAt = s.now(), s.now()

	s.log.Info("topup requested", zap.Uint64("transaction_id", t.ID), zap.Uint64("user_id", t.UserID))
	s.events.emit(ctx, txEvent(queue.TopupRequested, t, t.CreatedAt))
	return t, nil
}

func (s *WalletService) lockTopup(ctx context.Context, tx *sql.Tx, id model.Identity, txID uint64) (*model.BowarTransaction, error) {
	if !id.IsOperator() {
		return nil, ErrForbidden
	}
	t, err := s.ledger.GetByIDForUpdateTx(ctx, tx, txID)
	if err != nil {
		return nil, err
	}
	if !id.OperatesWarnet(t.WarnetID) {
		return nil, ErrForbidden
	}
	if t.Type != model.TxTopup {
		return nil, fmt.Errorf("%w: only top-ups need approval", ErrValidation)
	}
	if t.Status != model.TxPending {
		return nil, ErrConflict
	}
	return t, nil
}

// ApproveTopup completes a pending top-up at the operator's venue and
// credits the wallet, creating it if needed.  The status flip is a
// compare-and-set, so a concurrent second approval fails with ErrConflict
// and the amount is applied once.
func (s *WalletService) ApproveTopup(ctx context.Context, id model.Identity, txID uint64) (*model.BowarTransaction, error) {
	var t *model.BowarTransaction
	now := s.now()
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		if t, err = s.lockTopup(ctx, tx, id, txID); err != nil {
			return err
		}
		if err := s.ledger.CompleteTx(ctx, tx, t.ID, id.UserID, now); err != nil {
			return err
		}
		wallet, err := s.wallets.EnsureForUpdateTx(ctx, tx, t.UserID, t.WarnetID)
		if err != nil {
			return err
		}
		return s.wallets.CreditTx(ctx, tx, wallet.ID, t.Amount)
	})
	if err != nil {
		return nil, err
	}
	t.Status, t.ApprovedBy, t.ApprovedAt = model.TxCompleted, &id.UserID, &now

	s.log.Info("topup approved", zap.Uint64("transaction_id", t.ID), zap.Uint64("operator_id", id.UserID))
	s.events.emit(ctx, txEvent(queue.TopupApproved, t, now))
	return t, nil
}

// RejectTopup fails a pending top-up.  Nothing was applied, so nothing is
// reversed.
func (s *WalletService) RejectTopup(ctx context.Context, id model.Identity, txID uint64, note string) (*model.BowarTransaction, error) {
	var t *model.BowarTransaction
	now := s.now()
	notePtr, err := optionalNote(note)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		if t, err = s.lockTopup(ctx, tx, id, txID); err != nil {
			return err
		}
		return s.ledger.FailTx(ctx, tx, t.ID, id.UserID, notePtr, now)
	})
	if err != nil {
		return nil, err
	}
	t.Status, t.ApprovedBy, t.ApprovedAt, t.RejectionNote = model.TxFailed, &id.UserID, &now, notePtr

	s.log.Info("topup rejected", zap.Uint64("transaction_id", t.ID), zap.Uint64("operator_id", id.UserID))
	s.events.emit(ctx, txEvent(queue.TopupRejected, t, now))
	return t, nil
}

// PaymentInput is a direct wallet payment at a warnet (snacks, printing).
type PaymentInput struct {
	WarnetID    uint64
	Amount      decimal.Decimal
	Description string
}

// Pay debits the caller's wallet and records a completed payment.
func (s *WalletService) Pay(ctx context.Context, id model.Identity, in PaymentInput) (*model.BowarTransaction, error) {
	if id.IsOperator() {
		return nil, ErrForbidden
	}
	if err := positive(in.Amount); err != nil {
		return nil, err
	}
	desc, err := boundedText("description", in.Description, maxDescription)
	if err != nil {
		return nil, err
	}
	if desc == "" {
		desc = "Pembayaran DompetBowar"
	}
	if _, err := s.activeWarnet(ctx, in.WarnetID); err != nil {
		return nil, err
	}
	now := s.now()
	method := model.MethodDompetBowar
	t := &model.BowarTransaction{
		UserID:        id.UserID,
		WarnetID:      in.WarnetID,
		Type:          model.TxPayment,
		Amount:        in.Amount.Neg(),
		Status:        model.TxCompleted,
		PaymentMethod: &method,
		Description:   &desc,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		wallet, err := s.wallets.GetForUpdateTx(ctx, tx, id.UserID, in.WarnetID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInsufficientBalance
		}
		if err != nil {
			return err
		}
		if err := s.wallets.DebitTx(ctx, tx, wallet.ID, in.Amount); err != nil {
			return err
		}
		return s.ledger.CreateTx(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("wallet payment", zap.Uint64("transaction_id", t.ID), zap.Uint64("user_id", t.UserID))
	s.events.emit(ctx, txEvent(queue.WalletPaid, t, now))
	return t, nil
}

// RefundInput credits a user's wallet at the operator's venue.
type RefundInput struct {
	UserID      uint64
	Amount      decimal.Decimal
	Description string
	BookingID   *uint64
}

// Refund credits a user's wallet at the operator's own venue and records a
// completed refund approved by the operator.
func (s *WalletService) Refund(ctx context.Context, id model.Identity, in RefundInput) (*model.BowarTransaction, error) {
	if !id.IsOperator() || id.WarnetID == nil {
		return nil, ErrForbidden
	}
	if in.UserID == 0 {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if err := positive(in.Amount); err != nil {
		return nil, err
	}
	desc, err := boundedText("description", in.Description, maxDescription)
	if err != nil {
		return nil, err
	}
	if desc == "" {
		desc = "Refund DompetBowar"
	}
	warnetID := *id.WarnetID
	if _, err := s.users.GetByID(ctx, in.UserID); err != nil {
		return nil, err
	}
	if in.BookingID != nil {
		b, err := s.bookings.GetByID(ctx, *in.BookingID)
		if err != nil {
			return nil, err
		}
		if b.UserID != in.UserID || b.WarnetID != warnetID {
			return nil, fmt.Errorf("%w: booking does not belong to this user and warnet", ErrValidation)
		}
	}

	now := s.now()
	method := model.MethodDompetBowar
	t := &model.BowarTransaction{
		UserID:        in.UserID,
		WarnetID:      warnetID,
		BookingID:     in.BookingID,
		Type:          model.TxRefund,
		Amount:        in.Amount,
		Status:        model.TxCompleted,
		PaymentMethod: &method,
		Description:   &desc,
		ApprovedBy:    &id.UserID,
		ApprovedAt:    &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		wallet, err := s.wallets.EnsureForUpdateTx(ctx, tx, in.UserID, warnetID)
		if err != nil {
			return err
		}
		if err := s.wallets.CreditTx(ctx, tx, wallet.ID, in.Amount); err != nil {
			return err
		}
		return s.ledger.CreateTx(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("wallet refund", zap.Uint64("transaction_id", t.ID), zap.Uint64("operator_id", id.UserID))
	s.events.emit(ctx, txEvent(queue.WalletRefunded, t, now))
	return t, nil
}

// Get returns a ledger row visible to the caller.
func (s *WalletService) Get(ctx context.Context, id model.Identity, txID uint64) (*model.BowarTransaction, error) {
	t, err := s.ledger.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if t.UserID != id.UserID && !id.OperatesWarnet(t.WarnetID) {
		return nil, ErrForbidden
	}
	return t, nil
}

// List scopes f to the caller like BookingService.List.
func (s *WalletService) List(ctx context.Context, id model.Identity, f repository.TransactionFilter) ([]model.BowarTransaction, int, error) {
	if id.IsOperator() {
		if id.WarnetID == nil {
			return nil, 0, ErrForbidden
		}
		f.WarnetID = id.WarnetID
	} else {
		f.UserID = &id.UserID
	}
	return s.ledger.List(ctx, f)
}

func txEvent(typ string, t *model.BowarTransaction, at time.Time) queue.ActivityEvent {
	id := t.ID
	return queue.ActivityEvent{
		Type:          typ,
		TransactionID: &id,
		BookingID:     t.BookingID,
		UserID:        t.UserID,
		WarnetID:      t.WarnetID,
		Amount:        t.Amount,
		Status:        t.Status,
		OccurredAt:    at,
	}
}
