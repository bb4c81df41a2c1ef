package handler

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/warnet-bowar/internal/model"
	"github.com/iliyamo/warnet-bowar/internal/repository"
	"github.com/iliyamo/warnet-bowar/internal/service"
)

// WalletService is implemented by *service.WalletService.
type WalletService interface {
	Wallets(ctx context.Context, id model.Identity) ([]repository.WalletView, error)
	RequestTopup(ctx context.Context, id model.Identity, in service.TopupInput) (*model.BowarTransaction, error)
	ApproveTopup(ctx context.Context, id model.Identity, txID uint64) (*model.BowarTransaction, error)
	RejectTopup(ctx context.Context, id model.Identity, txID uint64, note string) (*model.BowarTransaction, error)
	Pay(ctx context.Context, id model.Identity, in service.PaymentInput) (*model.BowarTransaction, error)
	Refund(ctx context.Context, id model.Identity, in service.RefundInput) (*model.BowarTransaction, error)
	Get(ctx context.Context, id model.Identity, txID uint64) (*model.BowarTransaction, error)
	List(ctx context.Context, id model.Identity, f repository.TransactionFilter) ([]model.BowarTransaction, int, error)
}

// BowarHandler serves /api/bowar-transactions.
type BowarHandler struct {
	Base
	Wallet  WalletService
	Uploads Uploads
}

func NewBowarHandler(b Base, s WalletService, u Uploads) *BowarHandler {
	return &BowarHandler{Base: b, Wallet: s, Uploads: u}
}

type topupReq struct {
	WarnetID  uint64 `json:"warnet_id" form:"warnet_id"`
	Amount    string `json:"amount" form:"amount"`
	PayerName string `json:"payer_name" form:"payer_name"`
}

type paymentReq struct {
	WarnetID    uint64          `json:"warnet_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type refundReq struct {
	UserID      uint64          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	BookingID   *uint64         `json:"booking_id"`
}

// List shows the caller's transactions; operators see their venue's.
func (h *BowarHandler) List(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	f := repository.TransactionFilter{
		Type:   c.QueryParam("type"),
		Status: c.QueryParam("status"),
		Page:   pageFrom(c),
	}
	if f.WarnetID, err = queryUint(c, "warnet_id"); err != nil {
		return h.fail(c, err)
	}
	if f.UserID, err = queryUint(c, "user_id"); err != nil {
		return h.fail(c, err)
	}
	items, total, err := h.Wallet.List(c.Request().Context(), id, f)
	if err != nil {
		return h.fail(c, err)
	}
	return paged(c, "Riwayat transaksi DompetBowar", txsOut(c, items), newMeta(f.Page, total))
}

func (h *BowarHandler) Get(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	txID, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	t, err := h.Wallet.Get(c.Request().Context(), id, txID)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, "Detail transaksi", txOut(c, *t))
}

// Wallets lists the caller's per-venue balances.
func (h *BowarHandler) Wallets(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	ws, err := h.Wallet.Wallets(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	if ws == nil {
		ws = []repository.WalletView{}
	}
	return ok(c, "Saldo DompetBowar", ws)
}

// Topup records a pending top-up with its transfer proof (multipart field
// "proof").
func (h *BowarHandler) Topup(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req topupReq
	if err := c.Bind(&req); err != nil {
		return h.invalid(c, "invalid body")
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return h.invalid(c, "amount must be a number")
	}
	proof, err := h.Uploads.SaveProof(c, "proof")
	if err != nil {
		return h.fail(c, err)
	}
	in := service.TopupInput{WarnetID: req.WarnetID, Amount: amount, PayerName: req.PayerName}
	if proof != nil {
		in.ProofURL = *proof
	}
	t, err := h.Wallet.RequestTopup(c.Request().Context(), id, in)
	if err != nil {
		h.Uploads.Remove(proof)
		return h.fail(c, err)
	}
	return created(c, "Permintaan top up terkirim, menunggu verifikasi operator", txOut(c, *t))
}

// Payment debits the caller's wallet immediately.
func (h *BowarHandler) Payment(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return h.invalid(c, "invalid body")
	}
	t, err := h.Wallet.Pay(c.Request().Context(), id, service.PaymentInput{
		WarnetID:    req.WarnetID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return created(c, "Pembayaran DompetBowar berhasil", txOut(c, *t))
}

// Refund credits a user's wallet at the operator's venue.
func (h *BowarHandler) Refund(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req refundReq
	if err := c.Bind(&req); err != nil {
		return h.invalid(c, "invalid body")
	}
	t, err := h.Wallet.Refund(c.Request().Context(), id, service.RefundInput{
		UserID:      req.UserID,
		Amount:      req.Amount,
		Description: req.Description,
		BookingID:   req.BookingID,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return created(c, "Refund berhasil dikirim", txOut(c, *t))
}

func (h *BowarHandler) Approve(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	txID, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	t, err := h.Wallet.ApproveTopup(c.Request().Context(), id, txID)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, "Top up disetujui", txOut(c, *t))
}

func (h *BowarHandler) Reject(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	txID, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req decisionReq
	if err := c.Bind(&req); err != nil {
		return h.invalid(c, "invalid body")
	}
	t, err := h.Wallet.RejectTopup(c.Request().Context(), id, txID, req.Note)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, "Top up ditolak", txOut(c, *t))
}
