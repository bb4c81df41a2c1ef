package handler

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/warnet-bowar/internal/model"
	"github.com/iliyamo/warnet-bowar/internal/repository"
	"github.com/iliyamo/warnet-bowar/internal/service"
)

// BookingService is implemented by *service.BookingService.
type BookingService interface {
	Create(ctx context.Context, id model.Identity, in service.CreateBookingInput) (*model.Booking, error)
	Cancel(ctx context.Context, id model.Identity, bookingID uint64) (*model.Booking, error)
	Approve(ctx context.Context, id model.Identity, bookingID uint64) (*model.Booking, error)
	Reject(ctx context.Context, id model.Identity, bookingID uint64, note string) (*model.Booking, error)
	Complete(ctx context.Context, id model.Identity, bookingID uint64) (*model.Booking, error)
	Get(ctx context.Context, id model.Identity, bookingID uint64) (*model.Booking, error)
	List(ctx context.Context, id model.Identity, f repository.BookingFilter) ([]model.Booking, int, error)
	Pending(ctx context.Context, id model.Identity, p repository.Page) ([]model.Booking, int, error)
}

// BookingHandler serves /api/bookings for users and
// /api/operator/bookings for operators.
type BookingHandler struct {
	Base
	Bookings BookingService
	Uploads  Uploads
}

func NewBookingHandler(b Base, s BookingService, u Uploads) *BookingHandler {
	return &BookingHandler{Base: b, Bookings: s, Uploads: u}
}

type createBookingReq struct {
	WarnetID      uint64 `json:"warnet_id" form:"warnet_id"`
	PCNumber      int    `json:"pc_number" form:"pc_number"`
	BookingDate   string `json:"booking_date" form:"booking_date"`
	StartTime     string `json:"start_time" form:"start_time"`
	Duration      int    `json:"duration" form:"duration"`
	PaymentMethod string `json:"payment_method" form:"payment_method"`
	PayerName     string `json:"payer_name" form:"payer_name"`
}

// Create accepts JSON or multipart; bank transfers attach the proof image
// as payment_proof.  The stored image is removed if booking fails.
func (h *BookingHandler) Create(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return h.invalid(c, "invalid body")
	}
	proof, err := h.Uploads.SaveProof(c, "payment_proof")
	if err != nil {
		return h.fail(c, err)
	}
	b, err := h.Bookings.Create(c.Request().Context(), id, service.CreateBookingInput{
		WarnetID:      req.WarnetID,
		PCNumber:      req.PCNumber,
		BookingDate:   req.BookingDate,
		StartTime:     req.StartTime,
		DurationHours: req.Duration,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		PayerName:     req.PayerName,
		ProofURL:      proof,
	})
	if err != nil {
		h.Uploads.Remove(proof)
		return h.fail(c, err)
	}
	msg := "Booking berhasil dibuat, menunggu konfirmasi operator"
	if b.PaymentStatus == model.PaymentPaid {
		msg = "Booking berhasil dibayar dengan DompetBowar"
	}
	return created(c, msg, bookingOut(c, *b))
}

// List returns the caller's own bookings.
func (h *BookingHandler) List(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	f := repository.BookingFilter{
		Status:        c.QueryParam("status"),
		PaymentStatus: c.QueryParam("payment_status"),
		Page:          pageFrom(c),
	}
	items, total, err := h.Bookings.List(c.Request().Context(), id, f)
	if err != nil {
		return h.fail(c, err)
	}
	return paged(c, "Daftar booking", bookingsOut(c, items), newMeta(f.Page, total))
}

func (h *BookingHandler) Get(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	bookingID, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	b, err := h.Bookings.Get(c.Request().Context(), id, bookingID)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, "Detail booking", bookingOut(c, *b))
}

// Cancel cancels the caller's booking, refunding DompetBowar payments.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	bookingID, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	b, err := h.Bookings.Cancel(c.Request().Context(), id, bookingID)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, "Booking berhasil dibatalkan", bookingOut(c, *b))
}
