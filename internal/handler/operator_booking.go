package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/warnet-bowar/internal/model"
	"github.com/iliyamo/warnet-bowar/internal/repository"
)

type decisionReq struct {
	Note string `json:"note" form:"note"`
}

// PendingForOperator lists the venue's bookings awaiting a payment decision.
func (h *BookingHandler) PendingForOperator(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	p := pageFrom(c)
	items, total, err := h.Bookings.Pending(c.Request().Context(), id, p)
	if err != nil {
		return h.fail(c, err)
	}
	return paged(c, "Booking menunggu konfirmasi", bookingsOut(c, items), newMeta(p, total))
}

// ListForOperator lists the venue's bookings with optional filters.
func (h *BookingHandler) ListForOperator(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	userID, err := queryUint(c, "user_id")
	if err != nil {
		return h.fail(c, err)
	}
	f := repository.BookingFilter{
		UserID:        userID,
		Status:        c.QueryParam("status"),
		PaymentStatus: c.QueryParam("payment_status"),
		Page:          pageFrom(c),
	}
	if raw := c.QueryParam("date"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return h.invalid(c, "date must be YYYY-MM-DD")
		}
		f.Date = &d
	}
	items, total, err := h.Bookings.List(c.Request().Context(), id, f)
	if err != nil {
		return h.fail(c, err)
	}
	return paged(c, "Daftar booking warnet", bookingsOut(c, items), newMeta(f.Page, total))
}

func (h *BookingHandler) Approve(c echo.Context) error {
	return h.decide(c, "Pembayaran booking disetujui", func(id model.Identity, bookingID uint64) (*model.Booking, error) {
		return h.Bookings.Approve(c.Request().Context(), id, bookingID)
	})
}

func (h *BookingHandler) Reject(c echo.Context) error {
	var req decisionReq
	if err := c.Bind(&req); err != nil {
		return h.invalid(c, "invalid body")
	}
	return h.decide(c, "Pembayaran booking ditolak", func(id model.Identity, bookingID uint64) (*model.Booking, error) {
		return h.Bookings.Reject(c.Request().Context(), id, bookingID, req.Note)
	})
}

// Complete ends an active session and frees its PC.
func (h *BookingHandler) Complete(c echo.Context) error {
	return h.decide(c, "Sesi booking selesai", func(id model.Identity, bookingID uint64) (*model.Booking, error) {
		return h.Bookings.Complete(c.Request().Context(), id, bookingID)
	})
}

func (h *BookingHandler) decide(c echo.Context, msg string, fn func(model.Identity, uint64) (*model.Booking, error)) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	bookingID, err := parseID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	b, err := fn(id, bookingID)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, msg, bookingOut(c, *b))
}
