package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/warnet-bowar/internal/middleware"
	"github.com/iliyamo/warnet-bowar/internal/model"
	"github.com/iliyamo/warnet-bowar/internal/repository"
	"github.com/iliyamo/warnet-bowar/internal/service"
	"github.com/iliyamo/warnet-bowar/internal/utils"
)

// envelope is the body of every successful response.
type envelope struct {
	Message string    `json:"message"`
	Data    any       `json:"data"`
	Meta    *pageMeta `json:"meta,omitempty"`
}

type pageMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func newMeta(p repository.Page, total int) *pageMeta {
	p = p.Normalize()
	pages := 0
	if total > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return &pageMeta{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}

func ok(c echo.Context, msg string, data any) error {
	return c.JSON(http.StatusOK, envelope{Message: msg, Data: data})
}

func created(c echo.Context, msg string, data any) error {
	return c.JSON(http.StatusCreated, envelope{Message: msg, Data: data})
}

func paged(c echo.Context, msg string, data any, meta *pageMeta) error {
	return c.JSON(http.StatusOK, envelope{Message: msg, Data: data, Meta: meta})
}

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errInvalidRefresh     = errors.New("invalid refresh token")
	errUnauthenticated    = errors.New("unauthenticated")
)

// errorStatus is checked in order; the first sentinel matched by errors.Is
// decides the status and the user-facing message.
var errorStatus = []struct {
	err  error
	code int
	msg  string
}{
	{service.ErrValidation, http.StatusBadRequest, "Data tidak valid"},
	{utils.ErrWeakPassword, http.StatusBadRequest, "Kata sandi minimal 8 karakter"},
	{service.ErrInsufficientBalance, http.StatusBadRequest, "Saldo DompetBowar tidak mencukupi"},
	{errInvalidCredentials, http.StatusUnauthorized, "Email atau kata sandi salah"},
	{errInvalidRefresh, http.StatusUnauthorized, "Sesi tidak valid, silakan login ulang"},
	{errUnauthenticated, http.StatusUnauthorized, "Silakan login terlebih dahulu"},
	{service.ErrForbidden, http.StatusForbidden, "Akses ditolak"},
	{service.ErrNotFound, http.StatusNotFound, "Data tidak ditemukan"},
	{service.ErrCancelWindowExpired, http.StatusConflict, "Batas waktu pembatalan sudah lewat"},
	{service.ErrInvalidState, http.StatusConflict, "Status pesanan tidak dapat diubah"},
	{service.ErrUnavailable, http.StatusConflict, "PC sedang dalam perawatan"},
	{repository.ErrEmailExists, http.StatusConflict, "Email sudah terdaftar"},
	{service.ErrConflict, http.StatusConflict, "Data sudah diproses sebelumnya"},
}

func classify(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			msg := e.msg
			if e.err == service.ErrValidation {
				if detail := strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": "); detail != err.Error() {
					msg += ": " + detail
				}
			}
			return e.code, msg
		}
	}
	return http.StatusInternalServerError, "Terjadi kesalahan pada server"
}

// Base carries what every handler needs to render failures.  Debug adds
// the raw error to the body.
type Base struct {
	Log   *zap.Logger
	Debug bool
}

func (b Base) logger() *zap.Logger {
	if b.Log == nil {
		return zap.NewNop()
	}
	return b.Log
}

func (b Base) fail(c echo.Context, err error) error {
	code, msg := classify(err)
	if code >= http.StatusInternalServerError {
		b.logger().Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	body := echo.Map{"message": msg}
	if b.Debug {
		body["error"] = err.Error()
	}
	return c.JSON(code, body)
}

func (b Base) invalid(c echo.Context, detail string) error {
	return b.fail(c, fmt.Errorf("%w: %s", service.ErrValidation, detail))
}

func (b Base) identity(c echo.Context) (model.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return model.Identity{}, errUnauthenticated
	}
	return id, nil
}

func parseID(c echo.Context, name string) (uint64, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: invalid %s", service.ErrValidation, name)
	}
	return n, nil
}

func queryUint(c echo.Context, name string) (*uint64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return nil, fmt.Errorf("%w: invalid %s", service.ErrValidation, name)
	}
	return &n, nil
}

func pageFrom(c echo.Context) repository.Page {
	p, _ := strconv.Atoi(c.QueryParam("page"))
	l, _ := strconv.Atoi(c.QueryParam("limit"))
	return repository.Page{Page: p, Limit: l}.Normalize()
}

// absoluteURL turns a stored "/uploads/..." path into a URL on the host the
// client called.
func absoluteURL(c echo.Context, p *string) *string {
	if p == nil || !strings.HasPrefix(*p, "/uploads/") {
		return p
	}
	u := c.Scheme() + "://" + c.Request().Host + *p
	return &u
}

func bookingOut(c echo.Context, b model.Booking) model.Booking {
	b.PaymentProofURL = absoluteURL(c, b.PaymentProofURL)
	return b
}

func bookingsOut(c echo.Context, bs []model.Booking) []model.Booking {
	out := make([]model.Booking, len(bs))
	for i, b := range bs {
		out[i] = bookingOut(c, b)
	}
	return out
}

func txOut(c echo.Context, t model.BowarTransaction) model.BowarTransaction {
	t.ProofURL = absoluteURL(c, t.ProofURL)
	return t
}

func txsOut(c echo.Context, ts []model.BowarTransaction) []model.BowarTransaction {
	out := make([]model.BowarTransaction, len(ts))
	for i, t := range ts {
		out[i] = txOut(c, t)
	}
	return out
}

func warnetOut(c echo.Context, w model.Warnet) model.Warnet {
	w.ImageURL = absoluteURL(c, w.ImageURL)
	return w
}
