package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/warnet-bowar/internal/middleware"
	"github.com/iliyamo/warnet-bowar/internal/model"
	"github.com/iliyamo/warnet-bowar/internal/repository"
	"github.com/iliyamo/warnet-bowar/internal/service"
)

// --- Mock BookingService ---

type mockBookingService struct {
	createFn   func(ctx context.Context, id model.Identity, in service.CreateBookingInput) (*model.Booking, error)
	cancelFn   func(ctx context.Context, id model.Identity, bookingID uint64) (*model.Booking, error)
	approveFn  func(ctx context.Context, id model.Identity, bookingID uint64) (*model.Booking, error)
	rejectFn   func(ctx context.Context, id model.Identity, bookingID uint64, note string) (*model.Booking, error)
	completeFn func(ctx context.Context, id model.Identity, bookingID uint64) (*model.Booking, error)
	getFn      func(ctx context.Context, id model.Identity, bookingID uint64) (*model.Booking, error)
	listFn     func(ctx context.Context, id model.Identity, f repository.BookingFilter) ([]model.Booking, int, error)
	pendingFn  func(ctx context.Context, id model.Identity, p repository.Page) ([]model.Booking, int, error)
}

func (m *mockBookingService) Create(ctx context.Context, id model.Identity, in service.CreateBookingInput) (*model.Booking, error) {
	return m.createFn(ctx, id, in)
}
func (m *mockBookingService) Cancel(ctx context.Context, id model.Identity, bookingID uint64) (*model.Booking, error) {
	return m.cancelFn(ctx, id, bookingID)
}
func (m *mockBookingService) Approve(ctx context.Context, id model.Identity, bookingID uint64) (*model.Booking, error) {
	return m.approveFn(ctx, id, bookingID)
}
func (m *mockBookingService) Reject(ctx context.Context, id model.Identity, bookingID uint64, note string) (*model.Booking, error) {
	return m.rejectFn(ctx, id, bookingID, note)
}
func (m *mockBookingService) Complete(ctx context.Context, id model.Identity, bookingID uint64) (*model.Booking, error) {
	return m.completeFn(ctx, id, bookingID)
}
func (m *mockBookingService) Get(ctx context.Context, id model.Identity, bookingID uint64) (*model.Booking, error) {
	return m.getFn(ctx, id, bookingID)
}
func (m *mockBookingService) List(ctx context.Context, id model.Identity, f repository.BookingFilter) ([]model.Booking, int, error) {
	return m.listFn(ctx, id, f)
}
func (m *mockBookingService) Pending(ctx context.Context, id model.Identity, p repository.Page) ([]model.Booking, int, error) {
	return m.pendingFn(ctx, id, p)
}

// --- Mock WalletService ---

type mockWalletService struct {
	walletsFn func(ctx context.Context, id model.Identity) ([]repository.WalletView, error)
	topupFn   func(ctx context.Context, id model.Identity, in service.TopupInput) (*model.BowarTransaction, error)
	approveFn func(ctx context.Context, id model.Identity, txID uint64) (*model.BowarTransaction, error)
	rejectFn  func(ctx context.Context, id model.Identity, txID uint64, note string) (*model.BowarTransaction, error)
	payFn     func(ctx context.Context, id model.Identity, in service.PaymentInput) (*model.BowarTransaction, error)
	refundFn  func(ctx context.Context, id model.Identity, in service.RefundInput) (*model.BowarTransaction, error)
	getFn     func(ctx context.Context, id model.Identity, txID uint64) (*model.BowarTransaction, error)
	listFn    func(ctx context.Context, id model.Identity, f repository.TransactionFilter) ([]model.BowarTransaction, int, error)
}

func (m *mockWalletService) Wallets(ctx context.Context, id model.Identity) ([]repository.WalletView, error) {
	return m.walletsFn(ctx, id)
}
func (m *mockWalletService) RequestTopup(ctx context.Context, id model.Identity, in service.TopupInput) (*model.BowarTransaction, error) {
	return m.topupFn(ctx, id, in)
}
func (m *mockWalletService) ApproveTopup(ctx context.Context, id model.Identity, txID uint64) (*model.BowarTransaction, error) {
	return m.approveFn(ctx, id, txID)
}
func (m *mockWalletService) RejectTopup(ctx context.Context, id model.Identity, txID uint64, note string) (*model.BowarTransaction, error) {
	return m.rejectFn(ctx, id, txID, note)
}
func (m *mockWalletService) Pay(ctx context.Context, id model.Identity, in service.PaymentInput) (*model.BowarTransaction, error) {
	return m.payFn(ctx, id, in)
}
func (m *mockWalletService) Refund(ctx context.Context, id model.Identity, in service.RefundInput) (*model.BowarTransaction, error) {
	return m.refundFn(ctx, id, in)
}
func (m *mockWalletService) Get(ctx context.Context, id model.Identity, txID uint64) (*model.BowarTransaction, error) {
	return m.getFn(ctx, id, txID)
}
func (m *mockWalletService) List(ctx context.Context, id model.Identity, f repository.TransactionFilter) ([]model.BowarTransaction, int, error) {
	return m.listFn(ctx, id, f)
}

// --- Mock ChatService ---

type mockChatService struct {
	userThreadFn    func(ctx context.Context, id model.Identity, warnetID uint64) ([]model.ChatMessage, error)
	userSendFn      func(ctx context.Context, id model.Identity, warnetID uint64, msg string) (*model.ChatMessage, error)
	userMarkReadFn  func(ctx context.Context, id model.Identity, warnetID uint64) (int64, error)
	conversationsFn func(ctx context.Context, id model.Identity) ([]model.Conversation, error)
	opThreadFn      func(ctx context.Context, id model.Identity, userID uint64) ([]model.ChatMessage, error)
	opSendFn        func(ctx context.Context, id model.Identity, userID uint64, msg string) (*model.ChatMessage, error)
	opMarkReadFn    func(ctx context.Context, id model.Identity, userID uint64) (int64, error)
}

func (m *mockChatService) UserThread(ctx context.Context, id model.Identity, warnetID uint64) ([]model.ChatMessage, error) {
	return m.userThreadFn(ctx, id, warnetID)
}
func (m *mockChatService) UserSend(ctx context.Context, id model.Identity, warnetID uint64, msg string) (*model.ChatMessage, error) {
	return m.userSendFn(ctx, id, warnetID, msg)
}
func (m *mockChatService) UserMarkRead(ctx context.Context, id model.Identity, warnetID uint64) (int64, error) {
	return m.userMarkReadFn(ctx, id, warnetID)
}
func (m *mockChatService) Conversations(ctx context.Context, id model.Identity) ([]model.Conversation, error) {
	return m.conversationsFn(ctx, id)
}
func (m *mockChatService) OperatorThread(ctx context.Context, id model.Identity, userID uint64) ([]model.ChatMessage, error) {
	return m.opThreadFn(ctx, id, userID)
}
func (m *mockChatService) OperatorSend(ctx context.Context, id model.Identity, userID uint64, msg string) (*model.ChatMessage, error) {
	return m.opSendFn(ctx, id, userID, msg)
}
func (m *mockChatService) OperatorMarkRead(ctx context.Context, id model.Identity, userID uint64) (int64, error) {
	return m.opMarkReadFn(ctx, id, userID)
}

// --- Helpers ---

func asUser(id uint64) model.Identity { return model.Identity{UserID: id, Role: model.RoleUser} }

func asOperator(id, warnetID uint64) model.Identity {
	return model.Identity{UserID: id, Role: model.RoleOperator, WarnetID: &warnetID}
}

// newCtx builds an Echo context for body with the given content type,
// path params and caller.  A zero identity leaves the request anonymous.
func newCtx(method, target, contentType string, body io.Reader, id model.Identity, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) > 0 {
		var names, values []string
		for i := 0; i+1 < len(params); i += 2 {
			names = append(names, params[i])
			values = append(values, params[i+1])
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	if id.UserID != 0 {
		middleware.SetIdentity(c, id)
	}
	return c, rec
}

type response struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
	Meta    *pageMeta       `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var r response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	return r
}

func sampleBooking(id uint64) *model.Booking {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return &model.Booking{
		ID:             id,
		UserID:         7,
		WarnetID:       1,
		PCNumber:       3,
		BookingDate:    now,
		StartTime:      "10:00",
		DurationHours:  2,
		PaymentMethod:  model.MethodDompetBowar,
		Status:         model.BookingActive,
		PaymentStatus:  model.PaymentPaid,
		CanCancelUntil: now.Add(2 * time.Minute),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
