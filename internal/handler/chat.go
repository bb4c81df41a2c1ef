package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/warnet-bowar/internal/model"
)

// ChatService is implemented by *service.ChatService.
type ChatService interface {
	UserThread(ctx context.Context, id model.Identity, warnetID uint64) ([]model.ChatMessage, error)
	UserSend(ctx context.Context, id model.Identity, warnetID uint64, msg string) (*model.ChatMessage, error)
	UserMarkRead(ctx context.Context, id model.Identity, warnetID uint64) (int64, error)
	Conversations(ctx context.Context, id model.Identity) ([]model.Conversation, error)
	OperatorThread(ctx context.Context, id model.Identity, userID uint64) ([]model.ChatMessage, error)
	OperatorSend(ctx context.Context, id model.Identity, userID uint64, msg string) (*model.ChatMessage, error)
	OperatorMarkRead(ctx context.Context, id model.Identity, userID uint64) (int64, error)
}

// ChatHandler serves /api/chat for both sides of a user/venue thread.
type ChatHandler struct {
	Base
	Chat ChatService
}

func NewChatHandler(b Base, s ChatService) *ChatHandler {
	return &ChatHandler{Base: b, Chat: s}
}

type sendReq struct {
	Message string `json:"message" form:"message"`
}

type readResp struct {
	Updated int64 `json:"updated"`
}

// target resolves the caller and the numeric path parameter naming the
// other side of the thread.
func (h *ChatHandler) target(c echo.Context, param string) (model.Identity, uint64, error) {
	id, err := h.identity(c)
	if err != nil {
		return id, 0, err
	}
	n, err := parseID(c, param)
	return id, n, err
}

func threadOut(ms []model.ChatMessage) []model.ChatMessage {
	if ms == nil {
		return []model.ChatMessage{}
	}
	return ms
}

func (h *ChatHandler) UserThread(c echo.Context) error {
	id, warnetID, err := h.target(c, "warnetId")
	if err != nil {
		return h.fail(c, err)
	}
	ms, err := h.Chat.UserThread(c.Request().Context(), id, warnetID)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, "Percakapan", threadOut(ms))
}

func (h *ChatHandler) UserSend(c echo.Context) error {
	id, warnetID, err := h.target(c, "warnetId")
	if err != nil {
		return h.fail(c, err)
	}
	var req sendReq
	if err := c.Bind(&req); err != nil {
		return h.invalid(c, "invalid body")
	}
	m, err := h.Chat.UserSend(c.Request().Context(), id, warnetID, req.Message)
	if err != nil {
		return h.fail(c, err)
	}
	return created(c, "Pesan terkirim", m)
}

func (h *ChatHandler) UserMarkRead(c echo.Context) error {
	id, warnetID, err := h.target(c, "warnetId")
	if err != nil {
		return h.fail(c, err)
	}
	n, err := h.Chat.UserMarkRead(c.Request().Context(), id, warnetID)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, "Pesan ditandai sudah dibaca", readResp{Updated: n})
}

// Conversations lists one entry per user who chatted with the operator's
// venue.
func (h *ChatHandler) Conversations(c echo.Context) error {
	id, err := h.identity(c)
	if err != nil {
		return h.fail(c, err)
	}
	cs, err := h.Chat.Conversations(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	if cs == nil {
		cs = []model.Conversation{}
	}
	return ok(c, "Daftar percakapan", cs)
}

func (h *ChatHandler) OperatorThread(c echo.Context) error {
	id, userID, err := h.target(c, "userId")
	if err != nil {
		return h.fail(c, err)
	}
	ms, err := h.Chat.OperatorThread(c.Request().Context(), id, userID)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, "Percakapan", threadOut(ms))
}

func (h *ChatHandler) OperatorSend(c echo.Context) error {
	id, userID, err := h.target(c, "userId")
	if err != nil {
		return h.fail(c, err)
	}
	var req sendReq
	if err := c.Bind(&req); err != nil {
		return h.invalid(c, "invalid body")
	}
	m, err := h.Chat.OperatorSend(c.Request().Context(), id, userID, req.Message)
	if err != nil {
		return h.fail(c, err)
	}
	return created(c, "Pesan terkirim", m)
}

func (h *ChatHandler) OperatorMarkRead(c echo.Context) error {
	id, userID, err := h.target(c, "userId")
	if err != nil {
		return h.fail(c, err)
	}
	n, err := h.Chat.OperatorMarkRead(c.Request().Context(), id, userID)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, "Pesan ditandai sudah dibaca", readResp{Updated: n})
}
