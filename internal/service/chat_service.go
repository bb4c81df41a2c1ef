package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/warnet-bowar/internal/model"
)

const (
	maxMessageLen = 1000
	threadLimit   = 100
)

// ChatService scopes messages to (user, warnet).  Users address a thread
// by warnet; operators by user, always within their own warnet.
type ChatService struct {
	chats   ChatStore
	warnets WarnetStore
	users   UserStore
}

func NewChatService(chats ChatStore, warnets WarnetStore, users UserStore) *ChatService {
	return &ChatService{chats: chats, warnets: warnets, users: users}
}

func cleanMessage(msg string) (string, error) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "", fmt.Errorf("%w: message is required", ErrValidation)
	}
	if utf8.RuneCountInString(msg) > maxMessageLen {
		return "", fmt.Errorf("%w: message is longer than %d characters", ErrValidation, maxMessageLen)
	}
	return msg, nil
}

func operatorWarnet(id model.Identity) (uint64, error) {
	if !id.IsOperator() || id.WarnetID == nil {
		return 0, ErrForbidden
	}
	return *id.WarnetID, nil
}

func (s *ChatService) userThreadGuard(ctx context.Context, id model.Identity, warnetID uint64) error {
	if id.IsOperator() {
		return ErrForbidden
	}
	_, err := s.warnets.GetByID(ctx, warnetID)
	return err
}

// UserThread returns the caller's messages with a warnet.
func (s *ChatService) UserThread(ctx context.Context, id model.Identity, warnetID uint64) ([]model.ChatMessage, error) {
	if err := s.userThreadGuard(ctx, id, warnetID); err != nil {
		return nil, err
	}
	return s.chats.ListThread(ctx, id.UserID, warnetID, threadLimit)
}

// UserSend posts a message from the caller to a warnet.
func (s *ChatService) UserSend(ctx context.Context, id model.Identity, warnetID uint64, msg string) (*model.ChatMessage, error) {
	text, err := cleanMessage(msg)
	if err != nil {
		return nil, err
	}
	if err := s.userThreadGuard(ctx, id, warnetID); err != nil {
		return nil, err
	}
	m := &model.ChatMessage{
		UserID:     id.UserID,
		WarnetID:   warnetID,
		SenderRole: model.RoleUser,
		SenderID:   id.UserID,
		Message:    text,
	}
	if err := s.chats.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// UserMarkRead marks the operator's messages in the thread as read.
func (s *ChatService) UserMarkRead(ctx context.Context, id model.Identity, warnetID uint64) (int64, error) {
	if err := s.userThreadGuard(ctx, id, warnetID); err != nil {
		return 0, err
	}
	return s.chats.MarkRead(ctx, id.UserID, warnetID, model.RoleOperator)
}

// Conversations lists the threads of the operator's warnet.
func (s *ChatService) Conversations(ctx context.Context, id model.Identity) ([]model.Conversation, error) {
	warnetID, err := operatorWarnet(id)
	if err != nil {
		return nil, err
	}
	return s.chats.Conversations(ctx, warnetID)
}

func (s *ChatService) operatorGuard(ctx context.Context, id model.Identity, userID uint64) (uint64, error) {
	warnetID, err := operatorWarnet(id)
	if err != nil {
		return 0, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return 0, err
	}
	return warnetID, nil
}

// OperatorThread returns the operator's thread with one user.
func (s *ChatService) OperatorThread(ctx context.Context, id model.Identity, userID uint64) ([]model.ChatMessage, error) {
	warnetID, err := s.operatorGuard(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s.chats.ListThread(ctx, userID, warnetID, threadLimit)
}

// OperatorSend replies to a user on behalf of the operator's warnet.
func (s *ChatService) OperatorSend(ctx context.Context, id model.Identity, userID uint64, msg string) (*model.ChatMessage, error) {
	text, err := cleanMessage(msg)
	if err != nil {
		return nil, err
	}
	warnetID, err := s.operatorGuard(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	m := &model.ChatMessage{
		UserID:     userID,
		WarnetID:   warnetID,
		SenderRole: model.RoleOperator,
		SenderID:   id.UserID,
		Message:    text,
	}
	if err := s.chats.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// OperatorMarkRead marks the user's messages in the thread as read.
func (s *ChatService) OperatorMarkRead(ctx context.Context, id model.Identity, userID uint64) (int64, error) {
	warnetID, err := s.operatorGuard(ctx, id, userID)
	if err != nil {
		return 0, err
	}
	return s.chats.MarkRead(ctx, userID, warnetID, model.RoleUser)
}
