package model

import "time"

// ChatMessage belongs to the thread of one user with one warnet.  SenderRole
// tells which side wrote it; IsRead is flipped by the other side.
type ChatMessage struct {
	ID         uint64    `json:"id"`
	UserID     uint64    `json:"user_id"`
	WarnetID   uint64    `json:"warnet_id"`
	SenderRole string    `json:"sender_role"`
	SenderID   uint64    `json:"sender_id"`
	Message    string    `json:"message"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// Conversation summarizes a thread for the operator inbox.
type Conversation struct {
	UserID        uint64    `json:"user_id"`
	UserName      string    `json:"user_name"`
	LastMessage   string    `json:"last_message"`
	LastSender    string    `json:"last_sender"`
	LastMessageAt time.Time `json:"last_message_at"`
	UnreadCount   int       `json:"unread_count"`
}
