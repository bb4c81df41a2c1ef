package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/warnet-bowar/internal/model"
)

// ChatRepo stores user ↔ warnet chat threads.  A thread is identified by
// (warnet_id, user_id).
type ChatRepo struct{ DB *sql.DB }

func NewChatRepo(db *sql.DB) *ChatRepo { return &ChatRepo{DB: db} }

const chatColumns = `id, user_id, warnet_id, sender_role, sender_id, message, is_read, created_at`

func scanChat(s rowScanner) (*model.ChatMessage, error) {
	var m model.ChatMessage
	if err := s.Scan(&m.ID, &m.UserID, &m.WarnetID, &m.SenderRole, &m.SenderID, &m.Message, &m.IsRead, &m.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// Create appends a message to a thread and fills ID and CreatedAt.
func (r *ChatRepo) Create(ctx context.Context, m *model.ChatMessage) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO chat_messages (user_id, warnet_id, sender_role, sender_id, message) VALUES (?,?,?,?,?)`,
		m.UserID, m.WarnetID, m.SenderRole, m.SenderID, m.Message)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return r.DB.QueryRowContext(ctx, `SELECT created_at FROM chat_messages WHERE id = ?`, m.ID).Scan(&m.CreatedAt)
}

// ListThread returns the latest limit messages of a thread in
// chronological order.
func (r *ChatRepo) ListThread(ctx context.Context, userID, warnetID uint64, limit int) ([]model.ChatMessage, error) {
	if limit < 1 || limit > 200 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+chatColumns+` FROM (
			SELECT `+chatColumns+` FROM chat_messages
			WHERE warnet_id = ? AND user_id = ?
			ORDER BY created_at DESC, id DESC LIMIT ?
		) t ORDER BY created_at ASC, id ASC`,
		warnetID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ChatMessage, 0)
	for rows.Next() {
		m, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// MarkRead flags as read the messages of a thread written by senderRole
// and returns how many changed.
func (r *ChatRepo) MarkRead(ctx context.Context, userID, warnetID uint64, senderRole string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE chat_messages SET is_read = 1
		 WHERE warnet_id = ? AND user_id = ? AND sender_role = ? AND is_read = 0`,
		warnetID, userID, senderRole)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Conversations lists the threads of a warnet, most recent first, with
// the number of user messages the operator has not read.
func (r *ChatRepo) Conversations(ctx context.Context, warnetID uint64) ([]model.Conversation, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT c.user_id, u.name, c.message, c.sender_role, c.created_at,
			(SELECT COUNT(*) FROM chat_messages x
			 WHERE x.warnet_id = c.warnet_id AND x.user_id = c.user_id
			   AND x.sender_role = 'USER' AND x.is_read = 0)
		 FROM chat_messages c
		 JOIN users u ON u.id = c.user_id
		 WHERE c.warnet_id = ? AND c.id = (
			SELECT MAX(y.id) FROM chat_messages y WHERE y.warnet_id = c.warnet_id AND y.user_id = c.user_id)
		 ORDER BY c.created_at DESC, c.id DESC`,
		warnetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Conversation, 0)
	for rows.Next() {
		var cv model.Conversation
		if err := rows.Scan(&cv.UserID, &cv.UserName, &cv.LastMessage, &cv.LastSender, &cv.LastMessageAt, &cv.UnreadCount); err != nil {
			return nil, err
		}
		out = append(out, cv)
	}
	return out, rows.Err()
}
