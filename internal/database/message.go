package database

import (
	"context"
	"fmt"
	"time"

	"github.com/NatalyaAtyukova/chat-service/internal/models"
)

// InsertMessage validates both participants, assigns the server-side
// timestamp, persists the row, and returns the record enriched with both
// display usernames. This is the single write path for messages; both the
// HTTP endpoint and the websocket receive loop go through it.
func InsertMessage(ctx context.Context, senderID, receiverID int64, content string) (*models.Message, error) {
	sender, err := GetUserByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("sender %d: %w", senderID, err)
	}
	receiver, err := GetUserByID(ctx, receiverID)
	if err != nil {
		return nil, fmt.Errorf("receiver %d: %w", receiverID, err)
	}

	msg := &models.Message{
		SenderID:         senderID,
		ReceiverID:       receiverID,
		Content:          content,
		Timestamp:        time.Now().UTC(),
		SenderUsername:   sender.Username,
		ReceiverUsername: receiver.Username,
	}

	q := `INSERT INTO messages (sender_id, receiver_id, content, created_at)
	      VALUES ($1, $2, $3, $4)
	      RETURNING id`

	if err := DB.QueryRow(ctx, q, msg.SenderID, msg.ReceiverID, msg.Content, msg.Timestamp).Scan(&msg.ID); err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	return msg, nil
}

// ListMessages returns the conversation between two users in ascending
// timestamp order, paginated by limit/offset.
func ListMessages(ctx context.Context, userID, otherID int64, limit, offset int) ([]models.Message, error) {
	q := `
	SELECT m.id, m.sender_id, m.receiver_id, m.content, m.created_at,
	       s.username, r.username
	FROM messages m
	JOIN users s ON s.id = m.sender_id
	JOIN users r ON r.id = m.receiver_id
	WHERE (m.sender_id = $1 AND m.receiver_id = $2)
	   OR (m.sender_id = $2 AND m.receiver_id = $1)
	ORDER BY m.created_at ASC, m.id ASC
	LIMIT $3 OFFSET $4
	`
	rows, err := DB.Query(ctx, q, userID, otherID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Timestamp,
			&m.SenderUsername, &m.ReceiverUsername)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
