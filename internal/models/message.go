package models

import "time"

// Message is a persisted chat message. SenderUsername and ReceiverUsername
// are denormalized at read time so consumers of the push feed and the
// history endpoint never have to re-resolve ids to display names.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`

	SenderUsername   string `json:"sender_username"`
	ReceiverUsername string `json:"receiver_username"`
}

// MessageSubmission is the inbound frame accepted on the chat websocket and
// the payload of POST /messages/send. Both transports decode into this and
// funnel through the same submission path.
type MessageSubmission struct {
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Content    string `json:"content"`
}
