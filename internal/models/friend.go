package models

import "time"

// Friend request lifecycle statuses. Once a request leaves 'pending' it is
// immutable.
const (
	FriendRequestPending  = "pending"
	FriendRequestAccepted = "accepted"
	FriendRequestRejected = "rejected"
)

type FriendRequest struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`

	SenderUsername string `json:"sender_username,omitempty"`
}

// Friendship is one directed row of the symmetric relation. Accepting a
// request materializes both (user, friend) and (friend, user).
type Friendship struct {
	UserID   int64 `json:"user_id"`
	FriendID int64 `json:"friend_id"`
}
