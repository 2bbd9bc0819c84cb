package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/NatalyaAtyukova/chat-service/internal/models"
)

// InsertFriendRequest creates a pending request from sender to receiver.
// Returns ErrAlreadyFriends if a friendship row exists in either direction,
// ErrDuplicateRequest if a pending request between the pair is already open.
func InsertFriendRequest(ctx context.Context, senderID, receiverID int64) (*models.FriendRequest, error) {
	if _, err := GetUserByID(ctx, receiverID); err != nil {
		return nil, err
	}

	friends, err := AreFriends(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if friends {
		return nil, ErrAlreadyFriends
	}

	var open bool
	q := `SELECT EXISTS (
		SELECT 1 FROM friend_requests
		WHERE status = 'pending'
		  AND ((sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1))
	)`
	if err := DB.QueryRow(ctx, q, senderID, receiverID).Scan(&open); err != nil {
		return nil, err
	}
	if open {
		return nil, ErrDuplicateRequest
	}

	req := &models.FriendRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.FriendRequestPending,
	}
	ins := `INSERT INTO friend_requests (sender_id, receiver_id, status)
	        VALUES ($1, $2, 'pending')
	        RETURNING id, created_at`
	if err := DB.QueryRow(ctx, ins, senderID, receiverID).Scan(&req.ID, &req.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateRequest
		}
		return nil, fmt.Errorf("failed to insert friend request: %w", err)
	}
	return req, nil
}

// RespondFriendRequest resolves a pending request addressed to receiverID.
// Accepting materializes the symmetric friendship as two directed rows in
// the same transaction; rejecting just flips the status. A request that has
// already been resolved yields ErrRequestResolved.
func RespondFriendRequest(ctx context.Context, requestID, receiverID int64, status string) error {
	if status != models.FriendRequestAccepted && status != models.FriendRequestRejected {
		return fmt.Errorf("invalid friend request status %q", status)
	}

	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var req models.FriendRequest
		q := `SELECT id, sender_id, receiver_id, status FROM friend_requests WHERE id=$1 FOR UPDATE`
		err := tx.QueryRow(ctx, q, requestID).Scan(&req.ID, &req.SenderID, &req.ReceiverID, &req.Status)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRequestNotFound
		}
		if err != nil {
			return err
		}
		if req.ReceiverID != receiverID {
			return ErrRequestNotFound
		}
		if req.Status != models.FriendRequestPending {
			return ErrRequestResolved
		}

		upd := `UPDATE friend_requests SET status=$1 WHERE id=$2`
		if _, err := tx.Exec(ctx, upd, status, requestID); err != nil {
			return err
		}

		if status == models.FriendRequestAccepted {
			ins := `INSERT INTO friendships (user_id, friend_id)
			        VALUES ($1, $2), ($2, $1)
			        ON CONFLICT DO NOTHING`
			if _, err := tx.Exec(ctx, ins, req.SenderID, req.ReceiverID); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListPendingRequests returns open requests addressed to the user, with the
// sender's display name for rendering.
func ListPendingRequests(ctx context.Context, receiverID int64) ([]models.FriendRequest, error) {
	q := `
	SELECT fr.id, fr.sender_id, fr.receiver_id, fr.status, fr.created_at, u.username
	FROM friend_requests fr
	JOIN users u ON u.id = fr.sender_id
	WHERE fr.receiver_id = $1 AND fr.status = 'pending'
	ORDER BY fr.created_at
	`
	rows, err := DB.Query(ctx, q, receiverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []models.FriendRequest
	for rows.Next() {
		var r models.FriendRequest
		err := rows.Scan(&r.ID, &r.SenderID, &r.ReceiverID, &r.Status, &r.CreatedAt, &r.SenderUsername)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}

// ListFriends returns the user's friends as contact entries.
func ListFriends(ctx context.Context, userID int64) ([]models.PublicUser, error) {
	q := `
	SELECT u.id, u.username
	FROM friendships f
	JOIN users u ON u.id = f.friend_id
	WHERE f.user_id = $1
	ORDER BY u.username
	`
	rows, err := DB.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var friends []models.PublicUser
	for rows.Next() {
		var f models.PublicUser
		if err := rows.Scan(&f.ID, &f.Username); err != nil {
			return nil, err
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}

// AreFriends reports whether a directed friendship row exists from a to b.
// Rows are always written in pairs, so one direction is enough.
func AreFriends(ctx context.Context, a, b int64) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM friendships WHERE user_id=$1 AND friend_id=$2)`
	err := DB.QueryRow(ctx, q, a, b).Scan(&exists)
	return exists, err
}
