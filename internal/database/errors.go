package database

import "errors"

// Sentinel errors for the store. Handlers map these onto HTTP statuses
// (404 for not-found conditions, 409 for conflicts); everything else is a
// plain internal error.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrRequestNotFound = errors.New("friend request not found")

	ErrDuplicateUsername = errors.New("username already registered")
	ErrDuplicateRequest  = errors.New("friend request already pending")
	ErrAlreadyFriends    = errors.New("users are already friends")
	ErrRequestResolved   = errors.New("friend request already resolved")
)
