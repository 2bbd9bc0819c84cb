package models

import "time"

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// PublicUser is the shape returned by search and friend listings: no
// credential material, just enough to render a contact entry.
type PublicUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}
