package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/NatalyaAtyukova/chat-service/internal/auth"
	"github.com/NatalyaAtyukova/chat-service/internal/models"
)

// CreateUser hashes the plaintext password and inserts the row, filling in
// the generated id and created_at on the passed user.
func CreateUser(ctx context.Context, user *models.User) error {
	hash, err := auth.CreateHash(user.Password, auth.Params)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = hash

	q := `INSERT INTO users (username, password)
	      VALUES ($1, $2)
	      RETURNING id, created_at`

	err = DB.QueryRow(ctx, q, user.Username, user.Password).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	q := `SELECT id, username, password, created_at FROM users WHERE id=$1`
	err := DB.QueryRow(ctx, q, id).Scan(&u.ID, &u.Username, &u.Password, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	q := `SELECT id, username, password, created_at FROM users WHERE username=$1`
	err := DB.QueryRow(ctx, q, username).Scan(&u.ID, &u.Username, &u.Password, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SearchUsers returns users whose username contains the query substring,
// case-insensitively. An empty query lists everyone; the cap keeps the
// response bounded either way.
func SearchUsers(ctx context.Context, query string) ([]models.PublicUser, error) {
	q := `
	SELECT id, username FROM users
	WHERE username ILIKE '%' || $1 || '%'
	ORDER BY username
	LIMIT 100
	`
	rows, err := DB.Query(ctx, q, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.PublicUser
	for rows.Next() {
		var u models.PublicUser
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// AuthenticateUser verifies the credentials and returns a signed JWT for the
// user on success.
func AuthenticateUser(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := GetUserByUsername(ctx, username)
	if err != nil {
		return "", nil, fmt.Errorf("user not found or db error: %w", err)
	}

	match, err := auth.ComparePasswordAndHash(password, user.Password)
	if err != nil || !match {
		return "", nil, fmt.Errorf("invalid credentials")
	}

	token, err := auth.CreateJWT(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create jwt: %w", err)
	}

	return token, user, nil
}
