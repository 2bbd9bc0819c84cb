package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/NatalyaAtyukova/chat-service/internal/auth"
	"github.com/NatalyaAtyukova/chat-service/internal/database"
	"github.com/NatalyaAtyukova/chat-service/internal/models"
)

// CreateUserHandler registers a new user.
//
// Request payload: { "username": "alice", "password": "secret" }
func CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	user := models.User{
		Username: req.Username,
		Password: req.Password,
	}

	if err := database.CreateUser(r.Context(), &user); err != nil {
		if errors.Is(err, database.ErrDuplicateUsername) {
			http.Error(w, "username already registered", http.StatusConflict)
			return
		}
		http.Error(w, "error creating user", http.StatusInternalServerError)
		return
	}

	user.Password = ""
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// LoginHandler verifies credentials and returns a JSON response with an
// authentication token plus the caller's id and display name. The token is
// also sent via the Cookie header.
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	token, user, err := database.AuthenticateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		log.Printf("failed to authenticate user: %v", err)
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		MaxAge:   auth.TOKEN_EXPIRE_TIME_SEC,
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
	})
}

// SearchUsersHandler returns users whose username matches the query
// substring. The client keeps its name-to-id directory warm from this
// response, so id and username are always returned together.
func SearchUsersHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	users, err := database.SearchUsers(r.Context(), query)
	if err != nil {
		http.Error(w, "failed to search users", http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []models.PublicUser{}
	}
	writeJSON(w, http.StatusOK, users)
}
