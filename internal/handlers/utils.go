package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/NatalyaAtyukova/chat-service/internal/auth"
	"github.com/NatalyaAtyukova/chat-service/internal/database"
)

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// authedUserID resolves the caller's user id from the auth_token cookie or,
// failing that, a Bearer token. Writes the appropriate error response and
// returns false when authentication fails.
func authedUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	token := extractCookieToken(r.Header.Get("Cookie"), "auth_token")
	if token == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}
	}
	if token == "" {
		http.Error(w, "missing auth_token", http.StatusUnauthorized)
		return 0, false
	}

	userID, err := auth.AuthenticateJWT(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return 0, false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeStoreError maps persistence-layer sentinel errors onto HTTP statuses
// with a human-readable detail string.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrRequestNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, database.ErrDuplicateUsername),
		errors.Is(err, database.ErrDuplicateRequest),
		errors.Is(err, database.ErrAlreadyFriends),
		errors.Is(err, database.ErrRequestResolved):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
