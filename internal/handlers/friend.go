package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/NatalyaAtyukova/chat-service/internal/database"
	"github.com/NatalyaAtyukova/chat-service/internal/models"
)

// SendFriendRequestHandler handles a user sending a friend request.
//
// Request payload: { "receiver_id": 42 }
func SendFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		ReceiverID int64 `json:"receiver_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.ReceiverID == userID {
		http.Error(w, "cannot friend yourself", http.StatusBadRequest)
		return
	}

	fr, err := database.InsertFriendRequest(r.Context(), userID, req.ReceiverID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fr)
}

// RespondFriendRequestHandler resolves a pending request addressed to the
// caller. Accepting creates the two friendship rows.
//
// Request payload: { "request_id": 7, "status": "accepted" | "rejected" }
func RespondFriendRequestHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		RequestID int64  `json:"request_id"`
		Status    string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Status != models.FriendRequestAccepted && req.Status != models.FriendRequestRejected {
		http.Error(w, "status must be 'accepted' or 'rejected'", http.StatusBadRequest)
		return
	}

	if err := database.RespondFriendRequest(r.Context(), req.RequestID, userID, req.Status); err != nil {
		writeStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("friend request " + req.Status))
}

// ListPendingRequestsHandler returns open friend requests addressed to the caller.
func ListPendingRequestsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	reqs, err := database.ListPendingRequests(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to list friend requests", http.StatusInternalServerError)
		return
	}
	if reqs == nil {
		reqs = []models.FriendRequest{}
	}
	writeJSON(w, http.StatusOK, reqs)
}

// ListFriendsHandler returns the caller's friends as contact entries.
func ListFriendsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	friends, err := database.ListFriends(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to list friends", http.StatusInternalServerError)
		return
	}
	if friends == nil {
		friends = []models.PublicUser{}
	}
	writeJSON(w, http.StatusOK, friends)
}
