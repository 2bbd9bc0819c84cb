package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/NatalyaAtyukova/chat-service/internal/chat"
	"github.com/NatalyaAtyukova/chat-service/internal/database"
	"github.com/NatalyaAtyukova/chat-service/internal/models"
)

const defaultMessageLimit = 50

// SendMessageHandler accepts a message over the request/response surface.
// The sender is the authenticated caller; the submission flows through the
// same service path as websocket frames, so it is persisted first and then
// fanned out to every live connection of both participants.
//
// Request payload: { "receiver_id": 42, "content": "hi" }
func SendMessageHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := authedUserID(w, r)
		if !ok {
			return
		}

		var req struct {
			ReceiverID int64  `json:"receiver_id"`
			Content    string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if req.Content == "" {
			http.Error(w, "content is required", http.StatusBadRequest)
			return
		}

		msg, err := svc.Submit(r.Context(), userID, req.ReceiverID, req.Content)
		if err != nil {
			if errors.Is(err, chat.ErrSelfMessage) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			writeStoreError(w, err)
			return
		}
		svc.Dispatch(msg)

		writeJSON(w, http.StatusCreated, msg)
	}
}

// ListMessagesHandler returns the conversation between the caller and the
// user named by ?with=, oldest first, paginated by limit/offset.
func ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUserID(w, r)
	if !ok {
		return
	}

	otherID, err := strconv.ParseInt(r.URL.Query().Get("with"), 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid 'with' parameter", http.StatusBadRequest)
		return
	}

	limit := defaultMessageLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	msgs, err := database.ListMessages(r.Context(), userID, otherID, limit, offset)
	if err != nil {
		http.Error(w, "failed to list messages", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}
