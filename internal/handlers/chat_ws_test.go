package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NatalyaAtyukova/chat-service/internal/auth"
	"github.com/NatalyaAtyukova/chat-service/internal/chat"
	"github.com/NatalyaAtyukova/chat-service/internal/models"
)

// memStore is an in-memory chat.Store so the websocket flow can be tested
// without a database.
type memStore struct {
	mu     sync.Mutex
	users  map[int64]string
	nextID int64
}

func (s *memStore) InsertMessage(_ context.Context, senderID, receiverID int64, content string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	senderName, ok := s.users[senderID]
	if !ok {
		return nil, fmt.Errorf("sender %d: %w", senderID, errors.New("user not found"))
	}
	receiverName, ok := s.users[receiverID]
	if !ok {
		return nil, fmt.Errorf("receiver %d: %w", receiverID, errors.New("user not found"))
	}

	s.nextID++
	return &models.Message{
		ID:               s.nextID,
		SenderID:         senderID,
		ReceiverID:       receiverID,
		Content:          content,
		Timestamp:        time.Now().UTC(),
		SenderUsername:   senderName,
		ReceiverUsername: receiverName,
	}, nil
}

func newWSTestServer(t *testing.T) (*httptest.Server, *chat.Registry) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	registry := chat.NewRegistry()
	svc := chat.NewService(&memStore{users: map[int64]string{1: "alice", 2: "bob", 3: "carol"}}, registry, logger)

	mux := http.NewServeMux()
	mux.Handle("/ws/chat/", http.HandlerFunc(ChatWSHandler(logger, svc, registry)))
	mux.Handle("/messages/send", http.HandlerFunc(SendMessageHandler(svc)))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, registry
}

func dialChat(t *testing.T, srv *httptest.Server, userID int64) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, fmt.Sprintf("%s/ws/chat/%d", srv.URL, userID), &websocket.DialOptions{
		Subprotocols: []string{"chat"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for: %s", msg)
}

func readMessage(t *testing.T, conn *websocket.Conn) models.Message {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg models.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func writeFrame(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(payload)))
}

func TestChatWSPushDelivery(t *testing.T) {
	srv, registry := newWSTestServer(t)

	bob := dialChat(t, srv, 2)
	waitFor(t, func() bool { return registry.Count(2) == 1 }, "bob's connection registered")

	carol := dialChat(t, srv, 3)
	waitFor(t, func() bool { return registry.Count(3) == 1 }, "carol's connection registered")

	alice := dialChat(t, srv, 1)
	waitFor(t, func() bool { return registry.Count(1) == 1 }, "alice's connection registered")

	writeFrame(t, alice, `{"sender_id":1,"receiver_id":2,"content":"hi"}`)

	pushed := readMessage(t, bob)
	assert.Equal(t, int64(1), pushed.SenderID)
	assert.Equal(t, int64(2), pushed.ReceiverID)
	assert.Equal(t, "hi", pushed.Content)
	assert.Equal(t, "alice", pushed.SenderUsername)
	assert.Equal(t, "bob", pushed.ReceiverUsername)

	// The sender's own connections get the message too.
	echoed := readMessage(t, alice)
	assert.Equal(t, pushed.ID, echoed.ID)

	// Carol must receive nothing; her next read should time out.
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, _, err := carol.Read(ctx)
	assert.Error(t, err, "unrelated user must not receive a push")
}

func TestChatWSMalformedFrameKeepsConnectionOpen(t *testing.T) {
	srv, registry := newWSTestServer(t)

	bob := dialChat(t, srv, 2)
	waitFor(t, func() bool { return registry.Count(2) == 1 }, "bob's connection registered")

	alice := dialChat(t, srv, 1)
	waitFor(t, func() bool { return registry.Count(1) == 1 }, "alice's connection registered")

	writeFrame(t, alice, `this is not json`)
	writeFrame(t, alice, `{"sender_id":1,"receiver_id":2,"content":"still here"}`)

	pushed := readMessage(t, bob)
	assert.Equal(t, "still here", pushed.Content)
	assert.Equal(t, 1, registry.Count(1), "malformed frame must not close the connection")
}

func TestChatWSRejectedSubmissionReturnsErrorFrame(t *testing.T) {
	srv, registry := newWSTestServer(t)

	alice := dialChat(t, srv, 1)
	waitFor(t, func() bool { return registry.Count(1) == 1 }, "alice's connection registered")

	writeFrame(t, alice, `{"sender_id":1,"receiver_id":99,"content":"hello void"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, data, err := alice.Read(ctx)
	require.NoError(t, err)

	var errFrame map[string]string
	require.NoError(t, json.Unmarshal(data, &errFrame))
	assert.Contains(t, errFrame["error"], "not found")
}

func TestHTTPSubmitPushesToLiveReceiver(t *testing.T) {
	srv, registry := newWSTestServer(t)

	bob := dialChat(t, srv, 2)
	waitFor(t, func() bool { return registry.Count(2) == 1 }, "bob's connection registered")

	auth.Init()
	token, err := auth.CreateJWT(1)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/messages/send",
		strings.NewReader(`{"receiver_id":2,"content":"hi"}`))
	require.NoError(t, err)
	req.Header.Set("Cookie", "auth_token="+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "alice", created.SenderUsername)
	assert.Equal(t, "bob", created.ReceiverUsername)

	pushed := readMessage(t, bob)
	assert.Equal(t, created.ID, pushed.ID)
	assert.Equal(t, "hi", pushed.Content)
	assert.Equal(t, int64(1), pushed.SenderID)
	assert.Equal(t, int64(2), pushed.ReceiverID)
}

func TestChatWSDisconnectUnregisters(t *testing.T) {
	srv, registry := newWSTestServer(t)

	bob := dialChat(t, srv, 2)
	waitFor(t, func() bool { return registry.Count(2) == 1 }, "bob's connection registered")

	bob.Close(websocket.StatusNormalClosure, "bye")
	waitFor(t, func() bool { return registry.Count(2) == 0 }, "bob's connection unregistered")
}

func TestChatWSInvalidUserIDPath(t *testing.T) {
	srv, _ := newWSTestServer(t)

	resp, err := http.Get(srv.URL + "/ws/chat/not-a-number")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
