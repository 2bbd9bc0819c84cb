package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NatalyaAtyukova/chat-service/internal/models"
)

// fakeStore keeps messages in memory and knows a fixed set of users.
type fakeStore struct {
	mu       sync.Mutex
	users    map[int64]string
	messages []*models.Message
	nextID   int64
}

func newFakeStore(users map[int64]string) *fakeStore {
	return &fakeStore{users: users}
}

var errUnknownUser = errors.New("user not found")

func (s *fakeStore) InsertMessage(_ context.Context, senderID, receiverID int64, content string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	senderName, ok := s.users[senderID]
	if !ok {
		return nil, fmt.Errorf("sender %d: %w", senderID, errUnknownUser)
	}
	receiverName, ok := s.users[receiverID]
	if !ok {
		return nil, fmt.Errorf("receiver %d: %w", receiverID, errUnknownUser)
	}

	s.nextID++
	msg := &models.Message{
		ID:               s.nextID,
		SenderID:         senderID,
		ReceiverID:       receiverID,
		Content:          content,
		Timestamp:        time.Now().UTC(),
		SenderUsername:   senderName,
		ReceiverUsername: receiverName,
	}
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// fakeHandle records sent frames and can be made to fail.
type fakeHandle struct {
	mu     sync.Mutex
	id     uuid.UUID
	frames [][]byte
	fail   bool
	killed bool
}

func newFakeHandle() *fakeHandle { return &fakeHandle{id: uuid.New()} }

func (h *fakeHandle) ID() uuid.UUID { return h.id }

func (h *fakeHandle) Send(data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail {
		return errors.New("broken pipe")
	}
	h.frames = append(h.frames, data)
	return nil
}

func (h *fakeHandle) Kill() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.killed = true
}

func (h *fakeHandle) frameCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.frames)
}

func (h *fakeHandle) lastFrame() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.frames) == 0 {
		return nil
	}
	return h.frames[len(h.frames)-1]
}

// fakeJournal collects published records, optionally erroring.
type fakeJournal struct {
	mu        sync.Mutex
	published []*models.Message
	fail      bool
}

func (j *fakeJournal) PublishMessage(_ context.Context, msg *models.Message) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail {
		return errors.New("journal down")
	}
	j.published = append(j.published, msg)
	return nil
}

func newTestService(users map[int64]string) (*Service, *fakeStore, *Registry) {
	store := newFakeStore(users)
	registry := NewRegistry()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewService(store, registry, logger), store, registry
}

func TestSubmitPersistsAndEnriches(t *testing.T) {
	svc, store, _ := newTestService(map[int64]string{1: "alice", 2: "bob"})

	msg, err := svc.Submit(context.Background(), 1, 2, "hi")
	require.NoError(t, err)
	assert.Equal(t, "alice", msg.SenderUsername)
	assert.Equal(t, "bob", msg.ReceiverUsername)
	assert.Equal(t, "hi", msg.Content)
	assert.False(t, msg.Timestamp.IsZero())
	assert.Equal(t, 1, store.count())
}

func TestSubmitRejectsUnknownUsers(t *testing.T) {
	svc, store, _ := newTestService(map[int64]string{1: "alice"})

	_, err := svc.Submit(context.Background(), 1, 99, "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, errUnknownUser)
	assert.Equal(t, 0, store.count(), "nothing may be persisted on validation failure")

	_, err = svc.Submit(context.Background(), 99, 1, "hi")
	require.Error(t, err)
}

func TestSubmitRejectsSelfMessage(t *testing.T) {
	svc, store, _ := newTestService(map[int64]string{1: "alice"})

	_, err := svc.Submit(context.Background(), 1, 1, "hi me")
	assert.ErrorIs(t, err, ErrSelfMessage)
	assert.Equal(t, 0, store.count())
}

func TestSubmitWithNoConnectionsStillPersists(t *testing.T) {
	svc, store, _ := newTestService(map[int64]string{1: "alice", 2: "bob"})

	msg, err := svc.Submit(context.Background(), 1, 2, "offline")
	require.NoError(t, err)

	// Dispatch with zero registered connections: no push, no error.
	svc.Dispatch(msg)
	assert.Equal(t, 1, store.count())
}

func TestDispatchReachesBothParticipantsOnly(t *testing.T) {
	svc, _, registry := newTestService(map[int64]string{1: "alice", 2: "bob", 3: "carol"})

	senderConn := newFakeHandle()
	receiverConn := newFakeHandle()
	bystanderConn := newFakeHandle()
	registry.Register(1, senderConn)
	registry.Register(2, receiverConn)
	registry.Register(3, bystanderConn)

	msg, err := svc.Submit(context.Background(), 1, 2, "hi")
	require.NoError(t, err)
	svc.Dispatch(msg)

	assert.Equal(t, 1, senderConn.frameCount())
	assert.Equal(t, 1, receiverConn.frameCount())
	assert.Equal(t, 0, bystanderConn.frameCount(), "unrelated users must not receive pushes")

	var pushed models.Message
	require.NoError(t, json.Unmarshal(receiverConn.lastFrame(), &pushed))
	assert.Equal(t, msg.ID, pushed.ID)
	assert.Equal(t, "hi", pushed.Content)
	assert.Equal(t, "alice", pushed.SenderUsername)
	assert.Equal(t, "bob", pushed.ReceiverUsername)
}

func TestDispatchFansOutToAllConnectionsOfAUser(t *testing.T) {
	svc, _, registry := newTestService(map[int64]string{1: "alice", 2: "bob"})

	first := newFakeHandle()
	second := newFakeHandle()
	registry.Register(2, first)
	registry.Register(2, second)

	msg, err := svc.Submit(context.Background(), 1, 2, "hi")
	require.NoError(t, err)
	svc.Dispatch(msg)

	assert.Equal(t, 1, first.frameCount())
	assert.Equal(t, 1, second.frameCount())
}

func TestDispatchPrunesFailedHandle(t *testing.T) {
	svc, _, registry := newTestService(map[int64]string{1: "alice", 2: "bob"})

	stale := newFakeHandle()
	stale.fail = true
	healthy := newFakeHandle()
	registry.Register(2, stale)
	registry.Register(2, healthy)

	msg, err := svc.Submit(context.Background(), 1, 2, "hi")
	require.NoError(t, err)
	svc.Dispatch(msg)

	// The failed handle is gone and killed; the healthy one survives and
	// received the frame.
	remaining := registry.ConnectionsFor(2)
	require.Len(t, remaining, 1)
	assert.Equal(t, healthy.ID(), remaining[0].ID())
	assert.True(t, stale.killed)
	assert.Equal(t, 1, healthy.frameCount())

	// A second dispatch no longer sees the stale handle at all.
	msg2, err := svc.Submit(context.Background(), 1, 2, "again")
	require.NoError(t, err)
	svc.Dispatch(msg2)
	assert.Equal(t, 0, stale.frameCount())
	assert.Equal(t, 2, healthy.frameCount())
}

func TestJournalReceivesPersistedMessages(t *testing.T) {
	svc, _, _ := newTestService(map[int64]string{1: "alice", 2: "bob"})
	journal := &fakeJournal{}
	svc.SetJournal(journal)

	_, err := svc.Submit(context.Background(), 1, 2, "hi")
	require.NoError(t, err)
	require.Len(t, journal.published, 1)
	assert.Equal(t, "hi", journal.published[0].Content)
}

func TestJournalFailureDoesNotAffectSubmit(t *testing.T) {
	svc, store, _ := newTestService(map[int64]string{1: "alice", 2: "bob"})
	svc.SetJournal(&fakeJournal{fail: true})

	msg, err := svc.Submit(context.Background(), 1, 2, "hi")
	require.NoError(t, err)
	assert.NotNil(t, msg)
	assert.Equal(t, 1, store.count())
}
