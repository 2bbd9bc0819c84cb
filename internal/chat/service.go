package chat

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/NatalyaAtyukova/chat-service/internal/models"
)

// ErrSelfMessage rejects submissions where sender and receiver are the same
// user, before anything touches the store.
var ErrSelfMessage = errors.New("cannot send a message to yourself")

// Store persists messages. The production implementation wraps the pgx
// layer; tests substitute an in-memory fake.
type Store interface {
	InsertMessage(ctx context.Context, senderID, receiverID int64, content string) (*models.Message, error)
}

// Journal receives a copy of every persisted message for out-of-band
// consumers. Publishing is best-effort: a journal failure never affects the
// submission.
type Journal interface {
	PublishMessage(ctx context.Context, msg *models.Message) error
}

// Service is the single entry point for message creation and live fan-out.
// Both the HTTP endpoint and the websocket receive loop call Submit, so a
// message is never pushed without having been persisted first.
type Service struct {
	store    Store
	registry *Registry
	journal  Journal
	log      *logrus.Logger
}

func NewService(store Store, registry *Registry, logger *logrus.Logger) *Service {
	return &Service{
		store:    store,
		registry: registry,
		log:      logger,
	}
}

// SetJournal attaches an optional message journal. Called once during
// wire-up, before the service starts taking traffic.
func (s *Service) SetJournal(j Journal) {
	s.journal = j
}

// Submit validates, persists, and returns the enriched message record.
// It does not dispatch; callers follow up with Dispatch so that the
// persist-then-push ordering is explicit at the call site.
func (s *Service) Submit(ctx context.Context, senderID, receiverID int64, content string) (*models.Message, error) {
	if senderID == receiverID {
		return nil, ErrSelfMessage
	}

	msg, err := s.store.InsertMessage(ctx, senderID, receiverID, content)
	if err != nil {
		return nil, err
	}

	if s.journal != nil {
		if err := s.journal.PublishMessage(ctx, msg); err != nil {
			s.log.Warnf("journal publish failed for message %d: %v", msg.ID, err)
		}
	}
	return msg, nil
}

// Dispatch pushes a persisted message to every live connection of both
// participants. It never fails observably: a handle that cannot be written
// is unregistered and killed, and delivery to the remaining handles
// continues. The record is serialized once and shared across all sends.
func (s *Service) Dispatch(msg *models.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Errorf("failed to marshal message %d for dispatch: %v", msg.ID, err)
		return
	}

	s.pushTo(msg.SenderID, data, msg.ID)
	s.pushTo(msg.ReceiverID, data, msg.ID)
}

func (s *Service) pushTo(userID int64, data []byte, msgID int64) {
	for _, h := range s.registry.ConnectionsFor(userID) {
		if err := h.Send(data); err != nil {
			s.log.Warnf("push of message %d to user %d conn %s failed, dropping connection: %v",
				msgID, userID, h.ID(), err)
			s.registry.Unregister(userID, h)
			h.Kill()
		}
	}
}
