package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/NatalyaAtyukova/chat-service/internal/chat"
	"github.com/NatalyaAtyukova/chat-service/internal/models"
)

// wsConn adapts one websocket connection to the chat.Handle interface. The
// dispatcher enqueues frames onto OutChan; the writePump goroutine drains
// them onto the wire. A full buffer or a killed connection surfaces as a
// Send error, which makes the dispatcher drop this handle.
type wsConn struct {
	id      uuid.UUID
	userID  int64
	outChan chan []byte
	ctx     context.Context
	cancel  context.CancelFunc
}

func (c *wsConn) ID() uuid.UUID { return c.id }

func (c *wsConn) Send(data []byte) error {
	select {
	case <-c.ctx.Done():
		return fmt.Errorf("connection %s closed", c.id)
	case c.outChan <- data:
		return nil
	default:
		return fmt.Errorf("send buffer full for connection %s", c.id)
	}
}

func (c *wsConn) Kill() { c.cancel() }

// ChatWSHandler upgrades the HTTP connection to a persistent chat feed for
// the user named in the URL path (/ws/chat/{user_id}). The connection is
// registered for push delivery, and any text frames the client sends are
// treated as message submissions flowing through the same service path as
// the HTTP endpoint.
func ChatWSHandler(logger *logrus.Logger, svc *chat.Service, registry *chat.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := strings.Trim(strings.TrimPrefix(r.URL.Path, "/ws/chat/"), "/")
		userID, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "invalid user_id in path (/ws/chat/{user_id})", http.StatusBadRequest)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"chat"},
			OriginPatterns: []string{"*"}, // Adjust in production.
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "chat" {
			c.Close(BadSubprotocolError, "client must speak the chat subprotocol")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		conn := &wsConn{
			id:      uuid.New(),
			userID:  userID,
			outChan: make(chan []byte, 16),
			ctx:     ctx,
			cancel:  cancel,
		}

		registry.Register(userID, conn)
		logger.Infof("User %d (%s) connected to chat feed, conn %s", userID, r.RemoteAddr, conn.id)

		go writePump(ctx, c, conn, logger)

		// Blocks until the connection closes or errors out.
		readPump(ctx, c, conn, svc, logger)

		registry.Unregister(userID, conn)
		cancel()
		logger.Infof("User %d conn %s disconnected from chat feed", userID, conn.id)
	}
}

// readPump receives message submissions from the client. Malformed frames
// are logged and skipped; the connection stays open. Each valid submission
// is persisted first and only then dispatched.
func readPump(ctx context.Context, c *websocket.Conn, conn *wsConn, svc *chat.Service, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				logger.Infof("Chat conn %s closed normally", conn.id)
			} else if !strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("Chat conn %s read error: %v", conn.id, err)
			}
			return
		}

		if typ != websocket.MessageText {
			logger.Warnf("Chat conn %s sent non-text message type %d, ignoring", conn.id, typ)
			continue
		}

		var sub models.MessageSubmission
		if err := json.Unmarshal(msg, &sub); err != nil {
			logger.Warnf("Chat conn %s sent invalid json, frame dropped: %v", conn.id, err)
			continue
		}
		if sub.Content == "" {
			logger.Warnf("Chat conn %s sent submission with empty content, frame dropped", conn.id)
			continue
		}

		rec, err := svc.Submit(ctx, sub.SenderID, sub.ReceiverID, sub.Content)
		if err != nil {
			logger.Warnf("Chat conn %s submission rejected: %v", conn.id, err)
			writeConnError(conn, err)
			continue
		}
		svc.Dispatch(rec)
	}
}

// writeConnError sends a structured error frame back to the submitting
// client. Best-effort: the submission has already been rejected either way.
func writeConnError(conn *wsConn, err error) {
	payload, merr := json.Marshal(map[string]string{"error": err.Error()})
	if merr != nil {
		return
	}
	_ = conn.Send(payload)
}

// writePump drains the connection's outbound queue onto the wire and keeps
// the connection alive with periodic pings. Any write or ping failure ends
// the pump; readPump notices via the closed connection and runs cleanup.
func writePump(ctx context.Context, c *websocket.Conn, conn *wsConn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-conn.outChan:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Chat conn %s write failed: %v", conn.id, err)
				conn.cancel()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("Chat conn %s ping failed, assuming disconnect: %v", conn.id, err)
				conn.cancel()
				return
			}
		}
	}
}
