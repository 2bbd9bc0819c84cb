package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/NatalyaAtyukova/chat-service/internal/models"
)

// DefaultBackoff is the fixed wait between reconnection attempts.
const DefaultBackoff = 2 * time.Second

// Notification is what the listener hands to the UI layer for each pushed
// message: just enough to render a line.
type Notification struct {
	SenderUsername string
	Content        string
}

// Sink consumes notifications. It is called from the listener goroutine, so
// implementations must marshal onto their own UI thread if they need one.
type Sink func(Notification)

// Listener maintains a logical always-connected chat feed for one user
// session. It dials the feed, forwards pushed records to the sink, and on
// any disconnect waits a fixed backoff before dialing again, until Stop is
// called.
type Listener struct {
	url     string
	sink    Sink
	log     *logrus.Logger
	backoff time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopCh  chan struct{}
	stopped sync.Once
	done    chan struct{}
}

// NewListener builds a listener for the given user's feed. serverURL is the
// http(s) base of the chat service; coder/websocket handles the scheme.
func NewListener(serverURL string, userID int64, sink Sink, logger *logrus.Logger) *Listener {
	return &Listener{
		url:     fmt.Sprintf("%s/ws/chat/%d", serverURL, userID),
		sink:    sink,
		log:     logger,
		backoff: DefaultBackoff,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Run drives the connect/read/reconnect loop. It blocks until Stop is
// called, so callers usually run it on a dedicated goroutine.
func (l *Listener) Run() {
	defer close(l.done)

	for {
		select {
		case <-l.stopCh:
			return
		default:
		}

		err := l.listenOnce()

		select {
		case <-l.stopCh:
			return
		default:
		}

		if err != nil {
			l.log.Warnf("chat feed connection lost, reconnecting in %s: %v", l.backoff, err)
		}

		select {
		case <-l.stopCh:
			return
		case <-time.After(l.backoff):
		}
	}
}

// listenOnce dials the feed and reads pushed records until the connection
// breaks or the listener is stopped.
func (l *Listener) listenOnce() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()

	conn, _, err := websocket.Dial(ctx, l.url, &websocket.DialOptions{
		Subprotocols: []string{"chat"},
	})
	if err != nil {
		return fmt.Errorf("dial %s: %w", l.url, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "listener stopping")

	l.log.Infof("connected to chat feed at %s", l.url)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var msg models.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			l.log.Warnf("dropping undecodable push frame: %v", err)
			continue
		}
		l.sink(Notification{
			SenderUsername: msg.SenderUsername,
			Content:        msg.Content,
		})
	}
}

// Stop terminates the loop. The termination flag is checked at every loop
// boundary and the in-flight dial/read is cancelled, so Run returns
// promptly without forcibly killing anything mid-write.
func (l *Listener) Stop() {
	l.stopped.Do(func() {
		close(l.stopCh)
		l.mu.Lock()
		if l.cancel != nil {
			l.cancel()
		}
		l.mu.Unlock()
	})
}

// Done is closed once Run has fully exited.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}
