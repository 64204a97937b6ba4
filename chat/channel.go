package chat

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/unimarket/unimarket-chat/models"
	"go.uber.org/zap"
)

// ErrChannelNotReady is returned by Send while the channel is not Open.
// Callers surface it to the user; the message is never silently queued or
// dropped.
var ErrChannelNotReady = errors.New("live channel not ready")

type ChannelState int

const (
	StateDisconnected ChannelState = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s ChannelState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "disconnected"
	}
}

// LiveChannel owns the one persistent bidirectional connection of a session.
// The bearer token travels as a handshake query parameter so the server
// authenticates the session before accepting any traffic. Inbound frames are
// parsed as messages and ingested into the store; outbound sends are
// fire-and-forget. The channel does not reconnect on its own: after a
// transport error it lands in Disconnected and a fresh Open on a still-valid
// credential is allowed.
type LiveChannel struct {
	mu      sync.Mutex
	state   ChannelState
	conn    *websocket.Conn
	done    chan struct{}
	baseURL string
	session *Session
	store   *Store
	log     *zap.SugaredLogger
}

// NewLiveChannel builds a disconnected channel. baseURL is the externally
// supplied connection target, e.g. ws://localhost:8080.
func NewLiveChannel(baseURL string, session *Session, store *Store, logger *zap.SugaredLogger) *LiveChannel {
	return &LiveChannel{
		state:   StateDisconnected,
		baseURL: baseURL,
		session: session,
		store:   store,
		log:     logger,
	}
}

func (c *LiveChannel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open dials the chat endpoint with the session credential and starts the
// read pump. Valid only from Disconnected.
func (c *LiveChannel) Open(ctx context.Context) error {
	token := c.session.Token()
	if token == "" {
		return ErrNoCredential
	}

	c.mu.Lock()
	if c.state != StateDisconnected {
		state := c.state
		c.mu.Unlock()
		return errors.Errorf("cannot open channel while %s", state)
	}
	c.state = StateConnecting
	c.mu.Unlock()

	target := c.baseURL + "/api/v1/ws/chat?token=" + url.QueryEscape(token)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		c.log.Warnw("channel connect failed", "err", err)
		return errors.Wrap(err, "opening live channel")
	}

	c.mu.Lock()
	if c.state != StateConnecting {
		// Closed while the dial was in flight.
		c.mu.Unlock()
		conn.Close()
		return errors.New("channel closed during connect")
	}
	c.conn = conn
	c.state = StateOpen
	c.done = make(chan struct{})
	go c.readPump(conn, c.done)
	c.mu.Unlock()

	c.log.Infow("channel open", "target", c.baseURL)
	return nil
}

// readPump ingests every inbound frame until the connection drops. Arrival
// order defines client-observed order per peer; already-ingested history is
// never reordered (ordering is applied at read time by the aggregator).
func (c *LiveChannel) readPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.conn == conn {
				if c.state != StateClosing {
					c.log.Warnw("channel transport error", "err", err)
				}
				c.state = StateDisconnected
				c.conn = nil
			}
			c.mu.Unlock()
			return
		}

		var msg models.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warnw("discarding malformed frame", "err", err)
			continue
		}
		if msg.ID == 0 {
			c.log.Warnw("discarding frame without id")
			continue
		}
		c.store.Ingest(msg)
	}
}

// Send writes one outgoing message to the given peer. Valid only while Open;
// delivery confirmation arrives, if at all, as the server's echo frame on the
// read side.
func (c *LiveChannel) Send(receiver uint, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateOpen {
		return ErrChannelNotReady
	}
	err := c.conn.WriteJSON(models.SendMessageRequest{
		Receiver: receiver,
		Message:  text,
	})
	if err != nil {
		c.log.Warnw("channel send failed", "err", err)
		c.conn.Close()
		c.conn = nil
		c.state = StateDisconnected
		return errors.Wrap(err, "sending message")
	}
	return nil
}

// Close releases the connection and waits for the read pump to exit, so no
// event is ingested after it returns. Idempotent; safe on every exit path.
func (c *LiveChannel) Close() {
	c.mu.Lock()
	switch c.state {
	case StateOpen:
		c.state = StateClosing
		conn := c.conn
		done := c.done
		c.mu.Unlock()
		conn.Close()
		<-done
		c.mu.Lock()
		c.state = StateDisconnected
		c.conn = nil
		c.mu.Unlock()
		return
	case StateConnecting:
		// The in-flight dial observes the state change and discards the
		// connection.
		c.state = StateDisconnected
	}
	c.mu.Unlock()
}
