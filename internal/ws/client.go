package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/StrawberryMilk21/tetrichain-sub001/internal/protocol"
)

const (
	// sendBufferSize bounds the per-client outbound queue. A client that
	// cannot keep up has events dropped rather than stalling the room.
	sendBufferSize = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 32 * 1024
)

var errSendBufferFull = errors.New("client send buffer full")

// Client wraps a single websocket connection with a buffered outbound
// queue drained by a dedicated write pump.
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger

	send      chan protocol.Envelope
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{
		conn:   conn,
		logger: logger,
		send:   make(chan protocol.Envelope, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// Send queues an event for delivery. Non-blocking; a full buffer drops
// the event and reports the failure.
func (c *Client) Send(event protocol.EventType, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := protocol.Envelope{Type: event, Payload: raw}

	select {
	case <-c.done:
		return errors.New("client closed")
	case c.send <- env:
		return nil
	default:
		c.logger.Warn("outbound event dropped, send buffer full",
			slog.String("event", string(event)))
		return errSendBufferFull
	}
}

// Close tears down the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return c.conn.Close()
}

// writePump drains the send queue onto the wire and keeps the
// connection alive with periodic pings. One per connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			// Flush anything queued before the close was requested
			for {
				select {
				case env := <-c.send:
					_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					_ = c.conn.WriteJSON(env)
				default:
					_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
			}
		case env := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readEnvelope blocks for the next inbound envelope.
func (c *Client) readEnvelope() (*protocol.Envelope, error) {
	var env protocol.Envelope
	if err := c.conn.ReadJSON(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (c *Client) configureRead() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}
