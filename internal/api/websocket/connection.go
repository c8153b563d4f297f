package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Riya-023/collaborative-todo-board/pkg/models/board"
)

// ErrConnectionNotFound is returned when targeting a connection that is
// not in the hub.
var ErrConnectionNotFound = errors.New("connection not found")

// ErrSendBufferFull is returned when the outbound channel for a
// connection is full. The message is dropped, never queued elsewhere.
var ErrSendBufferFull = errors.New("send buffer full")

// Connection wraps a websocket transport with an outbound queue. All
// writes go through the send channel and the single writePump goroutine;
// nothing writes to the socket directly.
type Connection struct {
	*board.Connection

	hub  *Server
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newConnection(hub *Server, conn *websocket.Conn) *Connection {
	c := &Connection{
		Connection: &board.Connection{
			ID:        uuid.New().String(),
			CreatedAt: time.Now(),
			LastPing:  time.Now(),
		},
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, hub.config.SendBufferSize),
		closed: make(chan struct{}),
	}
	c.SetState(board.ConnectionStateConnected)
	return c
}

// readPump reads messages off the socket until the peer goes away or the
// rate limiter rejects it, then triggers the disconnect cascade.
func (c *Connection) readPump(ctx context.Context) {
	defer func() {
		c.hub.removeConnection(c)
		c.close(websocket.StatusNormalClosure, "")
	}()

	limiter := rate.NewLimiter(rate.Limit(c.hub.config.RateLimit.Rate), c.hub.config.RateLimit.Burst)

	for {
		msg := GetMessage()
		if err := wsjson.Read(ctx, c.conn, msg); err != nil {
			PutMessage(msg)
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				c.hub.logger.Debug("Read error", map[string]interface{}{
					"connection_id": c.ID,
					"error":         err.Error(),
				})
			}
			return
		}

		if !limiter.Allow() {
			PutMessage(msg)
			c.hub.metricsCollector.RecordError("rate_limit")
			c.close(websocket.StatusPolicyViolation, "rate limit exceeded")
			return
		}

		c.LastPing = time.Now()
		c.hub.processMessage(ctx, c, msg)
		PutMessage(msg)
	}
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with pings.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.write(data); err != nil {
				c.close(websocket.StatusAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.hub.config.WriteTimeout)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				c.close(websocket.StatusAbnormalClosure, "ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *Connection) write(data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.hub.config.WriteTimeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// SendNotification queues a server-initiated notification. A full buffer
// drops the message and returns ErrSendBufferFull; the caller never
// blocks on a slow consumer.
func (c *Connection) SendNotification(method string, payload interface{}) error {
	data, err := marshalNotification(method, payload)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

func (c *Connection) enqueue(data []byte) error {
	select {
	case <-c.closed:
		return ErrConnectionNotFound
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.hub.metricsCollector.RecordMessageDropped("buffer_full")
		c.hub.logger.Warn("Send buffer full, dropping message", map[string]interface{}{
			"connection_id": c.ID,
		})
		return ErrSendBufferFull
	}
}

// sendResponse marshals and queues a reply to a request message
func (c *Connection) sendResponse(msg *board.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

func (c *Connection) sendError(requestID string, code int, message string) {
	msg := GetMessage()
	defer PutMessage(msg)

	msg.ID = requestID
	msg.Type = board.MessageTypeError
	msg.Error = &board.Error{Code: code, Message: message}

	if err := c.sendResponse(msg); err != nil {
		c.hub.metricsCollector.RecordError("send_error_failed")
	}
}

func (c *Connection) close(status websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		c.SetState(board.ConnectionStateClosed)
		close(c.closed)
		if c.conn != nil {
			_ = c.conn.Close(status, reason)
		}
	})
}
