// Package websocket implements the realtime collaboration core of the
// board: the connection hub, session registry, edit-lock table, conflict
// arbiter, and broadcast router.
package websocket

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Riya-023/collaborative-todo-board/pkg/auth"
	"github.com/Riya-023/collaborative-todo-board/pkg/models/board"
	"github.com/Riya-023/collaborative-todo-board/pkg/observability"
)

// Config holds hub configuration
type Config struct {
	MaxConnections int             `mapstructure:"max_connections"`
	PingInterval   time.Duration   `mapstructure:"ping_interval"`
	WriteTimeout   time.Duration   `mapstructure:"write_timeout"`
	MaxMessageSize int64           `mapstructure:"max_message_size"`
	SendBufferSize int             `mapstructure:"send_buffer_size"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig holds token-bucket settings for inbound messages and,
// when PerIP is set, for connection upgrades per client IP.
type RateLimitConfig struct {
	Rate  float64 `mapstructure:"rate"`
	Burst int     `mapstructure:"burst"`
	PerIP bool    `mapstructure:"per_ip"`
}

// Server is the connection hub. It owns the connection set and wires the
// session registry, lock table, arbiter, and rooms together; every shared
// table mutation goes through a mutex so operations from different
// connections serialize correctly.
type Server struct {
	connections map[string]*Connection
	mu          sync.RWMutex
	handlers    map[string]MessageHandler

	registry *SessionRegistry
	locks    *EditLockTable
	arbiter  *ConflictArbiter
	rooms    *RoomManager

	auth             *auth.Service
	logger           observability.Logger
	metricsCollector *MetricsCollector

	config Config

	ipLimiters map[string]*rate.Limiter
	limiterMu  sync.Mutex

	startTime time.Time
}

// NewServer creates a new hub
func NewServer(authService *auth.Service, logger observability.Logger, metrics observability.MetricsClient, config Config) *Server {
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = 1048576 // 1MB default
	}
	if config.PingInterval <= 0 {
		config.PingInterval = 30 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = 64
	}
	if config.RateLimit.Rate <= 0 {
		config.RateLimit.Rate = 1000.0 / 60.0
	}
	if config.RateLimit.Burst <= 0 {
		config.RateLimit.Burst = 100
	}

	s := &Server{
		connections: make(map[string]*Connection),
		registry:    NewSessionRegistry(),
		locks:       NewEditLockTable(),
		rooms:       NewRoomManager(),
		auth:        authService,
		logger:      logger,
		config:      config,
		ipLimiters:  make(map[string]*rate.Limiter),
		startTime:   time.Now(),
	}

	s.metricsCollector = NewMetricsCollector(metrics)
	s.arbiter = NewConflictArbiter(s.locks, s, logger, s.metricsCollector)
	s.RegisterHandlers()

	return s
}

// HandleWebSocket upgrades the HTTP request and runs the connection until
// it closes.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.config.RateLimit.PerIP && !s.allowIP(r) {
		s.metricsCollector.RecordError("ip_rate_limit")
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	s.mu.RLock()
	count := len(s.connections)
	s.mu.RUnlock()
	if s.config.MaxConnections > 0 && count >= s.config.MaxConnections {
		s.metricsCollector.RecordError("max_connections")
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", map[string]interface{}{
			"error":  err.Error(),
			"remote": r.RemoteAddr,
		})
		return
	}
	conn.SetReadLimit(s.config.MaxMessageSize)

	c := newConnection(s, conn)
	s.addConnection(c)

	s.logger.Info("Client connected", map[string]interface{}{
		"connection_id": c.ID,
		"remote":        r.RemoteAddr,
	})

	go c.writePump()
	c.readPump(r.Context())
}

func (s *Server) allowIP(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	s.limiterMu.Lock()
	limiter, ok := s.ipLimiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(s.config.RateLimit.Rate), s.config.RateLimit.Burst)
		s.ipLimiters[host] = limiter
	}
	s.limiterMu.Unlock()

	return limiter.Allow()
}

func (s *Server) addConnection(c *Connection) {
	s.mu.Lock()
	s.connections[c.ID] = c
	s.mu.Unlock()

	s.metricsCollector.RecordConnection()
}

// removeConnection tears down a connection exactly once: capture the
// identity before it is removed, cascade the lock releases, then announce
// the departure. The connection-map check makes a disconnect racing a
// concurrent stop-edit idempotent.
func (s *Server) removeConnection(c *Connection) {
	s.mu.Lock()
	if _, ok := s.connections[c.ID]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.connections, c.ID)
	s.mu.Unlock()

	session := s.registry.Unregister(c.ID)

	for _, taskID := range s.locks.ReleaseAllFor(c.ID) {
		s.metricsCollector.RecordLockReleased()
		s.BroadcastExcept(c.ID, board.EventEditReleased, board.EditEvent{TaskID: taskID})
	}

	if session != nil {
		s.BroadcastExcept(c.ID, board.EventPresenceLeft, session.Identity)
	}

	s.rooms.LeaveAll(c.ID)
	s.metricsCollector.RecordDisconnection(time.Since(c.CreatedAt))

	s.logger.Info("Client disconnected", map[string]interface{}{
		"connection_id": c.ID,
	})
}

// SendToConnection delivers a notification to a single live connection
func (s *Server) SendToConnection(connectionID, method string, payload interface{}) error {
	s.mu.RLock()
	c, ok := s.connections[connectionID]
	s.mu.RUnlock()
	if !ok {
		return ErrConnectionNotFound
	}

	return c.SendNotification(method, payload)
}

// BroadcastExcept delivers a notification to every live connection except
// the originator. Delivery is best-effort and at-most-once: a full send
// buffer or closed connection drops that recipient without delaying the
// rest or surfacing an error to the originator.
func (s *Server) BroadcastExcept(originConnectionID, method string, payload interface{}) {
	data, err := marshalNotification(method, payload)
	if err != nil {
		s.logger.Error("Failed to marshal broadcast", map[string]interface{}{
			"method": method,
			"error":  err.Error(),
		})
		return
	}

	s.mu.RLock()
	targets := make([]*Connection, 0, len(s.connections))
	for id, c := range s.connections {
		if id == originConnectionID {
			continue
		}
		targets = append(targets, c)
	}
	s.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(data)
	}
	s.metricsCollector.RecordMessage("sent", method, 0)
}

// BroadcastToBoard delivers a notification to the connections subscribed
// to a board, minus the excluded origin.
func (s *Server) BroadcastToBoard(boardID, excludeConnectionID, method string, payload interface{}) {
	data, err := marshalNotification(method, payload)
	if err != nil {
		s.logger.Error("Failed to marshal board broadcast", map[string]interface{}{
			"method": method,
			"error":  err.Error(),
		})
		return
	}

	for _, id := range s.rooms.Members(boardID) {
		if id == excludeConnectionID {
			continue
		}
		s.mu.RLock()
		c, ok := s.connections[id]
		s.mu.RUnlock()
		if ok {
			c.enqueue(data)
		}
	}
	s.metricsCollector.RecordMessage("sent", method, 0)
}

func marshalNotification(method string, payload interface{}) ([]byte, error) {
	msg := GetMessage()
	defer PutMessage(msg)

	msg.ID = uuid.New().String()
	msg.Type = board.MessageTypeNotification
	msg.Method = method
	msg.Params = payload

	return json.Marshal(msg)
}

// Registry exposes the session registry (read paths only)
func (s *Server) Registry() *SessionRegistry {
	return s.registry
}

// Locks exposes the edit-lock table (read paths only)
func (s *Server) Locks() *EditLockTable {
	return s.locks
}

// Stats returns a snapshot of channel counters for the health endpoint
func (s *Server) Stats() Stats {
	return s.metricsCollector.Snapshot()
}

// ConnectionCount returns the number of live connections
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}
