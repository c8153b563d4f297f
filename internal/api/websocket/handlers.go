package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Riya-023/collaborative-todo-board/pkg/models/board"
	"github.com/Riya-023/collaborative-todo-board/pkg/observability"
)

// MessageHandler processes a single request method and returns the result
// payload or an error
type MessageHandler func(ctx context.Context, conn *Connection, params json.RawMessage) (interface{}, error)

// RegisterHandlers wires the method dispatch table
func (s *Server) RegisterHandlers() {
	s.handlers = map[string]MessageHandler{
		board.MethodAnnounceIdentity: s.handleAnnounceIdentity,
		board.MethodJoinBoard:        s.handleJoinBoard,
		board.MethodRequestEdit:      s.handleRequestEdit,
		board.MethodStopEdit:         s.handleStopEdit,
		board.MethodMutation:         s.handleMutation,
		board.MethodLogActivity:      s.handleLogActivity,
	}
}

// processMessage dispatches one inbound message to its handler and queues
// the response
func (s *Server) processMessage(ctx context.Context, c *Connection, msg *board.Message) {
	start := time.Now()

	if msg.Type == board.MessageTypePing {
		pong := GetMessage()
		pong.ID = msg.ID
		pong.Type = board.MessageTypePong
		_ = c.sendResponse(pong)
		PutMessage(pong)
		return
	}

	if !msg.IsRequest() {
		s.metricsCollector.RecordError("invalid_message_type")
		c.sendError(msg.ID, board.ErrCodeInvalidMessage, "expected request message")
		return
	}

	handler, ok := s.handlers[msg.Method]
	if !ok {
		s.metricsCollector.RecordError("method_not_found")
		c.sendError(msg.ID, board.ErrCodeMethodNotFound, "unknown method: "+msg.Method)
		return
	}

	var params json.RawMessage
	if msg.Params != nil {
		data, err := json.Marshal(msg.Params)
		if err != nil {
			c.sendError(msg.ID, board.ErrCodeInvalidParams, "invalid params")
			return
		}
		params = data
	}

	ctx, span := observability.StartSpan(ctx, "websocket."+msg.Method)
	result, err := handler(ctx, c, params)
	span.End()

	s.metricsCollector.RecordMessage("received", msg.Method, time.Since(start))

	if err != nil {
		var wsErr *board.Error
		if errors.As(err, &wsErr) {
			c.sendError(msg.ID, wsErr.Code, wsErr.Message)
		} else {
			s.logger.Error("Handler failed", map[string]interface{}{
				"method": msg.Method,
				"error":  err.Error(),
			})
			c.sendError(msg.ID, board.ErrCodeServerError, "internal error")
		}
		return
	}

	resp := GetMessage()
	resp.ID = msg.ID
	resp.Type = board.MessageTypeResponse
	resp.Result = result
	_ = c.sendResponse(resp)
	PutMessage(resp)
}

// handleAnnounceIdentity verifies the presented token and binds the
// resulting identity to the connection. On success every other session
// learns the user came online; the transport stays up either way, so a
// client can retry with a fresh token.
func (s *Server) handleAnnounceIdentity(_ context.Context, c *Connection, params json.RawMessage) (interface{}, error) {
	var p board.AnnounceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, board.NewError(board.ErrCodeInvalidParams, "invalid params", nil)
	}

	token := strings.TrimSpace(p.Token)
	if token == "" {
		return nil, board.NewError(board.ErrCodeAuthFailed, "token required", nil)
	}

	identity, err := s.auth.VerifyToken(token)
	if err != nil {
		s.metricsCollector.RecordError("auth_failed")
		return nil, board.NewError(board.ErrCodeAuthFailed, "invalid token", nil)
	}

	wire := board.Identity{
		UserID:   identity.UserID.String(),
		Username: identity.Username,
		Email:    identity.Email,
	}

	session := s.registry.Register(c.ID, wire)
	if session == nil {
		return nil, board.NewError(board.ErrCodeInvalidParams, "empty identity", nil)
	}

	s.BroadcastExcept(c.ID, board.EventPresenceJoined, wire)

	s.logger.Info("Identity announced", map[string]interface{}{
		"connection_id": c.ID,
		"user_id":       wire.UserID,
		"username":      wire.Username,
	})

	return map[string]interface{}{
		"identity": wire,
		"online":   s.registry.Identities(),
	}, nil
}

// handleJoinBoard subscribes the connection to a board group
func (s *Server) handleJoinBoard(_ context.Context, c *Connection, params json.RawMessage) (interface{}, error) {
	var p board.JoinBoardParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, board.NewError(board.ErrCodeInvalidParams, "invalid params", nil)
	}
	if p.BoardID == "" {
		return nil, board.NewError(board.ErrCodeInvalidParams, "board_id required", nil)
	}

	s.rooms.Join(c.ID, p.BoardID)
	return map[string]interface{}{"board_id": p.BoardID, "joined": true}, nil
}

// handleRequestEdit asks the arbiter for the task's edit lock. A
// connection with no announced identity is ignored without an error so
// that stale clients cannot hold or probe locks.
func (s *Server) handleRequestEdit(_ context.Context, c *Connection, params json.RawMessage) (interface{}, error) {
	var p board.EditParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, board.NewError(board.ErrCodeInvalidParams, "invalid params", nil)
	}
	if p.TaskID == "" {
		return nil, board.NewError(board.ErrCodeInvalidParams, "task_id required", nil)
	}

	identity, ok := s.registry.Lookup(c.ID)
	if !ok {
		s.logger.Debug("Edit request from anonymous connection", map[string]interface{}{
			"connection_id": c.ID,
			"task_id":       p.TaskID,
		})
		return map[string]interface{}{"task_id": p.TaskID, "granted": false}, nil
	}

	granted := s.arbiter.RequestEdit(p.TaskID, board.Editor{
		UserID:       identity.UserID,
		Username:     identity.Username,
		ConnectionID: c.ID,
	})

	return map[string]interface{}{"task_id": p.TaskID, "granted": granted}, nil
}

// handleStopEdit releases the task's edit lock if this connection holds it
func (s *Server) handleStopEdit(_ context.Context, c *Connection, params json.RawMessage) (interface{}, error) {
	var p board.EditParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, board.NewError(board.ErrCodeInvalidParams, "invalid params", nil)
	}
	if p.TaskID == "" {
		return nil, board.NewError(board.ErrCodeInvalidParams, "task_id required", nil)
	}

	s.arbiter.StopEdit(p.TaskID, c.ID)
	return map[string]interface{}{"task_id": p.TaskID}, nil
}

// handleMutation relays an already-persisted task change to every other
// session
func (s *Server) handleMutation(_ context.Context, c *Connection, params json.RawMessage) (interface{}, error) {
	if _, ok := s.registry.Lookup(c.ID); !ok {
		return nil, board.NewError(board.ErrCodeAuthFailed, "identity required", nil)
	}

	var event board.MutationEvent
	if err := json.Unmarshal(params, &event); err != nil {
		return nil, board.NewError(board.ErrCodeInvalidParams, "invalid params", nil)
	}

	switch event.Kind {
	case board.MutationCreated, board.MutationUpdated, board.MutationDeleted:
	default:
		return nil, board.NewError(board.ErrCodeInvalidParams, "unknown mutation kind: "+event.Kind, nil)
	}

	s.BroadcastExcept(c.ID, board.EventMutation, event)
	return map[string]interface{}{"relayed": true}, nil
}

// handleLogActivity relays an activity entry to every other session
func (s *Server) handleLogActivity(_ context.Context, c *Connection, params json.RawMessage) (interface{}, error) {
	if _, ok := s.registry.Lookup(c.ID); !ok {
		return nil, board.NewError(board.ErrCodeAuthFailed, "identity required", nil)
	}

	var entry json.RawMessage
	if err := json.Unmarshal(params, &entry); err != nil {
		return nil, board.NewError(board.ErrCodeInvalidParams, "invalid params", nil)
	}

	s.BroadcastExcept(c.ID, board.EventActivity, entry)
	return map[string]interface{}{"relayed": true}, nil
}
