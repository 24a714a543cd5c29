package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/state"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsMaxMessage   = 64 * 1024

	wsTypePing      = "ping"
	wsTypePong      = "pong"
	wsTypeGetTent   = "get_tent"
	wsTypeTentState = "tent_state"
	wsTypeError     = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the ingress proxy in front of the add-on already restricts origins
	CheckOrigin: func(r *http.Request) bool { return true },
}

type clientMessage struct {
	Type   string `json:"type"`
	TentID string `json:"tent_id,omitempty"`
}

type replyMessage struct {
	Type    string `json:"type"`
	TentID  string `json:"tent_id,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// wsSubscriber is one browser connection registered with the hub. Writes
// from the hub and from the read loop share a lock.
type wsSubscriber struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSubscriber) ID() string {
	return s.id
}

func (s *wsSubscriber) Send(ctx context.Context, msg state.Message) error {
	return s.write(ctx, msg)
}

func (s *wsSubscriber) write(ctx context.Context, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(ctx, v)
}

func (s *wsSubscriber) writeLocked(ctx context.Context, v any) error {
	deadline := time.Now().Add(wsWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return s.conn.WriteJSON(v)
}

// ServeWebSocket upgrades to a live subscriber. The client gets the full
// state first, then a tent_update per change.
func (rs *RestfulServer) ServeWebSocket(c *gin.Context) {
	logger := common.GetLoggerWith(
		common.LoggerNameRestfulServer,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryBroadcast),
	)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessage)

	sub := &wsSubscriber{id: uuid.NewString(), conn: conn}
	ctx := c.Request.Context()

	// registered before the snapshot is taken; the write lock keeps hub
	// updates behind the initial state
	sub.mu.Lock()
	rs.Tents.AddSubscriber(sub)
	err = sub.writeLocked(ctx, state.InitialState(rs.Tents.GetAllTents()))
	sub.mu.Unlock()
	defer rs.Tents.RemoveSubscriber(sub.id)
	if err != nil {
		logger.Warn("Failed to send initial state", zap.Error(err))
		return
	}
	logger.Info("Subscriber connected", zap.String("subscriber_id", sub.id))

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				logger.Debug("Subscriber read failed", zap.String("subscriber_id", sub.id), zap.Error(err))
			}
			logger.Info("Subscriber disconnected", zap.String("subscriber_id", sub.id))
			return
		}

		if err := sub.write(ctx, rs.replyTo(msg)); err != nil {
			logger.Warn("Failed to reply to subscriber", zap.String("subscriber_id", sub.id), zap.Error(err))
			return
		}
	}
}

func (rs *RestfulServer) replyTo(msg clientMessage) replyMessage {
	switch msg.Type {
	case wsTypePing:
		return replyMessage{Type: wsTypePong}
	case wsTypeGetTent:
		snapshot, err := rs.Tents.GetTent(msg.TentID)
		if err != nil {
			return replyMessage{Type: wsTypeError, TentID: msg.TentID, Message: err.Error()}
		}
		return replyMessage{Type: wsTypeTentState, TentID: msg.TentID, Data: snapshot}
	default:
		return replyMessage{Type: wsTypeError, Message: "unknown message type " + msg.Type}
	}
}
