package hass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/metrics"
)

const (
	msgTypeAuthRequired = "auth_required"
	msgTypeAuthOK       = "auth_ok"
	msgTypeResult       = "result"
	msgTypePong         = "pong"
	msgTypeEvent        = "event"

	eventTypeStateChanged = "state_changed"
)

type Options struct {
	RequestTimeout    time.Duration
	HandshakeTimeout  time.Duration
	KeepaliveInterval time.Duration
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	Metrics           *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 15 * time.Second
	}
	if o.KeepaliveInterval <= 0 {
		o.KeepaliveInterval = 30 * time.Second
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = time.Second
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 30 * time.Second
	}
	return o
}

type commandError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type eventPayload struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

type message struct {
	ID      int             `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *commandError   `json:"error,omitempty"`
	Event   *eventPayload   `json:"event,omitempty"`
	Message string          `json:"message,omitempty"`
}

// WSClient talks to the Home Assistant websocket API. It reconnects on its own
// after a dropped connection and re-registers the state subscription.
type WSClient struct {
	url    string
	token  string
	opts   Options
	dialer *websocket.Dialer

	mu             sync.Mutex
	conn           *websocket.Conn
	nextID         int
	pending        map[int]chan *message
	handlers       []StateChangeHandler
	subscriptionID int

	writeMu   sync.Mutex
	connected atomic.Bool

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewWSClient(url, token string, opts Options) *WSClient {
	opts = opts.withDefaults()
	return &WSClient{
		url:     url,
		token:   token,
		opts:    opts,
		dialer:  &websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout},
		pending: make(map[int]chan *message),
		closed:  make(chan struct{}),
	}
}

// Connect dials and authenticates once. Later drops are handled in the
// background until Close.
func (c *WSClient) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.attach(conn)

	c.wg.Add(1)
	go c.run(conn)
	return nil
}

func (c *WSClient) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, _, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.url, err)
	}
	if err := c.authenticate(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func (c *WSClient) authenticate(conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(c.opts.HandshakeTimeout))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	var greeting message
	if err := conn.ReadJSON(&greeting); err != nil {
		return fmt.Errorf("read auth greeting: %w", err)
	}
	switch greeting.Type {
	case msgTypeAuthOK:
		return nil
	case msgTypeAuthRequired:
	default:
		return fmt.Errorf("%w: unexpected greeting %q", ErrAuthFailed, greeting.Type)
	}

	if err := conn.WriteJSON(map[string]string{"type": "auth", "access_token": c.token}); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}

	var reply message
	if err := conn.ReadJSON(&reply); err != nil {
		return fmt.Errorf("read auth reply: %w", err)
	}
	if reply.Type != msgTypeAuthOK {
		return fmt.Errorf("%w: %s", ErrAuthFailed, reply.Message)
	}
	return nil
}

func (c *WSClient) attach(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.connected.Store(true)
	c.opts.Metrics.SetHAConnected(true)

	common.GetLoggerWith(common.LoggerNameHassClient,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryConnection),
	).Info("Authenticated with Home Assistant", zap.String("url", c.url))
}

// detach drops the connection and fails every request still waiting on it.
func (c *WSClient) detach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	pending := c.pending
	c.pending = make(map[int]chan *message)
	c.subscriptionID = 0
	c.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
	_ = conn.Close()

	c.connected.Store(false)
	c.opts.Metrics.SetHAConnected(false)
}

func (c *WSClient) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *WSClient) run(conn *websocket.Conn) {
	defer c.wg.Done()
	logger := common.GetLoggerWith(common.LoggerNameHassClient,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryConnection),
	)

	for {
		c.serve(conn)
		c.detach(conn)
		if c.isClosed() {
			return
		}
		logger.Warn("Home Assistant connection lost")

		conn = c.reconnect()
		if conn == nil {
			return
		}
		c.attach(conn)

		// the read loop must be running before the subscription reply can arrive
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.resubscribe()
		}()
	}
}

func (c *WSClient) serve(conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.keepalive(conn, done)
	}()

	c.readLoop(conn)
}

func (c *WSClient) readLoop(conn *websocket.Conn) {
	logger := common.GetLoggerWith(common.LoggerNameHassClient,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryEvent),
	)

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			if !c.isClosed() {
				logger.Warn("Read failed", zap.Error(err))
			}
			return
		}
		c.dispatch(&msg)
	}
}

func (c *WSClient) dispatch(msg *message) {
	switch msg.Type {
	case msgTypeResult, msgTypePong:
		c.mu.Lock()
		ch, ok := c.pending[msg.ID]
		delete(c.pending, msg.ID)
		c.mu.Unlock()
		if ok {
			ch <- msg
		}

	case msgTypeEvent:
		if msg.Event == nil || msg.Event.EventType != eventTypeStateChanged {
			return
		}
		var event StateChangedEvent
		if err := json.Unmarshal(msg.Event.Data, &event); err != nil {
			common.GetLoggerWith(common.LoggerNameHassClient,
				zap.String(common.LoggerFieldCategory, common.LoggerCategoryEvent),
			).Warn("Malformed state_changed event", zap.Error(err))
			return
		}

		c.mu.Lock()
		handlers := append([]StateChangeHandler(nil), c.handlers...)
		c.mu.Unlock()

		for _, handler := range handlers {
			handler(event)
		}
	}
}

func (c *WSClient) keepalive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.opts.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.closed:
			return
		case <-ticker.C:
			if _, err := c.send(context.Background(), map[string]any{"type": "ping"}); err != nil {
				common.GetLoggerWith(common.LoggerNameHassClient,
					zap.String(common.LoggerFieldCategory, common.LoggerCategoryConnection),
				).Warn("Keepalive failed, closing connection", zap.Error(err))
				_ = conn.Close()
				return
			}
		}
	}
}

func (c *WSClient) reconnect() *websocket.Conn {
	logger := common.GetLoggerWith(common.LoggerNameHassClient,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryConnection),
	)

	backoff := c.opts.InitialBackoff
	for {
		select {
		case <-c.closed:
			return nil
		case <-time.After(backoff):
		}

		c.opts.Metrics.HAReconnectAttempt()

		ctx, cancel := context.WithTimeout(context.Background(), c.opts.HandshakeTimeout)
		conn, err := c.dial(ctx)
		cancel()
		if err == nil {
			return conn
		}

		logger.Warn("Reconnect failed", zap.Error(err), zap.Duration("retry_in", backoff))
		backoff *= 2
		if backoff > c.opts.MaxBackoff {
			backoff = c.opts.MaxBackoff
		}
	}
}

func (c *WSClient) resubscribe() {
	c.mu.Lock()
	wanted := len(c.handlers) > 0
	c.mu.Unlock()
	if !wanted {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.RequestTimeout)
	defer cancel()
	if err := c.subscribe(ctx); err != nil {
		common.GetLoggerWith(common.LoggerNameHassClient,
			zap.String(common.LoggerFieldCategory, common.LoggerCategoryConnection),
		).Error("Resubscribe failed", zap.Error(err))
	}
}

// send writes one command and waits for the reply carrying its id.
func (c *WSClient) send(ctx context.Context, cmd map[string]any) (*message, error) {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	c.nextID++
	id := c.nextID
	cmd["id"] = id
	ch := make(chan *message, 1)
	c.pending[id] = ch
	conn := c.conn
	c.mu.Unlock()

	c.writeMu.Lock()
	err := conn.WriteJSON(cmd)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return nil, fmt.Errorf("send %v: %w", cmd["type"], err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, ErrNotConnected
		}
		return msg, nil
	case <-ctx.Done():
		c.forget(id)
		return nil, fmt.Errorf("await %v: %w", cmd["type"], ctx.Err())
	}
}

func (c *WSClient) forget(id int) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// command is send plus the success check every non-ping command needs.
func (c *WSClient) command(ctx context.Context, cmd map[string]any) (*message, error) {
	msg, err := c.send(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if !msg.Success {
		reason := "unknown error"
		if msg.Error != nil {
			reason = fmt.Sprintf("%s: %s", msg.Error.Code, msg.Error.Message)
		}
		return nil, fmt.Errorf("%w: %v: %s", ErrCommandFailed, cmd["type"], reason)
	}
	return msg, nil
}

func (c *WSClient) subscribe(ctx context.Context) error {
	msg, err := c.command(ctx, map[string]any{
		"type":       "subscribe_events",
		"event_type": eventTypeStateChanged,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSubscribeRejected, err)
	}

	c.mu.Lock()
	c.subscriptionID = msg.ID
	c.mu.Unlock()
	return nil
}

// SubscribeStateChanges registers handler and, for the first handler, asks
// Home Assistant for state_changed events. A handler stays registered even if
// the request fails, so the next reconnect subscribes it.
func (c *WSClient) SubscribeStateChanges(ctx context.Context, handler StateChangeHandler) error {
	c.mu.Lock()
	c.handlers = append(c.handlers, handler)
	active := c.subscriptionID != 0
	c.mu.Unlock()

	if active {
		return nil
	}
	if err := c.subscribe(ctx); err != nil {
		return err
	}

	common.GetLoggerWith(common.LoggerNameHassClient,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryConnection),
	).Info("Subscribed to state changes")
	return nil
}

func (c *WSClient) GetStates(ctx context.Context) ([]State, error) {
	msg, err := c.command(ctx, map[string]any{"type": "get_states"})
	if err != nil {
		return nil, err
	}
	var states []State
	if err := json.Unmarshal(msg.Result, &states); err != nil {
		return nil, fmt.Errorf("decode states: %w", err)
	}
	return states, nil
}

func (c *WSClient) CallService(ctx context.Context, domain, service string, target Target, data map[string]any) error {
	cmd := map[string]any{
		"type":    "call_service",
		"domain":  domain,
		"service": service,
		"target":  target,
	}
	if len(data) > 0 {
		cmd["service_data"] = data
	}
	_, err := c.command(ctx, cmd)
	return err
}

func (c *WSClient) Connected() bool {
	return c.connected.Load()
}

func (c *WSClient) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn != nil {
			c.writeMu.Lock()
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			c.writeMu.Unlock()
			_ = conn.Close()
		}
	})
	c.wg.Wait()
	return nil
}
