package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"abpulse/internal/analytics"
	"abpulse/internal/dataset"
	"abpulse/internal/infrastructure"
	"abpulse/pkg/contracts/events"
)

// Error codes sent in error messages
const (
	CodeBadMessage      = "bad_message"
	CodeUnsupportedType = "unsupported_type"
	CodeInvalidFilter   = "invalid_filter"
	CodeDataUnavailable = "data_unavailable"
	CodeInternal        = "internal_error"
)

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn Connection

	mu     sync.Mutex
	send   chan []byte
	closed bool

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	logger *slog.Logger
}

// NewClient creates a client for conn. traceID ties its log lines to the
// upgrade request.
func NewClient(hub *Hub, conn Connection, traceID string) *Client {
	id := uuid.New().String()
	logger := hub.logger.With(
		slog.String("component", "websocket.client"),
		slog.String("client_id", id),
	)
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, hub.opts.SendBuffer),
		id:          id,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		logger:      logger,
	}
}

// ID returns the client identifier
func (c *Client) ID() string { return c.id }

func (c *Client) context() context.Context {
	ctx := context.Background()
	if c.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, c.traceID)
	}
	return ctx
}

// enqueue queues msg without blocking; false means the client is gone or
// its buffer is full.
func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) reply(ctx context.Context, msgType events.MessageType, data interface{}) {
	payload, err := json.Marshal(events.Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC(),
		TraceID:   c.traceID,
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "Error marshaling reply", slog.String("error", err.Error()))
		return
	}
	if !c.enqueue(payload) {
		c.logger.WarnContext(ctx, "Reply dropped, client buffer full or closed",
			slog.String("message_type", string(msgType)))
		return
	}
	c.hub.recordMessage(ctx, "out", msgType)
}

func (c *Client) replyError(ctx context.Context, code, message string) {
	c.reply(ctx, events.MessageTypeError, events.ErrorPayload{Code: code, Message: message})
}

// ReadPump reads client messages until the connection fails, then leaves
// the hub.
func (c *Client) ReadPump() {
	ctx := c.context()
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
		c.logger.InfoContext(ctx, "WebSocket client disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)))
	}()

	opts := c.hub.opts
	c.conn.SetReadLimit(opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.ErrorContext(ctx, "Unexpected WebSocket close error",
					slog.String("error", err.Error()))
			}
			return
		}
		c.handle(ctx, message)
	}
}

func (c *Client) handle(ctx context.Context, raw []byte) {
	var msg struct {
		Type events.MessageType `json:"type"`
		Data json.RawMessage    `json:"data"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.replyError(ctx, CodeBadMessage, "message is not valid JSON")
		return
	}
	c.hub.recordMessage(ctx, "in", msg.Type)

	switch msg.Type {
	case events.MessageTypeHeartbeat:
		c.logger.DebugContext(ctx, "Heartbeat received")

	case events.MessageTypeFilter:
		var req events.FilterRequest
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				c.replyError(ctx, CodeBadMessage, "filter payload is malformed")
				return
			}
		}
		c.answerFilter(ctx, req)

	default:
		c.replyError(ctx, CodeUnsupportedType, "unsupported message type "+string(msg.Type))
	}
}

func (c *Client) answerFilter(ctx context.Context, req events.FilterRequest) {
	q := url.Values{}
	q.Set("platform", req.Platform)
	q.Set("start", req.Start)
	q.Set("end", req.End)

	f, err := analytics.ParseFilter(q)
	if err != nil {
		c.replyError(ctx, CodeInvalidFilter, err.Error())
		return
	}

	summary, err := c.hub.provider.Summary(ctx, f)
	switch {
	case err == nil:
		c.reply(ctx, events.MessageTypeSummary, events.SummaryPayload{
			Summary:  summary,
			Insights: analytics.Compare(summary),
		})
	case errors.Is(err, analytics.ErrInvalidFilter):
		c.replyError(ctx, CodeInvalidFilter, err.Error())
	case errors.Is(err, dataset.ErrDataUnavailable):
		c.replyError(ctx, CodeDataUnavailable, "data unavailable")
	default:
		c.logger.ErrorContext(ctx, "Filter query failed", slog.String("error", err.Error()))
		c.replyError(ctx, CodeInternal, "could not compute summary")
	}
}

// WritePump writes queued messages and pings until the send channel closes
// or a write fails.
func (c *Client) WritePump() {
	opts := c.hub.opts
	ticker := time.NewTicker(opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.ErrorContext(c.context(), "Error writing message to WebSocket",
					slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.context(), "Failed to send ping message",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}

// ServeWS registers conn with the hub and starts its pumps
func ServeWS(hub *Hub, conn Connection, traceID string) *Client {
	client := NewClient(hub, conn, traceID)
	hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
	return client
}

// NewUpgrader builds an upgrader from configuration. checkOrigin may be nil
// to accept same-origin requests only.
func NewUpgrader(readBuffer, writeBuffer int, checkOrigin func(origin string) bool) *websocket.Upgrader {
	u := &websocket.Upgrader{
		ReadBufferSize:  readBuffer,
		WriteBufferSize: writeBuffer,
	}
	if checkOrigin != nil {
		u.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || checkOrigin(origin)
		}
	}
	return u
}
