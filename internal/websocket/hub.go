package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"abpulse/internal/config"
	"abpulse/internal/infrastructure"
	"abpulse/pkg/contracts/domain"
	"abpulse/pkg/contracts/events"
)

// Options tunes the client pumps
type Options struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

// DefaultOptions mirrors the configuration defaults
func DefaultOptions() Options {
	return OptionsFrom(config.Default().WebSocket)
}

// OptionsFrom derives pump options from configuration. A ping period that
// does not fall inside the pong wait is pulled to nine tenths of it.
func OptionsFrom(cfg config.WebSocketConfig) Options {
	o := Options{
		WriteWait:      10 * time.Second,
		PongWait:       cfg.PongWait,
		PingPeriod:     cfg.PingPeriod,
		MaxMessageSize: cfg.MaxMessageSize,
		SendBuffer:     256,
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = (o.PongWait * 9) / 10
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 4096
	}
	return o
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu       sync.RWMutex
	provider SummaryProvider
	opts     Options
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithOptions sets the client pump options
func WithOptions(o Options) HubOption {
	return func(h *Hub) { h.opts = o }
}

// WithMetrics records connection and message counts
func WithMetrics(m *infrastructure.BusinessMetrics) HubOption {
	return func(h *Hub) { h.metrics = m }
}

// NewHub creates a hub whose clients are answered by provider
func NewHub(provider SummaryProvider, logger *slog.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		provider:   provider,
		opts:       DefaultOptions(),
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run is the hub loop. It returns when ctx is cancelled, after closing
// every client.
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Hub shutting down", slog.Int("clients", h.ClientCount()))
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()

			cctx := client.context()
			h.connections(cctx, 1)
			h.logger.InfoContext(cctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			client.reply(cctx, events.MessageTypeConnect, map[string]interface{}{
				"status":    "connected",
				"client_id": client.id,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			delete(h.clients, client)
			count := len(h.clients)
			h.mu.Unlock()
			if !ok {
				continue
			}
			client.close()

			cctx := client.context()
			h.connections(cctx, -1)
			h.logger.InfoContext(cctx, "Client unregistered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.Duration("connection_duration", time.Since(client.connectedAt)))

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			failCount := 0
			for _, client := range clients {
				if client.enqueue(message) {
					continue
				}
				failCount++
				// a client that cannot keep up is dropped
				h.mu.Lock()
				delete(h.clients, client)
				h.mu.Unlock()
				client.close()
				h.connections(client.context(), -1)
			}

			if failCount > 0 {
				h.logger.Warn("Some clients failed to receive broadcast",
					slog.Int("success_count", len(clients)-failCount),
					slog.Int("fail_count", failCount))
			}
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.close()
		delete(h.clients, client)
		h.connections(context.Background(), -1)
	}
	close(h.done)
}

// Broadcast sends msg to every connected client. It is dropped once the
// hub has stopped.
func (h *Hub) Broadcast(ctx context.Context, msgType events.MessageType, data interface{}) {
	msg := events.Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC(),
		TraceID:   infrastructure.GetTraceID(ctx),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", string(msgType)))
		return
	}

	select {
	case h.broadcast <- payload:
		h.recordMessage(ctx, "out", msgType)
	case <-h.done:
	case <-ctx.Done():
	}
}

// BroadcastReload announces a new dataset snapshot. Its signature matches
// the dashboard service reload listener.
func (h *Hub) BroadcastReload(ctx context.Context, info domain.DatasetInfo) {
	h.Broadcast(ctx, events.MessageTypeDatasetReloaded, events.ReloadPayload{
		Fingerprint: info.Fingerprint,
		Records:     info.Records,
	})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Done is closed once Run has returned
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Register adds a client; it is a no-op once the hub has stopped
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) connections(ctx context.Context, delta int64) {
	if h.metrics == nil {
		return
	}
	h.metrics.WebSocketConnections.Add(ctx, delta)
}

func (h *Hub) recordMessage(ctx context.Context, direction string, msgType events.MessageType) {
	if h.metrics == nil {
		return
	}
	h.metrics.WebSocketMessages.Add(ctx, 1, metric.WithAttributes(
		attribute.String("direction", direction),
		attribute.String("type", string(msgType)),
	))
}
