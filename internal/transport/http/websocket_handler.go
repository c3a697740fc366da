package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	apierrors "abpulse/internal/errors"
	"abpulse/internal/infrastructure"
	"abpulse/internal/middleware"
	ws "abpulse/internal/websocket"
)

// WebSocketHandler upgrades /ws requests and hands them to the hub
type WebSocketHandler struct {
	hub          *ws.Hub
	upgrader     *websocket.Upgrader
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewWebSocketHandler creates the upgrade handler. allowOrigin decides
// cross-origin requests; nil keeps gorilla's same-origin check.
func NewWebSocketHandler(hub *ws.Hub, readBuffer, writeBuffer int, allowOrigin func(string) bool,
	logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:          hub,
		logger:       logger.With(slog.String("handler", "websocket")),
		errorHandler: errorHandler,
	}
	h.upgrader = ws.NewUpgrader(readBuffer, writeBuffer, allowOrigin)
	h.upgrader.Error = func(w http.ResponseWriter, r *http.Request, status int, reason error) {
		h.logger.DebugContext(r.Context(), "WebSocket upgrade rejected",
			slog.String("origin", r.Header.Get("Origin")))
		h.errorHandler.HandleError(w, r, apierrors.ErrWebSocketUpgrade(status, reason))
	}
	return h
}

// ServeHTTP handles GET /ws
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	traceID := infrastructure.GetTraceID(ctx)
	if traceID == "" {
		traceID = middleware.GetReqID(ctx)
	}

	select {
	case <-h.hub.Done():
		h.errorHandler.HandleError(w, r, apierrors.ErrServiceUnavailable)
		return
	default:
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered
		return
	}

	client := ws.ServeWS(h.hub, ws.Wrap(conn), traceID)
	h.logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))
}
