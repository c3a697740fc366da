package websocket

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"abpulse/pkg/contracts/domain"
)

// Connection is the subset of *websocket.Conn the pumps use, so tests can
// drive a client without a network.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() string
}

// SummaryProvider answers filter messages
type SummaryProvider interface {
	Summary(ctx context.Context, f domain.Filter) (domain.Summary, error)
}

// gorillaConn adapts *websocket.Conn to Connection
type gorillaConn struct {
	*websocket.Conn
}

// Wrap adapts a gorilla connection
func Wrap(conn *websocket.Conn) Connection {
	return gorillaConn{Conn: conn}
}

func (c gorillaConn) RemoteAddr() string {
	if addr := c.Conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
