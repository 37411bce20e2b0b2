package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/comigor/ridechat/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10

	// SessionHeader carries the per-connection session id on the handshake.
	SessionHeader = "X-Ridechat-Session"
)

// Envelope is the JSON frame exchanged over the websocket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// WebSocketConfig configures the websocket transport.
type WebSocketConfig struct {
	URL            string
	Header         http.Header
	ReconnectDelay time.Duration
}

// WebSocket is a Transport over a single gorilla websocket connection,
// redialled after every disconnect.
type WebSocket struct {
	*registry
	url    string
	header http.Header
	delay  time.Duration
	dialer *websocket.Dialer

	mu   sync.Mutex // guards conn and serializes data frames
	conn *websocket.Conn
}

// NewWebSocket creates a websocket transport. It does not dial until Run.
func NewWebSocket(cfg WebSocketConfig) *WebSocket {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	return &WebSocket{
		registry: newRegistry(),
		url:      cfg.URL,
		header:   cfg.Header,
		delay:    cfg.ReconnectDelay,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// SocketURL derives the websocket endpoint from the server's base URL.
func SocketURL(baseURL, socketPath string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}
	if socketPath != "" {
		u.Path = path.Join("/", u.Path, socketPath)
	}
	return u.String(), nil
}

// Emit writes one envelope. It fails with ErrNotConnected between connections.
func (w *WebSocket) Emit(ctx context.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = w.conn.SetWriteDeadline(deadline)
	if err := w.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

// Run dials, serves the connection until it drops, waits the reconnect delay
// and dials again. It returns nil once ctx is cancelled.
func (w *WebSocket) Run(ctx context.Context) error {
	for {
		session := uuid.NewString()
		header := w.header.Clone()
		if header == nil {
			header = http.Header{}
		}
		header.Set(SessionHeader, session)

		conn, _, err := w.dialer.DialContext(ctx, w.url, header)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.L.Warn("websocket dial failed", "url", w.url, "session", session, "error", err)
		} else {
			w.serve(ctx, conn, session)
			if ctx.Err() != nil {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.delay):
		}
	}
}

func (w *WebSocket) serve(ctx context.Context, conn *websocket.Conn, session string) {
	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	logger.L.Info("websocket connected", "url", w.url, "session", session)

	done := make(chan struct{})
	go w.keepalive(ctx, conn, done)

	w.dispatch(EventConnect, nil)
	err := w.readLoop(conn)

	close(done)
	w.mu.Lock()
	if w.conn == conn {
		w.conn = nil
	}
	w.mu.Unlock()
	conn.Close()

	if ctx.Err() == nil {
		logger.L.Warn("websocket disconnected", "session", session, "error", err)
	} else {
		logger.L.Info("websocket closed", "session", session)
	}
	w.dispatch(EventDisconnect, nil)
}

// keepalive pings the server and closes the connection when ctx ends,
// which unblocks the read loop.
func (w *WebSocket) keepalive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logger.L.Debug("websocket ping failed", "error", err)
				conn.Close()
				return
			}
		}
	}
}

func (w *WebSocket) readLoop(conn *websocket.Conn) error {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			logger.L.Warn("invalid websocket frame", "error", err)
			continue
		}
		if env.Event == "" {
			logger.L.Warn("websocket frame without event name")
			continue
		}
		w.dispatch(env.Event, env.Data)
	}
}
