package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/comigor/ridechat/internal/logger"
)

// NATSConfig configures the NATS transport.
type NATSConfig struct {
	URL            string
	SubjectPrefix  string
	ReconnectDelay time.Duration
	Name           string
}

// NATS is a Transport over core NATS subjects. Joining a room subscribes to
// the room subject; every other event is published on <prefix>.<event>.
type NATS struct {
	*registry
	cfg NATSConfig

	mu   sync.Mutex
	nc   *nats.Conn
	room string
	sub  *nats.Subscription
}

// NewNATS creates a NATS transport. It does not connect until Run.
func NewNATS(cfg NATSConfig) *NATS {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "ridechat"
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "ridechat"
	}
	return &NATS{registry: newRegistry(), cfg: cfg}
}

// subjectToken makes s safe to use as a single subject token.
func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

func eventSubject(prefix, event string) string {
	return prefix + "." + subjectToken(event)
}

func roomSubject(prefix, room string) string {
	return prefix + ".rooms." + subjectToken(room)
}

// Run connects, retrying until it succeeds, then lets the client library
// handle reconnects until ctx is cancelled.
func (n *NATS) Run(ctx context.Context) error {
	var nc *nats.Conn
	for {
		var err error
		nc, err = nats.Connect(n.cfg.URL,
			nats.Name(n.cfg.Name),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(n.cfg.ReconnectDelay),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					logger.L.Warn("nats disconnected", "error", err)
				}
				n.dispatch(EventDisconnect, nil)
			}),
			nats.ReconnectHandler(func(c *nats.Conn) {
				logger.L.Info("nats reconnected", "url", c.ConnectedUrl())
				n.dispatch(EventConnect, nil)
			}),
		)
		if err == nil {
			break
		}
		logger.L.Warn("nats connect failed", "url", n.cfg.URL, "error", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(n.cfg.ReconnectDelay):
		}
	}

	n.mu.Lock()
	n.nc = nc
	n.mu.Unlock()
	logger.L.Info("nats connected", "url", nc.ConnectedUrl())
	n.dispatch(EventConnect, nil)

	<-ctx.Done()

	n.mu.Lock()
	n.nc, n.sub, n.room = nil, nil, ""
	n.mu.Unlock()
	nc.Close()
	return nil
}

// Emit publishes an event. join_room additionally (re)subscribes to the room.
func (n *NATS) Emit(_ context.Context, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.nc == nil {
		return ErrNotConnected
	}

	if event == EventJoinRoom {
		if err := n.join(data); err != nil {
			return err
		}
	}
	if err := n.nc.Publish(eventSubject(n.cfg.SubjectPrefix, event), data); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

// join subscribes to the room subject. Joining the current room again is a no-op
// since subscriptions survive reconnects.
func (n *NATS) join(data []byte) error {
	var req struct {
		Room string `json:"room"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("decode join payload: %w", err)
	}
	if req.Room == "" {
		return fmt.Errorf("join without room")
	}
	if req.Room == n.room && n.sub != nil {
		return nil
	}
	if n.sub != nil {
		if err := n.sub.Unsubscribe(); err != nil {
			logger.L.Warn("nats unsubscribe failed", "room", n.room, "error", err)
		}
		n.sub = nil
	}

	subject := roomSubject(n.cfg.SubjectPrefix, req.Room)
	sub, err := n.nc.Subscribe(subject, func(m *nats.Msg) {
		n.dispatch(EventReceiveMessage, m.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	n.sub, n.room = sub, req.Room
	logger.L.Info("nats joined room", "room", req.Room, "subject", subject)
	return nil
}
