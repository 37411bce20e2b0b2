package realtime

import (
	"fmt"
	"net/http"

	"github.com/comigor/ridechat/internal/config"
)

// New builds the transport selected by cfg.Transport.Kind.
func New(cfg config.Config) (Transport, error) {
	switch cfg.Transport.Kind {
	case "", config.TransportWebSocket:
		u, err := SocketURL(cfg.Server.BaseURL, cfg.Server.SocketPath)
		if err != nil {
			return nil, err
		}
		header := make(http.Header, len(cfg.Server.Headers))
		for k, v := range cfg.Server.Headers {
			header.Set(k, v)
		}
		return NewWebSocket(WebSocketConfig{
			URL:            u,
			Header:         header,
			ReconnectDelay: cfg.Transport.ReconnectDelay,
		}), nil
	case config.TransportNATS:
		return NewNATS(NATSConfig{
			URL:            cfg.Transport.NATSURL,
			SubjectPrefix:  cfg.Transport.SubjectPrefix,
			ReconnectDelay: cfg.Transport.ReconnectDelay,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported transport kind %q", cfg.Transport.Kind)
	}
}
