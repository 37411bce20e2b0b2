package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Transport kinds
const (
	TransportWebSocket = "websocket"
	TransportNATS      = "nats"
)

// Config holds the application configuration
type Config struct {
	Server       ServerConfig
	Transport    TransportConfig
	Conversation ConversationConfig
	History      HistoryConfig
	Contact      ContactConfig
	Display      DisplayConfig
	Log          LogConfig
}

// ServerConfig points at the messaging server.
type ServerConfig struct {
	BaseURL    string            `mapstructure:"base_url"`
	SocketPath string            `mapstructure:"socket_path"`
	Headers    map[string]string `mapstructure:"headers"`
}

// TransportConfig selects and tunes the real-time transport.
type TransportConfig struct {
	Kind           string        `mapstructure:"kind"`
	NATSURL        string        `mapstructure:"nats_url"`
	SubjectPrefix  string        `mapstructure:"subject_prefix"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

// ConversationConfig is the page-provided context: which ride and who is talking.
type ConversationConfig struct {
	RideID        string `mapstructure:"ride_id"`
	ParticipantID int64  `mapstructure:"participant_id"`
}

// HistoryConfig holds the transcript store location. An empty path keeps it in memory.
type HistoryConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// ContactConfig holds the contact form configuration
type ContactConfig struct {
	ConfirmDelay time.Duration `mapstructure:"confirm_delay"`
}

// DisplayConfig holds rendering options
type DisplayConfig struct {
	TimeLayout string `mapstructure:"time_layout"`
	DateLayout string `mapstructure:"date_layout"`
	ANSI       string `mapstructure:"ansi"` // auto, true or false
}

// UseANSI resolves the ansi setting; "auto" follows whether the output is a terminal.
func (d DisplayConfig) UseANSI(terminal bool) bool {
	mode := strings.ToLower(strings.TrimSpace(d.ANSI))
	if mode == "" || mode == "auto" {
		return terminal
	}
	on, err := strconv.ParseBool(mode)
	if err != nil {
		return terminal
	}
	return on
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.base_url", "http://localhost:5000")
	v.SetDefault("server.socket_path", "/ws")
	v.SetDefault("transport.kind", TransportWebSocket)
	v.SetDefault("transport.nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("transport.subject_prefix", "ridechat")
	v.SetDefault("transport.reconnect_delay", 2*time.Second)
	v.SetDefault("conversation.ride_id", "")
	v.SetDefault("conversation.participant_id", 0)
	v.SetDefault("history.db_path", "")
	v.SetDefault("contact.confirm_delay", 5*time.Second)
	v.SetDefault("display.time_layout", "15:04")
	v.SetDefault("display.date_layout", "1/2/2006")
	v.SetDefault("display.ansi", "auto")
	v.SetDefault("log.level", "info")
}

// Load reads configuration from path, or from $CONFIG_PATH, or from ./config.yaml.
// Only the implicit ./config.yaml may be absent; defaults are used then.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ridechat")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
