package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  base_url: https://rides.example.com
  socket_path: /socket
  headers:
    Cookie: session=abc
transport:
  kind: nats
  nats_url: nats://broker:4222
  reconnect_delay: 750ms
conversation:
  ride_id: "42"
  participant_id: 7
history:
  db_path: /tmp/ridechat.db
contact:
  confirm_delay: 3s
log:
  level: debug
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	tmp, err := os.CreateTemp(t.TempDir(), "cfg-*.yaml")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	if _, err := tmp.WriteString(body); err != nil {
		t.Fatalf("write: %v", err)
	}
	tmp.Close()
	return tmp.Name()
}

// TestLoad_FromConfigPath verifies that Load picks up $CONFIG_PATH and unmarshals every section.
func TestLoad_FromConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, sampleConfig))

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	require.Equal(t, "https://rides.example.com", cfg.Server.BaseURL)
	require.Equal(t, "/socket", cfg.Server.SocketPath)
	// viper lowercases map keys
	require.Equal(t, "session=abc", cfg.Server.Headers["cookie"])
	require.Equal(t, TransportNATS, cfg.Transport.Kind)
	require.Equal(t, "nats://broker:4222", cfg.Transport.NATSURL)
	require.Equal(t, 750*time.Millisecond, cfg.Transport.ReconnectDelay)
	require.Equal(t, "ridechat", cfg.Transport.SubjectPrefix)
	require.Equal(t, "42", cfg.Conversation.RideID)
	require.Equal(t, int64(7), cfg.Conversation.ParticipantID)
	require.Equal(t, "/tmp/ridechat.db", cfg.History.DBPath)
	require.Equal(t, 3*time.Second, cfg.Contact.ConfirmDelay)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ExplicitPathWins(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/does/not/exist.yaml")
	path := writeConfig(t, "conversation:\n  ride_id: \"9\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "9", cfg.Conversation.RideID)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	require.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:5000", cfg.Server.BaseURL)
	require.Equal(t, "/ws", cfg.Server.SocketPath)
	require.Equal(t, TransportWebSocket, cfg.Transport.Kind)
	require.Equal(t, 2*time.Second, cfg.Transport.ReconnectDelay)
	require.Equal(t, 5*time.Second, cfg.Contact.ConfirmDelay)
	require.Equal(t, "15:04", cfg.Display.TimeLayout)
	require.Equal(t, "1/2/2006", cfg.Display.DateLayout)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "auto", cfg.Display.ANSI)
}

func TestDisplayConfig_UseANSI(t *testing.T) {
	require.True(t, DisplayConfig{ANSI: "auto"}.UseANSI(true))
	require.False(t, DisplayConfig{ANSI: "auto"}.UseANSI(false))
	require.False(t, DisplayConfig{}.UseANSI(false))
	require.True(t, DisplayConfig{ANSI: "true"}.UseANSI(false))
	require.False(t, DisplayConfig{ANSI: "false"}.UseANSI(true))
	require.True(t, DisplayConfig{ANSI: "1"}.UseANSI(false))
}

func TestLoad_ANSIFromYAMLBool(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, "display:\n  ansi: true\n"))

	cfg, err := Load("")
	require.NoError(t, err)
	require.True(t, cfg.Display.UseANSI(false))
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, sampleConfig))
	t.Setenv("RIDECHAT_CONVERSATION_RIDE_ID", "77")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "77", cfg.Conversation.RideID)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
