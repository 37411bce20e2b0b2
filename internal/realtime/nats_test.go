package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNATSSubjects(t *testing.T) {
	require.Equal(t, "ridechat.rooms.ride_42", roomSubject("ridechat", "ride_42"))
	require.Equal(t, "ridechat.rooms.ride_4_5", roomSubject("ridechat", "ride_4.5"))
	require.Equal(t, "ridechat.send_message", eventSubject("ridechat", EventSendMessage))
	require.Equal(t, "ridechat.join_room", eventSubject("ridechat", EventJoinRoom))
	require.Equal(t, "a_b_c_d", subjectToken("a.b*c>d"))
}

func TestNATS_Defaults(t *testing.T) {
	n := NewNATS(NATSConfig{URL: "nats://127.0.0.1:4222"})
	require.Equal(t, "ridechat", n.cfg.SubjectPrefix)
	require.Equal(t, "ridechat", n.cfg.Name)
	require.Positive(t, n.cfg.ReconnectDelay)
}

func TestNATS_EmitWhileDisconnected(t *testing.T) {
	n := NewNATS(NATSConfig{})
	err := n.Emit(context.Background(), EventJoinRoom, map[string]string{"room": "ride_42"})
	require.ErrorIs(t, err, ErrNotConnected)
}
