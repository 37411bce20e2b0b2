package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/ridechat/internal/chat"
)

func msg(sender int64, content string) chat.Message {
	return chat.Message{SenderID: sender, Content: content, Timestamp: "2024-05-01T10:00:00", RideID: "42"}
}

func TestStore_Memory(t *testing.T) {
	s := Open("")
	require.False(t, s.Persistent())

	s.Append("42", msg(1, "a"))
	s.Append("42.0", msg(2, "b"))
	s.Append("7", msg(1, "other ride"))

	got := s.List("42")
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].Content)
	require.Equal(t, "b", got[1].Content)

	s.Reset("42")
	require.Empty(t, s.List("42"))
	require.Len(t, s.List("7"), 1)
	require.NoError(t, s.Close())
}

func TestStore_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s := Open(path)
	require.True(t, s.Persistent())

	s.Append("42", msg(1, "first"))
	s.Append("42", msg(2, "second"))
	require.NoError(t, s.Close())

	// A fresh store reads what the previous one wrote.
	reopened := Open(path)
	t.Cleanup(func() { reopened.Close() })

	got := reopened.List("42")
	require.Len(t, got, 2)
	require.Equal(t, int64(1), got[0].SenderID)
	require.Equal(t, "first", got[0].Content)
	require.Equal(t, "2024-05-01T10:00:00", got[0].Timestamp)
	require.Equal(t, chat.ConversationID("42"), got[0].RideID)
	require.Equal(t, "second", got[1].Content)

	reopened.Reset("42")
	require.Empty(t, reopened.List("42"))
}

func TestStore_ListReturnsCopy(t *testing.T) {
	s := Open("")
	s.Append("42", msg(1, "a"))

	got := s.List("42")
	got[0].Content = "mutated"
	require.Equal(t, "a", s.List("42")[0].Content)
}
