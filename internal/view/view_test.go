package view

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeFormat_Label(t *testing.T) {
	f := TimeFormat{TimeLayout: "15:04", DateLayout: "1/2/2006", Location: time.UTC}

	require.Equal(t, "10:20 5/1/2024", f.Label("2024-05-01T10:20:30.123456"))
	require.Equal(t, "10:20 5/1/2024", f.Label("2024-05-01 10:20:30"))
	require.Equal(t, "08:20 5/1/2024", f.Label("2024-05-01T10:20:30+02:00"))
	require.Equal(t, "10:20 5/1/2024", f.Label("2024-05-01T10:20:30Z"))
	require.Equal(t, "not a time", f.Label("not a time"))
}

func TestTimeFormat_DefaultLayouts(t *testing.T) {
	f := TimeFormat{Location: time.UTC}
	require.Equal(t, "23:59 12/31/2023", f.Label("2023-12-31T23:59:00"))
}

func TestTerminal(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(&out, false)

	term.Append(Entry{Class: Outgoing, SenderID: 7, Content: "on my way", TimeLabel: "10:00 5/1/2024"})
	term.Append(Entry{Class: Incoming, SenderID: 9, Content: "<b>ok</b>", TimeLabel: "10:01 5/1/2024"})
	require.Empty(t, out.String(), "nothing is written before a scroll")

	term.ScrollToBottom()
	require.Contains(t, out.String(), "you: on my way")
	require.Contains(t, out.String(), "#9: <b>ok</b>")
}

func TestTerminal_ClearANSI(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(&out, true)
	term.Clear()
	term.ScrollToBottom()
	require.Equal(t, "\033[2J\033[H", out.String())
}

func TestTerminal_ClearWithoutANSIDoesNotRepeat(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(&out, false)

	early := Entry{Class: Incoming, SenderID: 1, Content: "early", TimeLabel: "10:00 5/1/2024"}
	stored := Entry{Class: Incoming, SenderID: 1, Content: "stored", TimeLabel: "09:59 5/1/2024"}

	term.Append(early)
	term.ScrollToBottom()
	term.Clear()
	term.Append(stored)
	term.Append(early)
	term.ScrollToBottom()

	require.Equal(t, 1, strings.Count(out.String(), "#1: early"))
	require.Equal(t, 1, strings.Count(out.String(), "#1: stored"))
	require.Equal(t, 2, strings.Count(out.String(), "\n"))

	// Once matched, a later identical entry is a new message.
	term.Append(early)
	term.ScrollToBottom()
	require.Equal(t, 2, strings.Count(out.String(), "#1: early"))
}

func TestTerminal_ClearANSIRedraws(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(&out, true)

	early := Entry{Class: Incoming, SenderID: 1, Content: "early"}
	term.Append(early)
	term.Clear()
	term.Append(early)
	term.ScrollToBottom()

	after := out.String()[strings.LastIndex(out.String(), "\033[H")+len("\033[H"):]
	require.Equal(t, 1, strings.Count(after, "#1: early"))
}

func TestBuffer(t *testing.T) {
	var b Buffer
	b.Append(Entry{Content: "a"})
	b.ScrollToBottom()
	b.Clear()
	b.Append(Entry{Content: "b"})

	require.Equal(t, []Entry{{Content: "b"}}, b.Entries())
	require.Equal(t, 1, b.Clears())
	require.Equal(t, 1, b.Scrolls())
}
