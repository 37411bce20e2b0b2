// Package view renders conversation entries. A Thread stands in for the page's
// message list: entries are only ever appended, or wiped wholesale by Clear.
package view

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"sync"
)

// Class tells outgoing lines from incoming ones.
type Class string

const (
	Outgoing Class = "sent"
	Incoming Class = "received"
)

// Entry is one rendered message.
type Entry struct {
	Class     Class
	SenderID  int64
	Content   string
	TimeLabel string
}

// Thread is the message list a conversation renders into.
type Thread interface {
	Clear()
	Append(e Entry)
	ScrollToBottom()
}

// Terminal writes entries as lines. Output is buffered until ScrollToBottom.
//
// Without ansi the screen cannot be wiped, so Clear only remembers what is
// still visible and later appends of those same entries are not printed again.
type Terminal struct {
	mu   sync.Mutex
	w    *bufio.Writer
	ansi bool

	shown   []Entry // printed since the last Clear
	visible []Entry // printed before a Clear, still on screen
}

// NewTerminal creates a Terminal. With ansi set, Clear wipes the screen.
func NewTerminal(w io.Writer, ansi bool) *Terminal {
	return &Terminal{w: bufio.NewWriter(w), ansi: ansi}
}

func (t *Terminal) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ansi {
		t.w.WriteString("\033[2J\033[H")
		return
	}
	t.visible = append(t.visible, t.shown...)
	t.shown = nil
}

func (t *Terminal) Append(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ansi {
		if i := slices.Index(t.visible, e); i >= 0 {
			t.visible = slices.Delete(t.visible, i, i+1)
			return
		}
		t.shown = append(t.shown, e)
	}
	if e.Class == Outgoing {
		fmt.Fprintf(t.w, "%24s  you: %s\n", "["+e.TimeLabel+"]", e.Content)
		return
	}
	fmt.Fprintf(t.w, "%24s  #%d: %s\n", "["+e.TimeLabel+"]", e.SenderID, e.Content)
}

// ScrollToBottom flushes pending lines so the newest entry is visible.
func (t *Terminal) ScrollToBottom() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.w.Flush()
}

// Buffer is an in-memory Thread for embedding and tests.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	clears  int
	scrolls int
}

func (b *Buffer) Clear() {
	b.mu.Lock()
	b.entries = nil
	b.clears++
	b.mu.Unlock()
}

func (b *Buffer) Append(e Entry) {
	b.mu.Lock()
	b.entries = append(b.entries, e)
	b.mu.Unlock()
}

func (b *Buffer) ScrollToBottom() {
	b.mu.Lock()
	b.scrolls++
	b.mu.Unlock()
}

// Entries returns a copy of the rendered entries.
func (b *Buffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Entry(nil), b.entries...)
}

// Clears reports how many times the thread was cleared.
func (b *Buffer) Clears() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clears
}

// Scrolls reports how many times the thread was scrolled.
func (b *Buffer) Scrolls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scrolls
}
