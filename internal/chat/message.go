package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RoomPrefix is prepended to the conversation key to form the room name.
const RoomPrefix = "ride_"

// ConversationID identifies one ride conversation. The server may send it as a
// JSON number or string; both forms decode to the same value.
type ConversationID string

// UnmarshalJSON accepts numbers, strings and null.
func (id *ConversationID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*id = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ConversationID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("conversation id: %w", err)
		}
		*id = ConversationID(n.String())
	}
	return nil
}

func (id ConversationID) String() string { return string(id) }

// Key returns the canonical form: exact integer text for integer ids, the
// shortest float text for other numbers, trimmed text otherwise.
func (id ConversationID) Key() string {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return s
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return s
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Equal compares loosely, "42" matches 42 and "42.0", and always agrees with Key.
func (id ConversationID) Equal(other ConversationID) bool {
	return id.Key() == other.Key()
}

// RoomName is the real-time room for a conversation, "ride_<key>".
func RoomName(id ConversationID) string {
	return RoomPrefix + id.Key()
}

// Message is a single chat line as delivered by backfill or live push.
type Message struct {
	SenderID  int64          `json:"sender_id"`
	Content   string         `json:"content"`
	Timestamp string         `json:"timestamp"`
	RideID    ConversationID `json:"ride_id"`
}

// JoinRequest is the join_room payload.
type JoinRequest struct {
	Room string `json:"room"`
}

// SendRequest is the send_message payload.
type SendRequest struct {
	RideID  ConversationID `json:"ride_id"`
	Content string         `json:"content"`
}
