// Package conversation binds one ride conversation to a real-time transport,
// backfills its history and renders every message into a thread.
//
// All handlers run on a single event loop owned by Run, so rendering needs no
// locking and messages appear in exactly the order their events are processed.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/qmuntal/stateless"

	"github.com/comigor/ridechat/internal/chat"
	"github.com/comigor/ridechat/internal/logger"
	"github.com/comigor/ridechat/internal/realtime"
	"github.com/comigor/ridechat/internal/view"
)

// FSM States
type State string

const (
	StateConnecting State = "Connecting" // initial; no confirmed connection
	StateJoined     State = "Joined"     // join_room being sent
	StateLive       State = "Live"       // listening
)

// FSM Triggers
type Trigger string

const (
	TriggerConnected    Trigger = "Connected"
	TriggerJoinSent     Trigger = "JoinSent"
	TriggerDisconnected Trigger = "Disconnected"
)

var (
	ErrMissingDependency = errors.New("conversation: missing dependency")
	ErrAlreadyRunning    = errors.New("conversation: already running")
	ErrStopped           = errors.New("conversation: stopped")
)

// Backfiller loads the stored history of a conversation.
type Backfiller interface {
	Messages(ctx context.Context, id chat.ConversationID) ([]chat.Message, error)
}

// Input is the compose box.
type Input interface {
	Value() string
	SetValue(v string)
}

// Transcript mirrors what has been rendered. history.Store satisfies it.
type Transcript interface {
	Reset(id chat.ConversationID)
	Append(id chat.ConversationID, msg chat.Message)
}

// Options are the client's collaborators. Transcript is optional.
type Options struct {
	ConversationID chat.ConversationID
	ParticipantID  int64
	Transport      realtime.Transport
	Backfill       Backfiller
	Thread         view.Thread
	Input          Input
	Transcript     Transcript
	Labels         view.TimeFormat
}

// Client is the conversation client
type Client struct {
	id          chat.ConversationID
	participant int64
	transport   realtime.Transport
	backfill    Backfiller
	thread      view.Thread
	input       Input
	transcript  Transcript
	labels      view.TimeFormat

	fsm     *stateless.StateMachine
	events  chan func(context.Context)
	done    chan struct{}
	running atomic.Bool
}

// New validates the collaborators and prepares the state machine.
func New(opts Options) (*Client, error) {
	switch {
	case opts.ConversationID.Key() == "":
		return nil, fmt.Errorf("%w: conversation id", ErrMissingDependency)
	case opts.Transport == nil:
		return nil, fmt.Errorf("%w: transport", ErrMissingDependency)
	case opts.Backfill == nil:
		return nil, fmt.Errorf("%w: backfill", ErrMissingDependency)
	case opts.Thread == nil:
		return nil, fmt.Errorf("%w: thread", ErrMissingDependency)
	case opts.Input == nil:
		return nil, fmt.Errorf("%w: input", ErrMissingDependency)
	}

	c := &Client{
		id:          opts.ConversationID,
		participant: opts.ParticipantID,
		transport:   opts.Transport,
		backfill:    opts.Backfill,
		thread:      opts.Thread,
		input:       opts.Input,
		transcript:  opts.Transcript,
		labels:      opts.Labels,
		events:      make(chan func(context.Context), 64),
		done:        make(chan struct{}),
	}
	c.fsm = c.newStateMachine()
	return c, nil
}

// State: Connecting
// Transitions:
//   - On Connected -> StateJoined
//
// State: Joined
// Action: emit join_room for ride_<id>, then JoinSent (or Disconnected if the emit failed).
// Transitions:
//   - On JoinSent -> StateLive
//   - On Connected -> StateJoined (reentry, join again)
//   - On Disconnected -> StateConnecting
//
// State: Live
// Transitions:
//   - On Connected -> StateJoined (reconnect restores membership; join is idempotent)
//   - On Disconnected -> StateConnecting
func (c *Client) newStateMachine() *stateless.StateMachine {
	fsm := stateless.NewStateMachine(StateConnecting)

	fsm.Configure(StateConnecting).
		Permit(TriggerConnected, StateJoined).
		Ignore(TriggerDisconnected).
		Ignore(TriggerJoinSent)

	fsm.Configure(StateJoined).
		OnEntry(func(ctx context.Context, _ ...any) error {
			room := chat.RoomName(c.id)
			if err := c.transport.Emit(ctx, realtime.EventJoinRoom, chat.JoinRequest{Room: room}); err != nil {
				logger.L.Warn("join request failed", "room", room, "error", err)
				return fsm.FireCtx(ctx, TriggerDisconnected)
			}
			logger.L.Info("join request sent", "room", room)
			return fsm.FireCtx(ctx, TriggerJoinSent)
		}).
		PermitReentry(TriggerConnected).
		Permit(TriggerJoinSent, StateLive).
		Permit(TriggerDisconnected, StateConnecting)

	fsm.Configure(StateLive).
		Permit(TriggerConnected, StateJoined).
		Permit(TriggerDisconnected, StateConnecting).
		Ignore(TriggerJoinSent)

	fsm.OnTransitioned(func(_ context.Context, t stateless.Transition) {
		logger.L.Debug("conversation state changed", "ride_id", c.id.String(), "from", t.Source, "to", t.Destination, "trigger", t.Trigger)
	})
	return fsm
}

// State reports the current connection state.
func (c *Client) State() State {
	s, _ := c.fsm.MustState().(State)
	return s
}

// Run opens the transport, backfills once and processes events until ctx is
// cancelled. A Client runs at most once.
func (c *Client) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(c.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.transport.On(realtime.EventConnect, func(json.RawMessage) {
		c.post(ctx, func(ctx context.Context) { c.fire(ctx, TriggerConnected) })
	})
	c.transport.On(realtime.EventDisconnect, func(json.RawMessage) {
		c.post(ctx, func(ctx context.Context) { c.fire(ctx, TriggerDisconnected) })
	})
	c.transport.On(realtime.EventReceiveMessage, func(payload json.RawMessage) {
		c.post(ctx, func(context.Context) { c.receive(payload) })
	})

	transportErr := make(chan error, 1)
	go func() { transportErr <- c.transport.Run(ctx) }()
	go c.fetchHistory(ctx)

	logger.L.Info("conversation client started", "ride_id", c.id.String(), "participant_id", c.participant)
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-c.events:
			fn(ctx)
		case err := <-transportErr:
			if err != nil {
				return fmt.Errorf("transport: %w", err)
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("transport: %w", ErrStopped)
		}
	}
}

// Submit sends the compose box content. Whitespace-only input is a no-op and
// leaves the box untouched; otherwise the trimmed text is emitted once and the
// box is cleared. Nothing is rendered locally: the server echo does that.
func (c *Client) Submit(ctx context.Context) error {
	result := make(chan error, 1)
	select {
	case c.events <- func(ctx context.Context) { result <- c.send(ctx) }:
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) post(ctx context.Context, fn func(context.Context)) {
	select {
	case c.events <- fn:
	case <-ctx.Done():
	}
}

func (c *Client) fire(ctx context.Context, trigger Trigger) {
	if err := c.fsm.FireCtx(ctx, trigger); err != nil {
		logger.L.Warn("conversation state transition failed", "trigger", trigger, "error", err)
	}
}

func (c *Client) fetchHistory(ctx context.Context) {
	msgs, err := c.backfill.Messages(ctx, c.id)
	if err != nil {
		if ctx.Err() == nil {
			logger.L.Error("failed to fetch messages", "ride_id", c.id.String(), "error", err)
		}
		return
	}
	c.post(ctx, func(context.Context) { c.applyHistory(msgs) })
}

// applyHistory replaces whatever is rendered with the server's history, in server order.
func (c *Client) applyHistory(msgs []chat.Message) {
	c.thread.Clear()
	if c.transcript != nil {
		c.transcript.Reset(c.id)
	}

	rendered := 0
	for _, msg := range msgs {
		if msg.RideID != "" && !msg.RideID.Equal(c.id) {
			logger.L.Debug("skipping backfilled message for another conversation", "ride_id", msg.RideID.String())
			continue
		}
		c.render(msg)
		rendered++
	}
	logger.L.Info("conversation history loaded", "ride_id", c.id.String(), "messages", rendered)
}

func (c *Client) receive(payload json.RawMessage) {
	var msg chat.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		logger.L.Warn("malformed inbound message", "error", err)
		return
	}
	if !msg.RideID.Equal(c.id) {
		logger.L.Debug("discarding message for another conversation", "ride_id", msg.RideID.String())
		return
	}
	c.render(msg)
}

func (c *Client) send(ctx context.Context) error {
	content := strings.TrimSpace(c.input.Value())
	if content == "" {
		return nil
	}
	req := chat.SendRequest{RideID: c.id, Content: content}
	if err := c.transport.Emit(ctx, realtime.EventSendMessage, req); err != nil {
		logger.L.Warn("send failed", "ride_id", c.id.String(), "error", err)
		return err
	}
	c.input.SetValue("")
	return nil
}

func (c *Client) render(msg chat.Message) {
	c.thread.Append(EntryFor(msg, c.participant, c.labels))
	if c.transcript != nil {
		c.transcript.Append(c.id, msg)
	}
	c.thread.ScrollToBottom()
}

// EntryFor classifies msg against the current participant and formats its time label.
func EntryFor(msg chat.Message, participant int64, labels view.TimeFormat) view.Entry {
	class := view.Incoming
	if msg.SenderID == participant {
		class = view.Outgoing
	}
	return view.Entry{
		Class:     class,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		TimeLabel: labels.Label(msg.Timestamp),
	}
}
