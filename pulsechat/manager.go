package pulsechat

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/pulsechat/pulsechat-sdk-go/pulsechat/internal"
)

// Manager owns the realtime channel for one room at a time. It translates
// commands into wire frames, demultiplexes inbound frames into typed events
// on its dispatcher, and recovers from abnormal closes with bounded linear
// backoff. Construct one per chat session and tie its lifecycle to the owner.
type Manager struct {
	cfg    Config
	logger Logger
	creds  CredentialStore
	events *Dispatcher

	mu           sync.Mutex
	state        ConnState
	onState      func(StateEvent)
	roomID       string
	conn         *internal.Conn
	gen          int // connection generation, guards stale read-loop teardown
	dialSeq      int // dial sequence, the newest Connect call wins the socket
	attempts     int
	retry        *time.Timer
	closedByUser bool
}

// NewManager constructs a connection manager. The credential store supplies
// the bearer token used to authenticate the channel URL.
func NewManager(cfg Config, creds CredentialStore) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: noopLogger{},
		creds:  creds,
		events: NewDispatcher(),
	}
}

// SetLogger overrides the logger (optional).
func (m *Manager) SetLogger(l Logger) {
	if l != nil {
		m.logger = l
	}
}

// OnStateChanged registers a callback for connection state transitions.
func (m *Manager) OnStateChanged(fn func(StateEvent)) {
	m.mu.Lock()
	m.onState = fn
	m.mu.Unlock()
}

// Events returns the dispatcher inbound events are delivered on. Subscribers
// own their subscriptions; Disconnect does not cancel them.
func (m *Manager) Events() *Dispatcher {
	return m.events
}

// State returns the current connection state.
func (m *Manager) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns a snapshot of the connection.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{State: m.state, RoomID: m.roomID, ReconnectAttempts: m.attempts}
}

// Connect opens the channel for roomID. It is a no-op when already connected
// to the same room, and when no credential is available it logs and returns
// nil: callers are not expected to invoke this without an authenticated
// session, and the original surface treats that as a non-throwing dead end.
func (m *Manager) Connect(ctx context.Context, roomID string) error {
	m.mu.Lock()
	if m.state == StateConnected && m.roomID == roomID {
		m.mu.Unlock()
		m.logger.Debug("already connected", map[string]any{"room": roomID})
		return nil
	}
	var token string
	if m.creds != nil {
		token = m.creds.AccessToken()
	}
	if token == "" {
		m.mu.Unlock()
		m.logger.Error("no access token for realtime channel", map[string]any{"room": roomID})
		return nil
	}
	old := m.conn
	m.conn = nil
	m.roomID = roomID
	m.closedByUser = false
	m.dialSeq++
	seq := m.dialSeq
	m.mu.Unlock()

	if old != nil {
		_ = old.Close(websocket.StatusNormalClosure, "switching rooms")
	}
	m.setState(StateConnecting)

	wsURL := fmt.Sprintf("%s/ws/chat/%s/?token=%s",
		strings.TrimSuffix(m.cfg.WSURL, "/"), roomID, url.QueryEscape(token))

	dialCtx := ctx
	if m.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, m.cfg.HandshakeTimeout)
		defer cancel()
	}

	ws, _, err := websocket.Dial(dialCtx, wsURL, nil)
	if err != nil {
		werr := WrapError(ErrorConnection, "dial failed", err)
		m.mu.Lock()
		stale := m.closedByUser || seq != m.dialSeq
		m.mu.Unlock()
		if stale {
			return werr
		}
		m.logger.Warn("dial failed", map[string]any{"room": roomID, "error": err.Error()})
		m.events.Dispatch(ErrorEvent{Err: werr})
		m.scheduleReconnect(roomID)
		return werr
	}

	conn := internal.NewConn(ws, m.cfg.ReadTimeout, m.cfg.WriteTimeout)

	m.mu.Lock()
	if m.closedByUser || seq != m.dialSeq {
		// Disconnect or a newer Connect raced the dial; drop the fresh
		// socket so only one channel stays live.
		m.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "superseded")
		return nil
	}
	prev := m.conn
	m.conn = conn
	m.attempts = 0
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	if prev != nil {
		_ = prev.Close(websocket.StatusNormalClosure, "superseded")
	}
	m.setState(StateConnected)
	m.logger.Info("channel connected", map[string]any{"room": roomID})
	m.events.Dispatch(OpenEvent{RoomID: roomID})

	go m.readLoop(gen, roomID, conn)
	return nil
}

// Disconnect closes the channel with a normal-closure code and cancels any
// pending reconnect. Idempotent.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.closedByUser = true
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	conn := m.conn
	m.conn = nil
	m.attempts = 0
	m.roomID = ""
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
	}
	m.setState(StateClosed)
}

// SendChatMessage writes a chat frame. tempID is the client identifier of the
// optimistic entry, echoed back in the server broadcast.
func (m *Manager) SendChatMessage(content, roomID, tempID string) bool {
	return m.send(chatSendFrame{Type: frameChatMessage, Message: content, RoomID: roomID, TempID: tempID})
}

// SendTyping writes a typing start/stop frame.
func (m *Manager) SendTyping(roomID string, started bool) bool {
	kind := frameTypingStop
	if started {
		kind = frameTypingStart
	}
	return m.send(typingSendFrame{Type: kind, RoomID: roomID})
}

// SendMessageRead writes a read-receipt frame.
func (m *Manager) SendMessageRead(messageID, roomID string) bool {
	return m.send(readSendFrame{Type: frameMessageRead, MessageID: messageID, RoomID: roomID})
}

// send reports false when no channel is open or the write fails. This layer
// does not buffer unsent commands; the caller owns surfacing the failure.
func (m *Manager) send(v any) bool {
	m.mu.Lock()
	conn := m.conn
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected || conn == nil {
		m.logger.Warn("send with no open channel", nil)
		return false
	}
	if err := conn.Write(context.Background(), v); err != nil {
		m.logger.Warn("send failed", map[string]any{"error": err.Error()})
		return false
	}
	return true
}

func (m *Manager) readLoop(gen int, roomID string, conn *internal.Conn) {
	for {
		data, err := conn.ReadRaw(context.Background())
		if err != nil {
			m.handleClose(gen, roomID, err)
			return
		}
		ev, derr := decodeFrame(data)
		if derr != nil {
			// One bad frame must not take the connection down.
			m.logger.Warn("dropping malformed frame", map[string]any{"error": derr.Error()})
			continue
		}
		if ev == nil {
			m.logger.Debug("unknown frame type", map[string]any{"frame": string(data)})
			continue
		}
		m.events.Dispatch(ev)
	}
}

func (m *Manager) handleClose(gen int, roomID string, err error) {
	m.mu.Lock()
	if gen != m.gen {
		// A newer connection superseded this one.
		m.mu.Unlock()
		return
	}
	m.conn = nil
	byUser := m.closedByUser
	m.mu.Unlock()

	status := websocket.CloseStatus(err)
	m.logger.Info("channel closed", map[string]any{
		"room": roomID, "code": int(status), "error": err.Error(),
	})
	m.events.Dispatch(CloseEvent{Code: status, Reason: err.Error()})

	// Only a close the caller asked for, or a normal closure from the
	// server, ends here. Anything else is a drop we recover from.
	if byUser || status == websocket.StatusNormalClosure {
		if !byUser {
			m.setState(StateDisconnected)
		}
		return
	}
	m.scheduleReconnect(roomID)
}

func (m *Manager) scheduleReconnect(roomID string) {
	m.mu.Lock()
	if m.closedByUser {
		m.mu.Unlock()
		return
	}
	if m.attempts >= m.cfg.MaxReconnectTries {
		m.mu.Unlock()
		m.setState(StateDisconnected)
		m.logger.Error("reconnect attempts exhausted", map[string]any{
			"room": roomID, "attempts": m.cfg.MaxReconnectTries,
		})
		m.events.Dispatch(ErrorEvent{Err: NewError(ErrorDisconnected, "reconnect attempts exhausted")})
		return
	}
	m.attempts++
	attempt := m.attempts
	delay := time.Duration(attempt) * m.cfg.ReconnectInterval
	m.retry = time.AfterFunc(delay, func() {
		_ = m.Connect(context.Background(), roomID)
	})
	m.mu.Unlock()

	m.setState(StateReconnecting)
	m.logger.Info("scheduling reconnect", map[string]any{
		"room": roomID, "attempt": attempt, "max": m.cfg.MaxReconnectTries, "delay": delay.String(),
	})
}

func (m *Manager) setState(next ConnState) {
	m.mu.Lock()
	old := m.state
	m.state = next
	fn := m.onState
	m.mu.Unlock()
	if fn != nil && old != next {
		fn(StateEvent{Old: old, New: next})
	}
}
