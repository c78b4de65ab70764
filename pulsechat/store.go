package pulsechat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulsechat/pulsechat-sdk-go/pulsechat/rest"
)

// Transport is the connection-manager surface the store drives. *Manager
// implements it.
type Transport interface {
	Connect(ctx context.Context, roomID string) error
	Disconnect()
	SendChatMessage(content, roomID, tempID string) bool
	SendTyping(roomID string, started bool) bool
	SendMessageRead(messageID, roomID string) bool
	Events() *Dispatcher
}

// API is the REST collaborator surface the store consumes. *rest.Client
// implements it.
type API interface {
	ListRooms(ctx context.Context) ([]rest.Room, error)
	CreateRoom(ctx context.Context, req rest.CreateRoomRequest) (*rest.Room, error)
	GetMessages(ctx context.Context, roomID string) ([]rest.Message, error)
	SendMessage(ctx context.Context, roomID, content string) (*rest.Message, error)
	LikeMessage(ctx context.Context, messageID string) (*rest.LikeResult, error)
	MarkMessageRead(ctx context.Context, messageID string) error
}

// Store is the single source of truth for room summaries, the active room's
// message timeline, typing indicators, and participant presence. It merges
// REST-fetched history, optimistic local sends, and live transport events
// into one ordered, duplicate-free view. All mutation goes through its
// methods; reads return copies.
type Store struct {
	transport Transport
	api       API
	identity  Identity
	logger    Logger

	typingExpiry      time.Duration
	typingRemoveDelay time.Duration

	mu           sync.Mutex
	rooms        []rest.Room
	active       *rest.Room
	messages     []Message
	typing       []rest.User
	typingTimers map[string]*time.Timer
	loading      bool
	err          error
	selectSeq    int
	closed       bool
	subs         []Subscription

	// test seams
	now       func() time.Time
	newTempID func() string
}

// NewStore wires a store to its collaborators and subscribes to the
// transport's event stream. Call Close to tear the wiring down.
func NewStore(cfg Config, transport Transport, api API, identity Identity) *Store {
	s := &Store{
		transport:         transport,
		api:               api,
		identity:          identity,
		logger:            noopLogger{},
		typingExpiry:      cfg.TypingExpiry,
		typingRemoveDelay: cfg.TypingRemoveDelay,
		typingTimers:      make(map[string]*time.Timer),
		now:               time.Now,
		newTempID:         func() string { return "temp_" + uuid.NewString() },
	}

	events := transport.Events()
	s.subs = []Subscription{
		events.On(KindChatMessage, s.onMessageEvent),
		events.On(KindTypingStart, s.onTypingEvent),
		events.On(KindTypingStop, s.onTypingEvent),
		events.On(KindMessageRead, s.onReadEvent),
		events.On(KindUserOnline, s.onPresenceEvent),
		events.On(KindUserOffline, s.onPresenceEvent),
		events.On(KindRoomUpdated, s.onRoomEvent),
		events.On(KindConnectionError, s.onErrorEvent),
	}
	return s
}

// SetLogger overrides the logger (optional).
func (s *Store) SetLogger(l Logger) {
	if l != nil {
		s.logger = l
	}
}

// Close cancels the store's subscriptions and timers and tears down the
// transport channel.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	s.clearTypingLocked()
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
	s.transport.Disconnect()
}

// Commands

// LoadRooms replaces the room collection from the REST listing. On failure
// the existing collection is kept and the store error is set.
func (s *Store) LoadRooms(ctx context.Context) error {
	rooms, err := s.api.ListRooms(ctx)
	if err != nil {
		werr := WrapError(ErrorRequestFailed, "failed to load rooms", err)
		s.setErr(werr)
		return werr
	}
	s.mu.Lock()
	s.rooms = rooms
	s.loading = false
	s.mu.Unlock()
	return nil
}

// CreateRoom creates a room through the REST collaborator and appends it to
// the room collection.
func (s *Store) CreateRoom(ctx context.Context, req rest.CreateRoomRequest) (*rest.Room, error) {
	room, err := s.api.CreateRoom(ctx, req)
	if err != nil {
		werr := WrapError(ErrorRequestFailed, "failed to create room", err)
		s.setErr(werr)
		return nil, werr
	}
	s.mu.Lock()
	s.rooms = append(s.rooms, *room)
	s.mu.Unlock()
	return room, nil
}

// SelectRoom switches the active room: clears the previous room's typing set
// and timeline, tears down the old channel, stands up a new one bound to the
// room, and installs the fetched history. A failed history fetch sets the
// store error but leaves the switch in place.
func (s *Store) SelectRoom(ctx context.Context, room rest.Room) error {
	s.mu.Lock()
	s.selectSeq++
	seq := s.selectSeq
	s.clearTypingLocked()
	s.messages = nil
	s.mu.Unlock()

	s.transport.Disconnect()

	s.mu.Lock()
	roomCopy := room
	s.active = &roomCopy
	s.loading = true
	s.mu.Unlock()

	if err := s.transport.Connect(ctx, room.ID); err != nil {
		s.setErr(WrapError(ErrorConnection, "failed to open room channel", err))
	}

	history, err := s.api.GetMessages(ctx, room.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.selectSeq {
		// A newer selection superseded this one while the fetch was in
		// flight; its result must not land.
		return nil
	}
	s.loading = false
	if err != nil {
		werr := WrapError(ErrorRequestFailed, "failed to load messages", err)
		s.err = werr
		return werr
	}
	s.messages = messagesFromRecords(history)
	return nil
}

// SendMessage appends an optimistic entry, delivers the message over the
// realtime channel, persists it through REST, and reconciles the entry with
// the confirmed record in place. Either delivery failure rolls the
// optimistic entry back and sets the store error. An empty roomID targets
// the active room; empty content or no resolvable room is a no-op.
func (s *Store) SendMessage(ctx context.Context, content, roomID string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	s.mu.Lock()
	if roomID == "" {
		if s.active == nil {
			s.mu.Unlock()
			return nil
		}
		roomID = s.active.ID
	}
	temp := Message{
		TempID:    s.newTempID(),
		RoomID:    roomID,
		Content:   content,
		Sender:    s.identity.CurrentUser(),
		Type:      rest.MessageText,
		CreatedAt: s.now(),
		Sending:   true,
	}
	s.messages = append(s.messages, temp)
	s.mu.Unlock()

	if !s.transport.SendChatMessage(content, roomID, temp.TempID) {
		s.removeByTempID(temp.TempID)
		werr := NewError(ErrorNotConnected, "failed to send message")
		s.setErr(werr)
		return werr
	}

	rec, err := s.api.SendMessage(ctx, roomID, content)
	if err != nil {
		s.removeByTempID(temp.TempID)
		werr := WrapError(ErrorRequestFailed, "failed to send message", err)
		s.setErr(werr)
		return werr
	}

	s.confirm(temp.TempID, *rec)
	return nil
}

// LikeMessage toggles a like through REST and applies the returned counters.
// No optimistic update: message state only changes on a successful response.
func (s *Store) LikeMessage(ctx context.Context, messageID string) error {
	res, err := s.api.LikeMessage(ctx, messageID)
	if err != nil {
		werr := WrapError(ErrorRequestFailed, "failed to like message", err)
		s.setErr(werr)
		return werr
	}
	s.mu.Lock()
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			s.messages[i].LikesCount = res.LikesCount
			s.messages[i].IsLiked = res.Liked
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// MarkMessageRead records the receipt through REST, then announces it over
// the realtime channel.
func (s *Store) MarkMessageRead(ctx context.Context, messageID string) error {
	if err := s.api.MarkMessageRead(ctx, messageID); err != nil {
		werr := WrapError(ErrorRequestFailed, "failed to mark message read", err)
		s.setErr(werr)
		return werr
	}
	s.mu.Lock()
	var roomID string
	if s.active != nil {
		roomID = s.active.ID
	}
	s.mu.Unlock()
	if roomID != "" {
		s.transport.SendMessageRead(messageID, roomID)
	}
	return nil
}

// SetTyping announces the user's composing state for the active room and
// maintains the local typing set. No-op without an active room.
func (s *Store) SetTyping(user rest.User, started bool) {
	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		return
	}
	roomID := s.active.ID
	s.mu.Unlock()

	if started {
		s.transport.SendTyping(roomID, true)
		s.addTyping(user)
		return
	}

	s.transport.SendTyping(roomID, false)
	s.removeTyping(user.ID)
	// Safety net: duplicate stop signals can race the removal above. The
	// timer lives in typingTimers so a typing restart or teardown cancels it.
	if s.typingRemoveDelay > 0 {
		s.mu.Lock()
		if !s.closed {
			userID := user.ID
			if t, ok := s.typingTimers[userID]; ok {
				t.Stop()
			}
			s.typingTimers[userID] = time.AfterFunc(s.typingRemoveDelay, func() { s.removeTyping(userID) })
		}
		s.mu.Unlock()
	}
}

// Reads

// Rooms returns a copy of the room collection.
func (s *Store) Rooms() []rest.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]rest.Room, len(s.rooms))
	copy(out, s.rooms)
	return out
}

// ActiveRoom returns a copy of the active room, or nil.
func (s *Store) ActiveRoom() *rest.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	room := *s.active
	return &room
}

// Messages returns a copy of the active room's timeline.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// TypingUsers returns a copy of the typing set.
func (s *Store) TypingUsers() []rest.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]rest.User, len(s.typing))
	copy(out, s.typing)
	return out
}

// Loading reports whether a history fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the current store-level error, if any.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// ClearError dismisses the store-level error.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
}

// Event reconciliation

func (s *Store) onMessageEvent(ev Event) {
	me, ok := ev.(MessageEvent)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return
	}
	if me.Message.RoomID != "" && me.Message.RoomID != s.active.ID {
		return
	}
	in := messageFromRecord(me.Message)
	in.TempID = me.TempID
	s.addMessageLocked(in)
}

// addMessageLocked is the dedup gate: an entry matching an existing one by
// any identifier pair is absorbed (reconciling a pending entry in place when
// the incoming side carries the durable id); otherwise it is appended.
func (s *Store) addMessageLocked(in Message) {
	for i := range s.messages {
		if !s.messages[i].matches(in) {
			continue
		}
		if s.messages[i].Pending() && in.ID != "" {
			confirmed := in
			if confirmed.TempID == "" {
				confirmed.TempID = s.messages[i].TempID
			}
			s.messages[i] = confirmed
		} else {
			s.logger.Debug("duplicate message suppressed", map[string]any{"id": in.ID, "temp_id": in.TempID})
		}
		return
	}
	s.messages = append(s.messages, in)
}

func (s *Store) onTypingEvent(ev Event) {
	te, ok := ev.(TypingEvent)
	if !ok {
		return
	}
	s.mu.Lock()
	scoped := s.active != nil && (te.RoomID == "" || te.RoomID == s.active.ID)
	s.mu.Unlock()
	if !scoped {
		return
	}
	if te.Started {
		s.addTyping(te.User)
	} else {
		s.removeTyping(te.User.ID)
	}
}

func (s *Store) onReadEvent(ev Event) {
	re, ok := ev.(ReadEvent)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID != re.MessageID {
			continue
		}
		for _, id := range s.messages[i].ReadBy {
			if id == re.Reader.ID {
				return
			}
		}
		s.messages[i].ReadBy = append(s.messages[i].ReadBy, re.Reader.ID)
		return
	}
}

// onPresenceEvent flips the participant's online flag in every room that
// contains them, not just the active one.
func (s *Store) onPresenceEvent(ev Event) {
	pe, ok := ev.(PresenceEvent)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rooms {
		setParticipantOnline(&s.rooms[i], pe.UserID, pe.Online)
	}
	if s.active != nil {
		setParticipantOnline(s.active, pe.UserID, pe.Online)
	}
}

func setParticipantOnline(room *rest.Room, userID string, online bool) {
	for i := range room.Participants {
		if room.Participants[i].ID == userID {
			room.Participants[i].Online = online
		}
	}
}

func (s *Store) onRoomEvent(ev Event) {
	re, ok := ev.(RoomEvent)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rooms {
		if s.rooms[i].ID == re.Room.ID {
			s.rooms[i] = re.Room
			break
		}
	}
	if s.active != nil && s.active.ID == re.Room.ID {
		room := re.Room
		s.active = &room
	}
}

// onErrorEvent surfaces only sustained transport failure (exhausted
// reconnects); transient dial errors stay inside the manager.
func (s *Store) onErrorEvent(ev Event) {
	ee, ok := ev.(ErrorEvent)
	if !ok {
		return
	}
	if CodeOf(ee.Err) == ErrorDisconnected {
		s.setErr(ee.Err)
	}
}

// Internals

func (s *Store) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *Store) removeByTempID(tempID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].TempID == tempID && s.messages[i].Pending() {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}

// confirm reconciles the pending entry with the persisted record, keeping
// its slot. If the broadcast echo already reconciled it this is a no-op, and
// if the entry is gone (room switched mid-flight) the record is dropped.
func (s *Store) confirm(tempID string, rec rest.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].TempID == tempID {
			if s.messages[i].Pending() {
				s.messages[i] = reconcile(s.messages[i], rec)
			}
			return
		}
		if s.messages[i].ID != "" && s.messages[i].ID == rec.ID {
			return
		}
	}
}

func (s *Store) addTyping(user rest.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	present := false
	for _, u := range s.typing {
		if u.ID == user.ID {
			present = true
			break
		}
	}
	if !present {
		s.typing = append(s.typing, user)
	}
	// Arm (or re-arm) the expiry so a lost stop signal cannot pin the
	// indicator forever.
	if s.typingExpiry > 0 {
		if t, ok := s.typingTimers[user.ID]; ok {
			t.Stop()
		}
		userID := user.ID
		s.typingTimers[userID] = time.AfterFunc(s.typingExpiry, func() { s.removeTyping(userID) })
	}
}

func (s *Store) removeTyping(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.typingTimers[userID]; ok {
		t.Stop()
		delete(s.typingTimers, userID)
	}
	for i := range s.typing {
		if s.typing[i].ID == userID {
			s.typing = append(s.typing[:i], s.typing[i+1:]...)
			return
		}
	}
}

func (s *Store) clearTypingLocked() {
	for id, t := range s.typingTimers {
		t.Stop()
		delete(s.typingTimers, id)
	}
	s.typing = nil
}
