package pulsechat

// ConnState represents the current state of the realtime connection.
type ConnState int

const (
	// StateDisconnected means no connection is established.
	StateDisconnected ConnState = iota

	// StateConnecting means a connection attempt is in flight.
	StateConnecting

	// StateConnected means the channel is open and ready.
	StateConnected

	// StateReconnecting means a reconnection attempt is scheduled after an
	// abnormal close.
	StateReconnecting

	// StateClosed means the caller disconnected deliberately.
	StateClosed
)

// String returns the string representation of a ConnState.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StateEvent represents a state change.
type StateEvent struct {
	Old ConnState
	New ConnState
}

// Status is a point-in-time snapshot of the connection.
type Status struct {
	State             ConnState
	RoomID            string
	ReconnectAttempts int
}
