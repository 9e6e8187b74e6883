package core

// ConnectionState is the receiver's view of the link
type ConnectionState uint8

const (
	Disconnected ConnectionState = iota
	Listening
	Connected
	Reconnecting
	FailsafeActive
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Listening:
		return "listening"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case FailsafeActive:
		return "failsafe"
	default:
		return "unknown"
	}
}

// Searching reports whether the state hunts the recovery channels
func (s ConnectionState) Searching() bool {
	return s == Listening || s == Reconnecting || s == FailsafeActive
}
