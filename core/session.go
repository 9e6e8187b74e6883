package core

import "hoplink/protocol"

// Role distinguishes the vehicle link from the buddy link
type Role uint8

const (
	RolePrimary Role = iota
	RoleBuddy
)

func (r Role) String() string {
	if r == RoleBuddy {
		return "buddy"
	}
	return "primary"
}

// AddressFunc derives the on-air pipe from the plain bound address
type AddressFunc func(protocol.PipeAddress) protocol.PipeAddress

// PlainAddress uses the bound address unchanged
func PlainAddress(p protocol.PipeAddress) protocol.PipeAddress { return p }

// LivenessPolicy decides when a peer counts as gone
type LivenessPolicy interface {
	Lost(s *Session, now uint32) bool
}

// TimeoutPolicy: nothing heard for Timeout ms
type TimeoutPolicy struct {
	Timeout uint32
}

func (p TimeoutPolicy) Lost(s *Session, now uint32) bool {
	return Elapsed(now, s.LastSeen) >= p.Timeout
}

// MissCountPolicy: MaxMisses consecutive failed exchanges
type MissCountPolicy struct {
	MaxMisses int
}

func (p MissCountPolicy) Lost(s *Session, now uint32) bool {
	return s.Misses >= p.MaxMisses
}

// Transition is what a liveness update changed
type Transition uint8

const (
	TransitionNone Transition = iota
	TransitionLost
	TransitionRestored
)

// Session is one paired radio relationship: its pipe, its liveness and its
// recovery channel rotation. Lost and Restored each fire once per episode.
type Session struct {
	Role     Role
	Derive   AddressFunc
	Policy   LivenessPolicy
	Recovery []uint8

	plain    protocol.PipeAddress
	pipe     protocol.PipeAddress
	alive    bool
	LastSeen uint32
	Misses   int
	attempt  int
}

func NewSession(role Role, derive AddressFunc, policy LivenessPolicy, recovery []uint8) *Session {
	if derive == nil {
		derive = PlainAddress
	}
	return &Session{Role: role, Derive: derive, Policy: policy, Recovery: recovery}
}

// SetAddress binds the session to a plain address
func (s *Session) SetAddress(plain protocol.PipeAddress) {
	s.plain = plain
	s.pipe = s.Derive(plain)
}

func (s *Session) Address() protocol.PipeAddress { return s.plain }
func (s *Session) Pipe() protocol.PipeAddress    { return s.pipe }
func (s *Session) Alive() bool                   { return s.alive }
func (s *Session) Attempts() int                 { return s.attempt }

// Seen records a successful exchange
func (s *Session) Seen(now uint32) Transition {
	s.LastSeen = now
	s.Misses = 0
	if s.alive {
		return TransitionNone
	}
	s.alive = true
	s.attempt = 0
	return TransitionRestored
}

// Missed records a failed exchange and re-evaluates liveness
func (s *Session) Missed(now uint32) Transition {
	s.Misses++
	return s.Check(now)
}

// Check re-evaluates liveness without counting a miss
func (s *Session) Check(now uint32) Transition {
	if !s.alive || !s.Policy.Lost(s, now) {
		return TransitionNone
	}
	s.alive = false
	s.attempt = 0
	return TransitionLost
}

// Reset forgets the peer entirely (unbind)
func (s *Session) Reset() {
	s.alive = false
	s.Misses = 0
	s.attempt = 0
}

// NextRecoveryChannel returns the channel for the next search attempt
func (s *Session) NextRecoveryChannel() uint8 {
	if len(s.Recovery) == 0 {
		return 0
	}
	ch := s.Recovery[s.attempt%len(s.Recovery)]
	s.attempt++
	return ch
}
