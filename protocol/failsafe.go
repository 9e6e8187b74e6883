package protocol

import "errors"

const (
	FailsafeChannels = 16
	FailsafeBytes    = FailsafeChannels * 2
	ServoRange       = 180
)

var ErrFailsafeLength = errors.New("failsafe table must be 32 bytes")

// FailsafeTable holds one servo position (0-180) per channel and whether
// that channel is forced on failsafe. Disabled channels hold their last
// good value.
type FailsafeTable struct {
	Values  [FailsafeChannels]byte
	Enabled [FailsafeChannels]bool
}

// MarshalBinary produces the persisted form: 16 value bytes then 16 flags
func (t FailsafeTable) MarshalBinary() ([]byte, error) {
	b := make([]byte, FailsafeBytes)
	copy(b, t.Values[:])
	for i, on := range t.Enabled {
		if on {
			b[FailsafeChannels+i] = 1
		}
	}
	return b, nil
}

func (t *FailsafeTable) UnmarshalBinary(b []byte) error {
	if len(b) != FailsafeBytes {
		return ErrFailsafeLength
	}
	copy(t.Values[:], b[:FailsafeChannels])
	for i := range t.Enabled {
		t.Enabled[i] = b[FailsafeChannels+i] != 0
	}
	return nil
}

// ServoToChannel maps a 0-180 servo position onto the channel range
func ServoToChannel(v byte) uint16 {
	if v > ServoRange {
		v = ServoRange
	}
	return uint16(ChannelMin + int(v)*(ChannelMax-ChannelMin)/ServoRange)
}

// Apply overwrites the enabled channels of frame with their failsafe values
func (t FailsafeTable) Apply(frame []uint16) {
	for i := 0; i < len(frame) && i < FailsafeChannels; i++ {
		if t.Enabled[i] {
			frame[i] = ServoToChannel(t.Values[i])
		}
	}
}
