package core

// Config holds the link constants fixed at build/boot time
type Config struct {
	HopInterval     uint32 // ms between retunes
	FailsafeTimeout uint32 // ms without packets before failsafe
	ListenWindow    uint32 // ms spent per recovery channel
	ProbeWindow     uint32 // ms the bind probe waits for data
	OutputInterval  uint32 // ms between keep-alive output frames

	RecoveryChannels []uint8
	SwapEvery        int // recovery attempts between transceiver swaps
	SaveNewBind      bool
	BindAcks         int // acked bind packets before the transmitter moves on

	Sensors Sensors
	Buddy   BuddyConfig
}

// Sensors detected at boot; they decide the telemetry ceiling
type Sensors struct {
	GPS  bool
	Baro bool
}

type BuddyConfig struct {
	Channel         uint8
	QuietChannel    uint8
	SpecialEvery    int // exchanges between special packets
	MaxMisses       int // failed exchanges before the pupil is dead
	PupilTimeout    uint32
	ThrottleChannel int
	ModelID         uint32
}

// Default link constants
const (
	DefaultHopInterval     = 97
	DefaultFailsafeTimeout = 2000
	DefaultListenWindow    = 20
	DefaultProbeWindow     = 60
	DefaultOutputInterval  = 7
	DefaultSwapEvery       = 3
	DefaultBindAcks        = 3
)

// RecoveryDwell is how long the transmitter stays on one recovery channel.
// It covers a full receiver sweep plus one listen window, so any frame
// period up to ListenWindow meets the receiver there.
func (c Config) RecoveryDwell() uint32 {
	return uint32(len(c.RecoveryChannels)+2) * c.ListenWindow
}

// DefaultRecoveryChannels are kept out of DefaultTable
var DefaultRecoveryChannels = []uint8{15, 71, 82}

func DefaultConfig() Config {
	return Config{
		HopInterval:      DefaultHopInterval,
		FailsafeTimeout:  DefaultFailsafeTimeout,
		ListenWindow:     DefaultListenWindow,
		ProbeWindow:      DefaultProbeWindow,
		OutputInterval:   DefaultOutputInterval,
		RecoveryChannels: append([]uint8(nil), DefaultRecoveryChannels...),
		SwapEvery:        DefaultSwapEvery,
		SaveNewBind:      true,
		BindAcks:         DefaultBindAcks,
		Buddy: BuddyConfig{
			Channel:         101,
			QuietChannel:    40,
			SpecialEvery:    25,
			MaxMisses:       20,
			PupilTimeout:    250,
			ThrottleChannel: 2,
		},
	}
}
