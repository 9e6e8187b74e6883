package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoplink/core"
)

func TestDefaultsMatchCore(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, core.DefaultConfig(), cfg.Core())
	assert.Equal(t, []int{15, 71, 82}, cfg.RecoveryChannels)
	assert.Equal(t, 3, cfg.BindAcks)
}

func TestParseOverrides(t *testing.T) {
	src := `
hop_interval_ms: 50
failsafe_timeout_ms: 1000
recovery_channels: [1, 126]
save_new_bind: false
sensors:
  gps: true
buddy:
  model_id: 7
  throttle_channel: 0
radios:
  - ce_line: 25
  - name: backup
    chip: gpiochip1
    ce_line: 24
`
	_, err := Parse([]byte(src))
	require.Error(t, err, "126 is not an RF channel")

	cfg, err := Parse([]byte(`
hop_interval_ms: 50
failsafe_timeout_ms: 1000
recovery_channels: [1, 125]
save_new_bind: false
sensors:
  gps: true
buddy:
  model_id: 7
  throttle_channel: 0
radios:
  - ce_line: 25
  - name: backup
    chip: gpiochip1
    ce_line: 24
`))
	require.NoError(t, err)
	c := cfg.Core()
	assert.Equal(t, uint32(50), c.HopInterval)
	assert.Equal(t, uint32(1000), c.FailsafeTimeout)
	assert.Equal(t, []uint8{1, 125}, c.RecoveryChannels)
	assert.False(t, c.SaveNewBind)
	assert.True(t, c.Sensors.GPS)
	assert.Equal(t, uint32(7), c.Buddy.ModelID)
	assert.Equal(t, 0, c.Buddy.ThrottleChannel)
	assert.Equal(t, uint32(core.DefaultListenWindow), c.ListenWindow)

	require.Len(t, cfg.Radios, 2)
	assert.Equal(t, RadioConfig{Name: "radio0", Chip: "gpiochip0", CELine: 25}, cfg.Radios[0])
	assert.Equal(t, "backup", cfg.Radios[1].Name)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"hop too short", "hop_interval_ms: 5"},
		{"failsafe before hop", "hop_interval_ms: 100\nfailsafe_timeout_ms: 100"},
		{"recovery in table", "recovery_channels: [121]"},
		{"output slower than listen", "output_interval_ms: 30"},
		{"three radios", "radios: [{ce_line: 1}, {ce_line: 2}, {ce_line: 3}]"},
		{"throttle out of range", "buddy: {throttle_channel: 16}"},
		{"bind acks below sightings", "bind_acks: 2"},
		{"bad yaml", "hop_interval_ms: [1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.src))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "link.yaml")
	require.NoError(t, os.WriteFile(path, []byte("swap_every: 5\n"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.SwapEvery)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
