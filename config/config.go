// Package config loads the link configuration from YAML
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"hoplink/core"
	"hoplink/protocol"
)

// LinkConfig is the on-disk form of core.Config plus the host wiring of
// the transceivers
type LinkConfig struct {
	HopIntervalMs     uint32        `yaml:"hop_interval_ms"`
	FailsafeTimeoutMs uint32        `yaml:"failsafe_timeout_ms"`
	ListenWindowMs    uint32        `yaml:"listen_window_ms"`
	ProbeWindowMs     uint32        `yaml:"probe_window_ms"`
	OutputIntervalMs  uint32        `yaml:"output_interval_ms"`
	RecoveryChannels  []int         `yaml:"recovery_channels"`
	SwapEvery         int           `yaml:"swap_every"`
	SaveNewBind       *bool         `yaml:"save_new_bind"`
	BindAcks          int           `yaml:"bind_acks"`
	Sensors           SensorConfig  `yaml:"sensors"`
	Buddy             BuddyConfig   `yaml:"buddy"`
	Radios            []RadioConfig `yaml:"radios"`
}

type SensorConfig struct {
	GPS  bool `yaml:"gps"`
	Baro bool `yaml:"baro"`
}

type BuddyConfig struct {
	Channel         uint8  `yaml:"channel"`
	QuietChannel    uint8  `yaml:"quiet_channel"`
	SpecialEvery    int    `yaml:"special_every"`
	MaxMisses       int    `yaml:"max_misses"`
	PupilTimeoutMs  uint32 `yaml:"pupil_timeout_ms"`
	ThrottleChannel *int   `yaml:"throttle_channel"`
	ModelID         uint32 `yaml:"model_id"`
}

// RadioConfig names a transceiver and the GPIO line driving its CE pin
type RadioConfig struct {
	Name   string `yaml:"name"`
	Chip   string `yaml:"chip"`
	CELine int    `yaml:"ce_line"`
}

const maxRFChannel = 125

// Load reads and validates a YAML config file
func Load(path string) (*LinkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML, fills defaults and validates
func Parse(data []byte) (*LinkConfig, error) {
	var cfg LinkConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given
func Default() *LinkConfig {
	var cfg LinkConfig
	applyDefaults(&cfg)
	return &cfg
}

// applyDefaults fills in missing values from the core defaults
func applyDefaults(cfg *LinkConfig) {
	def := core.DefaultConfig()

	if cfg.HopIntervalMs == 0 {
		cfg.HopIntervalMs = def.HopInterval
	}
	if cfg.FailsafeTimeoutMs == 0 {
		cfg.FailsafeTimeoutMs = def.FailsafeTimeout
	}
	if cfg.ListenWindowMs == 0 {
		cfg.ListenWindowMs = def.ListenWindow
	}
	if cfg.ProbeWindowMs == 0 {
		cfg.ProbeWindowMs = def.ProbeWindow
	}
	if cfg.OutputIntervalMs == 0 {
		cfg.OutputIntervalMs = def.OutputInterval
	}
	if len(cfg.RecoveryChannels) == 0 {
		for _, ch := range def.RecoveryChannels {
			cfg.RecoveryChannels = append(cfg.RecoveryChannels, int(ch))
		}
	}
	if cfg.SwapEvery == 0 {
		cfg.SwapEvery = def.SwapEvery
	}
	if cfg.SaveNewBind == nil {
		v := def.SaveNewBind
		cfg.SaveNewBind = &v
	}
	if cfg.BindAcks == 0 {
		cfg.BindAcks = def.BindAcks
	}

	b := &cfg.Buddy
	if b.Channel == 0 {
		b.Channel = def.Buddy.Channel
	}
	if b.QuietChannel == 0 {
		b.QuietChannel = def.Buddy.QuietChannel
	}
	if b.SpecialEvery == 0 {
		b.SpecialEvery = def.Buddy.SpecialEvery
	}
	if b.MaxMisses == 0 {
		b.MaxMisses = def.Buddy.MaxMisses
	}
	if b.PupilTimeoutMs == 0 {
		b.PupilTimeoutMs = def.Buddy.PupilTimeout
	}
	if b.ThrottleChannel == nil {
		v := def.Buddy.ThrottleChannel
		b.ThrottleChannel = &v
	}

	for i := range cfg.Radios {
		if cfg.Radios[i].Name == "" {
			cfg.Radios[i].Name = fmt.Sprintf("radio%d", i)
		}
		if cfg.Radios[i].Chip == "" {
			cfg.Radios[i].Chip = "gpiochip0"
		}
	}
}

// Validate rejects values the link cannot run with
func (c *LinkConfig) Validate() error {
	var errs []error
	if c.HopIntervalMs < 10 {
		errs = append(errs, fmt.Errorf("hop_interval_ms %d is below 10", c.HopIntervalMs))
	}
	if c.FailsafeTimeoutMs <= c.HopIntervalMs {
		errs = append(errs, fmt.Errorf("failsafe_timeout_ms %d must exceed hop_interval_ms %d",
			c.FailsafeTimeoutMs, c.HopIntervalMs))
	}
	if c.OutputIntervalMs > c.ListenWindowMs {
		errs = append(errs, fmt.Errorf("output_interval_ms %d must not exceed listen_window_ms %d",
			c.OutputIntervalMs, c.ListenWindowMs))
	}
	for _, ch := range c.RecoveryChannels {
		if ch < 0 || ch > maxRFChannel {
			errs = append(errs, fmt.Errorf("recovery channel %d out of range", ch))
		} else if core.DefaultTable.Contains(uint8(ch)) {
			errs = append(errs, fmt.Errorf("recovery channel %d is in the hop table", ch))
		}
	}
	if c.SwapEvery < 0 {
		errs = append(errs, fmt.Errorf("swap_every %d is negative", c.SwapEvery))
	}
	// the receiver accepts a candidate only after this many sightings
	if c.BindAcks < core.PipeMinMatches+1 {
		errs = append(errs, fmt.Errorf("bind_acks %d must be at least %d", c.BindAcks, core.PipeMinMatches+1))
	}
	if c.Buddy.Channel > maxRFChannel || c.Buddy.QuietChannel > maxRFChannel {
		errs = append(errs, fmt.Errorf("buddy channels %d/%d out of range", c.Buddy.Channel, c.Buddy.QuietChannel))
	}
	if t := *c.Buddy.ThrottleChannel; t < -1 || t >= protocol.LinkChannels {
		errs = append(errs, fmt.Errorf("buddy throttle_channel %d out of range", t))
	}
	if len(c.Radios) > 2 {
		errs = append(errs, fmt.Errorf("at most two radios, got %d", len(c.Radios)))
	}
	return errors.Join(errs...)
}

// Core converts to the engine's config
func (c *LinkConfig) Core() core.Config {
	return core.Config{
		HopInterval:      c.HopIntervalMs,
		FailsafeTimeout:  c.FailsafeTimeoutMs,
		ListenWindow:     c.ListenWindowMs,
		ProbeWindow:      c.ProbeWindowMs,
		OutputInterval:   c.OutputIntervalMs,
		RecoveryChannels: c.recoveryChannels(),
		SwapEvery:        c.SwapEvery,
		SaveNewBind:      *c.SaveNewBind,
		BindAcks:         c.BindAcks,
		Sensors:          core.Sensors{GPS: c.Sensors.GPS, Baro: c.Sensors.Baro},
		Buddy: core.BuddyConfig{
			Channel:         c.Buddy.Channel,
			QuietChannel:    c.Buddy.QuietChannel,
			SpecialEvery:    c.Buddy.SpecialEvery,
			MaxMisses:       c.Buddy.MaxMisses,
			PupilTimeout:    c.Buddy.PupilTimeoutMs,
			ThrottleChannel: *c.Buddy.ThrottleChannel,
			ModelID:         c.Buddy.ModelID,
		},
	}
}

func (c *LinkConfig) recoveryChannels() []uint8 {
	out := make([]uint8, len(c.RecoveryChannels))
	for i, ch := range c.RecoveryChannels {
		out[i] = uint8(ch)
	}
	return out
}
