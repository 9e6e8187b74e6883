// linksim runs a transmitter and receiver over the simulated medium and
// reports how the link rode out the scripted outages.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"hoplink/config"
	"hoplink/core"
	"hoplink/host/gpio"
	"hoplink/radio/sim/scenario"
)

var (
	configPath = pflag.StringP("config", "c", "", "Link config (YAML); defaults when empty")
	duration   = pflag.Uint32P("duration", "t", 10000, "Simulated run time in ms")
	outages    = pflag.StringArrayP("outage", "o", nil, "Blackout as start+length ms; repeatable")
	bind       = pflag.Bool("bind", false, "Start unbound and bind over the air")
	secondary  = pflag.Bool("secondary", false, "Give the receiver a second transceiver")
	useGPIO    = pflag.Bool("gpio", false, "Mirror CE onto the GPIO lines named in the config")
	dump       = pflag.Bool("dump", true, "Dump both event rings at the end")
	verbose    = pflag.BoolP("verbose", "v", false, "Debug logging")
)

func main() {
	pflag.Parse()
	os.Exit(run())
}

// run returns the exit code so deferred closes happen before the process
// exits: 1 on a setup or run error, 2 when the receiver ends disconnected
func run() int {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "linksim"})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			logger.Error("config", "err", err)
			return 1
		}
	}

	sc := scenario.Scenario{
		Config:    cfg.Core(),
		Duration:  *duration,
		Bind:      *bind,
		Secondary: *secondary,
		Log:       logger,
	}
	for _, s := range *outages {
		o, err := scenario.ParseOutage(s)
		if err != nil {
			logger.Error("outage", "err", err)
			return 1
		}
		sc.Outages = append(sc.Outages, o)
	}

	if *useGPIO {
		for _, rc := range cfg.Radios {
			line, err := gpio.Open(rc.Chip, rc.CELine)
			if err != nil {
				logger.Error("ce line", "radio", rc.Name, "err", err)
				return 1
			}
			defer line.Close()
			sc.CE = append(sc.CE, line)
			logger.Info("ce line", "radio", rc.Name, "chip", rc.Chip, "offset", rc.CELine)
		}
	}

	res, err := scenario.Run(sc)
	if err != nil {
		logger.Error("run failed", "err", err)
		return 1
	}

	if *dump {
		fmt.Println("receiver:")
		res.RxEvents.Dump(func(s string) { fmt.Println(s) })
		fmt.Println("transmitter:")
		res.TxEvents.Dump(func(s string) { fmt.Println(s) })
	}

	st := res.Stats
	logger.Info("receiver", "state", res.RxState, "pipe", res.Pipe,
		"packets", st.Packets, "hops", st.Hops, "reconnects", st.Reconnects,
		"failsafes", st.Failsafes, "radio", st.ActiveRadio,
		"radio0_s", st.RadioSeconds[0], "radio1_s", st.RadioSeconds[1])
	logger.Info("output", "frames", res.Frames, "failsafe_frames", res.FailsafeFrames)
	logger.Info("transmitter", "state", res.TxState, "telemetry_updates", res.Telemetry.Table.Updates())
	logger.Info("medium", "sent", res.Medium.Sent, "delivered", res.Medium.Delivered, "acked", res.Medium.Acked)
	if *bind {
		logger.Info("bind", "saves", res.BindSaves)
	}

	if res.RxState != core.Connected {
		return 2
	}
	return 0
}
