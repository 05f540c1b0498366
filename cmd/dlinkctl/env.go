package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/edup2p/directlink/directlink"
	"github.com/edup2p/directlink/types/link"
	"github.com/joho/godotenv"
)

type settings struct {
	iface       string
	metricsAddr string
	cfg         directlink.Config
}

// loadSettings reads, in order of increasing precedence: defaults, a .env file, the
// environment, and flags.
func loadSettings(args []string) (*settings, error) {
	fs := flag.NewFlagSet("dlinkctl", flag.ContinueOnError)

	envFile := fs.String("env", ".env", "environment file to load, if present")
	iface := fs.String("iface", "", "interface name, for logs and metrics (DLINK_IFACE)")
	metricsAddr := fs.String("metrics", "", "address to serve prometheus metrics on (DLINK_METRICS_ADDR)")
	mode := fs.String("mode", "", "support mode: not-enabled, disabled, explicit, enabled, external (DLINK_MODE)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load doesn't overwrite variables that are already set.
	if err := godotenv.Load(*envFile); err == nil {
		slog.Info("loaded environment", "file", *envFile)
	} else if !os.IsNotExist(err) {
		slog.Warn("could not load environment file", "file", *envFile, "err", err)
	}

	s := &settings{
		iface:       envOr("DLINK_IFACE", "wlan0"),
		metricsAddr: os.Getenv("DLINK_METRICS_ADDR"),
		cfg:         directlink.DefaultConfig(),
	}

	if err := applyEnv(&s.cfg); err != nil {
		return nil, err
	}

	if *iface != "" {
		s.iface = *iface
	}
	if *metricsAddr != "" {
		s.metricsAddr = *metricsAddr
	}
	if *mode != "" {
		m, err := link.ParseMode(*mode)
		if err != nil {
			return nil, err
		}
		s.cfg.Mode = m
	}

	return s, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func applyEnv(c *directlink.Config) error {
	if v, ok := os.LookupEnv("DLINK_MODE"); ok {
		m, err := link.ParseMode(v)
		if err != nil {
			return fmt.Errorf("DLINK_MODE: %w", err)
		}
		c.Mode = m
	}

	durations := map[string]*time.Duration{
		"DLINK_TX_PERIOD":           &c.TxPeriod,
		"DLINK_IDLE_TIMEOUT":        &c.IdleTimeout,
		"DLINK_NEGOTIATION_TIMEOUT": &c.NegotiationTimeout,
	}
	for key, dst := range durations {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}

	ints := map[string]*int{
		"DLINK_RSSI_TRIGGER":   &c.RSSITrigger,
		"DLINK_RSSI_TEARDOWN":  &c.RSSITeardown,
		"DLINK_RSSI_DELTA":     &c.RSSIDelta,
		"DLINK_MAX_PEERS":      &c.MaxPeers,
		"DLINK_MAX_LINKS":      &c.MaxLinks,
		"DLINK_MAX_DISCOVERY":  &c.MaxDiscoveryAttempts,
		"DLINK_TRACKER_SLOTS":  &c.TrackerCapacity,
		"DLINK_MAX_SCAN_DEFER": &c.MaxScanSchedules,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}

	if v, ok := os.LookupEnv("DLINK_TRIGGER_PACKETS"); ok {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("DLINK_TRIGGER_PACKETS: %w", err)
		}
		c.TriggerPackets = uint32(n)
	}

	if v, ok := os.LookupEnv("DLINK_OFF_CHANNEL"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DLINK_OFF_CHANNEL: %w", err)
		}
		c.OffChannelEnabled = b
	}

	return nil
}
