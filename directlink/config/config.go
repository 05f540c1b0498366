package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/edup2p/directlink/types/link"
)

const (
	DefaultTxPeriod             = 2 * time.Second
	DefaultTriggerPackets       = 40
	DefaultIdleTimeout          = 5 * time.Second
	DefaultIdlePackets          = 3
	DefaultRSSITrigger          = -75
	DefaultRSSITeardown         = -75
	DefaultRSSIDelta            = -20
	DefaultMaxDiscoveryAttempts = 5
	DefaultPreferredOffChannel  = 36
	DefaultOffChannelOpClass    = 115
	DefaultOperatingChannel     = 6
	DefaultMaxPeers             = 256
	DefaultTrackerCapacity      = 8
	DefaultTrackerAgeOut        = 30 * time.Minute
	DefaultMaxScanRejects       = 5
	DefaultMaxScanSchedules     = 10
	DefaultScanDelayPerLink     = 100 * time.Millisecond
	DefaultMaxLinks             = 4
	DefaultNegotiationTimeout   = 10 * time.Second
	DefaultTeardownAckTimeout   = 5 * time.Second

	// discoveryResponseMargin is taken off the tx period to get the discovery timeout,
	// so the verdict is in before the next sampling pass.
	discoveryResponseMargin = time.Second
	minDiscoveryTimeout     = 200 * time.Millisecond
)

// Config holds the per-interface thresholds and limits.
type Config struct {
	Mode link.Mode

	// Sampling period of the connection tracker.
	TxPeriod time.Duration
	// Packets per period above which a peer becomes a discovery candidate.
	TriggerPackets uint32
	// Packets per period below which a connected peer counts as idle.
	IdlePackets uint32
	IdleTimeout time.Duration

	RSSITrigger  int
	RSSITeardown int
	// RSSIDelta is the (negative) drop between two samples that must accompany a
	// reading below RSSITeardown before it counts.
	RSSIDelta int

	MaxDiscoveryAttempts int

	OperatingChannel    uint8
	OffChannelEnabled   bool
	PreferredOffChannel uint8
	OffChannelOpClass   uint8

	MaxPeers        int
	TrackerCapacity int
	TrackerAgeOut   time.Duration
	MaxLinks        int

	MaxScanRejects   int
	MaxScanSchedules int
	ScanDelayPerLink time.Duration
	// ScanWithLinks keeps links up while scanning.
	ScanWithLinks bool
	// SleepSTACapable lets a single buffer-STA link survive a scan.
	SleepSTACapable bool

	NegotiationTimeout time.Duration
	TeardownAckTimeout time.Duration
}

// Default returns a config with every field at its default.
func Default() Config {
	c := Config{
		Mode:             link.ModeEnabled,
		IdlePackets:      DefaultIdlePackets,
		RSSITrigger:      DefaultRSSITrigger,
		RSSITeardown:     DefaultRSSITeardown,
		RSSIDelta:        DefaultRSSIDelta,
		MaxScanSchedules: DefaultMaxScanSchedules,
	}
	c.SetDefaults()
	return c
}

// SetDefaults sets default values for unset configuration fields.
//
// Zero is a valid setting for IdlePackets, RSSITrigger, RSSITeardown, RSSIDelta and
// MaxScanSchedules, so those are left as they are; start from Default to get theirs.
func (c *Config) SetDefaults() {
	if c.TxPeriod <= 0 {
		c.TxPeriod = DefaultTxPeriod
	}
	if c.TriggerPackets == 0 {
		c.TriggerPackets = DefaultTriggerPackets
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.MaxDiscoveryAttempts <= 0 {
		c.MaxDiscoveryAttempts = DefaultMaxDiscoveryAttempts
	}
	if c.OperatingChannel == 0 {
		c.OperatingChannel = DefaultOperatingChannel
	}
	if c.PreferredOffChannel == 0 {
		c.PreferredOffChannel = DefaultPreferredOffChannel
	}
	if c.OffChannelOpClass == 0 {
		c.OffChannelOpClass = DefaultOffChannelOpClass
	}
	if c.MaxPeers <= 0 {
		c.MaxPeers = DefaultMaxPeers
	}
	if c.TrackerCapacity <= 0 {
		c.TrackerCapacity = DefaultTrackerCapacity
	}
	if c.TrackerAgeOut <= 0 {
		c.TrackerAgeOut = DefaultTrackerAgeOut
	}
	if c.MaxLinks <= 0 {
		c.MaxLinks = DefaultMaxLinks
	}
	if c.MaxScanRejects <= 0 {
		c.MaxScanRejects = DefaultMaxScanRejects
	}
	if c.ScanDelayPerLink <= 0 {
		c.ScanDelayPerLink = DefaultScanDelayPerLink
	}
	if c.NegotiationTimeout <= 0 {
		c.NegotiationTimeout = DefaultNegotiationTimeout
	}
	if c.TeardownAckTimeout <= 0 {
		c.TeardownAckTimeout = DefaultTeardownAckTimeout
	}
}

// Validate checks every field against its permitted range.
func (c *Config) Validate() error {
	if c.Mode > link.ModeExternalControl {
		return fmt.Errorf("unknown mode %d", c.Mode)
	}
	if c.TxPeriod < time.Second {
		return fmt.Errorf("tx period %s is below 1s", c.TxPeriod)
	}
	if c.TriggerPackets == 0 {
		return errors.New("trigger packet threshold cannot be zero")
	}
	if c.IdleTimeout < 500*time.Millisecond || c.IdleTimeout > 40*time.Second {
		return fmt.Errorf("idle timeout %s outside 500ms..40s", c.IdleTimeout)
	}
	if c.IdlePackets > 40000 {
		return fmt.Errorf("idle packet threshold %d above 40000", c.IdlePackets)
	}
	if err := checkRange("rssi trigger threshold", c.RSSITrigger, -120, 0); err != nil {
		return err
	}
	if err := checkRange("rssi teardown threshold", c.RSSITeardown, -120, 0); err != nil {
		return err
	}
	if err := checkRange("rssi delta", c.RSSIDelta, -30, 0); err != nil {
		return err
	}
	if err := checkRange("max discovery attempts", c.MaxDiscoveryAttempts, 1, 100); err != nil {
		return err
	}
	if err := checkRange("preferred off-channel", int(c.PreferredOffChannel), 1, 165); err != nil {
		return err
	}
	if c.MaxPeers < 1 || c.TrackerCapacity < 1 || c.MaxLinks < 1 {
		return errors.New("table capacities must be at least 1")
	}
	if c.MaxScanRejects < 1 {
		return errors.New("max scan rejects must be at least 1")
	}
	if c.MaxScanSchedules < 0 {
		return errors.New("max scan schedules cannot be negative")
	}
	if c.TrackerAgeOut <= 0 || c.ScanDelayPerLink <= 0 || c.NegotiationTimeout <= 0 || c.TeardownAckTimeout <= 0 {
		return errors.New("durations must be positive")
	}
	return nil
}

func checkRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s %d outside %d..%d", name, v, lo, hi)
	}
	return nil
}

// DiscoveryTimeout is how long a discovery request waits for its response.
func (c *Config) DiscoveryTimeout() time.Duration {
	return max(c.TxPeriod-discoveryResponseMargin, minDiscoveryTimeout)
}

// IdlePeriods is the number of consecutive idle sampling periods that make a connected peer idle.
func (c *Config) IdlePeriods() int {
	n := int((c.IdleTimeout + c.TxPeriod - 1) / c.TxPeriod)
	return max(n, 1)
}

// IsDFSChannel reports whether a 5GHz channel requires radar detection, and so can't be an off-channel.
func IsDFSChannel(ch uint8) bool {
	return ch >= 52 && ch <= 144
}
