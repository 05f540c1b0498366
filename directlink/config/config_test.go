package config

import (
	"testing"
	"time"

	"github.com/LukaGiorgadze/gonull"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()

	require.NoError(t, c.Validate())

	assert.Equal(t, 2*time.Second, c.TxPeriod)
	assert.Equal(t, uint32(40), c.TriggerPackets)
	assert.Equal(t, -75, c.RSSITrigger)
	assert.Equal(t, -20, c.RSSIDelta)
	assert.Equal(t, 8, c.TrackerCapacity)
	assert.Equal(t, 256, c.MaxPeers)

	assert.Equal(t, time.Second, c.DiscoveryTimeout())
	assert.Equal(t, 3, c.IdlePeriods(), "5s idle timeout over 2s periods rounds up")
}

func TestZeroSettingsSurviveDefaults(t *testing.T) {
	c := Default()
	c.IdlePackets = 0
	c.RSSITrigger = 0
	c.RSSITeardown = 0
	c.RSSIDelta = 0
	c.MaxScanSchedules = 0

	c.SetDefaults()
	require.NoError(t, c.Validate())

	assert.Zero(t, c.IdlePackets)
	assert.Zero(t, c.RSSITrigger)
	assert.Zero(t, c.RSSITeardown)
	assert.Zero(t, c.RSSIDelta)
	assert.Zero(t, c.MaxScanSchedules)

	// Fields where zero is out of range still get filled in.
	c.TxPeriod = 0
	c.MaxPeers = 0
	c.SetDefaults()
	assert.Equal(t, DefaultTxPeriod, c.TxPeriod)
	assert.Equal(t, DefaultMaxPeers, c.MaxPeers)
}

func TestDiscoveryTimeoutFloor(t *testing.T) {
	c := Default()
	c.TxPeriod = time.Second

	assert.Equal(t, minDiscoveryTimeout, c.DiscoveryTimeout())
}

func TestValidate(t *testing.T) {
	for name, mut := range map[string]func(c *Config){
		"short tx period":   func(c *Config) { c.TxPeriod = 10 * time.Millisecond },
		"long idle timeout": func(c *Config) { c.IdleTimeout = time.Minute },
		"positive rssi":     func(c *Config) { c.RSSITrigger = 3 },
		"deep rssi delta":   func(c *Config) { c.RSSIDelta = -31 },
		"many attempts":     func(c *Config) { c.MaxDiscoveryAttempts = 101 },
		"off-channel":       func(c *Config) { c.PreferredOffChannel = 200 },
		"no tracker":        func(c *Config) { c.TrackerCapacity = 0 },
	} {
		c := Default()
		mut(&c)
		assert.Error(t, c.Validate(), name)
	}
}

func TestApply(t *testing.T) {
	c := Default()

	n, err := c.Apply(ThresholdUpdate{
		TriggerPackets: gonull.NewNullable[uint32](10),
		RSSITeardown:   gonull.NewNullable(-80),
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(10), n.TriggerPackets)
	assert.Equal(t, -80, n.RSSITeardown)
	assert.Equal(t, c.RSSITrigger, n.RSSITrigger, "absent fields are left alone")
	assert.Equal(t, uint32(40), c.TriggerPackets, "receiver is not mutated")

	_, err = c.Apply(ThresholdUpdate{RSSIDelta: gonull.NewNullable(5)})
	assert.Error(t, err)
}

func TestIsDFSChannel(t *testing.T) {
	assert.False(t, IsDFSChannel(36))
	assert.True(t, IsDFSChannel(52))
	assert.True(t, IsDFSChannel(144))
	assert.False(t, IsDFSChannel(149))
}
