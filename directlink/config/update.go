package config

import (
	"time"

	"github.com/LukaGiorgadze/gonull"
)

// ThresholdUpdate is a partial update of the runtime-tunable thresholds;
// only the present fields are applied.
type ThresholdUpdate struct {
	TxPeriod       gonull.Nullable[time.Duration]
	TriggerPackets gonull.Nullable[uint32]
	IdleTimeout    gonull.Nullable[time.Duration]
	IdlePackets    gonull.Nullable[uint32]
	RSSITrigger    gonull.Nullable[int]
	RSSITeardown   gonull.Nullable[int]
	RSSIDelta      gonull.Nullable[int]
}

// Apply returns a copy of c with u applied, validated.
func (c Config) Apply(u ThresholdUpdate) (Config, error) {
	if u.TxPeriod.Valid {
		c.TxPeriod = u.TxPeriod.Val
	}
	if u.TriggerPackets.Valid {
		c.TriggerPackets = u.TriggerPackets.Val
	}
	if u.IdleTimeout.Valid {
		c.IdleTimeout = u.IdleTimeout.Val
	}
	if u.IdlePackets.Valid {
		c.IdlePackets = u.IdlePackets.Val
	}
	if u.RSSITrigger.Valid {
		c.RSSITrigger = u.RSSITrigger.Val
	}
	if u.RSSITeardown.Valid {
		c.RSSITeardown = u.RSSITeardown.Val
	}
	if u.RSSIDelta.Valid {
		c.RSSIDelta = u.RSSIDelta.Val
	}

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}
