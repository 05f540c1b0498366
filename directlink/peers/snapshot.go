package peers

import (
	"slices"

	"github.com/LukaGiorgadze/gonull"
	"github.com/edup2p/directlink/types/hwaddr"
	"github.com/edup2p/directlink/types/link"
)

// Snapshot is an immutable copy of a Record, safe to hand outside the link manager.
type Snapshot struct {
	ID   int           `bson:"id" json:"id"`
	Addr hwaddr.HWAddr `bson:"addr" json:"addr"`

	Capability     link.Capability     `bson:"capability" json:"capability"`
	Status         link.Status         `bson:"status" json:"status"`
	Reason         link.Reason         `bson:"reason" json:"reason"`
	TeardownReason link.TeardownReason `bson:"teardown_reason" json:"teardown_reason"`

	RSSI gonull.Nullable[int] `bson:"rssi" json:"rssi"`

	Responder          bool    `bson:"responder" json:"responder"`
	SupportedChannels  []uint8 `bson:"channels,omitempty" json:"channels,omitempty"`
	SupportedOpClasses []uint8 `bson:"op_classes,omitempty" json:"op_classes,omitempty"`
	SpatialStreams     uint8   `bson:"spatial_streams" json:"spatial_streams"`

	DiscoveryAttempts int  `bson:"discovery_attempts" json:"discovery_attempts"`
	Forced            bool `bson:"forced" json:"forced"`

	// Only set for forced peers.
	OffChannel        gonull.Nullable[uint8] `bson:"off_channel" json:"off_channel"`
	OffChannelOpClass gonull.Nullable[uint8] `bson:"off_channel_op_class" json:"off_channel_op_class"`
}

func (r *Record) Snapshot() Snapshot {
	s := Snapshot{
		ID:                 r.handle.ID(),
		Addr:               r.Addr,
		Capability:         r.Capability,
		Status:             r.Status,
		Reason:             r.Reason,
		TeardownReason:     r.TeardownReason,
		Responder:          r.Responder,
		SupportedChannels:  slices.Clone(r.SupportedChannels),
		SupportedOpClasses: slices.Clone(r.SupportedOpClasses),
		SpatialStreams:     r.SpatialStreams,
		DiscoveryAttempts:  r.DiscoveryAttempts,
		Forced:             r.Forced,
	}

	if r.HasRSSI {
		s.RSSI = gonull.NewNullable(r.RSSI)
	}
	if r.Forced {
		s.OffChannel = gonull.NewNullable(r.OffChannel)
		s.OffChannelOpClass = gonull.NewNullable(r.OffChannelOpClass)
	}

	return s
}

// Snapshots returns a snapshot of every record, in slot order.
func (r *Registry) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, r.Count())
	r.Each(func(rec *Record) {
		out = append(out, rec.Snapshot())
	})
	return out
}
