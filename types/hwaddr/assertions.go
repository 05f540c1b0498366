package hwaddr

import (
	"encoding"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	// Addresses travel as text in logs, the shell, and JSON.
	_ encoding.TextMarshaler   = HWAddr{}
	_ encoding.TextUnmarshaler = &HWAddr{}

	// Peer snapshot dumps.
	_ bson.ValueMarshaler   = HWAddr{}
	_ bson.ValueUnmarshaler = &HWAddr{}
)
