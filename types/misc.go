package types

// Contains miscellaneous functions and types

import (
	"log/slog"
	"slices"

	"golang.org/x/exp/maps"
)

const LevelTrace slog.Level = -8

// SortedKeysFunc returns the keys of m sorted by compare, for places where iteration order ends up in output.
func SortedKeysFunc[K comparable, V any](m map[K]V, compare func(a, b K) int) []K {
	keys := maps.Keys(m)
	slices.SortFunc(keys, compare)
	return keys
}
