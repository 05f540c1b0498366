package link

import "fmt"

// Mode is the administrative support mode of a Context.
type Mode byte

const (
	ModeNotEnabled Mode = iota
	ModeDisabled
	ModeExplicitTriggerOnly
	ModeEnabled
	ModeExternalControl
)

var modeNames = [...]string{"not-enabled", "disabled", "explicit", "enabled", "external"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// ParseMode accepts the names String produces.
func ParseMode(s string) (Mode, error) {
	for i, n := range modeNames {
		if n == s {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// Active reports whether direct links can exist at all in this mode.
func (m Mode) Active() bool {
	return m == ModeExplicitTriggerOnly || m == ModeEnabled || m == ModeExternalControl
}

// Implicit reports whether traffic heuristics may start links in this mode.
func (m Mode) Implicit() bool {
	return m == ModeEnabled || m == ModeExternalControl
}
