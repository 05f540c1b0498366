package hwaddr

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"net"

	"go4.org/mem"
)

const Len = 6

// HWAddr is a 6-byte station hardware address.
//
// It is a value type, and can be used as a map key.
type HWAddr [Len]byte

var Broadcast = HWAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// Parse parses the text forms accepted by UnmarshalText.
func Parse(s string) (HWAddr, error) {
	var h HWAddr
	err := parseAddr(h[:], mem.S(s))
	return h, err
}

// MustParse is Parse, but panics on error. Meant for tests and constants.
func MustParse(s string) HWAddr {
	h, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return h
}

// FromNet converts a net.HardwareAddr, which must be 6 bytes long.
func FromNet(n net.HardwareAddr) (HWAddr, error) {
	var h HWAddr
	if len(n) != Len {
		return h, fmt.Errorf("hardware address has wrong length %d, want %d", len(n), Len)
	}
	copy(h[:], n)
	return h, nil
}

func (h HWAddr) Net() net.HardwareAddr {
	return net.HardwareAddr(h[:])
}

func (h HWAddr) Debug() string {
	return fmt.Sprintf("%x", h[:])
}

func (h HWAddr) HexString() string {
	return hex.EncodeToString(h[:])
}

func (h HWAddr) String() string {
	b, _ := h.AppendText(nil)
	return string(b)
}

func (h HWAddr) IsZero() bool {
	return h == HWAddr{}
}

func (h HWAddr) IsMulticast() bool {
	return h[0]&0x01 != 0
}

// Hash is the XOR of all address bytes, used to spread addresses over buckets.
func (h HWAddr) Hash() uint8 {
	var x uint8
	for _, b := range h {
		x ^= b
	}
	return x
}

// Compare orders addresses bytewise.
func (h HWAddr) Compare(o HWAddr) int {
	return bytes.Compare(h[:], o[:])
}

// AppendText implements encoding.TextAppender. It appends the colon-separated
// lower-case hex representation of h to b.
func (h HWAddr) AppendText(b []byte) ([]byte, error) {
	return appendColonHex(b, h[:]), nil
}

// MarshalText implements encoding.TextMarshaler.
func (h HWAddr) MarshalText() ([]byte, error) {
	return h.AppendText(nil)
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts colon- or
// dash-separated hex, or 12 bare hex digits.
func (h *HWAddr) UnmarshalText(b []byte) error {
	return parseAddr(h[:], mem.B(b))
}
