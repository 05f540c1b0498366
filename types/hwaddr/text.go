package hwaddr

import (
	"errors"
	"fmt"

	"go4.org/mem"
)

const hexDigits = "0123456789abcdef"

func appendColonHex(dst []byte, src []byte) []byte {
	for i, b := range src {
		if i > 0 {
			dst = append(dst, ':')
		}
		dst = append(dst, hexDigits[b>>4], hexDigits[b&0x0f])
	}
	return dst
}

var errBadHex = errors.New("invalid hex character in hardware address")

// parseAddr decodes in into out, which must be Len bytes.
func parseAddr(out []byte, in mem.RO) error {
	in = mem.TrimSpace(in)

	switch in.Len() {
	case len(out) * 2:
		for i := range out {
			b, err := hexByte(in.At(i*2), in.At(i*2+1))
			if err != nil {
				return err
			}
			out[i] = b
		}
		return nil
	case len(out)*3 - 1:
		sep := in.At(2)
		if sep != ':' && sep != '-' {
			return fmt.Errorf("unexpected separator %q in hardware address", sep)
		}
		for i := range out {
			if i > 0 && in.At(i*3-1) != sep {
				return errors.New("inconsistent separators in hardware address")
			}
			b, err := hexByte(in.At(i*3), in.At(i*3+1))
			if err != nil {
				return err
			}
			out[i] = b
		}
		return nil
	default:
		return fmt.Errorf("hardware address has the wrong size, got %d characters", in.Len())
	}
}

func hexByte(hi, lo byte) (byte, error) {
	a, ok1 := fromHexChar(hi)
	b, ok2 := fromHexChar(lo)
	if !ok1 || !ok2 {
		return 0, errBadHex
	}
	return a<<4 | b, nil
}

// fromHexChar converts a hex character into its value and a success flag.
func fromHexChar(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}

	return 0, false
}
