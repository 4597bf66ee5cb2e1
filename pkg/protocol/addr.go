package protocol

import (
	"fmt"
	"strings"
)

// AddrLen is the length of a hardware address in bytes.
const AddrLen = 6

// HWAddr is a 6-byte link-layer hardware address with value equality.
type HWAddr [AddrLen]byte

// Broadcast is the all-ones address every node listens on.
var Broadcast = HWAddr{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// ParseHWAddr parses "aa:bb:cc:dd:ee:ff" (case-insensitive, ':' or '-').
func ParseHWAddr(s string) (HWAddr, error) {
	var a HWAddr
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ':' || r == '-' })
	if len(parts) != AddrLen {
		return a, fmt.Errorf("hwaddr %q: want %d octets, got %d", s, AddrLen, len(parts))
	}
	for i, p := range parts {
		var b byte
		if _, err := fmt.Sscanf(p, "%02x", &b); err != nil || len(p) != 2 {
			return HWAddr{}, fmt.Errorf("hwaddr %q: bad octet %q", s, p)
		}
		a[i] = b
	}
	return a, nil
}

func (a HWAddr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", a[0], a[1], a[2], a[3], a[4], a[5])
}

// IsBroadcast reports whether a is the all-ones broadcast address.
func (a HWAddr) IsBroadcast() bool { return a == Broadcast }

// IsZero reports whether a is the all-zero (unset) address.
func (a HWAddr) IsZero() bool { return a == HWAddr{} }
