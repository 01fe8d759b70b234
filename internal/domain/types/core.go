package types

import (
	"encoding/hex"
	"errors"
	"strings"
)

// AddressLength is the size of an account address in bytes.
const AddressLength = 20

// ErrInvalidAddress is returned when an address is not 20 hex-encoded bytes.
var ErrInvalidAddress = errors.New("invalid account address")

// Address identifies a ledger account (and therefore a chat user).
// Addresses compare case-insensitively because they are stored as raw bytes.
type Address [AddressLength]byte

// ParseAddress decodes a 0x-prefixed or bare 40 digit hex address.
func ParseAddress(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(s) != 2*AddressLength {
		return a, ErrInvalidAddress
	}
	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return a, ErrInvalidAddress
	}
	return a, nil
}

// MustAddress is ParseAddress for constants and tests.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the lowercase 0x-prefixed form.
func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

// Short returns an abbreviated form for display, e.g. 0x1234...abcd.
func (a Address) Short() string {
	s := a.String()
	return s[:6] + "..." + s[len(s)-4:]
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool { return a == Address{} }

// Slice returns the address as a []byte.
func (a Address) Slice() []byte { return a[:] }

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(b []byte) error {
	parsed, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
