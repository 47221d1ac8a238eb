package model

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the byte length of an account address
const AddressLength = 20

// Address identifies an account: a player, a pool escrow, the factory or the token
type Address [AddressLength]byte

// ZeroAddress is the empty address, used where no account applies (e.g. no winner)
var ZeroAddress Address

// ParseAddress parses a 0x-prefixed (or bare) 40 character hex string
func ParseAddress(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(s) != AddressLength*2 {
		return a, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	copy(a[:], b)
	return a, nil
}

// MustParseAddress parses an address and panics on failure. Intended for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromBytes takes the trailing 20 bytes of b (keccak-derived addresses)
func AddressFromBytes(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// String returns the lower-case 0x-prefixed hex form
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether a is the zero address
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// NonceLength is the byte length of a reaction claim nonce
const NonceLength = 32

// Nonce is a one-time token binding a reaction claim
type Nonce [NonceLength]byte

// ParseNonce parses a 0x-prefixed (or bare) 64 character hex string
func ParseNonce(s string) (Nonce, error) {
	var n Nonce
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if len(s) != NonceLength*2 {
		return n, fmt.Errorf("%w: nonce must be 32 bytes", ErrInvalidNonce)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return n, fmt.Errorf("%w: %v", ErrInvalidNonce, err)
	}
	copy(n[:], b)
	return n, nil
}

func (n Nonce) String() string {
	return "0x" + hex.EncodeToString(n[:])
}

func (n Nonce) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

func (n *Nonce) UnmarshalText(text []byte) error {
	parsed, err := ParseNonce(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
