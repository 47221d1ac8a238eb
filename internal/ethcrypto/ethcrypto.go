// Package ethcrypto holds the Ethereum-compatible primitives shared by the
// verifier, wallet login and pool address derivation: keccak256, EIP-191
// personal message digests and secp256k1 recoverable signatures.
package ethcrypto

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"

	"github.com/mcoot/reflexpool/internal/model"
)

// SignatureLength is the size of an r ‖ s ‖ v signature
const SignatureLength = 65

// compactRecoveryBase is the header byte offset decred uses for uncompressed keys
const compactRecoveryBase = 27

var ErrInvalidPrivateKey = errors.New("invalid private key")

// Keccak256 hashes the concatenation of data with legacy Keccak (not SHA3-256)
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// Uint256 encodes v as a 32 byte big-endian word
func Uint256(v uint64) []byte {
	word := make([]byte, 32)
	binary.BigEndian.PutUint64(word[24:], v)
	return word
}

// PersonalMessageHash returns the EIP-191 digest wallets sign for personal_sign:
// keccak256("\x19Ethereum Signed Message:\n" ‖ len(msg) ‖ msg)
func PersonalMessageHash(msg []byte) []byte {
	prefix := "\x19Ethereum Signed Message:\n" + strconv.Itoa(len(msg))
	return Keccak256([]byte(prefix), msg)
}

// PubkeyToAddress derives the account address of a public key
func PubkeyToAddress(pub *secp256k1.PublicKey) model.Address {
	uncompressed := pub.SerializeUncompressed()
	return model.AddressFromBytes(Keccak256(uncompressed[1:]))
}

// Recover returns the address that produced sig over digest. sig is r ‖ s ‖ v
// with v in {0, 1, 27, 28}.
func Recover(digest, sig []byte) (model.Address, error) {
	if len(sig) != SignatureLength {
		return model.ZeroAddress, fmt.Errorf("%w: signature must be %d bytes", model.ErrInvalidSignature, SignatureLength)
	}
	v := sig[64]
	if v >= compactRecoveryBase {
		v -= compactRecoveryBase
	}
	if v > 1 {
		return model.ZeroAddress, fmt.Errorf("%w: bad recovery id %d", model.ErrInvalidSignature, sig[64])
	}

	compact := make([]byte, SignatureLength)
	compact[0] = compactRecoveryBase + v
	copy(compact[1:], sig[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, digest)
	if err != nil {
		return model.ZeroAddress, fmt.Errorf("%w: %v", model.ErrInvalidSignature, err)
	}
	return PubkeyToAddress(pub), nil
}

// Sign produces an r ‖ s ‖ v signature (v = 27 or 28) over digest
func Sign(key *secp256k1.PrivateKey, digest []byte) []byte {
	compact := ecdsa.SignCompact(key, digest, false)
	sig := make([]byte, SignatureLength)
	copy(sig, compact[1:])
	sig[64] = compact[0]
	return sig
}

// ParsePrivateKey parses a 32 byte hex private key, with or without 0x
func ParsePrivateKey(s string) (*secp256k1.PrivateKey, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return nil, ErrInvalidPrivateKey
	}
	return secp256k1.PrivKeyFromBytes(b), nil
}

// DecodeSignature parses a 0x-prefixed hex signature
func DecodeSignature(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil || len(b) != SignatureLength {
		return nil, fmt.Errorf("%w: malformed signature", model.ErrInvalidSignature)
	}
	return b, nil
}

// EncodeSignature renders a signature as 0x-prefixed hex
func EncodeSignature(sig []byte) string {
	return "0x" + hex.EncodeToString(sig)
}
