package ethcrypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/reflexpool/internal/model"
)

// The first development account of a local hardhat node
const (
	hardhatKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	hardhatAddress = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
)

func TestKeccak256EmptyInput(t *testing.T) {
	assert.Equal(t,
		"c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		hex.EncodeToString(Keccak256()))
}

func TestUint256(t *testing.T) {
	word := Uint256(0x0102)
	require.Len(t, word, 32)
	assert.Equal(t, byte(0x01), word[30])
	assert.Equal(t, byte(0x02), word[31])
	assert.Equal(t, make([]byte, 30), word[:30])
}

func TestPubkeyToAddress(t *testing.T) {
	key, err := ParsePrivateKey(hardhatKey)
	require.NoError(t, err)
	assert.Equal(t, hardhatAddress, PubkeyToAddress(key.PubKey()).String())
}

func TestSignRecoverRoundTrip(t *testing.T) {
	key, err := ParsePrivateKey(hardhatKey)
	require.NoError(t, err)
	digest := PersonalMessageHash([]byte("hello"))

	sig := Sign(key, digest)
	require.Len(t, sig, SignatureLength)
	assert.Contains(t, []byte{27, 28}, sig[64])

	addr, err := Recover(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, hardhatAddress, addr.String())

	// v may also be given as a bare recovery id
	raw := append([]byte(nil), sig...)
	raw[64] -= 27
	addr, err = Recover(digest, raw)
	require.NoError(t, err)
	assert.Equal(t, hardhatAddress, addr.String())
}

func TestRecoverOtherDigestGivesOtherAddress(t *testing.T) {
	key, err := ParsePrivateKey(hardhatKey)
	require.NoError(t, err)
	sig := Sign(key, PersonalMessageHash([]byte("hello")))

	addr, err := Recover(PersonalMessageHash([]byte("goodbye")), sig)
	if err == nil {
		assert.NotEqual(t, hardhatAddress, addr.String())
	} else {
		assert.ErrorIs(t, err, model.ErrInvalidSignature)
	}
}

func TestRecoverRejectsMalformed(t *testing.T) {
	digest := PersonalMessageHash([]byte("hello"))

	_, err := Recover(digest, make([]byte, 64))
	assert.ErrorIs(t, err, model.ErrInvalidSignature)

	sig := make([]byte, SignatureLength)
	sig[64] = 30
	_, err = Recover(digest, sig)
	assert.ErrorIs(t, err, model.ErrInvalidSignature)
}

func TestSignatureHexRoundTrip(t *testing.T) {
	key, err := ParsePrivateKey(hardhatKey)
	require.NoError(t, err)
	sig := Sign(key, Keccak256([]byte("x")))

	decoded, err := DecodeSignature(EncodeSignature(sig))
	require.NoError(t, err)
	assert.Equal(t, sig, decoded)

	_, err = DecodeSignature("0x1234")
	assert.ErrorIs(t, err, model.ErrInvalidSignature)
}

func TestParsePrivateKeyRejectsGarbage(t *testing.T) {
	_, err := ParsePrivateKey("0xnothex")
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)
	_, err = ParsePrivateKey("0x01")
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)
}
