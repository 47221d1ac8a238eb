package model

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	require.NoError(t, err)
	assert.Equal(t, "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913", a.String())

	_, err = ParseAddress("0x1234")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = ParseAddress("0xzz3589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestAddressJSON(t *testing.T) {
	a := MustParseAddress("0x00000000000000000000000000000000000000ff")
	data, err := json.Marshal(struct{ A Address }{a})
	require.NoError(t, err)
	assert.JSONEq(t, `{"A":"0x00000000000000000000000000000000000000ff"}`, string(data))

	var out struct{ A Address }
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, a, out.A)
}

func TestAddressFromBytesKeepsTrailingBytes(t *testing.T) {
	b := make([]byte, 32)
	b[31] = 0x01
	b[11] = 0xff // outside the trailing 20 bytes
	a := AddressFromBytes(b)
	assert.Equal(t, "0x0000000000000000000000000000000000000001", a.String())
}

func TestParseNonce(t *testing.T) {
	n, err := ParseNonce("0x" + fmt.Sprintf("%064x", 7))
	require.NoError(t, err)
	assert.Equal(t, byte(7), n[31])

	_, err = ParseNonce("0x01")
	assert.ErrorIs(t, err, ErrInvalidNonce)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindPolicy, KindOf(ErrInvalidEntryFee))
	assert.Equal(t, KindState, KindOf(fmt.Errorf("join: %w", ErrPoolNotOpen)))
	assert.Equal(t, KindAuth, KindOf(ErrNonceReplay))
	assert.Equal(t, KindExternal, KindOf(fmt.Errorf("%w: %w", ErrTransferFailed, ErrInsufficientAllowance)))
	assert.Equal(t, KindNotFound, KindOf(ErrPoolNotFound))
	assert.Equal(t, KindInternal, KindOf(fmt.Errorf("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestPoolStatusTransitions(t *testing.T) {
	p := &Pool{}
	assert.Equal(t, PoolStatusOpen, p.Status())
	p.Started = true
	assert.Equal(t, PoolStatusActive, p.Status())
	p.Closed = true
	assert.Equal(t, PoolStatusClosed, p.Status())
}

func TestPoolCloneIsDeep(t *testing.T) {
	p := &Pool{Participants: []Participant{{ReactionTime: 10}}}
	c := p.Clone()
	c.Participants[0].ReactionTime = 20
	c.Participants = append(c.Participants, Participant{})
	assert.Equal(t, ReactionTime(10), p.Participants[0].ReactionTime)
	assert.Len(t, p.Participants, 1)
}

func TestPoolDurationFromSeconds(t *testing.T) {
	d, err := PoolDurationFromSeconds(120)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, d)

	d, err = PoolDurationFromSeconds(int64(MaxPoolDuration / time.Second))
	require.NoError(t, err)
	assert.Equal(t, MaxPoolDuration, d)
	assert.Positive(t, d)

	_, err = PoolDurationFromSeconds(-1)
	assert.ErrorIs(t, err, ErrDurationTooShort)

	for _, s := range []int64{int64(MaxPoolDuration/time.Second) + 1, 1<<55 + 120, math.MaxInt64} {
		_, err = PoolDurationFromSeconds(s)
		assert.ErrorIs(t, err, ErrDurationTooLong)
		assert.Equal(t, KindPolicy, KindOf(err))
	}
}
