package crypto

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microchain-org/client/codec"
	"github.com/microchain-org/client/common"
)

func TestHashValueDomainSeparation(t *testing.T) {
	// Identical underlying bytes, different declared types.
	a := HashValue(testString("payload"))
	b := HashValue(otherString("payload"))
	assert.NotEqual(t, a, b)

	// Deterministic for equal values.
	assert.Equal(t, a, HashValue(testString("payload")))
	assert.NotEqual(t, a, HashValue(testString("payloae")))
}

func TestNewHashed(t *testing.T) {
	h := NewHashed(testString("content"))
	assert.Equal(t, testString("content"), h.Value())
	assert.Equal(t, HashValue(testString("content")), h.Hash())
}

func TestUncheckedHashed(t *testing.T) {
	bogus := common.Hash{1, 2, 3}
	h := UncheckedHashed(testString("content"), bogus)
	// The asserted hash is stored verbatim; provenance is the caller's problem.
	assert.Equal(t, bogus, h.Hash())
}

func TestCheckedHashed(t *testing.T) {
	expected := HashValue(testString("content"))
	h, err := CheckedHashed(testString("content"), expected)
	require.NoError(t, err)
	assert.Equal(t, expected, h.Hash())

	wrong := common.Hash{0xde, 0xad}
	_, err = CheckedHashed(testString("content"), wrong)
	require.Error(t, err)
	var mismatch *HashMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, wrong, mismatch.Expected)
	assert.Equal(t, expected, mismatch.Actual)
}

func TestHashedBinaryRoundTrip(t *testing.T) {
	h := NewHashed(testString("content"))
	data, err := codec.Marshal(h)
	require.NoError(t, err)

	var decoded Hashed[testString]
	require.NoError(t, codec.Unmarshal(data, &decoded))
	assert.Equal(t, h.Value(), decoded.Value())
	// The hash is recomputed on decode, never trusted from the wire.
	assert.Equal(t, h.Hash(), decoded.Hash())
}
