package queueit

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePlaceInQueue(t *testing.T) {
	// digits sit at positions 30, 3, 11, 20, 7, 26, 9
	obfuscated := []byte("abcdefabcdefabcdefabcdefabcdefa")
	for i, d := range "0000042" {
		obfuscated[placeInQueuePositions[i]] = byte(d)
	}
	got, err := DecodePlaceInQueue(string(obfuscated))
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	got, err = DecodePlaceInQueue("xxx2xxx5x7x3xxxxxxxx4xxxxx6xxx1")
	require.NoError(t, err)
	assert.Equal(t, 1234567, got)
}

func TestDecodePlaceInQueue_Malformed(t *testing.T) {
	tests := []string{
		"",
		"0123456789",
		"012345678901234567890123456789", // 30 chars, position 30 missing
		"0123456789012345678901234567890"[:30] + "x",
		"abcdefghijklmnopqrstuvwxyz01234",
	}
	for _, in := range tests {
		_, err := DecodePlaceInQueue(in)
		if !errors.Is(err, ErrMalformedToken) {
			t.Errorf("DecodePlaceInQueue(%q) error = %v, want ErrMalformedToken", in, err)
		}
	}
}

func TestEncodePlaceInQueue_RoundTrip(t *testing.T) {
	for _, place := range []int{0, 1, 42, 1000, 9999999} {
		encoded, err := EncodePlaceInQueue(place, uuid.NewString())
		require.NoError(t, err)
		decoded, err := DecodePlaceInQueue(encoded)
		require.NoError(t, err)
		assert.Equal(t, place, decoded)
	}

	_, err := EncodePlaceInQueue(10000000, uuid.NewString())
	assert.Error(t, err)
	_, err = EncodePlaceInQueue(1, "short")
	assert.Error(t, err)
}

func TestDecodePlaceInQueue_EachPositionMatters(t *testing.T) {
	encoded, err := EncodePlaceInQueue(1234567, uuid.NewString())
	require.NoError(t, err)
	base, err := DecodePlaceInQueue(encoded)
	require.NoError(t, err)

	for _, pos := range placeInQueuePositions {
		changed := []byte(encoded)
		if changed[pos] == '9' {
			changed[pos] = '0'
		} else {
			changed[pos]++
		}
		got, err := DecodePlaceInQueue(string(changed))
		require.NoError(t, err)
		assert.NotEqual(t, base, got, "position %d", pos)
	}
}
