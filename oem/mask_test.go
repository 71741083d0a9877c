package oem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMaskRoundTrip128(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		bits := make([]bool, 128)
		for i := range bits {
			bits[i] = rapid.Bool().Draw(rt, "bit")
		}
		s, err := EncodeMaskString(bits)
		require.NoError(rt, err)
		assert.Len(rt, s, 32)
		got, err := DecodeMaskString(s, 128)
		require.NoError(rt, err)
		assert.Equal(rt, bits, got)
	})
}

func TestMaskRoundTrip16(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		bits := make([]bool, 16)
		for i := range bits {
			bits[i] = rapid.Bool().Draw(rt, "bit")
		}
		s, err := EncodeMaskString(bits)
		require.NoError(rt, err)
		assert.Len(rt, s, 4)
		got, err := DecodeMaskString(s, 16)
		require.NoError(rt, err)
		assert.Equal(rt, bits, got)
	})
}

func TestGroupMaskPermutationInverts(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		mask := make([]bool, 128)
		for i := range mask {
			mask[i] = rapid.Bool().Draw(rt, "bit")
		}
		grouped, err := GroupMask(mask)
		require.NoError(rt, err)

		var expected [16]bool
		for g := 0; g < 16; g++ {
			any := false
			for i := 0; i < 8; i++ {
				if mask[8*g+i] {
					any = true
				}
			}
			expected[g] = any
		}
		recovered := UngroupMask(grouped)
		assert.Equal(rt, expected, recovered)
	})
}

func TestEncodeMaskStringExampleValue(t *testing.T) {
	bits := make([]bool, 16)
	bits[15] = true // least significant bit set
	s, err := EncodeMaskString(bits)
	require.NoError(t, err)
	assert.Equal(t, "0001", s)
}
