package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func mustAdapter(t *testing.T, at AdapterType, nOEM int) *Adapter {
	t.Helper()
	a, err := NewAdapter(at, nOEM, nil, nil)
	require.NoError(t, err)
	return a
}

func TestGeometrySymmetricAboutOrigin(t *testing.T) {
	a := mustAdapter(t, Packed, 1)
	p, err := New("test128", 128, 0.0003, a)
	require.NoError(t, err)

	sum := 0.0
	for _, x := range p.XElem {
		sum += x
	}
	assert.InDelta(t, 0, sum, 1e-9, "element centers should sum to zero (symmetric about origin)")
	assert.InDelta(t, -p.XElem[0], p.XElem[len(p.XElem)-1], 1e-9)
}

func TestPackedSelectElemAndActiveChannel(t *testing.T) {
	a := mustAdapter(t, Packed, 2)
	// OEM 0 serves elements 1..128, OEM 1 serves elements 129..256.
	assert.Equal(t, 1, a.SelectElem(1, 0))
	assert.Equal(t, 128, a.SelectElem(128, 0))
	assert.Equal(t, 129, a.SelectElem(1, 1))
	assert.Equal(t, 256, a.SelectElem(128, 1))

	assert.True(t, a.IsActiveChannel(1, 0, 192))
	assert.True(t, a.IsActiveChannel(64, 1, 192)) // element 192
	assert.False(t, a.IsActiveChannel(65, 1, 192)) // element 193 > nElem
}

func TestInterleavedOwnershipStridesByOEM(t *testing.T) {
	a := mustAdapter(t, Interleaved, 2)
	// Channels 1..32 belong to OEM 0's group, 33..64 to OEM 1's group,
	// 65..96 back to OEM 0, etc (group index mod nOEM).
	assert.True(t, a.IsActiveChannel(1, 0, 128))
	assert.False(t, a.IsActiveChannel(1, 1, 128))
	assert.True(t, a.IsActiveChannel(33, 1, 128))
	assert.False(t, a.IsActiveChannel(33, 0, 128))
	assert.True(t, a.IsActiveChannel(65, 0, 128))
}

func TestEachElementHasExactlyOneOwningOEM(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		nOEM := rapid.IntRange(1, 4).Draw(rt, "nOEM")
		at := AdapterType(rapid.IntRange(0, 1).Draw(rt, "adapterType"))
		maxElem := 128 * nOEM
		if at == Interleaved {
			// Interleaved wiring addresses elements 1..128 only (SelectElem(c, k) = c).
			maxElem = 128
		}
		nElem := rapid.IntRange(1, maxElem).Draw(rt, "nElem")
		a := mustAdapter(t, at, nOEM)

		for e := 1; e <= nElem; e++ {
			owners := 0
			for k := 0; k < nOEM; k++ {
				for c := 1; c <= 128; c++ {
					if a.SelectElem(c, k) == e && a.IsActiveChannel(c, k, nElem) {
						owners++
					}
				}
			}
			assert.Equalf(rt, 1, owners, "element %d should have exactly one owning (channel, OEM) pair", e)
		}
	})
}

func TestInterpXAtElementMatchesGridPoints(t *testing.T) {
	a := mustAdapter(t, Packed, 2)
	p, err := New("test192", 192, 0.0002, a)
	require.NoError(t, err)

	for e := 1; e <= p.NElem; e++ {
		got := p.InterpXAtElement(float64(e))
		want := p.X(float64(e))
		assert.InDelta(t, want, got, 1e-12)
	}
	// Fractional index halfway between element 1 and 2.
	mid := p.InterpXAtElement(1.5)
	assert.InDelta(t, (p.X(1)+p.X(2))/2, mid, 1e-12)
}
