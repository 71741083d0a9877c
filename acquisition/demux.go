package acquisition

import (
	"github.com/usoem/oemseq/oemseqerr"
	"github.com/usoem/oemseq/plan"
	"github.com/usoem/oemseq/probe"
	"github.com/usoem/oemseq/sequence"
)

// Demux reshapes and permutes raw per-OEM buffers into the canonical RF
// tensor: it interprets each OEM's raw flat buffer as
// [32, nSamp, nSubTx, nTx, nRep] (channel varying fastest), combines the
// per-OEM buffers into one wide channel axis ordered per the adapter's
// wiring topology, then applies the LIN-mode circular shift and slices
// down to the canonical channel count.
func Demux(raw [][]int16, pl plan.Plan, n sequence.Normalized, p *probe.Probe) (*RFTensor, error) {
	nOEM := p.Adapter.NOEM
	if len(raw) != nOEM {
		return nil, oemseqerr.NewIllegalArgument("acquisition.Demux", "expected %d OEM buffers, got %d", nOEM, len(raw))
	}
	nSubTx := pl.NSubTx
	nTx := n.NTx
	nRep := n.NRepetitions
	if nRep == sequence.RepetitionsMax {
		return nil, oemseqerr.NewIllegalArgument("acquisition.Demux", "normalized sequence has an unresolved repetition count")
	}
	nSamp := n.NSamp

	wideWidth := 32 * nSubTx * nOEM
	wantLen := 32 * nSamp * nSubTx * nTx * nRep
	for k, buf := range raw {
		if len(buf) != wantLen {
			return nil, oemseqerr.NewIllegalArgument("acquisition.Demux", "oem %d buffer has %d samples, want %d", k, len(buf), wantLen)
		}
	}

	wide := make([]int16, nSamp*wideWidth*nTx*nRep)
	wideAt := func(sample, ch, tx, rep int) int {
		return ((rep*nTx+tx)*wideWidth+ch)*nSamp + sample
	}

	for k, buf := range raw {
		rawAt := func(ch, sample, subtx, tx, rep int) int16 {
			idx := ch + 32*(sample+nSamp*(subtx+nSubTx*(tx+nTx*rep)))
			return buf[idx]
		}
		for rep := 0; rep < nRep; rep++ {
			for tx := 0; tx < nTx; tx++ {
				for subtx := 0; subtx < nSubTx; subtx++ {
					for sample := 0; sample < nSamp; sample++ {
						for ch := 0; ch < 32; ch++ {
							v := rawAt(ch, sample, subtx, tx, rep)
							var chOut int
							if p.Adapter.Type == probe.Interleaved {
								chOut = ch + 32*k + 32*nOEM*subtx
							} else {
								chOut = ch + 32*subtx + 32*nSubTx*k
							}
							wide[wideAt(sample, chOut, tx, rep)] = v
						}
					}
				}
			}
		}
	}

	var rxChannels int
	if n.Kind == sequence.LIN {
		rxChannels = 32
	} else {
		rxChannels = minInt(p.NElem, wideWidth)
	}
	out := NewRFTensor(nSamp, rxChannels, nTx, nRep)

	for rep := 0; rep < nRep; rep++ {
		for tx := 0; tx < nTx; tx++ {
			shifted := alignChannels(n, p, pl, tx, wideWidth)
			for sample := 0; sample < nSamp; sample++ {
				for chOut := 0; chOut < rxChannels; chOut++ {
					srcCh := shifted[chOut]
					out.Set(sample, chOut, tx, rep, wide[wideAt(sample, srcCh, tx, rep)])
				}
			}
		}
	}

	return out, nil
}

// alignChannels returns, for transmit tx, the source channel index (into
// the width-wideWidth axis) that should land at each of the final
// [0, rxChannels) output positions, applying the LIN-mode aperture
// alignment. For STA/PWI it is simply the identity mapping (no shift,
// just implicit truncation to rxChannels by the caller).
func alignChannels(n sequence.Normalized, p *probe.Probe, pl plan.Plan, tx, wideWidth int) []int {
	identity := func(count int) []int {
		out := make([]int, count)
		for i := range out {
			out[i] = i
		}
		return out
	}
	if n.Kind != sequence.LIN {
		return identity(wideWidth)
	}

	// All shifts below are left shifts (positive shift arguments), which
	// bring the aperture's first channel to output position 0.
	orig := pl.RxApOrig[tx] // 1-indexed
	if p.Adapter.Type == probe.Interleaved {
		shift := mod(orig-1, 32*p.Adapter.NOEM)
		return circularShift(wideWidth, shift)
	}

	// Type-0: coarse shift, slice to first 32, then a conditional fine shift.
	coarse := minInt(32, maxInt(0, orig-1-32*3))
	shifted := circularShift(wideWidth, coarse)
	sliced := shifted[:32]
	if !(orig > 1+32*3 && orig <= 1+32*4) {
		fine := mod(orig-1, 32)
		return rotateWithinSlice(sliced, fine)
	}
	return sliced
}

// circularShift returns a permutation p of [0, width) such that reading
// wide[p[i]] for i = 0..width-1 is equivalent to circularly shifting the
// original axis left by shift positions (negative shift = shift right).
func circularShift(width, shift int) []int {
	out := make([]int, width)
	for i := range out {
		out[i] = mod(i+shift, width)
	}
	return out
}

// rotateWithinSlice applies a further circular rotation to an
// already-sliced index list, composing with the shift already baked into
// sliced rather than re-indexing the original wide axis.
func rotateWithinSlice(sliced []int, shift int) []int {
	n := len(sliced)
	out := make([]int, n)
	for i := range out {
		out[i] = sliced[mod(i+shift, n)]
	}
	return out
}

func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
