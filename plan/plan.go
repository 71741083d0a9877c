// Package plan implements the aperture and delay planner (C3): it turns
// a normalized sequence and a probe into per-element TX aperture masks
// and TX delays, and determines how many physical sub-transmits are
// needed to cover the logical RX aperture.
package plan

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/usoem/oemseq/oemseqerr"
	"github.com/usoem/oemseq/probe"
	"github.com/usoem/oemseq/sequence"
)

// Plan is C3's output, C4's input.
type Plan struct {
	NRows int // 128 * nOEM
	NTx   int

	TxApMask *mat.Dense // [NRows x NTx], 1.0 active, 0.0 inactive
	TxDel    *mat.Dense // [NRows x NTx], seconds, zeroed outside the aperture

	TxDelCent []float64 // length NTx, every entry equal

	NSubTx int

	RxApOrig []int // LIN only, 1-indexed, length NTx; nil for STA/PWI
	RxApSize int   // 32 (packed) or 32*nOEM (interleaved)
}

// Build turns a normalized sequence and a probe into per-element TX
// aperture masks and TX delays, and determines the RX sub-aperture split.
func Build(n sequence.Normalized, p *probe.Probe) (Plan, error) {
	var pl Plan
	pl.NTx = n.NTx
	pl.NRows = 128 * p.Adapter.NOEM
	pl.TxApMask = mat.NewDense(pl.NRows, pl.NTx, nil)
	pl.TxDel = mat.NewDense(pl.NRows, pl.NTx, nil)
	pl.TxDelCent = make([]float64, pl.NTx)

	centerRaw := make([]float64, pl.NTx)

	for t := 0; t < pl.NTx; t++ {
		apCent := n.TxApertureCenter[t]
		apSize := n.TxApertureSize[t]
		focus := n.TxFocus[t]
		angle := n.TxAngle[t]
		halfWidth := (apSize - 1) / 2 * p.Pitch
		// Elements lying exactly on the aperture edge stay inside it despite
		// floating-point rounding of x-apCent.
		tol := 1e-9 * p.Pitch

		type entry struct {
			row int
			val float64
		}
		var active []entry
		for e := 1; e <= p.NElem; e++ {
			x := p.X(float64(e))
			if math.Abs(x-apCent) > halfWidth+tol {
				continue
			}
			raw := delayRaw(x, apCent, focus, angle, n.SpeedOfSound)
			active = append(active, entry{row: e - 1, val: raw})
		}
		if len(active) == 0 {
			return pl, oemseqerr.NewIllegalArgument("plan.Build", "transmit %d has an empty TX aperture", t)
		}
		vals := make([]float64, len(active))
		for i, en := range active {
			vals[i] = en.val
		}
		minVal := floats.Min(vals)
		for _, en := range active {
			pl.TxApMask.Set(en.row, t, 1)
			pl.TxDel.Set(en.row, t, en.val-minVal)
		}
		centerRaw[t] = delayRaw(apCent, apCent, focus, angle, n.SpeedOfSound)
	}

	global := floats.Max(centerRaw)
	for t := range pl.TxDelCent {
		pl.TxDelCent[t] = global
	}

	pl.NSubTx = nSubTx(n.Kind, p.NElem, p.Adapter.NOEM, p.Adapter.Type)
	pl.RxApSize = rxApertureSize(p.Adapter.Type, p.Adapter.NOEM)

	if n.Kind == sequence.LIN {
		pl.RxApOrig = make([]int, pl.NTx)
		maxOrig := p.NElem - pl.RxApSize + 1
		for t := 0; t < pl.NTx; t++ {
			rxCentElem := p.ElementAt(n.TxApertureCenter[t])
			// Drop floating-point noise so a center that is exactly on an
			// element rounds as it would in exact arithmetic.
			rxCentElem = math.Round(rxCentElem*1e6) / 1e6
			orig := int(math.Round(rxCentElem - float64(pl.RxApSize-1)/2))
			if orig < 1 {
				orig = 1
			}
			if orig > maxOrig {
				orig = maxOrig
			}
			pl.RxApOrig[t] = orig
		}
	}

	return pl, nil
}
