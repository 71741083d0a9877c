package sequence

import (
	"math"

	"github.com/usoem/oemseq/oemseqerr"
	"github.com/usoem/oemseq/probe"
)

// Normalized is the fully-resolved sequence C3 (the aperture/delay
// planner) consumes: every scalar/vector default has been materialized
// and the depth-range/sample-count duality has been resolved.
type Normalized struct {
	Kind ScanKind

	RxSampFreq float64 // Hz
	NSamp      int
	StartSample int // 1-indexed

	NTx int

	TxApertureCenter []float64 // meters, length NTx
	TxApertureSize   []float64 // elements, length NTx
	TxFocus          []float64 // meters, length NTx
	TxAngle          []float64 // radians, length NTx

	SpeedOfSound float64
	TxFrequency  float64
	TxNPeriods   int

	TxPri        float64
	NRepetitions int // resolved value, or RepetitionsMax if still deferred
	FsDivider    int

	TgcCurve []float64 // normalized [0, 1]
}

func roundToInt(x float64) int {
	return int(math.Round(x))
}

// Normalize validates the request, materializes defaults, resolves
// depth-range <-> sample-count, and builds the TGC curve.
func Normalize(req Request, p *probe.Probe, obs oemseqerr.Observer) (Normalized, error) {
	var n Normalized
	n.Kind = req.Kind
	n.SpeedOfSound = req.SpeedOfSound
	n.TxFrequency = req.TxFrequency
	n.TxNPeriods = req.TxNPeriods
	n.TxPri = req.TxPri
	n.NRepetitions = req.NRepetitions
	n.FsDivider = req.FsDivider

	if req.FsDivider < 1 {
		return n, oemseqerr.NewIllegalArgument("sequence.Normalize", "fsDivider must be >= 1, got %d", req.FsDivider)
	}
	if req.SpeedOfSound <= 0 {
		return n, oemseqerr.NewIllegalArgument("sequence.Normalize", "speedOfSound must be positive")
	}
	if req.NRepetitions != RepetitionsMax && req.NRepetitions < 1 {
		return n, oemseqerr.NewIllegalArgument("sequence.Normalize", "nRepetitions must be >= 1 or the max sentinel, got %d", req.NRepetitions)
	}

	// Step 1: sampling frequency.
	n.RxSampFreq = 65e6 / float64(req.FsDivider)

	// Step 2: depth <-> samples.
	if req.RxDepthRange != nil && req.RxNSamples != nil {
		return n, oemseqerr.NewIllegalArgument("sequence.Normalize", "rxDepthRange and rxNSamples are mutually exclusive")
	}
	switch {
	case req.RxDepthRange != nil:
		zMin, zMax := req.RxDepthRange[0], req.RxDepthRange[1]
		s0 := roundToInt(2*n.RxSampFreq*zMin/req.SpeedOfSound) + 1
		s1 := roundToInt(2*n.RxSampFreq*zMax/req.SpeedOfSound) + 1
		nSamp := s1 - s0 + 1
		if nSamp < 1 {
			return n, oemseqerr.NewIllegalArgument("sequence.Normalize", "rxDepthRange produces non-positive sample count")
		}
		nSamp = ((nSamp + 63) / 64) * 64
		n.StartSample = s0
		n.NSamp = nSamp
	case req.RxNSamples != nil:
		n.StartSample = req.RxNSamples[0]
		n.NSamp = req.RxNSamples[1] - req.RxNSamples[0] + 1
	default:
		return n, oemseqerr.NewIllegalArgument("sequence.Normalize", "one of rxDepthRange or rxNSamples is required")
	}

	// Step 3 & 4: TX aperture center and nTx.
	switch req.Kind {
	case PWI:
		if len(req.TxAngle) == 0 {
			return n, oemseqerr.NewIllegalArgument("sequence.Normalize", "PWI requires txAngle")
		}
		n.NTx = len(req.TxAngle)
		n.TxAngle = req.TxAngle
		if len(req.TxApertureCenter) > 0 {
			n.TxApertureCenter = broadcast(req.TxApertureCenter, n.NTx)
		} else if len(req.TxCenterElement) > 0 {
			n.TxApertureCenter = interpCenters(p, broadcast(req.TxCenterElement, n.NTx))
		} else {
			n.TxApertureCenter = broadcast([]float64{0}, n.NTx)
		}
	default: // LIN, STA
		switch {
		case len(req.TxApertureCenter) > 0:
			n.NTx = len(req.TxApertureCenter)
			n.TxApertureCenter = req.TxApertureCenter
		case len(req.TxCenterElement) > 0:
			n.NTx = len(req.TxCenterElement)
			n.TxApertureCenter = interpCenters(p, req.TxCenterElement)
		default:
			return n, oemseqerr.NewIllegalArgument("sequence.Normalize", "%s requires txCenterElement or txApertureCenter", req.Kind)
		}
		n.TxAngle = broadcast(req.TxAngle, n.NTx)
	}

	if len(req.TxApertureSize) == 0 {
		return n, oemseqerr.NewIllegalArgument("sequence.Normalize", "txApertureSize is required")
	}
	n.TxApertureSize = broadcast(req.TxApertureSize, n.NTx)
	if len(req.TxFocus) == 0 {
		return n, oemseqerr.NewIllegalArgument("sequence.Normalize", "txFocus is required")
	}
	n.TxFocus = broadcast(req.TxFocus, n.NTx)

	// Step 5: TGC curve.
	n.TgcCurve = buildTGCCurve(req.TgcStart, req.TgcSlope, n.RxSampFreq, req.SpeedOfSound, req.FsDivider, n.StartSample, n.NSamp, obs)

	// Step 6: invariants checkable at this stage; the remainder depend on
	// nSubTx, computed downstream by the planner and hardware programmer.
	if n.NSamp%64 != 0 {
		return n, oemseqerr.NewIllegalArgument("sequence.Normalize", "nSamp=%d is not a multiple of 64", n.NSamp)
	}
	maxSamp := int(math.Pow(2, 13)) / req.FsDivider
	if n.NSamp > maxSamp {
		return n, oemseqerr.NewIllegalArgument("sequence.Normalize", "nSamp=%d exceeds 2^13/fsDivider=%d", n.NSamp, maxSamp)
	}

	return n, nil
}

func interpCenters(p *probe.Probe, elems []float64) []float64 {
	out := make([]float64, len(elems))
	for i, e := range elems {
		out[i] = p.InterpXAtElement(e)
	}
	return out
}
