// Package sequence validates an abstract scan request against a probe and
// materializes it into the scalar/vector form the aperture planner (C3)
// consumes: resolving the depth-range/sample-count duality, broadcasting
// scalar aperture parameters to per-transmit vectors, and building the
// normalized TGC curve.
package sequence

import "math"

// ScanKind is the tagged variant distinguishing how nTx, rxApOrig and
// nSubTx get computed, and how the acquired tensor gets re-aligned.
type ScanKind int

const (
	LIN ScanKind = iota
	STA
	PWI
)

func (k ScanKind) String() string {
	switch k {
	case LIN:
		return "LIN"
	case STA:
		return "STA"
	case PWI:
		return "PWI"
	default:
		return "unknown"
	}
}

// RepetitionsMax is the sentinel value for Request.NRepetitions meaning
// "as many repetitions as the trigger-table budget allows for this
// sequence".
const RepetitionsMax = -1

// Request is the caller-facing scan description, upload's argument.
// Exactly one of RxDepthRange/RxNSamples must be set. LIN and STA need
// TxCenterElement or TxApertureCenter (TxApertureCenter is used when both
// are set); PWI centers the aperture at 0 when neither is given. Scalar
// aperture fields may be given as a single-element slice to be broadcast
// across transmits.
type Request struct {
	Kind ScanKind

	// Aperture specification: fractional element index (1-indexed) or
	// meters, length nTx (or 1, to be broadcast).
	TxCenterElement []float64
	TxApertureCenter []float64
	TxApertureSize   []float64 // elements; scalar or length nTx

	// Focusing.
	TxFocus []float64 // meters; +Inf => plane wave; negative => diverging
	TxAngle []float64 // radians

	SpeedOfSound float64 // m/s

	TxFrequency float64 // Hz
	TxNPeriods  int

	RxDepthRange *[2]float64 // meters [zMin, zMax]
	RxNSamples   *[2]int     // 1-indexed inclusive [first, last]

	TxPri        float64 // seconds between firings
	NRepetitions int     // >= 1, or RepetitionsMax
	FsDivider    int     // >= 1

	TgcStart float64 // dB
	TgcSlope float64 // dB/m
}

// broadcast expands a scalar (length-1) slice to length n, or returns v
// unchanged if it already has length n.
func broadcast(v []float64, n int) []float64 {
	if len(v) == n {
		return v
	}
	out := make([]float64, n)
	fill := 0.0
	if len(v) > 0 {
		fill = v[0]
	}
	for i := range out {
		out[i] = fill
	}
	return out
}

// isPlaneWave reports whether a focus value means "plane wave" per the
// request convention (+Inf).
func isPlaneWave(f float64) bool {
	return math.IsInf(f, 1)
}
