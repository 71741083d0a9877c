package sequence

import "github.com/usoem/oemseq/oemseqerr"

// tgcCharacteristic is the fixed 41-point non-linear DAC characteristic,
// dB input at integer knots 14..54: tgcCharacteristic[i] is the achieved
// dB value the DAC produces at control knot 14+i.
var tgcCharacteristic = [41]float64{
	14.000, 14.001, 14.002, 14.003, 14.024, 14.168, 14.480, 14.825, 15.234, 15.770,
	16.508, 17.382, 18.469, 19.796, 20.933, 21.862, 22.891, 24.099, 25.543, 26.596,
	27.651, 28.837, 30.265, 31.690, 32.843, 34.045, 35.543, 37.184, 38.460, 39.680,
	41.083, 42.740, 44.269, 45.540, 46.936, 48.474, 49.895, 50.966, 52.083, 53.256,
	54.000,
}

const (
	tgcMinDB = 14.0
	tgcMaxDB = 54.0
)

// clampTGC clamps v to [14, 54] dB, invoking obs.Warn if it had to.
func clampTGC(v float64, obs oemseqerr.Observer) float64 {
	if v < tgcMinDB {
		oemseqerr.Warn(obs, "sequence.tgc", "tgc value %.3f dB clamped to %.3f dB", v, tgcMinDB)
		return tgcMinDB
	}
	if v > tgcMaxDB {
		oemseqerr.Warn(obs, "sequence.tgc", "tgc value %.3f dB clamped to %.3f dB", v, tgcMaxDB)
		return tgcMaxDB
	}
	return v
}

// remapDBToUnit inverts the DAC characteristic: given a dB value already
// clamped to [14, 54], it finds the fractional knot index i such that
// piecewise-linear interpolation of tgcCharacteristic at i equals v, and
// returns i/40, a monotone value in [0, 1].
func remapDBToUnit(v float64) float64 {
	if v <= tgcCharacteristic[0] {
		return 0
	}
	if v >= tgcCharacteristic[len(tgcCharacteristic)-1] {
		return 1
	}
	lo, hi := 0, len(tgcCharacteristic)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if tgcCharacteristic[mid] <= v {
			lo = mid
		} else {
			hi = mid
		}
	}
	frac := (v - tgcCharacteristic[lo]) / (tgcCharacteristic[hi] - tgcCharacteristic[lo])
	idx := float64(lo) + frac
	return idx / float64(len(tgcCharacteristic)-1)
}

// buildTGCCurve constructs the normalized [0, 1] TGC curve for a sequence:
// a probe-depth grid sampled at the fixed 400/150 sample-index cadence,
// converted to a dB target via tgcStart+tgcSlope*depth, then clamped and
// remapped through the DAC characteristic.
func buildTGCCurve(tgcStart, tgcSlope float64, rxSampFreq, c float64, fsDivider, startSample, nSamp int, obs oemseqerr.Observer) []float64 {
	base := roundToInt(400.0 / float64(fsDivider))
	step := roundToInt(150.0 / float64(fsDivider))
	if step <= 0 {
		step = 1
	}
	var curve []float64
	lastSample := startSample + nSamp - 1
	for n := 0; ; n++ {
		sampleIdx := base + n*step
		if sampleIdx < startSample || sampleIdx > lastSample {
			if sampleIdx > lastSample {
				break
			}
			continue
		}
		depth := float64(sampleIdx) / rxSampFreq * c
		dB := tgcStart + tgcSlope*depth
		dB = clampTGC(dB, obs)
		curve = append(curve, remapDBToUnit(dB))
	}
	if len(curve) == 0 {
		// Degenerate window: still emit one point so downstream
		// TGCSetSamples always has something to program.
		dB := clampTGC(tgcStart, obs)
		curve = []float64{remapDBToUnit(dB)}
	}
	return curve
}
