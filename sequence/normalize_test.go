package sequence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usoem/oemseq/probe"
)

func testProbe(t *testing.T, nElem int, pitch float64) *probe.Probe {
	t.Helper()
	a, err := probe.NewAdapter(probe.Packed, 1, nil, nil)
	require.NoError(t, err)
	p, err := probe.New("test", nElem, pitch, a)
	require.NoError(t, err)
	return p
}

// Scenario 4: depth-range -> samples round trip.
func TestDepthRangeToSamples(t *testing.T) {
	p := testProbe(t, 128, 0.0003)
	req := Request{
		Kind:             STA,
		TxApertureCenter: []float64{0},
		TxApertureSize:   []float64{32},
		TxFocus:          []float64{math.Inf(1)},
		TxAngle:          []float64{0},
		SpeedOfSound:     1450,
		TxFrequency:      5e6,
		TxNPeriods:       2,
		RxDepthRange:     &[2]float64{0, 0.050},
		TxPri:            200e-6,
		NRepetitions:     1,
		FsDivider:        1,
	}
	n, err := Normalize(req, p, nil)
	require.NoError(t, err)
	assert.InDelta(t, 65e6, n.RxSampFreq, 1e-6)
	assert.Equal(t, 1, n.StartSample)
	assert.Equal(t, 4544, n.NSamp)
}

// Scenario 5: TGC clamp at 14 dB maps to 0.
func TestTGCClampToZero(t *testing.T) {
	p := testProbe(t, 128, 0.0003)
	var warned []string
	obs := recordingObserver{warnings: &warned}
	req := Request{
		Kind:             STA,
		TxApertureCenter: []float64{0},
		TxApertureSize:   []float64{32},
		TxFocus:          []float64{math.Inf(1)},
		TxAngle:          []float64{0},
		SpeedOfSound:     1450,
		TxFrequency:      5e6,
		TxNPeriods:       2,
		RxNSamples:       &[2]int{1, 128},
		TxPri:            200e-6,
		NRepetitions:     1,
		FsDivider:        1,
		TgcStart:         5,
		TgcSlope:         0,
	}
	n, err := Normalize(req, p, obs)
	require.NoError(t, err)
	require.NotEmpty(t, warned, "clamping below 14 dB should warn")
	for _, v := range n.TgcCurve {
		assert.InDelta(t, 0, v, 1e-9)
	}
}

func TestNSampMustBeMultipleOf64(t *testing.T) {
	p := testProbe(t, 128, 0.0003)
	req := Request{
		Kind:             STA,
		TxApertureCenter: []float64{0},
		TxApertureSize:   []float64{32},
		TxFocus:          []float64{math.Inf(1)},
		TxAngle:          []float64{0},
		SpeedOfSound:     1450,
		TxFrequency:      5e6,
		RxNSamples:       &[2]int{1, 100}, // 100 samples, not a multiple of 64
		TxPri:            200e-6,
		NRepetitions:     1,
		FsDivider:        1,
	}
	_, err := Normalize(req, p, nil)
	assert.Error(t, err)
}

type recordingObserver struct {
	warnings *[]string
}

func (r recordingObserver) Warn(op, format string, args ...interface{}) {
	*r.warnings = append(*r.warnings, op)
}
