package oem

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usoem/oemseq/plan"
	"github.com/usoem/oemseq/probe"
	"github.com/usoem/oemseq/sequence"
)

func buildProbe(t *testing.T, nElem, nOEM int, at probe.AdapterType) *probe.Probe {
	t.Helper()
	a, err := probe.NewAdapter(at, nOEM, nil, nil)
	require.NoError(t, err)
	p, err := probe.New("test", nElem, 0.0003, a)
	require.NoError(t, err)
	return p
}

// Scenario 1: PWI, 1 OEM, 128 elements, 1 angle, nRep=5 -> nTrig=20,
// last trigger syncOut=1, others 0.
func TestScenario1TriggerTable(t *testing.T) {
	p := buildProbe(t, 128, 1, probe.Packed)
	n := sequence.Normalized{
		Kind:             sequence.PWI,
		NTx:              1,
		TxApertureCenter: []float64{0},
		TxApertureSize:   []float64{128},
		TxFocus:          []float64{math.Inf(1)},
		TxAngle:          []float64{0},
		SpeedOfSound:     1450,
		TxFrequency:      5e6,
		TxNPeriods:       2,
		NSamp:            1024,
		StartSample:      1,
		TxPri:            200e-6,
		NRepetitions:     5,
		FsDivider:        1,
		TgcCurve:         []float64{0.5},
	}
	pl, err := plan.Build(n, p)
	require.NoError(t, err)
	require.Equal(t, 4, pl.NSubTx)

	drv := NewSimDriver(1)
	require.NoError(t, Program(drv, pl, n, p, nil, nil))

	require.Equal(t, 20, drv.nTrig)
	require.Len(t, drv.trigs, 20)
	for i, tr := range drv.trigs {
		if i == 19 {
			assert.Equal(t, 1, tr.syncOut, "last trigger should assert sync out")
		} else {
			assert.Equal(t, 0, tr.syncOut)
		}
	}
	assert.Equal(t, 4, drv.oems[0].nFire)
}

// Scenario 6: memory/instruction-table violations.
func TestScenario6InvariantViolations(t *testing.T) {
	p := buildProbe(t, 128, 1, probe.Packed)

	n := sequence.Normalized{
		Kind:             sequence.STA,
		NTx:              1024,
		TxApertureCenter: make([]float64, 1024),
		TxApertureSize:   broadcastConst(1024, 32),
		TxFocus:          broadcastConst(1024, math.Inf(1)),
		TxAngle:          make([]float64, 1024),
		SpeedOfSound:     1450,
		NSamp:            4096,
		StartSample:      1,
		TxPri:            200e-6,
		NRepetitions:     1,
		FsDivider:        1,
		TgcCurve:         []float64{0.5},
	}
	pl, err := plan.Build(n, p)
	require.NoError(t, err)
	require.Equal(t, 4, pl.NSubTx)

	drv := NewSimDriver(1)
	err = Program(drv, pl, n, p, nil, nil)
	require.Error(t, err, "nFire = 1024*4 = 4096 > 1024 should fail")

	n.NTx = 256
	pl2, err := plan.Build(n, p)
	require.NoError(t, err)
	n.NRepetitions = 16
	drv2 := NewSimDriver(1)
	err = Program(drv2, pl2, n, p, nil, nil) // nFire=1024, nTrig=16384 (OK)
	require.NoError(t, err)

	n.NRepetitions = 17
	drv3 := NewSimDriver(1)
	err = Program(drv3, pl2, n, p, nil, nil) // nTrig=17408 > 16384
	require.Error(t, err)
}

func broadcastConst(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
