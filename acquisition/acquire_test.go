package acquisition

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usoem/oemseq/oem"
	"github.com/usoem/oemseq/plan"
	"github.com/usoem/oemseq/probe"
	"github.com/usoem/oemseq/sequence"
)

// noSleepClock records every requested sleep duration without actually
// sleeping, so acquisition tests run instantly.
type noSleepClock struct {
	slept []time.Duration
}

func (c *noSleepClock) Sleep(d time.Duration) { c.slept = append(c.slept, d) }
func (c *noSleepClock) Now() time.Time        { return time.Time{} }

func newAcquisitionFixture(t *testing.T) (*Acquisition, *oem.SimDriver, *noSleepClock) {
	t.Helper()
	a, err := probe.NewAdapter(probe.Packed, 1, nil, nil)
	require.NoError(t, err)
	p, err := probe.New("acq-test", 128, 0.0003, a)
	require.NoError(t, err)

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
		NSamp:            64,
		StartSample:      1,
		TxPri:            200e-6,
		NRepetitions:     2,
		FsDivider:        1,
		TgcCurve:         []float64{0.5},
	}
	pl, err := plan.Build(n, p)
	require.NoError(t, err)

	drv := oem.NewSimDriver(1)
	clock := &noSleepClock{}
	return &Acquisition{Driver: drv, Plan: pl, Normalized: n, Probe: p, Clock: clock}, drv, clock
}

func TestAcquisitionOpenTriggersStartAndSleeps(t *testing.T) {
	acq, drv, clock := newAcquisitionFixture(t)
	require.NoError(t, acq.Open())
	assert.Equal(t, []string{"TriggerStart()"}, drv.Calls)
	require.Len(t, clock.slept, 1)
	assert.Greater(t, clock.slept[0], time.Duration(0))
}

func TestAcquisitionRunProducesTensorAndDemuxes(t *testing.T) {
	acq, _, _ := newAcquisitionFixture(t)
	require.NoError(t, acq.Open())

	rf, err := acq.Run()
	require.NoError(t, err)
	require.NotNil(t, rf)
	assert.Equal(t, 64, rf.NSamp)
	assert.Equal(t, 1, rf.NTx)
	assert.Equal(t, 2, rf.NRep)

	require.NoError(t, acq.Close())
}

func TestAcquisitionRunResolvesRepetitionsMax(t *testing.T) {
	acq, _, _ := newAcquisitionFixture(t)
	acq.Normalized.NRepetitions = sequence.RepetitionsMax

	require.NoError(t, acq.Open())
	rf, err := acq.Run()
	require.NoError(t, err)
	// nFire = 1 transmit x 4 sub-transmits, so 16384/4 repetitions fit
	// the trigger table.
	assert.Equal(t, 4096, rf.NRep)
}
