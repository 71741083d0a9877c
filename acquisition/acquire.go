package acquisition

import (
	"time"

	"github.com/usoem/oemseq/oem"
	"github.com/usoem/oemseq/plan"
	"github.com/usoem/oemseq/probe"
	"github.com/usoem/oemseq/sequence"
)

// pauseMultip is the fixed safety margin applied to the open-loop sleeps
// after TriggerStart and TriggerSync.
const pauseMultip = 1.5

// maxNTrig is the trigger-table capacity. A RepetitionsMax sequence runs
// as many repetitions as fit in it, which is what oem.Program programs.
const maxNTrig = 16384

// Clock abstracts the passage of time so tests can run an acquisition
// without actually sleeping for the scan duration.
type Clock interface {
	Sleep(d time.Duration)
	Now() time.Time
}

// realClock sleeps and reads the wall clock for real.
type realClock struct{}

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
func (realClock) Now() time.Time        { return time.Now() }

// RealClock is the Clock every production Acquisition should use.
var RealClock Clock = realClock{}

// Acquisition arms modules, runs the trigger engine, transfers per-module
// buffers, and demultiplexes them into the canonical RF tensor.
type Acquisition struct {
	Driver     oem.Driver
	Plan       plan.Plan
	Normalized sequence.Normalized
	Probe      *probe.Probe
	Clock      Clock
}

func (a *Acquisition) clock() Clock {
	if a.Clock != nil {
		return a.Clock
	}
	return RealClock
}

func (a *Acquisition) pause() time.Duration {
	nRep := a.Normalized.NRepetitions
	if nRep == sequence.RepetitionsMax {
		nRep = maxNTrig / (a.Normalized.NTx * a.Plan.NSubTx)
	}
	nTrig := a.Normalized.NTx * a.Plan.NSubTx * nRep
	return time.Duration(pauseMultip * a.Normalized.TxPri * float64(nTrig) * float64(time.Second))
}

// Open arms the trigger engine on OEM 0 and waits for the sequence's
// worst-case duration.
func (a *Acquisition) Open() error {
	if err := a.Driver.TriggerStart(); err != nil {
		return err
	}
	a.clock().Sleep(a.pause())
	return nil
}

// Run executes one acquisition: enables receive on every OEM, fires the
// trigger, waits, transfers every OEM's buffer, and demultiplexes the
// result into the canonical RF tensor.
func (a *Acquisition) Run() (*RFTensor, error) {
	nOEM := a.Probe.Adapter.NOEM
	for k := 0; k < nOEM; k++ {
		if err := a.Driver.EnableReceive(k); err != nil {
			return nil, err
		}
	}
	if err := a.Driver.TriggerSync(); err != nil {
		return nil, err
	}
	a.clock().Sleep(a.pause())

	nRep := a.Normalized.NRepetitions
	if nRep == sequence.RepetitionsMax {
		nRep = maxNTrig / (a.Normalized.NTx * a.Plan.NSubTx)
	}
	nTrig := a.Normalized.NTx * a.Plan.NSubTx * nRep
	nSamplesPerOEM := 32 * a.Normalized.NSamp * nTrig

	oems := make([]int, nOEM)
	sizes := make([]int, nOEM)
	for k := range oems {
		oems[k] = k
		sizes[k] = nSamplesPerOEM
	}
	raw, err := a.Driver.TransferAllRXBuffersToHost(oems, sizes)
	if err != nil {
		return nil, err
	}

	normalized := a.Normalized
	normalized.NRepetitions = nRep
	return Demux(raw, a.Plan, normalized, a.Probe)
}

// Close stops the trigger engine on OEM 0. It is the only supported way
// to abort an acquisition; there is no cancellation mid-run.
func (a *Acquisition) Close() error {
	return a.Driver.TriggerStop()
}
