package oem

import (
	"strconv"
	"time"

	"github.com/usoem/oemseq/oemseqerr"
	"github.com/usoem/oemseq/plan"
	"github.com/usoem/oemseq/probe"
	"github.com/usoem/oemseq/sequence"
)

const (
	rxTimeSeconds  = 160e-6
	rxDelaySeconds = 5e-6
	pipelineDelaySamples = 240
	maxNFire  = 1024
	maxNTrig  = 16384
	ddrBudgetBytes = uint64(1) << 32
)

// Program lowers a Plan into the deterministic sequence of OEM commands:
// TX apertures/delays/frequency/half-periods, the active-channel-group
// mask, RX sub-apertures, TGC samples, the global trigger table, and the
// per-OEM scheduled-receive list.
func Program(drv Driver, pl plan.Plan, n sequence.Normalized, p *probe.Probe, m *Metrics, obs oemseqerr.Observer) error {
	start := time.Now()
	err := program(drv, pl, n, p, m, obs)
	if m != nil {
		m.ProgramDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			m.ProgramErrors.WithLabelValues(errorKind(err)).Inc()
		}
	}
	return err
}

func errorKind(err error) string {
	switch err.(type) {
	case *oemseqerr.IllegalArgument:
		return "illegal_argument"
	case *oemseqerr.OutOfMemory:
		return "out_of_memory"
	default:
		return "other"
	}
}

func program(drv Driver, pl plan.Plan, n sequence.Normalized, p *probe.Probe, m *Metrics, obs oemseqerr.Observer) error {
	nOEM := p.Adapter.NOEM
	nFire := n.NTx * pl.NSubTx
	if nFire > maxNFire {
		return oemseqerr.NewIllegalArgument("oem.Program", "nFire=%d exceeds %d (invariant 2)", nFire, maxNFire)
	}

	nRep := n.NRepetitions
	if nRep == sequence.RepetitionsMax {
		nRep = maxNTrig / nFire
		if nRep < 1 {
			return oemseqerr.NewIllegalArgument("oem.Program", "no repetitions fit within the %d-entry trigger table for nFire=%d", maxNTrig, nFire)
		}
	}
	nTrig := nFire * nRep
	if nTrig > maxNTrig {
		return oemseqerr.NewIllegalArgument("oem.Program", "nTrig=%d exceeds %d (invariant 3)", nTrig, maxNTrig)
	}

	ddrNeeded := uint64(32) * uint64(n.NSamp) * 2 * uint64(nTrig)
	if ddrNeeded > ddrBudgetBytes {
		return oemseqerr.NewOutOfMemory(-1, ddrNeeded, ddrBudgetBytes)
	}

	for k := 0; k < nOEM; k++ {
		actChan := activeChannelBits(p, k)
		groupBits, err := GroupMask(actChan[:])
		if err != nil {
			return err
		}
		groupHex, err := EncodeMaskString(groupBits[:])
		if err != nil {
			return err
		}

		for t := 0; t < n.NTx; t++ {
			txMask, txDel := txApertureAndDelay(p, pl, actChan, k, t)
			txMaskHex, err := EncodeMaskString(txMask)
			if err != nil {
				return err
			}

			for s := 0; s < pl.NSubTx; s++ {
				f := t*pl.NSubTx + s
				if err := drv.SetTxAperture(k, txMaskHex, f); err != nil {
					return err
				}
				if err := drv.SetTxDelays(k, txDel, f); err != nil {
					return err
				}
				if err := drv.SetTxFrequency(k, n.TxFrequency, f); err != nil {
					return err
				}
				if err := drv.SetTxHalfPeriods(k, 2*n.TxNPeriods, f); err != nil {
					return err
				}
				if err := drv.SetTxInvert(k, 0, f); err != nil {
					return err
				}
				if err := drv.SetActiveChannelGroup(k, groupHex, f); err != nil {
					return err
				}

				rxSubMask := rxSubApertureBits(p, pl, n, actChan, k, t, s)
				rxHex, err := EncodeMaskString(rxSubMask)
				if err != nil {
					return err
				}
				if err := drv.SetRxAperture(k, rxHex, f); err != nil {
					return err
				}
				if err := drv.SetRxTime(k, rxTimeSeconds, f); err != nil {
					return err
				}
				if err := drv.SetRxDelay(k, rxDelaySeconds, f); err != nil {
					return err
				}
				if err := drv.TGCSetSamples(k, n.TgcCurve, f); err != nil {
					return err
				}
			}
		}

		if err := drv.SetNumberOfFirings(k, nFire); err != nil {
			return err
		}
		if m != nil {
			m.Firings.WithLabelValues(strconv.Itoa(k)).Set(float64(nFire))
		}
		if err := drv.EnableTransmit(k); err != nil {
			return err
		}
		if err := drv.EnableReceive(k); err != nil {
			return err
		}

		if err := drv.ClearScheduledReceive(k); err != nil {
			return err
		}
		for i := 0; i < nTrig; i++ {
			if err := drv.ScheduleReceive(k, i*n.NSamp, n.NSamp, n.FsDivider-1, n.StartSample+pipelineDelaySamples); err != nil {
				return err
			}
		}
	}

	if err := drv.SetNTriggers(nTrig); err != nil {
		return err
	}
	if m != nil {
		m.Triggers.Set(float64(nTrig))
	}
	txPriUs := n.TxPri * 1e6
	for i := 0; i < nTrig; i++ {
		syncOut := 0
		if i == nTrig-1 {
			syncOut = 1
		}
		if err := drv.SetTrigger(txPriUs, 0, syncOut, i); err != nil {
			return err
		}
	}

	return nil
}

// activeChannelBits computes actChan[c, k] for c in [1, 128].
func activeChannelBits(p *probe.Probe, k int) [128]bool {
	var bits [128]bool
	for c := 1; c <= 128; c++ {
		bits[c-1] = p.Adapter.IsActiveChannel(c, k, p.NElem)
	}
	return bits
}

// txApertureAndDelay gathers the 128-entry TX aperture mask and delay
// vector physical channel c on OEM k should be programmed with, for
// transmit t.
func txApertureAndDelay(p *probe.Probe, pl plan.Plan, actChan [128]bool, k, t int) ([]bool, []float64) {
	mask := make([]bool, 128)
	delays := make([]float64, 128)
	for c := 1; c <= 128; c++ {
		if !actChan[c-1] {
			continue
		}
		e := p.Adapter.SelectElem(c, k)
		if e < 1 || e > pl.NRows {
			continue
		}
		row := e - 1
		if pl.TxApMask.At(row, t) == 1 {
			mask[c-1] = true
			delays[c-1] = pl.TxDel.At(row, t)
		}
	}
	return mask, delays
}

// rxInAperture reports whether logical channel/element idx (1-indexed)
// is inside the RX aperture for transmit t.
func rxInAperture(p *probe.Probe, pl plan.Plan, n sequence.Normalized, idx, t int) bool {
	if n.Kind == sequence.LIN {
		orig := pl.RxApOrig[t]
		return idx >= orig && idx < orig+pl.RxApSize && idx <= p.NElem
	}
	return idx <= p.NElem
}

// rxSubApertureBits computes rxSubApMask[:, k, f] for firing
// f = t*nSubTx + s, the sub-transmit partitioning of the physical
// channels whose cumulative count of (in-aperture and active) channels
// falls in the s-th group of 32.
func rxSubApertureBits(p *probe.Probe, pl plan.Plan, n sequence.Normalized, actChan [128]bool, k, t, s int) []bool {
	bits := make([]bool, 128)
	cumsum := 0
	for c := 1; c <= 128; c++ {
		if !actChan[c-1] {
			continue
		}
		e := p.Adapter.SelectElem(c, k)
		if !rxInAperture(p, pl, n, e, t) {
			continue
		}
		cumsum++
		group := (cumsum + 31) / 32 // ceil(cumsum/32), 1-indexed
		if group == s+1 {
			bits[c-1] = true
		}
	}
	return bits
}
