package oem

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/usoem/oemseq/oemseqerr"
)

// ddrBudget is the 4 GiB-per-OEM DDR budget scheduled receives must fit
// within.
const ddrBudget = uint64(1) << 32

// firingState is the per-firing hardware schedule entry: a 128-bit TX
// aperture mask, a 128-entry TX delay vector, a 16-bit active-channel-
// group mask, and a 128-bit RX aperture mask.
type firingState struct {
	txApertureHex string
	txDelays      []float64
	txFrequency   float64
	txHalfPeriods int
	txInvert      int
	groupHex      string
	rxApertureHex string
	rxTime        float64
	rxDelay       float64
	tgcCurve      []float64
}

type scheduledReceive struct {
	offset, length, decimation, startDelay int
}

type trigger struct {
	txPriUs          float64
	syncIn, syncOut  int
}

type oemState struct {
	Regs         BringupRegisters
	txChannelMap []int
	rxChannelMap []int
	firings      []firingState
	nFire        int
	txEnabled    bool
	rxEnabled    bool
	schedule     []scheduledReceive
	ddr          []byte // anonymous-mmap'd DDR buffer, allocated lazily
}

// SimDriver is a software model of the OEM hardware, backed by an
// anonymous memory-mapped DDR buffer per module rather than /dev/mem —
// it exercises the same DDR-budget check a real mmap-backed register bank
// would, without needing physical hardware. Mask strings are stored as
// given, without a width check.
// It records every command it receives so tests can assert on the exact
// sequence C4 issues.
type SimDriver struct {
	noem  int
	oems  []oemState
	nTrig int
	trigs []trigger

	triggerStarts int
	triggerSyncs  int
	triggerStops  int

	// Calls records every method invocation, in order, for assertions in
	// tests that care about the exact wire sequence.
	Calls []string
}

// NewSimDriver builds a simulator for nOEM modules.
func NewSimDriver(nOEM int) *SimDriver {
	oems := make([]oemState, nOEM)
	for i := range oems {
		oems[i].Regs = DefaultBringupRegisters()
	}
	return &SimDriver{noem: nOEM, oems: oems}
}

func (d *SimDriver) record(format string, args ...interface{}) {
	d.Calls = append(d.Calls, fmt.Sprintf(format, args...))
}

func (d *SimDriver) checkOEM(oem int) error {
	if oem < 0 || oem >= d.noem {
		return oemseqerr.NewIllegalArgument("oem.SimDriver", "oem index %d out of range [0, %d)", oem, d.noem)
	}
	return nil
}

func (d *SimDriver) NOEM() int { return d.noem }

// SetChannelMap records the adapter's TX/RX cabling table for oem, the
// wiring session.Open programs once at bring-up before any per-firing
// commands are issued.
func (d *SimDriver) SetChannelMap(oem int, txMap, rxMap []int) error {
	if err := d.checkOEM(oem); err != nil {
		return err
	}
	cpTx := make([]int, len(txMap))
	copy(cpTx, txMap)
	cpRx := make([]int, len(rxMap))
	copy(cpRx, rxMap)
	d.oems[oem].txChannelMap = cpTx
	d.oems[oem].rxChannelMap = cpRx
	d.record("SetChannelMap(%d, len=%d, len=%d)", oem, len(txMap), len(rxMap))
	return nil
}

func (d *SimDriver) SetPGAGain(oem int, db float64) error {
	if err := d.checkOEM(oem); err != nil {
		return err
	}
	d.oems[oem].Regs.PGAGainDB = db
	d.record("SetPGAGain(%d, %g)", oem, db)
	return nil
}

func (d *SimDriver) SetLPFCutoff(oem int, hz float64) error {
	if err := d.checkOEM(oem); err != nil {
		return err
	}
	d.oems[oem].Regs.LPFCutoffHz = hz
	d.record("SetLPFCutoff(%d, %g)", oem, hz)
	return nil
}

func (d *SimDriver) SetActiveTermination(oem int, ohm float64) error {
	if err := d.checkOEM(oem); err != nil {
		return err
	}
	d.oems[oem].Regs.ActiveTermOhm = ohm
	d.record("SetActiveTermination(%d, %g)", oem, ohm)
	return nil
}

func (d *SimDriver) SetLNAGain(oem int, db float64) error {
	if err := d.checkOEM(oem); err != nil {
		return err
	}
	d.oems[oem].Regs.LNAGainDB = db
	d.record("SetLNAGain(%d, %g)", oem, db)
	return nil
}

func (d *SimDriver) SetDTGCEnabled(oem int, enabled bool) error {
	if err := d.checkOEM(oem); err != nil {
		return err
	}
	d.oems[oem].Regs.DTGCEnabled = enabled
	d.record("SetDTGCEnabled(%d, %v)", oem, enabled)
	return nil
}

func (d *SimDriver) SetTGCEnabled(oem int, enabled bool) error {
	if err := d.checkOEM(oem); err != nil {
		return err
	}
	d.oems[oem].Regs.TGCEnabled = enabled
	d.record("SetTGCEnabled(%d, %v)", oem, enabled)
	return nil
}

func (d *SimDriver) EnableHV() error {
	for i := range d.oems {
		d.oems[i].Regs.HVEnabled = true
	}
	d.record("EnableHV()")
	return nil
}

func (d *SimDriver) SetHVVoltage(halfVpp float64) error {
	if halfVpp < 0 || halfVpp > 90 {
		return oemseqerr.NewIllegalArgument("oem.SimDriver", "HV voltage %g out of range [0, 90]", halfVpp)
	}
	for i := range d.oems {
		d.oems[i].Regs.HVVoltage = halfVpp
	}
	d.record("SetHVVoltage(%g)", halfVpp)
	return nil
}

func (d *SimDriver) firingSlot(oem, firing int) (*oemState, error) {
	if err := d.checkOEM(oem); err != nil {
		return nil, err
	}
	st := &d.oems[oem]
	for len(st.firings) <= firing {
		st.firings = append(st.firings, firingState{})
	}
	return st, nil
}

func (d *SimDriver) SetTxAperture(oem int, maskHex string, firing int) error {
	st, err := d.firingSlot(oem, firing)
	if err != nil {
		return err
	}
	st.firings[firing].txApertureHex = maskHex
	d.record("SetTxAperture(%d, %s, %d)", oem, maskHex, firing)
	return nil
}

func (d *SimDriver) SetTxDelays(oem int, delays []float64, firing int) error {
	st, err := d.firingSlot(oem, firing)
	if err != nil {
		return err
	}
	cp := make([]float64, len(delays))
	copy(cp, delays)
	st.firings[firing].txDelays = cp
	d.record("SetTxDelays(%d, len=%d, %d)", oem, len(delays), firing)
	return nil
}

func (d *SimDriver) SetTxFrequency(oem int, hz float64, firing int) error {
	st, err := d.firingSlot(oem, firing)
	if err != nil {
		return err
	}
	st.firings[firing].txFrequency = hz
	d.record("SetTxFrequency(%d, %g, %d)", oem, hz, firing)
	return nil
}

func (d *SimDriver) SetTxHalfPeriods(oem int, halfPeriods int, firing int) error {
	st, err := d.firingSlot(oem, firing)
	if err != nil {
		return err
	}
	st.firings[firing].txHalfPeriods = halfPeriods
	d.record("SetTxHalfPeriods(%d, %d, %d)", oem, halfPeriods, firing)
	return nil
}

func (d *SimDriver) SetTxInvert(oem int, invert int, firing int) error {
	st, err := d.firingSlot(oem, firing)
	if err != nil {
		return err
	}
	st.firings[firing].txInvert = invert
	d.record("SetTxInvert(%d, %d, %d)", oem, invert, firing)
	return nil
}

func (d *SimDriver) SetActiveChannelGroup(oem int, maskHex string, firing int) error {
	st, err := d.firingSlot(oem, firing)
	if err != nil {
		return err
	}
	st.firings[firing].groupHex = maskHex
	d.record("SetActiveChannelGroup(%d, %s, %d)", oem, maskHex, firing)
	return nil
}

func (d *SimDriver) SetRxAperture(oem int, maskHex string, firing int) error {
	st, err := d.firingSlot(oem, firing)
	if err != nil {
		return err
	}
	st.firings[firing].rxApertureHex = maskHex
	d.record("SetRxAperture(%d, %s, %d)", oem, maskHex, firing)
	return nil
}

func (d *SimDriver) SetRxTime(oem int, seconds float64, firing int) error {
	st, err := d.firingSlot(oem, firing)
	if err != nil {
		return err
	}
	st.firings[firing].rxTime = seconds
	d.record("SetRxTime(%d, %g, %d)", oem, seconds, firing)
	return nil
}

func (d *SimDriver) SetRxDelay(oem int, seconds float64, firing int) error {
	st, err := d.firingSlot(oem, firing)
	if err != nil {
		return err
	}
	st.firings[firing].rxDelay = seconds
	d.record("SetRxDelay(%d, %g, %d)", oem, seconds, firing)
	return nil
}

func (d *SimDriver) TGCSetSamples(oem int, curve []float64, firing int) error {
	st, err := d.firingSlot(oem, firing)
	if err != nil {
		return err
	}
	cp := make([]float64, len(curve))
	copy(cp, curve)
	st.firings[firing].tgcCurve = cp
	d.record("TGCSetSamples(%d, len=%d, %d)", oem, len(curve), firing)
	return nil
}

func (d *SimDriver) SetNumberOfFirings(oem int, nFire int) error {
	if err := d.checkOEM(oem); err != nil {
		return err
	}
	d.oems[oem].nFire = nFire
	d.oems[oem].Regs.NumberOfFirings = nFire
	d.record("SetNumberOfFirings(%d, %d)", oem, nFire)
	return nil
}

func (d *SimDriver) EnableTransmit(oem int) error {
	if err := d.checkOEM(oem); err != nil {
		return err
	}
	d.oems[oem].txEnabled = true
	d.record("EnableTransmit(%d)", oem)
	return nil
}

func (d *SimDriver) EnableReceive(oem int) error {
	if err := d.checkOEM(oem); err != nil {
		return err
	}
	d.oems[oem].rxEnabled = true
	d.record("EnableReceive(%d)", oem)
	return nil
}

func (d *SimDriver) SetNTriggers(n int) error {
	d.nTrig = n
	d.trigs = make([]trigger, 0, n)
	for i := range d.oems {
		d.oems[i].Regs.NumberOfTriggers = n
	}
	d.record("SetNTriggers(%d)", n)
	return nil
}

func (d *SimDriver) SetTrigger(txPriUs float64, syncIn, syncOut int, index int) error {
	for len(d.trigs) <= index {
		d.trigs = append(d.trigs, trigger{})
	}
	d.trigs[index] = trigger{txPriUs: txPriUs, syncIn: syncIn, syncOut: syncOut}
	d.record("SetTrigger(%g, %d, %d, %d)", txPriUs, syncIn, syncOut, index)
	return nil
}

func (d *SimDriver) ClearScheduledReceive(oem int) error {
	if err := d.checkOEM(oem); err != nil {
		return err
	}
	d.oems[oem].schedule = nil
	d.record("ClearScheduledReceive(%d)", oem)
	return nil
}

// ScheduleReceive records the receive and, whenever the OEM's anonymous
// DDR buffer is too small to hold this record, re-maps it at the larger
// size, failing with OutOfMemory if the request would exceed the
// 4 GiB-per-OEM budget.
func (d *SimDriver) ScheduleReceive(oem int, offset, length, decimation, startDelay int) error {
	if err := d.checkOEM(oem); err != nil {
		return err
	}
	st := &d.oems[oem]
	st.schedule = append(st.schedule, scheduledReceive{offset, length, decimation, startDelay})
	needed := uint64(offset+length) * 32 * 2
	if needed > ddrBudget {
		return oemseqerr.NewOutOfMemory(oem, needed, ddrBudget)
	}
	if uint64(len(st.ddr)) < needed {
		if err := d.growDDR(oem, needed); err != nil {
			return err
		}
	}
	d.record("ScheduleReceive(%d, %d, %d, %d, %d)", oem, offset, length, decimation, startDelay)
	return nil
}

func (d *SimDriver) growDDR(oem int, needed uint64) error {
	st := &d.oems[oem]
	if st.ddr != nil {
		if err := unix.Munmap(st.ddr); err != nil {
			return fmt.Errorf("oem.SimDriver: unmap ddr for oem %d: %w", oem, err)
		}
	}
	buf, err := unix.Mmap(-1, 0, int(needed), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return fmt.Errorf("oem.SimDriver: mmap %d bytes for oem %d ddr: %w", needed, oem, err)
	}
	st.ddr = buf
	return nil
}

func (d *SimDriver) TriggerStart() error {
	d.triggerStarts++
	d.record("TriggerStart()")
	return nil
}

func (d *SimDriver) TriggerSync() error {
	d.triggerSyncs++
	d.record("TriggerSync()")
	return nil
}

func (d *SimDriver) TriggerStop() error {
	d.triggerStops++
	d.record("TriggerStop()")
	return nil
}

// TransferAllRXBuffersToHost returns nSamples[i] samples for each
// requested OEM. The simulated DDR is not read: the simulator never drove
// real acquisition hardware, so it synthesizes a deterministic ramp
// pattern (dependent on the flat sample index and the OEM) instead of
// zeros, so that
// Demux's reshape/permute logic can be exercised end-to-end in tests.
func (d *SimDriver) TransferAllRXBuffersToHost(oems []int, nSamples []int) ([][]int16, error) {
	if len(oems) != len(nSamples) {
		return nil, oemseqerr.NewIllegalArgument("oem.SimDriver", "oems and nSamples must have the same length")
	}
	out := make([][]int16, len(oems))
	for i, k := range oems {
		if err := d.checkOEM(k); err != nil {
			return nil, err
		}
		n := nSamples[i]
		buf := make([]int16, n)
		for s := 0; s < n; s++ {
			buf[s] = int16((s*7 + k*1000031) % 32767)
		}
		out[i] = buf
	}
	d.record("TransferAllRXBuffersToHost(%v, %v)", oems, nSamples)
	return out, nil
}

func (d *SimDriver) Close() error {
	for i := range d.oems {
		if d.oems[i].ddr != nil {
			_ = unix.Munmap(d.oems[i].ddr)
			d.oems[i].ddr = nil
		}
	}
	d.record("Close()")
	return nil
}
