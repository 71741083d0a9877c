package oem

// Driver is the downstream hardware driver contract: the command set the
// programmer issues, plus the acquisition-time commands an Acquisition
// uses. Commands addressed to OEM index 0 are device-global (HV
// enable/voltage, the trigger table). All calls are synchronous;
// implementations propagate driver errors unchanged except for
// EnableHV/SetHVVoltage, which the caller (session.Open) retries once.
type Driver interface {
	// Bring-up (session_open).
	SetChannelMap(oem int, txMap, rxMap []int) error
	SetPGAGain(oem int, db float64) error
	SetLPFCutoff(oem int, hz float64) error
	SetActiveTermination(oem int, ohm float64) error
	SetLNAGain(oem int, db float64) error
	SetDTGCEnabled(oem int, enabled bool) error
	SetTGCEnabled(oem int, enabled bool) error
	EnableHV() error
	SetHVVoltage(halfVpp float64) error

	// Per-firing programming.
	SetTxAperture(oem int, maskHex string, firing int) error
	SetTxDelays(oem int, delays []float64, firing int) error
	SetTxFrequency(oem int, hz float64, firing int) error
	SetTxHalfPeriods(oem int, halfPeriods int, firing int) error
	SetTxInvert(oem int, invert int, firing int) error
	SetActiveChannelGroup(oem int, maskHex string, firing int) error
	SetRxAperture(oem int, maskHex string, firing int) error
	SetRxTime(oem int, seconds float64, firing int) error
	SetRxDelay(oem int, seconds float64, firing int) error
	TGCSetSamples(oem int, curve []float64, firing int) error
	SetNumberOfFirings(oem int, nFire int) error
	EnableTransmit(oem int) error
	EnableReceive(oem int) error

	// Trigger table (OEM 0 only).
	SetNTriggers(n int) error
	SetTrigger(txPriUs float64, syncIn, syncOut int, index int) error

	// Scheduled receive.
	ClearScheduledReceive(oem int) error
	ScheduleReceive(oem int, offset, length, decimation, startDelay int) error

	// Acquisition control.
	TriggerStart() error
	TriggerSync() error
	TriggerStop() error

	// Bulk transfer: for each requested OEM index, returns nSamples
	// int16 values read back from that OEM's DDR buffer.
	TransferAllRXBuffersToHost(oems []int, nSamples []int) ([][]int16, error)

	NOEM() int
	Close() error
}
