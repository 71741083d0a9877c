package oem

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tarm/serial"

	"github.com/usoem/oemseq/oemseqerr"
)

// SerialDriver drives real OEM hardware over a serial line, encoding
// each command as a single newline-terminated text frame and reading
// back a one-line acknowledgement. This mirrors the native serial
// transport wrapping used elsewhere in this codebase's ancestry, minus
// the binary VLQ/CRC framing that transport needs for a noisy radio
// link: a wired serial connection to bench hardware does not need it.
type SerialDriver struct {
	port   *serial.Port
	reader *bufio.Reader
	noem   int
}

// OpenSerialDriver opens the named serial port at baud and returns a
// Driver that speaks the OEM text protocol over it.
func OpenSerialDriver(name string, baud int, nOEM int) (*SerialDriver, error) {
	cfg := &serial.Config{Name: name, Baud: baud, ReadTimeout: 5 * time.Second}
	p, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, fmt.Errorf("oem.SerialDriver: open %s: %w", name, err)
	}
	return &SerialDriver{port: p, reader: bufio.NewReader(p), noem: nOEM}, nil
}

func (d *SerialDriver) NOEM() int { return d.noem }

func (d *SerialDriver) command(format string, args ...interface{}) error {
	line := fmt.Sprintf(format, args...) + "\n"
	if _, err := d.port.Write([]byte(line)); err != nil {
		return fmt.Errorf("oem.SerialDriver: write: %w", err)
	}
	resp, err := d.reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("oem.SerialDriver: read ack: %w", err)
	}
	resp = strings.TrimSpace(resp)
	if resp == "OK" {
		return nil
	}
	return fmt.Errorf("oem.SerialDriver: %s -> %s", strings.TrimSpace(line), resp)
}

func (d *SerialDriver) SetChannelMap(oem int, txMap, rxMap []int) error {
	return d.command("CHMAP %d %s %s", oem, joinInts(txMap), joinInts(rxMap))
}

func (d *SerialDriver) SetPGAGain(oem int, db float64) error { return d.command("PGA %d %g", oem, db) }
func (d *SerialDriver) SetLPFCutoff(oem int, hz float64) error {
	return d.command("LPF %d %g", oem, hz)
}
func (d *SerialDriver) SetActiveTermination(oem int, ohm float64) error {
	return d.command("ATERM %d %g", oem, ohm)
}
func (d *SerialDriver) SetLNAGain(oem int, db float64) error { return d.command("LNA %d %g", oem, db) }
func (d *SerialDriver) SetDTGCEnabled(oem int, enabled bool) error {
	return d.command("DTGC %d %d", oem, boolToInt(enabled))
}
func (d *SerialDriver) SetTGCEnabled(oem int, enabled bool) error {
	return d.command("TGC %d %d", oem, boolToInt(enabled))
}
func (d *SerialDriver) EnableHV() error { return d.command("HVEN") }
func (d *SerialDriver) SetHVVoltage(halfVpp float64) error {
	if halfVpp < 0 || halfVpp > 90 {
		return oemseqerr.NewIllegalArgument("oem.SerialDriver", "HV voltage %g out of range [0, 90]", halfVpp)
	}
	return d.command("HVSET %g", halfVpp)
}

func (d *SerialDriver) SetTxAperture(oem int, maskHex string, firing int) error {
	return d.command("TXAP %d %s %d", oem, maskHex, firing)
}
func (d *SerialDriver) SetTxDelays(oem int, delays []float64, firing int) error {
	return d.command("TXDEL %d %s %d", oem, joinFloats(delays), firing)
}
func (d *SerialDriver) SetTxFrequency(oem int, hz float64, firing int) error {
	return d.command("TXFREQ %d %g %d", oem, hz, firing)
}
func (d *SerialDriver) SetTxHalfPeriods(oem int, halfPeriods int, firing int) error {
	return d.command("TXHP %d %d %d", oem, halfPeriods, firing)
}
func (d *SerialDriver) SetTxInvert(oem int, invert int, firing int) error {
	return d.command("TXINV %d %d %d", oem, invert, firing)
}
func (d *SerialDriver) SetActiveChannelGroup(oem int, maskHex string, firing int) error {
	return d.command("ACG %d %s %d", oem, maskHex, firing)
}
func (d *SerialDriver) SetRxAperture(oem int, maskHex string, firing int) error {
	return d.command("RXAP %d %s %d", oem, maskHex, firing)
}
func (d *SerialDriver) SetRxTime(oem int, seconds float64, firing int) error {
	return d.command("RXTIME %d %g %d", oem, seconds, firing)
}
func (d *SerialDriver) SetRxDelay(oem int, seconds float64, firing int) error {
	return d.command("RXDEL %d %g %d", oem, seconds, firing)
}
func (d *SerialDriver) TGCSetSamples(oem int, curve []float64, firing int) error {
	return d.command("TGCSET %d %s %d", oem, joinFloats(curve), firing)
}
func (d *SerialDriver) SetNumberOfFirings(oem int, nFire int) error {
	return d.command("NFIRE %d %d", oem, nFire)
}
func (d *SerialDriver) EnableTransmit(oem int) error { return d.command("TXEN %d", oem) }
func (d *SerialDriver) EnableReceive(oem int) error  { return d.command("RXEN %d", oem) }

func (d *SerialDriver) SetNTriggers(n int) error { return d.command("NTRIG %d", n) }
func (d *SerialDriver) SetTrigger(txPriUs float64, syncIn, syncOut int, index int) error {
	return d.command("TRIG %g %d %d %d", txPriUs, syncIn, syncOut, index)
}

func (d *SerialDriver) ClearScheduledReceive(oem int) error {
	return d.command("SRCLR %d", oem)
}
func (d *SerialDriver) ScheduleReceive(oem int, offset, length, decimation, startDelay int) error {
	return d.command("SR %d %d %d %d %d", oem, offset, length, decimation, startDelay)
}

func (d *SerialDriver) TriggerStart() error { return d.command("TSTART") }
func (d *SerialDriver) TriggerSync() error  { return d.command("TSYNC") }
func (d *SerialDriver) TriggerStop() error  { return d.command("TSTOP") }

// TransferAllRXBuffersToHost requests each OEM's buffer in turn and
// parses the comma-separated int16 payload the device echoes back.
func (d *SerialDriver) TransferAllRXBuffersToHost(oems []int, nSamples []int) ([][]int16, error) {
	out := make([][]int16, len(oems))
	for i, k := range oems {
		line := fmt.Sprintf("XFER %d %d\n", k, nSamples[i])
		if _, err := d.port.Write([]byte(line)); err != nil {
			return nil, fmt.Errorf("oem.SerialDriver: write XFER: %w", err)
		}
		resp, err := d.reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("oem.SerialDriver: read XFER payload: %w", err)
		}
		fields := strings.Split(strings.TrimSpace(resp), ",")
		buf := make([]int16, 0, len(fields))
		for _, f := range fields {
			if f == "" {
				continue
			}
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("oem.SerialDriver: malformed sample %q: %w", f, err)
			}
			buf = append(buf, int16(v))
		}
		out[i] = buf
	}
	return out, nil
}

func (d *SerialDriver) Close() error {
	return d.port.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func joinFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
