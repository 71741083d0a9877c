// Package session implements the upstream consumer API: opening a
// bring-up sequence against a probe/adapter pair, uploading a scan
// request through the normalizer, planner and hardware programmer, and
// running acquisitions either once or in a loop.
package session

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/usoem/oemseq/acquisition"
	"github.com/usoem/oemseq/oem"
	"github.com/usoem/oemseq/oemseqerr"
	"github.com/usoem/oemseq/plan"
	"github.com/usoem/oemseq/probe"
	"github.com/usoem/oemseq/sequence"
)

// bring-up register targets.
const (
	bringupPGAGainDB     = 30
	bringupLPFCutoffHz   = 15e6
	bringupActiveTermOhm = 200
	bringupLNAGainDB     = 24
)

// Session ties a hardware driver, a probe, and the most recently uploaded
// plan together, and is the receiver for the upstream API's four
// operations.
type Session struct {
	ID     string
	Driver oem.Driver
	Probe  *probe.Probe
	Config Config

	Metrics *oem.Metrics

	logger *log.Logger
	obs    oemseqerr.Observer

	normalized sequence.Normalized
	plan       plan.Plan
	reconSpec  *ReconstructionSpec
	ring       *acquisition.FrameRing
	clock      acquisition.Clock
}

// logObserver forwards oemseqerr warnings to the session's logger.
type logObserver struct{ logger *log.Logger }

func (o logObserver) Warn(op, format string, args ...interface{}) {
	o.logger.Warnf("%s: "+format, append([]interface{}{op}, args...)...)
}

// Open resolves the probe/adapter pair, programs bring-up registers, and
// enables high voltage, retrying once on failure.
func Open(drv oem.Driver, probeName, adapterTag string, nOEM int, voltageHalfVpp float64, logTiming bool, lib *probe.Library, reg prometheus.Registerer) (*Session, error) {
	p, err := lib.Get(probeName, adapterTag, nOEM)
	if err != nil {
		return nil, err
	}
	if voltageHalfVpp < 0 || voltageHalfVpp > 90 {
		return nil, oemseqerr.NewIllegalArgument("session.Open", "voltage %g out of range [0, 90]", voltageHalfVpp)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: logTiming, Prefix: "oemseq"})

	cfg := DefaultConfig()
	cfg.LogTiming = logTiming

	var metrics *oem.Metrics
	if reg != nil {
		metrics = oem.NewMetrics(reg)
	}

	s := &Session{
		ID:      uuid.NewString(),
		Driver:  drv,
		Probe:   p,
		Config:  cfg,
		Metrics: metrics,
		logger:  logger,
		ring:    acquisition.NewFrameRing(cfg.FrameRingSize),
	}
	s.obs = logObserver{logger: logger}

	nOEMActual := p.Adapter.NOEM
	for k := 0; k < nOEMActual; k++ {
		if err := s.Driver.SetChannelMap(k, p.Adapter.TxChannelMap[k], p.Adapter.RxChannelMap[k]); err != nil {
			return nil, err
		}
		if err := s.Driver.SetPGAGain(k, bringupPGAGainDB); err != nil {
			return nil, err
		}
		if err := s.Driver.SetLPFCutoff(k, bringupLPFCutoffHz); err != nil {
			return nil, err
		}
		if err := s.Driver.SetActiveTermination(k, bringupActiveTermOhm); err != nil {
			return nil, err
		}
		if err := s.Driver.SetLNAGain(k, bringupLNAGainDB); err != nil {
			return nil, err
		}
		if err := s.Driver.SetDTGCEnabled(k, false); err != nil {
			return nil, err
		}
		if err := s.Driver.SetTGCEnabled(k, true); err != nil {
			return nil, err
		}
	}

	if err := s.retryOnce("EnableHV", func() error { return s.Driver.EnableHV() }); err != nil {
		return nil, err
	}
	if err := s.retryOnce("SetHVVoltage", func() error { return s.Driver.SetHVVoltage(voltageHalfVpp) }); err != nil {
		return nil, err
	}

	logger.Infof("session %s opened: probe=%s adapter=%s nOEM=%d voltage=%g", s.ID, probeName, adapterTag, nOEMActual, voltageHalfVpp)
	return s, nil
}

// retryOnce calls fn, and on failure emits a warning and calls it exactly
// one more time.
func (s *Session) retryOnce(op string, fn func() error) error {
	if err := fn(); err != nil {
		oemseqerr.Warn(s.obs, op, "first attempt failed (%v), retrying once", err)
		return fn()
	}
	return nil
}

// Upload implements upload(request): it runs the request through the
// normalizer (C2) and planner (C3), then programs the hardware (C4). The
// reconstruction spec is stored for later Run() calls and is otherwise
// opaque to the core.
func (s *Session) Upload(req sequence.Request, recon *ReconstructionSpec) error {
	n, err := sequence.Normalize(req, s.Probe, s.obs)
	if err != nil {
		return err
	}
	pl, err := plan.Build(n, s.Probe)
	if err != nil {
		return err
	}
	if err := oem.Program(s.Driver, pl, n, s.Probe, s.Metrics, s.obs); err != nil {
		return err
	}
	s.normalized = n
	s.plan = pl
	s.reconSpec = recon
	return nil
}

// Run implements run() → rf: it drives one full acquisition cycle
// (open/run/close of C5) against the most recently uploaded plan and
// returns the canonical RF tensor, optionally reconstructing an image if
// a Reconstructor and ReconstructionSpec were supplied.
func (s *Session) Run(rec Reconstructor) (*acquisition.RFTensor, *Image, error) {
	if s.plan.NTx == 0 {
		return nil, nil, oemseqerr.NewIllegalArgument("session.Run", "no plan has been uploaded")
	}
	acq := &acquisition.Acquisition{
		Driver:     s.Driver,
		Plan:       s.plan,
		Normalized: s.normalized,
		Probe:      s.Probe,
		Clock:      s.clock,
	}
	if err := acq.Open(); err != nil {
		return nil, nil, err
	}
	rf, err := acq.Run()
	closeErr := acq.Close()
	if err != nil {
		return nil, nil, err
	}
	if closeErr != nil {
		return nil, nil, closeErr
	}

	s.ring.Push(rf, time.Now())

	var img *Image
	if rec != nil && s.reconSpec != nil {
		img, err = rec.Reconstruct(rf, s.normalized, *s.reconSpec)
		if err != nil {
			return rf, nil, err
		}
	}
	return rf, img, nil
}

// RunLoop implements runLoop(shouldContinue, onFrame): it repeats Run()
// until shouldContinue returns false, invoking onFrame with each result.
// A failure aborts the loop and returns the underlying error.
func (s *Session) RunLoop(rec Reconstructor, shouldContinue func() bool, onFrame func(*acquisition.RFTensor, *Image)) error {
	for shouldContinue() {
		rf, img, err := s.Run(rec)
		if err != nil {
			return err
		}
		onFrame(rf, img)
	}
	return nil
}

// Close releases the underlying hardware driver. There is no
// mid-acquisition cancellation: calling Close during a Run is not
// supported.
func (s *Session) Close() error {
	return s.Driver.Close()
}

// Latest returns the most recently completed frame, or the zero Frame if
// none has run yet.
func (s *Session) Latest() acquisition.Frame {
	return s.ring.Latest()
}
