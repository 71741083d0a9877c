// Package probe holds the immutable geometry and adapter wiring of the
// transducer/adapter pair a session is opened against: element positions,
// pitch, and the TX/RX channel maps tying logical channels to OEM lanes.
//
// A Probe is built once from a probe name and adapter tag and never
// mutated afterwards; C2 (sequence normalization) and C3 (aperture/delay
// planning) only ever read from it.
package probe

import (
	"fmt"
	"math"

	"github.com/usoem/oemseq/oemseqerr"
)

// Probe is the immutable element geometry plus the adapter wired to it.
type Probe struct {
	Name    string
	NElem   int
	Pitch   float64 // meters
	XElem   []float64 // length NElem, meters, element e is XElem[e-1] (1-indexed e)
	Adapter *Adapter
}

// New builds a Probe from element count and pitch, and validates it
// against the adapter's channel budget. Element centers are laid out
// symmetric about the origin per the platform's geometry convention.
func New(name string, nElem int, pitch float64, adapter *Adapter) (*Probe, error) {
	if nElem <= 0 {
		return nil, oemseqerr.NewIllegalArgument("probe.New", "nElem must be positive, got %d", nElem)
	}
	if adapter == nil {
		return nil, oemseqerr.NewIllegalArgument("probe.New", "adapter is required")
	}
	if nElem > 128*adapter.NOEM {
		return nil, oemseqerr.NewIllegalArgument("probe.New", "nElem=%d exceeds 128*nOEM=%d", nElem, 128*adapter.NOEM)
	}
	xElem := make([]float64, nElem)
	for i := 0; i < nElem; i++ {
		xElem[i] = (float64(i) - float64(nElem-1)/2) * pitch
	}
	p := &Probe{Name: name, NElem: nElem, Pitch: pitch, XElem: xElem, Adapter: adapter}
	if err := adapter.validate(nElem); err != nil {
		return nil, err
	}
	return p, nil
}

// X returns the position, in meters, of the 1-indexed element e. It is
// valid to call with e outside [1, NElem]; the position is simply the
// affine extrapolation of the array's pitch, which callers use when
// interpolating aperture centers near the edges of the array.
func (p *Probe) X(e float64) float64 {
	// x(e) = (e - 1 - (NElem-1)/2) * pitch, continuous extension of the
	// per-element formula in New.
	return (e - 1 - float64(p.NElem-1)/2) * p.Pitch
}

// ElementAt inverts X: given a position in meters, returns the
// (possibly fractional) 1-indexed element index whose center sits there.
func (p *Probe) ElementAt(x float64) float64 {
	if p.Pitch == 0 {
		return 1
	}
	return x/p.Pitch + 1 + float64(p.NElem-1)/2
}

// InterpXAtElement linearly interpolates the element geometry at a
// fractional 1-indexed element index, extrapolating linearly past the ends
// of the array (matching the "interp1" behavior implied by the request's
// txCenterElement convention).
func (p *Probe) InterpXAtElement(e float64) float64 {
	if e <= 1 {
		lo := p.X(1)
		if p.NElem == 1 {
			return lo
		}
		hi := p.X(2)
		return lo + (e-1)*(hi-lo)
	}
	if e >= float64(p.NElem) {
		hi := p.X(float64(p.NElem))
		if p.NElem == 1 {
			return hi
		}
		lo := p.X(float64(p.NElem - 1))
		return hi + (e-float64(p.NElem))*(hi-lo)
	}
	lo := math.Floor(e)
	frac := e - lo
	if frac == 0 {
		return p.X(lo)
	}
	return p.X(lo) + frac*(p.X(lo+1)-p.X(lo))
}

func (p *Probe) String() string {
	return fmt.Sprintf("probe(%s, nElem=%d, pitch=%gmm, adapter=%s)", p.Name, p.NElem, p.Pitch*1e3, p.Adapter.Type)
}
