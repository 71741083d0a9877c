package probe

import (
	"fmt"

	"github.com/usoem/oemseq/oemseqerr"
)

// AdapterType is the tagged choice of wiring topology between an OEM's
// physical channels and the probe's logical elements.
type AdapterType int

const (
	// Packed is type-0 ("00001111"): element e is served by OEM
	// floor(e/128), logical channel e mod 128.
	Packed AdapterType = iota
	// Interleaved is type-1 ("01010101"): every OEM sees all 128
	// logical channels, but only a strided subset is active per OEM.
	Interleaved
)

func (t AdapterType) String() string {
	switch t {
	case Packed:
		return "packed"
	case Interleaved:
		return "interleaved"
	default:
		return "unknown"
	}
}

// Adapter is the wiring variant between OEM physical channels and probe
// elements, fixed for the life of a session.
type Adapter struct {
	Type AdapterType
	NOEM int

	// TxChannelMap[k][c] and RxChannelMap[k][c] map logical channel c
	// (0-indexed, 0..127 for TX, 0..31 for RX) on OEM k to the physical
	// hardware lane wired to it. These are adapter properties consumed
	// only by the low-level driver; the aperture/delay math never reads
	// them directly.
	TxChannelMap [][]int
	RxChannelMap [][]int
}

// NewAdapter builds an Adapter, deriving identity channel maps (lane i
// wired straight to logical channel i) when none are supplied. Real
// adapter cabling tables are supplied by the probe library (library.go).
func NewAdapter(t AdapterType, nOEM int, txMap, rxMap [][]int) (*Adapter, error) {
	if nOEM <= 0 {
		return nil, oemseqerr.NewIllegalArgument("probe.NewAdapter", "nOEM must be positive, got %d", nOEM)
	}
	if txMap == nil {
		txMap = identityMap(nOEM, 128)
	}
	if rxMap == nil {
		rxMap = identityMap(nOEM, 32)
	}
	a := &Adapter{Type: t, NOEM: nOEM, TxChannelMap: txMap, RxChannelMap: rxMap}
	if err := a.validateMaps(); err != nil {
		return nil, err
	}
	return a, nil
}

func identityMap(nOEM, width int) [][]int {
	m := make([][]int, nOEM)
	for k := range m {
		m[k] = make([]int, width)
		for c := range m[k] {
			m[k][c] = c
		}
	}
	return m
}

func (a *Adapter) validateMaps() error {
	if len(a.TxChannelMap) != a.NOEM {
		return oemseqerr.NewIllegalArgument("probe.Adapter", "TX channel map has %d OEM rows, want %d", len(a.TxChannelMap), a.NOEM)
	}
	if len(a.RxChannelMap) != a.NOEM {
		return oemseqerr.NewIllegalArgument("probe.Adapter", "RX channel map has %d OEM rows, want %d", len(a.RxChannelMap), a.NOEM)
	}
	for k, row := range a.TxChannelMap {
		if len(row) != 128 {
			return oemseqerr.NewIllegalArgument("probe.Adapter", "TX channel map row %d has width %d, want 128", k, len(row))
		}
		for _, lane := range row {
			if lane < 0 || lane >= 128*a.NOEM {
				return oemseqerr.NewIllegalArgument("probe.Adapter", "TX channel map row %d has out-of-range lane %d", k, lane)
			}
		}
	}
	for k, row := range a.RxChannelMap {
		if len(row) != 32 {
			return oemseqerr.NewIllegalArgument("probe.Adapter", "RX channel map row %d has width %d, want 32", k, len(row))
		}
		for _, lane := range row {
			if lane < 0 || lane >= 32*a.NOEM {
				return oemseqerr.NewIllegalArgument("probe.Adapter", "RX channel map row %d has out-of-range lane %d", k, lane)
			}
		}
	}
	return nil
}

func (a *Adapter) validate(nElem int) error {
	if nElem > 128*a.NOEM {
		return oemseqerr.NewIllegalArgument("probe.Adapter", "nElem=%d exceeds 128*nOEM=%d", nElem, 128*a.NOEM)
	}
	return nil
}

// SelectElem returns the 1-indexed element served by physical channel c
// (1-indexed, 1..128) on OEM k (0-indexed).
func (a *Adapter) SelectElem(c, k int) int {
	switch a.Type {
	case Packed:
		return c + 128*k
	case Interleaved:
		return c
	default:
		return 0
	}
}

// IsActiveChannel reports whether physical channel c (1-indexed, 1..128)
// on OEM k (0-indexed) is wired to a real element of a probe with nElem
// elements.
func (a *Adapter) IsActiveChannel(c, k, nElem int) bool {
	if a.SelectElem(c, k) > nElem {
		return false
	}
	switch a.Type {
	case Packed:
		return true
	case Interleaved:
		group := (c - 1) / 32 // 0-indexed group of 32 channels, ceil(c/32)-1
		return ((group % a.NOEM) + a.NOEM) % a.NOEM == k
	default:
		return false
	}
}

func (a *Adapter) String() string {
	return fmt.Sprintf("adapter(%s, nOEM=%d)", a.Type, a.NOEM)
}
