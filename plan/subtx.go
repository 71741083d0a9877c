package plan

import (
	"github.com/usoem/oemseq/probe"
	"github.com/usoem/oemseq/sequence"
)

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// nSubTx computes the minimum number of physical RX apertures needed to
// cover the logical RX aperture without repeating any OEM RX channel
// modulo 32.
func nSubTx(kind sequence.ScanKind, nElem, nOEM int, at probe.AdapterType) int {
	if kind == sequence.LIN {
		return 1
	}
	switch at {
	case probe.Packed:
		return minInt(4, ceilDiv(nElem, 32))
	case probe.Interleaved:
		return minInt(4, ceilDiv(minInt(128, nElem), 32*nOEM))
	default:
		return 1
	}
}

// rxApertureSize is 32 physical channels for a packed adapter (one OEM's
// worth) and 32*nOEM for an interleaved one, since every OEM sees the
// full logical channel range under that topology.
func rxApertureSize(at probe.AdapterType, nOEM int) int {
	if at == probe.Interleaved {
		return 32 * nOEM
	}
	return 32
}
