// Package oem lowers a Plan into the deterministic sequence of per-OEM
// operations the hardware driver contract expects: TX apertures, delays,
// frequency, RX apertures, TGC samples, scheduled receives and the
// trigger table, plus the Driver abstraction and its simulated, serial,
// and file-replay implementations.
package oem

import (
	"encoding/hex"

	"github.com/usoem/oemseq/oemseqerr"
)

// EncodeMaskString packs a slice of bools, MSB-first (bit 0 of the
// logical channel is the most significant bit of the encoded number),
// into an n-bit big-endian hex string. len(bits) must be a multiple of 4.
func EncodeMaskString(bits []bool) (string, error) {
	if len(bits)%4 != 0 {
		return "", oemseqerr.NewIllegalArgument("oem.EncodeMaskString", "mask length %d is not a multiple of 4", len(bits))
	}
	nBytes := (len(bits) + 7) / 8
	buf := make([]byte, nBytes)
	for i, b := range bits {
		if !b {
			continue
		}
		bitPos := len(bits) - 1 - i // MSB-first within the whole number
		buf[nBytes-1-bitPos/8] |= 1 << uint(bitPos%8)
	}
	s := hex.EncodeToString(buf)
	// Trim to exactly len(bits)/4 hex digits (hex.EncodeToString always
	// emits whole bytes, i.e. an even digit count).
	want := len(bits) / 4
	if len(s) > want {
		s = s[len(s)-want:]
	}
	return s, nil
}

// DecodeMaskString is EncodeMaskString's inverse.
func DecodeMaskString(s string, nBits int) ([]bool, error) {
	if nBits%4 != 0 {
		return nil, oemseqerr.NewIllegalArgument("oem.DecodeMaskString", "nBits %d is not a multiple of 4", nBits)
	}
	if len(s) != nBits/4 {
		return nil, oemseqerr.NewIllegalArgument("oem.DecodeMaskString", "hex string length %d does not match nBits=%d", len(s), nBits)
	}
	padded := s
	if len(padded)%2 != 0 {
		padded = "0" + padded
	}
	buf, err := hex.DecodeString(padded)
	if err != nil {
		return nil, oemseqerr.NewIllegalArgument("oem.DecodeMaskString", "invalid hex string %q: %v", s, err)
	}
	nBytes := len(buf)
	bits := make([]bool, nBits)
	for i := range bits {
		bitPos := nBits - 1 - i
		bits[i] = buf[nBytes-1-bitPos/8]&(1<<uint(bitPos%8)) != 0
	}
	return bits, nil
}

// groupPermutation is the fixed 16-element wiring permutation:
// reshape(perm(reshape(mask, 4, 2, 2), [3 2 1]), 16), computed once using
// MATLAB/Fortran (column-major) reshape semantics matching the hardware
// pin-order documentation. groupPermutation[i0] is the index the input
// bit at position i0 lands at in the output.
var groupPermutation = computeGroupPermutation()

func computeGroupPermutation() [16]int {
	var perm [16]int
	for a := 1; a <= 4; a++ {
		for b := 1; b <= 2; b++ {
			for c := 1; c <= 2; c++ {
				i0 := (a - 1) + 4*(b-1) + 8*(c-1)
				j0 := (c - 1) + 2*(b-1) + 4*(a-1)
				perm[i0] = j0
			}
		}
	}
	return perm
}

// GroupMask compresses a 128-bit active-channel mask into the 16-bit
// active-channel-group mask the hardware expects: each run of 8
// consecutive channels collapses to one bit (set if any channel in the
// run is active), then the fixed pin-order permutation is applied.
func GroupMask(mask []bool) ([16]bool, error) {
	if len(mask) != 128 {
		return [16]bool{}, oemseqerr.NewIllegalArgument("oem.GroupMask", "mask must have 128 entries, got %d", len(mask))
	}
	var groups [16]bool
	for g := 0; g < 16; g++ {
		any := false
		for i := 0; i < 8; i++ {
			if mask[8*g+i] {
				any = true
				break
			}
		}
		groups[g] = any
	}
	var out [16]bool
	for i0, v := range groups {
		out[groupPermutation[i0]] = v
	}
	return out, nil
}

// UngroupMask inverts the fixed pin-order permutation GroupMask applies,
// recovering the pre-permutation 16-bit group vector.
func UngroupMask(permuted [16]bool) [16]bool {
	var out [16]bool
	for i0, j0 := range groupPermutation {
		out[i0] = permuted[j0]
	}
	return out
}
