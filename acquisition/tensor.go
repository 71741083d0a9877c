// Package acquisition implements the acquisition and demultiplexer (C5):
// arming and triggering the OEMs, transferring per-module buffers, and
// reshaping/permuting them into the canonical 4-D RF tensor, including
// the LIN-mode circular shifts that align each line with its receive
// aperture.
package acquisition

import "fmt"

// RFTensor is the canonical demultiplexed RF data, shaped
// [nSamp, rxChannels, nTx, nRep].
type RFTensor struct {
	NSamp, RxChannels, NTx, NRep int
	Data                         []int16 // column-major (sample varies fastest), index via At/Set
}

// NewRFTensor allocates a zeroed tensor of the given shape.
func NewRFTensor(nSamp, rxChannels, nTx, nRep int) *RFTensor {
	return &RFTensor{
		NSamp: nSamp, RxChannels: rxChannels, NTx: nTx, NRep: nRep,
		Data: make([]int16, nSamp*rxChannels*nTx*nRep),
	}
}

func (r *RFTensor) index(sample, channel, tx, rep int) int {
	return ((rep*r.NTx+tx)*r.RxChannels+channel)*r.NSamp + sample
}

func (r *RFTensor) At(sample, channel, tx, rep int) int16 {
	return r.Data[r.index(sample, channel, tx, rep)]
}

func (r *RFTensor) Set(sample, channel, tx, rep int, v int16) {
	r.Data[r.index(sample, channel, tx, rep)] = v
}

func (r *RFTensor) String() string {
	return fmt.Sprintf("RFTensor[%d x %d x %d x %d]", r.NSamp, r.RxChannels, r.NTx, r.NRep)
}
