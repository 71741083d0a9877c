package session

import (
	"github.com/usoem/oemseq/acquisition"
	"github.com/usoem/oemseq/sequence"
)

// ReconstructionSpec configures the opaque downstream image reconstructor:
// the core neither inspects nor depends on its internals, only on
// this contract.
type ReconstructionSpec struct {
	FilterEnable  bool
	FilterACoeff  []float64
	FilterBCoeff  []float64
	FilterDelay   int
	IQEnable      bool
	CICOrder      int
	Decimation    int
	XGrid         []float64
	ZGrid         []float64
}

// Image is a log-compressed reconstructed frame, laid out [len(ZGrid) x
// len(XGrid)] row-major.
type Image struct {
	Width, Height int
	Data          []float64
}

// Reconstructor turns a canonical RF tensor into a log-compressed image.
// The core does not implement one; the caller passes it to Run or
// RunLoop, while upload() only stores the ReconstructionSpec.
type Reconstructor interface {
	Reconstruct(rf *acquisition.RFTensor, n sequence.Normalized, spec ReconstructionSpec) (*Image, error)
}
