package oem

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/usoem/oemseq/oemseqerr"
)

// FileDriver replays a previously-recorded raw RF dataset instead of
// driving live hardware, for developing and testing reconstruction
// pipelines offline. It embeds a SimDriver for all of the bookkeeping
// (register shadow, firing tables, trigger table) and only overrides the
// bulk transfer to serve samples from the loaded file, looping back to
// the start once exhausted the same way a bench replay tool cycles a
// captured dataset.
type FileDriver struct {
	*SimDriver
	dataset []int16
	cursor  int
}

// OpenFileDriver loads a little-endian int16 raw dataset from path.
func OpenFileDriver(path string, nOEM int) (*FileDriver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("oem.FileDriver: read %s: %w", path, err)
	}
	if len(data)%2 != 0 {
		return nil, oemseqerr.NewIllegalArgument("oem.OpenFileDriver", "dataset %s has an odd byte length", path)
	}
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	if len(samples) == 0 {
		return nil, oemseqerr.NewIllegalArgument("oem.OpenFileDriver", "dataset %s is empty", path)
	}
	return &FileDriver{SimDriver: NewSimDriver(nOEM), dataset: samples}, nil
}

// TransferAllRXBuffersToHost serves nSamples[i] int16 values per
// requested OEM out of the replayed dataset, wrapping around to the
// start when exhausted.
func (d *FileDriver) TransferAllRXBuffersToHost(oems []int, nSamples []int) ([][]int16, error) {
	if len(oems) != len(nSamples) {
		return nil, oemseqerr.NewIllegalArgument("oem.FileDriver", "oems and nSamples must have the same length")
	}
	out := make([][]int16, len(oems))
	for i := range oems {
		n := nSamples[i]
		buf := make([]int16, n)
		for j := 0; j < n; j++ {
			buf[j] = d.dataset[d.cursor]
			d.cursor = (d.cursor + 1) % len(d.dataset)
		}
		out[i] = buf
	}
	d.record("TransferAllRXBuffersToHost[file](%v, %v)", oems, nSamples)
	return out, nil
}
