package render

import "fmt"

type readerParams struct {
	dataSerial   uint64
	reader       RawDataReader
	firstIndex   int
	lastIndex    int
	configSerial uint64
}

// readerSnapshot is empty: a raw read depends only on its parameters.
type readerSnapshot struct{}

type readerOutput struct {
	data [][]int16
	// offset is the nominal sample index of the first value, which may
	// be negative; the reader clips reads to the start of the file.
	offset int
}

// DataReaderStep reads the raw samples a render needs. One instance is
// shared between the spectrogram, amplitude and profile pipelines of a
// panel so the same range is only read once.
type DataReaderStep struct {
	cache stepCache[readerParams, readerSnapshot, readerOutput]
}

// NewDataReaderStep returns a reader step for sharing across the
// pipelines of one graph panel.
func NewDataReaderStep() *DataReaderStep {
	return &DataReaderStep{}
}

func (s *DataReaderStep) process(p readerParams) (readerOutput, uint64, error) {
	return s.cache.process(p, readerSnapshot{}, func() (readerOutput, error) {
		data, _, err := p.reader.ReadRawData(p.firstIndex, p.lastIndex)
		if err != nil {
			return readerOutput{}, fmt.Errorf("failed to read raw data [%d, %d): %w",
				p.firstIndex, p.lastIndex, err)
		}
		return readerOutput{data: data, offset: p.firstIndex}, nil
	})
}

// rawMinMax scans all channels for the extreme sample values.
func rawMinMax(data [][]int16) (lo, hi int16) {
	first := true
	for _, channel := range data {
		for _, v := range channel {
			if first {
				lo, hi = v, v
				first = false
				continue
			}
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return lo, hi
}
