// Package audiofile loads WAV recordings and serves raw samples to the
// rendering pipelines.
package audiofile

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/go-audio/wav"

	"github.com/arobinet/sonavis/logging"
	"github.com/arobinet/sonavis/render"
)

// minSamples is the shortest file worth rendering: two of the largest
// analysis windows.
const minSamples = 2 * render.MaxWindowSamples

// dataSerials distinguishes loads from one another; pipelines key their
// caches on it so reopening a file invalidates stale results.
var dataSerials atomic.Uint64

// Service holds one loaded recording, channel major, and implements
// render.RawDataReader for the pipelines.
type Service struct {
	path       string
	sampleRate int
	channels   [][]int16
	serial     uint64
	frameData  render.FrameDataLayout
}

// Open reads and validates a WAV file, decoding it fully into memory.
func Open(path string) (*Service, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if decoder.BitDepth != 16 {
		return nil, fmt.Errorf("%s: unsupported bit depth %d, want 16", path, decoder.BitDepth)
	}

	numChannels := buf.Format.NumChannels
	if numChannels < 1 {
		return nil, fmt.Errorf("%s: no channels", path)
	}
	sampleCount := len(buf.Data) / numChannels
	if sampleCount < minSamples {
		return nil, fmt.Errorf("%s: too short: %d samples, want at least %d",
			path, sampleCount, minSamples)
	}

	// Deinterleave to channel major, which is what the pipelines read.
	channels := make([][]int16, numChannels)
	for c := range channels {
		channels[c] = make([]int16, sampleCount)
	}
	for i, v := range buf.Data[:sampleCount*numChannels] {
		channels[i%numChannels][i/numChannels] = int16(v)
	}

	s := &Service{
		path:       path,
		sampleRate: buf.Format.SampleRate,
		channels:   channels,
		serial:     dataSerials.Add(1),
	}
	logging.Info("loaded audio file", logging.Fields{
		"path":        path,
		"sample_rate": s.sampleRate,
		"channels":    numChannels,
		"samples":     sampleCount,
	})
	return s, nil
}

// SetFrameDataLayout declares that the file carries hidden frame data.
// The rendering steps confirm the claim against the samples themselves.
func (s *Service) SetFrameDataLayout(layout render.FrameDataLayout) {
	s.frameData = layout
}

// Info returns the metadata the pipelines need for this file.
func (s *Service) Info() render.FileInfo {
	sampleCount := len(s.channels[0])
	duration := float64(sampleCount) / float64(s.sampleRate)
	return render.FileInfo{
		SampleRate:     s.sampleRate,
		SampleCount:    sampleCount,
		Channels:       len(s.channels),
		BytesPerSample: 2,
		TimeRange:      render.AxisRange{Min: 0, Max: duration},
		FrequencyRange: render.AxisRange{Min: 0, Max: float64(s.sampleRate) / 2},
		// Symmetric so that zero amplitude renders at mid height.
		AmplitudeRange: render.AxisRange{Min: -32768, Max: 32767},
		FrameData:      s.frameData,
		DataSerial:     s.serial,
	}
}

// Path returns the path the file was loaded from.
func (s *Service) Path() string {
	return s.path
}

// ReadRawData returns the samples in the half open index range, clipped
// to the file, along with the number of samples per channel returned.
func (s *Service) ReadRawData(firstIndex, lastIndex int) ([][]int16, int, error) {
	sampleCount := len(s.channels[0])
	first := max(0, firstIndex)
	last := min(sampleCount, lastIndex)
	if last <= first {
		return nil, 0, fmt.Errorf("empty read range [%d, %d)", firstIndex, lastIndex)
	}

	out := make([][]int16, len(s.channels))
	for c, channel := range s.channels {
		out[c] = channel[first:last]
	}
	return out, last - first, nil
}
