package render

import (
	"fmt"

	"github.com/arobinet/sonavis/dsp"
)

type zoomParams struct {
	previousSerial uint64
	canvasHeight   int
	canvasWidth    int
	timeRange      AxisRange
	freqRange      AxisRange
	geometry       CalcGeometry
}

type zoomSnapshot struct {
	interpolation int
}

// zoomStep rescales the spectrogram to canvas pixels. The input covers
// the dilated actual ranges; after interpolation the requested view is
// cut out at the geometry offsets, leaving the margin artifacts outside.
type zoomStep struct {
	settings *GraphSettings
	cache    stepCache[zoomParams, zoomSnapshot, [][]float64]
}

func newZoomStep(settings *GraphSettings) *zoomStep {
	return &zoomStep{settings: settings}
}

func (s *zoomStep) process(p zoomParams, spec [][]float64) ([][]float64, uint64, error) {
	snapshot := zoomSnapshot{interpolation: s.settings.ZoomInterpolation}
	return s.cache.process(p, snapshot, func() ([][]float64, error) {
		g := p.geometry

		// Cut the frequency rows down to the buckets in range. The last
		// index can exceed the data by one because it allows for an
		// upper margin; clip rather than fail.
		firstFreq := clampBucket(g.FirstFreqIndex, len(spec))
		lastFreq := min(g.LastFreqIndex, len(spec))
		if lastFreq <= firstFreq {
			return nil, fmt.Errorf("no frequency buckets selected: [%d, %d)", firstFreq, lastFreq)
		}
		clipped := spec[firstFreq:lastFreq]

		dilated, err := dsp.Resize2D(clipped, max(1, g.FreqDilatedPixels),
			max(1, g.TimeDilatedPixels), snapshot.interpolation)
		if err != nil {
			return nil, fmt.Errorf("failed to zoom spectrogram: %w", err)
		}

		// Slice the dilated image down to the displayed view.
		freqOffset := max(0, g.FreqOffsetPixels)
		timeOffset := max(0, g.TimeOffsetPixels)
		out := make([][]float64, 0, p.canvasHeight)
		for r := freqOffset; r < len(dilated) && r < freqOffset+p.canvasHeight; r++ {
			row := dilated[r]
			hi := min(len(row), timeOffset+p.canvasWidth)
			if timeOffset >= hi {
				break
			}
			out = append(out, row[timeOffset:hi])
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("zoomed view is empty")
		}
		return out, nil
	})
}

// cachedValue returns the zoomed dB value at data area pixel (x, y),
// from the most recent render.
func (s *zoomStep) cachedValue(x, y int) (float64, bool) {
	data, ok := s.cache.cached()
	if !ok || y < 0 || y >= len(data) || x < 0 || x >= len(data[y]) {
		return 0, false
	}
	return data[y][x], true
}
