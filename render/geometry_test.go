package render

import (
	"testing"
)

func testFileInfo() FileInfo {
	return FileInfo{
		SampleRate:     44100,
		SampleCount:    441000, // 10 seconds
		Channels:       1,
		BytesPerSample: 2,
		TimeRange:      AxisRange{Min: 0, Max: 10},
		FrequencyRange: AxisRange{Min: 0, Max: 22050},
		AmplitudeRange: AxisRange{Min: -32768, Max: 32767},
		DataSerial:     1,
	}
}

func testScreenFactors(timeRange, freqRange AxisRange, width, height int) ScreenFactors {
	return ScreenFactors{
		Aspect: (timeRange.Span() / float64(width)) /
			(freqRange.Span() / float64(height)),
		PixelsPerSecond: float64(width) / timeRange.Span(),
	}
}

func TestGeometryActualRangesContainRequested(t *testing.T) {
	file := testFileInfo()
	settings := DefaultGraphSettings(file.SampleRate)
	settings.WindowSamples = 1024
	settings.WindowOverlapPercent = 50

	tests := []struct {
		name      string
		timeRange AxisRange
		freqRange AxisRange
	}{
		{"full view", AxisRange{0, 10}, AxisRange{0, 22050}},
		{"zoomed in", AxisRange{2.5, 3.5}, AxisRange{5000, 15000}},
		{"tiny window", AxisRange{4.0, 4.05}, AxisRange{10000, 11000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			screen := testScreenFactors(tt.timeRange, tt.freqRange, 800, 400)
			g := NewCalcGeometry(&settings, tt.timeRange, tt.freqRange, file, screen, 800, 400)

			// Clipped to the file, the actual ranges must contain the
			// requested ranges.
			wantTimeMin := max64(tt.timeRange.Min, 0)
			if g.ActualTimeAxisMin > wantTimeMin {
				t.Errorf("ActualTimeAxisMin = %f, want <= %f", g.ActualTimeAxisMin, wantTimeMin)
			}
			if g.ActualFreqAxisMin > tt.freqRange.Min {
				t.Errorf("ActualFreqAxisMin = %f, want <= %f", g.ActualFreqAxisMin, tt.freqRange.Min)
			}
			if g.ActualFreqAxisMax < min64(tt.freqRange.Max, 22050) {
				t.Errorf("ActualFreqAxisMax = %f, want >= %f", g.ActualFreqAxisMax, tt.freqRange.Max)
			}

			if g.FirstSegmentIndex < 0 {
				t.Errorf("FirstSegmentIndex = %d, want >= 0", g.FirstSegmentIndex)
			}
			if g.LastSegmentIndex <= g.FirstSegmentIndex {
				t.Errorf("segment range [%d, %d) is empty", g.FirstSegmentIndex, g.LastSegmentIndex)
			}
			if g.FirstFreqIndex < 0 {
				t.Errorf("FirstFreqIndex = %d, want >= 0", g.FirstFreqIndex)
			}

			if g.TimeOffsetPixels < 0 {
				t.Errorf("TimeOffsetPixels = %d, want >= 0", g.TimeOffsetPixels)
			}
			if g.FreqOffsetPixels < 0 {
				t.Errorf("FreqOffsetPixels = %d, want >= 0", g.FreqOffsetPixels)
			}
			// The dilated image must cover the visible view. The time
			// axis only guarantees this away from the file ends, where
			// the actual range clips to the data available.
			if tt.timeRange.Min > 0.5 && tt.timeRange.Max < 9.5 && g.TimeDilatedPixels < 800 {
				t.Errorf("TimeDilatedPixels = %d, want >= 800", g.TimeDilatedPixels)
			}
			if g.FreqDilatedPixels < 400 {
				t.Errorf("FreqDilatedPixels = %d, want >= 400", g.FreqDilatedPixels)
			}
		})
	}
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func TestGeometryManualWindowSettings(t *testing.T) {
	file := testFileInfo()
	settings := DefaultGraphSettings(file.SampleRate)
	settings.WindowSamples = 512
	settings.WindowOverlapPercent = 75

	timeRange := AxisRange{0, 10}
	freqRange := AxisRange{0, 22050}
	screen := testScreenFactors(timeRange, freqRange, 800, 400)
	g := NewCalcGeometry(&settings, timeRange, freqRange, file, screen, 800, 400)

	if g.WindowSamples != 512 {
		t.Errorf("WindowSamples = %d, want 512", g.WindowSamples)
	}
	if g.OverlapSamples != 384 {
		t.Errorf("OverlapSamples = %d, want 384", g.OverlapSamples)
	}
	if g.StepSamples != 128 {
		t.Errorf("StepSamples = %d, want 128", g.StepSamples)
	}
	if g.NFFT != 512 {
		t.Errorf("NFFT = %d, want 512", g.NFFT)
	}
}

func TestGeometryPaddingAdjustsOverlap(t *testing.T) {
	file := testFileInfo()
	settings := DefaultGraphSettings(file.SampleRate)
	settings.WindowSamples = 512
	settings.WindowOverlapPercent = 50
	settings.WindowPaddingFactor = 2

	timeRange := AxisRange{0, 10}
	freqRange := AxisRange{0, 22050}
	screen := testScreenFactors(timeRange, freqRange, 800, 400)
	g := NewCalcGeometry(&settings, timeRange, freqRange, file, screen, 800, 400)

	// Padding doubles the transform length but leaves the step alone.
	if g.NFFT != 1024 {
		t.Errorf("NFFT = %d, want 1024", g.NFFT)
	}
	if g.StepSamples != 256 {
		t.Errorf("StepSamples = %d, want 256", g.StepSamples)
	}
	if g.NFFTOverlap != 1024-256 {
		t.Errorf("NFFTOverlap = %d, want %d", g.NFFTOverlap, 1024-256)
	}
}

func TestAutoWindowSamplesBounds(t *testing.T) {
	tests := []struct {
		name   string
		rate   int
		aspect float64
	}{
		{"tiny aspect", 44100, 1e-9},
		{"huge aspect", 384000, 100},
		{"typical", 256000, 1e-5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := autoWindowSamples(tt.rate, ScreenFactors{Aspect: tt.aspect})
			if got < MinWindowSamples || got > MaxWindowSamples {
				t.Errorf("autoWindowSamples = %d, want within [%d, %d]",
					got, MinWindowSamples, MaxWindowSamples)
			}
			// Must be a power of two.
			if got&(got-1) != 0 {
				t.Errorf("autoWindowSamples = %d, want a power of two", got)
			}
		})
	}
}

func TestAutoOverlapPicksNearestOption(t *testing.T) {
	// A slow time axis means many samples per pixel, so little overlap
	// is needed.
	got := autoOverlapPercent(44100, 1024, ScreenFactors{PixelsPerSecond: 10})
	if got != 0 {
		t.Errorf("autoOverlapPercent = %d, want 0 for sparse pixels", got)
	}

	// A fast time axis wants dense data, pushing the overlap high.
	got = autoOverlapPercent(44100, 1024, ScreenFactors{PixelsPerSecond: 100000})
	if got != 95 {
		t.Errorf("autoOverlapPercent = %d, want 95 for dense pixels", got)
	}
}

func TestEstimateMemoryNeeded(t *testing.T) {
	file := testFileInfo()
	settings := DefaultGraphSettings(file.SampleRate)
	settings.WindowSamples = 1024
	settings.WindowOverlapPercent = 50

	timeRange := AxisRange{0, 10}
	freqRange := AxisRange{0, 22050}
	screen := testScreenFactors(timeRange, freqRange, 800, 400)
	g := NewCalcGeometry(&settings, timeRange, freqRange, file, screen, 800, 400)

	total, fileBytes := estimateMemoryNeeded(file, g)
	if fileBytes <= 0 || total <= fileBytes {
		t.Errorf("estimate (total=%d, file=%d) should be positive with total > file", total, fileBytes)
	}

	// Roughly ten seconds of mono 16 bit data.
	if fileBytes < 800_000 || fileBytes > 1_000_000 {
		t.Errorf("fileBytes = %d, want about 882000", fileBytes)
	}
}
