package render

import "math"

// Margins added around the requested ranges so that interpolation edge
// artifacts land outside the visible canvas.
const (
	timeMarginSegments = 10
	freqMarginBuckets  = 3
)

// CalcGeometry holds the index and scaling arithmetic for one spectrogram
// render. Axis time zero is the centre of the first padded window, which
// keeps time offsets constant across window sizes; the resulting index
// ranges can be negative and are clipped by the consumers.
//
// All fields are plain values so the struct can sit in step cache keys.
type CalcGeometry struct {
	// Segment index range covering the requested time range, half open.
	FirstSegmentIndex int
	LastSegmentIndex  int
	// Sample index range needed to compute those segments, half open.
	FirstTimeIndexForSegs int
	LastTimeIndexForSegs  int
	// The time axis range the segment range actually covers.
	ActualTimeAxisMin float64
	ActualTimeAxisMax float64
	// Sample index range corresponding to the actual axis range.
	FirstTimeIndexForAmp int
	LastTimeIndexForAmp  int

	// Frequency bucket range covering the requested frequency range,
	// half open, and the axis range it actually covers.
	FirstFreqIndex    int
	LastFreqIndex     int
	ActualFreqAxisMin float64
	ActualFreqAxisMax float64

	// Analysis parameters with adaptive values resolved.
	WindowSamples  int
	OverlapPercent float64
	OverlapSamples int
	StepSamples    int
	NFFT           int
	NFFTOverlap    int

	// Pixel dimensions of the dilated rendering and the offsets of the
	// requested view within it.
	TimeDilatedPixels int
	TimeOffsetPixels  int
	FreqDilatedPixels int
	FreqOffsetPixels  int
}

// NewCalcGeometry does all the scale and offset calculations needed to
// render the requested axis ranges onto a canvas of the given size.
// The actual ranges always contain the requested ranges, clipped to the
// data available in the file.
func NewCalcGeometry(settings *GraphSettings, timeRange, freqRange AxisRange,
	file FileInfo, screen ScreenFactors, canvasWidth, canvasHeight int) CalcGeometry {

	var g CalcGeometry
	sampleRate := settings.SampleRate
	if sampleRate == 0 {
		sampleRate = file.SampleRate
	}

	if settings.WindowSamples == AdaptiveWindowSamples {
		g.WindowSamples = autoWindowSamples(sampleRate, screen)
	} else {
		g.WindowSamples = settings.WindowSamples
	}

	if settings.WindowOverlapPercent == AdaptiveOverlapPercent {
		g.OverlapPercent = float64(autoOverlapPercent(sampleRate, g.WindowSamples, screen))
	} else {
		g.OverlapPercent = float64(settings.WindowOverlapPercent)
	}

	// Overlap of the unpadded window; the padded segment overlap below
	// differs because padding lengthens the segment, not the step.
	g.OverlapSamples = max(1, int(g.OverlapPercent/100.0*float64(g.WindowSamples)))
	g.StepSamples = g.WindowSamples - g.OverlapSamples
	stepTime := float64(g.StepSamples) / float64(sampleRate)
	g.NFFT = g.WindowSamples * settings.WindowPaddingFactor
	g.NFFTOverlap = g.NFFT - g.StepSamples
	halfNFFT := g.NFFT / 2

	maxSegments := (file.SampleCount - g.NFFTOverlap) / g.StepSamples

	// Time axis: requested range to segment indexes, rounded outwards,
	// widened by the margin, clipped to what the file can provide.
	g.FirstSegmentIndex = int(timeRange.Min/stepTime) - timeMarginSegments
	g.LastSegmentIndex = int(timeRange.Min/stepTime) +
		int(math.Ceil(timeRange.Span()/stepTime)) + 1 + timeMarginSegments
	g.FirstSegmentIndex = max(0, g.FirstSegmentIndex)
	g.LastSegmentIndex = min(maxSegments, g.LastSegmentIndex)

	g.FirstTimeIndexForSegs = g.FirstSegmentIndex*g.StepSamples - halfNFFT
	g.LastTimeIndexForSegs = (g.LastSegmentIndex-1)*g.StepSamples - halfNFFT + g.NFFT

	g.ActualTimeAxisMin = float64(g.FirstSegmentIndex) * stepTime
	g.ActualTimeAxisMax = float64(g.LastSegmentIndex-1) * stepTime

	g.FirstTimeIndexForAmp = int(g.ActualTimeAxisMin * float64(sampleRate))
	g.LastTimeIndexForAmp = int(g.ActualTimeAxisMax * float64(sampleRate))

	// Frequency axis: zero padding multiplies the number of frequency
	// buckets by the same factor.
	fileRange := AxisRange{Min: 0, Max: float64(sampleRate) / 2}
	freqBuckets := g.WindowSamples*settings.WindowPaddingFactor/2 + 1

	freqToIndex := func(f float64) int {
		return int((f-fileRange.Min)/fileRange.Span()*float64(freqBuckets) + 0.5)
	}
	indexToFreq := func(i int) float64 {
		return (float64(i)-0.5)*fileRange.Span()/float64(freqBuckets) + fileRange.Min
	}

	g.FirstFreqIndex = freqToIndex(freqRange.Min) - freqMarginBuckets
	g.LastFreqIndex = freqToIndex(freqRange.Max) + 1 + freqMarginBuckets
	g.FirstFreqIndex = max(0, g.FirstFreqIndex)
	g.LastFreqIndex = min(freqBuckets+1, g.LastFreqIndex)

	g.ActualFreqAxisMin = indexToFreq(g.FirstFreqIndex)
	g.ActualFreqAxisMax = indexToFreq(g.LastFreqIndex)

	// Canvas scaling: the dilated image covers the actual ranges, and
	// the requested view is a window into it at the offsets.
	pixelsPerSecond := float64(canvasWidth) / timeRange.Span()
	g.TimeDilatedPixels = int(pixelsPerSecond*(g.ActualTimeAxisMax-g.ActualTimeAxisMin) + 0.5)
	g.TimeOffsetPixels = int((timeRange.Min-g.ActualTimeAxisMin)*pixelsPerSecond + 0.5)

	pixelsPerHz := float64(canvasHeight) / freqRange.Span()
	g.FreqDilatedPixels = int(pixelsPerHz*(g.ActualFreqAxisMax-g.ActualFreqAxisMin) + 0.5)
	g.FreqOffsetPixels = int((freqRange.Min-g.ActualFreqAxisMin)*pixelsPerHz + 0.5)

	return g
}

// autoWindowSamples picks a window size giving roughly square display
// cells for the current zoom, rounded to a power of two and clamped to
// the manually selectable range.
func autoWindowSamples(sampleRate int, screen ScreenFactors) int {
	samples := math.Sqrt(float64(sampleRate) * float64(sampleRate) * screen.Aspect)
	if samples < 1 {
		samples = 1
	}
	rounded := 1 << int(math.Log2(samples)+0.5)
	rounded *= 2
	return min(MaxWindowSamples, max(MinWindowSamples, rounded))
}

// autoOverlapPercent picks the overlap option that keeps the data density
// at no more than half a data point per screen pixel.
func autoOverlapPercent(sampleRate, windowSamples int, screen ScreenFactors) int {
	windowPixels := screen.PixelsPerSecond * float64(windowSamples) / float64(sampleRate)
	wanted := clipToRange(100.0*windowPixels/2.0, 0.0, 95.0)

	best := OverlapPercentOptions[0]
	bestDelta := math.Abs(float64(best) - wanted)
	for _, option := range OverlapPercentOptions[1:] {
		if delta := math.Abs(float64(option) - wanted); delta < bestDelta {
			best, bestDelta = option, delta
		}
	}
	return best
}
