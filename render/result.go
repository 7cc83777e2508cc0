package render

import (
	"github.com/arobinet/sonavis/colourmap"
	"github.com/arobinet/sonavis/dsp"
)

// Outcome says how a pipeline run ended.
type Outcome int

const (
	// OutcomeNone means no run has completed yet.
	OutcomeNone Outcome = iota
	// OutcomeSuccess means the run produced renderable data.
	OutcomeSuccess
	// OutcomeAborted means the run stopped early for a benign reason,
	// such as a degenerate canvas size or flat data.
	OutcomeAborted
	// OutcomeMemoryRejected means the run would have needed more working
	// memory than the configured ceiling allows.
	OutcomeMemoryRejected
)

// GraphParams reports the analysis parameters actually used for a render,
// after adaptive values are resolved. The UI displays these.
type GraphParams struct {
	WindowType     dsp.WindowType
	WindowSamples  int
	OverlapPercent float64
	PaddingFactor  int
	Channels       int
	// Channel is the analysed channel, or -1 when channels are combined.
	Channel int
}

// SpectrogramCompletion is the result of one spectrogram pipeline run.
type SpectrogramCompletion struct {
	Outcome Outcome
	Request *SpectrogramRequest

	// Image is the rendered pixel block; place it at the offsets below
	// within the data area. Nil unless Outcome is OutcomeSuccess.
	Image        [][]colourmap.RGB
	TimeOffset   int
	FreqOffset   int
	ActualTime   AxisRange
	ActualFreq   AxisRange
	MemoryNeeded int // Bytes; set when Outcome is OutcomeMemoryRejected.

	// Histogram holds the dB values feeding the interactive brightness
	// histogram. Nil when unchanged from the previous completion.
	Histogram [][]float64

	// AutoBnCRange is the adaptive brightness range used, nil for
	// manual and interactive modes.
	AutoBnCRange *AxisRange

	Params GraphParams
}

// LineSegment is one vertical stroke of an amplitude rendering, in data
// area pixel coordinates.
type LineSegment struct {
	X0, Y0 int
	X1, Y1 int
}

// AmplitudeCompletion is the result of one amplitude pipeline run.
type AmplitudeCompletion struct {
	Outcome Outcome
	Request *AmplitudeRequest

	Segments     []LineSegment
	MemoryNeeded int
}

// Point is a vertex of the profile polyline, in data area pixels.
type Point struct {
	X, Y int
}

// ProfileCompletion is the result of one profile pipeline run.
type ProfileCompletion struct {
	Outcome Outcome
	Request *ProfileRequest

	Points     []Point
	ValueRange AxisRange // dB range spanned by the profile.
}
