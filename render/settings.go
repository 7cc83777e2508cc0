package render

import (
	"sync/atomic"

	"github.com/arobinet/sonavis/colourmap"
	"github.com/arobinet/sonavis/dsp"
)

// Adaptive sentinel values for window size and overlap settings.
const (
	AdaptiveWindowSamples  = -1
	AdaptiveOverlapPercent = -1
)

// Window size limits for both manual and adaptive selection.
const (
	MinWindowSamples = 64
	MaxWindowSamples = 4096
)

// WindowSamplesOptions are the selectable analysis window sizes.
var WindowSamplesOptions = []int{64, 128, 256, 512, 1024, 2048, 4096}

// OverlapPercentOptions are the selectable window overlap percentages.
var OverlapPercentOptions = []int{0, 25, 50, 75, 90, 95}

// PaddingFactorOptions are the selectable window zero padding factors.
var PaddingFactorOptions = []int{1, 2, 4, 8}

// SpectrogramVariant selects the analysis method.
type SpectrogramVariant int

const (
	// VariantStandard is a conventional windowed STFT spectrogram.
	VariantStandard SpectrogramVariant = iota
	// VariantReassigned sharpens the display by relocating each cell's
	// energy to its instantaneous frequency and group delay.
	VariantReassigned
	// VariantAdaptive picks standard for long time spans and reassigned
	// for short ones, where the extra cost pays off visually.
	VariantAdaptive
)

// BnCMode selects how brightness and contrast limits are chosen.
type BnCMode int

const (
	// BnCAdaptive derives the limits from the data each render.
	BnCAdaptive BnCMode = iota
	// BnCManual uses fixed limits from the settings.
	BnCManual
	// BnCInteractive uses limits the user dragged out on screen,
	// which arrive through the same manual fields.
	BnCInteractive
)

// MultichannelMode selects how multichannel audio is displayed.
type MultichannelMode int

const (
	// MultichannelCombined sums the power of all channels.
	MultichannelCombined MultichannelMode = iota
	// MultichannelSingle analyses one selected channel.
	MultichannelSingle
)

// GraphSettings is the user-controlled configuration of one graph panel.
// A pipeline snapshots the fields relevant to each step, so changing a
// setting invalidates exactly the steps that depend on it.
type GraphSettings struct {
	SampleRate int // Effective rate; may differ from the file for TE recordings.

	WindowSamples        int // AdaptiveWindowSamples for automatic.
	WindowOverlapPercent int // AdaptiveOverlapPercent for automatic.
	WindowType           dsp.WindowType
	WindowPaddingFactor  int

	SpectrogramVariant SpectrogramVariant
	ZoomInterpolation  int // B-spline order 0..3.

	BnCMode              BnCMode
	BnCBackgroundPercent float64
	BnCManualRange       AxisRange

	MultichannelMode    MultichannelMode
	MultichannelChannel int

	ShowFrameData bool
	// Despeckle prunes incoherent cells from reassigned spectrograms.
	// Off by default: pruning can also remove fast FM sweeps.
	Despeckle bool
}

// DefaultGraphSettings returns the settings a new panel starts with.
func DefaultGraphSettings(sampleRate int) GraphSettings {
	return GraphSettings{
		SampleRate:           sampleRate,
		WindowSamples:        AdaptiveWindowSamples,
		WindowOverlapPercent: AdaptiveOverlapPercent,
		WindowType:           dsp.WindowHann,
		WindowPaddingFactor:  1,
		SpectrogramVariant:   VariantStandard,
		ZoomInterpolation:    2,
		BnCMode:              BnCAdaptive,
		BnCBackgroundPercent: 20.0,
		BnCManualRange:       AxisRange{Min: 0, Max: 1},
		MultichannelMode:     MultichannelCombined,
	}
}

// Config holds application wide rendering state shared by all pipelines:
// the colour palette and microphone response correction curves. Pipelines
// snapshot its serial, so bumping it after a change forces recomputation.
type Config struct {
	Colour       *colourmap.Table
	MainResponse *ResponseCurve // Applied to the main recording, may be nil.
	RefResponse  *ResponseCurve // Applied to the reference recording, may be nil.

	MaxSpectrogramBytes int
	MaxFileReadBytes    int

	serial atomic.Uint64
}

// NewConfig returns a Config with default memory ceilings and the given
// colour palette.
func NewConfig(colour *colourmap.Table) *Config {
	return &Config{
		Colour:              colour,
		MaxSpectrogramBytes: maxSpectrogramBytes,
		MaxFileReadBytes:    maxFileReadBytes,
	}
}

// Serial returns the current configuration serial.
func (c *Config) Serial() uint64 {
	return c.serial.Load()
}

// BumpSerial marks the configuration as changed so that cached pipeline
// results are recomputed on the next render.
func (c *Config) BumpSerial() {
	c.serial.Add(1)
}

// responseFor returns the response curve for the main or reference role.
func (c *Config) responseFor(isReference bool) *ResponseCurve {
	if isReference {
		return c.RefResponse
	}
	return c.MainResponse
}
