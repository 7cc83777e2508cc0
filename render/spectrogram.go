package render

import (
	"fmt"
	"math"

	"github.com/arobinet/sonavis/dsp"
)

// adaptiveTimeThreshold is the displayed time span, in seconds, below
// which the adaptive variant switches to the reassigned method.
const adaptiveTimeThreshold = 0.1

// logFloor replaces non-positive power values before the dB conversion.
const logFloor = 1e-10

type fftParams struct {
	previousSerial uint64
	sampleCount    int
	timeRange      AxisRange
	windowSamples  int
	overlapSamples int
	overlapPercent float64
	isReference    bool
}

type fftSnapshot struct {
	windowSamples  int
	overlapPercent int
	windowType     dsp.WindowType
	paddingFactor  int
	multiMode      MultichannelMode
	channel        int
	variant        SpectrogramVariant
	sampleRate     int
	despeckle      bool
	configSerial   uint64
}

type fftOutput struct {
	// spec is dB power indexed [frequency bucket][segment].
	spec   [][]float64
	params GraphParams
}

// SpectrogramFFTStep turns raw samples into a dB power spectrogram. One
// instance is shared between the spectrogram and profile pipelines of a
// panel, so the expensive transform runs once for both.
type SpectrogramFFTStep struct {
	settings *GraphSettings
	cfg      *Config
	cache    stepCache[fftParams, fftSnapshot, fftOutput]
}

// NewSpectrogramFFTStep returns an FFT step for sharing across the
// pipelines of one graph panel.
func NewSpectrogramFFTStep(settings *GraphSettings, cfg *Config) *SpectrogramFFTStep {
	return &SpectrogramFFTStep{settings: settings, cfg: cfg}
}

func (s *SpectrogramFFTStep) snapshot() fftSnapshot {
	return fftSnapshot{
		windowSamples:  s.settings.WindowSamples,
		overlapPercent: s.settings.WindowOverlapPercent,
		windowType:     s.settings.WindowType,
		paddingFactor:  s.settings.WindowPaddingFactor,
		multiMode:      s.settings.MultichannelMode,
		channel:        s.settings.MultichannelChannel,
		variant:        s.settings.SpectrogramVariant,
		sampleRate:     s.settings.SampleRate,
		despeckle:      s.settings.Despeckle,
		configSerial:   s.cfg.Serial(),
	}
}

func (s *SpectrogramFFTStep) process(p fftParams, raw readerOutput) (fftOutput, uint64, error) {
	rs := s.snapshot()
	return s.cache.process(p, rs, func() (fftOutput, error) {
		freqs, spec, params, err := s.computeSpectrogram(raw.data, p, rs)
		if err != nil {
			return fftOutput{}, err
		}

		// Floor non-positive values, then convert the power to dB. The
		// multiplier is 10 because the power is already squared.
		for _, row := range spec {
			for i, v := range row {
				if v <= 0 {
					v = logFloor
				}
				row[i] = 10 * math.Log10(v)
			}
		}

		// Subtract the microphone response so that readings become
		// comparable between main and reference recordings.
		if response := s.cfg.responseFor(p.isReference); response != nil {
			for b, row := range spec {
				correction := response.At(freqs[b])
				for i := range row {
					row[i] -= correction
				}
			}
		}

		return fftOutput{spec: spec, params: params}, nil
	})
}

// computeSpectrogram runs the configured analysis over the channels in
// use and sums their power.
func (s *SpectrogramFFTStep) computeSpectrogram(data [][]int16, p fftParams, rs fftSnapshot) ([]float64, [][]float64, GraphParams, error) {
	channels := len(data)
	if channels == 0 {
		return nil, nil, GraphParams{}, fmt.Errorf("no channel data to analyse")
	}

	specificChannel := -1
	analyse := make([]int, 0, channels)
	if rs.multiMode == MultichannelSingle && rs.channel >= 0 && rs.channel < channels {
		analyse = append(analyse, rs.channel)
		specificChannel = rs.channel
	} else {
		for c := 0; c < channels; c++ {
			analyse = append(analyse, c)
		}
	}

	// Padding lengthens the analysis window but not the step, so the
	// segment overlap grows by the pad amount.
	window, err := dsp.NewWindow(rs.windowType, p.windowSamples)
	if err != nil {
		return nil, nil, GraphParams{}, err
	}
	nfft := p.windowSamples * rs.paddingFactor
	paddedWindow := window.PadTo(nfft)
	step := p.windowSamples - p.overlapSamples
	adjustedOverlap := nfft - step

	reassigned := rs.variant == VariantReassigned
	if rs.variant == VariantAdaptive {
		// Zoomed far enough in, the extra sharpness is worth the cost.
		timeSpan := float64(len(data[0])) / float64(rs.sampleRate)
		reassigned = timeSpan <= adaptiveTimeThreshold
	}

	var combined [][]float64
	var freqs []float64
	for _, channel := range analyse {
		channelData := toFloat64(data[channel])

		var power [][]float64
		if reassigned {
			freqs, power, err = reassignedSpectrogram(
				channelData, float64(rs.sampleRate), paddedWindow, adjustedOverlap, rs.despeckle)
		} else {
			freqs, _, power, err = dsp.PowerSpectrogram(
				channelData, float64(rs.sampleRate), paddedWindow, adjustedOverlap)
		}
		if err != nil {
			return nil, nil, GraphParams{}, fmt.Errorf("spectrogram of channel %d failed: %w", channel, err)
		}

		if combined == nil {
			combined = power
		} else {
			sumInto(combined, power)
		}
	}

	params := GraphParams{
		WindowType:     rs.windowType,
		WindowSamples:  p.windowSamples,
		OverlapPercent: p.overlapPercent,
		PaddingFactor:  rs.paddingFactor,
		Channels:       channels,
		Channel:        specificChannel,
	}
	return freqs, combined, params, nil
}

func toFloat64(samples []int16) []float64 {
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = float64(v)
	}
	return out
}

func sumInto(dst, src [][]float64) {
	for r := range dst {
		if r >= len(src) {
			break
		}
		row, other := dst[r], src[r]
		for c := range row {
			if c < len(other) {
				row[c] += other[c]
			}
		}
	}
}
