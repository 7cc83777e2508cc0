package render

import (
	"math"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/arobinet/sonavis/colourmap"
)

type colourParams struct {
	previousSerial uint64
}

type colourSnapshot struct {
	table        *colourmap.Table
	configSerial uint64
}

// colourMapStep converts normalized intensities to palette colours.
type colourMapStep struct {
	cfg   *Config
	cache stepCache[colourParams, colourSnapshot, [][]colourmap.RGB]
}

func newColourMapStep(cfg *Config) *colourMapStep {
	return &colourMapStep{cfg: cfg}
}

func (s *colourMapStep) process(p colourParams, input [][]float64) ([][]colourmap.RGB, uint64, error) {
	snapshot := colourSnapshot{table: s.cfg.Colour, configSerial: s.cfg.Serial()}
	return s.cache.process(p, snapshot, func() ([][]colourmap.RGB, error) {
		return snapshot.table.Map(input), nil
	})
}

// Phase colouring constants: hue and saturation come from the frame
// data, lightness is fixed. 33 is about the highest lightness that
// keeps HSLuv conversions inside the RGB gamut at full saturation.
const (
	phaseLightness  = 0.33
	phaseSaturation = 1.0
)

type phaseParams struct {
	previousSerial uint64
	frameSerial    uint64
	frameLength    int
	firstAmpIndex  int
	lastAmpIndex   int
	stepSamples    int
	windowSamples  int
}

type phaseSnapshot struct{}

// phaseColourStep colours the spectrogram from hidden frame data rather
// than a palette: a two component PCA of the frame payloads drives the
// hue, and the spectrogram intensity drives the brightness. Echoes with
// different payload signatures then show up in different colours.
type phaseColourStep struct {
	cfg   *Config
	cache stepCache[phaseParams, phaseSnapshot, [][]colourmap.RGB]
}

func newPhaseColourStep(cfg *Config) *phaseColourStep {
	return &phaseColourStep{cfg: cfg}
}

func (s *phaseColourStep) process(p phaseParams, input [][]float64, frames *FrameTable) ([][]colourmap.RGB, uint64, error) {
	return s.cache.process(p, phaseSnapshot{}, func() ([][]colourmap.RGB, error) {
		frameRGB := frameColours(frames)
		if frameRGB == nil {
			// Not enough frames for a meaningful projection; fall back
			// to the plain palette.
			return s.cfg.Colour.Map(input), nil
		}

		timeBuckets := 0
		if len(input) > 0 {
			timeBuckets = len(input[0])
		}
		bucketRGB := coloursPerTimeBucket(frameRGB, frames, p, timeBuckets)

		out := make([][]colourmap.RGB, len(input))
		for r, row := range input {
			out[r] = make([]colourmap.RGB, len(row))
			for c, intensity := range row {
				rgb := bucketRGB[c]
				out[r][c] = colourmap.RGB{
					scaleChannel(rgb[0], intensity),
					scaleChannel(rgb[1], intensity),
					scaleChannel(rgb[2], intensity),
				}
			}
		}
		return out, nil
	})
}

// frameColours projects each frame's payload onto its first two
// principal components and maps them to a colour: component zero spans
// the hue circle, saturation is fixed at maximum, and HSLuv keeps the
// spread perceptually even. Nil if there are too few frames.
func frameColours(frames *FrameTable) [][3]float64 {
	if frames == nil || len(frames.Rows) < 3 || len(frames.Rows[0]) < 2 {
		return nil
	}

	n := len(frames.Rows)
	d := len(frames.Rows[0]) - 1 // Skip the offset column.
	observations := mat.NewDense(n, d, nil)
	for r, row := range frames.Rows {
		for c := 0; c < d; c++ {
			observations.Set(r, c, float64(row[c+1]))
		}
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(observations, nil); !ok {
		return nil
	}
	components := min(2, d)
	var vectors mat.Dense
	pc.VectorsTo(&vectors)
	var scores mat.Dense
	scores.Mul(observations, vectors.Slice(0, d, 0, components))

	// Normalize the first component onto the hue circle.
	hueMin, hueMax := scores.At(0, 0), scores.At(0, 0)
	for r := 0; r < n; r++ {
		v := scores.At(r, 0)
		hueMin = math.Min(hueMin, v)
		hueMax = math.Max(hueMax, v)
	}
	hueSpan := hueMax - hueMin
	if hueSpan == 0 {
		hueSpan = 1
	}

	// The hue circle wraps at 360, so the span stops one step short of a
	// full turn; otherwise the extreme scores land on the same colour.
	hueTop := 360 * (1 - 1/float64(n))

	out := make([][3]float64, n)
	for r := 0; r < n; r++ {
		hue := hueTop * (scores.At(r, 0) - hueMin) / hueSpan
		red, green, blue := colorful.HSLuv(hue, phaseSaturation, phaseLightness).Clamped().RGB255()
		out[r] = [3]float64{float64(red) / 255, float64(green) / 255, float64(blue) / 255}
	}
	return out
}

// coloursPerTimeBucket spreads per-frame colours over the image's time
// buckets. Each bucket takes the colour of the frame whose decoded
// boundary offset covers its sample; the displayed spectrogram covers
// the amplitude index range minus half a window at each end.
func coloursPerTimeBucket(frameRGB [][3]float64, frames *FrameTable, p phaseParams, timeBuckets int) [][3]float64 {
	if timeBuckets < 1 {
		return nil
	}

	j1, j2 := p.firstAmpIndex, p.lastAmpIndex
	halfWindow := p.windowSamples / 2
	i1 := j1 + halfWindow
	i2 := j2 - halfWindow

	span := i2 - i1
	if span < 1 {
		span = 1
	}

	out := make([][3]float64, timeBuckets)
	for k := 0; k < timeBuckets; k++ {
		// +0.5 rounds to the nearest sample.
		pos := 0.5
		if timeBuckets > 1 {
			pos += float64(k) * float64(span-1) / float64(timeBuckets-1)
		}
		sample := i1 - j1 + int(pos)

		// The last frame whose boundary sits at or before the sample.
		frame := sort.Search(len(frames.Rows), func(f int) bool {
			return int(frames.Rows[f][0]) > sample
		}) - 1
		if frame < 0 {
			frame = 0
		}
		if frame >= len(frameRGB) {
			frame = len(frameRGB) - 1
		}
		out[k] = frameRGB[frame]
	}
	return out
}

func scaleChannel(channel, intensity float64) uint8 {
	v := channel * intensity * 256.0
	if v > 255 {
		v = 255
	}
	if v < 0 {
		v = 0
	}
	return uint8(v)
}
