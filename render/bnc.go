package render

import (
	"github.com/arobinet/sonavis/dsp"
)

type bncParams struct {
	previousSerial uint64
}

type bncSnapshot struct {
	mode              BnCMode
	backgroundPercent float64
	manual            AxisRange
}

type bncOutput struct {
	data      [][]float64
	autoRange *AxisRange
}

// bncStep rescales dB values to the 0..1 range the colour mapping
// consumes, applying the configured brightness and contrast limits.
type bncStep struct {
	settings *GraphSettings
	cache    stepCache[bncParams, bncSnapshot, bncOutput]
}

func newBnCStep(settings *GraphSettings) *bncStep {
	return &bncStep{settings: settings}
}

func (s *bncStep) process(p bncParams, input [][]float64) (bncOutput, uint64, error) {
	snapshot := bncSnapshot{
		mode:              s.settings.BnCMode,
		backgroundPercent: s.settings.BnCBackgroundPercent,
		manual:            s.settings.BnCManualRange,
	}
	return s.cache.process(p, snapshot, func() (bncOutput, error) {
		backgroundPercent := clipToRange(snapshot.backgroundPercent, 0.0, 100.0)

		var vmin, vmax float64
		var autoRange *AxisRange
		switch snapshot.mode {
		case BnCAdaptive:
			// The noise floor sits at the background percentile; the top
			// of the range is the loudest cell.
			vmin, vmax = adaptiveBnCRange(input, backgroundPercent)
			autoRange = &AxisRange{Min: vmin, Max: vmax}
		default:
			vmin, vmax = snapshot.manual.Min, snapshot.manual.Max
		}

		out := make([][]float64, len(input))
		scale := vmax - vmin
		for r, row := range input {
			out[r] = make([]float64, len(row))
			for c, v := range row {
				if scale > 0 {
					v = (v - vmin) / scale
				}
				out[r][c] = clipToRange(v, 0.0, 1.0)
			}
		}
		return bncOutput{data: out, autoRange: autoRange}, nil
	})
}

// adaptiveBnCRange derives display limits from the data itself.
func adaptiveBnCRange(data [][]float64, backgroundPercent float64) (vmin, vmax float64) {
	flat := make([]float64, 0, len(data)*len(data[0]))
	for _, row := range data {
		flat = append(flat, row...)
	}
	vmin = dsp.Percentile(flat, backgroundPercent)
	vmax = dsp.Max(flat)
	return vmin, vmax
}
