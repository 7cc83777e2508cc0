package render

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// ResponseCurve is a microphone frequency response, in dB against Hz.
// Between the fitted points it interpolates with a natural cubic spline;
// outside the fitted domain it extrapolates with the end values.
type ResponseCurve struct {
	spline    interp.NaturalCubic
	minFreq   float64
	maxFreq   float64
	minFreqDB float64
	maxFreqDB float64
}

// NewResponseCurve fits a curve to the given response points. Frequencies
// must be strictly increasing and at least two points are required.
func NewResponseCurve(freqs, db []float64) (*ResponseCurve, error) {
	if len(freqs) != len(db) {
		return nil, fmt.Errorf("got %d frequencies but %d dB values", len(freqs), len(db))
	}
	if len(freqs) < 2 {
		return nil, fmt.Errorf("response curve needs at least 2 points, got %d", len(freqs))
	}

	c := &ResponseCurve{
		minFreq:   freqs[0],
		maxFreq:   freqs[len(freqs)-1],
		minFreqDB: db[0],
		maxFreqDB: db[len(db)-1],
	}
	if err := c.spline.Fit(freqs, db); err != nil {
		return nil, fmt.Errorf("failed to fit response curve: %w", err)
	}
	return c, nil
}

// At returns the response in dB at the given frequency.
func (c *ResponseCurve) At(freq float64) float64 {
	if freq <= c.minFreq {
		return c.minFreqDB
	}
	if freq >= c.maxFreq {
		return c.maxFreqDB
	}
	return c.spline.Predict(freq)
}
