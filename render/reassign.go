package render

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/arobinet/sonavis/dsp"
)

// despeckleThreshold zeroes reassigned cells whose mixed phase second
// difference exceeds it; such cells are impulsive noise, not signal.
const despeckleThreshold = 10.0

// reassignedSpectrogram sharpens a spectrogram using Nelson's method of
// time-frequency reassignment: the cross spectrum against a one sample
// delayed copy gives each cell's channelized instantaneous frequency,
// and the cross spectrum against a one bin rotated copy gives its local
// group delay. Each cell's power is then moved to the bucket holding its
// true frequency and time, instead of being smeared over the whole
// analysis window.
//
// Power is conserved: coordinates landing outside the bucket grid are
// clamped to the nearest edge bucket rather than dropped.
func reassignedSpectrogram(data []float64, sampleRate float64, window []float64,
	noverlap int, despeckle bool) ([]float64, [][]float64, error) {

	// Trim one sample from each end so the plain and delayed series have
	// the same length.
	if len(data) < 2 {
		return nil, nil, fmt.Errorf("need at least 2 samples for reassignment, got %d", len(data))
	}
	plain := data[1 : len(data)-1]
	delayed := data[:len(data)-2]

	freqs, times, stft, err := dsp.ComplexSpectrogram(plain, sampleRate, window, noverlap)
	if err != nil {
		return nil, nil, err
	}
	_, _, stftDel, err := dsp.ComplexSpectrogram(delayed, sampleRate, window, noverlap)
	if err != nil {
		return nil, nil, err
	}

	bins := len(stft)
	segments := len(stft[0])
	nfft := len(window)

	k1 := sampleRate / (2 * math.Pi)
	windowWidth := float64(nfft) / sampleRate
	k2 := windowWidth / (2 * math.Pi)
	halfWindowWidth := windowWidth / 2

	power := make([][]float64, bins)
	cif := make([][]float64, bins)
	lgd := make([][]float64, bins)
	for b := 0; b < bins; b++ {
		power[b] = make([]float64, segments)
		cif[b] = make([]float64, segments)
		lgd[b] = make([]float64, segments)
		// The one bin rotated copy pairs each cell with its neighbour
		// one frequency down, wrapping at the edge.
		prev := (b - 1 + bins) % bins
		for s := 0; s < segments; s++ {
			z := stft[b][s]
			power[b][s] = real(z)*real(z) + imag(z)*imag(z)
			cif[b][s] = k1 * cmplx.Phase(z*cmplx.Conj(stftDel[b][s]))

			// Remap the angle to [0, 2pi) so one signal is not split
			// across the wrap, then convert to a time adjustment.
			angle := cmplx.Phase(z * cmplx.Conj(stft[prev][s]))
			if angle < 0 {
				angle += 2 * math.Pi
			}
			lgd[b][s] = halfWindowWidth - k2*angle
		}
	}

	reassigned := reassign(power, cif, lgd, freqs, times)

	if despeckle {
		applyDespeckle(reassigned, stft, stftDel, sampleRate)
	}

	return freqs, reassigned, nil
}

// reassign bins each cell's power into the bucket grid at its corrected
// frequency and time. Bucket edges are centred on the nominal values.
func reassign(power, cif, lgd [][]float64, freqs, times []float64) [][]float64 {
	bins := len(power)
	segments := len(power[0])

	df := freqs[1] - freqs[0]
	fMin := freqs[0] - df/2
	var dt float64
	if len(times) > 1 {
		dt = times[1] - times[0]
	} else {
		dt = 1
	}
	tMin := times[0] - dt/2

	out := make([][]float64, bins)
	for b := range out {
		out[b] = make([]float64, segments)
	}

	for b := 0; b < bins; b++ {
		for s := 0; s < segments; s++ {
			targetF := int(math.Floor((cif[b][s] - fMin) / df))
			targetT := int(math.Floor((times[s] + lgd[b][s] - tMin) / dt))
			targetF = clampBucket(targetF, bins)
			targetT = clampBucket(targetT, segments)
			out[targetF][targetT] += power[b][s]
		}
	}
	return out
}

// applyDespeckle zeroes cells whose channelized instantaneous frequency
// derivative is too large to be a coherent signal.
func applyDespeckle(reassigned [][]float64, stft, stftDel [][]complex128, sampleRate float64) {
	bins := len(stft)
	segments := len(stft[0])
	k3 := sampleRate / (2 * math.Pi)

	for b := 0; b < bins; b++ {
		prev := (b - 1 + bins) % bins
		for s := 0; s < segments; s++ {
			// Mixed partial cross spectrum over the time and frequency
			// shifted transforms.
			mix := stft[b][s] * cmplx.Conj(stftDel[b][s]) *
				cmplx.Conj(stft[prev][s]*cmplx.Conj(stftDel[prev][s]))
			angle := cmplx.Phase(mix)
			if angle < 0 {
				angle += 2 * math.Pi
			}
			if k3*angle*angle > despeckleThreshold {
				reassigned[b][s] = 0
			}
		}
	}
}

func clampBucket(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
