package dsp

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// chunkSamples is the nominal number of samples processed per chunk.
// Chunking bounds peak memory when long recordings are analysed; each
// chunk is rounded down to a whole number of segment steps.
const chunkSamples = 100000

// PowerSpectrogram computes a one-sided power spectral density spectrogram.
//
// The returned matrix is indexed [frequency bin][segment]. Frequencies are
// in Hz, times are the segment centres in seconds. Each segment has its
// mean removed, is multiplied by the window, and is scaled to density
// units (V**2/Hz): 1/(fs * sum(w**2)), with all bins except DC and Nyquist
// doubled to account for the discarded negative frequencies.
func PowerSpectrogram(data []float64, sampleRate float64, window []float64, noverlap int) (freqs, times []float64, power [][]float64, err error) {
	nfft := len(window)
	step := nfft - noverlap
	if step <= 0 {
		return nil, nil, nil, fmt.Errorf("overlap %d must be less than the window length %d", noverlap, nfft)
	}
	if len(data) < nfft {
		return nil, nil, nil, fmt.Errorf("need at least %d samples, got %d", nfft, len(data))
	}

	segments := (len(data) - noverlap) / step
	bins := nfft/2 + 1

	freqs = binFrequencies(nfft, sampleRate)
	times = make([]float64, segments)
	power = make([][]float64, bins)
	for b := range power {
		power[b] = make([]float64, segments)
	}

	scale := 1.0 / (sampleRate * SumSquares(window))
	segment := make([]float64, nfft)

	forEachChunk(len(data), nfft, step, func(firstSegment, lastSegment int) {
		for s := firstSegment; s < lastSegment; s++ {
			start := s * step
			windowSegment(data[start:start+nfft], window, segment)
			spectrum := fft.FFTReal(segment)
			for b := 0; b < bins; b++ {
				p := real(spectrum[b])*real(spectrum[b]) + imag(spectrum[b])*imag(spectrum[b])
				p *= scale
				if b != 0 && b != bins-1 {
					p *= 2.0
				}
				power[b][s] = p
			}
			times[s] = (float64(nfft)/2 + float64(start)) / sampleRate
		}
	})

	return freqs, times, power, nil
}

// ComplexSpectrogram computes a one-sided complex spectrogram, scaled to
// amplitude density units so that |X|**2 matches the PSD scaling before
// one-sided doubling. The matrix is indexed [frequency bin][segment].
func ComplexSpectrogram(data []float64, sampleRate float64, window []float64, noverlap int) (freqs, times []float64, spec [][]complex128, err error) {
	nfft := len(window)
	step := nfft - noverlap
	if step <= 0 {
		return nil, nil, nil, fmt.Errorf("overlap %d must be less than the window length %d", noverlap, nfft)
	}
	if len(data) < nfft {
		return nil, nil, nil, fmt.Errorf("need at least %d samples, got %d", nfft, len(data))
	}

	segments := (len(data) - noverlap) / step
	bins := nfft/2 + 1

	freqs = binFrequencies(nfft, sampleRate)
	times = make([]float64, segments)
	spec = make([][]complex128, bins)
	for b := range spec {
		spec[b] = make([]complex128, segments)
	}

	scale := complex(math.Sqrt(1.0/(sampleRate*SumSquares(window))), 0)
	segment := make([]float64, nfft)

	forEachChunk(len(data), nfft, step, func(firstSegment, lastSegment int) {
		for s := firstSegment; s < lastSegment; s++ {
			start := s * step
			windowSegment(data[start:start+nfft], window, segment)
			spectrum := fft.FFTReal(segment)
			for b := 0; b < bins; b++ {
				spec[b][s] = spectrum[b] * scale
			}
			times[s] = (float64(nfft)/2 + float64(start)) / sampleRate
		}
	})

	return freqs, times, spec, nil
}

// forEachChunk invokes fn over half-open segment index ranges covering
// roughly chunkSamples of input each. Segments that straddle a chunk
// boundary are computed exactly once, by the chunk that owns their index.
func forEachChunk(dataLen, nfft, step int, fn func(firstSegment, lastSegment int)) {
	totalSegments := (dataLen - (nfft - step)) / step
	segmentsPerChunk := chunkSamples / step
	if segmentsPerChunk < 1 {
		segmentsPerChunk = 1
	}

	for first := 0; first < totalSegments; first += segmentsPerChunk {
		last := min(first+segmentsPerChunk, totalSegments)
		fn(first, last)
	}
}

// windowSegment removes the segment mean then applies the window.
func windowSegment(src, window, dst []float64) {
	mean := Mean(src)
	for i, v := range src {
		dst[i] = (v - mean) * window[i]
	}
}

func binFrequencies(nfft int, sampleRate float64) []float64 {
	bins := nfft/2 + 1
	freqs := make([]float64, bins)
	for b := 0; b < bins; b++ {
		freqs[b] = float64(b) * sampleRate / float64(nfft)
	}
	return freqs
}
