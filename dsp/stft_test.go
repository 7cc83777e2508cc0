package dsp

import (
	"math"
	"testing"
)

func sineWave(freq, sampleRate float64, n int) []float64 {
	data := make([]float64, n)
	for i := range data {
		data[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}
	return data
}

func TestPowerSpectrogramPeakBin(t *testing.T) {
	const sampleRate = 8000.0
	const toneHz = 1000.0
	data := sineWave(toneHz, sampleRate, 16000)

	w, err := NewWindow(WindowHann, 256)
	if err != nil {
		t.Fatalf("NewWindow failed: %v", err)
	}

	freqs, times, power, err := PowerSpectrogram(data, sampleRate, w.Coefficients, 128)
	if err != nil {
		t.Fatalf("PowerSpectrogram failed: %v", err)
	}

	if len(power) != 129 {
		t.Fatalf("got %d frequency bins, want 129", len(power))
	}
	if len(times) != len(power[0]) {
		t.Fatalf("times length %d does not match %d segments", len(times), len(power[0]))
	}

	// Every segment should peak in the bin nearest the tone.
	wantBin := int(toneHz / sampleRate * 256)
	for s := range power[0] {
		peakBin := 0
		for b := range power {
			if power[b][s] > power[peakBin][s] {
				peakBin = b
			}
		}
		if peakBin != wantBin {
			t.Fatalf("segment %d peaks at bin %d (%.0f Hz), want bin %d",
				s, peakBin, freqs[peakBin], wantBin)
		}
	}
}

func TestPowerSpectrogramSegmentTimes(t *testing.T) {
	const sampleRate = 1000.0
	data := make([]float64, 3000)

	w, _ := NewWindow(WindowRectangular, 100)
	_, times, _, err := PowerSpectrogram(data, sampleRate, w.Coefficients, 50)
	if err != nil {
		t.Fatalf("PowerSpectrogram failed: %v", err)
	}

	// First segment is centred half a window in; step is 50 samples.
	if math.Abs(times[0]-0.05) > 1e-9 {
		t.Errorf("times[0] = %f, want 0.05", times[0])
	}
	if math.Abs(times[1]-times[0]-0.05) > 1e-9 {
		t.Errorf("segment spacing = %f, want 0.05", times[1]-times[0])
	}
}

func TestPowerSpectrogramChunkingConsistent(t *testing.T) {
	// A signal long enough to span several chunks must produce the same
	// segment count as the direct formula, with no boundary duplicates.
	const sampleRate = 48000.0
	data := sineWave(500, sampleRate, 350000)

	w, _ := NewWindow(WindowHann, 512)
	noverlap := 256
	_, times, power, err := PowerSpectrogram(data, sampleRate, w.Coefficients, noverlap)
	if err != nil {
		t.Fatalf("PowerSpectrogram failed: %v", err)
	}

	wantSegments := (len(data) - noverlap) / (512 - noverlap)
	if len(power[0]) != wantSegments {
		t.Errorf("got %d segments, want %d", len(power[0]), wantSegments)
	}
	for s := 1; s < len(times); s++ {
		if times[s] <= times[s-1] {
			t.Fatalf("segment times not strictly increasing at %d", s)
		}
	}
}

func TestPowerSpectrogramErrors(t *testing.T) {
	w, _ := NewWindow(WindowHann, 64)
	if _, _, _, err := PowerSpectrogram(make([]float64, 32), 8000, w.Coefficients, 32); err == nil {
		t.Error("expected error for too little data")
	}
	if _, _, _, err := PowerSpectrogram(make([]float64, 128), 8000, w.Coefficients, 64); err == nil {
		t.Error("expected error for overlap equal to window length")
	}
}

func TestComplexSpectrogramMatchesPower(t *testing.T) {
	const sampleRate = 8000.0
	data := sineWave(440, sampleRate, 4096)

	w, _ := NewWindow(WindowHann, 256)
	_, _, power, err := PowerSpectrogram(data, sampleRate, w.Coefficients, 192)
	if err != nil {
		t.Fatalf("PowerSpectrogram failed: %v", err)
	}
	_, _, spec, err := ComplexSpectrogram(data, sampleRate, w.Coefficients, 192)
	if err != nil {
		t.Fatalf("ComplexSpectrogram failed: %v", err)
	}

	// |X|^2 equals the PSD before one-sided doubling.
	for b := 1; b < len(power)-1; b++ {
		for s := range power[b] {
			mag2 := real(spec[b][s])*real(spec[b][s]) + imag(spec[b][s])*imag(spec[b][s])
			if math.Abs(2*mag2-power[b][s]) > 1e-9*(1+power[b][s]) {
				t.Fatalf("bin %d segment %d: 2|X|^2 = %g, PSD = %g", b, s, 2*mag2, power[b][s])
			}
		}
	}
}
