package render

import (
	"math"
	"testing"

	"github.com/arobinet/sonavis/colourmap"
)

func toneChannel(sampleRate int, seconds, freq float64) []int16 {
	n := int(float64(sampleRate) * seconds)
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(20000 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return samples
}

func toneFFTParams(samples, windowSamples int) fftParams {
	return fftParams{
		previousSerial: 1,
		sampleCount:    samples,
		timeRange:      AxisRange{Min: 0, Max: 1},
		windowSamples:  windowSamples,
		overlapSamples: windowSamples / 2,
		overlapPercent: 50,
	}
}

func TestFFTStepFindsTone(t *testing.T) {
	const (
		sampleRate = 16000
		toneHz     = 2000.0
		window     = 512
	)
	settings := testPipelineSettings(sampleRate)
	cfg := NewConfig(colourmap.Greyscale(256))
	step := NewSpectrogramFFTStep(&settings, cfg)

	channel := toneChannel(sampleRate, 0.5, toneHz)
	raw := readerOutput{data: [][]int16{channel}}
	out, _, err := step.process(toneFFTParams(len(channel), window), raw)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if len(out.spec) != window/2+1 {
		t.Fatalf("got %d frequency rows, want %d", len(out.spec), window/2+1)
	}

	best, bestV := 0, math.Inf(-1)
	for b, row := range out.spec {
		var sum float64
		for _, v := range row {
			sum += v
		}
		if sum > bestV {
			best, bestV = b, sum
		}
	}
	wantBucket := int(toneHz * window / sampleRate)
	if best != wantBucket {
		t.Errorf("peak in bucket %d, want %d", best, wantBucket)
	}

	if out.params.WindowSamples != window || out.params.Channels != 1 || out.params.Channel != -1 {
		t.Errorf("params = %+v", out.params)
	}
}

func TestFFTStepAppliesResponseCurve(t *testing.T) {
	const sampleRate = 16000
	settings := testPipelineSettings(sampleRate)
	channel := toneChannel(sampleRate, 0.25, 1000)
	raw := readerOutput{data: [][]int16{channel}}
	p := toneFFTParams(len(channel), 256)

	plain := NewSpectrogramFFTStep(&settings, NewConfig(colourmap.Greyscale(256)))
	base, _, err := plain.process(p, raw)
	if err != nil {
		t.Fatal(err)
	}

	curve, err := NewResponseCurve([]float64{0, 8000}, []float64{10, 10})
	if err != nil {
		t.Fatal(err)
	}
	cfg := NewConfig(colourmap.Greyscale(256))
	cfg.MainResponse = curve
	corrected, _, err := NewSpectrogramFFTStep(&settings, cfg).process(p, raw)
	if err != nil {
		t.Fatal(err)
	}

	// A flat 10 dB response shifts every cell down by 10 dB.
	for b := 0; b < len(base.spec); b += 32 {
		for s := 0; s < len(base.spec[b]); s += 7 {
			want := base.spec[b][s] - 10
			if math.Abs(corrected.spec[b][s]-want) > 1e-9 {
				t.Fatalf("cell [%d][%d] = %f, want %f", b, s, corrected.spec[b][s], want)
			}
		}
	}
}

func TestFFTStepSingleChannelSelection(t *testing.T) {
	const sampleRate = 16000
	quiet := make([]int16, 4000)
	for i := range quiet {
		quiet[i] = int16(50 * math.Sin(2*math.Pi*500*float64(i)/sampleRate))
	}
	loud := toneChannel(sampleRate, 0.25, 500)
	raw := readerOutput{data: [][]int16{quiet, loud}}
	p := toneFFTParams(4000, 256)

	settings := testPipelineSettings(sampleRate)
	settings.MultichannelMode = MultichannelSingle
	settings.MultichannelChannel = 1
	cfg := NewConfig(colourmap.Greyscale(256))
	out, _, err := NewSpectrogramFFTStep(&settings, cfg).process(p, raw)
	if err != nil {
		t.Fatal(err)
	}
	if out.params.Channel != 1 || out.params.Channels != 2 {
		t.Errorf("params = %+v, want channel 1 of 2", out.params)
	}
	loudPeak := specMax(out.spec)

	settings.MultichannelChannel = 0
	quietOut, _, err := NewSpectrogramFFTStep(&settings, cfg).process(p, raw)
	if err != nil {
		t.Fatal(err)
	}
	quietPeak := specMax(quietOut.spec)

	// The channels differ by 52 dB of amplitude; the analysed peak must
	// follow the selected channel.
	if loudPeak-quietPeak < 40 {
		t.Errorf("loud peak %f dB, quiet peak %f dB, want a wide gap", loudPeak, quietPeak)
	}
}

func specMax(spec [][]float64) float64 {
	best := math.Inf(-1)
	for _, row := range spec {
		for _, v := range row {
			if v > best {
				best = v
			}
		}
	}
	return best
}

func TestFFTStepAdaptiveVariantFollowsZoom(t *testing.T) {
	const sampleRate = 16000
	cfg := NewConfig(colourmap.Greyscale(256))
	channel := toneChannel(sampleRate, 0.08, 3000) // Below the switch threshold.
	raw := readerOutput{data: [][]int16{channel}}
	p := toneFFTParams(len(channel), 256)

	variants := map[SpectrogramVariant]fftOutput{}
	for _, v := range []SpectrogramVariant{VariantStandard, VariantReassigned, VariantAdaptive} {
		settings := testPipelineSettings(sampleRate)
		settings.SpectrogramVariant = v
		out, _, err := NewSpectrogramFFTStep(&settings, cfg).process(p, raw)
		if err != nil {
			t.Fatalf("variant %v failed: %v", v, err)
		}
		variants[v] = out
	}

	if !specEqual(variants[VariantAdaptive].spec, variants[VariantReassigned].spec) {
		t.Error("adaptive variant on a short span must match the reassigned method")
	}
	if specEqual(variants[VariantAdaptive].spec, variants[VariantStandard].spec) {
		t.Error("adaptive variant on a short span must not match the standard method")
	}

	// On a long span the adaptive variant sticks with the standard method.
	long := toneChannel(sampleRate, 0.5, 3000)
	longRaw := readerOutput{data: [][]int16{long}}
	longP := toneFFTParams(len(long), 256)
	for _, v := range []SpectrogramVariant{VariantStandard, VariantAdaptive} {
		settings := testPipelineSettings(sampleRate)
		settings.SpectrogramVariant = v
		out, _, err := NewSpectrogramFFTStep(&settings, cfg).process(longP, longRaw)
		if err != nil {
			t.Fatalf("variant %v failed: %v", v, err)
		}
		variants[v] = out
	}
	if !specEqual(variants[VariantAdaptive].spec, variants[VariantStandard].spec) {
		t.Error("adaptive variant on a long span must match the standard method")
	}
}

func specEqual(a, b [][]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for r := range a {
		if len(a[r]) != len(b[r]) {
			return false
		}
		for c := range a[r] {
			if a[r][c] != b[r][c] {
				return false
			}
		}
	}
	return true
}
