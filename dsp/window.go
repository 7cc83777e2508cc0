package dsp

import (
	"fmt"
	"math"
)

// WindowType identifies an analysis window function.
type WindowType string

const (
	WindowHann        WindowType = "hann"
	WindowHamming     WindowType = "hamming"
	WindowBlackman    WindowType = "blackman"
	WindowTukey       WindowType = "tukey"
	WindowBartlett    WindowType = "bartlett"
	WindowFlatTop     WindowType = "flattop"
	WindowRectangular WindowType = "boxcar"
)

// tukeyAlpha is the taper fraction used for the Tukey window option.
const tukeyAlpha = 0.5

// Window holds generated window coefficients and the quantities the
// spectrogram scaling needs.
type Window struct {
	Type         WindowType
	Size         int
	Coefficients []float64
}

// NewWindow generates a periodic window of the given type and size.
// Periodic windows are the right choice for spectral analysis with
// overlapping segments.
func NewWindow(windowType WindowType, size int) (*Window, error) {
	if size < 1 {
		return nil, fmt.Errorf("window size must be positive, got %d", size)
	}

	w := &Window{
		Type:         windowType,
		Size:         size,
		Coefficients: make([]float64, size),
	}

	n := float64(size)
	switch windowType {
	case WindowHann:
		for i := 0; i < size; i++ {
			w.Coefficients[i] = 0.5 * (1.0 - math.Cos(2*math.Pi*float64(i)/n))
		}
	case WindowHamming:
		for i := 0; i < size; i++ {
			w.Coefficients[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/n)
		}
	case WindowBlackman:
		for i := 0; i < size; i++ {
			x := 2 * math.Pi * float64(i) / n
			w.Coefficients[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
		}
	case WindowBartlett:
		for i := 0; i < size; i++ {
			w.Coefficients[i] = 1.0 - math.Abs(2*float64(i)/n-1.0)
		}
	case WindowTukey:
		taper := tukeyAlpha * n / 2.0
		for i := 0; i < size; i++ {
			x := float64(i)
			switch {
			case x < taper:
				w.Coefficients[i] = 0.5 * (1.0 + math.Cos(math.Pi*(x/taper-1.0)))
			case x > n-taper:
				w.Coefficients[i] = 0.5 * (1.0 + math.Cos(math.Pi*((x-n+taper)/taper)))
			default:
				w.Coefficients[i] = 1.0
			}
		}
	case WindowFlatTop:
		// SRS flat-top coefficients, as used by scipy.signal.
		a := [5]float64{0.21557895, 0.41663158, 0.277263158, 0.083578947, 0.006947368}
		for i := 0; i < size; i++ {
			x := 2 * math.Pi * float64(i) / n
			w.Coefficients[i] = a[0] - a[1]*math.Cos(x) + a[2]*math.Cos(2*x) -
				a[3]*math.Cos(3*x) + a[4]*math.Cos(4*x)
		}
	case WindowRectangular:
		for i := 0; i < size; i++ {
			w.Coefficients[i] = 1.0
		}
	default:
		return nil, fmt.Errorf("unsupported window type: %s", windowType)
	}

	return w, nil
}

// PadTo returns the coefficients zero padded symmetrically to length nfft.
// Padding the window rather than the segments keeps the analysis centred.
func (w *Window) PadTo(nfft int) []float64 {
	if nfft <= w.Size {
		return w.Coefficients
	}
	halfPad := (nfft - w.Size) / 2
	padded := make([]float64, nfft)
	copy(padded[halfPad:], w.Coefficients)
	return padded
}

// SumSquares returns the window energy used for density (PSD) scaling.
func SumSquares(coefficients []float64) float64 {
	sum := 0.0
	for _, c := range coefficients {
		sum += c * c
	}
	return sum
}
