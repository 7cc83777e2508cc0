package dsp

import (
	"fmt"
	"math"
)

// Resize2D resamples a matrix to outRows x outCols using a separable
// B-spline kernel of the given order (0 = nearest, 1 = linear,
// 2 = quadratic, 3 = cubic). Source coordinates are placed at pixel
// centres, so the output grid spans the same extent as the input grid.
// Edges are handled by clamping to the nearest source sample.
func Resize2D(src [][]float64, outRows, outCols, order int) ([][]float64, error) {
	if order < 0 || order > 3 {
		return nil, fmt.Errorf("interpolation order must be 0..3, got %d", order)
	}
	if len(src) == 0 || len(src[0]) == 0 {
		return nil, fmt.Errorf("cannot resize an empty matrix")
	}
	if outRows < 1 || outCols < 1 {
		return nil, fmt.Errorf("output size must be positive, got %dx%d", outRows, outCols)
	}

	inRows := len(src)

	// Resample columns first, then rows, over the intermediate matrix.
	mid := make([][]float64, inRows)
	for r := range src {
		mid[r] = resample1D(src[r], outCols, order)
	}

	out := make([][]float64, outRows)
	for r := range out {
		out[r] = make([]float64, outCols)
	}
	column := make([]float64, inRows)
	for c := 0; c < outCols; c++ {
		for r := 0; r < inRows; r++ {
			column[r] = mid[r][c]
		}
		resampled := resample1D(column, outRows, order)
		for r := 0; r < outRows; r++ {
			out[r][c] = resampled[r]
		}
	}
	return out, nil
}

// resample1D maps n input samples onto outLen output samples with a
// B-spline kernel. The output position i reads from input coordinate
// (i + 0.5) * n/outLen - 0.5, which aligns pixel centres of both grids.
func resample1D(in []float64, outLen, order int) []float64 {
	n := len(in)
	out := make([]float64, outLen)
	ratio := float64(n) / float64(outLen)

	if order == 0 {
		for i := 0; i < outLen; i++ {
			x := (float64(i)+0.5)*ratio - 0.5
			k := clampIndex(int(math.Round(x)), n)
			out[i] = in[k]
		}
		return out
	}

	radius := float64(order+1) / 2.0
	for i := 0; i < outLen; i++ {
		x := (float64(i)+0.5)*ratio - 0.5
		lo := int(math.Ceil(x - radius))
		hi := int(math.Floor(x + radius))
		acc := 0.0
		weight := 0.0
		for k := lo; k <= hi; k++ {
			w := bspline(x-float64(k), order)
			if w == 0 {
				continue
			}
			acc += w * in[clampIndex(k, n)]
			weight += w
		}
		if weight != 0 {
			acc /= weight
		}
		out[i] = acc
	}
	return out
}

// bspline evaluates the centred B-spline basis of the given order.
func bspline(t float64, order int) float64 {
	t = math.Abs(t)
	switch order {
	case 1:
		if t < 1 {
			return 1 - t
		}
	case 2:
		switch {
		case t <= 0.5:
			return 0.75 - t*t
		case t <= 1.5:
			d := 1.5 - t
			return 0.5 * d * d
		}
	case 3:
		switch {
		case t < 1:
			return 2.0/3.0 - t*t + t*t*t/2.0
		case t < 2:
			d := 2 - t
			return d * d * d / 6.0
		}
	}
	return 0
}

func clampIndex(k, n int) int {
	if k < 0 {
		return 0
	}
	if k >= n {
		return n - 1
	}
	return k
}
