package dsp

import (
	"math"
	"testing"
)

func TestResize2DIdentity(t *testing.T) {
	src := [][]float64{
		{1, 2, 3},
		{4, 5, 6},
	}

	for order := 0; order <= 1; order++ {
		out, err := Resize2D(src, 2, 3, order)
		if err != nil {
			t.Fatalf("order %d: Resize2D failed: %v", order, err)
		}
		for r := range src {
			for c := range src[r] {
				if math.Abs(out[r][c]-src[r][c]) > 1e-9 {
					t.Errorf("order %d: out[%d][%d] = %f, want %f",
						order, r, c, out[r][c], src[r][c])
				}
			}
		}
	}
}

func TestResize2DConstantField(t *testing.T) {
	src := make([][]float64, 4)
	for r := range src {
		src[r] = []float64{7, 7, 7, 7}
	}

	for order := 0; order <= 3; order++ {
		out, err := Resize2D(src, 9, 11, order)
		if err != nil {
			t.Fatalf("order %d: Resize2D failed: %v", order, err)
		}
		if len(out) != 9 || len(out[0]) != 11 {
			t.Fatalf("order %d: got %dx%d, want 9x11", order, len(out), len(out[0]))
		}
		// A constant field must stay constant for every spline order.
		for r := range out {
			for c := range out[r] {
				if math.Abs(out[r][c]-7) > 1e-9 {
					t.Fatalf("order %d: out[%d][%d] = %f, want 7", order, r, c, out[r][c])
				}
			}
		}
	}
}

func TestResize2DUpsampleMonotone(t *testing.T) {
	src := [][]float64{{0, 1, 2, 3}}

	out, err := Resize2D(src, 1, 16, 1)
	if err != nil {
		t.Fatalf("Resize2D failed: %v", err)
	}
	for c := 1; c < len(out[0]); c++ {
		if out[0][c] < out[0][c-1] {
			t.Fatalf("linear upsample not monotone at column %d: %v", c, out[0])
		}
	}
	if out[0][0] < 0 || out[0][15] > 3 {
		t.Errorf("edge values escaped source range: %f .. %f", out[0][0], out[0][15])
	}
}

func TestResize2DNearest(t *testing.T) {
	src := [][]float64{{10, 20}}

	out, err := Resize2D(src, 1, 4, 0)
	if err != nil {
		t.Fatalf("Resize2D failed: %v", err)
	}
	want := []float64{10, 10, 20, 20}
	for c := range want {
		if out[0][c] != want[c] {
			t.Errorf("out[0][%d] = %f, want %f", c, out[0][c], want[c])
		}
	}
}

func TestResize2DErrors(t *testing.T) {
	src := [][]float64{{1}}
	if _, err := Resize2D(src, 1, 1, 4); err == nil {
		t.Error("expected error for order 4")
	}
	if _, err := Resize2D(src, 0, 1, 1); err == nil {
		t.Error("expected error for zero output size")
	}
	if _, err := Resize2D([][]float64{}, 1, 1, 1); err == nil {
		t.Error("expected error for empty input")
	}
}
