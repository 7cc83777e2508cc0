package render

// AxisRange is a closed interval on a graph axis.
type AxisRange struct {
	Min float64
	Max float64
}

// NewAxisRange orders its arguments so that Min <= Max.
func NewAxisRange(a, b float64) AxisRange {
	if a > b {
		a, b = b, a
	}
	return AxisRange{Min: a, Max: b}
}

// Span returns the width of the range.
func (r AxisRange) Span() float64 {
	return r.Max - r.Min
}

// Contains reports whether the other range lies entirely inside r.
func (r AxisRange) Contains(other AxisRange) bool {
	return r.Min <= other.Min && other.Max <= r.Max
}

// Area is an inclusive pixel rectangle on the canvas.
type Area struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// Size returns the pixel width and height of the area.
func (a Area) Size() (width, height int) {
	return a.Right - a.Left + 1, a.Bottom - a.Top + 1
}

// clipToRange limits v to [lo, hi].
func clipToRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
