package chart

import (
	"math"
	"strconv"
)

// binning is an equal-width partition of a numeric range.
type binning struct {
	lo, width float64
	n         int
}

// sturges picks ceil(log2(n))+1 equal-width bins spanning the data.
func sturges(vals []float64) binning {
	if len(vals) == 0 {
		return binning{lo: 0, width: 1, n: 1}
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return binning{lo: lo - 0.5, width: 1, n: 1}
	}
	n := int(math.Ceil(math.Log2(float64(len(vals))))) + 1
	return binning{lo: lo, width: (hi - lo) / float64(n), n: n}
}

// index returns the bin holding v; the top edge belongs to the last bin.
func (b binning) index(v float64) int {
	i := int(math.Floor((v - b.lo) / b.width))
	if i < 0 {
		return 0
	}
	if i >= b.n {
		return b.n - 1
	}
	return i
}

func (b binning) labels() []string {
	out := make([]string, b.n)
	for i := range out {
		lo := b.lo + float64(i)*b.width
		out[i] = "[" + fmtEdge(lo) + ", " + fmtEdge(lo+b.width) + ")"
	}
	return out
}

func fmtEdge(f float64) string { return strconv.FormatFloat(f, 'g', 4, 64) }
