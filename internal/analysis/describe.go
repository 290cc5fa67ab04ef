package analysis

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Statistic row labels, in output order.
var statRows = []string{"count", "unique", "top", "freq", "mean", "std", "min", "25%", "50%", "75%", "max"}

// ColumnStats holds descriptive statistics for one column. Numeric columns
// fill the moment and quantile fields; other columns fill Unique/Top/Freq.
type ColumnStats struct {
	Name    string
	Numeric bool
	Count   int
	Missing int

	Unique int
	Top    string
	Freq   int

	Mean, Std            float64
	Min, Q1, Q2, Q3, Max float64
}

// Description is the per-column statistics of a table.
type Description struct {
	Rows    int
	Columns []ColumnStats
}

// Describe computes statistics over every column, numeric and non-numeric
// alike.
func Describe(t *Table) *Description {
	d := &Description{Rows: t.NumRows(), Columns: make([]ColumnStats, 0, t.NumCols())}
	for j, name := range t.Columns {
		cs := ColumnStats{Name: name, Numeric: t.IsNumeric(name)}
		if cs.Numeric {
			describeNumeric(t, j, &cs)
		} else {
			describeCategorical(t, j, &cs)
		}
		d.Columns = append(d.Columns, cs)
	}
	return d
}

func describeNumeric(t *Table, j int, cs *ColumnStats) {
	var (
		n    int
		mean float64
		m2   float64
		vals []float64
	)
	for _, row := range t.Rows {
		v := row[j]
		if IsMissing(v) {
			cs.Missing++
			continue
		}
		x, ok := parseNumeric(v, t.opt)
		if !ok {
			cs.Missing++
			continue
		}
		// Welford update
		n++
		delta := x - mean
		mean += delta / float64(n)
		m2 += delta * (x - mean)
		vals = append(vals, x)
	}
	cs.Count = n
	cs.Mean = mean
	cs.Std = math.NaN()
	if n > 1 {
		cs.Std = math.Sqrt(m2 / float64(n-1))
	}
	sort.Float64s(vals)
	cs.Min = quantile(vals, 0)
	cs.Q1 = quantile(vals, 0.25)
	cs.Q2 = quantile(vals, 0.5)
	cs.Q3 = quantile(vals, 0.75)
	cs.Max = quantile(vals, 1)
}

func describeCategorical(t *Table, j int, cs *ColumnStats) {
	counts := map[string]int{}
	var order []string
	for _, row := range t.Rows {
		v := row[j]
		if IsMissing(v) {
			cs.Missing++
			continue
		}
		cs.Count++
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	cs.Unique = len(counts)
	// ties resolve to the value seen first
	for _, v := range order {
		if counts[v] > cs.Freq {
			cs.Top, cs.Freq = v, counts[v]
		}
	}
}

// Lookup returns the stats for a column by name.
func (d *Description) Lookup(name string) (ColumnStats, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnStats{}, false
}

// cell formats one statistic of one column; "NaN" marks a statistic that
// does not apply to the column's kind.
func (c ColumnStats) cell(stat string) string {
	if stat == "count" {
		return strconv.Itoa(c.Count)
	}
	if !c.Numeric {
		switch stat {
		case "unique":
			return strconv.Itoa(c.Unique)
		case "top":
			if c.Count == 0 {
				return "NaN"
			}
			return safeVal(c.Top)
		case "freq":
			if c.Count == 0 {
				return "NaN"
			}
			return strconv.Itoa(c.Freq)
		}
		return "NaN"
	}
	if c.Count == 0 {
		return "NaN"
	}
	switch stat {
	case "mean":
		return formatFloat(c.Mean)
	case "std":
		return formatFloat(c.Std)
	case "min":
		return formatFloat(c.Min)
	case "25%":
		return formatFloat(c.Q1)
	case "50%":
		return formatFloat(c.Q2)
	case "75%":
		return formatFloat(c.Q3)
	case "max":
		return formatFloat(c.Max)
	}
	return "NaN"
}

// String renders the statistics as a flat text table: one row per statistic
// with its label in an "index" column, one column per table column.
func (d *Description) String() string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, 0, len(d.Columns)+1)
	header = append(header, "index")
	for _, c := range d.Columns {
		header = append(header, safeName(c.Name))
	}
	tw.AppendHeader(header)
	for _, stat := range statRows {
		row := make(table.Row, 0, len(d.Columns)+1)
		row = append(row, stat)
		for _, c := range d.Columns {
			row = append(row, c.cell(stat))
		}
		tw.AppendRow(row)
	}
	return tw.Render()
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', 6, 64)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(s, "\n", " ") }

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Quantile returns the linear-interpolated q-quantile of unsorted values.
func Quantile(vals []float64, q float64) float64 {
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	return quantile(cp, q)
}
