package chart

import (
	"io"
	"strings"

	"github.com/KaramelBytes/ainsight/internal/analysis"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Chart is a renderable chart page.
type Chart interface {
	Render(w io.Writer) error
}

// Spec selects a chart kind and the columns it is drawn from. Y and Color are
// optional for some kinds.
type Spec struct {
	Kind  Kind   `json:"kind"`
	X     string `json:"x"`
	Y     string `json:"y,omitempty"`
	Color string `json:"color,omitempty"`
}

const missingGroup = "(missing)"

var viridis = []string{"#440154", "#482878", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// Build draws s over t.
func Build(t *analysis.Table, s Spec) (Chart, error) {
	if t == nil || t.NumCols() == 0 {
		return nil, &RenderError{Kind: s.Kind, Msg: "no data"}
	}
	if err := checkColumns(t, s); err != nil {
		return nil, err
	}
	switch s.Kind {
	case Histogram:
		return buildHistogram(t, s)
	case Box:
		return buildBox(t, s)
	case Bar:
		return buildBar(t, s)
	case Scatter:
		return buildScatter(t, s)
	case Pie:
		return buildPie(t, s)
	case Heatmap:
		return buildHeatmap(t, s)
	case Line:
		return buildLine(t, s)
	default:
		return nil, &RenderError{Kind: s.Kind, Msg: "unsupported chart kind"}
	}
}

func checkColumns(t *analysis.Table, s Spec) error {
	if s.X == "" {
		return &RenderError{Kind: s.Kind, Msg: "x column is required"}
	}
	for _, c := range []string{s.X, s.Y, s.Color} {
		if c != "" && t.ColumnIndex(c) < 0 {
			return &RenderError{Kind: s.Kind, Column: c, Msg: "unknown column"}
		}
	}
	if s.Kind.NeedsY() && s.Y == "" {
		return &RenderError{Kind: s.Kind, Msg: "y column is required"}
	}
	return nil
}

func baseGlobals(s Spec, showLegend bool) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: s.Kind.Label(),
			Width:     "100%",
			Height:    "480px",
		}),
		charts.WithTitleOpts(opts.Title{Title: s.Kind.Label()}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(showLegend), Right: "10"}),
	}
}

// globals adds named axes for rectangular charts. WithXAxisOpts replaces the
// whole axis, so SetXAxis must be called after these are applied.
func globals(s Spec, xName, yName string, showLegend bool) []charts.GlobalOpts {
	return append(baseGlobals(s, showLegend),
		charts.WithXAxisOpts(opts.XAxis{Name: xName}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	)
}

// numeric returns the values of a numeric column; ok marks present cells.
func numeric(t *analysis.Table, k Kind, col string) ([]float64, []bool, error) {
	if !t.IsNumeric(col) {
		return nil, nil, &RenderError{Kind: k, Column: col, Msg: "column is not numeric"}
	}
	vals, ok, err := t.Floats(col)
	if err != nil {
		return nil, nil, &RenderError{Kind: k, Column: col, Msg: err.Error()}
	}
	return vals, ok, nil
}

// categories returns each row's trimmed cell and the distinct values in
// first-seen order. Missing cells are reported as "".
func categories(t *analysis.Table, col string) (per []string, order []string) {
	raw, _ := t.Values(col)
	per = make([]string, len(raw))
	seen := map[string]bool{}
	for i, v := range raw {
		if analysis.IsMissing(v) {
			continue
		}
		v = strings.TrimSpace(v)
		per[i] = v
		if !seen[v] {
			seen[v] = true
			order = append(order, v)
		}
	}
	return per, order
}

// grouping assigns every row to a series. Without a color column all rows
// share one series called fallback.
type grouping struct {
	names []string
	of    []string
}

func groupBy(t *analysis.Table, col, fallback string) grouping {
	n := t.NumRows()
	g := grouping{of: make([]string, n)}
	if col == "" {
		g.names = []string{fallback}
		for i := range g.of {
			g.of[i] = fallback
		}
		return g
	}
	per, order := categories(t, col)
	g.names = order
	hasMissing := false
	for i, v := range per {
		if v == "" {
			v = missingGroup
			hasMissing = true
		}
		g.of[i] = v
	}
	if hasMissing {
		g.names = append(g.names, missingGroup)
	}
	return g
}

func indexOf(names []string) map[string]int {
	m := make(map[string]int, len(names))
	for i, n := range names {
		m[n] = i
	}
	return m
}

func buildHistogram(t *analysis.Table, s Spec) (Chart, error) {
	g := groupBy(t, s.Color, "count")
	var (
		labels []string
		bucket = make([]int, t.NumRows())
	)
	if t.IsNumeric(s.X) {
		vals, ok, err := numeric(t, s.Kind, s.X)
		if err != nil {
			return nil, err
		}
		b := sturges(present(vals, ok))
		labels = b.labels()
		for i := range vals {
			bucket[i] = -1
			if ok[i] {
				bucket[i] = b.index(vals[i])
			}
		}
	} else {
		per, order := categories(t, s.X)
		labels = order
		idx := indexOf(order)
		for i, v := range per {
			bucket[i] = -1
			if v != "" {
				bucket[i] = idx[v]
			}
		}
	}
	counts := make([][]int, len(g.names))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	gi := indexOf(g.names)
	for i, b := range bucket {
		if b >= 0 {
			counts[gi[g.of[i]]][b]++
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(globals(s, s.X, "count", s.Color != "")...)
	bar.SetXAxis(labels)
	for i, name := range g.names {
		data := make([]opts.BarData, len(labels))
		for j, c := range counts[i] {
			data[j] = opts.BarData{Value: c}
		}
		bar.AddSeries(name, data, charts.WithBarChartOpts(opts.BarChart{Stack: "total", BarCategoryGap: "1%"}))
	}
	return bar, nil
}

func buildBox(t *analysis.Table, s Spec) (Chart, error) {
	box := charts.NewBoxPlot()
	if s.Y == "" {
		vals, ok, err := numeric(t, s.Kind, s.X)
		if err != nil {
			return nil, err
		}
		g := groupBy(t, s.Color, s.X)
		box.SetGlobalOptions(globals(s, "", s.X, s.Color != "")...)
		box.SetXAxis([]string{s.X})
		gi := indexOf(g.names)
		buckets := make([][]float64, len(g.names))
		for i := range vals {
			if ok[i] {
				k := gi[g.of[i]]
				buckets[k] = append(buckets[k], vals[i])
			}
		}
		for i, name := range g.names {
			box.AddSeries(name, []opts.BoxPlotData{{Value: fiveNumber(buckets[i])}})
		}
		return box, nil
	}

	yv, yok, err := numeric(t, s.Kind, s.Y)
	if err != nil {
		return nil, err
	}
	per, order := categories(t, s.X)
	xi := indexOf(order)
	g := groupBy(t, s.Color, s.Y)
	gi := indexOf(g.names)
	buckets := make([][][]float64, len(g.names))
	for i := range buckets {
		buckets[i] = make([][]float64, len(order))
	}
	for i := range yv {
		if !yok[i] || per[i] == "" {
			continue
		}
		k := gi[g.of[i]]
		buckets[k][xi[per[i]]] = append(buckets[k][xi[per[i]]], yv[i])
	}
	box.SetGlobalOptions(globals(s, s.X, s.Y, s.Color != "")...)
	box.SetXAxis(order)
	for i, name := range g.names {
		data := make([]opts.BoxPlotData, len(order))
		for j := range order {
			data[j] = opts.BoxPlotData{Name: order[j], Value: fiveNumber(buckets[i][j])}
		}
		box.AddSeries(name, data)
	}
	return box, nil
}

// fiveNumber is min, Q1, median, Q3, max; empty input yields an empty box.
func fiveNumber(vals []float64) []float64 {
	if len(vals) == 0 {
		return []float64{}
	}
	return []float64{
		analysis.Quantile(vals, 0),
		analysis.Quantile(vals, 0.25),
		analysis.Quantile(vals, 0.5),
		analysis.Quantile(vals, 0.75),
		analysis.Quantile(vals, 1),
	}
}

func buildBar(t *analysis.Table, s Spec) (Chart, error) {
	var (
		yv  []float64
		yok []bool
	)
	yName, fallback := "count", "count"
	if s.Y != "" {
		var err error
		if yv, yok, err = numeric(t, s.Kind, s.Y); err != nil {
			return nil, err
		}
		yName, fallback = s.Y, s.Y
	}
	per, order := categories(t, s.X)
	xi := indexOf(order)
	g := groupBy(t, s.Color, fallback)
	gi := indexOf(g.names)
	sums := make([][]float64, len(g.names))
	for i := range sums {
		sums[i] = make([]float64, len(order))
	}
	for i, x := range per {
		if x == "" {
			continue
		}
		k := gi[g.of[i]]
		if s.Y == "" {
			sums[k][xi[x]]++
		} else if yok[i] {
			sums[k][xi[x]] += yv[i]
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(globals(s, s.X, yName, s.Color != "")...)
	bar.SetXAxis(order)
	for i, name := range g.names {
		data := make([]opts.BarData, len(order))
		for j, v := range sums[i] {
			data[j] = opts.BarData{Value: v}
		}
		bar.AddSeries(name, data, charts.WithBarChartOpts(opts.BarChart{Stack: "total"}))
	}
	return bar, nil
}

// points pairs x with y per row, keeping row order. Category x values are
// emitted by name so they land on a category axis.
func points(t *analysis.Table, s Spec) (xs []any, ys []float64, keep []bool, xNumeric bool, xOrder []string, err error) {
	yv, yok, err := numeric(t, s.Kind, s.Y)
	if err != nil {
		return nil, nil, nil, false, nil, err
	}
	n := t.NumRows()
	xs = make([]any, n)
	keep = make([]bool, n)
	if t.IsNumeric(s.X) {
		xNumeric = true
		xv, xok, err := numeric(t, s.Kind, s.X)
		if err != nil {
			return nil, nil, nil, false, nil, err
		}
		for i := 0; i < n; i++ {
			xs[i] = xv[i]
			keep[i] = xok[i] && yok[i]
		}
		return xs, yv, keep, true, nil, nil
	}
	per, order := categories(t, s.X)
	for i := 0; i < n; i++ {
		xs[i] = per[i]
		keep[i] = per[i] != "" && yok[i]
	}
	return xs, yv, keep, false, order, nil
}

func buildScatter(t *analysis.Table, s Spec) (Chart, error) {
	xs, ys, keep, xNumeric, xOrder, err := points(t, s)
	if err != nil {
		return nil, err
	}
	g := groupBy(t, s.Color, s.Y)
	sc := charts.NewScatter()
	gl := globals(s, s.X, s.Y, s.Color != "")
	if xNumeric {
		gl = append(gl, charts.WithXAxisOpts(opts.XAxis{Name: s.X, Type: "value"}))
	}
	sc.SetGlobalOptions(gl...)
	if !xNumeric {
		sc.SetXAxis(xOrder)
	}
	for _, name := range g.names {
		var data []opts.ScatterData
		for i := range xs {
			if keep[i] && g.of[i] == name {
				data = append(data, opts.ScatterData{Value: []any{xs[i], ys[i]}})
			}
		}
		sc.AddSeries(name, data)
	}
	return sc, nil
}

func buildLine(t *analysis.Table, s Spec) (Chart, error) {
	xs, ys, keep, xNumeric, xOrder, err := points(t, s)
	if err != nil {
		return nil, err
	}
	g := groupBy(t, s.Color, s.Y)
	line := charts.NewLine()
	gl := globals(s, s.X, s.Y, s.Color != "")
	if xNumeric {
		gl = append(gl, charts.WithXAxisOpts(opts.XAxis{Name: s.X, Type: "value"}))
	}
	line.SetGlobalOptions(gl...)
	if !xNumeric {
		line.SetXAxis(xOrder)
	}
	for _, name := range g.names {
		var data []opts.LineData
		for i := range xs {
			if keep[i] && g.of[i] == name {
				data = append(data, opts.LineData{Value: []any{xs[i], ys[i]}})
			}
		}
		line.AddSeries(name, data)
	}
	return line, nil
}

func buildPie(t *analysis.Table, s Spec) (Chart, error) {
	yv, yok, err := numeric(t, s.Kind, s.Y)
	if err != nil {
		return nil, err
	}
	per, order := categories(t, s.X)
	xi := indexOf(order)
	sums := make([]float64, len(order))
	for i, x := range per {
		if x != "" && yok[i] {
			sums[xi[x]] += yv[i]
		}
	}
	pie := charts.NewPie()
	pie.SetGlobalOptions(baseGlobals(s, true)...)
	data := make([]opts.PieData, len(order))
	for i, name := range order {
		data[i] = opts.PieData{Name: name, Value: sums[i]}
	}
	pie.AddSeries(s.Y, data)
	return pie, nil
}

// axis maps each row to a heatmap cell coordinate: numeric columns are
// binned, others use one cell per distinct value.
func axis(t *analysis.Table, k Kind, col string) (labels []string, at []int, err error) {
	n := t.NumRows()
	at = make([]int, n)
	if t.IsNumeric(col) {
		vals, ok, err := numeric(t, k, col)
		if err != nil {
			return nil, nil, err
		}
		b := sturges(present(vals, ok))
		for i := range vals {
			at[i] = -1
			if ok[i] {
				at[i] = b.index(vals[i])
			}
		}
		return b.labels(), at, nil
	}
	per, order := categories(t, col)
	idx := indexOf(order)
	for i, v := range per {
		at[i] = -1
		if v != "" {
			at[i] = idx[v]
		}
	}
	return order, at, nil
}

func buildHeatmap(t *analysis.Table, s Spec) (Chart, error) {
	xl, xat, err := axis(t, s.Kind, s.X)
	if err != nil {
		return nil, err
	}
	yl, yat, err := axis(t, s.Kind, s.Y)
	if err != nil {
		return nil, err
	}
	counts := make([][]int, len(xl))
	for i := range counts {
		counts[i] = make([]int, len(yl))
	}
	for i := range xat {
		if xat[i] >= 0 && yat[i] >= 0 {
			counts[xat[i]][yat[i]]++
		}
	}
	maxVal := 0
	data := make([]opts.HeatMapData, 0, len(xl)*len(yl))
	for xi := range xl {
		for yi := range yl {
			c := counts[xi][yi]
			if c > maxVal {
				maxVal = c
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{xi, yi, c}})
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(globals(s, s.X, s.Y, false)...)
	hm.SetGlobalOptions(
		charts.WithXAxisOpts(opts.XAxis{Name: s.X, Type: "category", SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithYAxisOpts(opts.YAxis{Name: s.Y, Type: "category", Data: yl, SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxVal),
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	hm.SetXAxis(xl).AddSeries("count", data)
	return hm, nil
}

func present(vals []float64, ok []bool) []float64 {
	out := make([]float64, 0, len(vals))
	for i, v := range vals {
		if ok[i] {
			out = append(out, v)
		}
	}
	return out
}
