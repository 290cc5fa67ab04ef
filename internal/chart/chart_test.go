package chart

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/KaramelBytes/ainsight/internal/analysis"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sales = `region,product,units,price
north,apple,10,1.5
south,apple,4,1.7
north,pear,7,2.0
east,pear,,2.2
south,plum,12,0.9
north,plum,3,1.1
`

func loadSales(t *testing.T) *analysis.Table {
	t.Helper()
	tbl, err := analysis.ParseCSV("sales.csv", strings.NewReader(sales), analysis.DefaultParseOptions())
	require.NoError(t, err)
	return tbl
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"histogram", Histogram},
		{"Box Plot", Box},
		{"bar chart", Bar},
		{"SCATTER", Scatter},
		{"Pie Chart", Pie},
		{"heatmap", Heatmap},
		{"Line Chart", Line},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseKind("radar")
	var re *RenderError
	assert.True(t, errors.As(err, &re))
}

func TestKindsOrderAndLabels(t *testing.T) {
	var labels []string
	for _, k := range Kinds() {
		labels = append(labels, k.Label())
	}
	assert.Equal(t, []string{"Histogram", "Box Plot", "Bar Chart", "Scatter Plot", "Pie Chart", "Heatmap", "Line Chart"}, labels)
}

func TestSuggestionsListsSixKinds(t *testing.T) {
	s := Suggestions()
	assert.Contains(t, s, "- **Histogram**: For visualizing distributions of a single numeric column.")
	assert.Contains(t, s, "- **Heatmap**: To study relationships between variables in a grid format.")
	assert.NotContains(t, s, "Line Chart")
	assert.Equal(t, 7, strings.Count(s, "\n"))
}

func TestBuildEveryKind(t *testing.T) {
	tbl := loadSales(t)
	tests := []struct {
		name string
		spec Spec
	}{
		{"histogram numeric", Spec{Kind: Histogram, X: "units"}},
		{"histogram categorical colored", Spec{Kind: Histogram, X: "region", Color: "product"}},
		{"box grouped", Spec{Kind: Box, X: "region", Y: "units"}},
		{"box single column", Spec{Kind: Box, X: "price"}},
		{"bar count", Spec{Kind: Bar, X: "region"}},
		{"bar stacked sum", Spec{Kind: Bar, X: "region", Y: "units", Color: "product"}},
		{"scatter numeric", Spec{Kind: Scatter, X: "price", Y: "units"}},
		{"scatter category x", Spec{Kind: Scatter, X: "region", Y: "units", Color: "product"}},
		{"pie", Spec{Kind: Pie, X: "region", Y: "units"}},
		{"heatmap mixed", Spec{Kind: Heatmap, X: "region", Y: "price"}},
		{"line", Spec{Kind: Line, X: "price", Y: "units", Color: "region"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Build(tbl, tt.spec)
			require.NoError(t, err)
			var buf bytes.Buffer
			require.NoError(t, c.Render(&buf))
			assert.Contains(t, buf.String(), tt.spec.Kind.Label())
		})
	}
}

func TestBuildErrors(t *testing.T) {
	tbl := loadSales(t)
	tests := []struct {
		name   string
		spec   Spec
		column string
	}{
		{"unknown kind", Spec{Kind: "radar", X: "units"}, ""},
		{"missing x", Spec{Kind: Bar}, ""},
		{"unknown column", Spec{Kind: Bar, X: "nope"}, "nope"},
		{"scatter without y", Spec{Kind: Scatter, X: "units"}, ""},
		{"pie without y", Spec{Kind: Pie, X: "region"}, ""},
		{"box non-numeric y", Spec{Kind: Box, X: "units", Y: "region"}, "region"},
		{"line non-numeric y", Spec{Kind: Line, X: "units", Y: "product"}, "product"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tbl, tt.spec)
			var re *RenderError
			require.True(t, errors.As(err, &re), "got %v", err)
			assert.Equal(t, tt.column, re.Column)
		})
	}
}

func TestBarSumsPerCategory(t *testing.T) {
	tbl := loadSales(t)
	c, err := Build(tbl, Spec{Kind: Bar, X: "region", Y: "units"})
	require.NoError(t, err)
	bar, ok := c.(*charts.Bar)
	require.True(t, ok)
	require.Len(t, bar.MultiSeries, 1)
	data, ok := bar.MultiSeries[0].Data.([]opts.BarData)
	require.True(t, ok)
	require.Len(t, data, 3)
	// north 10+7+3, south 4+12, east holds only a missing value
	assert.Equal(t, 20.0, data[0].Value)
	assert.Equal(t, 16.0, data[1].Value)
	assert.Equal(t, 0.0, data[2].Value)
}

func TestSturges(t *testing.T) {
	b := sturges([]float64{0, 1, 2, 3, 4, 5, 6, 7})
	assert.Equal(t, 4, b.n)
	assert.Equal(t, 0, b.index(0))
	assert.Equal(t, 3, b.index(7))
	assert.Len(t, b.labels(), 4)

	flat := sturges([]float64{2, 2, 2})
	assert.Equal(t, 1, flat.n)
	assert.Equal(t, 0, flat.index(2))
}

func TestPieSlicesFromXValuesFromY(t *testing.T) {
	tbl, err := analysis.ParseCSV("c.csv", strings.NewReader("category,amount\na,1\nb,2\na,3\n"), analysis.DefaultParseOptions())
	require.NoError(t, err)
	c, err := Build(tbl, Spec{Kind: Pie, X: "category", Y: "amount"})
	require.NoError(t, err)
	pie, ok := c.(*charts.Pie)
	require.True(t, ok)
	require.Len(t, pie.MultiSeries, 1)
	assert.Equal(t, []opts.PieData{{Name: "a", Value: 4.0}, {Name: "b", Value: 2.0}}, pie.MultiSeries[0].Data)
}
