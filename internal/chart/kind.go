// Package chart builds interactive go-echarts charts over analysis tables.
package chart

import (
	"fmt"
	"strings"
)

// Kind is one of the supported chart types.
type Kind string

const (
	Histogram Kind = "histogram"
	Box       Kind = "box"
	Bar       Kind = "bar"
	Scatter   Kind = "scatter"
	Pie       Kind = "pie"
	Heatmap   Kind = "heatmap"
	Line      Kind = "line"
)

var kindOrder = []Kind{Histogram, Box, Bar, Scatter, Pie, Heatmap, Line}

var kindLabels = map[Kind]string{
	Histogram: "Histogram",
	Box:       "Box Plot",
	Bar:       "Bar Chart",
	Scatter:   "Scatter Plot",
	Pie:       "Pie Chart",
	Heatmap:   "Heatmap",
	Line:      "Line Chart",
}

var kindDescriptions = map[Kind]string{
	Histogram: "For visualizing distributions of a single numeric column.",
	Box:       "For detecting outliers in numeric data.",
	Bar:       "To compare aggregated values (e.g., categories vs. totals).",
	Scatter:   "To explore correlations between two numeric variables.",
	Pie:       "For visualizing proportions of categories.",
	Heatmap:   "To study relationships between variables in a grid format.",
	Line:      "To follow a numeric value across the order of rows.",
}

// Kinds returns every kind in menu order.
func Kinds() []Kind { return append([]Kind(nil), kindOrder...) }

// Label is the human-facing name, also used as the chart title.
func (k Kind) Label() string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}

// Description is a one-line hint about when to use the kind.
func (k Kind) Description() string { return kindDescriptions[k] }

// NeedsY reports whether the kind cannot be drawn without a y column.
func (k Kind) NeedsY() bool {
	switch k {
	case Scatter, Pie, Heatmap, Line:
		return true
	}
	return false
}

// ParseKind accepts either the identifier ("box") or the label ("Box Plot"),
// case-insensitively.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	for _, k := range kindOrder {
		if strings.EqualFold(s, string(k)) || strings.EqualFold(s, k.Label()) {
			return k, nil
		}
	}
	return "", &RenderError{Kind: Kind(s), Msg: "unsupported chart kind"}
}

// Suggestions returns the fixed "common visualization options" block.
// Line charts are offered in the menu but not listed here.
func Suggestions() string {
	var b strings.Builder
	b.WriteString("Common visualization options based on data structure:\n")
	for _, k := range kindOrder {
		if k == Line {
			continue
		}
		fmt.Fprintf(&b, "- **%s**: %s\n", k.Label(), k.Description())
	}
	return b.String()
}

// RenderError reports a chart that cannot be built from the chosen columns.
type RenderError struct {
	Kind   Kind
	Column string
	Msg    string
}

func (e *RenderError) Error() string {
	var b strings.Builder
	b.WriteString("chart")
	if e.Kind != "" {
		fmt.Fprintf(&b, " %q", string(e.Kind))
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	return b.String()
}
