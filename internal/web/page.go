package web

import (
	"embed"
	"html/template"

	"github.com/KaramelBytes/ainsight/internal/chart"
	"github.com/KaramelBytes/ainsight/internal/insight"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
		"markdown": renderMarkdown,
	}).ParseFS(templateFS, "templates/index.html"))

	chartErrorTemplate = template.Must(template.ParseFS(templateFS, "templates/chart_error.html"))
)

type keyState struct {
	Status  string
	Message string
	Set     bool
}

// Level maps the probe status to a notice level for styling.
func (k keyState) Level() string {
	switch k.Status {
	case "valid":
		return string(insight.LevelSuccess)
	case "unchecked":
		return ""
	default:
		return string(insight.LevelWarning)
	}
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type pageData struct {
	Flashes []insight.Notice
	Key     keyState
	View    *insight.View

	PreviewShown int
	ScopeColumns bool
	ColumnOpts   []option
	KindOpts     []option
	XOpts        []option
	YOpts        []option
	ColorOpts    []option

	// Query is the current choices encoded, used by forms to come back here
	// and by the chart frame.
	Query    string
	ChartSrc string
}

func newPageData(v *insight.View, flashes []insight.Notice, key keyState) pageData {
	d := pageData{Flashes: flashes, Key: key, View: v}
	q := encodeRequest(v.Request).Encode()
	d.Query = "?" + q
	if v.Preview != nil {
		d.PreviewShown = v.Preview.NumRows()
	}
	d.ScopeColumns = v.Request.Scope == insight.ScopeColumns

	chosen := map[string]bool{}
	for _, c := range v.Request.Columns {
		chosen[c] = true
	}
	for _, c := range v.Columns {
		d.ColumnOpts = append(d.ColumnOpts, option{Value: c, Label: c, Selected: chosen[c]})
	}

	if v.Charts {
		for _, k := range v.Kinds {
			d.KindOpts = append(d.KindOpts, option{Value: string(k), Label: k.Label(), Selected: k == v.Chart.Kind})
		}
		cols := v.Selected.Columns
		d.XOpts = columnOptions(cols, v.Chart.X, false)
		d.YOpts = columnOptions(cols, v.Chart.Y, true)
		d.ColorOpts = columnOptions(cols, v.Chart.Color, true)

		cr := v.Request
		cr.Chart = v.Chart
		d.ChartSrc = "/chart?" + encodeRequest(cr).Encode()
	}
	return d
}

// columnOptions lists cols for a select; optional selects start with "None".
func columnOptions(cols []string, current string, optional bool) []option {
	var out []option
	if optional {
		out = append(out, option{Value: "", Label: "None", Selected: current == ""})
	}
	for _, c := range cols {
		out = append(out, option{Value: c, Label: c, Selected: c == current})
	}
	return out
}

// SuggestionsHTML renders the fixed chart guide.
func (d pageData) SuggestionsHTML() template.HTML {
	return renderMarkdown(chart.Suggestions())
}

// Truncated reports whether the preview shows fewer rows than the table has.
func (d pageData) Truncated() bool { return d.View.HasData && d.PreviewShown < d.View.Rows }
