package insight

import (
	"context"
	"fmt"
	"strings"

	"github.com/KaramelBytes/ainsight/internal/ai"
	"github.com/KaramelBytes/ainsight/internal/analysis"
	"github.com/KaramelBytes/ainsight/internal/chart"
	"github.com/KaramelBytes/ainsight/internal/session"
)

// Scope picks what part of the table is analysed.
type Scope string

const (
	ScopeEntire  Scope = "entire"
	ScopeColumns Scope = "columns"
)

// Label is the choice as shown to the user.
func (s Scope) Label() string {
	if s == ScopeColumns {
		return "Specific Columns"
	}
	return "Entire Dataset"
}

// ParseScope accepts the identifier or the label; anything else is the
// whole table.
func ParseScope(s string) Scope {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, string(ScopeColumns)) || strings.EqualFold(s, ScopeColumns.Label()) {
		return ScopeColumns
	}
	return ScopeEntire
}

// Request is the user's choices for one render. It is never mutated.
type Request struct {
	Scope   Scope
	Columns []string
	Chart   chart.Spec
}

// Insight is the outcome of one model call: markdown on success, a notice
// on failure.
type Insight struct {
	Markdown string
	Notice   *Notice
	Usage    ai.Usage
}

// OK reports whether the call produced text.
func (i Insight) OK() bool { return i.Notice == nil }

// View is everything one page render shows, in display order.
type View struct {
	HasData  bool
	FileName string
	Columns  []string
	Preview  *analysis.Table
	Rows     int
	Request  Request

	// Selection holds the no-columns and sampling warnings.
	Selection []Notice
	Selected  *analysis.Table
	Summary   string

	SummaryInsight *Insight
	DataInsight    *Insight

	// Charts is true when the chart block is shown; Chart is the effective
	// selection with defaults applied.
	Charts      bool
	Chart       chart.Spec
	Kinds       []chart.Kind
	Suggestions string

	// Trailing holds the closing notices when analysis stops early.
	Trailing []Notice
}

// SelectData applies the scope and the size guard. A nil table means no
// analysis runs.
func (o *Orchestrator) SelectData(t *analysis.Table, req Request) (*analysis.Table, []Notice) {
	if t == nil {
		return nil, nil
	}
	var notices []Notice
	sel := t
	if req.Scope == ScopeColumns {
		cols := knownColumns(t, req.Columns)
		if len(cols) == 0 {
			return nil, []Notice{warning("No columns selected for analysis.")}
		}
		// knownColumns filtered the names, so Select cannot fail.
		sel, _ = t.Select(cols)
	}
	if sel.NumRows() > o.cfg.MaxRows {
		notices = append(notices, warning(fmt.Sprintf("The dataset is too large for analysis. Sampling %d rows.", o.cfg.MaxRows)))
		sel = sel.Sample(o.cfg.MaxRows, o.cfg.Seed)
	}
	return sel, notices
}

// knownColumns drops names the table does not have and duplicates, keeping
// the requested order. A form posted against an earlier upload can carry
// stale names.
func knownColumns(t *analysis.Table, cols []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if t.ColumnIndex(c) >= 0 && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// Render runs the pipeline for one page view. Callers hold st's lock.
func (o *Orchestrator) Render(ctx context.Context, st *session.State, req Request) *View {
	v := &View{Request: req, Kinds: chart.Kinds(), Suggestions: chart.Suggestions()}
	if !st.HasData() {
		v.Trailing = append(v.Trailing, info("Upload a CSV file to get started!"))
		return v
	}
	v.HasData = true
	v.FileName = st.UploadedFileName
	v.Columns = st.Data.Columns
	v.Rows = st.Data.NumRows()
	v.Preview = st.Data.Head(o.cfg.PreviewRows)

	sel, notices := o.SelectData(st.Data, req)
	v.Selection = notices
	if sel == nil {
		return v
	}
	v.Selected = sel
	v.Summary = analysis.Describe(sel).String()

	sum := o.complete(ctx, st.APIKey, "summary", summaryRequest(o.cfg.Model, v.Summary))
	v.SummaryInsight = &sum

	if sel.Empty() {
		v.Trailing = append(v.Trailing, warning("No data available for analysis. Please check your selection."))
		return v
	}
	csv, err := sel.CSV()
	if err != nil {
		n := failure(KindParse, "Failed to generate insights: "+err.Error())
		v.DataInsight = &Insight{Notice: &n}
	} else {
		data := o.complete(ctx, st.APIKey, "data", dataRequest(o.cfg.Model, o.cfg.DataTemperature, csv))
		v.DataInsight = &data
	}
	v.Charts = true
	v.Chart = chartDefaults(sel, req.Chart)
	return v
}

// chartDefaults fills in the kind and x column and drops columns that are not
// part of the selection.
func chartDefaults(t *analysis.Table, s chart.Spec) chart.Spec {
	if s.Kind == "" {
		s.Kind = chart.Histogram
	}
	if s.X == "" || t.ColumnIndex(s.X) < 0 {
		s.X = ""
		if t.NumCols() > 0 {
			s.X = t.Columns[0]
		}
	}
	if t.ColumnIndex(s.Y) < 0 {
		s.Y = ""
	}
	if t.ColumnIndex(s.Color) < 0 {
		s.Color = ""
	}
	return s
}

// Chart builds the chart for req over the same selection Render uses.
func (o *Orchestrator) Chart(st *session.State, req Request) (chart.Chart, error) {
	if !st.HasData() {
		return nil, &Error{Kind: KindRender, Err: fmt.Errorf("no data uploaded")}
	}
	sel, _ := o.SelectData(st.Data, req)
	if sel == nil || sel.Empty() {
		return nil, &Error{Kind: KindRender, Err: fmt.Errorf("no data available for analysis")}
	}
	spec := chartDefaults(sel, req.Chart)
	label := string(spec.Kind)
	if _, err := chart.ParseKind(label); err != nil {
		label = "unknown"
	}
	c, err := chart.Build(sel, spec)
	if err != nil {
		o.metrics.RecordChart(label, "error")
		o.log.Warn("chart render failed", "kind", string(spec.Kind), "x", spec.X, "y", spec.Y, "color", spec.Color, "err", err)
		return nil, &Error{Kind: KindRender, Err: err}
	}
	o.metrics.RecordChart(label, "ok")
	return c, nil
}
