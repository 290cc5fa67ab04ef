package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/ainsight/internal/analysis"
	"github.com/KaramelBytes/ainsight/internal/chart"
	"github.com/KaramelBytes/ainsight/internal/insight"
	"github.com/KaramelBytes/ainsight/internal/session"
	"github.com/KaramelBytes/ainsight/internal/utils"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	APIKey       string
	Columns      []string
	NoAI         bool
	PrintSummary bool
	Preview      int
	Chart        string
	X, Y, Color  string
	ChartOut     string
	JSON         bool
}

var anaOpts analyzeOptions

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.csv>",
	Short: "Run the analysis pipeline on a CSV without the web UI",
	Example: `  ainsight analyze sales.csv --no-ai --print-summary
  ainsight analyze sales.csv --columns region,revenue
  ainsight analyze sales.csv --chart scatter --x units --y revenue --chart-out scatter.html
  ainsight analyze sales.csv --json > report.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		opts := anaOpts
		if opts.APIKey == "" {
			opts.APIKey = c.APIKey
		}
		if !opts.NoAI && opts.APIKey == "" {
			return errors.New("no API key: set api_key, AINSIGHT_API_KEY, --api-key, or pass --no-ai")
		}
		o := insight.New(insightConfig(c), newRuntimeFactory(c), newLogger(c), nil)
		return runAnalyze(commandContext(cmd), cmd.OutOrStdout(), o, args[0], opts)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	f := analyzeCmd.Flags()
	f.StringVar(&anaOpts.APIKey, "api-key", "", "API key (overrides api_key)")
	f.StringSliceVar(&anaOpts.Columns, "columns", nil, "analyse only these columns (comma-separated)")
	f.BoolVar(&anaOpts.NoAI, "no-ai", false, "skip the model calls")
	f.BoolVar(&anaOpts.PrintSummary, "print-summary", false, "print the statistics table")
	f.IntVar(&anaOpts.Preview, "preview", 10, "rows to show in the preview (0 to skip)")
	f.StringVar(&anaOpts.Chart, "chart", "", "write a chart of this kind (see `ainsight charts`)")
	f.StringVar(&anaOpts.X, "x", "", "chart x column (default: first selected column)")
	f.StringVar(&anaOpts.Y, "y", "", "chart y column")
	f.StringVar(&anaOpts.Color, "color", "", "chart color/group column")
	f.StringVar(&anaOpts.ChartOut, "chart-out", "chart.html", "chart output path")
	f.BoolVar(&anaOpts.JSON, "json", false, "print a JSON report instead of text")
}

// analyzeReport is the --json output.
type analyzeReport struct {
	File            string           `json:"file"`
	Rows            int              `json:"rows"`
	Columns         []string         `json:"columns"`
	SelectedRows    int              `json:"selected_rows"`
	SelectedColumns []string         `json:"selected_columns,omitempty"`
	Notices         []insight.Notice `json:"notices,omitempty"`
	Summary         string           `json:"summary,omitempty"`
	SummaryInsight  string           `json:"summary_insight,omitempty"`
	DataInsight     string           `json:"data_insight,omitempty"`
	PromptTokensEst map[string]int   `json:"prompt_tokens_est,omitempty"`
	ChartFile       string           `json:"chart_file,omitempty"`
}

func runAnalyze(ctx context.Context, out io.Writer, o *insight.Orchestrator, path string, opts analyzeOptions) error {
	req := insight.Request{Scope: insight.ScopeEntire}
	if len(opts.Columns) > 0 {
		req.Scope = insight.ScopeColumns
		req.Columns = trimAll(opts.Columns)
	}
	if opts.Chart != "" {
		k, err := chart.ParseKind(opts.Chart)
		if err != nil {
			return err
		}
		req.Chart = chart.Spec{Kind: k, X: opts.X, Y: opts.Y, Color: opts.Color}
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	st := &session.State{APIKey: opts.APIKey}
	if n := o.Ingest(st, filepath.Base(path), f); n.Level == insight.LevelError {
		return errors.New(n.Text)
	}

	rep := analyzeReport{File: st.UploadedFileName, Rows: st.Data.NumRows(), Columns: st.Data.Columns}
	rep.Notices = unknownColumnNotices(st.Data, req)
	var sel *analysis.Table
	if opts.NoAI {
		var notices []insight.Notice
		sel, notices = o.SelectData(st.Data, req)
		rep.Notices = append(rep.Notices, notices...)
		if sel != nil {
			rep.Summary = analysis.Describe(sel).String()
		}
	} else {
		v := o.Render(ctx, st, req)
		sel = v.Selected
		rep.Notices = append(rep.Notices, v.Selection...)
		rep.Summary = v.Summary
		for _, in := range []*insight.Insight{v.SummaryInsight, v.DataInsight} {
			if in != nil && !in.OK() {
				rep.Notices = append(rep.Notices, *in.Notice)
			}
		}
		if v.SummaryInsight != nil {
			rep.SummaryInsight = v.SummaryInsight.Markdown
		}
		if v.DataInsight != nil {
			rep.DataInsight = v.DataInsight.Markdown
		}
		rep.Notices = append(rep.Notices, v.Trailing...)
	}
	if sel != nil {
		rep.SelectedRows = sel.NumRows()
		rep.SelectedColumns = sel.Columns
		sections := map[string]string{"summary": rep.Summary}
		if csv, err := sel.CSV(); err == nil {
			sections["dataset"] = csv
		}
		rep.PromptTokensEst = utils.TokenBreakdown(sections)
	}

	if opts.Chart != "" {
		if err := writeChart(o, st, req, opts.ChartOut); err != nil {
			return err
		}
		rep.ChartFile = opts.ChartOut
	}

	if opts.JSON {
		b, err := utils.PrettyJSON(rep)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	}
	printReport(out, rep, st.Data, opts)
	return nil
}

// unknownColumnNotices warns about each --columns name the file lacks. The
// selection drops them; without a warning a typo silently narrows the analysis.
func unknownColumnNotices(t *analysis.Table, req insight.Request) []insight.Notice {
	if req.Scope != insight.ScopeColumns {
		return nil
	}
	var out []insight.Notice
	for _, c := range req.Columns {
		if t.ColumnIndex(c) < 0 {
			out = append(out, insight.Notice{
				Level: insight.LevelWarning,
				Text:  fmt.Sprintf("Column '%s' not found in %s; skipping.", c, t.Name),
			})
		}
	}
	return out
}

func writeChart(o *insight.Orchestrator, st *session.State, req insight.Request, path string) error {
	c, err := o.Chart(st, req)
	if err != nil {
		return errors.New(insight.ChartNotice(err).Text)
	}
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}

func printReport(out io.Writer, rep analyzeReport, data *analysis.Table, opts analyzeOptions) {
	fmt.Fprintf(out, "Preview of %s (%d rows, %d columns)\n", rep.File, rep.Rows, len(rep.Columns))
	if opts.Preview > 0 {
		fmt.Fprintln(out, previewTable(data.Head(opts.Preview)))
	}
	for _, n := range rep.Notices {
		fmt.Fprintln(out, noticeLine(n))
	}
	if opts.PrintSummary && rep.Summary != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Summary statistics")
		fmt.Fprintln(out, rep.Summary)
	}
	if rep.SummaryInsight != "" {
		fmt.Fprint(out, renderTerminalMarkdown("## AI-Powered Insights\n\n"+rep.SummaryInsight))
	}
	if rep.DataInsight != "" {
		fmt.Fprint(out, renderTerminalMarkdown("## Data-Driven Insights\n\n"+rep.DataInsight))
	}
	if rep.ChartFile != "" {
		fmt.Fprintf(out, "✓ Wrote chart to %s\n", rep.ChartFile)
	}
}

func previewTable(t *analysis.Table) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	header := make(table.Row, 0, len(t.Columns))
	for _, c := range t.Columns {
		header = append(header, c)
	}
	tw.AppendHeader(header)
	for _, r := range t.Rows {
		row := make(table.Row, 0, len(r))
		for _, v := range r {
			row = append(row, v)
		}
		tw.AppendRow(row)
	}
	return tw.Render()
}

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// noticeLine prints a notice with the CLI's status prefixes. Colors are
// dropped when the output is not a terminal.
func noticeLine(n insight.Notice) string {
	switch n.Level {
	case insight.LevelSuccess:
		return successStyle.Render("✓ " + n.Text)
	case insight.LevelWarning:
		return warningStyle.Render("⚠ Warning: " + n.Text)
	case insight.LevelError:
		return errorStyle.Render("✗ " + n.Text)
	}
	return n.Text
}

// renderTerminalMarkdown styles markdown for the terminal, falling back to the
// raw text when no renderer is available.
func renderTerminalMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return md + "\n"
	}
	s, err := r.Render(md)
	if err != nil {
		return md + "\n"
	}
	return s
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
