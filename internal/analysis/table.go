package analysis

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
)

// ParseOptions controls CSV ingestion.
type ParseOptions struct {
	// Delimiter for CSV. If 0, ',' is used.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, '.' is assumed and no
	// thousands separators are stripped.
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// DefaultParseOptions returns comma-delimited, dot-decimal parsing.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{Delimiter: ','}
}

// ParseError reports input that could not be read as a table.
type ParseError struct {
	Line int
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Table is an in-memory dataset with named columns and ordered rows.
// Cells keep their raw text; missing cells are recognized by IsMissing.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string

	opt ParseOptions
}

// ParseCSV reads a header row and all data rows from r.
func ParseCSV(name string, r io.Reader, opt ParseOptions) (*Table, error) {
	if opt.Delimiter == 0 {
		opt.Delimiter = ','
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comma = opt.Delimiter

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Msg: "no columns to parse from file"}
		}
		return nil, wrapCSVErr(err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	if len(header) == 1 && strings.TrimSpace(header[0]) == "" {
		return nil, &ParseError{Line: 1, Msg: "no columns to parse from file"}
	}
	t := &Table{Name: name, Columns: uniqueColumns(header), opt: opt}
	ncol := len(t.Columns)

	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, wrapCSVErr(err)
		}
		if len(rec) > ncol {
			line, _ := cr.FieldPos(0)
			return nil, &ParseError{Line: line, Msg: fmt.Sprintf("expected %d fields, saw %d", ncol, len(rec))}
		}
		row := make([]string, ncol)
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func wrapCSVErr(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Msg: "malformed csv", Err: pe.Err}
	}
	return &ParseError{Msg: "read csv", Err: err}
}

// uniqueColumns names blank headers "Unnamed: i" and suffixes duplicates
// with ".1", ".2", ...
func uniqueColumns(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		base := name
		for {
			n, dup := seen[name]
			if !dup {
				break
			}
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", base, n+1)
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Empty reports whether the table has no rows or no columns.
func (t *Table) Empty() bool { return t.NumRows() == 0 || t.NumCols() == 0 }

// ColumnIndex returns the position of a column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Select projects the table onto the given columns in the given order.
func (t *Table) Select(cols []string) (*Table, error) {
	idx := make([]int, len(cols))
	for i, c := range cols {
		j := t.ColumnIndex(c)
		if j < 0 {
			return nil, fmt.Errorf("unknown column %q", c)
		}
		idx[i] = j
	}
	out := &Table{Name: t.Name, Columns: append([]string(nil), cols...), opt: t.opt}
	out.Rows = make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		nr := make([]string, len(idx))
		for i, j := range idx {
			nr[i] = row[j]
		}
		out.Rows[r] = nr
	}
	return out, nil
}

// Sample returns n rows drawn without replacement using a fixed seed. Tables
// with n rows or fewer are returned unchanged. The same table and seed always
// yield the same rows in the same order.
func (t *Table) Sample(n int, seed int64) *Table {
	if n < 0 || t.NumRows() <= n {
		return t
	}
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(t.Rows))[:n]
	out := &Table{Name: t.Name, Columns: t.Columns, opt: t.opt, Rows: make([][]string, n)}
	for i, p := range perm {
		out.Rows[i] = t.Rows[p]
	}
	return out
}

// Head returns at most the first n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 || t.NumRows() <= n {
		return t
	}
	return &Table{Name: t.Name, Columns: t.Columns, opt: t.opt, Rows: t.Rows[:n]}
}

// Values returns the raw cells of a column.
func (t *Table) Values(col string) ([]string, error) {
	j := t.ColumnIndex(col)
	if j < 0 {
		return nil, fmt.Errorf("unknown column %q", col)
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[j]
	}
	return out, nil
}

// IsNumeric reports whether every non-missing cell of col parses as a number
// and at least one cell is present.
func (t *Table) IsNumeric(col string) bool {
	vals, err := t.Values(col)
	if err != nil {
		return false
	}
	seen := false
	for _, v := range vals {
		if IsMissing(v) {
			continue
		}
		if _, ok := parseNumeric(v, t.opt); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// Floats returns the numeric values of col. ok[i] is false for missing cells.
// It fails if any present cell is not numeric.
func (t *Table) Floats(col string) (vals []float64, ok []bool, err error) {
	raw, err := t.Values(col)
	if err != nil {
		return nil, nil, err
	}
	vals = make([]float64, len(raw))
	ok = make([]bool, len(raw))
	for i, v := range raw {
		if IsMissing(v) {
			continue
		}
		x, good := parseNumeric(v, t.opt)
		if !good {
			return nil, nil, fmt.Errorf("column %q is not numeric (value %q)", col, v)
		}
		vals[i] = x
		ok[i] = true
	}
	return vals, ok, nil
}

// WriteCSV serializes the table with its header and no index column.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// CSV returns the table as CSV text.
func (t *Table) CSV() (string, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var missingMarkers = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {},
	"NULL": {}, "null": {}, "None": {}, "#N/A": {},
}

// IsMissing reports whether a raw cell denotes a missing value.
func IsMissing(s string) bool {
	_, ok := missingMarkers[strings.TrimSpace(s)]
	return ok
}

func parseNumeric(s string, opt ParseOptions) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	if dec == 0 {
		dec = '.'
	}
	if thou := opt.ThousandsSeparator; thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		if strings.Contains(raw, ".") {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
