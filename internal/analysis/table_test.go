package analysis

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func buildCSV(rows int) string {
	var b strings.Builder
	b.WriteString("id,category,value\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "%d,cat%d,%d.5\n", i, i%3, i*2)
	}
	return b.String()
}

func TestParseCSVCounts(t *testing.T) {
	tbl, err := ParseCSV("small.csv", strings.NewReader(buildCSV(10)), DefaultParseOptions())
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if tbl.NumRows() != 10 || tbl.NumCols() != 3 {
		t.Fatalf("got %dx%d, want 10x3", tbl.NumRows(), tbl.NumCols())
	}
	if tbl.Name != "small.csv" {
		t.Fatalf("name = %q", tbl.Name)
	}
	if !tbl.IsNumeric("value") || tbl.IsNumeric("category") {
		t.Fatalf("unexpected numeric inference: value=%v category=%v", tbl.IsNumeric("value"), tbl.IsNumeric("category"))
	}
}

func TestParseCSVHeaderHandling(t *testing.T) {
	in := "\ufeffa,,a,b\n1,2,3,4\n5,6\n"
	tbl, err := ParseCSV("h.csv", strings.NewReader(in), DefaultParseOptions())
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	want := []string{"a", "Unnamed: 1", "a.1", "b"}
	if !reflect.DeepEqual(tbl.Columns, want) {
		t.Fatalf("columns = %v, want %v", tbl.Columns, want)
	}
	// short rows are padded with missing cells
	if got := tbl.Rows[1]; got[2] != "" || got[3] != "" {
		t.Fatalf("expected padded row, got %q", got)
	}
}

func TestParseCSVMalformed(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"too many fields", "a,b\n1,2\n3,4,5\n"},
		{"bad quote", "a,b\n1,\"2\n"},
	}
	for _, c := range cases {
		_, err := ParseCSV("bad.csv", strings.NewReader(c.in), DefaultParseOptions())
		if err == nil {
			t.Errorf("%s: expected error", c.name)
			continue
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("%s: expected *ParseError, got %T", c.name, err)
		}
	}
}

func TestParseCSVSemicolonDecimalComma(t *testing.T) {
	in := "Group;Score\nA;10,5\nB;9,25\n"
	opt := ParseOptions{Delimiter: ';', DecimalSeparator: ','}
	tbl, err := ParseCSV("eu.csv", strings.NewReader(in), opt)
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	vals, ok, err := tbl.Floats("Score")
	if err != nil {
		t.Fatalf("Floats: %v", err)
	}
	if !ok[0] || vals[0] != 10.5 || vals[1] != 9.25 {
		t.Fatalf("unexpected values %v", vals)
	}
}

func TestSelect(t *testing.T) {
	tbl, _ := ParseCSV("s.csv", strings.NewReader(buildCSV(4)), DefaultParseOptions())
	sel, err := tbl.Select([]string{"value", "id"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !reflect.DeepEqual(sel.Columns, []string{"value", "id"}) {
		t.Fatalf("columns = %v", sel.Columns)
	}
	if sel.NumRows() != 4 || sel.Rows[2][1] != "2" {
		t.Fatalf("unexpected projection: %v", sel.Rows)
	}
	if _, err := tbl.Select([]string{"nope"}); err == nil {
		t.Fatalf("expected unknown column error")
	}
}

func TestSampleGuard(t *testing.T) {
	big, _ := ParseCSV("big.csv", strings.NewReader(buildCSV(1000)), DefaultParseOptions())
	s1 := big.Sample(500, 42)
	s2 := big.Sample(500, 42)
	if s1.NumRows() != 500 {
		t.Fatalf("sample rows = %d, want 500", s1.NumRows())
	}
	if !reflect.DeepEqual(s1.Rows, s2.Rows) {
		t.Fatalf("sampling with the same seed must be deterministic")
	}
	seen := map[string]bool{}
	for _, r := range s1.Rows {
		if seen[r[0]] {
			t.Fatalf("row %s sampled twice", r[0])
		}
		seen[r[0]] = true
	}

	small, _ := ParseCSV("small.csv", strings.NewReader(buildCSV(500)), DefaultParseOptions())
	if got := small.Sample(500, 42); got != small {
		t.Fatalf("tables at the limit must be returned unchanged")
	}
}

func TestCSVRoundTrip(t *testing.T) {
	in := "a,b\n1,\"x, y\"\n2,z\n"
	tbl, err := ParseCSV("r.csv", strings.NewReader(in), DefaultParseOptions())
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	out, err := tbl.CSV()
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	if out != in {
		t.Fatalf("CSV() = %q, want %q", out, in)
	}
}

func TestIsMissing(t *testing.T) {
	for _, v := range []string{"", " ", "NA", "NaN", "null", "None"} {
		if !IsMissing(v) {
			t.Errorf("%q should be missing", v)
		}
	}
	if IsMissing("0") {
		t.Errorf("0 is a value")
	}
}
