package normalize

import (
	"errors"
	"strings"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	if got := DetectFormat([]string{"identity/LineItemId", "lineItem/ResourceId"}); got != FormatCUR {
		t.Errorf("CUR header detected as %s", got)
	}
	if got := DetectFormat([]string{"ResourceId", "UnblendedCost"}); got != FormatSimplified {
		t.Errorf("simplified header detected as %s", got)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatAuto, "CUR": FormatCUR, "simplified": FormatSimplified} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("parquet"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestReadRows_AutoDetect(t *testing.T) {
	input := "ResourceId,UnblendedCost,UsageAmount,Utilization\n" +
		"i-1,50.00,24,3\n" +
		",1.00,1,\n" +
		"vol-1,4.20,500\n"

	rows, err := ReadRows(strings.NewReader(input), FormatAuto, "sample.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Format != FormatSimplified {
		t.Errorf("format = %s", rows[0].Format)
	}
	if rows[0].Line != 2 || rows[2].Line != 4 {
		t.Errorf("line numbers = %d, %d", rows[0].Line, rows[2].Line)
	}
	if _, ok := rows[2].Columns["Utilization"]; ok {
		t.Error("short record must not carry the missing trailing column")
	}
	if rows[1].Source != "sample.csv" {
		t.Errorf("source = %q", rows[1].Source)
	}
}

func TestReadRows_MalformedRowIsSkippedDownstream(t *testing.T) {
	input := "ResourceId,UnblendedCost\n" +
		"i-1,10\n" +
		",5\n" +
		"i-2,7\n"

	rows, err := ReadRows(strings.NewReader(input), FormatSimplified, "s.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ok int
	for _, r := range rows {
		if _, err := Normalize(r); err == nil {
			ok++
		}
	}
	if ok != 2 {
		t.Errorf("expected 2 well-formed rows, got %d", ok)
	}
}

func TestReadRows_ParseErrorSkipsOnlyThatLine(t *testing.T) {
	input := "ResourceId,UnblendedCost,UsageAmount\n" +
		"i-1,10,24\n" +
		"i-2,5\"0,24\n" +
		"i-3,7,24\n"

	rows, err := ReadRows(strings.NewReader(input), FormatSimplified, "s.csv")
	if err != nil {
		t.Fatalf("a bad line must not abort the file: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[1].Err == nil || rows[1].Line != 3 {
		t.Errorf("bad line = %+v", rows[1])
	}
	if _, err := Normalize(rows[1]); !errors.Is(err, ErrMalformedLine) {
		t.Errorf("Normalize(bad line) = %v, want ErrMalformedLine", err)
	}
	rec, err := Normalize(rows[2])
	if err != nil || rec.ResourceID != "i-3" || rows[2].Line != 4 {
		t.Errorf("row after bad line = %+v, %v", rec, err)
	}
}

func TestReadRows_Empty(t *testing.T) {
	rows, err := ReadRows(strings.NewReader(""), FormatAuto, "empty.csv")
	if err != nil || rows != nil {
		t.Errorf("empty input: rows=%v err=%v", rows, err)
	}
}
