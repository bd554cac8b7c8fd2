package normalize

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ReadRows parses a CSV stream with a header line into RawRows. With
// FormatAuto the schema is chosen from the header by DetectFormat. Line
// numbers are 1-based file lines, so the first data row is line 2.
// A line that is not valid CSV becomes a RawRow carrying the parse error and
// reading continues with the next line.
func ReadRows(r io.Reader, format Format, source string) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", source, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	if format == FormatAuto {
		format = DetectFormat(header)
	}

	var rows []RawRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			rows = append(rows, RawRow{Format: format, Line: perr.StartLine, Source: source, Err: perr})
			continue
		}
		if err != nil {
			return rows, fmt.Errorf("read %s: %w", source, err)
		}
		line, _ := reader.FieldPos(0)

		cols := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				cols[name] = record[i]
			}
		}
		rows = append(rows, RawRow{Format: format, Columns: cols, Line: line, Source: source})
	}
	return rows, nil
}
