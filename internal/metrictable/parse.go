package metrictable

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ParseError reports a structured payload no strategy could parse.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "cannot parse payload: " + e.Reason
}

// delimiter strategies, tried in fixed order. The auto-detected delimiter is
// appended last when it differs from all of these.
var strategyDelimiters = []rune{',', ';', '\t'}

// Parse extracts a table from a raw payload, trying each delimiter strategy
// in order and accepting the first that yields more than one column and at
// least one well-formed row. Individual malformed rows are skipped, not
// fatal. Field roles are assigned from the supplied vocabulary.
func Parse(body []byte, roles FieldRoles) (*Table, error) {
	text := decodeText(body)
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Reason: "empty payload"}
	}

	delims := append([]rune{}, strategyDelimiters...)
	if d, ok := detectDelimiter(text); ok && !containsRune(delims, d) {
		delims = append(delims, d)
	}

	for _, delim := range delims {
		t, err := parseWith(text, delim)
		if err != nil {
			continue
		}
		assignRoles(t, roles)
		return t, nil
	}

	return nil, &ParseError{Reason: "no delimiter strategy produced a table"}
}

// decodeText converts the payload to UTF-8. The portal serves CSV as
// ISO-8859-1; bodies that are already valid UTF-8 pass through unchanged.
func decodeText(body []byte) string {
	if utf8.Valid(body) {
		return string(body)
	}

	decoded, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

func parseWith(text string, delim rune) (*Table, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, &ParseError{Reason: "no header line"}
	}
	if len(header) < 2 {
		return nil, &ParseError{Reason: "single column header"}
	}

	fields := make([]string, len(header))
	for i, f := range header {
		fields[i] = strings.TrimSpace(f)
	}

	t := &Table{Fields: fields}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Malformed line, skip it.
			continue
		}
		if len(record) != len(fields) {
			continue
		}

		row := make(Row, len(record))
		for i, cell := range record {
			row[i] = parseValue(cell)
		}
		t.Rows = append(t.Rows, row)
	}

	if len(t.Rows) == 0 {
		return nil, &ParseError{Reason: "no well-formed rows"}
	}
	return t, nil
}

// parseValue converts a cell, tolerating embedded formatting artifacts such
// as currency symbols and thousands separators in numeric cells.
func parseValue(cell string) Value {
	raw := strings.TrimSpace(cell)

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', ',', '%', ' ', ' ':
			return -1
		}
		return r
	}, raw)

	if cleaned == "" || cleaned == "-" {
		return Value{Raw: raw}
	}
	if n, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return Value{Raw: raw, Num: n, Numeric: true}
	}
	return Value{Raw: raw}
}

// detectDelimiter samples the header line's character frequency.
func detectDelimiter(text string) (rune, bool) {
	header, _, _ := strings.Cut(strings.TrimSpace(text), "\n")

	best := rune(0)
	bestCount := 0
	for _, candidate := range []rune{',', ';', '\t', '|'} {
		if c := strings.Count(header, string(candidate)); c > bestCount {
			best = candidate
			bestCount = c
		}
	}
	return best, bestCount > 0
}

func assignRoles(t *Table, roles FieldRoles) {
	if roles == nil {
		return
	}
	for _, f := range t.Fields {
		switch {
		case roles.IsTimeAnchor(f):
			t.TimeFields = append(t.TimeFields, f)
		case roles.IsVolume(f):
			t.VolumeFields = append(t.VolumeFields, f)
		case roles.IsHours(f):
			t.HoursFields = append(t.HoursFields, f)
		}
	}
}

func containsRune(rs []rune, r rune) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}
