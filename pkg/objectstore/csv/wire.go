/*
Package csv implements the engine's pipe-delimited CSV table format on top
of the objectstore.Store interface: schema-evolving writes (§4.8) and
chunked reads (§4.9).

Wire format (§6): delimiter "|", backslash escape, no quoting, UTF-8,
"\n" row terminator, header in alphabetical column order.
*/
package csv

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cuemby/tablesync/pkg/types"
)

const (
	delimiter = '|'
	escape    = '\\'
)

// encodeCell renders a Value as CSV wire text, not yet escaped.
func encodeCell(v types.Value) string {
	switch v.Kind {
	case types.KindNull:
		return ""
	case types.KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case types.KindNumber:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case types.KindString:
		return v.Str
	case types.KindArray:
		b, err := json.Marshal(types.ToInterface(v))
		if err != nil {
			return ""
		}
		return string(b)
	case types.KindObject:
		// Mappings are tracked via child tables/markers, never inlined.
		return ""
	default:
		return ""
	}
}

// escapeCell backslash-escapes the wire-critical characters in a cell's
// rendered text.
func escapeCell(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case escape:
			b.WriteString(`\\`)
		case delimiter:
			b.WriteString(`\|`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// unescapeCell reverses escapeCell.
func unescapeCell(s string) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if escaped {
			switch r {
			case 'n':
				b.WriteByte('\n')
			case escape:
				b.WriteRune(escape)
			case delimiter:
				b.WriteRune(delimiter)
			default:
				b.WriteRune(r)
			}
			escaped = false
			continue
		}
		if r == escape {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// splitLine splits one CSV line into raw (still-escaped) field strings,
// respecting backslash-escaped delimiters.
func splitLine(line string) []string {
	var fields []string
	var cur strings.Builder
	escaped := false
	for _, r := range line {
		if escaped {
			cur.WriteRune(r)
			escaped = false
			continue
		}
		switch r {
		case escape:
			cur.WriteRune(r)
			escaped = true
		case delimiter:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, cur.String())
	return fields
}

// encodeLine renders columns (in order) from row into one escaped CSV line,
// without the trailing newline.
func encodeLine(columns []string, row types.Row) string {
	cells := make([]string, len(columns))
	for i, col := range columns {
		v, ok := row[col]
		if !ok {
			v = types.Null
		}
		cells[i] = escapeCell(encodeCell(v))
	}
	return strings.Join(cells, string(delimiter))
}

// decodeLine parses one raw CSV line into a Row keyed by columns.
func decodeLine(columns []string, line string) (types.Row, error) {
	fields := splitLine(line)
	if len(fields) != len(columns) {
		return nil, fmt.Errorf("csv: expected %d columns, got %d", len(columns), len(fields))
	}
	row := make(types.Row, len(columns))
	for i, col := range columns {
		row[col] = decodeCell(unescapeCell(fields[i]))
	}
	return row, nil
}

// decodeCell parses wire text back into a Value, attempting JSON first and
// a permissive Python-literal-style parse second for array/object-shaped
// text (§4.7's "embedded value" heuristic), per the original export's
// parse_json_string.
func decodeCell(s string) types.Value {
	if s == "" {
		return types.Null
	}
	if s == "true" {
		return types.NewBool(true)
	}
	if s == "false" {
		return types.NewBool(false)
	}

	trimmed := strings.TrimSpace(s)
	looksStructured := len(trimmed) >= 2 &&
		((trimmed[0] == '[' && trimmed[len(trimmed)-1] == ']') ||
			(trimmed[0] == '{' && trimmed[len(trimmed)-1] == '}'))
	if looksStructured {
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return types.FromInterface(decoded)
		}
		if v, ok := parsePythonLiteral(trimmed); ok {
			return v
		}
		return types.NewString(s)
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return types.NewNumber(n)
	}
	return types.NewString(s)
}
