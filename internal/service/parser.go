package service

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/complytics/memegen/internal/domain"
)

// TableParser validates and parses model-returned delimited text into
// the fixed eight-column idea table. The remote model is unreliable in
// framing its output, so the delimited block is isolated from fences
// and surrounding prose before strict parsing. Parsing is all or
// nothing: a single malformed row rejects the whole table, because a
// bad table corrupts every downstream prompt.
type TableParser struct{}

// NewTableParser creates a new table parser.
func NewTableParser() *TableParser {
	return &TableParser{}
}

// Parse turns raw model output into an idea table.
// Parameters:
//   - raw: full text response from the text model.
//
// Returns:
//   - domain.IdeaTable: rows in received order.
//   - error: *domain.ParseError when no header and no eight-field row
//     can be found, a row has the wrong field count, a field is blank,
//     or zero data rows result.
func (p *TableParser) Parse(raw string) (domain.IdeaTable, error) {
	block, err := isolateDelimitedBlock(raw)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(block))
	reader.FieldsPerRecord = len(domain.IdeaColumns)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, &domain.ParseError{Line: 1, Reason: "malformed header row: " + err.Error()}
	}
	for i, col := range header {
		if normalizeColumn(col) != domain.IdeaColumns[i] {
			return nil, &domain.ParseError{
				Line:   1,
				Reason: "unexpected column " + strings.TrimSpace(col) + ", want " + domain.IdeaColumns[i],
			}
		}
	}

	var table domain.IdeaTable
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				line = parseErr.Line
			}
			return nil, &domain.ParseError{Line: line, Reason: err.Error()}
		}

		row := domain.RowFromFields(trimFields(record))
		if err := row.Validate(); err != nil {
			var v *domain.ValidationError
			if errors.As(err, &v) {
				return nil, &domain.ParseError{Line: line, Reason: "empty field " + v.Field}
			}
			return nil, &domain.ParseError{Line: line, Reason: err.Error()}
		}
		table = append(table, row)
	}

	if len(table) == 0 {
		return nil, &domain.ParseError{Reason: "no data rows"}
	}

	return table, nil
}

// Serialize renders an idea table back into canonical delimited text
// with the fixed header. Serialize then Parse round-trips.
// Parameters:
//   - table: idea table to render.
//
// Returns:
//   - string: RFC 4180 CSV text including the header row.
func (p *TableParser) Serialize(table domain.IdeaTable) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write(domain.IdeaColumns)
	for i := range table {
		_ = w.Write(table[i].Fields())
	}
	w.Flush()
	return sb.String()
}

// isolateDelimitedBlock strips markdown code fences and surrounding
// prose, returning the text from the header row through the last line
// that still belongs to the table. When no header line is present the
// canonical header is assumed, starting at the first line that splits
// into exactly eight fields; the model returns both framings in the
// wild regardless of what the prompt asks for.
func isolateDelimitedBlock(raw string) (string, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	headerIdx := -1
	for i, line := range lines {
		if isFenceLine(line) {
			continue
		}
		if isHeaderLine(line) {
			headerIdx = i
			break
		}
	}

	var header string
	start := headerIdx + 1
	if headerIdx >= 0 {
		header = lines[headerIdx]
	} else {
		// Headerless fallback: the first eight-field line opens the
		// table under the canonical header.
		for i, line := range lines {
			if isFenceLine(line) {
				continue
			}
			if looksLikeDataRow(line) {
				headerIdx = i
				break
			}
		}
		if headerIdx == -1 {
			return "", &domain.ParseError{Reason: "header row not found"}
		}
		header = strings.Join(domain.IdeaColumns, ",")
		start = headerIdx
	}

	// Collect table lines. A quoted field may span lines, so quote
	// parity decides whether a fence-looking, comma-free, or blank line
	// is field content, a continuation, or the end of the table.
	block := []string{header}
	inQuotes := false
	for _, line := range lines[start:] {
		if !inQuotes {
			if isFenceLine(line) {
				continue
			}
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || !strings.Contains(trimmed, ",") {
				break
			}
		}
		block = append(block, line)
		inQuotes = updateQuoteParity(inQuotes, line)
	}

	return strings.Join(block, "\n"), nil
}

func isFenceLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "```")
}

// looksLikeDataRow reports whether a line parses as one CSV record
// with exactly eight fields.
func looksLikeDataRow(line string) bool {
	r := csv.NewReader(strings.NewReader(line))
	r.TrimLeadingSpace = true
	record, err := r.Read()
	return err == nil && len(record) == len(domain.IdeaColumns)
}

// isHeaderLine reports whether a line is the canonical header row,
// tolerating spacing and quoting variance.
func isHeaderLine(line string) bool {
	fields := strings.Split(line, ",")
	if len(fields) != len(domain.IdeaColumns) {
		return false
	}
	for i, f := range fields {
		if normalizeColumn(f) != domain.IdeaColumns[i] {
			return false
		}
	}
	return true
}

func normalizeColumn(col string) string {
	col = strings.TrimSpace(col)
	col = strings.Trim(col, `"`)
	col = strings.ToLower(strings.TrimSpace(col))
	return strings.ReplaceAll(col, " ", "_")
}

// updateQuoteParity tracks whether a CSV line leaves an open quoted
// field. Doubled quotes inside a quoted field cancel out, so counting
// quote characters is sufficient for parity.
func updateQuoteParity(inQuotes bool, line string) bool {
	for _, r := range line {
		if r == '"' {
			inQuotes = !inQuotes
		}
	}
	return inQuotes
}

func trimFields(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.TrimSpace(f)
	}
	return out
}
