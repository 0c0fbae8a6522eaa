package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"storefront/internal/domain"
)

var (
	// ErrEmptyInput is returned for blank upload text.
	ErrEmptyInput = errors.New("input is empty")
	// ErrNothingToUpload is returned when the text parses but holds no records.
	ErrNothingToUpload = errors.New("no products to upload")

	errUnclosedQuote = errors.New("unclosed quote")
)

// Format is the encoding detected for upload text.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Location says which part of the input a ParseError points at.
type Location int

const (
	AtIndex Location = iota
	AtRow
	AtHeader
	AtDocument
)

// ParseError describes why a batch was rejected. Index is 0-based and set
// for JSON records; Row is 1-based, counting the header as row 1.
type ParseError struct {
	Location Location
	Index    int
	Row      int
	Reason   string
	Err      error
}

func (e *ParseError) Error() string {
	switch e.Location {
	case AtIndex:
		return fmt.Sprintf("Invalid product at index %d: %s", e.Index, e.Reason)
	case AtRow:
		return fmt.Sprintf("Row %d: %s", e.Row, e.Reason)
	case AtHeader:
		return "CSV header missing required fields: " + e.Reason
	default:
		return "Failed to parse JSON: " + e.Reason
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

var requiredColumns = []string{"name", "category", "unit", "price"}

// DetectFormat routes text starting with [ or { to the JSON decoder and
// everything else to the CSV decoder.
func DetectFormat(input string) Format {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		return FormatJSON
	}
	return FormatCSV
}

// Parse decodes upload text into validated records. Any invalid record
// rejects the whole batch.
func Parse(input string) ([]domain.UploadedProduct, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, ErrEmptyInput
	}

	var (
		records []domain.UploadedProduct
		err     error
	)
	if DetectFormat(trimmed) == FormatJSON {
		records, err = parseJSON(trimmed)
	} else {
		records, err = parseCSV(trimmed)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNothingToUpload
	}
	return records, nil
}

func parseJSON(input string) ([]domain.UploadedProduct, error) {
	dec := json.NewDecoder(strings.NewReader(input))
	dec.UseNumber()
	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, &ParseError{Location: AtDocument, Reason: err.Error(), Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Location: AtDocument, Reason: "unexpected data after top-level value"}
	}

	items, ok := data.([]any)
	if !ok {
		items = []any{data}
	}

	out := make([]domain.UploadedProduct, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, indexError(i, "not an object")
		}

		var rec domain.UploadedProduct
		for _, f := range []struct {
			key string
			dst *string
		}{{"name", &rec.Name}, {"category", &rec.Category}, {"unit", &rec.Unit}} {
			s, _ := obj[f.key].(string)
			s = strings.TrimSpace(s)
			if s == "" {
				return nil, indexError(i, f.key+" is required and must be a non-empty string")
			}
			*f.dst = s
		}

		price, ok := jsonPrice(obj["price"])
		if !ok {
			return nil, indexError(i, "price must be a positive number")
		}
		rec.Price = price

		if d, ok := obj["description"].(string); ok {
			rec.Description = strings.TrimSpace(d)
		}

		if _, dup := seen[rec.Name]; dup {
			return nil, &ParseError{Location: AtIndex, Index: i, Reason: fmt.Sprintf("duplicate product name %q", rec.Name), Err: domain.ErrDuplicateProduct}
		}
		seen[rec.Name] = struct{}{}
		out = append(out, rec)
	}
	return out, nil
}

func indexError(i int, reason string) error {
	return &ParseError{Location: AtIndex, Index: i, Reason: reason}
}

func jsonPrice(v any) (int64, bool) {
	switch p := v.(type) {
	case json.Number:
		return parsePrice(p.String())
	case string:
		return parsePrice(p)
	default:
		return 0, false
	}
}

// parsePrice accepts any finite decimal number and rounds half up to a
// whole currency unit. Values that round to zero are rejected.
func parsePrice(s string) (int64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	rounded := math.Floor(f + 0.5)
	if rounded < 1 || rounded > math.MaxInt64/2 {
		return 0, false
	}
	return int64(rounded), true
}

func parseCSV(input string) ([]domain.UploadedProduct, error) {
	var lines []string
	for _, line := range strings.Split(input, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	header := strings.Split(lines[0], ",")
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}
	index := headerIndex(header)

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &ParseError{Location: AtHeader, Row: 1, Reason: strings.Join(missing, ", ")}
	}

	out := make([]domain.UploadedProduct, 0, len(lines)-1)
	seen := make(map[string]struct{}, len(lines)-1)
	for i, line := range lines[1:] {
		row := i + 2
		record, err := splitLine(line)
		if err != nil {
			return nil, rowError(row, "malformed quoting")
		}
		if len(record) < len(requiredColumns) {
			return nil, rowError(row, fmt.Sprintf("insufficient columns (expected at least %d)", len(requiredColumns)))
		}

		rec := domain.UploadedProduct{
			Name:        pick(record, index, "name"),
			Category:    pick(record, index, "category"),
			Unit:        pick(record, index, "unit"),
			Description: pick(record, index, "description"),
		}
		switch {
		case rec.Name == "":
			return nil, rowError(row, "name is required")
		case rec.Category == "":
			return nil, rowError(row, "category is required")
		case rec.Unit == "":
			return nil, rowError(row, "unit is required")
		}
		price, ok := parsePrice(pick(record, index, "price"))
		if !ok {
			return nil, rowError(row, "price must be a positive number")
		}
		rec.Price = price

		if _, dup := seen[rec.Name]; dup {
			return nil, &ParseError{Location: AtRow, Row: row, Reason: fmt.Sprintf("duplicate product name %q", rec.Name), Err: domain.ErrDuplicateProduct}
		}
		seen[rec.Name] = struct{}{}
		out = append(out, rec)
	}
	return out, nil
}

func rowError(row int, reason string) error {
	return &ParseError{Location: AtRow, Row: row, Reason: reason}
}

// splitLine reads one comma-separated line. A quote anywhere outside a
// quoted segment opens one, commas inside it are literal, and "" inside it
// is a literal quote. An unclosed quote is an error.
func splitLine(line string) ([]string, error) {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '"' && inQuotes && i+1 < len(line) && line[i+1] == '"':
			current.WriteByte('"')
			i++
		case c == '"':
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	if inQuotes {
		return nil, errUnclosedQuote
	}
	return append(fields, current.String()), nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, ok := idx[h]; !ok {
			idx[h] = i
		}
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
