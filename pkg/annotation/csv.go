// Package annotation parses per-image CSV bounding-box files. Each image
// has one CSV with the header `#item,x,y,width,height,label` and one row
// per flower instance.
package annotation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Row is one parsed CSV annotation row.
type Row struct {
	Item   int
	X      float64
	Y      float64
	Width  float64
	Height float64
	Label  int
}

// Alternate header names seen in the wild for the same columns.
var columnAliases = map[string][]string{
	"item":   {"#item", "item"},
	"x":      {"x"},
	"y":      {"y"},
	"width":  {"width", "w", "dx"},
	"height": {"height", "h", "dy"},
	"label":  {"label", "class", "category_id"},
}

// ParseFile parses a per-image CSV annotation file. It returns the valid
// rows and the number of malformed rows that were skipped.
func ParseFile(path string) ([]Row, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open annotation file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse parses CSV annotation rows from r. The first record is the header.
// Rows with a wrong column count or a non-numeric field are skipped and
// counted, not fatal.
func Parse(r io.Reader) ([]Row, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := resolveColumns(header)

	var rows []Row
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				continue
			}
			return rows, skipped, fmt.Errorf("failed to read CSV row: %w", err)
		}

		// Comment lines repeat the leading '#' of the header.
		if len(record) > 0 && strings.HasPrefix(record[0], "#") {
			continue
		}

		if len(record) != len(header) {
			skipped++
			continue
		}

		row, ok := parseRecord(record, cols)
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, row)
	}

	return rows, skipped, nil
}

// resolveColumns maps logical column names to their index in the header,
// honoring alternate names. Missing columns map to -1.
func resolveColumns(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	cols := make(map[string]int, len(columnAliases))
	for logical, aliases := range columnAliases {
		cols[logical] = -1
		for _, alias := range aliases {
			if i, ok := index[alias]; ok {
				cols[logical] = i
				break
			}
		}
	}
	return cols
}

func parseRecord(record []string, cols map[string]int) (Row, bool) {
	field := func(name string) (string, bool) {
		i := cols[name]
		if i < 0 || i >= len(record) {
			return "", false
		}
		return strings.TrimSpace(record[i]), true
	}

	row := Row{Label: 1}

	if s, ok := field("item"); ok {
		item, err := strconv.Atoi(s)
		if err != nil {
			return Row{}, false
		}
		row.Item = item
	}

	coords := []struct {
		name string
		dst  *float64
	}{
		{"x", &row.X},
		{"y", &row.Y},
		{"width", &row.Width},
		{"height", &row.Height},
	}
	for _, c := range coords {
		s, ok := field(c.name)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Row{}, false
		}
		*c.dst = v
	}

	if s, ok := field("label"); ok {
		label, err := strconv.Atoi(s)
		if err != nil {
			return Row{}, false
		}
		row.Label = label
	}

	return row, true
}
