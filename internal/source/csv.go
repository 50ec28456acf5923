package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// csvBatch is the number of data rows per page.
const csvBatch = 20

// extractCSV renders rows as "header: value" lines, csvBatch rows per page.
// The first record is the header row.
func extractCSV(r io.Reader) (*Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &Document{}
	if len(records) < 2 {
		return doc, nil
	}
	headers := records[0]
	rows := records[1:]

	for i := 0; i < len(rows); i += csvBatch {
		end := min(i+csvBatch, len(rows))

		var text strings.Builder
		fmt.Fprintf(&text, "Rows %d-%d\nColumns: %s\n", i+2, end+1, strings.Join(headers, ", "))
		for _, row := range rows[i:end] {
			cells := make([]string, 0, len(row))
			for j, cell := range row {
				if cell = strings.TrimSpace(cell); cell == "" {
					continue
				}
				if j < len(headers) && headers[j] != "" {
					cell = headers[j] + ": " + cell
				}
				cells = append(cells, cell)
			}
			if len(cells) > 0 {
				text.WriteString(strings.Join(cells, ", "))
				text.WriteByte('\n')
			}
		}
		doc.Pages = append(doc.Pages, Page{Number: len(doc.Pages) + 1, Text: strings.TrimSpace(text.String())})
	}
	return doc, nil
}
