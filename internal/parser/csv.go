package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/qbank/internal/doctree"
)

// CSVParser handles CSV exports of question tables. Each record becomes
// one line.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	tree := &doctree.DocTree{
		Title: strings.TrimSuffix(filename, ".csv"),
	}

	// Group rows into nodes of 20 so Page reflects the source row.
	const batchSize = 20
	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))

		var text strings.Builder
		for _, row := range records[i:end] {
			line := rowLine(row)
			if line == "" {
				continue
			}
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(line)
		}
		if text.Len() == 0 {
			continue
		}

		tree.Children = append(tree.Children, &doctree.DocNode{
			Text: text.String(),
			Page: i + 1, // 1-indexed source row
		})
	}

	return tree, nil
}
