package parser

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXParser reads spreadsheet plans. Each sheet becomes one table
// section rendered as pipe-delimited rows, the same grammar the graph
// builder reads from docx and pdf tables, so an action register kept
// in a workbook feeds the pipeline unchanged.
type XLSXParser struct{}

var actionIDCell = regexp.MustCompile(`^A\d+\.\d+$`)

func (p *XLSXParser) SupportedFormats() []string { return []string{"xlsx", "xls"} }

func (p *XLSXParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	var sections []Section

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}

		var content strings.Builder
		kept := 0
		isRegister := false
		for _, row := range rows {
			cells := trimTrailingEmpty(row)
			if len(cells) == 0 {
				continue
			}
			if actionIDCell.MatchString(strings.TrimSpace(cells[0])) {
				isRegister = true
			}
			content.WriteString("| " + strings.Join(cells, " | ") + " |\n")
			kept++
		}
		if kept == 0 {
			continue
		}

		meta := map[string]string{
			"sheet_name": sheet,
			"row_count":  fmt.Sprintf("%d", kept),
		}
		if isRegister {
			meta["sheet_kind"] = "action_register"
		}

		sections = append(sections, Section{
			Heading:  sheet,
			Content:  content.String(),
			Type:     "table",
			Level:    1,
			Metadata: meta,
		})
	}

	if len(sections) == 0 {
		return nil, fmt.Errorf("workbook has no usable rows")
	}

	return &ParseResult{
		Sections: sections,
		Method:   "native",
	}, nil
}

// trimTrailingEmpty drops empty cells from the end of a row so sparse
// spreadsheet rows do not render as runs of empty pipe columns.
func trimTrailingEmpty(row []string) []string {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	return row[:end]
}
