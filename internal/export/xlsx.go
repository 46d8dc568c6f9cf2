package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"notes-quiz-service/internal/domain"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

// XLSX renders the tabular dump as a workbook with a Results and a Summary sheet.
func XLSX(quiz domain.Quiz, result domain.QuizResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(resultsSheet)
	if err != nil {
		return nil, fmt.Errorf("create stream writer: %w", err)
	}

	header := make([]interface{}, len(TabularHeader))
	for i, h := range TabularHeader {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, row := range Rows(quiz, result) {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = sanitizeForExcel(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush rows: %w", err)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Title", sanitizeForExcel(quiz.Title)},
		{"Difficulty", string(quiz.Difficulty)},
		{"Score", result.Score},
		{"Total", result.Total},
		{"Time Taken (s)", result.TimeTaken},
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write summary: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sanitizeForExcel neutralises leading characters spreadsheet apps treat as formulas.
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
