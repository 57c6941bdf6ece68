package core

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WorkbookSheet is the name of the single data sheet.
const WorkbookSheet = "Student Data"

const workbookColumnWidth = 20

// WorkbookResult reports what BuildWorkbook wrote.
type WorkbookResult struct {
	Rows    int
	Omitted []string
}

// CheckWorkbook reports the errors BuildWorkbook would fail with, without
// building anything. The orchestrator calls it before opening the sink.
func CheckWorkbook(records []AggregatedRecord, columns []ColumnDefinition) error {
	if len(columns) == 0 {
		return ValidationError("build workbook", "empty column set", ErrEmptyColumnSet)
	}
	for _, r := range records {
		if r.Valid() {
			return nil
		}
	}
	return NotFoundError("build workbook", "every record is error-marked", ErrNoValidRecords)
}

// BuildWorkbook writes an XLSX with one header row of column labels and one
// row per valid record. Error-marked records are skipped and listed in the
// result. Every cell is a string so metrics match document rendering.
func BuildWorkbook(w io.Writer, records []AggregatedRecord, columns []ColumnDefinition) (WorkbookResult, error) {
	var result WorkbookResult
	if err := CheckWorkbook(records, columns); err != nil {
		return result, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), WorkbookSheet); err != nil {
		return result, fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(WorkbookSheet)
	if err != nil {
		return result, fmt.Errorf("open stream writer: %w", err)
	}

	// Widths must be set before the first row on a stream writer.
	if err := sw.SetColWidth(1, len(columns), workbookColumnWidth); err != nil {
		return result, fmt.Errorf("set column width: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return result, fmt.Errorf("create header style: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: c.Label}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return result, fmt.Errorf("write header: %w", err)
	}

	rowNum := 2
	for _, rec := range records {
		if !rec.Valid() {
			result.Omitted = append(result.Omitted, rec.Student.RegistrationNumber)
			continue
		}

		row := make([]interface{}, len(columns))
		for i, c := range columns {
			row[i] = c.Extract(rec)
		}

		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return result, fmt.Errorf("cell name for row %d: %w", rowNum, err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return result, fmt.Errorf("write row %d: %w", rowNum, err)
		}
		rowNum++
		result.Rows++
	}

	if err := sw.Flush(); err != nil {
		return result, fmt.Errorf("flush rows: %w", err)
	}

	if err := f.Write(w); err != nil {
		return result, PackagingError("build workbook", "write xlsx", err)
	}

	return result, nil
}
