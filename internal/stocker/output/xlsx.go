package output

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet ExportXLSX writes to.
const SheetName = "Articles"

// ExportXLSX copies the rows of a CSV output file into a spreadsheet. It
// returns the number of data rows written.
func ExportXLSX(csvPath, xlsxPath string) (int, error) {
	rows, err := ReadCSV(csvPath)
	if err != nil {
		return 0, fmt.Errorf("read csv: %w", err)
	}
	if err := WriteXLSX(xlsxPath, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// WriteXLSX writes rows under a Columns header to a new spreadsheet file.
func WriteXLSX(path string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := setRow(f, 1, Columns); err != nil {
		return err
	}
	for i, r := range rows {
		if err := setRow(f, i+2, r.Values()); err != nil {
			return err
		}
	}
	// article text is long; keep the other columns readable
	if err := f.SetColWidth(SheetName, "A", "A", 80); err != nil {
		return fmt.Errorf("set width: %w", err)
	}
	if err := f.SetColWidth(SheetName, "G", "G", 60); err != nil {
		return fmt.Errorf("set width: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []string) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, v); err != nil {
			return fmt.Errorf("set %s: %w", cell, err)
		}
	}
	return nil
}

// ReadXLSX reads rows back from a file written by WriteXLSX.
func ReadXLSX(path string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := f.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, RowFromValues(records[0], rec))
	}
	return rows, nil
}
