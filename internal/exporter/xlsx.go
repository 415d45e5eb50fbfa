package exporter

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// XLSXWriter renders a table as an Excel workbook. Numeric cells are
// written as numbers so downstream spreadsheet work gets real values
// instead of text.
type XLSXWriter struct {
	sheetName string
}

// NewXLSXWriter creates a workbook writer using the given sheet name.
func NewXLSXWriter(sheetName string) *XLSXWriter {
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	return &XLSXWriter{sheetName: sheetName}
}

// WriteWorkbook writes headers plus rows to path as a single-sheet
// workbook.
func (w *XLSXWriter) WriteWorkbook(path string, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", w.sheetName)

	if err := w.writeRow(f, 1, headers); err != nil {
		return err
	}
	for i, row := range rows {
		if err := w.writeRow(f, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	slog.Info("Writing XLSX file",
		slog.String("path", path),
		slog.Int("row_count", len(rows)))

	return nil
}

// writeRow writes one sheet row, converting cells that parse as
// numbers into numeric cells.
func (w *XLSXWriter) writeRow(f *excelize.File, rowNum int, cells []string) error {
	values := make([]interface{}, len(cells))
	for i, cell := range cells {
		if v, err := strconv.ParseFloat(cell, 64); err == nil && cell != "" {
			values[i] = v
		} else {
			values[i] = cell
		}
	}

	cellRef, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("failed to build cell reference: %w", err)
	}
	if err := f.SetSheetRow(w.sheetName, cellRef, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}

	return nil
}
