package export

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/register-interests/internal/report"
)

// Sheet is one table of a workbook.
type Sheet struct {
	Name  string
	Table report.Table
}

// numericColumns are written as numbers so spreadsheets can sum them.
var numericColumns = map[string]bool{
	"amount":   true,
	"count":    true,
	"category": true,
}

// WriteXLSX writes the sheets, in order, to a new workbook at path. The
// first sheet is active. Amount columns use a two-place currency format.
func WriteXLSX(path string, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return errors.New("no sheets to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	currency := `"£"#,##0.00`
	amountStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &currency})
	if err != nil {
		return fmt.Errorf("failed to create amount style: %w", err)
	}

	defaultSheet := f.GetSheetName(0)
	for n, sheet := range sheets {
		if n == 0 {
			if err := f.SetSheetName(defaultSheet, sheet.Name); err != nil {
				return fmt.Errorf("failed to name sheet %q: %w", sheet.Name, err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("failed to add sheet %q: %w", sheet.Name, err)
		}

		if err := writeSheet(f, sheet, headerStyle, amountStyle); err != nil {
			return fmt.Errorf("sheet %q: %w", sheet.Name, err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet Sheet, headerStyle, amountStyle int) error {
	header := make([]interface{}, len(sheet.Table.Header))
	for i, h := range sheet.Table.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return err
	}

	lastCol, err := excelize.ColumnNumberToName(max(len(header), 1))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet.Name, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for r, row := range sheet.Table.Rows {
		values := make([]interface{}, len(row))
		for c, cell := range row {
			values[c] = cellValue(sheet.Table.Header, c, cell)
		}
		cellName, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet.Name, cellName, &values); err != nil {
			return err
		}
	}

	for c, h := range sheet.Table.Header {
		col, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		width := 14.0
		switch h {
		case "description", "text", "title":
			width = 60
		case "subject", "message":
			width = 24
		}
		if err := f.SetColWidth(sheet.Name, col, col, width); err != nil {
			return err
		}
		if h == "amount" && len(sheet.Table.Rows) > 0 {
			if err := f.SetCellStyle(sheet.Name, col+"2", col+strconv.Itoa(len(sheet.Table.Rows)+1), amountStyle); err != nil {
				return err
			}
		}
	}
	return nil
}

// cellValue converts numeric columns, leaving empty and unparsable cells as
// text.
func cellValue(header []string, col int, cell string) interface{} {
	if col >= len(header) || !numericColumns[header[col]] || cell == "" {
		return cell
	}
	if n, err := strconv.Atoi(cell); err == nil {
		return n
	}
	if d, err := decimal.NewFromString(cell); err == nil {
		f, _ := d.Float64()
		return f
	}
	return cell
}
