// =============================================================================
// Register Interests Parser - Export Module
// =============================================================================
//
// This module writes reports to disk. Three formats are supported:
//   - CSV:  one table, header first
//   - XLSX: one sheet per table (records, category totals, diagnostics)
//   - XML:  interests nested per subject, numbered across the document
//
// Every writer takes a report.Table or the interests themselves; none of
// them filter or reorder.
//
// =============================================================================

package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ginjaninja78/register-interests/internal/interest"
	"github.com/ginjaninja78/register-interests/internal/report"
)

// WriteCSV writes the table with its header row.
func WriteCSV(w io.Writer, table report.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// WriteCSVFile writes the table to path, replacing any existing file.
func WriteCSVFile(path string, table report.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(f, table); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// DiagnosticsTable lays out diagnostics for the CSV and XLSX writers.
func DiagnosticsTable(diagnostics []interest.Diagnostic) report.Table {
	table := report.Table{Header: []string{"kind", "subject", "period", "category", "message", "text"}}
	for _, d := range diagnostics {
		category := ""
		if d.CategoryCode > 0 {
			category = strconv.Itoa(d.CategoryCode)
		}
		table.Rows = append(table.Rows, []string{d.Kind, d.Subject, d.Period, category, d.Message, d.Text})
	}
	return table
}

// CategoryTotalsTable lays out per-category totals.
func CategoryTotalsTable(totals []report.CategoryTotal) report.Table {
	table := report.Table{Header: []string{"category", "title", "count", "amount"}}
	for _, t := range totals {
		table.Rows = append(table.Rows, []string{strconv.Itoa(t.Code), t.Title, strconv.Itoa(t.Count), t.Total.StringFixed(2)})
	}
	return table
}
