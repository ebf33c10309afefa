package export

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ginjaninja78/register-interests/internal/report"
)

var (
	consoleHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51")).Padding(0, 1)
	consoleCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	consoleBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

// WriteConsole renders the table for a terminal. Numeric columns are right
// aligned; colours are dropped when w is not a terminal.
func WriteConsole(w io.Writer, t report.Table) error {
	rendered := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(consoleBorderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return consoleHeaderStyle
			}
			if col < len(t.Header) && numericColumns[t.Header[col]] {
				return consoleCellStyle.Align(lipgloss.Right)
			}
			return consoleCellStyle
		}).
		Headers(t.Header...).
		Rows(t.Rows...).
		Render()

	if _, err := fmt.Fprintln(w, rendered); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}
