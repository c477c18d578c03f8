package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"reconaudit/backend/pipeline"
)

const (
	SheetSummary = "Summary"
	SheetResults = "Results"
	SheetLogs    = "Logs"
	SheetReport  = "Report"
)

// TruncatedMarker ends a value that did not fit even after spreading it over a whole row.
const TruncatedMarker = "[truncated]"

// outputColumn is the 1-based column of Output in the Results sheet.
const outputColumn = 8

var resultHeader = []interface{}{"Task", "Tool", "Target", "Command", "Status", "Attempts", "Alternate", "Output"}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DefaultPath returns <dir>/<target>_<timestamp>.xlsx.
func DefaultPath(dir, target string, at time.Time) string {
	name := unsafeName.ReplaceAllString(target, "_")
	if name == "" {
		name = "audit"
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s.xlsx", name, at.Format("20060102150405")))
}

// WriteXLSX saves the run's summary, results and logs as one workbook per sheet.
func WriteXLSX(path string, st *pipeline.State) error {
	if st == nil {
		return errors.New("nothing to export")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create export dir")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return errors.Wrap(err, "rename sheet")
	}
	for _, name := range []string{SheetResults, SheetLogs, SheetReport} {
		if _, err := f.NewSheet(name); err != nil {
			return errors.Wrapf(err, "create sheet %s", name)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "create style")
	}

	summary := [][]interface{}{
		{"Task", st.Task},
		{"Scope", fmt.Sprint(st.AllowedScope)},
		{"Tasks", len(st.TaskList)},
		{"Results", len(st.Results)},
		{"Report", fmt.Sprintf("see %s sheet", SheetReport)},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return err
	}
	_ = f.SetCellStyle(SheetSummary, "A1", fmt.Sprintf("A%d", len(summary)), bold)
	_ = f.SetColWidth(SheetSummary, "A", "A", 12)
	_ = f.SetColWidth(SheetSummary, "B", "B", 100)

	rows := make([][]interface{}, 0, len(st.Results)+1)
	rows = append(rows, resultHeader)
	for _, r := range st.Results {
		row := []interface{}{clip(r.Task), r.Tool, clip(r.Target), clip(r.Command), string(r.Status), r.Attempts, r.UsedAlternate}
		rows = append(rows, append(row, splitCell(r.Output, excelize.MaxColumns-outputColumn+1)...))
	}
	if err := writeRows(f, SheetResults, rows); err != nil {
		return err
	}
	_ = f.SetCellStyle(SheetResults, "A1", "H1", bold)
	_ = f.SetColWidth(SheetResults, "A", "D", 40)
	_ = f.SetColWidth(SheetResults, "H", "H", 100)

	if err := writeRows(f, SheetLogs, lineRows(st.Logs)); err != nil {
		return err
	}
	_ = f.SetColWidth(SheetLogs, "A", "A", 120)

	if err := writeRows(f, SheetReport, lineRows(strings.Split(st.FinalReport, "\n"))); err != nil {
		return err
	}
	_ = f.SetColWidth(SheetReport, "A", "A", 120)

	if err := f.SaveAs(path); err != nil {
		return errors.Wrap(err, "save workbook")
	}
	return nil
}

// lineRows writes one line per row; a line longer than a cell continues in the next columns.
func lineRows(lines []string) [][]interface{} {
	rows := make([][]interface{}, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, splitCell(line, excelize.MaxColumns))
	}
	return rows
}

// splitCell spreads v over at most limit cells of excelize.TotalCellChars
// characters each. Whatever is left after limit cells is cut and the last
// cell ends with TruncatedMarker.
func splitCell(v string, limit int) []interface{} {
	size := excelize.TotalCellChars
	if utf8.RuneCountInString(v) <= size {
		return []interface{}{v}
	}
	if limit < 1 {
		limit = 1
	}
	runes := []rune(v)
	cells := make([]interface{}, 0, min(limit, len(runes)/size+1))
	for len(runes) > 0 {
		if len(cells) == limit-1 && len(runes) > size {
			keep := size - utf8.RuneCountInString(TruncatedMarker)
			cells = append(cells, string(runes[:keep])+TruncatedMarker)
			break
		}
		n := min(size, len(runes))
		cells = append(cells, string(runes[:n]))
		runes = runes[n:]
	}
	return cells
}

// clip keeps single-cell values within the cell limit.
func clip(v string) string {
	return splitCell(v, 1)[0].(string)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.Wrap(err, "cell name")
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "write %s row %d", sheet, i+1)
		}
	}
	return nil
}
