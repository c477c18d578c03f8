package export

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"reconaudit/backend/pipeline"
)

func TestWriteXLSX(t *testing.T) {
	st := pipeline.NewState("Scan example.com for open ports", []string{"*"})
	st.TaskList = []string{"nmap scan on example.com", "gobuster scan on example.com directories"}
	st.Results = []pipeline.Result{
		{Task: st.TaskList[0], Tool: "nmap", Target: "example.com", Command: "nmap -p- example.com", Output: "80/tcp open http", Status: pipeline.StatusCompleted, Attempts: 1},
		{Task: st.TaskList[1], Tool: "gobuster", Target: "example.com", Output: "Command failed after retries: exit status 1", Status: pipeline.StatusFailed, Attempts: 3, UsedAlternate: true},
	}
	st.Logs = []string{"[Task Decomposition] one", "[Generate Report] Final report generated."}
	st.FinalReport = "=== Security Audit Report ==="

	path := filepath.Join(t.TempDir(), "out", "report.xlsx")
	if err := WriteXLSX(path, &st); err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); strings.Join(got, ",") != "Summary,Results,Logs,Report" {
		t.Fatalf("unexpected sheets %v", got)
	}
	rows, err := f.GetRows(SheetResults)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[1][3] != "nmap -p- example.com" || rows[2][4] != "failed" {
		t.Fatalf("unexpected rows %v", rows)
	}
	logs, _ := f.GetRows(SheetLogs)
	if len(logs) != 2 || logs[1][0] != "[Generate Report] Final report generated." {
		t.Fatalf("unexpected logs %v", logs)
	}
	task, _ := f.GetCellValue(SheetSummary, "B1")
	if task != st.Task {
		t.Fatalf("unexpected summary task %q", task)
	}
}

func TestWriteXLSXKeepsLongText(t *testing.T) {
	long := strings.Repeat("/admin (Status: 200) [Size: 1234]\n", 1200)
	if len(long) <= excelize.TotalCellChars {
		t.Fatalf("fixture too short: %d", len(long))
	}
	st := pipeline.NewState("Scan example.com for directories", []string{"*"})
	st.TaskList = []string{"gobuster scan on example.com directories"}
	st.Results = []pipeline.Result{
		{Task: st.TaskList[0], Tool: "gobuster", Target: "example.com", Output: long, Status: pipeline.StatusCompleted, Attempts: 1},
	}
	oneLine := strings.Repeat("x", 2*excelize.TotalCellChars+10)
	st.Logs = []string{oneLine, "[Generate Report] Final report generated."}
	st.FinalReport = "=== Security Audit Report ===\n" + oneLine + "\n\n=== Execution Logs ===\ndone"

	path := filepath.Join(t.TempDir(), "long.xlsx")
	if err := WriteXLSX(path, &st); err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()

	results, _ := f.GetRows(SheetResults)
	if len(results) != 2 {
		t.Fatalf("expected header plus 1 row, got %d", len(results))
	}
	if got := strings.Join(results[1][outputColumn-1:], ""); got != long {
		t.Fatalf("output not stored in full: got %d of %d chars", len(got), len(long))
	}

	logs, _ := f.GetRows(SheetLogs)
	if got := strings.Join(logs[0], ""); got != oneLine {
		t.Fatalf("log line not stored in full: got %d of %d chars", len(got), len(oneLine))
	}

	report, _ := f.GetRows(SheetReport)
	lines := make([]string, 0, len(report))
	for _, row := range report {
		lines = append(lines, strings.Join(row, ""))
	}
	if got := strings.Join(lines, "\n"); got != st.FinalReport {
		t.Fatalf("report not stored in full: got %d of %d chars", len(got), len(st.FinalReport))
	}
}

func TestSplitCellMarksTruncation(t *testing.T) {
	size := excelize.TotalCellChars
	if cells := splitCell("short", 3); len(cells) != 1 || cells[0] != "short" {
		t.Fatalf("short value should stay in one cell, got %d cells", len(cells))
	}
	cells := splitCell(strings.Repeat("a", 3*size), 2)
	if len(cells) != 2 {
		t.Fatalf("expected 2 cells, got %d", len(cells))
	}
	last := cells[1].(string)
	if !strings.HasSuffix(last, TruncatedMarker) || len(last) != size {
		t.Fatalf("last cell should be cut to %d chars with a marker, got %d", size, len(last))
	}
	if got := clip(strings.Repeat("b", size+1)); len(got) != size || !strings.HasSuffix(got, TruncatedMarker) {
		t.Fatalf("clip should mark truncation, got %d chars", len(got))
	}
}

func TestWriteXLSXRejectsNil(t *testing.T) {
	if err := WriteXLSX(filepath.Join(t.TempDir(), "x.xlsx"), nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDefaultPath(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	got := DefaultPath("/tmp/export", "10.0.0.1/24", at)
	if got != filepath.Join("/tmp/export", "10.0.0.1_24_20240501100000.xlsx") {
		t.Fatalf("unexpected path %q", got)
	}
}
