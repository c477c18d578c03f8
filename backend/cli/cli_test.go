package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/tidwall/gjson"
	"github.com/xuri/excelize/v2"
)

type countingLauncher struct {
	mu    sync.Mutex
	calls []string
}

func (l *countingLauncher) Launch(ctx context.Context, name string, args []string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, strings.Join(append([]string{name}, args...), " "))
	return []byte("22/tcp open ssh\n80/tcp open http"), nil
}

func (l *countingLauncher) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

func execute(t *testing.T, l *countingLauncher, args ...string) string {
	t.Helper()
	cmd := NewRootCmd(l)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("%v failed: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func testConfig(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.yaml")
}

func TestRunCommandJSON(t *testing.T) {
	l := &countingLauncher{}
	cfg := testConfig(t)
	out := execute(t, l, "run", "Scan example.com for open ports and directories", "--config", cfg, "--json")

	if !gjson.Valid(out) {
		t.Fatalf("output is not JSON: %s", out)
	}
	res := gjson.Parse(out)
	if n := len(res.Get("results").Array()); n != 2 {
		t.Fatalf("expected 2 results, got %d", n)
	}
	if got := res.Get("taskList.2").String(); got != "HTTP scan on example.com" {
		t.Fatalf("expected re-planned task, got %q", got)
	}
	if !strings.HasPrefix(res.Get("finalReport").String(), "=== Security Audit Report ===") {
		t.Fatalf("unexpected report %q", res.Get("finalReport").String())
	}
	if l.count() != 2 {
		t.Fatalf("expected 2 invocations, got %d", l.count())
	}
}

func TestRunCommandOutOfScope(t *testing.T) {
	l := &countingLauncher{}
	out := execute(t, l, "run", "Scan example.com for open ports", "--config", testConfig(t), "--scope", "10.0.0.0/8,internal.test", "--json")
	if l.count() != 0 {
		t.Fatalf("out of scope run should not spawn processes, got %d", l.count())
	}
	for _, task := range gjson.Get(out, "taskList").Array() {
		if !strings.Contains(task.String(), "skipped (outside allowed scope)") {
			t.Fatalf("expected skipped task, got %q", task.String())
		}
	}
}

func TestRunCommandRejectsMalformedDescription(t *testing.T) {
	cmd := NewRootCmd(&countingLauncher{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "Scan", "--config", testConfig(t)})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected error for malformed description")
	}
}

func TestScanCommandRunsEveryTarget(t *testing.T) {
	l := &countingLauncher{}
	cfg := testConfig(t)
	out := execute(t, l, "scan", "a.test", "b.test", "c.test", "--config", cfg, "--json")
	items := gjson.Parse(out).Array()
	if len(items) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(items))
	}
	for i, target := range []string{"a.test", "b.test", "c.test"} {
		if items[i].Get("target").String() != target || items[i].Get("status").String() != "ok" {
			t.Fatalf("unexpected item %s", items[i].Raw)
		}
	}
	if l.count() != 6 {
		t.Fatalf("expected 6 invocations, got %d", l.count())
	}

	history := execute(t, l, "history", "--config", cfg, "--json", "--limit", "2")
	if n := len(gjson.Parse(history).Array()); n != 2 {
		t.Fatalf("expected 2 history rows, got %d: %s", n, history)
	}
	byTarget := execute(t, l, "history", "--config", cfg, "--json", "--target", "b.test")
	if got := gjson.Get(byTarget, "0.target").String(); got != "b.test" {
		t.Fatalf("unexpected history filter result %s", byTarget)
	}
	if n := gjson.Get(byTarget, "0.taskList.#").Int(); n != 3 {
		t.Fatalf("expected 3 stored tasks, got %d", n)
	}
}

func TestRunCommandWritesXLSX(t *testing.T) {
	l := &countingLauncher{}
	file := filepath.Join(t.TempDir(), "run.xlsx")
	out := execute(t, l, "run", "Scan example.com for open ports", "--config", testConfig(t), "--xlsx", file)
	if !strings.Contains(out, "=== Execution Logs ===") {
		t.Fatalf("expected plain report output, got %s", out)
	}
	if _, err := os.Stat(file); err != nil {
		t.Fatalf("xlsx not written: %v", err)
	}
	f, err := excelize.OpenFile(file)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows("Results")
	if len(rows) != 3 {
		t.Fatalf("expected 3 result rows including header, got %d", len(rows))
	}
}

func TestVersionCommand(t *testing.T) {
	out := execute(t, &countingLauncher{}, "version")
	if !strings.HasPrefix(out, "reconaudit version ") {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestHistoryDisabledDoesNotCreateDatabase(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfg, []byte("history: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := execute(t, &countingLauncher{}, "history", "--config", cfg)
	if !strings.Contains(out, "run history is disabled") {
		t.Fatalf("expected disabled message, got %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "data.db")); !os.IsNotExist(err) {
		t.Fatalf("history database should not be created, stat err=%v", err)
	}
}
