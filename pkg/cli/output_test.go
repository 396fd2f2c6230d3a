package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"mercator-hq/taskgate/pkg/status"
)

func testEvents(t *testing.T) []*status.Event {
	t.Helper()
	b := status.NewBuilder("ollama-openai")
	var out []*status.Event
	for _, tc := range []struct {
		id    string
		state status.State
		msg   string
	}{
		{"task-a", status.StateRunning, "stream alive"},
		{"task-b", status.StateFailed, "upstream status 500, retry later"},
	} {
		e, err := b.Build(tc.id, tc.state, status.Fields{Stage: "x", Message: tc.msg})
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		out = append(out, e)
	}
	return out
}

func TestParseOutputFormat(t *testing.T) {
	for _, ok := range []string{"text", "json", "csv"} {
		if _, err := ParseOutputFormat(ok); err != nil {
			t.Errorf("ParseOutputFormat(%q) error = %v", ok, err)
		}
	}
	_, err := ParseOutputFormat("yaml")
	if err == nil {
		t.Fatal("ParseOutputFormat(yaml) should fail")
	}
	if ExitCode(err) != ExitUsage {
		t.Errorf("unknown format should be a usage error")
	}
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextFormatter{}).FormatTo(&buf, testEvents(t)); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header + 2 rows:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "TASK_ID") || !strings.Contains(lines[2], "FAILED") {
		t.Errorf("unexpected table:\n%s", buf.String())
	}
}

func TestTextFormatter_Fallback(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextFormatter{}).FormatTo(&buf, "plain"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "plain\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestJSONFormatter(t *testing.T) {
	events := testEvents(t)

	var buf bytes.Buffer
	if err := NewFormatter(FormatJSON).FormatTo(&buf, events[0]); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var got status.Event
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got.TaskID != "task-a" || got.EventID != events[0].EventID {
		t.Errorf("decoded = %+v", got)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("JSON output should be indented")
	}
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatCSV).FormatTo(&buf, testEvents(t)); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	if records[2][4] != "upstream status 500, retry later" {
		t.Errorf("message with comma = %q", records[2][4])
	}

	if err := (&CSVFormatter{}).FormatTo(&buf, 42); err == nil {
		t.Error("CSV of a non-event should fail")
	}
}
