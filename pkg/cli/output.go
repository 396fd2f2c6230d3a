package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"mercator-hq/taskgate/pkg/status"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is a human-readable table (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output with a header row.
	FormatCSV OutputFormat = "csv"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", NewConfigError("--output", fmt.Sprintf("unknown format %q (valid: text, json, csv)", s))
	}
}

// Formatter writes command output.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// eventColumns are the columns of the text and CSV renderings.
var eventColumns = []string{"TASK_ID", "STATE", "STAGE", "TIMESTAMP", "MESSAGE"}

func eventRow(e *status.Event) []string {
	return []string{
		e.TaskID,
		string(e.State),
		e.Stage,
		time.Unix(e.Timestamp, 0).UTC().Format(time.RFC3339),
		e.Message,
	}
}

// asEvents normalises the status payloads commands print.
func asEvents(data any) ([]*status.Event, bool) {
	switch v := data.(type) {
	case *status.Event:
		return []*status.Event{v}, true
	case []*status.Event:
		return v, true
	default:
		return nil, false
	}
}

// TextFormatter renders status events as an aligned table and anything
// else with %v.
type TextFormatter struct{}

// FormatTo writes data to w.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	events, ok := asEvents(data)
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeTabRow(tw, eventColumns); err != nil {
		return err
	}
	for _, e := range events {
		if err := writeTabRow(tw, eventRow(e)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func writeTabRow(w io.Writer, cols []string) error {
	for i, c := range cols {
		sep := "\t"
		if i == len(cols)-1 {
			sep = "\n"
		}
		if _, err := io.WriteString(w, c+sep); err != nil {
			return err
		}
	}
	return nil
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to writer in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// CSVFormatter formats status events as CSV.
type CSVFormatter struct{}

// FormatTo writes data to writer in CSV format.
func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	events, ok := asEvents(data)
	if !ok {
		return fmt.Errorf("CSV output is not supported for %T", data)
	}

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(append(eventColumns, "EVENT_ID")); err != nil {
		return err
	}
	for _, e := range events {
		if err := csvWriter.Write(append(eventRow(e), e.EventID)); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{}
	}
}
