// json.go — JSON rendering of reports and NDJSON rendering of relayed events.
package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter writes each report as one indented document. Callable and
// other non-JSON prop values appear as marker objects such as {"$fn": name}.
type JSONFormatter struct{}

// Replay writes r as {"session": ..., "components": [...]}.
func (JSONFormatter) Replay(w io.Writer, r *ReplayReport) error {
	return writeIndented(w, r)
}

// Diff writes r with its changes and per-reason counts.
func (JSONFormatter) Diff(w io.Writer, r *DiffReport) error {
	return writeIndented(w, r)
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// StreamFormatter writes one relayed event per line.
type StreamFormatter struct{}

// WriteEvent writes event as a single JSON line.
func (StreamFormatter) WriteEvent(w io.Writer, event *StreamEvent) error {
	return json.NewEncoder(w).Encode(event)
}
