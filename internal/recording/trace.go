// trace.go — JSONL trace reading and writing.
package recording

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// maxLineBytes bounds a single trace line.
const maxLineBytes = 4 << 20

// Read parses a JSONL trace. Blank lines and lines starting with '#' are
// skipped. Steps must be in non-decreasing at_ms order.
func Read(r io.Reader) ([]Step, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var steps []Step
	var lastAt int64
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		var step Step
		if err := json.Unmarshal(line, &step); err != nil {
			return nil, fmt.Errorf("trace line %d: %w", lineNo, err)
		}
		if err := step.validate(); err != nil {
			return nil, fmt.Errorf("trace line %d: %w", lineNo, err)
		}
		if step.AtMs < lastAt {
			return nil, fmt.Errorf("trace line %d: at_ms %d is before previous step (%d)", lineNo, step.AtMs, lastAt)
		}
		lastAt = step.AtMs
		steps = append(steps, step)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return steps, nil
}

// ReadFile parses the trace stored at path.
func ReadFile(path string) ([]Step, error) {
	f, err := os.Open(path) // #nosec G304 -- path is supplied by the CLI user
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}

// Write encodes steps as JSONL.
func Write(w io.Writer, steps []Step) error {
	enc := json.NewEncoder(w)
	for i, step := range steps {
		if err := enc.Encode(step); err != nil {
			return fmt.Errorf("write trace step %d: %w", i, err)
		}
	}
	return nil
}

func (s Step) validate() error {
	switch s.Op {
	case OpMount, OpRender, OpCommit, OpUnmount:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, s.Op)
	}
	if s.ID == "" {
		return fmt.Errorf("%s step without id", s.Op)
	}
	if s.AtMs < 0 {
		return fmt.Errorf("negative at_ms %d", s.AtMs)
	}
	return nil
}
