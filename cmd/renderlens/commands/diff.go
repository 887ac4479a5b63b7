// diff.go — Compares two JSON prop files.
package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/brennhill/renderlens/cmd/renderlens/output"
	"github.com/brennhill/renderlens/internal/diff"
	"github.com/brennhill/renderlens/internal/types"
)

// DiffArgs parses `diff <prev.json> <next.json>`.
func DiffArgs(args []string) (prevPath, nextPath string, err error) {
	pos := positional(args)
	if len(pos) != 2 {
		return "", "", fmt.Errorf("diff requires two JSON files, got %d", len(pos))
	}
	return pos[0], pos[1], nil
}

// DiffFiles diffs the JSON objects stored at prevPath and nextPath.
func DiffFiles(prevPath, nextPath string, opts diff.Options) (*output.DiffReport, error) {
	prev, err := readProps(prevPath)
	if err != nil {
		return nil, err
	}
	next, err := readProps(nextPath)
	if err != nil {
		return nil, err
	}

	changes := diff.Diff(prev, next, opts)
	report := &output.DiffReport{
		Prev:     prevPath,
		Next:     nextPath,
		Strategy: opts.Strategy.String(),
		ByReason: make(map[types.Reason]int),
		Changes:  changes,
	}
	for _, c := range changes {
		if _, counted := report.ByReason[c.Reason]; !counted {
			report.ByReason[c.Reason] = types.CountByReason(changes, c.Reason)
		}
	}
	return report, nil
}

func readProps(path string) (map[string]any, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is supplied by the CLI user
	if err != nil {
		return nil, fmt.Errorf("read props: %w", err)
	}
	var props map[string]any
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("%s is not a JSON object: %w", path, err)
	}
	return props, nil
}
