// human.go — Terminal rendering of replay and diff reports.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/brennhill/renderlens/internal/types"
)

// reasonOrder fixes the order reasons are listed in.
var reasonOrder = []types.Reason{
	types.ReasonValue,
	types.ReasonType,
	types.ReasonFunction,
	types.ReasonReference,
	types.ReasonLength,
}

// HumanFormatter writes indented text for terminals.
type HumanFormatter struct{}

// Replay writes the session line followed by one block per component.
func (HumanFormatter) Replay(w io.Writer, r *ReplayReport) error {
	var sb strings.Builder
	s := r.Session
	fmt.Fprintf(&sb, "%s replay %s (%s, %d steps over %dms)\n",
		status(r.OK()), s.Trace, s.Status, s.StepsExecuted, s.TraceDurationMs)
	for _, f := range s.Failures {
		fmt.Fprintf(&sb, "   Error: %s\n", f)
	}

	for _, c := range r.Components {
		sb.WriteString(c.ComponentID)
		if c.Name != "" && c.Name != c.ComponentID {
			fmt.Fprintf(&sb, " (%s)", c.Name)
		}
		sb.WriteString("\n")
		if c.Committed {
			fmt.Fprintf(&sb, "   %d renders, avg %.2fms, max %.2fms, %d slow\n",
				c.Renders, c.AvgMs, c.MaxMs, c.SlowRenders)
		} else {
			fmt.Fprintf(&sb, "   %d renders, none committed\n", c.Renders)
		}
		for _, ch := range c.LastChanges {
			fmt.Fprintf(&sb, "     last render: %s changed (%s)\n", ch.Key, ch.Reason)
		}
		for _, sg := range c.Suggestions {
			fmt.Fprintf(&sb, "     [%s] %s\n", sg.Severity, sg.Title)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// Diff writes the changed keys grouped by reason, then each change.
func (HumanFormatter) Diff(w io.Writer, r *DiffReport) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[OK] diff %s %s (%s, %d changes)\n", r.Prev, r.Next, r.Strategy, len(r.Changes))
	if len(r.Changes) == 0 {
		sb.WriteString("   no changes\n")
	}
	for _, reason := range reasonOrder {
		if keys := types.KeysByReason(r.Changes, reason); len(keys) > 0 {
			fmt.Fprintf(&sb, "   %s: %s\n", reason, strings.Join(keys, ", "))
		}
	}
	for _, c := range r.Changes {
		fmt.Fprintf(&sb, "     %s: %v -> %v\n", c.Key, c.OldValue, c.NewValue)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func status(ok bool) string {
	if ok {
		return "[OK]"
	}
	return "[Error]"
}
