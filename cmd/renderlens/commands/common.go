// common.go — Shared utilities for command argument parsing.
package commands

import (
	"strconv"
)

// parseFlag extracts a flag value from an args slice.
// Returns the value and remaining args (with the flag pair removed).
func parseFlag(args []string, flag string) (string, []string) {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			val := args[i+1]
			remaining := make([]string, 0, len(args)-2)
			remaining = append(remaining, args[:i]...)
			remaining = append(remaining, args[i+2:]...)
			return val, remaining
		}
	}
	return "", args
}

// parseFlagInt extracts a non-negative integer flag value from an args slice.
func parseFlagInt(args []string, flag string) (int, bool, []string) {
	val, remaining := parseFlag(args, flag)
	if val == "" {
		return 0, false, args
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0, false, args
	}
	return n, true, remaining
}

// positional returns args that are not flags. Flags must have been
// extracted before.
func positional(args []string) []string {
	var out []string
	for _, a := range args {
		if len(a) > 1 && a[0] == '-' {
			continue
		}
		out = append(out, a)
	}
	return out
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
