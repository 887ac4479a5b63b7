// strategy.go — Compare strategies for composite values.
package diff

import (
	"fmt"
	"strings"
)

// Strategy selects how composite values with different identity are classified.
type Strategy int

const (
	// Shallow never inspects composite contents: any identity change is a value change.
	Shallow Strategy = iota
	// Deep compares full structure (serialization first, bounded recursion on failure).
	Deep
	// FastDeep compares structure down to a small depth bound and assumes equality beyond it.
	FastDeep
	// Custom behaves like Shallow; callers pair it with Options.CustomCompare.
	Custom
)

var strategyNames = [...]string{
	Shallow:  "shallow",
	Deep:     "deep",
	FastDeep: "fast-deep",
	Custom:   "custom",
}

// String returns the configuration name of the strategy.
func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return fmt.Sprintf("strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// ParseStrategy maps a configuration name to a Strategy.
// Accepts "fast_deep" and "fastdeep" as aliases of "fast-deep".
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "shallow":
		return Shallow, nil
	case "deep":
		return Deep, nil
	case "fast-deep", "fast_deep", "fastdeep":
		return FastDeep, nil
	case "custom":
		return Custom, nil
	default:
		return Shallow, fmt.Errorf("unknown compare strategy %q (want shallow, deep, fast-deep or custom)", name)
	}
}
