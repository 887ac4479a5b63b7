// diff.go — Structural differ: compares two prop bags and classifies each changed key.
package diff

import (
	"sort"

	"github.com/brennhill/renderlens/internal/types"
)

// CompareFunc is a caller-supplied equality override. Returning true suppresses the change.
type CompareFunc func(prev, next any) bool

// Options configures one Diff call.
type Options struct {
	Strategy      Strategy
	CustomCompare CompareFunc
	SkipKeys      map[string]bool
	// MaxDepth bounds the fast-deep comparator; 0 means DefaultFastDeepDepth.
	MaxDepth int
}

// KeySet builds a SkipKeys set.
func KeySet(keys ...string) map[string]bool {
	if len(keys) == 0 {
		return nil
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// compositeClassifier decides the reason for two non-nil composites with different identity.
type compositeClassifier func(prev, next any, opts Options) types.Reason

var compositeClassifiers = [...]compositeClassifier{
	Shallow:  classifyShallow,
	Deep:     classifyDeep,
	FastDeep: classifyFastDeep,
	Custom:   classifyShallow,
}

func classifyShallow(_, _ any, _ Options) types.Reason {
	return types.ReasonValue
}

func classifyDeep(prev, next any, _ Options) types.Reason {
	if DeepEqual(prev, next) {
		return types.ReasonReference
	}
	return types.ReasonValue
}

func classifyFastDeep(prev, next any, opts Options) types.Reason {
	depth := opts.MaxDepth
	if depth <= 0 {
		depth = DefaultFastDeepDepth
	}
	if BoundedEqual(prev, next, depth) {
		return types.ReasonReference
	}
	return types.ReasonValue
}

// Diff compares prev and next and returns one Change per differing key.
// Nil bags are treated as empty. Keys are visited in sorted order so the
// result is deterministic for a given input pair. A key missing from one bag
// is compared against Absent.
func Diff(prev, next map[string]any, opts Options) []types.Change {
	changes := make([]types.Change, 0)
	for _, key := range unionKeys(prev, next) {
		if opts.SkipKeys[key] {
			continue
		}
		p, ok := prev[key]
		if !ok {
			p = Absent
		}
		n, ok := next[key]
		if !ok {
			n = Absent
		}
		if SameValue(p, n) {
			continue
		}
		if opts.CustomCompare != nil && opts.CustomCompare(p, n) {
			continue
		}
		changes = append(changes, types.Change{
			Key:      key,
			Reason:   Classify(p, n, opts),
			OldValue: p,
			NewValue: n,
		})
	}
	return changes
}

// Classify returns the reason two non-identical values differ.
func Classify(prev, next any, opts Options) types.Reason {
	cp, cn := classOf(prev), classOf(next)
	switch {
	case cp != cn:
		return types.ReasonType
	case cp == classFunction:
		return types.ReasonFunction
	case isSequence(prev) && isSequence(next) && lengthOf(prev) != lengthOf(next):
		return types.ReasonLength
	case cp == classComposite && !isNilish(prev) && !isNilish(next):
		classify := compositeClassifiers[Shallow]
		if opts.Strategy >= 0 && int(opts.Strategy) < len(compositeClassifiers) {
			classify = compositeClassifiers[opts.Strategy]
		}
		return classify(prev, next, opts)
	default:
		return types.ReasonValue
	}
}

func unionKeys(prev, next map[string]any) []string {
	keys := make([]string, 0, len(prev)+len(next))
	for k := range prev {
		keys = append(keys, k)
	}
	for k := range next {
		if _, dup := prev[k]; !dup {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
