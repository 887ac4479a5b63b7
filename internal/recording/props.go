// props.go — Identity markers in encoded props.
// JSON has no notion of identity, so traces mark values whose identity
// matters: {"$fn": "name"} decodes to one callable per name, and
// {"$ref": "name", "value": ...} decodes to one composite per name. The value
// of a $ref is read the first time the name is seen.
package recording

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/brennhill/renderlens/internal/diff"
)

// resolver decodes marker props for one replay, so identities are stable
// across all steps of the trace.
type resolver struct {
	fns  map[string]func() string
	refs map[string]any
}

func newResolver() *resolver {
	return &resolver{
		fns:  make(map[string]func() string),
		refs: make(map[string]any),
	}
}

// decode returns props with top-level and nested markers resolved. Unmarked
// maps and slices are rebuilt, so they get a fresh identity per step.
func (r *resolver) decode(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = r.decodeValue(v)
	}
	return out
}

func (r *resolver) decodeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if name, ok := val[markerFn].(string); ok && len(val) == 1 {
			return r.fn(name)
		}
		if name, ok := val[markerRef].(string); ok {
			if cached, seen := r.refs[name]; seen {
				return cached
			}
			decoded := r.decodeValue(val[markerValue])
			if !diff.IsComposite(decoded) {
				// Primitives already compare by value.
				decoded = map[string]any{markerValue: decoded}
			}
			r.refs[name] = decoded
			return decoded
		}
		return r.decode(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = r.decodeValue(item)
		}
		return out
	default:
		return v
	}
}

func (r *resolver) fn(name string) func() string {
	if f, ok := r.fns[name]; ok {
		return f
	}
	f := func() string { return name }
	r.fns[name] = f
	return f
}

// encoder assigns marker names to live values while recording.
type encoder struct {
	names map[identityKey]string
	fns   int
	refs  int
}

type identityKey struct {
	ptr unsafe.Pointer
	n   int // slice length; SameValue treats a resliced header as a new value
}

func newEncoder() *encoder {
	return &encoder{names: make(map[identityKey]string)}
}

// encode marks top-level callables and composites with their identity.
// Nested values are written by content.
func (e *encoder) encode(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = e.encodeValue(v)
	}
	return out
}

func (e *encoder) encodeValue(v any) any {
	ptr, ok := diff.Identity(v)
	if !ok {
		return v
	}
	rv := reflect.ValueOf(v)
	key := identityKey{ptr: ptr, n: -1}
	if rv.Kind() == reflect.Slice {
		key.n = rv.Len()
	}
	isFn := rv.Kind() == reflect.Func

	name, seen := e.names[key]
	if !seen {
		if isFn {
			e.fns++
			name = fmt.Sprintf("fn%d", e.fns)
		} else {
			e.refs++
			name = fmt.Sprintf("ref%d", e.refs)
		}
		e.names[key] = name
	}
	if isFn {
		return map[string]any{markerFn: name}
	}
	return map[string]any{markerRef: name, markerValue: v}
}
