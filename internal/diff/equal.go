// equal.go — Structural equality for composite values.
package diff

import (
	"bytes"
	"encoding/json"
	"reflect"
)

const (
	// DefaultFastDeepDepth bounds the fast-deep comparator.
	DefaultFastDeepDepth = 3
	// DeepFallbackDepth bounds the recursive comparator used when serialization fails.
	DeepFallbackDepth = 10
)

// DeepEqual reports full structural equality. Both values are serialized first
// and differing encodings are unequal. Matching encodings are confirmed by the
// bounded recursive comparator, since JSON drops unexported fields. Values
// that cannot be serialized (cycles, funcs, channels, NaN) go straight to the
// recursive comparator with DeepFallbackDepth.
func DeepEqual(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA == nil && errB == nil && !bytes.Equal(ja, jb) {
		return false
	}
	return BoundedEqual(a, b, DeepFallbackDepth)
}

// BoundedEqual compares a and b structurally down to maxDepth levels of nesting,
// using SameValue at the leaves. Anything nested deeper than maxDepth is assumed equal.
func BoundedEqual(a, b any, maxDepth int) bool {
	if SameValue(a, b) {
		return true
	}
	return boundedEqual(reflect.ValueOf(a), reflect.ValueOf(b), 0, maxDepth)
}

func boundedEqual(va, vb reflect.Value, depth, maxDepth int) bool {
	va, vb = unwrap(va), unwrap(vb)
	if !va.IsValid() || !vb.IsValid() {
		return va.IsValid() == vb.IsValid()
	}
	if va.Type() != vb.Type() {
		return false
	}
	if sameValue(va, vb) {
		return true
	}
	if depth >= maxDepth {
		return true
	}

	switch va.Kind() {
	case reflect.Map:
		if va.IsNil() != vb.IsNil() || va.Len() != vb.Len() {
			return false
		}
		iter := va.MapRange()
		for iter.Next() {
			other := vb.MapIndex(iter.Key())
			if !other.IsValid() {
				return false
			}
			if !boundedEqual(iter.Value(), other, depth+1, maxDepth) {
				return false
			}
		}
		return true
	case reflect.Slice, reflect.Array:
		if va.Len() != vb.Len() {
			return false
		}
		for i := 0; i < va.Len(); i++ {
			if !boundedEqual(va.Index(i), vb.Index(i), depth+1, maxDepth) {
				return false
			}
		}
		return true
	case reflect.Pointer:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() && vb.IsNil()
		}
		return boundedEqual(va.Elem(), vb.Elem(), depth+1, maxDepth)
	case reflect.Struct:
		for i := 0; i < va.NumField(); i++ {
			if !boundedEqual(va.Field(i), vb.Field(i), depth+1, maxDepth) {
				return false
			}
		}
		return true
	default:
		// Primitives, funcs and channels already failed sameValue.
		return false
	}
}

// unwrap strips non-nil interface layers so map[string]any values compare by their dynamic type.
func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	return v
}
