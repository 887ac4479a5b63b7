// samevalue.go — Identity comparison with SameValue semantics.
// Primitives compare by value (NaN equals NaN, +0 and -0 differ), reference
// kinds compare by identity, and Go value structs/arrays compare field by field.
package diff

import (
	"math"
	"reflect"
	"unsafe"
)

// absentValue stands in for a key that exists in only one of the two bags.
type absentValue struct{}

func (absentValue) String() string { return "<absent>" }

// MarshalJSON renders an absent value as null in exports.
func (absentValue) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// Absent is substituted for a missing key on one side of a diff.
var Absent any = absentValue{}

// IsAbsent reports whether v is the Absent sentinel.
func IsAbsent(v any) bool {
	_, ok := v.(absentValue)
	return ok
}

// SameValue reports whether a and b are identical: the same primitive value of
// the same dynamic type, or the same identity for reference kinds.
func SameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	if va.Kind() == reflect.Func {
		return funcIdentity(a) == funcIdentity(b)
	}
	return sameValue(va, vb)
}

// funcIdentity returns the closure pointer held in the data word of a
// func-typed interface. Distinct closure instances have distinct pointers even
// when they share code.
func funcIdentity(v any) unsafe.Pointer {
	return (*[2]unsafe.Pointer)(unsafe.Pointer(&v))[1]
}

// sameValue compares two values of identical type.
func sameValue(va, vb reflect.Value) bool {
	switch va.Kind() {
	case reflect.Bool:
		return va.Bool() == vb.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return va.Int() == vb.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return va.Uint() == vb.Uint()
	case reflect.Float32, reflect.Float64:
		return sameFloat(va.Float(), vb.Float())
	case reflect.Complex64, reflect.Complex128:
		ca, cb := va.Complex(), vb.Complex()
		return sameFloat(real(ca), real(cb)) && sameFloat(imag(ca), imag(cb))
	case reflect.String:
		return va.String() == vb.String()
	case reflect.Func:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() && vb.IsNil()
		}
		if va.CanInterface() && vb.CanInterface() {
			return funcIdentity(va.Interface()) == funcIdentity(vb.Interface())
		}
		// Unexported func fields only expose their code pointer.
		return va.Pointer() == vb.Pointer()
	case reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return va.UnsafePointer() == vb.UnsafePointer()
	case reflect.Pointer:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() && vb.IsNil()
		}
		return !zeroSized(va) && va.UnsafePointer() == vb.UnsafePointer()
	case reflect.Slice:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() && vb.IsNil()
		}
		return !zeroSized(va) && va.Len() == vb.Len() && va.UnsafePointer() == vb.UnsafePointer()
	case reflect.Interface:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() && vb.IsNil()
		}
		ea, eb := va.Elem(), vb.Elem()
		return ea.Type() == eb.Type() && sameValue(ea, eb)
	case reflect.Array:
		for i := 0; i < va.Len(); i++ {
			if !sameValue(va.Index(i), vb.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Struct:
		for i := 0; i < va.NumField(); i++ {
			if !sameValue(va.Field(i), vb.Field(i)) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// zeroSized reports whether a non-nil slice or pointer refers to a zero-size
// allocation. The runtime hands every such allocation the same address, so
// these values carry no identity and each one is treated as fresh.
func zeroSized(v reflect.Value) bool {
	if v.Kind() == reflect.Slice {
		return v.Cap() == 0 || v.Type().Elem().Size() == 0
	}
	return v.Type().Elem().Size() == 0
}

// sameFloat implements SameValue for floats.
func sameFloat(x, y float64) bool {
	if math.IsNaN(x) && math.IsNaN(y) {
		return true
	}
	return x == y && math.Signbit(x) == math.Signbit(y)
}

// ============================================
// Type Classes
// ============================================

// typeClass groups values the way a dynamic language's typeof would.
type typeClass int

const (
	classAbsent typeClass = iota
	classBool
	classNumber
	classString
	classFunction
	classComposite // includes nil, which behaves like a null object
)

func classOf(v any) typeClass {
	if IsAbsent(v) {
		return classAbsent
	}
	if v == nil {
		return classComposite
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Bool:
		return classBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return classNumber
	case reflect.String:
		return classString
	case reflect.Func:
		return classFunction
	default:
		return classComposite
	}
}

// isNilish reports whether v is nil or a typed nil reference.
func isNilish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Chan, reflect.Interface, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}

// isSequence reports whether v is a slice or array.
func isSequence(v any) bool {
	if v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

// lengthOf returns the length of a slice or array.
func lengthOf(v any) int {
	return reflect.ValueOf(v).Len()
}

// IsComposite reports whether v is a non-nil composite (map, slice, struct,
// pointer, channel, ...), as opposed to a primitive, callable or absent value.
func IsComposite(v any) bool {
	return classOf(v) == classComposite && !isNilish(v)
}

// Identity returns the reference identity SameValue uses for callables, maps,
// pointers, channels and slices. ok is false for values compared by content
// and for zero-size allocations, which have no stable identity.
func Identity(v any) (id unsafe.Pointer, ok bool) {
	if isNilish(v) {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		return funcIdentity(v), true
	case reflect.Pointer, reflect.Slice:
		if zeroSized(rv) {
			return nil, false
		}
		return rv.UnsafePointer(), true
	case reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return rv.UnsafePointer(), true
	default:
		return nil, false
	}
}
