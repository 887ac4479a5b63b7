// display.go — JSON-safe forms of tracked values.
// Props may hold callables, channels and self-referencing composites, none of
// which encoding/json accepts. Exports and event payloads render them as marker
// objects instead: {"$fn": name}, {"$chan": type}, {"$opaque": type} and
// {"$cycle": type}. Non-finite floats become strings.
package types

import (
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"unsafe"
)

const (
	markerFn     = "$fn"
	markerChan   = "$chan"
	markerOpaque = "$opaque"
	markerCycle  = "$cycle"
)

var (
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// DisplayValue returns v unchanged when it encodes as JSON, and otherwise a
// copy built from maps, slices and primitives where every value encoding/json
// rejects is replaced by a marker object.
func DisplayValue(v any) any {
	if v == nil {
		return nil
	}
	if _, err := json.Marshal(v); err == nil {
		return v
	}
	w := displayWalker{onPath: make(map[visitKey]bool)}
	return w.value(reflect.ValueOf(v))
}

// DisplayProps applies DisplayValue to every prop.
func DisplayProps(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = DisplayValue(v)
	}
	return out
}

// FuncName returns the symbol name of a callable without its import path,
// e.g. "app.(*Form).submit-fm" or "app.render.func1".
func FuncName(fn reflect.Value) string {
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return "anonymous"
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

type visitKey struct {
	ptr unsafe.Pointer
	typ reflect.Type
}

// displayWalker tracks the references on the current path so a composite that
// contains itself is written once and then as a cycle marker.
type displayWalker struct {
	onPath map[visitKey]bool
}

func (w displayWalker) value(v reflect.Value) any {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}
	if v.CanInterface() && (v.Type().Implements(jsonMarshalerType) || v.Type().Implements(textMarshalerType)) {
		if v.Kind() != reflect.Pointer || !v.IsNil() {
			iface := v.Interface()
			if _, err := json.Marshal(iface); err == nil {
				return iface
			}
		}
	}

	switch v.Kind() {
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		return displayFloat(v.Float())
	case reflect.Complex64, reflect.Complex128:
		return strconv.FormatComplex(v.Complex(), 'g', -1, 128)
	case reflect.String:
		return v.String()
	case reflect.Func:
		if v.IsNil() {
			return nil
		}
		return map[string]any{markerFn: FuncName(v)}
	case reflect.Chan:
		if v.IsNil() {
			return nil
		}
		return map[string]any{markerChan: v.Type().String()}
	case reflect.UnsafePointer:
		return map[string]any{markerOpaque: v.Type().String()}
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return w.enter(v, func() any { return w.value(v.Elem()) })
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		return w.enter(v, func() any { return w.mapValue(v) })
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		return w.enter(v, func() any { return w.sequence(v) })
	case reflect.Array:
		return w.sequence(v)
	case reflect.Struct:
		return w.structValue(v)
	default:
		return map[string]any{markerOpaque: v.Type().String()}
	}
}

// enter walks a reference value unless it is already on the current path.
func (w displayWalker) enter(v reflect.Value, walk func() any) any {
	key := visitKey{ptr: v.UnsafePointer(), typ: v.Type()}
	if w.onPath[key] {
		return map[string]any{markerCycle: v.Type().String()}
	}
	w.onPath[key] = true
	defer delete(w.onPath, key)
	return walk()
}

func (w displayWalker) mapValue(v reflect.Value) map[string]any {
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k := iter.Key()
		name := ""
		if k.Kind() == reflect.String {
			name = k.String()
		} else {
			name = fmt.Sprint(k)
		}
		out[name] = w.value(iter.Value())
	}
	return out
}

func (w displayWalker) sequence(v reflect.Value) []any {
	out := make([]any, v.Len())
	for i := range out {
		out[i] = w.value(v.Index(i))
	}
	return out
}

// structValue keeps exported fields under their JSON names.
func (w displayWalker) structValue(v reflect.Value) map[string]any {
	t := v.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		out[name] = w.value(v.Field(i))
	}
	return out
}

func displayFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	default:
		return f
	}
}
