package resolver

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

// fieldIndexCache maps a struct type to its JSON property names and field indexes
var fieldIndexCache sync.Map // reflect.Type -> map[string]int

var timeType = reflect.TypeOf(time.Time{})

// lookupPath walks a dot path such as "engineer.street" over root using the
// JSON property names of structs, string-keyed maps and numeric slice indexes.
//
// Absent data (nil records, nil pointers, missing map keys, out of range
// indexes) yields (nil, nil). Naming a property a struct does not have is an error.
func lookupPath(root any, path string) (any, error) {
	if path == "" {
		return nil, fmt.Errorf("empty field path")
	}

	cur := reflect.ValueOf(root)
	for _, seg := range strings.Split(path, ".") {
		cur = indirect(cur)
		if !cur.IsValid() {
			return nil, nil
		}

		switch cur.Kind() {
		case reflect.Struct:
			if cur.Type() == timeType {
				return nil, fmt.Errorf("cannot read %q from a date", seg)
			}
			idx, ok := structField(cur.Type(), seg)
			if !ok {
				return nil, fmt.Errorf("%s has no property %q", cur.Type().Name(), seg)
			}
			cur = cur.Field(idx)

		case reflect.Map:
			if cur.Type().Key().Kind() != reflect.String {
				return nil, fmt.Errorf("cannot index %s with %q", cur.Type(), seg)
			}
			v := cur.MapIndex(reflect.ValueOf(seg).Convert(cur.Type().Key()))
			if !v.IsValid() {
				return nil, nil
			}
			cur = v

		case reflect.Slice, reflect.Array:
			i, err := strconv.Atoi(seg)
			if err != nil {
				return nil, fmt.Errorf("cannot index list with %q", seg)
			}
			if i < 0 || i >= cur.Len() {
				return nil, nil
			}
			cur = cur.Index(i)

		default:
			return nil, fmt.Errorf("cannot read %q from a %s value", seg, cur.Kind())
		}
	}

	cur = indirect(cur)
	if !cur.IsValid() {
		return nil, nil
	}
	return cur.Interface(), nil
}

// indirect dereferences pointers and interfaces; nil yields the zero Value
func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func structField(t reflect.Type, name string) (int, bool) {
	fields := structFields(t)
	if idx, ok := fields[name]; ok {
		return idx, true
	}
	for key, idx := range fields {
		if strings.EqualFold(key, name) {
			return idx, true
		}
	}
	return 0, false
}

func structFields(t reflect.Type) map[string]int {
	if cached, ok := fieldIndexCache.Load(t); ok {
		return cached.(map[string]int)
	}

	fields := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		fields[name] = i
	}

	actual, _ := fieldIndexCache.LoadOrStore(t, fields)
	return actual.(map[string]int)
}

// isZero reports whether v is nil, an empty string or a zero value
func isZero(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return reflect.ValueOf(v).IsZero()
}
