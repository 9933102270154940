package mapping

import (
	"reflect"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

// Stringify coerces a resolved raw value to the text written into a form field.
// nil and nil pointers become "", times use DateLayout, floats drop trailing zeros.
func Stringify(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case time.Time:
		if t.IsZero() {
			return "", nil
		}
		return t.Format(DateLayout), nil
	case *time.Time:
		if t == nil || t.IsZero() {
			return "", nil
		}
		return t.Format(DateLayout), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), nil
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", nil
		}
		rv = rv.Elem()
	}
	// Named string types (domain.Status and friends).
	if rv.Kind() == reflect.String {
		return rv.String(), nil
	}

	return cast.ToStringE(rv.Interface())
}
