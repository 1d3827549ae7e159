package script

import (
	"fmt"
	"math"
	"reflect"

	"go.starlark.net/starlark"

	"github.com/phillarmonic/dotpipe/internal/types"
)

// ToStarlark converts a pipeline value. Integral numbers become ints so
// arithmetic in scripts stays exact.
func ToStarlark(v types.Value) starlark.Value {
	switch v.Kind() {
	case types.UndefinedKind:
		return starlark.None
	case types.BooleanKind:
		return starlark.Bool(v.Truthy())
	case types.NumberKind:
		n, _ := v.AsNumber()
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return starlark.MakeInt64(int64(n))
		}
		return starlark.Float(n)
	case types.StringKind:
		return starlark.String(v.String())
	default:
		return toStarlarkValue(v.Interface())
	}
}

func toStarlarkValue(v any) starlark.Value {
	switch v := v.(type) {

	case nil:
		return starlark.None

	case bool:
		return starlark.Bool(v)

	case string:
		return starlark.String(v)

	case int:
		return starlark.MakeInt(v)
	case int64:
		return starlark.MakeInt64(v)

	case float64:
		return starlark.Float(v)

	case []any:
		elems := make([]starlark.Value, len(v))
		for i, e := range v {
			elems[i] = toStarlarkValue(e)
		}
		return starlark.NewList(elems)

	case map[string]any:
		d := starlark.NewDict(len(v))
		for k, val := range v {
			_ = d.SetKey(starlark.String(k), toStarlarkValue(val))
		}
		return d

	case fmt.Stringer:
		return starlark.String(v.String())

	}

	value := reflect.ValueOf(v)
	switch value.Kind() {

	case reflect.Slice, reflect.Array:
		elems := make([]starlark.Value, value.Len())
		for i := range elems {
			elems[i] = toStarlarkValue(value.Index(i).Interface())
		}
		return starlark.NewList(elems)

	case reflect.Map:
		d := starlark.NewDict(value.Len())
		iter := value.MapRange()
		for iter.Next() {
			_ = d.SetKey(
				starlark.String(fmt.Sprint(iter.Key().Interface())),
				toStarlarkValue(iter.Value().Interface()),
			)
		}
		return d

	}

	return starlark.String(fmt.Sprint(v))
}

// FromStarlark converts a script result back into a pipeline value
func FromStarlark(v starlark.Value) types.Value {
	return types.From(fromStarlarkValue(v))
}

func fromStarlarkValue(v starlark.Value) any {
	switch v := v.(type) {

	case starlark.NoneType:
		return nil

	case starlark.Bool:
		return bool(v)

	case starlark.Int:
		if n, ok := v.Int64(); ok {
			return float64(n)
		}
		f, _ := starlark.AsFloat(v)
		return f

	case starlark.Float:
		return float64(v)

	case starlark.String:
		return string(v)

	case *starlark.List:
		out := make([]any, v.Len())
		for i := range out {
			out[i] = fromStarlarkValue(v.Index(i))
		}
		return out

	case starlark.Tuple:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = fromStarlarkValue(e)
		}
		return out

	case *starlark.Dict:
		out := make(map[string]any, v.Len())
		for _, item := range v.Items() {
			key, ok := starlark.AsString(item[0])
			if !ok {
				key = item[0].String()
			}
			out[key] = fromStarlarkValue(item[1])
		}
		return out

	}

	return v.String()
}
