package memory

import (
	"reflect"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/app/internal/platform"
)

// normalize converts written values to the shapes a document store hands back:
// []any for arrays, map[string]any for maps, int64 for integers.
func normalize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case float32:
		return float64(val)
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = normalize(iter.Value().Interface())
		}
		return out
	}
	return v
}

func copyMap(m map[string]any) map[string]any {
	return normalize(m).(map[string]any)
}

func containsValue(arr []any, v any) bool {
	for _, item := range arr {
		if reflect.DeepEqual(item, v) {
			return true
		}
	}
	return false
}

func matches(data map[string]any, filters []platform.Filter) bool {
	for _, f := range filters {
		field, ok := lookup(data, f.Field)
		if !ok {
			return false
		}
		want := normalize(f.Value)
		switch f.Op {
		case platform.OpEqual:
			if !reflect.DeepEqual(field, want) && compareOrdered(field, want) != 0 {
				return false
			}
		case platform.OpLess:
			if !sameKind(field, want) || compare(field, want) >= 0 {
				return false
			}
		case platform.OpGreater:
			if !sameKind(field, want) || compare(field, want) <= 0 {
				return false
			}
		case platform.OpArrayContains:
			arr, ok := field.([]any)
			if !ok || !containsValue(arr, want) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// lookup resolves dotted field paths into nested maps.
func lookup(data map[string]any, field string) (any, bool) {
	parts := strings.Split(field, ".")
	var cur any = data
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func sameKind(a, b any) bool {
	return rank(a) == rank(b) && rank(a) > 0
}

// compareOrdered returns 0 only for equal values of the same ordered kind.
func compareOrdered(a, b any) int {
	if !sameKind(a, b) {
		return 1
	}
	return compare(a, b)
}

// rank orders value kinds: nil < bool < number < time < string < other.
func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int64, float64:
		return 2
	case time.Time:
		return 3
	case string:
		return 4
	}
	return 5
}

func compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case int64, float64:
		fx, fy := toFloat(a), toFloat(b)
		switch {
		case fx < fy:
			return -1
		case fx > fy:
			return 1
		}
		return 0
	case time.Time:
		return x.Compare(b.(time.Time))
	case string:
		return strings.Compare(x, b.(string))
	}
	return 0
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}
