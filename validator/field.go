package validator

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Field resolves a dotted path inside doc. Embedded documents may be bson.M,
// map[string]interface{} or bson.D, which covers documents decoded from the
// driver as well as from JSON.
func Field(doc bson.M, path string) (interface{}, bool) {
	var cur interface{} = doc
	for _, key := range strings.Split(path, ".") {
		next, found := child(cur, key)
		if !found {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func child(v interface{}, key string) (interface{}, bool) {
	switch m := v.(type) {
	case bson.M:
		val, ok := m[key]
		return val, ok
	case map[string]interface{}:
		val, ok := m[key]
		return val, ok
	case bson.D:
		for _, e := range m {
			if e.Key == key {
				return e.Value, true
			}
		}
	}
	return nil, false
}

// Number converts any Go numeric value to float64.
func Number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// equal compares scalars. Numbers compare by value regardless of their Go
// type, like MongoDB does; anything else that is not a string or bool never
// matches.
func equal(a, b interface{}) bool {
	if x, ok := Number(a); ok {
		y, ok := Number(b)
		return ok && x == y
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	}
	return false
}
