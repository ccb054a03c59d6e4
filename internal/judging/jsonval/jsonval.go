// Package jsonval handles the weakly typed values that flow through the
// judging phases.
//
// A phase value is one of:
//   - nil: no output was captured
//   - Raw: output text kept as a string, either never parsed or unparseable
//   - Null: a top-level JSON null
//   - a decoded JSON document: bool, string, json.Number, []any, map[string]any
//
// Inside decoded arrays and objects a JSON null is a plain nil.
package jsonval

import (
	"encoding/json"
	"math/big"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var api = jsoniter.Config{
	EscapeHTML:  false,
	UseNumber:   true,
	SortMapKeys: true,
}.Froze()

// Raw is captured output that is compared as text.
type Raw string

// Null marks a top-level JSON null so it stays distinct from absent output.
type Null struct{}

// Parse decodes text as a single JSON document.
func Parse(text string) (any, bool) {
	var v any
	if err := api.UnmarshalFromString(strings.TrimSpace(text), &v); err != nil {
		return nil, false
	}
	if v == nil {
		return Null{}, true
	}
	return v, true
}

// Decode returns v as a decoded document. Raw text is parsed; nil is absent.
func Decode(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case Raw:
		return Parse(string(t))
	default:
		return v, true
	}
}

// Lift converts an element taken out of a decoded array into a phase value.
func Lift(v any) any {
	if v == nil {
		return Null{}
	}
	return v
}

// IsNull reports whether v is a JSON null (top-level or nested).
func IsNull(v any) bool {
	switch v.(type) {
	case Null:
		return true
	case nil:
		return true
	}
	return false
}

// Array returns v as a decoded array.
func Array(v any) ([]any, bool) {
	a, ok := v.([]any)
	return a, ok
}

// Canonical serializes a decoded value compactly with sorted object keys.
// Raw text is returned unchanged.
func Canonical(v any) string {
	switch t := v.(type) {
	case Raw:
		return string(t)
	case Null, nil:
		return "null"
	}
	s, err := api.MarshalToString(v)
	if err != nil {
		return ""
	}
	return s
}

// Text renders a phase value the way it is shown to users and compared as a
// string. ok is false for absent output.
func Text(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	return Canonical(v), true
}

// Display renders v for result payloads; absent output renders as "null".
func Display(v any) string {
	s, ok := Text(v)
	if !ok {
		return "null"
	}
	return s
}

// Equal reports structural equality of two decoded values. Numbers compare by
// value, objects ignore key order.
func Equal(a, b any) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	switch x := a.(type) {
	case Raw:
		y, ok := b.(Raw)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case json.Number:
		y, ok := b.(json.Number)
		return ok && numbersEqual(x, y)
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, found := y[k]
			if !found || !Equal(xv, yv) {
				return false
			}
		}
		return true
	}
	return false
}

func numbersEqual(a, b json.Number) bool {
	if a == b {
		return true
	}
	ai, aok := new(big.Int).SetString(string(a), 10)
	bi, bok := new(big.Int).SetString(string(b), 10)
	if aok && bok {
		return ai.Cmp(bi) == 0
	}
	af, aerr := a.Float64()
	bf, berr := b.Float64()
	return aerr == nil && berr == nil && af == bf
}

// AsInt coerces a scalar to an int the way loosely typed outputs expect:
// numbers truncate, numeric strings parse.
func AsInt(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
		if f, err := t.Float64(); err == nil {
			return int64(f), true
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return n, true
		}
	case Raw:
		return AsInt(string(t))
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Int builds a decoded number.
func Int(n int64) json.Number {
	return json.Number(strconv.FormatInt(n, 10))
}
