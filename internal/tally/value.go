package tally

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind tags the shape of a submitted field value.
type ValueKind uint8

const (
	KindAbsent ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindObject
)

// Value is a submitted field value. Providers send strings, numbers, booleans, lists
// (multi-select) or null; anything else is kept as its JSON text.
type Value struct {
	kind ValueKind
	text string // string content, number literal, bool literal or object JSON
	list []Value
}

// String builds a string Value.
func String(s string) Value { return Value{kind: KindString, text: s} }

// Number builds a number Value from its literal form, e.g. "3" or "4.5".
func Number(literal string) Value { return Value{kind: KindNumber, text: literal} }

// Bool builds a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, text: strconv.FormatBool(b)} }

// List builds a list Value.
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// Strings builds a list of string Values.
func Strings(items ...string) Value {
	list := make([]Value, 0, len(items))
	for _, s := range items {
		list = append(list, String(s))
	}
	return List(list...)
}

// Kind returns the value's tag.
func (v Value) Kind() ValueKind { return v.kind }

// IsAbsent reports whether the value was null or missing.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Items returns list elements, or nil for scalars.
func (v Value) Items() []Value { return v.list }

// String returns the stringified form of v. Lists join their elements with ", ".
func (v Value) String() string {
	switch v.kind {
	case KindAbsent:
		return ""
	case KindList:
		parts := make([]string, 0, len(v.list))
		for _, item := range v.list {
			parts = append(parts, item.String())
		}
		return strings.Join(parts, ", ")
	default:
		return v.text
	}
}

// Normalize returns the trimmed text of v, joining non-empty list elements with ", ".
// Empty results are reported as absent.
func (v Value) Normalize() (string, bool) {
	switch v.kind {
	case KindAbsent:
		return "", false
	case KindList:
		parts := make([]string, 0, len(v.list))
		for _, item := range v.list {
			if s := strings.TrimSpace(item.String()); s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, ", "), true
	default:
		s := strings.TrimSpace(v.text)
		return s, s != ""
	}
}

// Int returns v as an integer when it is an integral number or a string holding one.
func (v Value) Int() (int, bool) {
	switch v.kind {
	case KindNumber, KindString:
		s := strings.TrimSpace(v.text)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if v.kind != KindNumber {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}

// UnmarshalJSON decodes any JSON value into its tagged form.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*v = Value{}
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = String(s)
	case '[':
		var items []Value
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*v = List(items...)
	case 't', 'f':
		var flag bool
		if err := json.Unmarshal(b, &flag); err != nil {
			return err
		}
		*v = Bool(flag)
	case '{':
		if !json.Valid(b) {
			return fmt.Errorf("invalid object value")
		}
		*v = Value{kind: KindObject, text: string(b)}
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*v = Number(n.String())
	}
	return nil
}

// MarshalJSON encodes v back to JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindAbsent:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.text)
	case KindNumber, KindBool, KindObject:
		return []byte(v.text), nil
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.kind)
	}
}
