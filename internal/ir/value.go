package ir

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the value types a graph description is
// built from. There is no float and no null: a description must hash the
// same on every platform.
type Value interface {
	value()
}

// String is a string value.
type String string

// Int is an integer value.
type Int int64

// Bool is a boolean value.
type Bool bool

// List is an ordered list of values.
type List []Value

// Object maps string keys to values. Use SortedKeys for deterministic
// iteration.
type Object map[string]Value

func (String) value() {}
func (Int) value()    {}
func (Bool) value()   {}
func (List) value()   {}
func (Object) value() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings compares UTF-8 bytes and orders some keys differently.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	for i := 0; i < min(len(a16), len(b16)); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}
