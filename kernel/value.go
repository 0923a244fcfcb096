package kernel

import (
	"fmt"
	"strconv"
)

// Tag identifies the type of a value on an operand stack or in the
// variable table. The numeric values are wire bytes: they appear as the
// trailing byte of every stacked value and must not change, for binary
// compatibility with existing bytecode files.
type Tag byte

const (
	TagChar   Tag = 1
	TagInt    Tag = 2
	TagString Tag = 3
	TagFloat  Tag = 4
)

// Valid returns true if t is one of the four wire tags.
func (t Tag) Valid() bool {
	return t >= TagChar && t <= TagFloat
}

// Numeric returns true if values of this tag participate in arithmetic.
func (t Tag) Numeric() bool {
	return t == TagChar || t == TagInt || t == TagFloat
}

func (t Tag) String() string {
	switch t {
	case TagChar:
		return "CHAR"
	case TagInt:
		return "INT"
	case TagString:
		return "STRING"
	case TagFloat:
		return "FLOAT"
	}
	return fmt.Sprintf("Tag(%d)", byte(t))
}

// Value is a tagged operand value: one of Char(byte), Int(int16),
// String(bytes) or Float(float32). The zero Value is invalid; values
// are built with the typed constructors.
type Value struct {
	tag Tag
	ch  byte
	i   int16
	f   float32
	s   []byte // string payload without the terminating zero
}

// CharValue returns a CHAR value.
func CharValue(c byte) Value { return Value{tag: TagChar, ch: c} }

// IntValue returns an INT value.
func IntValue(i int16) Value { return Value{tag: TagInt, i: i} }

// FloatValue returns a FLOAT value.
func FloatValue(f float32) Value { return Value{tag: TagFloat, f: f} }

// StringValue returns a STRING value owning s. The slice must not
// contain the terminating zero; it is appended on the wire.
func StringValue(s []byte) Value { return Value{tag: TagString, s: s} }

// Tag returns the value's type tag.
func (v Value) Tag() Tag { return v.tag }

// Char returns the CHAR payload.
// Panics if v is not a CHAR.
func (v Value) Char() byte {
	if v.tag != TagChar {
		panic("Value.Char: not a CHAR")
	}
	return v.ch
}

// Int returns the INT payload.
// Panics if v is not an INT.
func (v Value) Int() int16 {
	if v.tag != TagInt {
		panic("Value.Int: not an INT")
	}
	return v.i
}

// Float returns the FLOAT payload.
// Panics if v is not a FLOAT.
func (v Value) Float() float32 {
	if v.tag != TagFloat {
		panic("Value.Float: not a FLOAT")
	}
	return v.f
}

// Bytes returns the STRING payload without its terminating zero.
// Panics if v is not a STRING.
func (v Value) Bytes() []byte {
	if v.tag != TagString {
		panic("Value.Bytes: not a STRING")
	}
	return v.s
}

// StackWidth returns the number of stack bytes the value occupies,
// including its tag byte.
func (v Value) StackWidth() int {
	switch v.tag {
	case TagChar:
		return 2
	case TagInt:
		return 3
	case TagString:
		// payload, terminating zero, length byte, tag
		return len(v.s) + 3
	case TagFloat:
		return 5
	}
	return 0
}

// PayloadWidth returns the number of bytes the value occupies in the
// RAM arena: 1 for CHAR, 2 for INT, 4 for FLOAT, len+1 for STRING
// (including its terminating zero).
func (v Value) PayloadWidth() int {
	switch v.tag {
	case TagChar:
		return 1
	case TagInt:
		return 2
	case TagString:
		return len(v.s) + 1
	case TagFloat:
		return 4
	}
	return 0
}

// Render formats the value for console output: raw characters for
// CHAR/STRING, decimal for INT, fixed precision for FLOAT.
func (v Value) Render(precision int) string {
	switch v.tag {
	case TagChar:
		return string([]byte{v.ch})
	case TagInt:
		return strconv.Itoa(int(v.i))
	case TagString:
		return string(v.s)
	case TagFloat:
		return strconv.FormatFloat(float64(v.f), 'f', precision, 32)
	}
	return "?"
}

// AsFloat widens a numeric value to float32.
// Panics if v is a STRING.
func (v Value) AsFloat() float32 {
	switch v.tag {
	case TagChar:
		return float32(v.ch)
	case TagInt:
		return float32(v.i)
	case TagFloat:
		return v.f
	}
	panic("Value.AsFloat: not numeric")
}

// AsInt widens (or narrows) a numeric value to int16.
// Panics if v is a STRING.
func (v Value) AsInt() int16 {
	switch v.tag {
	case TagChar:
		return int16(v.ch)
	case TagInt:
		return v.i
	case TagFloat:
		return int16(v.f)
	}
	panic("Value.AsInt: not numeric")
}

// Equal reports payload equality. Used by tests.
func (v Value) Equal(w Value) bool {
	if v.tag != w.tag {
		return false
	}
	switch v.tag {
	case TagChar:
		return v.ch == w.ch
	case TagInt:
		return v.i == w.i
	case TagFloat:
		return v.f == w.f
	case TagString:
		return string(v.s) == string(w.s)
	}
	return false
}
