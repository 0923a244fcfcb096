package kernel

import "testing"

func TestValueWidths(t *testing.T) {
	cases := []struct {
		v       Value
		stack   int
		payload int
	}{
		{CharValue('a'), 2, 1},
		{IntValue(7), 3, 2},
		{FloatValue(1), 5, 4},
		{StringValue([]byte("abc")), 6, 4},
		{StringValue(nil), 3, 1},
	}
	for _, tc := range cases {
		if got := tc.v.StackWidth(); got != tc.stack {
			t.Errorf("%s stack width %d, want %d", tc.v.Tag(), got, tc.stack)
		}
		if got := tc.v.PayloadWidth(); got != tc.payload {
			t.Errorf("%s payload width %d, want %d", tc.v.Tag(), got, tc.payload)
		}
	}
}

func TestValueRender(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{CharValue('x'), "x"},
		{IntValue(-42), "-42"},
		{StringValue([]byte("hi")), "hi"},
		{FloatValue(1.5), "1.50000"},
	}
	for _, tc := range cases {
		if got := tc.v.Render(5); got != tc.want {
			t.Errorf("%s renders %q, want %q", tc.v.Tag(), got, tc.want)
		}
	}
}

func TestValueWidening(t *testing.T) {
	if got := CharValue('a').AsInt(); got != 97 {
		t.Errorf("char as int: %d", got)
	}
	if got := IntValue(-3).AsFloat(); got != -3 {
		t.Errorf("int as float: %f", got)
	}
	if got := FloatValue(3.9).AsInt(); got != 3 {
		t.Errorf("float as int: %d", got)
	}
}

func TestValueAccessorPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("no panic on mistyped accessor")
		}
	}()
	_ = IntValue(1).Char()
}

func TestTagOrderMatchesWidening(t *testing.T) {
	// Binary arithmetic relies on CHAR < INT < FLOAT numerically.
	if !(TagChar < TagInt && TagInt < TagFloat) {
		t.Fatal("tag order broken")
	}
}
