package kernel

import (
	"errors"
	"testing"
)

func TestArenaSetGetRoundTrip(t *testing.T) {
	cases := []Value{
		CharValue('q'),
		IntValue(-1234),
		FloatValue(2.5),
		StringValue([]byte("payload")),
	}
	a := NewArena(256, 20)
	for i, v := range cases {
		name := byte('a' + i)
		if err := a.Set(name, 1, v); err != nil {
			t.Fatalf("set %c: %v", name, err)
		}
	}
	for i, v := range cases {
		name := byte('a' + i)
		got, err := a.Get(name, 1)
		if err != nil {
			t.Fatalf("get %c: %v", name, err)
		}
		if !got.Equal(v) {
			t.Fatalf("get %c: got %v want %v", name, got, v)
		}
	}
}

func TestArenaScopedByOwner(t *testing.T) {
	a := NewArena(256, 20)
	if err := a.Set('x', 1, IntValue(1)); err != nil {
		t.Fatal(err)
	}
	if err := a.Set('x', 2, IntValue(2)); err != nil {
		t.Fatal(err)
	}
	v1, err := a.Get('x', 1)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := a.Get('x', 2)
	if err != nil {
		t.Fatal(err)
	}
	if v1.Int() != 1 || v2.Int() != 2 {
		t.Fatalf("scoping broken: got %d and %d", v1.Int(), v2.Int())
	}
}

// A same-width rebind must not grow the table or move the region.
func TestArenaRebindSameWidth(t *testing.T) {
	a := NewArena(256, 20)
	if err := a.Set('x', 1, IntValue(10)); err != nil {
		t.Fatal(err)
	}
	addr := a.Variables()[0].Addr
	if err := a.Set('x', 1, IntValue(20)); err != nil {
		t.Fatal(err)
	}
	if a.Count() != 1 {
		t.Fatalf("rebind grew the table to %d entries", a.Count())
	}
	if got := a.Variables()[0].Addr; got != addr {
		t.Fatalf("rebind moved the region: %d -> %d", addr, got)
	}
	v, err := a.Get('x', 1)
	if err != nil {
		t.Fatal(err)
	}
	if v.Int() != 20 {
		t.Fatalf("got %d, want 20", v.Int())
	}
}

func TestArenaDropOwner(t *testing.T) {
	a := NewArena(256, 20)
	for _, name := range []byte{'x', 'y', 'z'} {
		if err := a.Set(name, 1, CharValue(name)); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.Set('k', 2, CharValue('k')); err != nil {
		t.Fatal(err)
	}
	a.DropOwner(1)
	if a.Count() != 1 {
		t.Fatalf("after teardown: %d variables, want 1", a.Count())
	}
	if _, err := a.Get('x', 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if _, err := a.Get('k', 2); err != nil {
		t.Fatalf("other owner's variable lost: %v", err)
	}
}

func TestArenaTableFull(t *testing.T) {
	a := NewArena(256, 2)
	if err := a.Set('a', 1, CharValue('a')); err != nil {
		t.Fatal(err)
	}
	if err := a.Set('b', 1, CharValue('b')); err != nil {
		t.Fatal(err)
	}
	if err := a.Set('c', 1, CharValue('c')); !errors.Is(err, ErrTableFull) {
		t.Fatalf("got %v, want ErrTableFull", err)
	}
}

func TestArenaNoSpace(t *testing.T) {
	a := NewArena(8, 20)
	if err := a.Set('s', 1, StringValue([]byte("1234567"))); err != nil { // 8 bytes with zero
		t.Fatal(err)
	}
	if err := a.Set('t', 1, CharValue('t')); !errors.Is(err, ErrNoSpace) {
		t.Fatalf("got %v, want ErrNoSpace", err)
	}
}

// Freeing a middle region and allocating the same width reuses it,
// first-fit like the file table.
func TestArenaFirstFitReusesGap(t *testing.T) {
	a := NewArena(16, 20)
	if err := a.Set('a', 1, IntValue(1)); err != nil { // addr 0, len 2
		t.Fatal(err)
	}
	if err := a.Set('b', 1, IntValue(2)); err != nil { // addr 2, len 2
		t.Fatal(err)
	}
	if err := a.Set('c', 1, IntValue(3)); err != nil { // addr 4, len 2
		t.Fatal(err)
	}
	a.DropOwner(2) // no-op, different owner
	// Rebinding b as a CHAR frees [2,4) and takes its first byte.
	if err := a.Set('b', 1, CharValue('b')); err != nil {
		t.Fatal(err)
	}
	for _, v := range a.Variables() {
		if v.Name == 'b' && v.Addr != 2 {
			t.Fatalf("b reallocated at %d, want 2", v.Addr)
		}
	}
	checkArenaInvariants(t, a)
}

func checkArenaInvariants(t *testing.T, a *Arena) {
	t.Helper()
	vars := a.Variables()
	for i, v := range vars {
		if v.Addr+v.Length > a.Capacity() {
			t.Fatalf("variable %c ends beyond the arena", v.Name)
		}
		if i > 0 {
			prev := vars[i-1]
			if prev.Addr+prev.Length > v.Addr {
				t.Fatalf("variables %c and %c overlap", prev.Name, v.Name)
			}
		}
	}
}
