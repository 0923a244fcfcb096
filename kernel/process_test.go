package kernel

import (
	"errors"
	"testing"
)

func TestProcTablePidsMonotone(t *testing.T) {
	pt := NewProcTable(4, 16)
	a, err := pt.Spawn("a", 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := pt.Spawn("b", 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	pt.Remove(a.PID)
	c, err := pt.Spawn("c", 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !(a.PID < b.PID && b.PID < c.PID) {
		t.Fatalf("pids not monotone: %d %d %d", a.PID, b.PID, c.PID)
	}
}

func TestProcTableRemoveShiftsSuffix(t *testing.T) {
	pt := NewProcTable(4, 16)
	pt.Spawn("a", 0, 1)
	b, _ := pt.Spawn("b", 0, 1)
	pt.Spawn("c", 0, 1)
	pt.Remove(b.PID)
	if pt.Count() != 2 {
		t.Fatalf("count %d, want 2", pt.Count())
	}
	names := []string{pt.Procs()[0].Name, pt.Procs()[1].Name}
	if names[0] != "a" || names[1] != "c" {
		t.Fatalf("order after removal: %v", names)
	}
	if pt.ByPID(b.PID) != nil {
		t.Fatal("removed pid still resolvable")
	}
}

func TestProcTableFull(t *testing.T) {
	pt := NewProcTable(2, 16)
	pt.Spawn("a", 0, 1)
	pt.Spawn("b", 0, 1)
	if _, err := pt.Spawn("c", 0, 1); !errors.Is(err, ErrTableFull) {
		t.Fatalf("got %v, want ErrTableFull", err)
	}
}

// A reused slot must hand the new process an empty, zeroed stack.
func TestProcTableStackResetOnReuse(t *testing.T) {
	pt := NewProcTable(1, 16)
	a, _ := pt.Spawn("a", 0, 1)
	if err := a.Stack().PushValue(StringValue([]byte("leftovers"))); err != nil {
		t.Fatal(err)
	}
	pt.Remove(a.PID)
	b, err := pt.Spawn("b", 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if b.Stack().Depth() != 0 {
		t.Fatalf("reused stack depth %d, want 0", b.Stack().Depth())
	}
	for i, by := range b.Stack().buf {
		if by != 0 {
			t.Fatalf("reused stack byte %d not zeroed", i)
		}
	}
}
