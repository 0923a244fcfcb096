package kernel

import "github.com/tliron/commonlog"

// ---------------------------------------------------------------------------
// Process table
// ---------------------------------------------------------------------------

// ProcState represents the state of a process.
type ProcState int

const (
	StateRunning ProcState = iota
	StatePaused
	StateTerminated
)

func (s ProcState) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StatePaused:
		return "PAUSED"
	case StateTerminated:
		return "TERMINATED"
	}
	return "?"
}

// Letter returns the one-character state code used by the list command.
func (s ProcState) Letter() byte {
	switch s {
	case StateRunning:
		return 'r'
	case StatePaused:
		return 'p'
	}
	return '0'
}

// Proc is one process control block. Base is the persistent-store
// offset where the program bytes begin; PC is relative to it. FP is
// reserved for future scoping and stays zero.
type Proc struct {
	Name   string
	PID    int
	State  ProcState
	PC     int
	FP     int
	Base   int
	Length int

	stack *Stack
}

// Stack returns the process's operand stack.
func (p *Proc) Stack() *Stack { return p.stack }

// ProcTable is the fixed-size table of process control blocks. Pids
// come from a monotone counter and are never reused during a boot;
// slot order, not pid, decides scheduling order. Each slot owns one
// fixed-size operand stack, reset and zeroed when the slot is reused.
type ProcTable struct {
	procs   []*Proc
	free    []*Stack
	slots   int
	nextPID int
	log     commonlog.Logger
}

// NewProcTable returns a table with the given number of slots, each
// owning a stack of stackSize bytes.
func NewProcTable(slots, stackSize int) *ProcTable {
	t := &ProcTable{
		slots: slots,
		log:   commonlog.GetLogger("femto.proc"),
	}
	for i := 0; i < slots; i++ {
		t.free = append(t.free, newStack(stackSize))
	}
	return t
}

// Count returns the number of live processes.
func (t *ProcTable) Count() int { return len(t.procs) }

// Procs returns the live processes in slot order. The slice is shared;
// callers must not mutate it.
func (t *ProcTable) Procs() []*Proc { return t.procs }

// ByPID returns the process with the given pid, or nil.
func (t *ProcTable) ByPID(pid int) *Proc {
	for _, p := range t.procs {
		if p.PID == pid {
			return p
		}
	}
	return nil
}

// Spawn creates a RUNNING process for the named program at base.
func (t *ProcTable) Spawn(name string, base, length int) (*Proc, error) {
	if len(t.procs) >= t.slots {
		return nil, ErrTableFull
	}
	stack := t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]
	stack.reset()
	p := &Proc{
		Name:   name,
		PID:    t.nextPID,
		State:  StateRunning,
		Base:   base,
		Length: length,
		stack:  stack,
	}
	t.nextPID++
	t.procs = append(t.procs, p)
	t.log.Debugf("spawned pid=%d name=%q base=%d", p.PID, name, base)
	return p, nil
}

// Remove takes the process out of the table, left-shifting the suffix,
// and returns its zeroed stack to the slot pool.
func (t *ProcTable) Remove(pid int) {
	for i, p := range t.procs {
		if p.PID == pid {
			p.State = StateTerminated
			p.stack.reset()
			t.free = append(t.free, p.stack)
			p.stack = nil
			t.procs = append(t.procs[:i], t.procs[i+1:]...)
			return
		}
	}
}
