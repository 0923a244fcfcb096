package kernel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/femto/console"
	"github.com/chazu/femto/store"
)

// Defaults mirror the original hardware: a 1 KiB store and the table
// sizes of the reference system.
const (
	DefaultStoreCapacity  = 1024
	DefaultMaxFiles       = 10
	DefaultArenaSize      = 256
	DefaultMaxVariables   = 20
	DefaultProcessSlots   = 10
	DefaultStackSize      = 32
	DefaultFloatPrecision = 5
)

// Options configures a Kernel. Nil leaves get host defaults; zero
// capacities get the defaults above.
type Options struct {
	Store   store.Store
	Console console.Console
	Clock   Clock
	Pins    PinDriver

	MaxFiles       int
	ArenaSize      int
	MaxVariables   int
	ProcessSlots   int
	StackSize      int
	FloatPrecision int
}

// Kernel owns every table and arena: the file table over the
// persistent store, the RAM arena and variable table, the process
// table with its operand stacks, and the console tokenizer. All entry
// points (Boot, Feed, Tick, Run) operate on this one value; there is
// no package-level mutable state.
type Kernel struct {
	st    store.Store
	con   console.Console
	clock Clock
	pins  PinDriver

	fat   *FAT
	arena *Arena
	procs *ProcTable

	prec int
	log  commonlog.Logger

	// console tokenizer: up to a command plus three arguments
	args [][]byte
}

// New assembles a Kernel from opts.
func New(opts Options) *Kernel {
	if opts.Store == nil {
		opts.Store = store.NewMem(DefaultStoreCapacity)
	}
	if opts.Console == nil {
		opts.Console = console.NewPipe()
	}
	if opts.Clock == nil {
		opts.Clock = NewBootClock()
	}
	if opts.Pins == nil {
		opts.Pins = NewHostPins()
	}
	if opts.MaxFiles == 0 {
		opts.MaxFiles = DefaultMaxFiles
	}
	if opts.ArenaSize == 0 {
		opts.ArenaSize = DefaultArenaSize
	}
	if opts.MaxVariables == 0 {
		opts.MaxVariables = DefaultMaxVariables
	}
	if opts.ProcessSlots == 0 {
		opts.ProcessSlots = DefaultProcessSlots
	}
	if opts.StackSize == 0 {
		opts.StackSize = DefaultStackSize
	}
	if opts.FloatPrecision == 0 {
		opts.FloatPrecision = DefaultFloatPrecision
	}
	return &Kernel{
		st:    opts.Store,
		con:   opts.Console,
		clock: opts.Clock,
		pins:  opts.Pins,
		fat:   NewFAT(opts.Store, opts.MaxFiles),
		arena: NewArena(opts.ArenaSize, opts.MaxVariables),
		procs: NewProcTable(opts.ProcessSlots, opts.StackSize),
		prec:  opts.FloatPrecision,
		log:   commonlog.GetLogger("femto.kernel"),
		args:  [][]byte{nil},
	}
}

// FAT returns the file table.
func (k *Kernel) FAT() *FAT { return k.fat }

// Arena returns the variable store.
func (k *Kernel) Arena() *Arena { return k.arena }

// Procs returns the process table.
func (k *Kernel) Procs() *ProcTable { return k.procs }

// Boot loads the file table header and greets on the console.
func (k *Kernel) Boot() {
	k.fat.Load()
	k.print("\nfemto 1.0 ready.\n\n")
	k.log.Infof("booted: %d files, %d bytes free", k.fat.Count(), k.fat.FreeSpace())
}

// Run is the event loop: one console byte, then one scheduler pass,
// forever. It returns when ctx is cancelled. The loop itself never
// fails; all errors surface on the console.
func (k *Kernel) Run(ctx context.Context, period time.Duration) {
	if period <= 0 {
		period = time.Millisecond
	}
	for {
		select {
		case <-ctx.Done():
			k.log.Info("event loop stopped")
			return
		default:
		}
		if b, ok := k.con.Poll(); ok {
			k.Feed(b)
		}
		k.Tick()
		time.Sleep(period)
	}
}

// Tick executes one bytecode instruction for every process that is
// RUNNING at the start of the pass, in slot order. Processes forked
// during the pass first run on the next one; a process killed during
// the pass is skipped.
func (k *Kernel) Tick() {
	pids := make([]int, 0, k.procs.Count())
	for _, p := range k.procs.Procs() {
		if p.State == StateRunning {
			pids = append(pids, p.PID)
		}
	}
	for _, pid := range pids {
		p := k.procs.ByPID(pid)
		if p == nil || p.State != StateRunning {
			continue
		}
		k.step(p)
	}
}

// ---------------------------------------------------------------------------
// Process operations
// ---------------------------------------------------------------------------

// StartProgram launches the named file as a new RUNNING process.
func (k *Kernel) StartProgram(name string) (*Proc, error) {
	k.fat.Load()
	entry, ok := k.fat.Lookup(name)
	if !ok {
		return nil, ErrNotFound
	}
	return k.procs.Spawn(name, entry.Begin, entry.Length)
}

// runProgram starts name and reports on the console. Used by the run
// command and the FORK opcode; returns the child pid, or -1.
func (k *Kernel) runProgram(name string) int {
	p, err := k.StartProgram(name)
	switch {
	case errors.Is(err, ErrNotFound):
		k.print("File does not exist.\n")
		return -1
	case errors.Is(err, ErrTableFull):
		k.print("No space left in the process table.\n")
		return -1
	case err != nil:
		k.printf("Cannot start %s: %v\n", name, err)
		return -1
	}
	k.printf("Process %d has been started.\n", p.PID)
	return p.PID
}

// Suspend marks the process PAUSED.
func (k *Kernel) Suspend(pid int) error {
	p := k.procs.ByPID(pid)
	if p == nil {
		return k.missingPIDError(pid)
	}
	if p.State == StatePaused {
		return ErrAlreadyInState
	}
	p.State = StatePaused
	return nil
}

// Resume marks the process RUNNING.
func (k *Kernel) Resume(pid int) error {
	p := k.procs.ByPID(pid)
	if p == nil {
		return k.missingPIDError(pid)
	}
	if p.State == StateRunning {
		return ErrAlreadyInState
	}
	p.State = StateRunning
	return nil
}

// Kill terminates the process and removes it, tearing down its
// variables. Nothing is interrupted mid-instruction: the call happens
// between ticks on the single thread.
func (k *Kernel) Kill(pid int) error {
	p := k.procs.ByPID(pid)
	if p == nil {
		return k.missingPIDError(pid)
	}
	k.teardown(p)
	k.log.Infof("killed pid=%d", pid)
	return nil
}

// missingPIDError distinguishes a pid this boot never issued from one
// whose process already ended.
func (k *Kernel) missingPIDError(pid int) error {
	if pid >= 0 && pid < k.procs.nextPID {
		return ErrAlreadyEnded
	}
	return ErrPidUnknown
}

// teardown removes the process and every variable it owns.
func (k *Kernel) teardown(p *Proc) {
	k.arena.DropOwner(p.PID)
	k.procs.Remove(p.PID)
}

// exit is the STOP path: announce, then tear down.
func (k *Kernel) exit(p *Proc) {
	k.printf("Process %d finished.\n", p.PID)
	k.teardown(p)
}

// fail terminates the offending process after an execution error. The
// scheduler and every other process continue untouched.
func (k *Kernel) fail(p *Proc, err error) {
	k.printf("Process %d terminated: %v\n", p.PID, err)
	k.log.Errorf("pid=%d pc=%d: %v", p.PID, p.PC, err)
	k.teardown(p)
}

// ---------------------------------------------------------------------------
// Console output
// ---------------------------------------------------------------------------

func (k *Kernel) print(s string) {
	k.con.Write([]byte(s))
}

func (k *Kernel) printf(format string, args ...any) {
	fmt.Fprintf(k.con, format, args...)
}
