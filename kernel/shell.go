package kernel

import (
	"errors"
	"strconv"
	"time"
)

// ---------------------------------------------------------------------------
// Serial command shell
// ---------------------------------------------------------------------------

// maxShellArgs is one command plus three arguments.
const maxShellArgs = 4

// maxTokenLen bounds a single token; longer tokens are truncated.
// File names are further limited to MaxFileName by the file table,
// but arguments like snapshot paths need more room.
const maxTokenLen = 63

type command struct {
	name string
	args int
	run  func(k *Kernel, argv []string)
}

var commands = []command{
	{"store", 2, (*Kernel).cmdStore},
	{"retrieve", 1, (*Kernel).cmdRetrieve},
	{"erase", 1, (*Kernel).cmdErase},
	{"files", 0, (*Kernel).cmdFiles},
	{"freespace", 0, (*Kernel).cmdFreespace},
	{"run", 1, (*Kernel).cmdRun},
	{"list", 0, (*Kernel).cmdList},
	{"suspend", 1, (*Kernel).cmdSuspend},
	{"resume", 1, (*Kernel).cmdResume},
	{"kill", 1, (*Kernel).cmdKill},
	{"snapshot", 1, (*Kernel).cmdSnapshot},
}

// Feed consumes one console byte: space advances to the next argument,
// CR or LF dispatches the line, anything else extends the current
// token.
func (k *Kernel) Feed(b byte) {
	switch b {
	case ' ':
		if len(k.args) < maxShellArgs {
			k.args = append(k.args, nil)
		}
	case '\r', '\n':
		k.dispatch()
		k.args = [][]byte{nil}
	default:
		cur := len(k.args) - 1
		if len(k.args[cur]) < maxTokenLen {
			k.args[cur] = append(k.args[cur], b)
		}
	}
}

func (k *Kernel) dispatch() {
	if len(k.args) == 1 && len(k.args[0]) == 0 {
		return // blank line
	}
	argv := make([]string, len(k.args))
	for i, a := range k.args {
		argv[i] = string(a)
	}
	for _, c := range commands {
		if c.name == argv[0] {
			if len(argv)-1 != c.args {
				k.printf("%d arguments required\n", c.args)
				return
			}
			c.run(k, argv)
			return
		}
	}
	k.printf("Command '%s' is not a known command.\n", argv[0])
	k.print("Available commands:\n")
	for _, c := range commands {
		k.printf("  %s\n", c.name)
	}
}

// ---------------------------------------------------------------------------
// Command implementations
// ---------------------------------------------------------------------------

func (k *Kernel) cmdStore(argv []string) {
	size, err := strconv.Atoi(argv[2])
	if err != nil || size <= 0 {
		k.print("Error. Invalid file size.\n")
		return
	}
	k.print("Give input for file:\n")
	data := k.readPayload(size)
	k.fat.Load()
	switch err := k.fat.Store(argv[1], data); {
	case errors.Is(err, ErrTableFull):
		k.print("File cannot be stored, limit reached.\n")
	case errors.Is(err, ErrDuplicate):
		k.print("File cannot be stored, given name already exists.\n")
	case errors.Is(err, ErrNoSpace):
		k.print("Error: No space left for file.\n")
	case err != nil:
		k.printf("Error: %v\n", err)
	default:
		k.print("File has been stored.\n")
	}
}

// readPayload collects exactly n console bytes: it waits for the first
// byte, then pads with spaces if the stream stalls, like the original
// did at serial speed.
func (k *Kernel) readPayload(n int) []byte {
	data := make([]byte, n)
	for {
		if b, ok := k.con.Poll(); ok {
			data[0] = b
			break
		}
		time.Sleep(time.Millisecond)
	}
	for i := 1; i < n; i++ {
		b, ok := k.con.Poll()
		for t := 0; !ok && t < 100; t++ {
			time.Sleep(time.Millisecond)
			b, ok = k.con.Poll()
		}
		if !ok {
			b = ' '
		}
		data[i] = b
	}
	return data
}

func (k *Kernel) cmdRetrieve(argv []string) {
	k.fat.Load()
	data, err := k.fat.Retrieve(argv[1])
	if err != nil {
		k.print("File not found.\n")
		return
	}
	k.con.Write(data)
	k.print("\n")
}

func (k *Kernel) cmdErase(argv []string) {
	k.fat.Load()
	if err := k.fat.Erase(argv[1]); err != nil {
		k.print("File not found.\n")
		return
	}
	k.printf("Erased: %s\n", argv[1])
}

func (k *Kernel) cmdFiles(argv []string) {
	k.fat.Load()
	entries := k.fat.Entries()
	k.printf("%d files found\n", len(entries))
	for i, e := range entries {
		k.printf("File %d: name=%s begin=%d length=%d\n", i, e.Name, e.Begin, e.Length)
	}
}

func (k *Kernel) cmdFreespace(argv []string) {
	k.fat.Load()
	k.printf("Available space: %d\n", k.fat.FreeSpace())
}

func (k *Kernel) cmdRun(argv []string) {
	k.runProgram(argv[1])
}

func (k *Kernel) cmdList(argv []string) {
	k.print("List of active processes:\n")
	for _, p := range k.procs.Procs() {
		if p.State == StateTerminated {
			continue
		}
		k.printf("PID: %d - State: %c - Name: %s\n", p.PID, p.State.Letter(), p.Name)
	}
}

// pidArg parses a numeric pid argument, reporting on the console.
func (k *Kernel) pidArg(argv []string) (int, bool) {
	pid, err := strconv.Atoi(argv[1])
	if err != nil || pid < 0 {
		k.print("Error. Invalid process ID.\n")
		return 0, false
	}
	return pid, true
}

func (k *Kernel) reportStateError(pid int, err error) {
	switch {
	case errors.Is(err, ErrAlreadyEnded):
		k.print("Process already ended.\n")
	case errors.Is(err, ErrPidUnknown):
		k.printf("Process %d does not exist.\n", pid)
	case errors.Is(err, ErrAlreadyInState):
		k.print("Process already is in that state.\n")
	case err != nil:
		k.printf("Error: %v\n", err)
	}
}

func (k *Kernel) cmdSuspend(argv []string) {
	pid, ok := k.pidArg(argv)
	if !ok {
		return
	}
	if err := k.Suspend(pid); err != nil {
		k.reportStateError(pid, err)
		return
	}
	k.printf("Process %d has been suspended.\n", pid)
}

func (k *Kernel) cmdResume(argv []string) {
	pid, ok := k.pidArg(argv)
	if !ok {
		return
	}
	if err := k.Resume(pid); err != nil {
		k.reportStateError(pid, err)
		return
	}
	k.printf("Process %d has been resumed.\n", pid)
}

func (k *Kernel) cmdKill(argv []string) {
	pid, ok := k.pidArg(argv)
	if !ok {
		return
	}
	if err := k.Kill(pid); err != nil {
		k.reportStateError(pid, err)
		return
	}
	k.printf("Process %d has been killed.\n", pid)
}

func (k *Kernel) cmdSnapshot(argv []string) {
	if err := k.WriteSnapshot(argv[1]); err != nil {
		k.printf("Error: %v\n", err)
		return
	}
	k.printf("Snapshot written to %s.\n", argv[1])
}
