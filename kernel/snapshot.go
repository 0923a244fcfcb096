package kernel

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Kernel snapshot (core dump)
// ---------------------------------------------------------------------------

// cborEncMode uses canonical encoding so identical kernel states dump
// to identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("kernel: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Snapshot is a point-in-time dump of every kernel table, taken
// between instructions so it is always consistent.
type Snapshot struct {
	Files     []FileSnapshot    `cbor:"files"`
	Variables []VarSnapshot     `cbor:"variables"`
	Processes []ProcessSnapshot `cbor:"processes"`
	FreeSpace int               `cbor:"free_space"`
}

// FileSnapshot mirrors one FAT entry.
type FileSnapshot struct {
	Name   string `cbor:"name"`
	Begin  int    `cbor:"begin"`
	Length int    `cbor:"length"`
}

// VarSnapshot mirrors one variable-table entry.
type VarSnapshot struct {
	Name   byte `cbor:"name"`
	Owner  int  `cbor:"owner"`
	Tag    byte `cbor:"tag"`
	Length int  `cbor:"length"`
	Addr   int  `cbor:"addr"`
}

// ProcessSnapshot mirrors one process control block.
type ProcessSnapshot struct {
	Name       string `cbor:"name"`
	PID        int    `cbor:"pid"`
	State      string `cbor:"state"`
	PC         int    `cbor:"pc"`
	StackDepth int    `cbor:"stack_depth"`
	Base       int    `cbor:"base"`
}

// Snapshot captures the current kernel state.
func (k *Kernel) Snapshot() *Snapshot {
	s := &Snapshot{FreeSpace: k.fat.FreeSpace()}
	for _, e := range k.fat.Entries() {
		s.Files = append(s.Files, FileSnapshot{Name: e.Name, Begin: e.Begin, Length: e.Length})
	}
	for _, v := range k.arena.Variables() {
		s.Variables = append(s.Variables, VarSnapshot{
			Name: v.Name, Owner: v.Owner, Tag: byte(v.Tag), Length: v.Length, Addr: v.Addr,
		})
	}
	for _, p := range k.procs.Procs() {
		s.Processes = append(s.Processes, ProcessSnapshot{
			Name: p.Name, PID: p.PID, State: p.State.String(),
			PC: p.PC, StackDepth: p.stack.Depth(), Base: p.Base,
		})
	}
	return s
}

// MarshalSnapshot serializes a Snapshot to canonical CBOR bytes.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a Snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("kernel: unmarshal snapshot: %w", err)
	}
	return &s, nil
}

// WriteSnapshot dumps the current state to a host file.
func (k *Kernel) WriteSnapshot(path string) error {
	data, err := MarshalSnapshot(k.Snapshot())
	if err != nil {
		return fmt.Errorf("kernel: marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("kernel: write snapshot: %w", err)
	}
	k.log.Infof("snapshot written to %s (%d bytes)", path, len(data))
	return nil
}
