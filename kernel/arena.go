package kernel

import (
	"math"
	"sort"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// RAM arena and variable table
// ---------------------------------------------------------------------------

// Variable is one metadata entry binding a single-byte name, scoped to
// its owning process, to a typed region of the arena.
type Variable struct {
	Name   byte
	Owner  int
	Tag    Tag
	Length int
	Addr   int
}

// Arena is the contiguous RAM region hosting every variable payload,
// plus the metadata table. Allocation is first-fit with the same probe
// shape as the file table.
type Arena struct {
	ram []byte
	// vars is the live prefix, kept sorted by Addr.
	vars []Variable
	max  int
	log  commonlog.Logger
}

// NewArena returns an arena of size bytes with room for max variables.
func NewArena(size, max int) *Arena {
	return &Arena{
		ram: make([]byte, size),
		max: max,
		log: commonlog.GetLogger("femto.arena"),
	}
}

// Capacity returns the arena size in bytes.
func (a *Arena) Capacity() int { return len(a.ram) }

// Count returns the number of live variables.
func (a *Arena) Count() int { return len(a.vars) }

// Variables returns a copy of the table, sorted by Addr.
func (a *Arena) Variables() []Variable {
	out := make([]Variable, len(a.vars))
	copy(out, a.vars)
	return out
}

func (a *Arena) sortByAddr() {
	sort.Slice(a.vars, func(i, j int) bool {
		return a.vars[i].Addr < a.vars[j].Addr
	})
}

func (a *Arena) find(name byte, owner int) int {
	for i, v := range a.vars {
		if v.Name == name && v.Owner == owner {
			return i
		}
	}
	return -1
}

// place probes the gap below the lowest region, each inter-region gap,
// then the trailing region.
func (a *Arena) place(size int) (int, error) {
	if len(a.vars) == 0 {
		if size <= len(a.ram) {
			return 0, nil
		}
		return 0, ErrNoSpace
	}
	if a.vars[0].Addr >= size {
		return 0, nil
	}
	for i := 0; i < len(a.vars)-1; i++ {
		end := a.vars[i].Addr + a.vars[i].Length
		if a.vars[i+1].Addr-end >= size {
			return end, nil
		}
	}
	last := a.vars[len(a.vars)-1]
	end := last.Addr + last.Length
	if len(a.ram)-end >= size {
		return end, nil
	}
	return 0, ErrNoSpace
}

// Set binds v to (name, owner), replacing any earlier binding of the
// same pair. The earlier binding is removed before the new region is
// placed, so its freed region is a candidate for the new value; first
// fit still takes an earlier gap that is large enough.
func (a *Arena) Set(name byte, owner int, v Value) error {
	if i := a.find(name, owner); i >= 0 {
		a.vars = append(a.vars[:i], a.vars[i+1:]...)
	}
	if len(a.vars) >= a.max {
		return ErrTableFull
	}
	size := v.PayloadWidth()
	addr, err := a.place(size)
	if err != nil {
		return err
	}
	a.vars = append(a.vars, Variable{Name: name, Owner: owner, Tag: v.Tag(), Length: size, Addr: addr})
	a.sortByAddr()
	a.write(addr, v)
	a.log.Debugf("set %q pid=%d tag=%s addr=%d len=%d", string([]byte{name}), owner, v.Tag(), addr, size)
	return nil
}

// Get returns the value bound to (name, owner).
func (a *Arena) Get(name byte, owner int) (Value, error) {
	i := a.find(name, owner)
	if i < 0 {
		return Value{}, ErrNotFound
	}
	return a.read(a.vars[i]), nil
}

// DropOwner removes every variable owned by pid. Called on process
// teardown.
func (a *Arena) DropOwner(pid int) {
	kept := a.vars[:0]
	for _, v := range a.vars {
		if v.Owner != pid {
			kept = append(kept, v)
		}
	}
	a.vars = kept
}

// write stores the payload bytes: INT big-endian, FLOAT native
// little-endian, STRING with its terminating zero.
func (a *Arena) write(addr int, v Value) {
	switch v.Tag() {
	case TagChar:
		a.ram[addr] = v.Char()
	case TagInt:
		u := uint16(v.Int())
		a.ram[addr] = byte(u >> 8)
		a.ram[addr+1] = byte(u)
	case TagString:
		copy(a.ram[addr:], v.Bytes())
		a.ram[addr+len(v.Bytes())] = 0x00
	case TagFloat:
		bits := math.Float32bits(v.Float())
		a.ram[addr] = byte(bits)
		a.ram[addr+1] = byte(bits >> 8)
		a.ram[addr+2] = byte(bits >> 16)
		a.ram[addr+3] = byte(bits >> 24)
	}
}

func (a *Arena) read(v Variable) Value {
	switch v.Tag {
	case TagChar:
		return CharValue(a.ram[v.Addr])
	case TagInt:
		return IntValue(int16(uint16(a.ram[v.Addr])<<8 | uint16(a.ram[v.Addr+1])))
	case TagString:
		s := make([]byte, v.Length-1)
		copy(s, a.ram[v.Addr:v.Addr+v.Length-1])
		return StringValue(s)
	case TagFloat:
		bits := uint32(a.ram[v.Addr]) |
			uint32(a.ram[v.Addr+1])<<8 |
			uint32(a.ram[v.Addr+2])<<16 |
			uint32(a.ram[v.Addr+3])<<24
		return FloatValue(math.Float32frombits(bits))
	}
	return Value{}
}
