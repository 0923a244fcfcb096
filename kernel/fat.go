package kernel

import (
	"fmt"
	"sort"

	"github.com/tliron/commonlog"

	"github.com/chazu/femto/store"
)

// ---------------------------------------------------------------------------
// File allocation table
// ---------------------------------------------------------------------------

// MaxFileName is the longest file name, excluding the terminating zero.
const MaxFileName = 11

const (
	fatNameBytes  = MaxFileName + 1
	fatRecordSize = fatNameBytes + 2 + 2 // name, begin, length
	fatCountSize  = 2
)

// FileEntry is one directory entry: a named byte blob in the
// persistent store.
type FileEntry struct {
	Name   string
	Begin  int
	Length int
}

// FAT is the flat file-allocation table living in the first bytes of
// the persistent store: a little-endian entry count followed by a
// fixed-count array of records. The in-memory copy is authoritative
// during a command and is rewritten to the store on every mutation.
type FAT struct {
	st  store.Store
	max int
	// entries is the live prefix, kept sorted by Begin.
	entries []FileEntry
	log     commonlog.Logger
}

// NewFAT returns a table over st with room for max entries. Call Load
// before use.
func NewFAT(st store.Store, max int) *FAT {
	return &FAT{
		st:  st,
		max: max,
		log: commonlog.GetLogger("femto.fat"),
	}
}

// ReservedPrefix returns the first data byte: everything below it holds
// the serialised table header.
func (f *FAT) ReservedPrefix() int {
	return fatCountSize + f.max*fatRecordSize
}

// Capacity returns the store capacity in bytes.
func (f *FAT) Capacity() int { return f.st.Len() }

// Load re-reads the header from the persistent store, replacing the
// in-memory copy. Mutating shell commands call this first so cached
// assumptions never outlive another command's writes.
func (f *FAT) Load() {
	count := int(f.readWord(0))
	if count > f.max {
		// Fresh or corrupt medium: treat as empty.
		count = 0
	}
	f.entries = f.entries[:0]
	for i := 0; i < count; i++ {
		off := fatCountSize + i*fatRecordSize
		name := make([]byte, 0, MaxFileName)
		for j := 0; j < fatNameBytes; j++ {
			b := f.st.ReadByte(off + j)
			if b == 0 {
				break
			}
			name = append(name, b)
		}
		begin := int(f.readWord(off + fatNameBytes))
		length := int(f.readWord(off + fatNameBytes + 2))
		if begin < f.ReservedPrefix() || begin+length > f.st.Len() {
			f.log.Errorf("dropping corrupt entry %q (begin=%d length=%d)", name, begin, length)
			continue
		}
		f.entries = append(f.entries, FileEntry{Name: string(name), Begin: begin, Length: length})
	}
	f.sortByBegin()
}

// flush rewrites the header. Payload bytes are written separately by
// Store.
func (f *FAT) flush() error {
	f.writeWord(0, uint16(len(f.entries)))
	for i, e := range f.entries {
		off := fatCountSize + i*fatRecordSize
		for j := 0; j < fatNameBytes; j++ {
			var b byte
			if j < len(e.Name) {
				b = e.Name[j]
			}
			f.st.WriteByte(off+j, b)
		}
		f.writeWord(off+fatNameBytes, uint16(e.Begin))
		f.writeWord(off+fatNameBytes+2, uint16(e.Length))
	}
	return f.st.Sync()
}

func (f *FAT) readWord(off int) uint16 {
	return uint16(f.st.ReadByte(off)) | uint16(f.st.ReadByte(off+1))<<8
}

func (f *FAT) writeWord(off int, w uint16) {
	f.st.WriteByte(off, byte(w))
	f.st.WriteByte(off+1, byte(w>>8))
}

func (f *FAT) sortByBegin() {
	sort.Slice(f.entries, func(i, j int) bool {
		return f.entries[i].Begin < f.entries[j].Begin
	})
}

// Count returns the number of live entries.
func (f *FAT) Count() int { return len(f.entries) }

// Entries returns a copy of the table, sorted by Begin.
func (f *FAT) Entries() []FileEntry {
	out := make([]FileEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

// Lookup returns the entry named name.
func (f *FAT) Lookup(name string) (FileEntry, bool) {
	for _, e := range f.entries {
		if e.Name == name {
			return e, true
		}
	}
	return FileEntry{}, false
}

// place probes three candidate gaps in order and returns the first
// that fits size: below the lowest entry, between adjacent entries,
// and after the highest entry. Existing files are never relocated.
func (f *FAT) place(size int) (int, error) {
	rp := f.ReservedPrefix()
	if len(f.entries) == 0 {
		if rp+size <= f.st.Len() {
			return rp, nil
		}
		return 0, ErrNoSpace
	}
	if f.entries[0].Begin-rp >= size {
		return rp, nil
	}
	for i := 0; i < len(f.entries)-1; i++ {
		end := f.entries[i].Begin + f.entries[i].Length
		if f.entries[i+1].Begin-end >= size {
			return end, nil
		}
	}
	last := f.entries[len(f.entries)-1]
	end := last.Begin + last.Length
	if f.st.Len()-end >= size {
		return end, nil
	}
	return 0, ErrNoSpace
}

// Store persists data under name. The table is untouched on failure.
func (f *FAT) Store(name string, data []byte) error {
	if len(name) == 0 || len(name) > MaxFileName {
		return fmt.Errorf("%w: file name %q", ErrBadProgram, name)
	}
	if len(f.entries) >= f.max {
		return ErrTableFull
	}
	if _, ok := f.Lookup(name); ok {
		return ErrDuplicate
	}
	begin, err := f.place(len(data))
	if err != nil {
		return err
	}
	f.entries = append(f.entries, FileEntry{Name: name, Begin: begin, Length: len(data)})
	f.sortByBegin()
	for i, b := range data {
		f.st.WriteByte(begin+i, b)
	}
	if err := f.flush(); err != nil {
		return err
	}
	f.log.Debugf("stored %q at %d (%d bytes)", name, begin, len(data))
	return nil
}

// Retrieve returns the payload bytes of name.
func (f *FAT) Retrieve(name string) ([]byte, error) {
	e, ok := f.Lookup(name)
	if !ok {
		return nil, ErrNotFound
	}
	data := make([]byte, e.Length)
	for i := range data {
		data[i] = f.st.ReadByte(e.Begin + i)
	}
	return data, nil
}

// Erase removes the entry for name. The payload bytes are not zeroed;
// they become part of the free region and may be overwritten by a
// later placement.
func (f *FAT) Erase(name string) error {
	for i, e := range f.entries {
		if e.Name == name {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return f.flush()
		}
	}
	return ErrNotFound
}

// FreeSpace returns the unallocated byte count outside the reserved
// prefix.
func (f *FAT) FreeSpace() int {
	used := 0
	for _, e := range f.entries {
		used += e.Length
	}
	return f.st.Len() - f.ReservedPrefix() - used
}
