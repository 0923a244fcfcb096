package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMemReadWrite(t *testing.T) {
	m := NewMem(16)
	m.WriteByte(3, 0xAB)
	if got := m.ReadByte(3); got != 0xAB {
		t.Fatalf("got 0x%02X", got)
	}
	if m.Len() != 16 {
		t.Fatalf("len %d", m.Len())
	}
}

func TestMemOutOfRange(t *testing.T) {
	m := NewMem(4)
	m.WriteByte(-1, 0xFF)
	m.WriteByte(4, 0xFF)
	if m.ReadByte(-1) != 0 || m.ReadByte(4) != 0 {
		t.Fatal("out-of-range read not zero")
	}
	for i := 0; i < 4; i++ {
		if m.ReadByte(i) != 0 {
			t.Fatal("out-of-range write landed in bounds")
		}
	}
}

func TestFilePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "femto.img")

	f, err := OpenFile(path, 64)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteByte(0, 0x01)
	f.WriteByte(63, 0xFE)
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	g, err := OpenFile(path, 64)
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()
	if g.ReadByte(0) != 0x01 || g.ReadByte(63) != 0xFE {
		t.Fatal("image did not persist")
	}
}

func TestFileExtendsShortImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.img")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := OpenFile(path, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if f.Len() != 16 {
		t.Fatalf("len %d, want 16", f.Len())
	}
	if f.ReadByte(2) != 3 || f.ReadByte(10) != 0 {
		t.Fatal("extension corrupted contents")
	}
}

func TestFileSyncIdempotentWhenClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clean.img")
	f, err := OpenFile(path, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		t.Fatal(err)
	}
	if err := f.Sync(); err != nil {
		t.Fatal(err)
	}
}
