package store

import (
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("femto.store")

// File is a Store backed by an image file on the host. The whole image
// is cached in memory; writes mark the cache dirty and Sync rewrites
// the image. This matches how the kernel uses the driver: the file
// table flushes once per mutating command, not once per byte.
type File struct {
	f     *os.File
	buf   []byte
	dirty bool
}

// OpenFile opens (or creates, zero-filled) an image of the given
// capacity. An existing image shorter than capacity is extended with
// zeroes; a longer one keeps its full length as the capacity.
func OpenFile(path string, capacity int) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open store image %s: %w", path, err)
	}
	buf, err := io.ReadAll(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read store image %s: %w", path, err)
	}
	if len(buf) < capacity {
		buf = append(buf, make([]byte, capacity-len(buf))...)
	}
	log.Debugf("opened store image %s (%d bytes)", path, len(buf))
	return &File{f: f, buf: buf}, nil
}

func (s *File) ReadByte(off int) byte {
	if off < 0 || off >= len(s.buf) {
		return 0
	}
	return s.buf[off]
}

func (s *File) WriteByte(off int, b byte) {
	if off < 0 || off >= len(s.buf) {
		return
	}
	if s.buf[off] != b {
		s.buf[off] = b
		s.dirty = true
	}
}

func (s *File) Len() int { return len(s.buf) }

// Sync rewrites the image if any byte changed since the last flush.
func (s *File) Sync() error {
	if !s.dirty {
		return nil
	}
	if _, err := s.f.WriteAt(s.buf, 0); err != nil {
		return fmt.Errorf("write store image: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync store image: %w", err)
	}
	s.dirty = false
	return nil
}

func (s *File) Close() error {
	if err := s.Sync(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
