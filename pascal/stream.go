package pascal

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/paleotronic/pascalfs/disk"
	"github.com/paleotronic/pascalfs/fsys"
)

// OpenFile opens the data fork, or the raw fork (whole blocks), of entry.
// A fork may have one writer and any number of readers.
func (p *Pascal) OpenFile(entry fsys.FileEntry, mode fsys.FileAccessMode, part fsys.FilePart) (fsys.FileStream, error) {

	if err := p.checkPrepared(); err != nil {
		return nil, err
	}
	e, err := p.entryOf(entry)
	if err != nil {
		return nil, err
	}
	if e.isVolDir {
		return nil, fmt.Errorf("volume directory: %w", fsys.ErrNotSupported)
	}
	if part == fsys.PartResource {
		return nil, fmt.Errorf("resource fork: %w", fsys.ErrNotSupported)
	}
	if mode == fsys.ReadWrite {
		if p.level != disk.AccessReadWrite {
			return nil, fsys.ErrReadOnly
		}
		if e.damaged {
			return nil, fmt.Errorf("%s: %w", e, fsys.ErrDamaged)
		}
	}
	if err := p.openFiles.CheckOpen(e, mode, part); err != nil {
		return nil, fmt.Errorf("%s: %w", e, err)
	}

	start, end := e.blockRange()
	s := &FileStream{
		fs:     p,
		entry:  e,
		mode:   mode,
		part:   part,
		start:  start,
		blocks: end - start,
	}
	if part == fsys.PartRaw {
		s.length = int64(s.blocks) * PASCAL_BLOCK_SIZE
	} else {
		s.length = int64(e.raw.GetFileSize())
		if max := int64(s.blocks) * PASCAL_BLOCK_SIZE; s.length > max {
			s.length = max
		}
	}

	p.openFiles.Add(&fsys.OpenFile{Entry: e, Stream: s, Mode: mode, Part: part})
	return s, nil
}

// FileStream reads and writes a file's contiguous run of blocks. Writes
// can extend the file up to the next file on the volume.
type FileStream struct {
	fs    *Pascal
	entry *FileEntry
	mode  fsys.FileAccessMode
	part  fsys.FilePart

	start  int
	blocks int
	length int64
	pos    int64

	modified bool
	closed   bool
	buf      [PASCAL_BLOCK_SIZE]byte
}

func (s *FileStream) String() string {
	return fmt.Sprintf("%s (%s)", s.entry, s.part)
}

func (s *FileStream) check() error {
	if s.closed {
		return os.ErrClosed
	}
	return s.entry.check()
}

func (s *FileStream) Read(b []byte) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	if s.pos >= s.length {
		return 0, io.EOF
	}

	n := 0
	for n < len(b) && s.pos < s.length {
		bi := int(s.pos / PASCAL_BLOCK_SIZE)
		bo := int(s.pos % PASCAL_BLOCK_SIZE)
		if err := s.fs.src.ReadBlock(uint(s.start+bi), s.buf[:], 0); err != nil {
			return n, err
		}
		c := PASCAL_BLOCK_SIZE - bo
		if rem := s.length - s.pos; int64(c) > rem {
			c = int(rem)
		}
		c = copy(b[n:], s.buf[bo:bo+c])
		n += c
		s.pos += int64(c)
	}
	return n, nil
}

func (s *FileStream) Write(b []byte) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	if s.mode != fsys.ReadWrite {
		return 0, fsys.ErrReadOnly
	}
	if len(b) == 0 {
		return 0, nil
	}

	end := s.pos + int64(len(b))
	need := int((end + PASCAL_BLOCK_SIZE - 1) / PASCAL_BLOCK_SIZE)
	if need > s.blocks {
		if s.part == fsys.PartRaw {
			return 0, fmt.Errorf("raw fork cannot grow: %w", fsys.ErrNotSupported)
		}
		if s.start+need > s.fs.growLimit(s.entry) {
			return 0, fsys.ErrDiskFull
		}
		if err := s.grow(need); err != nil {
			return 0, err
		}
	}

	// a write past the end leaves a hole that must read back as zeros
	if s.pos > s.length {
		if err := s.zeroRange(s.length, s.pos); err != nil {
			return 0, err
		}
	}

	n := 0
	for n < len(b) {
		bi := int(s.pos / PASCAL_BLOCK_SIZE)
		bo := int(s.pos % PASCAL_BLOCK_SIZE)
		blk := uint(s.start + bi)

		if err := s.fs.src.ReadBlock(blk, s.buf[:], 0); err != nil {
			return n, err
		}
		if blockStart := int64(bi) * PASCAL_BLOCK_SIZE; s.length < blockStart+PASCAL_BLOCK_SIZE {
			from := s.length - blockStart
			if from < 0 {
				from = 0
			}
			clear(s.buf[from:])
		}

		c := copy(s.buf[bo:], b[n:])
		if err := s.fs.src.WriteBlock(blk, s.buf[:], 0); err != nil {
			return n, err
		}
		n += c
		s.pos += int64(c)
		if s.pos > s.length {
			s.length = s.pos
		}
		s.modified = true
	}
	return n, nil
}

// zeroRange clears bytes [from, to) of the file.
func (s *FileStream) zeroRange(from, to int64) error {
	for from < to {
		bi := int(from / PASCAL_BLOCK_SIZE)
		bo := int(from % PASCAL_BLOCK_SIZE)
		blk := uint(s.start + bi)
		c := PASCAL_BLOCK_SIZE - bo
		if rem := to - from; int64(c) > rem {
			c = int(rem)
		}
		if err := s.fs.src.ReadBlock(blk, s.buf[:], 0); err != nil {
			return err
		}
		clear(s.buf[bo : bo+c])
		if err := s.fs.src.WriteBlock(blk, s.buf[:], 0); err != nil {
			return err
		}
		from += int64(c)
	}
	return nil
}

// grow zero-fills and claims blocks up to count. The entry's extent moves
// with every claimed block so free space and placement of new files see it
// before the stream is flushed.
func (s *FileStream) grow(count int) error {
	zero := make([]byte, PASCAL_BLOCK_SIZE)
	for b := s.blocks; b < count; b++ {
		blk := s.start + b
		if err := s.fs.src.WriteBlock(uint(blk), zero, 0); err != nil {
			return err
		}
		if err := s.fs.usage.Claim(blk, s.entry); err != nil {
			return err
		}
		s.blocks = b + 1
		s.entry.raw.NextBlock = uint16(s.start + s.blocks)
		s.fs.dirty = true
		s.modified = true
	}
	return nil
}

func (s *FileStream) Seek(offset int64, whence int) (int64, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = s.pos + offset
	case io.SeekEnd:
		pos = s.length + offset
	default:
		return s.pos, errors.New("invalid whence")
	}
	if pos < 0 {
		return s.pos, errors.New("negative position")
	}
	s.pos = pos
	return pos, nil
}

// Flush records the new length in the directory entry.
func (s *FileStream) Flush() error {
	if err := s.check(); err != nil {
		return err
	}
	if !s.modified || s.mode != fsys.ReadWrite {
		return nil
	}

	de := &s.entry.raw
	de.NextBlock = uint16(s.start + s.blocks)
	if s.part == fsys.PartData {
		last := s.length - int64(s.blocks-1)*PASCAL_BLOCK_SIZE
		if s.length == 0 || last < 0 {
			last = 0
		}
		de.ByteCount = uint16(last)
	}
	de.ModDate = TimeToDate(now())

	s.fs.dirty = true
	if err := s.fs.Flush(); err != nil {
		return err
	}
	s.modified = false
	return nil
}

func (s *FileStream) Close() error {
	if s.closed {
		return os.ErrClosed
	}
	var err error
	if s.entry.Valid() {
		err = s.Flush()
	}
	s.closed = true
	s.fs.openFiles.Remove(s)
	return err
}
