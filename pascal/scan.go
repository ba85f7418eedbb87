package pascal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paleotronic/pascalfs/disk"
	"github.com/paleotronic/pascalfs/fsys"
	"github.com/paleotronic/pascalfs/usage"
)

var errOutOfOrder = errors.New("catalog entries are not in ascending block order")

func availableBlocks(src disk.BlockSource) int {
	blocks := disk.BlockCount(src)
	if blocks > PASCAL_MAX_VOL_BLOCKS {
		blocks = PASCAL_MAX_VOL_BLOCKS
	}
	return blocks
}

// scan reads the volume directory, builds the catalog and claims every
// file's blocks in a fresh usage map.
func (p *Pascal) scan(doScan bool) error {

	p.notes.Clear()
	p.dubious = false

	buf := make([]byte, PASCAL_BLOCK_SIZE)
	if err := p.src.ReadBlock(PASCAL_VOLUME_BLOCK, buf, 0); err != nil {
		return err
	}

	var hdr VolumeHeader
	if n := hdr.Load(buf, 0); n != VOL_HEADER_LENGTH {
		return fmt.Errorf("volume header decoded %d bytes, want %d", n, VOL_HEADER_LENGTH)
	}
	if !ValidateHeader(&hdr, availableBlocks(p.src)) {
		return fsys.ErrFormatInvalid
	}
	p.header = hdr

	next := int(hdr.NextBlock)
	dir := make([]byte, (next-PASCAL_VOLUME_BLOCK)*PASCAL_BLOCK_SIZE)
	for i := 0; i < next-PASCAL_VOLUME_BLOCK; i++ {
		if err := p.src.ReadBlock(uint(PASCAL_VOLUME_BLOCK+i), dir, i*PASCAL_BLOCK_SIZE); err != nil {
			return err
		}
	}

	p.usage = usage.NewDerived(int(hdr.BlockCount))
	if err := p.usage.MarkSystem(0, next); err != nil {
		return err
	}

	p.volDir = &FileEntry{fs: p, isVolDir: true, valid: true}
	p.catalog = make([]*FileEntry, 0, hdr.FileCount)

	dirPtr := PASCAL_DIRECTORY_ENTRY_LENGTH
	for i := 0; i < int(hdr.FileCount); i++ {
		e := &FileEntry{fs: p, valid: true}
		dirPtr += e.raw.Load(dir, dirPtr)
		p.checkEntry(e)
		p.catalog = append(p.catalog, e)
	}

	if err := p.checkOrder(); err != nil {
		return err
	}

	for _, e := range p.catalog {
		start, end := e.blockRange()
		if err := p.usage.ClaimRange(start, end, e); err != nil {
			return err
		}
	}

	if doScan {
		return p.analyze()
	}
	return nil
}

// checkEntry flags entries whose extent or name cannot be right.
func (p *Pascal) checkEntry(e *FileEntry) {
	de := &e.raw
	name := de.GetName()

	if int(de.NameLength) < 1 || int(de.NameLength) > PASCAL_MAX_FILE_NAME {
		p.notes.AddE("Entry %q has bad name length %d", name, de.NameLength)
		e.damaged = true
	} else if !IsValidFileName(name) {
		p.notes.AddW("Entry %q has an invalid filename", name)
	}

	if int(de.StartBlock) < int(p.header.NextBlock) ||
		de.NextBlock < de.StartBlock ||
		int(de.NextBlock) > int(p.header.BlockCount) {
		p.notes.AddE("File %q has invalid extent (start %d, next %d)", name, de.StartBlock, de.NextBlock)
		e.damaged = true
	}
	if de.ByteCount > PASCAL_BLOCK_SIZE {
		p.notes.AddW("File %q claims %d bytes in its last block", name, de.ByteCount)
		e.damaged = true
	}

	if e.damaged {
		p.dubious = true
	}

	for _, o := range p.catalog {
		if strings.EqualFold(o.raw.GetName(), name) {
			p.notes.AddW("Duplicate filename %q", name)
			break
		}
	}
}

func (p *Pascal) checkOrder() error {
	for i := 1; i < len(p.catalog); i++ {
		if p.catalog[i].raw.StartBlock < p.catalog[i-1].raw.StartBlock {
			if p.opts.RejectOutOfOrder {
				return errOutOfOrder
			}
			p.notes.AddW("Catalog entries are not in ascending block order")
			p.dubious = true
			return nil
		}
	}
	return nil
}

// analyze checks the usage map after the catalog walk. Without a volume
// bitmap the only thing that can go wrong on disk is overlapping files.
func (p *Pascal) analyze() error {
	s := p.usage.Analyze()

	if s.UnusedMarked != 0 || s.UsedNotMarked != 0 {
		return fmt.Errorf("usage map inconsistent: %d unused but marked, %d used but not marked",
			s.UnusedMarked, s.UsedNotMarked)
	}

	if s.Conflicts != 0 {
		p.notes.AddW("Found %d conflicting block(s) claimed by more than one file", s.Conflicts)
		for _, o := range p.usage.ConflictingOwners() {
			if e, ok := o.(*FileEntry); ok {
				p.notes.AddW("File %q overlaps another file", e.raw.GetName())
			} else {
				p.notes.AddW("A file overlaps the boot or directory blocks")
			}
		}
		p.dubious = true
	}

	p.log.Debugf("usage: %d in use, %d conflicts, %d free", s.MarkedUsed, s.Conflicts, p.freeBlocks())
	return nil
}
