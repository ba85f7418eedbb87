package pascal

import (
	"fmt"
	"strings"

	"github.com/paleotronic/pascalfs/fsys"
)

// CreateFile adds an empty file of type Data. The file gets one block at
// the start of the largest free area so it has room to grow.
func (p *Pascal) CreateFile(dir fsys.FileEntry, name string, mode fsys.CreateMode) (fsys.FileEntry, error) {

	if err := p.checkWritable(); err != nil {
		return nil, err
	}
	if _, err := p.dirOf(dir); err != nil {
		return nil, err
	}
	if mode == fsys.CreateDirectory {
		return nil, fmt.Errorf("subdirectories: %w", fsys.ErrNotSupported)
	}

	name = strings.ToUpper(name)
	if !IsValidFileName(name) {
		return nil, fmt.Errorf("%q: %w", name, fsys.ErrBadName)
	}
	if p.findByName(name) != nil {
		return nil, fmt.Errorf("%q: %w", name, fsys.ErrExists)
	}
	if len(p.catalog) >= p.header.MaxFiles() {
		return nil, fsys.ErrDirFull
	}

	var best gap
	for _, g := range p.gaps() {
		if g.count > best.count {
			best = g
		}
	}
	if best.count == 0 {
		return nil, fsys.ErrDiskFull
	}

	e := &FileEntry{fs: p, valid: true}
	e.raw.StartBlock = uint16(best.start)
	e.raw.NextBlock = uint16(best.start + 1)
	e.raw.TypeWord = uint16(FileType_PAS_DATA)
	e.raw.ModDate = TimeToDate(now())
	e.raw.SetName(name)

	if err := p.usage.Claim(best.start, e); err != nil {
		return nil, err
	}

	pos := len(p.catalog)
	for i, o := range p.catalog {
		if o.raw.StartBlock > e.raw.StartBlock {
			pos = i
			break
		}
	}
	p.catalog = append(p.catalog, nil)
	copy(p.catalog[pos+1:], p.catalog[pos:])
	p.catalog[pos] = e

	p.dirty = true
	if err := p.Flush(); err != nil {
		p.catalog = append(p.catalog[:pos], p.catalog[pos+1:]...)
		p.usage.Release(e)
		e.invalidate()
		return nil, err
	}

	p.log.Debugf("created %s at block %d", name, best.start)
	return e, nil
}

// DeleteFile removes a closed file and gives its blocks back.
func (p *Pascal) DeleteFile(entry fsys.FileEntry) error {

	if err := p.checkWritable(); err != nil {
		return err
	}
	e, err := p.entryOf(entry)
	if err != nil {
		return err
	}
	if e.isVolDir {
		return fmt.Errorf("volume directory: %w", fsys.ErrNotSupported)
	}
	if p.openFiles.IsOpen(e) {
		return fmt.Errorf("%s: %w", e, fsys.ErrFileOpen)
	}

	pos := -1
	for i, o := range p.catalog {
		if o == e {
			pos = i
			break
		}
	}
	if pos < 0 {
		return fsys.ErrInvalidEntry
	}

	// the directory goes first; blocks are only given back once it is written
	p.catalog = append(p.catalog[:pos], p.catalog[pos+1:]...)
	p.dirty = true
	if err := p.Flush(); err != nil {
		p.catalog = append(p.catalog, nil)
		copy(p.catalog[pos+1:], p.catalog[pos:])
		p.catalog[pos] = e
		return err
	}

	p.usage.Release(e)
	e.invalidate()
	p.log.Debugf("deleted %s", e.raw.GetName())
	return nil
}

// MoveFile renames entry. The volume is flat, so destDir must be the volume
// directory.
func (p *Pascal) MoveFile(entry fsys.FileEntry, destDir fsys.FileEntry, newName string) error {

	if err := p.checkWritable(); err != nil {
		return err
	}
	e, err := p.entryOf(entry)
	if err != nil {
		return err
	}
	if _, err := p.dirOf(destDir); err != nil {
		return err
	}
	if e.isVolDir {
		return fmt.Errorf("volume directory: %w", fsys.ErrNotSupported)
	}

	old := e.raw
	if err := e.SetFileName(newName); err != nil {
		return err
	}
	if err := p.Flush(); err != nil {
		e.raw = old
		return err
	}
	return nil
}
