package pascal

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/paleotronic/pascalfs/disk"
	"github.com/paleotronic/pascalfs/fsys"
	"github.com/paleotronic/pascalfs/loggy"
	"github.com/paleotronic/pascalfs/usage"
)

var now = time.Now

var (
	_ fsys.FileSystem = (*Pascal)(nil)
	_ fsys.FileEntry  = (*FileEntry)(nil)
	_ fsys.FileStream = (*FileStream)(nil)
)

// Options tune how tolerant the driver is of odd volumes.
type Options struct {
	// RejectOutOfOrder fails the scan when directory entries are not in
	// ascending block order instead of noting it.
	RejectOutOfOrder bool
}

// Pascal is the driver for one volume. It is not safe for concurrent use.
type Pascal struct {
	src  disk.BlockSource
	gate *disk.GatedSource
	log  *loggy.Logger
	opts Options

	level   disk.AccessLevel
	notes   fsys.Notes
	dubious bool

	header  VolumeHeader
	volDir  *FileEntry
	catalog []*FileEntry
	usage   *usage.Map

	openFiles fsys.OpenFiles
	dirty     bool
}

func New(src disk.BlockSource, log *loggy.Logger) *Pascal {
	return NewWithOptions(src, log, Options{})
}

func NewWithOptions(src disk.BlockSource, log *loggy.Logger, opts Options) *Pascal {
	if log == nil {
		log = loggy.Get(0)
	}
	return &Pascal{
		src:   src,
		gate:  disk.NewGatedSource(src),
		log:   log,
		opts:  opts,
		level: disk.AccessOpen,
	}
}

// SetOptions changes the scan options. They take effect at the next
// PrepareFileAccess.
func (p *Pascal) SetOptions(opts Options) {
	p.opts = opts
}

func (p *Pascal) Characteristics() fsys.Characteristics {
	return fsys.Characteristics{
		Name:          "Apple Pascal",
		BlockSize:     PASCAL_BLOCK_SIZE,
		CanWrite:      true,
		MaxFileName:   PASCAL_MAX_FILE_NAME,
		MaxVolumeName: PASCAL_MAX_VOLUME_NAME,
	}
}

func (p *Pascal) RawAccess() *disk.GatedSource { return p.gate }
func (p *Pascal) Level() disk.AccessLevel       { return p.level }
func (p *Pascal) Notes() *fsys.Notes            { return &p.notes }
func (p *Pascal) IsDubious() bool               { return p.dubious }

// Header returns a copy of the volume header read by the last scan.
func (p *Pascal) Header() VolumeHeader { return p.header }

// Usage is the block ownership map of the current prepared session, nil in
// raw mode.
func (p *Pascal) Usage() *usage.Map { return p.usage }

func (p *Pascal) setLevel(level disk.AccessLevel) {
	p.level = level
	p.gate.SetLevel(level)
}

func (p *Pascal) isPrepared() bool {
	return p.level == disk.AccessReadOnly || p.level == disk.AccessReadWrite
}

func (p *Pascal) checkPrepared() error {
	if !p.isPrepared() {
		return fmt.Errorf("%w (%s)", fsys.ErrInvalidState, p.level)
	}
	return nil
}

func (p *Pascal) checkWritable() error {
	if err := p.checkPrepared(); err != nil {
		return err
	}
	if p.level != disk.AccessReadWrite {
		return fsys.ErrReadOnly
	}
	return nil
}

// PrepareFileAccess scans the volume and switches to file mode. With doScan
// false the block usage analysis is skipped. If the scan fails the driver
// stays in raw mode.
func (p *Pascal) PrepareFileAccess(doScan bool) error {
	switch p.level {
	case disk.AccessClosed:
		return fsys.ErrInvalidState
	case disk.AccessReadOnly, disk.AccessReadWrite:
		return nil
	}

	if err := p.scan(doScan); err != nil {
		p.discard()
		p.setLevel(disk.AccessOpen)
		return fmt.Errorf("prepare file access: %w", err)
	}

	if p.src.IsReadOnly() {
		p.setLevel(disk.AccessReadOnly)
	} else {
		p.setLevel(disk.AccessReadWrite)
	}
	p.log.Debugf("volume /%s prepared (%s), %d files", p.header.GetName(), p.level, len(p.catalog))
	return nil
}

// PrepareRawAccess writes pending changes and drops the catalog. It refuses
// while files are open.
func (p *Pascal) PrepareRawAccess() error {
	switch p.level {
	case disk.AccessClosed:
		return fsys.ErrInvalidState
	case disk.AccessOpen:
		return nil
	}

	if n := p.openFiles.Count(); n > 0 {
		return fmt.Errorf("%d open: %w", n, fsys.ErrFilesOpen)
	}
	if err := p.Flush(); err != nil {
		return err
	}

	p.discard()
	p.setLevel(disk.AccessOpen)
	return nil
}

// Close releases the volume. Open streams are closed and pending changes
// written; failures are logged and do not stop the teardown. Calling Close
// again does nothing.
func (p *Pascal) Close() error {
	if p.level == disk.AccessClosed {
		return nil
	}

	if p.openFiles.Count() > 0 {
		p.log.Warnf("closing volume with %d open file(s)", p.openFiles.Count())
		p.CloseAll()
	}
	if p.isPrepared() {
		if err := p.Flush(); err != nil {
			p.log.Errorf("final catalog flush failed: %v", err)
		}
	}

	p.discard()
	p.setLevel(disk.AccessClosed)
	return nil
}

// CloseAll closes every open stream, logging failures.
func (p *Pascal) CloseAll() {
	for _, s := range p.openFiles.Streams() {
		if err := s.Close(); err != nil {
			p.log.Errorf("closing %v: %v", s, err)
		}
		// a failed close may leave the record behind
		p.openFiles.Remove(s)
	}
}

func (p *Pascal) OpenFileCount() int {
	return p.openFiles.Count()
}

// discard invalidates every entry and forgets the catalog and usage map.
func (p *Pascal) discard() {
	if p.volDir != nil {
		p.volDir.invalidate()
	}
	for _, e := range p.catalog {
		e.invalidate()
	}
	p.volDir = nil
	p.catalog = nil
	p.usage = nil
	p.dirty = false
}

// Flush writes the volume directory if it has changed.
func (p *Pascal) Flush() error {
	if !p.dirty {
		return nil
	}
	if err := p.checkWritable(); err != nil {
		return err
	}
	if err := p.writeCatalog(); err != nil {
		return fmt.Errorf("writing volume directory: %w", err)
	}
	p.dirty = false
	return nil
}

func (p *Pascal) writeCatalog() error {

	dirBlocks := int(p.header.NextBlock) - PASCAL_VOLUME_BLOCK
	buf := make([]byte, dirBlocks*PASCAL_BLOCK_SIZE)

	hdr := p.header
	hdr.FileCount = uint16(len(p.catalog))
	if n := hdr.Store(buf, 0); n != VOL_HEADER_LENGTH {
		panic("pascal: volume header length mismatch")
	}

	offset := PASCAL_DIRECTORY_ENTRY_LENGTH
	for _, e := range p.catalog {
		offset += e.raw.Store(buf, offset)
	}

	for i := 0; i < dirBlocks; i++ {
		err := p.src.WriteBlock(uint(PASCAL_VOLUME_BLOCK+i), buf, i*PASCAL_BLOCK_SIZE)
		if err != nil {
			return err
		}
	}
	p.header.FileCount = hdr.FileCount
	return nil
}

func (p *Pascal) VolumeDir() (fsys.FileEntry, error) {
	if err := p.checkPrepared(); err != nil {
		return nil, err
	}
	return p.volDir, nil
}

// Catalog returns the file entries in directory order.
func (p *Pascal) Catalog() ([]*FileEntry, error) {
	if err := p.checkPrepared(); err != nil {
		return nil, err
	}
	out := make([]*FileEntry, len(p.catalog))
	copy(out, p.catalog)
	return out, nil
}

func (p *Pascal) findByName(name string) *FileEntry {
	for _, e := range p.catalog {
		if strings.EqualFold(e.raw.GetName(), name) {
			return e
		}
	}
	return nil
}

func (p *Pascal) FindFile(dir fsys.FileEntry, name string) (fsys.FileEntry, error) {
	if err := p.checkPrepared(); err != nil {
		return nil, err
	}
	if _, err := p.dirOf(dir); err != nil {
		return nil, err
	}
	if e := p.findByName(name); e != nil {
		return e, nil
	}
	return nil, fmt.Errorf("%q: %w", name, fsys.ErrNotFound)
}

// entryOf checks that entry is a live entry of this volume.
func (p *Pascal) entryOf(entry fsys.FileEntry) (*FileEntry, error) {
	e, ok := entry.(*FileEntry)
	if !ok || e == nil || e.fs != p {
		return nil, fsys.ErrInvalidEntry
	}
	if err := e.check(); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *Pascal) dirOf(entry fsys.FileEntry) (*FileEntry, error) {
	e, err := p.entryOf(entry)
	if err != nil {
		return nil, err
	}
	if !e.isVolDir {
		return nil, fmt.Errorf("%s is not a directory: %w", e, fsys.ErrNotSupported)
	}
	return e, nil
}

// sortedCatalog is the catalog ordered by start block.
func (p *Pascal) sortedCatalog() []*FileEntry {
	sorted := make([]*FileEntry, len(p.catalog))
	copy(sorted, p.catalog)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].raw.StartBlock < sorted[j].raw.StartBlock
	})
	return sorted
}

type gap struct {
	start, count int
}

// gaps walks the files in block order and returns the unused runs between
// them and after the last one.
func (p *Pascal) gaps() []gap {
	var out []gap
	prevEnd := int(p.header.NextBlock)
	for _, e := range p.sortedCatalog() {
		start, end := e.blockRange()
		if start > prevEnd {
			out = append(out, gap{prevEnd, start - prevEnd})
		}
		if end > prevEnd {
			prevEnd = end
		}
	}
	if total := int(p.header.BlockCount); total > prevEnd {
		out = append(out, gap{prevEnd, total - prevEnd})
	}
	return out
}

func (p *Pascal) freeBlocks() int {
	free := 0
	for _, g := range p.gaps() {
		free += g.count
	}
	return free
}

// FreeSpace is the number of unused bytes on the volume.
func (p *Pascal) FreeSpace() (int64, error) {
	if err := p.checkPrepared(); err != nil {
		return 0, err
	}
	return int64(p.freeBlocks()) * PASCAL_BLOCK_SIZE, nil
}

// growLimit is the first block e may not grow into: the start of the next
// file, or the end of the volume.
func (p *Pascal) growLimit(e *FileEntry) int {
	limit := int(p.header.BlockCount)
	start := int(e.raw.StartBlock)
	for _, o := range p.catalog {
		if o == e {
			continue
		}
		if s := int(o.raw.StartBlock); s >= start && s < limit {
			limit = s
		}
	}
	return limit
}
