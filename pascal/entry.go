package pascal

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/paleotronic/pascalfs/fsys"
)

// dirEntry is the on-disk form of a file entry.
type dirEntry struct {
	StartBlock uint16
	NextBlock  uint16
	TypeWord   uint16
	NameLength byte
	Name       [PASCAL_MAX_FILE_NAME]byte
	ByteCount  uint16
	ModDate    uint16
}

func (de *dirEntry) Load(buf []byte, offset int) int {
	b := buf[offset : offset+PASCAL_DIRECTORY_ENTRY_LENGTH]
	de.StartBlock = binary.LittleEndian.Uint16(b[0x00:])
	de.NextBlock = binary.LittleEndian.Uint16(b[0x02:])
	de.TypeWord = binary.LittleEndian.Uint16(b[0x04:])
	de.NameLength = b[0x06]
	copy(de.Name[:], b[0x07:0x16])
	de.ByteCount = binary.LittleEndian.Uint16(b[0x16:])
	de.ModDate = binary.LittleEndian.Uint16(b[0x18:])
	return PASCAL_DIRECTORY_ENTRY_LENGTH
}

func (de *dirEntry) Store(buf []byte, offset int) int {
	b := buf[offset : offset+PASCAL_DIRECTORY_ENTRY_LENGTH]
	binary.LittleEndian.PutUint16(b[0x00:], de.StartBlock)
	binary.LittleEndian.PutUint16(b[0x02:], de.NextBlock)
	binary.LittleEndian.PutUint16(b[0x04:], de.TypeWord)
	b[0x06] = de.NameLength
	copy(b[0x07:0x16], de.Name[:])
	binary.LittleEndian.PutUint16(b[0x16:], de.ByteCount)
	binary.LittleEndian.PutUint16(b[0x18:], de.ModDate)
	return PASCAL_DIRECTORY_ENTRY_LENGTH
}

func (de *dirEntry) GetName() string {
	l := int(de.NameLength)
	if l > PASCAL_MAX_FILE_NAME {
		l = PASCAL_MAX_FILE_NAME
	}
	return string(de.Name[:l])
}

func (de *dirEntry) SetName(name string) {
	name = strings.ToUpper(name)
	de.Name = [PASCAL_MAX_FILE_NAME]byte{}
	de.NameLength = byte(copy(de.Name[:], name))
}

func (de *dirEntry) GetType() PascalFileType {
	return PascalFileType(de.TypeWord & typeMask)
}

// GetFileSize is the data length in bytes.
func (de *dirEntry) GetFileSize() int {
	if de.NextBlock <= de.StartBlock {
		return 0
	}
	return int(de.ByteCount) + (int(de.NextBlock)-int(de.StartBlock)-1)*PASCAL_BLOCK_SIZE
}

// FileEntry is a catalog record, or the volume directory itself. All
// methods fail with fsys.ErrInvalidEntry once the owning driver has left
// prepared mode.
type FileEntry struct {
	fs       *Pascal
	isVolDir bool
	valid    bool
	damaged  bool

	raw dirEntry
}

func (e *FileEntry) check() error {
	if e == nil || !e.valid {
		return fsys.ErrInvalidEntry
	}
	return nil
}

func (e *FileEntry) invalidate() {
	e.valid = false
}

func (e *FileEntry) Valid() bool {
	return e != nil && e.valid
}

// IsDirectory and String skip the validity check so stale entries can
// still be logged.
func (e *FileEntry) IsDirectory() bool {
	return e.isVolDir
}

func (e *FileEntry) String() string {
	if e.isVolDir {
		return "/" + e.fs.header.GetName()
	}
	return e.raw.GetName()
}

// blockRange is [start, end) clamped to the volume.
func (e *FileEntry) blockRange() (int, int) {
	total := int(e.fs.header.BlockCount)
	start := int(e.raw.StartBlock)
	end := int(e.raw.NextBlock)
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	if end < start {
		end = start
	}
	return start, end
}

func (e *FileEntry) Attrs() (fsys.Attributes, error) {
	if err := e.check(); err != nil {
		return fsys.Attributes{}, err
	}

	if e.isVolDir {
		hdr := &e.fs.header
		return fsys.Attributes{
			Name:        hdr.GetName(),
			TypeName:    "Volume Directory",
			Ext:         "DIR",
			Modified:    DateToTime(hdr.LastDateSet),
			IsDirectory: true,
			DataLength:  int64(int(hdr.NextBlock)-PASCAL_VOLUME_BLOCK) * PASCAL_BLOCK_SIZE,
			StorageSize: int64(hdr.BlockCount) * PASCAL_BLOCK_SIZE,
		}, nil
	}

	start, end := e.blockRange()
	ft := e.raw.GetType()
	return fsys.Attributes{
		Name:        e.raw.GetName(),
		FileType:    int(ft),
		TypeName:    ft.String(),
		Ext:         ft.Ext(),
		Modified:    DateToTime(e.raw.ModDate),
		Damaged:     e.damaged,
		DataLength:  int64(e.raw.GetFileSize()),
		StorageSize: int64(end-start) * PASCAL_BLOCK_SIZE,
	}, nil
}

func (e *FileEntry) Extent() (fsys.Extent, error) {
	if err := e.check(); err != nil {
		return fsys.Extent{}, err
	}
	if e.isVolDir {
		return fsys.Extent{Start: PASCAL_VOLUME_BLOCK, End: int(e.fs.header.NextBlock)}, nil
	}
	return fsys.Extent{Start: int(e.raw.StartBlock), End: int(e.raw.NextBlock)}, nil
}

// Children lists the volume directory in catalog order.
func (e *FileEntry) Children() ([]fsys.FileEntry, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	if !e.isVolDir {
		return nil, nil
	}
	out := make([]fsys.FileEntry, 0, len(e.fs.catalog))
	for _, c := range e.fs.catalog {
		out = append(out, c)
	}
	return out, nil
}

func (e *FileEntry) checkChange() error {
	if err := e.check(); err != nil {
		return err
	}
	return e.fs.checkWritable()
}

func (e *FileEntry) SetFileName(name string) error {
	if err := e.checkChange(); err != nil {
		return err
	}
	name = strings.ToUpper(name)

	if e.isVolDir {
		if !IsValidVolumeName(name) {
			return fmt.Errorf("%q: %w", name, fsys.ErrBadName)
		}
		e.fs.header.SetName(name)
		e.fs.dirty = true
		return nil
	}

	if !IsValidFileName(name) {
		return fmt.Errorf("%q: %w", name, fsys.ErrBadName)
	}
	if other := e.fs.findByName(name); other != nil && other != e {
		return fmt.Errorf("%q: %w", name, fsys.ErrExists)
	}
	e.raw.SetName(name)
	e.fs.dirty = true
	return nil
}

func (e *FileEntry) SetFileType(fileType int) error {
	if err := e.checkChange(); err != nil {
		return err
	}
	if e.isVolDir {
		return fsys.ErrNotSupported
	}
	if !PascalFileType(fileType).Valid() {
		return fmt.Errorf("invalid Pascal file type %d", fileType)
	}
	e.raw.TypeWord = (e.raw.TypeWord &^ typeMask) | uint16(fileType)
	e.fs.dirty = true
	return nil
}

func (e *FileEntry) SetModWhen(when time.Time) error {
	if err := e.checkChange(); err != nil {
		return err
	}
	if e.isVolDir {
		e.fs.header.LastDateSet = TimeToDate(when)
	} else {
		e.raw.ModDate = TimeToDate(when)
	}
	e.fs.dirty = true
	return nil
}

// SaveChanges writes the catalog if anything changed.
func (e *FileEntry) SaveChanges() error {
	if err := e.check(); err != nil {
		return err
	}
	return e.fs.Flush()
}
