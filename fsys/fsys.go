// Package fsys defines what every filesystem driver provides: mode switching
// between raw block access and prepared file access, a catalog of file
// entries, and create/delete/move/format. Drivers register themselves so
// that images can be identified and opened without knowing their format.
package fsys

import (
	"io"
	"time"

	"github.com/paleotronic/pascalfs/disk"
)

type FileAccessMode int

const (
	ReadOnly FileAccessMode = iota
	ReadWrite
)

type FilePart int

const (
	PartData FilePart = iota
	PartResource
	// PartRaw is the data fork including unused bytes in the last block.
	PartRaw
)

func (p FilePart) String() string {
	switch p {
	case PartData:
		return "data"
	case PartResource:
		return "resource"
	case PartRaw:
		return "raw"
	}
	return "unknown"
}

type CreateMode int

const (
	CreateFile CreateMode = iota
	CreateDirectory
)

type Attributes struct {
	Name        string
	FileType    int
	TypeName    string
	Ext         string
	AuxType     int
	Created     time.Time
	Modified    time.Time
	Locked      bool
	IsDirectory bool
	Damaged     bool

	// DataLength is the file length in bytes, StorageSize the space the
	// file's blocks take on disk.
	DataLength  int64
	StorageSize int64
}

// Extent describes where a file lives. Contiguous layouts fill Start and
// End (exclusive); chained layouts list Blocks.
type Extent struct {
	Start  int
	End    int
	Blocks []int
}

func (e Extent) BlockCount() int {
	if e.Blocks != nil {
		return len(e.Blocks)
	}
	if e.End < e.Start {
		return 0
	}
	return e.End - e.Start
}

// FileEntry is one catalog record. Entries are owned by their filesystem
// and become unusable when it leaves prepared mode: every method that
// returns an error then fails with ErrInvalidEntry. IsDirectory, and
// String where implemented, describe what the entry was and keep
// answering so stale entries can still be logged.
type FileEntry interface {
	Valid() bool
	IsDirectory() bool
	Attrs() (Attributes, error)
	Extent() (Extent, error)
	Children() ([]FileEntry, error)

	SetFileName(name string) error
	SetFileType(fileType int) error
	SetModWhen(when time.Time) error
	SaveChanges() error
}

// FileStream is an open fork of a file.
type FileStream interface {
	io.ReadWriteSeeker
	io.Closer
	Flush() error
}

type Characteristics struct {
	Name             string
	BlockSize        int
	CanWrite         bool
	IsHierarchical   bool
	HasResourceForks bool
	MaxFileName      int
	MaxVolumeName    int
}

type FileSystem interface {
	Characteristics() Characteristics

	// RawAccess is the gated view of the underlying source.
	RawAccess() *disk.GatedSource
	Level() disk.AccessLevel
	Notes() *Notes
	IsDubious() bool

	PrepareFileAccess(doScan bool) error
	PrepareRawAccess() error
	Flush() error
	Close() error

	FreeSpace() (int64, error)
	VolumeDir() (FileEntry, error)
	FindFile(dir FileEntry, name string) (FileEntry, error)

	Format(volName string, volNum int, makeBootable bool) error
	CreateFile(dir FileEntry, name string, mode CreateMode) (FileEntry, error)
	DeleteFile(entry FileEntry) error
	MoveFile(entry FileEntry, destDir FileEntry, newName string) error

	OpenFile(entry FileEntry, mode FileAccessMode, part FilePart) (FileStream, error)
	OpenFileCount() int
	CloseAll()
}
