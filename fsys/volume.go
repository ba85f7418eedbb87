package fsys

import (
	"fmt"
	"runtime"

	"github.com/paleotronic/pascalfs/disk"
	"github.com/paleotronic/pascalfs/loggy"
)

// Volume binds a source to the filesystem found on it. It is the owner that
// callers close; closing twice is a caller bug and is reported.
type Volume struct {
	Source disk.BlockSource
	FS     FileSystem
	Kind   string

	log    *loggy.Logger
	closed bool
}

// OpenOptions control how Open prepares a volume.
type OpenOptions struct {
	// DoScan runs the block usage analysis.
	DoScan bool

	// Configure, if set, is called on the new filesystem while it is still
	// in raw mode.
	Configure func(fs FileSystem)
}

// Open identifies the filesystem on src and prepares it for file access.
func Open(src disk.BlockSource, log *loggy.Logger) (*Volume, error) {
	return OpenWith(src, log, OpenOptions{DoScan: true})
}

func OpenWith(src disk.BlockSource, log *loggy.Logger, opts OpenOptions) (*Volume, error) {

	drv, ok := Identify(src, log)
	if !ok {
		return nil, ErrFormatInvalid
	}

	fs := drv.New(src, log)
	if opts.Configure != nil {
		opts.Configure(fs)
	}
	if err := fs.PrepareFileAccess(opts.DoScan); err != nil {
		fs.Close()
		return nil, fmt.Errorf("%s: %w", drv.Name, err)
	}

	return newVolume(src, fs, drv.Name, log), nil
}

// OpenRaw identifies the filesystem but leaves it in raw mode.
func OpenRaw(src disk.BlockSource, log *loggy.Logger) (*Volume, error) {
	drv, ok := Identify(src, log)
	if !ok {
		return nil, ErrFormatInvalid
	}
	return newVolume(src, drv.New(src, log), drv.Name, log), nil
}

// OpenImage is Open for in-memory images. 140K images whose extension
// gave the wrong sector order are retried in the other order.
func OpenImage(img *disk.Image, log *loggy.Logger) (*Volume, error) {
	return OpenImageWith(img, log, OpenOptions{DoScan: true})
}

func OpenImageWith(img *disk.Image, log *loggy.Logger, opts OpenOptions) (*Volume, error) {

	vol, err := OpenWith(img, log, opts)
	if err == nil || !img.HasSectors() {
		return vol, err
	}

	orig := img.Layout
	if orig == disk.SectorOrderDOS33 {
		img.Layout = disk.SectorOrderProDOS
	} else {
		img.Layout = disk.SectorOrderDOS33
	}

	vol, err2 := OpenWith(img, log, opts)
	if err2 != nil {
		img.Layout = orig
		return nil, err
	}
	log.Logf("%s: sector order is %s", img.Filename, img.Layout)
	return vol, nil
}

func newVolume(src disk.BlockSource, fs FileSystem, kind string, log *loggy.Logger) *Volume {
	v := &Volume{Source: src, FS: fs, Kind: kind, log: log}
	runtime.SetFinalizer(v, func(v *Volume) {
		if !v.closed {
			v.log.Errorf("%s volume was never closed; pending changes are lost", v.Kind)
		}
	})
	return v
}

func (v *Volume) Close() error {
	if v.closed {
		return ErrAlreadyClosed
	}
	v.closed = true
	runtime.SetFinalizer(v, nil)
	return v.FS.Close()
}
