// Package report captures what a scan found on a volume: its catalog,
// per-file digests, block usage and the advisory notes, in a form that can
// be written out and compared later.
package report

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/paleotronic/pascalfs/disk"
	"github.com/paleotronic/pascalfs/fsys"
	"github.com/paleotronic/pascalfs/loggy"
	"github.com/paleotronic/pascalfs/usage"
)

type Volume struct {
	Filename   string `cbor:"filename" yaml:"filename"`
	Format     string `cbor:"format" yaml:"format"`
	VolumeName string `cbor:"volume_name" yaml:"volume_name"`

	// SHA256 covers the whole image, Active only the blocks in use.
	SHA256 string `cbor:"sha256" yaml:"sha256"`
	Active string `cbor:"active,omitempty" yaml:"active,omitempty"`

	Blocks     int  `cbor:"blocks" yaml:"blocks"`
	FreeBlocks int  `cbor:"free_blocks" yaml:"free_blocks"`
	Dubious    bool `cbor:"dubious" yaml:"dubious"`

	Usage  *usage.Summary `cbor:"usage,omitempty" yaml:"usage,omitempty"`
	Bitmap []bool         `cbor:"bitmap,omitempty" yaml:"bitmap,omitempty,flow"`
	Notes  []string       `cbor:"notes,omitempty" yaml:"notes,omitempty"`
	Files  []*File        `cbor:"files" yaml:"files"`
}

type File struct {
	Filename string    `cbor:"filename" yaml:"filename"`
	Type     string    `cbor:"type" yaml:"type"`
	Ext      string    `cbor:"ext" yaml:"ext"`
	TypeCode int       `cbor:"type_code" yaml:"type_code"`
	Size     int64     `cbor:"size" yaml:"size"`
	Start    int       `cbor:"start" yaml:"start"`
	Blocks   int       `cbor:"blocks" yaml:"blocks"`
	Modified time.Time `cbor:"modified,omitempty" yaml:"modified,omitempty"`
	Damaged  bool      `cbor:"damaged,omitempty" yaml:"damaged,omitempty"`
	Digest   string    `cbor:"blake3,omitempty" yaml:"blake3,omitempty"`
}

// usageMapper is implemented by drivers that keep a block usage map.
type usageMapper interface {
	Usage() *usage.Map
}

// Build reads the catalog of a prepared filesystem. src is the image the
// filesystem sits on; it is only read.
func Build(filename string, src disk.BlockSource, fs fsys.FileSystem) (*Volume, error) {

	root, err := fs.VolumeDir()
	if err != nil {
		return nil, err
	}
	rootAttrs, err := root.Attrs()
	if err != nil {
		return nil, err
	}
	free, err := fs.FreeSpace()
	if err != nil {
		return nil, err
	}

	bs := fs.Characteristics().BlockSize
	r := &Volume{
		Filename:   filename,
		Format:     fs.Characteristics().Name,
		VolumeName: rootAttrs.Name,
		Blocks:     disk.BlockCount(src),
		FreeBlocks: int(free / int64(bs)),
		Dubious:    fs.IsDubious(),
		Files:      make([]*File, 0),
	}

	for _, n := range fs.Notes().List() {
		r.Notes = append(r.Notes, n.String())
	}

	if img, ok := src.(*disk.Image); ok {
		r.SHA256 = img.ChecksumDisk()
	}

	if um, ok := fs.(usageMapper); ok && um.Usage() != nil {
		m := um.Usage()
		s := m.Analyze()
		r.Usage = &s
		r.Bitmap = make([]bool, m.Len())
		for b := range r.Bitmap {
			r.Bitmap[b] = m.IsClaimed(b)
		}
		if r.Active, err = activeDigest(src, r.Bitmap); err != nil {
			return nil, err
		}
	}

	children, err := root.Children()
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		f, err := fileOf(fs, c)
		if err != nil {
			return nil, err
		}
		r.Files = append(r.Files, f)
	}

	return r, nil
}

func fileOf(fs fsys.FileSystem, e fsys.FileEntry) (*File, error) {
	attrs, err := e.Attrs()
	if err != nil {
		return nil, err
	}
	ext, err := e.Extent()
	if err != nil {
		return nil, err
	}

	f := &File{
		Filename: attrs.Name,
		Type:     attrs.TypeName,
		Ext:      attrs.Ext,
		TypeCode: attrs.FileType,
		Size:     attrs.DataLength,
		Start:    ext.Start,
		Blocks:   ext.BlockCount(),
		Modified: attrs.Modified,
		Damaged:  attrs.Damaged,
	}

	s, err := fs.OpenFile(e, fsys.ReadOnly, fsys.PartData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", attrs.Name, err)
	}
	defer s.Close()

	h := blake3.New()
	if _, err := io.Copy(h, s); err != nil {
		return nil, fmt.Errorf("%s: %w", attrs.Name, err)
	}
	f.Digest = hex.EncodeToString(h.Sum(nil))
	return f, nil
}

// activeDigest hashes the blocks marked in bitmap, in block order.
func activeDigest(src disk.BlockSource, bitmap []bool) (string, error) {
	h := blake3.New()
	buf := make([]byte, disk.BLOCK_SIZE)
	for b, used := range bitmap {
		if !used {
			continue
		}
		if err := src.ReadBlock(uint(b), buf, 0); err != nil {
			return "", err
		}
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FileDigest is the blake3 digest of data as it appears in reports.
func FileDigest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (r *Volume) GetFileMap() map[string]*File {
	out := make(map[string]*File)
	for _, f := range r.Files {
		out[f.Filename] = f
	}
	return out
}

// GetDirectory renders one line per file from format, replacing
// {filename}, {type}, {ext}, {size}, {size:b}, {size:blocks}, {start},
// {blake3} and {date}.
func (r *Volume) GetDirectory(format string) string {
	out := ""

	for _, file := range r.Files {

		tmp := format
		// size
		tmp = strings.Replace(tmp, "{size:blocks}", fmt.Sprintf("%4d Blocks", file.Blocks), -1)
		tmp = strings.Replace(tmp, "{size:b}", fmt.Sprintf("%6d Bytes", file.Size), -1)
		tmp = strings.Replace(tmp, "{size}", fmt.Sprintf("%6d", file.Size), -1)
		tmp = strings.Replace(tmp, "{start}", fmt.Sprintf("%5d", file.Start), -1)
		tmp = strings.Replace(tmp, "{filename}", fmt.Sprintf("%-15s", file.Filename), -1)
		tmp = strings.Replace(tmp, "{type}", fmt.Sprintf("%-16s", file.Type), -1)
		tmp = strings.Replace(tmp, "{ext}", file.Ext, -1)
		tmp = strings.Replace(tmp, "{blake3}", file.Digest, -1)

		date := "         "
		if !file.Modified.IsZero() {
			date = file.Modified.Format("02-Jan-06")
		}
		tmp = strings.Replace(tmp, "{date}", date, -1)

		out += tmp + "\n"
	}

	return out
}

// LogBitmap writes the block map, 16 blocks to a line.
func (r *Volume) LogBitmap(l *loggy.Logger) {
	for row := 0; row*16 < len(r.Bitmap); row++ {
		line := fmt.Sprintf("Block %.4x: ", row*16)
		for b := row * 16; b < row*16+16 && b < len(r.Bitmap); b++ {
			if r.Bitmap[b] {
				line += fmt.Sprintf("%.2x ", b%16)
			} else {
				line += ":: "
			}
		}
		l.Logf("%s", line)
	}
}

func (r *Volume) WriteToFile(filename string, enc Encoding) error {
	_ = os.MkdirAll(filepath.Dir(filename), 0755)

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := r.Encode(f, enc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (r *Volume) ReadFromFile(filename string, enc Encoding) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.Decode(f, enc)
}
