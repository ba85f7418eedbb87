package disk

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type SectorOrder int

const (
	SectorOrderDOS33 SectorOrder = iota
	SectorOrderProDOS
)

func (so SectorOrder) String() string {
	switch so {
	case SectorOrderDOS33:
		return "DOS"
	case SectorOrderProDOS:
		return "ProDOS"
	}

	return "Linear"
}

func Checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Image is a disk image held in memory. DOS ordered 140K images are
// stored as track/sector; blocks are assembled from two sectors each.
type Image struct {
	Data           []byte
	Layout         SectorOrder
	Filename       string
	WriteProtected bool

	CurrentTrack  int
	CurrentSector int
	SectorPointer int

	changed bool
}

func NewImage(data []byte, order SectorOrder) (*Image, error) {

	if len(data) == 0 || len(data)%STD_BYTES_PER_SECTOR != 0 {
		return nil, fmt.Errorf("incorrect disk bytes: %d", len(data))
	}

	if order == SectorOrderDOS33 && len(data) != STD_DISK_BYTES {
		return nil, errors.New("DOS sector order needs a 140K image")
	}

	return &Image{
		Data:   data,
		Layout: order,
	}, nil

}

// NewBlankImage returns a zero-filled image of the given number of blocks.
func NewBlankImage(blocks int, order SectorOrder) (*Image, error) {
	return NewImage(make([]byte, blocks*BLOCK_SIZE), order)
}

// OrderHint guesses the sector order from a filename extension.
func OrderHint(filename string) SectorOrder {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".do", ".dsk":
		return SectorOrderDOS33
	}
	return SectorOrderProDOS
}

func LoadImage(filename string) (*Image, error) {

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	order := OrderHint(filename)
	if len(data) != STD_DISK_BYTES {
		order = SectorOrderProDOS
	}

	img, err := NewImage(data, order)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	img.Filename = filename

	info, err := os.Stat(filename)
	if err == nil && info.Mode().Perm()&0200 == 0 {
		img.WriteProtected = true
	}

	return img, nil

}

func (d *Image) Save(filename string) error {
	if filename == "" {
		filename = d.Filename
	}
	if err := os.WriteFile(filename, d.Data, 0644); err != nil {
		return err
	}
	d.changed = false
	return nil
}

func (d *Image) IsChanged() bool {
	return d.changed
}

func (d *Image) ChecksumDisk() string {
	return Checksum(d.Data)
}

func (d *Image) FormattedLength() int64 {
	return int64(len(d.Data))
}

func (d *Image) IsReadOnly() bool {
	return d.WriteProtected
}

func (d *Image) HasBlocks() bool {
	return len(d.Data)%BLOCK_SIZE == 0
}

func (d *Image) HasSectors() bool {
	return len(d.Data) == STD_DISK_BYTES
}

func (d *Image) SetTrack(t int) error {

	if t >= 0 && t < len(d.Data)/(STD_SECTORS_PER_TRACK*STD_BYTES_PER_SECTOR) {
		d.CurrentTrack = t
		d.SetSectorPointer()
		return nil
	}

	return ErrInvalidAddress

}

// SetSector changes the sector we are looking at
func (d *Image) SetSector(s int) error {
	if s >= 0 && s < STD_SECTORS_PER_TRACK {
		d.CurrentSector = s
		d.SetSectorPointer()
		return nil
	}

	return ErrInvalidAddress
}

func (d *Image) SetSectorPointer() {
	d.SectorPointer = (d.CurrentTrack * STD_SECTORS_PER_TRACK * STD_BYTES_PER_SECTOR) + (STD_BYTES_PER_SECTOR * d.CurrentSector)
}

// Seek is a convienience function to go straight to a particular track & sector
func (d *Image) Seek(t, s int) error {

	if err := d.SetTrack(t); err != nil {
		return err
	}

	return d.SetSector(s)
}

// Read returns the currently pointed to sector.
func (d *Image) Read() []byte {
	return d.Data[d.SectorPointer : d.SectorPointer+STD_BYTES_PER_SECTOR]
}

func (d *Image) Write(data []byte) {
	copy(d.Data[d.SectorPointer:d.SectorPointer+STD_BYTES_PER_SECTOR], data)
	d.changed = true
}

func (d *Image) ChecksumSector(t, s int) string {
	if err := d.Seek(t, s); err != nil {
		return ""
	}
	return Checksum(d.Read())
}

// GetBlockSectors maps a block to its track and the two DOS sectors
// holding the first and second half.
func (d *Image) GetBlockSectors(block int) (int, int, int) {

	track := block / PRODOS_BLOCKS_PER_TRACK

	switch block % PRODOS_BLOCKS_PER_TRACK {
	case 0:
		return track, 0x0, 0xe
	case 1:
		return track, 0xd, 0xc
	case 2:
		return track, 0xb, 0xa
	case 3:
		return track, 0x9, 0x8
	case 4:
		return track, 0x7, 0x6
	case 5:
		return track, 0x5, 0x4
	case 6:
		return track, 0x3, 0x2
	}

	return track, 0x1, 0xf

}

func (d *Image) checkBlock(block uint, buf []byte, offset int) error {
	if err := checkBuffer(buf, offset); err != nil {
		return err
	}
	if int64(block) >= d.FormattedLength()/BLOCK_SIZE {
		return fmt.Errorf("block %d: %w", block, ErrInvalidAddress)
	}
	return nil
}

func (d *Image) ReadBlock(block uint, buf []byte, offset int) error {

	if err := d.checkBlock(block, buf, offset); err != nil {
		return err
	}

	if d.Layout != SectorOrderDOS33 {
		start := int(block) * BLOCK_SIZE
		copy(buf[offset:offset+BLOCK_SIZE], d.Data[start:start+BLOCK_SIZE])
		return nil
	}

	t, s1, s2 := d.GetBlockSectors(int(block))

	if err := d.Seek(t, s1); err != nil {
		return err
	}
	copy(buf[offset:], d.Read())

	if err := d.Seek(t, s2); err != nil {
		return err
	}
	copy(buf[offset+STD_BYTES_PER_SECTOR:], d.Read())

	return nil
}

func (d *Image) WriteBlock(block uint, buf []byte, offset int) error {

	if d.WriteProtected {
		return ErrReadOnly
	}
	if err := d.checkBlock(block, buf, offset); err != nil {
		return err
	}

	if d.Layout != SectorOrderDOS33 {
		start := int(block) * BLOCK_SIZE
		copy(d.Data[start:start+BLOCK_SIZE], buf[offset:offset+BLOCK_SIZE])
		d.changed = true
		return nil
	}

	t, s1, s2 := d.GetBlockSectors(int(block))

	if err := d.Seek(t, s1); err != nil {
		return err
	}
	d.Write(buf[offset : offset+STD_BYTES_PER_SECTOR])

	if err := d.Seek(t, s2); err != nil {
		return err
	}
	d.Write(buf[offset+STD_BYTES_PER_SECTOR : offset+BLOCK_SIZE])

	return nil
}
