package disk

import (
	"errors"
)

const BLOCK_SIZE = 512
const STD_BYTES_PER_SECTOR = 256
const STD_TRACKS_PER_DISK = 35
const STD_SECTORS_PER_TRACK = 16
const STD_DISK_BYTES = STD_TRACKS_PER_DISK * STD_SECTORS_PER_TRACK * STD_BYTES_PER_SECTOR
const PRODOS_BLOCKS_PER_TRACK = 8
const PRODOS_BLOCKS_PER_DISK = 280
const PRODOS_800KB_BLOCKS = 1600
const PRODOS_800KB_DISK_BYTES = PRODOS_800KB_BLOCKS * BLOCK_SIZE

var (
	ErrInvalidAddress = errors.New("invalid block address")
	ErrReadOnly       = errors.New("block source is read-only")
	ErrAccessDenied   = errors.New("raw access not permitted at current access level")
	ErrShortBuffer    = errors.New("buffer too small for a block")
)

// BlockSource is fixed block-size storage that a filesystem driver sits on.
// Blocks are always BLOCK_SIZE bytes; offset is where in buf the block
// starts.
type BlockSource interface {
	ReadBlock(block uint, buf []byte, offset int) error
	WriteBlock(block uint, buf []byte, offset int) error

	// FormattedLength is the number of usable bytes.
	FormattedLength() int64
	IsReadOnly() bool

	// HasBlocks reports whether the source can be addressed as 512-byte
	// blocks. HasSectors reports 35 track, 16 sector 5.25" geometry and is
	// only a hint for picking boot code.
	HasBlocks() bool
	HasSectors() bool
}

// BlockCount returns the number of whole blocks in src.
func BlockCount(src BlockSource) int {
	return int(src.FormattedLength() / BLOCK_SIZE)
}

func checkBuffer(buf []byte, offset int) error {
	if offset < 0 || len(buf)-offset < BLOCK_SIZE {
		return ErrShortBuffer
	}
	return nil
}
