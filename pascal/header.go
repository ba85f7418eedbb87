package pascal

import (
	"encoding/binary"
	"strings"
	"time"
)

const PASCAL_BLOCK_SIZE = 512
const PASCAL_VOLUME_BLOCK = 2
const PASCAL_MAX_VOLUME_NAME = 7
const PASCAL_MAX_FILE_NAME = 15
const PASCAL_DIRECTORY_ENTRY_LENGTH = 26
const PASCAL_STD_DIR_BLOCKS = 4
const PASCAL_OVERSIZE_DIR = 32
const PASCAL_FIRST_DATA_BLOCK = PASCAL_VOLUME_BLOCK + PASCAL_STD_DIR_BLOCKS
const PASCAL_BOOT_BLOCKS = 2
const PASCAL_MIN_VOL_BLOCKS = PASCAL_FIRST_DATA_BLOCK
const PASCAL_MAX_VOL_BLOCKS = 65535

// Characters reserved by the filer's path syntax.
const PASCAL_FORBIDDEN = "$=?,[#:"

const VOL_HEADER_LENGTH = PASCAL_DIRECTORY_ENTRY_LENGTH

// VolumeHeader is the first record of the volume directory.
type VolumeHeader struct {
	FirstBlock  uint16
	NextBlock   uint16
	FileType    uint16
	NameLength  byte
	Name        [PASCAL_MAX_VOLUME_NAME]byte
	BlockCount  uint16
	FileCount   uint16
	LastAccess  uint16
	LastDateSet uint16
	Reserved    uint32
}

// Load decodes the header from buf at offset and returns the number of
// bytes consumed. Nothing is validated here.
func (h *VolumeHeader) Load(buf []byte, offset int) int {
	b := buf[offset : offset+VOL_HEADER_LENGTH]
	h.FirstBlock = binary.LittleEndian.Uint16(b[0x00:])
	h.NextBlock = binary.LittleEndian.Uint16(b[0x02:])
	h.FileType = binary.LittleEndian.Uint16(b[0x04:])
	h.NameLength = b[0x06]
	copy(h.Name[:], b[0x07:0x0e])
	h.BlockCount = binary.LittleEndian.Uint16(b[0x0e:])
	h.FileCount = binary.LittleEndian.Uint16(b[0x10:])
	h.LastAccess = binary.LittleEndian.Uint16(b[0x12:])
	h.LastDateSet = binary.LittleEndian.Uint16(b[0x14:])
	h.Reserved = binary.LittleEndian.Uint32(b[0x16:])
	return 0x1a
}

// Store encodes the header into buf at offset and returns the number of
// bytes written.
func (h *VolumeHeader) Store(buf []byte, offset int) int {
	b := buf[offset : offset+VOL_HEADER_LENGTH]
	binary.LittleEndian.PutUint16(b[0x00:], h.FirstBlock)
	binary.LittleEndian.PutUint16(b[0x02:], h.NextBlock)
	binary.LittleEndian.PutUint16(b[0x04:], h.FileType)
	b[0x06] = h.NameLength
	copy(b[0x07:0x0e], h.Name[:])
	binary.LittleEndian.PutUint16(b[0x0e:], h.BlockCount)
	binary.LittleEndian.PutUint16(b[0x10:], h.FileCount)
	binary.LittleEndian.PutUint16(b[0x12:], h.LastAccess)
	binary.LittleEndian.PutUint16(b[0x14:], h.LastDateSet)
	binary.LittleEndian.PutUint32(b[0x16:], h.Reserved)
	return 0x1a
}

func (h *VolumeHeader) GetName() string {
	l := int(h.NameLength)
	if l > PASCAL_MAX_VOLUME_NAME {
		l = PASCAL_MAX_VOLUME_NAME
	}
	return string(h.Name[:l])
}

// SetName stores name upper-cased; callers validate it first.
func (h *VolumeHeader) SetName(name string) {
	name = strings.ToUpper(name)
	h.Name = [PASCAL_MAX_VOLUME_NAME]byte{}
	n := copy(h.Name[:], name)
	h.NameLength = byte(n)
}

// MaxFiles is the number of entries the directory region can hold, not
// counting the header.
func (h *VolumeHeader) MaxFiles() int {
	return maxFilesFor(int(h.NextBlock))
}

func maxFilesFor(nextBlock int) int {
	dirBlocks := nextBlock - PASCAL_VOLUME_BLOCK
	if dirBlocks <= 0 {
		return 0
	}
	return dirBlocks*PASCAL_BLOCK_SIZE/PASCAL_DIRECTORY_ENTRY_LENGTH - 1
}

// ValidateHeader decides whether hdr looks like a Pascal volume on a source
// with blocksAvailable blocks.
func ValidateHeader(hdr *VolumeHeader, blocksAvailable int) bool {

	if hdr.FirstBlock != 0 || hdr.FileType != 0 {
		return false
	}

	next := int(hdr.NextBlock)
	total := int(hdr.BlockCount)
	if next < PASCAL_FIRST_DATA_BLOCK || next > PASCAL_VOLUME_BLOCK+PASCAL_OVERSIZE_DIR {
		return false
	}
	if total < PASCAL_MIN_VOL_BLOCKS || total > blocksAvailable || next > total {
		return false
	}

	if int(hdr.FileCount) > hdr.MaxFiles() {
		return false
	}

	l := int(hdr.NameLength)
	if l < 1 || l > PASCAL_MAX_VOLUME_NAME {
		return false
	}

	return isValidName(hdr.Name[:l], PASCAL_MAX_VOLUME_NAME)
}

func isValidName(name []byte, max int) bool {
	if len(name) < 1 || len(name) > max {
		return false
	}
	for _, ch := range name {
		if ch <= 0x20 || ch >= 0x7f {
			return false
		}
		if strings.IndexByte(PASCAL_FORBIDDEN, ch) >= 0 {
			return false
		}
	}
	return true
}

func IsValidVolumeName(name string) bool {
	return isValidName([]byte(name), PASCAL_MAX_VOLUME_NAME)
}

func IsValidFileName(name string) bool {
	return isValidName([]byte(name), PASCAL_MAX_FILE_NAME)
}

// AdjustFileName turns an arbitrary string into a valid file name.
func AdjustFileName(name string) string {
	out := make([]byte, 0, PASCAL_MAX_FILE_NAME)
	for _, r := range strings.ToUpper(name) {
		if len(out) == PASCAL_MAX_FILE_NAME {
			break
		}
		if r <= 0x20 || r >= 0x7f || strings.ContainsRune(PASCAL_FORBIDDEN, r) {
			r = '.'
		}
		out = append(out, byte(r))
	}
	if len(out) == 0 {
		return "Q"
	}
	return string(out)
}

// DateToTime decodes a Pascal date word: yyyyyyy ddddd mmmm.
func DateToTime(w uint16) time.Time {
	month := int(w & 0x0f)
	day := int((w >> 4) & 0x1f)
	year := int(w >> 9)
	if month < 1 || month > 12 || day < 1 || year >= 100 {
		return time.Time{}
	}
	if year < 40 {
		year += 2000
	} else {
		year += 1900
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
}

func TimeToDate(t time.Time) uint16 {
	if t.IsZero() {
		return 0
	}
	year := t.Year()
	if year < 1940 || year > 2039 {
		return 0
	}
	return uint16(year%100)<<9 | uint16(t.Day())<<4 | uint16(t.Month())
}
