package pascal

import (
	"fmt"
	"sync"

	"github.com/paleotronic/pascalfs/disk"
	"github.com/paleotronic/pascalfs/fsys"
)

// BootKind picks the boot code matching the media geometry.
type BootKind int

const (
	Boot525 BootKind = iota
	Boot35
)

func (k BootKind) String() string {
	if k == Boot525 {
		return "5.25\""
	}
	return "3.5\""
}

const BOOT_IMAGE_LENGTH = PASCAL_BOOT_BLOCKS * PASCAL_BLOCK_SIZE

var (
	bootMu     sync.RWMutex
	bootImages = map[BootKind][]byte{}
)

// RegisterBootImage installs the boot blocks written by Format when a
// bootable volume is requested. The image is copied verbatim into blocks
// 0 and 1 and must be exactly two blocks long.
func RegisterBootImage(kind BootKind, image []byte) error {
	if len(image) != BOOT_IMAGE_LENGTH {
		return fmt.Errorf("boot image is %d bytes, want %d", len(image), BOOT_IMAGE_LENGTH)
	}
	b := make([]byte, BOOT_IMAGE_LENGTH)
	copy(b, image)
	bootMu.Lock()
	bootImages[kind] = b
	bootMu.Unlock()
	return nil
}

func bootImage(kind BootKind) []byte {
	bootMu.RLock()
	defer bootMu.RUnlock()
	return bootImages[kind]
}

func bootKindFor(src disk.BlockSource) BootKind {
	if src.HasSectors() {
		return Boot525
	}
	return Boot35
}

// Format writes an empty volume. It is only allowed in raw mode and leaves
// the driver there. Pascal volumes have no volume number, so volNum is
// ignored. A failure part way through leaves the volume unusable.
func (p *Pascal) Format(volName string, volNum int, makeBootable bool) error {

	if p.level != disk.AccessOpen {
		return fmt.Errorf("format: %w (%s)", fsys.ErrInvalidState, p.level)
	}
	if p.src.IsReadOnly() {
		return fsys.ErrReadOnly
	}
	if !IsValidVolumeName(volName) {
		return fmt.Errorf("volume name %q: %w", volName, fsys.ErrBadName)
	}

	blocks := availableBlocks(p.src)
	if blocks < PASCAL_MIN_VOL_BLOCKS {
		return fmt.Errorf("volume too small: %d blocks", blocks)
	}

	boot := make([]byte, BOOT_IMAGE_LENGTH)
	if makeBootable {
		kind := bootKindFor(p.src)
		img := bootImage(kind)
		if img == nil {
			return fmt.Errorf("no %s boot image: %w", kind, fsys.ErrNotSupported)
		}
		copy(boot, img)
	}

	for i := 0; i < PASCAL_BOOT_BLOCKS; i++ {
		if err := p.src.WriteBlock(uint(i), boot, i*PASCAL_BLOCK_SIZE); err != nil {
			return fmt.Errorf("writing boot blocks: %w", err)
		}
	}

	hdr := VolumeHeader{
		NextBlock:   PASCAL_FIRST_DATA_BLOCK,
		BlockCount:  uint16(blocks),
		LastDateSet: TimeToDate(now()),
	}
	hdr.SetName(volName)

	dir := make([]byte, PASCAL_STD_DIR_BLOCKS*PASCAL_BLOCK_SIZE)
	if n := hdr.Store(dir, 0); n != VOL_HEADER_LENGTH {
		panic("pascal: volume header length mismatch")
	}
	for i := 0; i < PASCAL_STD_DIR_BLOCKS; i++ {
		if err := p.src.WriteBlock(uint(PASCAL_VOLUME_BLOCK+i), dir, i*PASCAL_BLOCK_SIZE); err != nil {
			return fmt.Errorf("writing volume directory: %w", err)
		}
	}

	p.log.Logf("formatted /%s: %d blocks, bootable=%v", hdr.GetName(), blocks, makeBootable)
	return nil
}
