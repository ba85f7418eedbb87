package pascal

import (
	"github.com/paleotronic/pascalfs/disk"
	"github.com/paleotronic/pascalfs/fsys"
	"github.com/paleotronic/pascalfs/loggy"
)

func init() {
	fsys.Register(fsys.Driver{
		Name: "Pascal",
		Test: TestImage,
		New: func(src disk.BlockSource, log *loggy.Logger) fsys.FileSystem {
			return New(src, log)
		},
	})
}

// TestImage reports whether src holds a Pascal volume. It only reads, and
// any failure counts as No.
func TestImage(src disk.BlockSource, log *loggy.Logger) (res fsys.TestResult) {

	defer func() {
		if r := recover(); r != nil {
			if log != nil {
				log.Errorf("pascal: test image: %v", r)
			}
			res = fsys.No
		}
	}()

	if !src.HasBlocks() || src.FormattedLength()%PASCAL_BLOCK_SIZE != 0 {
		return fsys.No
	}

	// some formatters wrote 65536-block images
	blocks := disk.BlockCount(src)
	if blocks < PASCAL_MIN_VOL_BLOCKS || blocks > PASCAL_MAX_VOL_BLOCKS+1 {
		return fsys.No
	}

	data := make([]byte, PASCAL_BLOCK_SIZE)
	if err := src.ReadBlock(PASCAL_VOLUME_BLOCK, data, 0); err != nil {
		return fsys.No
	}

	var hdr VolumeHeader
	if hdr.Load(data, 0) != VOL_HEADER_LENGTH {
		return fsys.No
	}
	if !ValidateHeader(&hdr, availableBlocks(src)) {
		return fsys.No
	}

	if log != nil {
		log.Debugf("pascal: found volume /%s, %d blocks", hdr.GetName(), hdr.BlockCount)
	}
	return fsys.Yes
}
