package pascal

import "strings"

type PascalFileType int

const (
	FileType_PAS_NONE PascalFileType = 0
	FileType_PAS_BADD PascalFileType = 1
	FileType_PAS_CODE PascalFileType = 2
	FileType_PAS_TEXT PascalFileType = 3
	FileType_PAS_INFO PascalFileType = 4
	FileType_PAS_DATA PascalFileType = 5
	FileType_PAS_GRAF PascalFileType = 6
	FileType_PAS_FOTO PascalFileType = 7
	FileType_PAS_SECD PascalFileType = 8
)

// Only the low nibble of the type word is the file kind.
const typeMask = 0x000f

var PascalTypeMap = map[PascalFileType][2]string{
	0x00: {"UNK", "Untyped"},
	0x01: {"BAD", "Bad Block"},
	0x02: {"PCD", "Pascal Code"},
	0x03: {"PTX", "Pascal Text"},
	0x04: {"PIF", "Pascal Info"},
	0x05: {"PDA", "Pascal Data"},
	0x06: {"GRF", "Pascal Graphics"},
	0x07: {"FOT", "HiRes Graphics"},
	0x08: {"SEC", "Secure Directory"},
}

func (ft PascalFileType) String() string {
	if info, ok := PascalTypeMap[ft]; ok {
		return info[1]
	}
	return "Unknown"
}

func (ft PascalFileType) Ext() string {
	if info, ok := PascalTypeMap[ft]; ok {
		return info[0]
	}
	return "UNK"
}

func (ft PascalFileType) Valid() bool {
	_, ok := PascalTypeMap[ft]
	return ok
}

func PascalFileTypeFromExt(ext string) PascalFileType {
	for ft, info := range PascalTypeMap {
		if strings.EqualFold(ext, info[0]) {
			return ft
		}
	}
	return FileType_PAS_NONE
}
