package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paleotronic/pascalfs/disk"
	"github.com/paleotronic/pascalfs/pascal"
	"github.com/stretchr/testify/require"
)

func TestSmartSplit(t *testing.T) {
	tests := []struct {
		line string
		verb string
		args []string
	}{
		{"", "", nil},
		{"cat", "cat", nil},
		{"mv OLD.TEXT NEW.TEXT", "mv", []string{"OLD.TEXT", "NEW.TEXT"}},
		{`put "my file.txt" HELLO.TEXT`, "put", []string{"my file.txt", "HELLO.TEXT"}},
		{`put my\ file.txt`, "put", []string{"my file.txt"}},
		{"  get   A   B ", "get", []string{"A", "B"}},
	}
	for _, tt := range tests {
		verb, args := smartSplit(tt.line)
		require.Equal(t, tt.verb, verb, tt.line)
		require.Equal(t, len(tt.args), len(args), tt.line)
		for i := range tt.args {
			require.Equal(t, tt.args[i], args[i], tt.line)
		}
	}
}

func TestTypeFromSuffix(t *testing.T) {
	require.Equal(t, pascal.FileType_PAS_TEXT, typeFromSuffix("TEXT"))
	require.Equal(t, pascal.FileType_PAS_CODE, typeFromSuffix("code"))
	require.Equal(t, pascal.FileType_PAS_TEXT, typeFromSuffix("PTX"))
	require.Equal(t, pascal.FileType_PAS_FOTO, typeFromSuffix("FOTO"))
	require.Equal(t, pascal.FileType_PAS_DATA, typeFromSuffix("XYZ"))
}

func TestShellSession(t *testing.T) {
	*noBackup = true
	defer func() { *noBackup = false }()
	defer unmountAll()

	dir := t.TempDir()
	wd, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	img, err := disk.NewBlankImage(disk.PRODOS_BLOCKS_PER_DISK, disk.SectorOrderProDOS)
	require.NoError(t, err)
	img.Filename = filepath.Join(dir, "work.po")

	slot, err := mountDsk(img)
	require.NoError(t, err)
	commandTarget = slot
	require.Nil(t, current().vol)

	require.Equal(t, -1, shellProcess("cat"))
	require.Equal(t, 0, shellProcess("format WORK"))
	require.NotNil(t, current().vol)

	require.NoError(t, os.WriteFile("hello.txt", []byte("PROGRAM HELLO;\n  BEGIN\nEND.\n"), 0644))
	require.Equal(t, 0, shellProcess("put hello.txt HELLO.TEXT"))
	require.Equal(t, 0, shellProcess("cat"))

	root, err := current().vol.FS.VolumeDir()
	require.NoError(t, err)
	e, err := current().vol.FS.FindFile(root, "HELLO.TEXT")
	require.NoError(t, err)
	attrs, err := e.Attrs()
	require.NoError(t, err)
	require.Equal(t, int(pascal.FileType_PAS_TEXT), attrs.FileType)
	require.EqualValues(t, pascal.TEXT_HEADER_SIZE+pascal.TEXT_PAGE_SIZE, attrs.DataLength)

	require.NoError(t, os.Remove("hello.txt"))
	require.Equal(t, 0, shellProcess("mv HELLO.TEXT hello.txt"))
	require.Equal(t, 0, shellProcess("get HELLO.*"))
	got, err := os.ReadFile("HELLO.TXT")
	require.NoError(t, err)
	require.Equal(t, "PROGRAM HELLO;\n  BEGIN\nEND.\n", string(got))

	require.Equal(t, 0, shellProcess("block 2"))
	require.Equal(t, 0, shellProcess("check"))
	require.Equal(t, 0, shellProcess(`dir "{filename} {blake3}"`))
	require.Equal(t, 0, shellProcess("report work.yaml"))
	require.FileExists(t, "work.yaml")

	require.Equal(t, 0, shellProcess("rm HELLO.TXT"))
	require.Equal(t, -1, shellProcess("rm HELLO.TXT"))
	require.Equal(t, 0, shellProcess("setvolume DONE"))

	// the saved image carries the changes
	saved, err := disk.LoadImage(img.Filename)
	require.NoError(t, err)
	p := pascal.New(saved, nil)
	require.NoError(t, p.PrepareFileAccess(false))
	defer p.Close()
	hdr := p.Header()
	require.Equal(t, "DONE", hdr.GetName())
	require.EqualValues(t, 0, hdr.FileCount)

	require.Equal(t, 999, shellProcess("quit"))
}

func TestPutKeepsOriginalWhenFull(t *testing.T) {
	*noBackup = true
	defer func() { *noBackup = false }()
	defer unmountAll()

	dir := t.TempDir()
	img, err := disk.NewBlankImage(40, disk.SectorOrderProDOS)
	require.NoError(t, err)
	img.Filename = filepath.Join(dir, "small.po")

	slot, err := mountDsk(img)
	require.NoError(t, err)
	commandTarget = slot
	require.Equal(t, 0, shellProcess("format SMALL"))

	small := filepath.Join(dir, "small.bin")
	big := filepath.Join(dir, "big.bin")
	require.NoError(t, os.WriteFile(small, make([]byte, 3000), 0644))
	require.NoError(t, os.WriteFile(big, make([]byte, 20000), 0644))

	require.Equal(t, 0, shellProcess("put "+small+" KEEP.DATA"))
	require.Equal(t, -1, shellProcess("put "+big+" KEEP.DATA"))

	p := current().pascal()
	cat, err := p.Catalog()
	require.NoError(t, err)
	require.Len(t, cat, 1)
	require.Equal(t, "KEEP.DATA", cat[0].String())
	attrs, err := cat[0].Attrs()
	require.NoError(t, err)
	require.EqualValues(t, 3000, attrs.DataLength)

	// a replacement that fits swaps in under the same name
	require.Equal(t, 0, shellProcess("put "+small+" KEEP.DATA"))
	cat, err = p.Catalog()
	require.NoError(t, err)
	require.Len(t, cat, 1)
	require.Equal(t, "KEEP.DATA", cat[0].String())
}
