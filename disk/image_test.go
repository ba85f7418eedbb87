package disk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func pattern(seed byte) []byte {
	b := make([]byte, BLOCK_SIZE)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}

func TestDiskSize(t *testing.T) {
	require.Equal(t, 143360, STD_DISK_BYTES)
	require.Equal(t, PRODOS_BLOCKS_PER_DISK*BLOCK_SIZE, STD_DISK_BYTES)
}

func TestLinearBlocks(t *testing.T) {
	img, err := NewBlankImage(280, SectorOrderProDOS)
	require.NoError(t, err)

	require.NoError(t, img.WriteBlock(5, pattern(5), 0))
	require.Equal(t, pattern(5), img.Data[5*BLOCK_SIZE:6*BLOCK_SIZE])
	require.True(t, img.IsChanged())

	buf := make([]byte, BLOCK_SIZE+10)
	require.NoError(t, img.ReadBlock(5, buf, 10))
	require.Equal(t, pattern(5), buf[10:])
}

func TestDOSOrderBlocks(t *testing.T) {
	img, err := NewBlankImage(280, SectorOrderDOS33)
	require.NoError(t, err)
	require.True(t, img.HasSectors())

	data := pattern(9)
	require.NoError(t, img.WriteBlock(9, data, 0))

	// block 9 is track 1, sectors $d and $c
	require.NoError(t, img.Seek(1, 0xd))
	require.Equal(t, data[:256], img.Read())
	require.NoError(t, img.Seek(1, 0xc))
	require.Equal(t, data[256:], img.Read())

	out := make([]byte, BLOCK_SIZE)
	require.NoError(t, img.ReadBlock(9, out, 0))
	require.Equal(t, data, out)
}

func TestBlockErrors(t *testing.T) {
	img, err := NewBlankImage(16, SectorOrderProDOS)
	require.NoError(t, err)

	require.ErrorIs(t, img.ReadBlock(16, make([]byte, BLOCK_SIZE), 0), ErrInvalidAddress)
	require.ErrorIs(t, img.ReadBlock(0, make([]byte, 100), 0), ErrShortBuffer)

	img.WriteProtected = true
	require.ErrorIs(t, img.WriteBlock(0, make([]byte, BLOCK_SIZE), 0), ErrReadOnly)

	_, err = NewBlankImage(16, SectorOrderDOS33)
	require.Error(t, err)
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "test.do")

	img, err := NewBlankImage(280, SectorOrderDOS33)
	require.NoError(t, err)
	require.NoError(t, img.WriteBlock(2, pattern(2), 0))
	require.NoError(t, img.Save(name))
	require.False(t, img.IsChanged())

	loaded, err := LoadImage(name)
	require.NoError(t, err)
	require.Equal(t, SectorOrderDOS33, loaded.Layout)
	require.Equal(t, img.ChecksumDisk(), loaded.ChecksumDisk())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "small.po"), make([]byte, 800*BLOCK_SIZE), 0644))
	po, err := LoadImage(filepath.Join(dir, "small.po"))
	require.NoError(t, err)
	require.Equal(t, SectorOrderProDOS, po.Layout)
	require.False(t, po.HasSectors())
	require.Equal(t, 800, BlockCount(po))
}

func TestGatedSource(t *testing.T) {
	img, err := NewBlankImage(280, SectorOrderProDOS)
	require.NoError(t, err)

	g := NewGatedSource(img)
	require.Equal(t, AccessOpen, g.Level())
	require.NoError(t, g.WriteBlock(1, pattern(1), 0))

	g.SetLevel(AccessReadWrite)
	buf := make([]byte, BLOCK_SIZE)
	require.ErrorIs(t, g.ReadBlock(1, buf, 0), ErrAccessDenied)
	require.ErrorIs(t, g.WriteBlock(1, buf, 0), ErrAccessDenied)
	require.True(t, g.IsReadOnly())
	require.Equal(t, "ReadWrite", g.Level().String())

	g.SetLevel(AccessOpen)
	require.NoError(t, g.ReadBlock(1, buf, 0))
	require.Equal(t, pattern(1), buf)

	img.WriteProtected = true
	require.ErrorIs(t, g.WriteBlock(1, buf, 0), ErrReadOnly)
}
