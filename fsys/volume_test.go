package fsys_test

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/paleotronic/pascalfs/disk"
	"github.com/paleotronic/pascalfs/fsys"
	"github.com/paleotronic/pascalfs/loggy"
	"github.com/paleotronic/pascalfs/pascal"
)

func quiet() *loggy.Logger {
	return loggy.NewWithOutput(0, io.Discard, logrus.DebugLevel)
}

func formattedImage(t *testing.T, order disk.SectorOrder) *disk.Image {
	img, err := disk.NewBlankImage(280, order)
	require.NoError(t, err)
	require.NoError(t, pascal.New(img, quiet()).Format("VOL", 0, false))
	return img
}

func TestOpenVolume(t *testing.T) {
	img := formattedImage(t, disk.SectorOrderProDOS)

	vol, err := fsys.Open(img, quiet())
	require.NoError(t, err)
	require.Equal(t, "Pascal", vol.Kind)
	require.Equal(t, disk.AccessReadWrite, vol.FS.Level())

	free, err := vol.FS.FreeSpace()
	require.NoError(t, err)
	require.Equal(t, int64(274*512), free)

	require.NoError(t, vol.Close())
	require.Equal(t, disk.AccessClosed, vol.FS.Level())
	require.ErrorIs(t, vol.Close(), fsys.ErrAlreadyClosed)
}

func TestOpenRaw(t *testing.T) {
	img := formattedImage(t, disk.SectorOrderProDOS)

	vol, err := fsys.OpenRaw(img, quiet())
	require.NoError(t, err)
	defer vol.Close()
	require.Equal(t, disk.AccessOpen, vol.FS.Level())

	buf := make([]byte, 512)
	require.NoError(t, vol.FS.RawAccess().ReadBlock(2, buf, 0))
	require.Equal(t, byte(3), buf[6])
}

func TestOpenUnknown(t *testing.T) {
	img, err := disk.NewBlankImage(280, disk.SectorOrderProDOS)
	require.NoError(t, err)

	_, err = fsys.Open(img, quiet())
	require.ErrorIs(t, err, fsys.ErrFormatInvalid)
	_, err = fsys.OpenRaw(img, quiet())
	require.ErrorIs(t, err, fsys.ErrFormatInvalid)
}

func TestOpenImageRetriesSectorOrder(t *testing.T) {
	img := formattedImage(t, disk.SectorOrderProDOS)

	// the same bytes read as a DOS ordered image scramble the directory
	img.Layout = disk.SectorOrderDOS33
	require.Equal(t, fsys.No, pascal.TestImage(img, quiet()))

	vol, err := fsys.OpenImage(img, quiet())
	require.NoError(t, err)
	defer vol.Close()
	require.Equal(t, disk.SectorOrderProDOS, img.Layout)
}

func TestIdentifySurvivesPanics(t *testing.T) {
	fsys.Register(fsys.Driver{
		Name: "Exploding",
		Test: func(src disk.BlockSource, log *loggy.Logger) fsys.TestResult { panic("bad driver") },
		New:  func(src disk.BlockSource, log *loggy.Logger) fsys.FileSystem { return nil },
	})

	img := formattedImage(t, disk.SectorOrderProDOS)
	d, ok := fsys.Identify(img, quiet())
	require.True(t, ok)
	require.Equal(t, "Pascal", d.Name)

	blank, err := disk.NewBlankImage(280, disk.SectorOrderProDOS)
	require.NoError(t, err)
	_, ok = fsys.Identify(blank, quiet())
	require.False(t, ok)

	names := []string{}
	for _, d := range fsys.Drivers() {
		names = append(names, d.Name)
	}
	require.Contains(t, names, "Exploding")
	require.Contains(t, names, "Pascal")
}

func TestOpenWithConfigure(t *testing.T) {
	img := formattedImage(t, disk.SectorOrderProDOS)

	var seen disk.AccessLevel = -1
	vol, err := fsys.OpenWith(img, quiet(), fsys.OpenOptions{
		DoScan: false,
		Configure: func(fs fsys.FileSystem) {
			seen = fs.Level()
			fs.(*pascal.Pascal).SetOptions(pascal.Options{RejectOutOfOrder: true})
		},
	})
	require.NoError(t, err)
	defer vol.Close()
	require.Equal(t, disk.AccessOpen, seen)
	require.Equal(t, disk.AccessReadWrite, vol.FS.Level())
}
